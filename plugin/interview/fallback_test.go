package interview

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFallbackBank_CoversSupportedTypes(t *testing.T) {
	bank := DefaultFallbackBank()
	for _, interviewType := range []string{"behavioral", "technical", "system-design", "product"} {
		assert.NotEmpty(t, bank.Pool(interviewType), interviewType)
	}
	assert.Equal(t, bank.Pool("behavioral"), bank.Pool("unknown"))
}

func TestFallbackBank_PickIsDeterministicForSeed(t *testing.T) {
	bank := DefaultFallbackBank()
	a := bank.Pick(rand.New(rand.NewSource(42)), "behavioral", nil)
	b := bank.Pick(rand.New(rand.NewSource(42)), "behavioral", nil)
	assert.Equal(t, a, b)
}

func TestFallbackBank_PickReusesPoolWhenExhausted(t *testing.T) {
	bank := DefaultFallbackBank()
	asked := bank.Pool("product")

	q := bank.Pick(rand.New(rand.NewSource(1)), "product", asked)
	assert.Contains(t, asked, q)
}

func TestParseFallbackBank(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{name: "valid", yaml: "default: behavioral\ntypes:\n  behavioral: [\"Q\"]\n"},
		{name: "default without questions", yaml: "default: product\ntypes:\n  behavioral: [\"Q\"]\n", wantErr: true},
		{name: "blank questions dropped", yaml: "types:\n  behavioral: [\"  \"]\n", wantErr: true},
		{name: "malformed", yaml: "types: [", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bank, err := ParseFallbackBank([]byte(tt.yaml))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{"Q"}, bank.Pool("anything"))
		})
	}
}
