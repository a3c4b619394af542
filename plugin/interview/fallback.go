package interview

import (
	_ "embed"
	"math/rand"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed fallback_questions.yaml
var defaultFallbackYAML []byte

// FallbackBank is a local table of canned questions per interview type.
type FallbackBank struct {
	defaultType string
	questions   map[string][]string
}

type fallbackFile struct {
	Default string              `yaml:"default"`
	Types   map[string][]string `yaml:"types"`
}

var (
	defaultBankOnce sync.Once
	defaultBank     *FallbackBank
)

// DefaultFallbackBank returns the built-in question bank.
func DefaultFallbackBank() *FallbackBank {
	defaultBankOnce.Do(func() {
		bank, err := ParseFallbackBank(defaultFallbackYAML)
		if err != nil {
			panic(errors.Wrap(err, "built-in fallback questions are invalid"))
		}
		defaultBank = bank
	})
	return defaultBank
}

// ParseFallbackBank parses a YAML question bank. The default type must have at least one question.
func ParseFallbackBank(data []byte) (*FallbackBank, error) {
	var f fallbackFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "failed to parse fallback questions")
	}
	if f.Default == "" {
		f.Default = "behavioral"
	}

	bank := &FallbackBank{defaultType: f.Default, questions: make(map[string][]string, len(f.Types))}
	for interviewType, qs := range f.Types {
		clean := make([]string, 0, len(qs))
		for _, q := range qs {
			if q = strings.TrimSpace(q); q != "" {
				clean = append(clean, q)
			}
		}
		if len(clean) > 0 {
			bank.questions[normalizeType(interviewType)] = clean
		}
	}
	if len(bank.questions[bank.defaultType]) == 0 {
		return nil, errors.Errorf("default interview type %q has no fallback questions", bank.defaultType)
	}
	return bank, nil
}

// Types returns the interview types that have a pool of their own.
func (b *FallbackBank) Types() []string {
	out := make([]string, 0, len(b.questions))
	for t := range b.questions {
		out = append(out, t)
	}
	return out
}

// Pool returns the questions for interviewType, or the default pool for unknown types.
func (b *FallbackBank) Pool(interviewType string) []string {
	if qs, ok := b.questions[normalizeType(interviewType)]; ok {
		return qs
	}
	return b.questions[b.defaultType]
}

// Pick selects a question from the pool of interviewType, preferring ones not in asked.
// It always returns a question.
func (b *FallbackBank) Pick(rng *rand.Rand, interviewType string, asked []string) string {
	pool := b.Pool(interviewType)

	seen := make(map[string]struct{}, len(asked))
	for _, q := range asked {
		seen[strings.TrimSpace(q)] = struct{}{}
	}
	fresh := make([]string, 0, len(pool))
	for _, q := range pool {
		if _, ok := seen[q]; !ok {
			fresh = append(fresh, q)
		}
	}
	if len(fresh) == 0 {
		fresh = pool
	}

	if rng == nil {
		return fresh[rand.Intn(len(fresh))]
	}
	return fresh[rng.Intn(len(fresh))]
}

func normalizeType(interviewType string) string {
	t := strings.ToLower(strings.TrimSpace(interviewType))
	return strings.ReplaceAll(strings.ReplaceAll(t, "_", "-"), " ", "-")
}
