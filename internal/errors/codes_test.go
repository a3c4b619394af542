package errors

import (
	"io"
	"testing"

	pkgerrors "github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	assert.Equal(t, "[ALREADY_FINALIZED] recording already finalized", AlreadyFinalized().Error())
	assert.Equal(t, "[UPLOAD_FAILED] upload rejected: EOF", UploadFailed("upload rejected", io.EOF).Error())
}

func TestIsCode_ThroughWrapping(t *testing.T) {
	err := pkgerrors.Wrap(DeviceUnavailable(io.EOF), "start session")

	assert.True(t, IsCode(err, ErrCodeDeviceUnavailable))
	assert.False(t, IsCode(err, ErrCodeUploadFailed))
	assert.ErrorIs(t, err, io.EOF)
}

func TestGetCodeFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorCode
	}{
		{name: "typed", err: TurnInProgress(), want: ErrCodeTurnInProgress},
		{name: "plain", err: io.EOF, want: ErrCodeCollaboratorFailed},
		{name: "wrapped", err: pkgerrors.Wrap(PollingTimeout("late"), "poll"), want: ErrCodePollingTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GetCodeFromError(tt.err, ErrCodeCollaboratorFailed))
		})
	}
}

func TestWithContext(t *testing.T) {
	err := CollaboratorFailed("tts", io.EOF).WithContext("attempt", 2)

	assert.Equal(t, "tts", err.Context["collaborator"])
	assert.Equal(t, 2, err.Context["attempt"])
}
