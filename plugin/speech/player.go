package speech

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/wingman/plugin/interview"
)

// CommandPlayer pipes audio to an external player, e.g. "ffplay -nodisp -autoexit -".
type CommandPlayer struct {
	Name string
	Args []string
}

// NewCommandPlayer parses a command line such as "mpg123 -q -".
func NewCommandPlayer(command string) (*CommandPlayer, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return nil, errors.New("empty player command")
	}
	return &CommandPlayer{Name: fields[0], Args: fields[1:]}, nil
}

// Play blocks until the player exits.
func (p *CommandPlayer) Play(ctx context.Context, audio []byte) error {
	cmd := exec.CommandContext(ctx, p.Name, p.Args...)
	cmd.Stdin = bytes.NewReader(audio)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return errors.Wrapf(err, "player %s failed: %s", p.Name, truncate(stderr.String()))
	}
	return nil
}

// SilentPlayer discards audio.
type SilentPlayer struct{}

func (SilentPlayer) Play(ctx context.Context, audio []byte) error {
	return ctx.Err()
}

var (
	_ interview.Player = (*CommandPlayer)(nil)
	_ interview.Player = SilentPlayer{}
)
