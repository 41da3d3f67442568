package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
)

// Sendmail is the local-pipe sink: it spawns a sendmail-compatible
// process, pipes the serialised message to its stdin, and reports
// success as exit code 0, distinguishing 127 as "command not found".
type Sendmail struct {
	// Path to the sendmail-compatible binary; defaults to "sendmail"
	// resolved via $PATH.
	Path string
	// Args overrides the default "-i -f <from> <to...>" argument vector.
	Args func(from string, to []string) []string
}

func (s *Sendmail) Send(ctx context.Context, in SendInput) (SendOutput, error) {
	r, err := in.Open()
	if err != nil {
		return SendOutput{}, fmt.Errorf("transport: open message stream: %w", err)
	}

	path := s.Path
	if path == "" {
		path = "sendmail"
	}
	args := s.defaultArgs(in.Envelope.From, in.Envelope.To)
	if s.Args != nil {
		args = s.Args(in.Envelope.From, in.Envelope.To)
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = r
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) && exitErr.ExitCode() == 127 {
			return SendOutput{Response: stderr.String()}, fmt.Errorf("transport: sendmail command not found: %w", runErr)
		}
		return SendOutput{Response: stderr.String()}, fmt.Errorf("transport: sendmail exited with error: %w", runErr)
	}

	return SendOutput{
		Accepted: append([]string{}, in.Envelope.To...),
		Response: stderr.String(),
	}, nil
}

func (s *Sendmail) defaultArgs(from string, to []string) []string {
	args := []string{"-i", "-f", from}
	return append(args, to...)
}
