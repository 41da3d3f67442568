package transport

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mailit-dev/gomail/mime"
)

// writeFakeSendmail writes a tiny shell script standing in for a
// sendmail-compatible binary: it echoes its argv to stderr (which Send
// reports as Response), reads and discards stdin, and exits with exitCode,
// so tests can assert on both without a real MTA installed.
func writeFakeSendmail(t *testing.T, exitCode int) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake sendmail script requires a POSIX shell")
	}
	dir := t.TempDir()
	path := filepath.Join(dir, "fake-sendmail.sh")
	script := "#!/bin/sh\necho ARGS:\"$@\" 1>&2\ncat >/dev/null\nexit " + itoa(exitCode) + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
	return path
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var b []byte
	for n > 0 {
		b = append([]byte{byte('0' + n%10)}, b...)
		n /= 10
	}
	if neg {
		b = append([]byte{'-'}, b...)
	}
	return string(b)
}

func TestSendmailSendSuccess(t *testing.T) {
	path := writeFakeSendmail(t, 0)
	s := &Sendmail{Path: path}

	out, err := s.Send(context.Background(), SendInput{
		Envelope: mime.Envelope{From: "a@example.com", To: []string{"b@example.com", "c@example.com"}},
		Open:     func() (io.Reader, error) { return strings.NewReader("Subject: hi\r\n\r\nbody"), nil },
	})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b@example.com", "c@example.com"}, out.Accepted)
	assert.Contains(t, out.Response, "ARGS:")
	assert.Contains(t, out.Response, "a@example.com")
}

func TestSendmailSendNonZeroExit(t *testing.T) {
	path := writeFakeSendmail(t, 1)
	s := &Sendmail{Path: path}

	_, err := s.Send(context.Background(), SendInput{
		Envelope: mime.Envelope{From: "a@example.com", To: []string{"b@example.com"}},
		Open:     func() (io.Reader, error) { return strings.NewReader("body"), nil },
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited with error")
}

func TestSendmailSendCommandNotFound(t *testing.T) {
	s := &Sendmail{Path: filepath.Join(t.TempDir(), "does-not-exist-binary")}

	_, err := s.Send(context.Background(), SendInput{
		Envelope: mime.Envelope{From: "a@example.com", To: []string{"b@example.com"}},
		Open:     func() (io.Reader, error) { return strings.NewReader("body"), nil },
	})
	require.Error(t, err)
}

func TestSendmailSendCustomArgs(t *testing.T) {
	path := writeFakeSendmail(t, 0)
	called := false
	s := &Sendmail{
		Path: path,
		Args: func(from string, to []string) []string {
			called = true
			return []string{"-t"}
		},
	}
	_, err := s.Send(context.Background(), SendInput{
		Envelope: mime.Envelope{From: "a@example.com", To: []string{"b@example.com"}},
		Open:     func() (io.Reader, error) { return strings.NewReader("body"), nil },
	})
	require.NoError(t, err)
	assert.True(t, called)
}
