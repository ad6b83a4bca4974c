package shell

import (
	"bytes"

	"github.com/pisshoff/pisshoff/internal/audit"
	"github.com/pisshoff/pisshoff/internal/fakefs"
)

// fakeSession is a minimal Session for exercising builtins directly.
type fakeSession struct {
	buf        bytes.Buffer
	exitCode   uint32
	gotExit    bool
	closed     bool
	redirected bool
}

func (s *fakeSession) Write(p []byte)       { s.buf.Write(p) }
func (s *fakeSession) ExitStatus(c uint32)  { s.exitCode, s.gotExit = c, true }
func (s *fakeSession) Close()               { s.closed = true }
func (s *fakeSession) Redirected() bool     { return s.redirected }

func newTestState(username string) *ConnectionState {
	return &ConnectionState{
		Username: username,
		FS:       fakefs.New(username),
		Audit:    audit.New("test-host", nil),
		Env:      map[string]string{},
	}
}

func bb(args ...string) [][]byte {
	out := make([][]byte, len(args))
	for i, a := range args {
		out[i] = []byte(a)
	}
	return out
}
