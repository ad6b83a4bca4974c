package shell

import (
	"bytes"

	"github.com/pisshoff/pisshoff/internal/audit"
)

// ShellPrompt is written at the start of an interactive session and
// after every command returns to the prompt.
const ShellPrompt = "bash-5.1$ "

// Shell is the per-channel subsystem bound by shell_request (interactive)
// or exec_request (non-interactive, running a single line then closing).
type Shell struct {
	Interactive bool
	running     Command
}

// NewShell creates a shell subsystem and, if interactive, writes the
// first prompt.
func NewShell(interactive bool, session Session) *Shell {
	sh := &Shell{Interactive: interactive}
	if interactive {
		session.Write([]byte(ShellPrompt))
	}
	return sh
}

// Data feeds the channel's next chunk of bytes to the shell: either a new
// command line (at the prompt) or stdin for the command currently in
// ReadStdin mode.
func (sh *Shell) Data(state *ConnectionState, session Session, data []byte) {
	var result CommandResult
	if sh.running != nil {
		result = sh.running.Stdin(state, session, data)
	} else {
		result = sh.dispatchLine(state, session, data)
	}

	switch result.Kind {
	case ResultReadStdin:
		sh.running = result.Command
		return
	case ResultClose:
		sh.running = nil
		session.ExitStatus(result.Code)
		session.Close()
		return
	default: // ResultExit
		sh.running = nil
	}

	if sh.Interactive {
		session.Write([]byte(ShellPrompt))
		return
	}
	session.ExitStatus(result.Code)
	session.Close()
}

func (sh *Shell) dispatchLine(state *ConnectionState, session Session, data []byte) CommandResult {
	state.Audit.PushAction(audit.ExecCommand{Args: []string{string(data)}})

	trimmed := bytes.TrimSuffix(data, []byte("\n"))
	trimmed = bytes.TrimSuffix(trimmed, []byte("\r"))

	parts, _, err := Tokenize(trimmed)
	if err != nil {
		session.Write([]byte("bash: syntax error\n"))
		return CommandResult{Kind: ResultExit, Code: 0}
	}
	if len(parts) == 0 {
		return CommandResult{Kind: ResultExit, Code: 0}
	}

	pc := Run(parts, state.envLookup(), sh.substitute(state))
	if pc.Exec == nil {
		return CommandResult{Kind: ResultExit, Code: 0}
	}

	return Dispatch(state, session, pc.Exec, pc.Params)
}

// substitute runs a nested command to completion against a capturing
// session and returns whatever it wrote. A substitution that itself
// enters stdin mode (cat, scp) never receives further input here — there
// is no terminal behind a capture — so its output so far is all it gets.
func (sh *Shell) substitute(state *ConnectionState) func(exec []byte, params [][]byte) []byte {
	return func(exec []byte, params [][]byte) []byte {
		cs := &captureSession{}
		Dispatch(state, cs, exec, params)
		return cs.buf.Bytes()
	}
}

type captureSession struct {
	buf bytes.Buffer
}

func (c *captureSession) Write(p []byte)    { c.buf.Write(p) }
func (c *captureSession) ExitStatus(uint32) {}
func (c *captureSession) Close()            {}
func (c *captureSession) Redirected() bool  { return true }
