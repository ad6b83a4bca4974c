package shell

import (
	"fmt"

	"github.com/pisshoff/pisshoff/internal/audit"
	"github.com/pisshoff/pisshoff/internal/fakefs"
)

// ResultKind discriminates the variants of CommandResult.
type ResultKind int

const (
	// ResultReadStdin means Command should receive the channel's next
	// data bytes via its Stdin method.
	ResultReadStdin ResultKind = iota
	// ResultExit returns the shell to its prompt (interactive) or closes
	// the channel with the given exit status (exec mode).
	ResultExit
	// ResultClose always closes the channel with the given exit status,
	// regardless of interactive/exec mode.
	ResultClose
)

// CommandResult is returned by a builtin's entry point and by Command.Stdin.
type CommandResult struct {
	Kind    ResultKind
	Command Command
	Code    uint32
}

// Command is a command that has entered stdin mode (cat reading from the
// terminal, scp receiving a file). Its entry point is a builtin func;
// this interface only covers what happens after that.
type Command interface {
	Stdin(state *ConnectionState, session Session, data []byte) CommandResult
}

// Session is the narrow capability surface a command needs: write bytes,
// end the channel, and know whether its output is being captured for a
// nested command substitution (which suppresses echo's trailing newline).
type Session interface {
	Write(p []byte)
	ExitStatus(code uint32)
	Close()
	Redirected() bool
}

// ConnectionState is the per-connection state a command operates against.
type ConnectionState struct {
	Username string
	FS       *fakefs.FileSystem
	Audit    *audit.Log
	Env      map[string]string
}

func (s *ConnectionState) envLookup() EnvLookup {
	return func(name string) string { return s.Env[name] }
}

type builtin func(state *ConnectionState, params [][]byte, session Session) CommandResult

var builtins = map[string]builtin{
	"echo":   cmdEcho,
	"exit":   cmdExit,
	"pwd":    cmdPwd,
	"whoami": cmdWhoami,
	"ls":     cmdLs,
	"cat":    cmdCat,
	"uname":  cmdUname,
	"scp":    cmdScp,
}

// Dispatch looks up exec in the builtin table and runs it. An unknown
// command prints bash's own error and exits 1.
func Dispatch(state *ConnectionState, session Session, exec []byte, params [][]byte) CommandResult {
	name := string(exec)
	fn, ok := builtins[name]
	if !ok {
		session.Write([]byte(fmt.Sprintf("bash: %s: command not found\n", name)))
		return CommandResult{Kind: ResultExit, Code: 1}
	}
	return fn(state, params, session)
}

func toStrings(params [][]byte) []string {
	out := make([]string, len(params))
	for i, p := range params {
		out[i] = string(p)
	}
	return out
}
