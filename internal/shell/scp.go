package shell

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/pisshoff/pisshoff/internal/audit"
)

const scpHelp = `usage: scp [-346ABCOpqRrsTv] [-c cipher] [-D sftp_server_path] [-F ssh_config]
           [-i identity_file] [-J destination] [-l limit] [-o ssh_option]
           [-P port] [-S program] [-X sftp_option] source ... target
`

const scpAmbiguousTarget = "scp: ambiguous target\n"

const scpAck = "\x00"

// cmdScp implements the `scp -t <path>` receiver: any other invocation
// prints HELP or the ambiguous-target message and exits 1. scp is a
// shell built-in here, exactly as command/scp.rs dispatches it — not a
// separate top-level subsystem.
func cmdScp(state *ConnectionState, params [][]byte, session Session) CommandResult {
	var target string
	havePath := false
	transfer := false

	for _, a := range ParseArgs(toStrings(params)) {
		switch a.Kind {
		case ArgShort:
			switch a.Char {
			case 't':
				transfer = true
			case 'r', 'v':
				// accepted, ignored
			default:
				session.Write([]byte(scpHelp))
				return CommandResult{Kind: ResultExit, Code: 1}
			}
		case ArgOperand:
			target = a.Value
			havePath = true
		case ArgLong:
			session.Write([]byte(scpHelp))
			return CommandResult{Kind: ResultExit, Code: 1}
		}
	}

	if !havePath {
		session.Write([]byte(scpAmbiguousTarget))
		return CommandResult{Kind: ResultExit, Code: 1}
	}
	if !transfer {
		session.Write([]byte(scpHelp))
		return CommandResult{Kind: ResultExit, Code: 1}
	}

	session.Write([]byte(scpAck))

	return CommandResult{Kind: ResultReadStdin, Command: &scpCommand{
		pathSegs: []string{target},
	}}
}

type scpState int

const (
	scpWaiting scpState = iota
	scpReceivingFile
	scpAwaitingSeparator
)

type scpCommand struct {
	pathSegs []string
	pending  []byte
	state    scpState
	fileLen  int
	filePath string
}

func (c *scpCommand) Stdin(state *ConnectionState, session Session, data []byte) CommandResult {
	c.pending = append(c.pending, data...)

	for len(c.pending) > 0 {
		switch c.state {
		case scpWaiting:
			rec, consumed, ok := parseScpRecord(c.pending)
			if !ok {
				return CommandResult{Kind: ResultExit, Code: 1}
			}

			switch rec.kind {
			case scpRecFileCopy:
				c.filePath = joinScpPath(c.pathSegs, rec.name)
				c.fileLen = rec.length
				c.state = scpReceivingFile
			case scpRecDirectoryCopy:
				c.pathSegs = append(c.pathSegs, rec.name)
			case scpRecEndDirectory:
				if len(c.pathSegs) > 0 {
					c.pathSegs = c.pathSegs[:len(c.pathSegs)-1]
				}
			case scpRecAccessTime:
				// timestamps are recorded implicitly by ignoring them
			}

			c.pending = c.pending[consumed:]
			session.Write([]byte(scpAck))

		case scpReceivingFile:
			if len(c.pending) < c.fileLen {
				return CommandResult{Kind: ResultReadStdin, Command: c}
			}
			content := append([]byte(nil), c.pending[:c.fileLen]...)
			c.pending = c.pending[c.fileLen:]
			state.Audit.PushAction(audit.WriteFile{Path: c.filePath, Content: content})
			c.state = scpAwaitingSeparator

		case scpAwaitingSeparator:
			if c.pending[0] == 0 {
				c.pending = c.pending[1:]
				session.Write([]byte(scpAck))
			}
			c.state = scpWaiting
		}
	}

	return CommandResult{Kind: ResultReadStdin, Command: c}
}

func joinScpPath(segs []string, name string) string {
	return strings.Join(append(append([]string{}, segs...), name), "/")
}

type scpRecKind int

const (
	scpRecFileCopy scpRecKind = iota
	scpRecDirectoryCopy
	scpRecEndDirectory
	scpRecAccessTime
)

type scpRecord struct {
	kind   scpRecKind
	length int
	name   string
}

// parseScpRecord parses exactly one control record from the front of s.
// Any shortfall (the record hasn't fully arrived yet) is treated the
// same as a malformed record: both end the scp command with exit 1, per
// the control-channel grammar's own contract.
func parseScpRecord(s []byte) (scpRecord, int, bool) {
	if len(s) == 0 {
		return scpRecord{}, 0, false
	}

	switch s[0] {
	case 'C', 'D':
		if len(s) < 6 || s[5] != ' ' {
			return scpRecord{}, 0, false
		}
		rest := s[6:]
		i := 0
		for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
			i++
		}
		if i == 0 || i >= len(rest) || rest[i] != ' ' {
			return scpRecord{}, 0, false
		}
		length, err := strconv.Atoi(string(rest[:i]))
		if err != nil {
			return scpRecord{}, 0, false
		}
		rest2 := rest[i+1:]
		nl := bytes.IndexByte(rest2, '\n')
		if nl < 0 {
			return scpRecord{}, 0, false
		}
		kind := scpRecFileCopy
		if s[0] == 'D' {
			kind = scpRecDirectoryCopy
		}
		return scpRecord{kind: kind, length: length, name: string(rest2[:nl])}, 6 + i + 1 + nl + 1, true

	case 'E':
		if len(s) < 2 || s[1] != '\n' {
			return scpRecord{}, 0, false
		}
		return scpRecord{kind: scpRecEndDirectory}, 2, true

	case 'T':
		rest := s[1:]
		total := 1
		for k := 0; k < 4; k++ {
			i := 0
			for i < len(rest) && rest[i] >= '0' && rest[i] <= '9' {
				i++
			}
			if i == 0 {
				return scpRecord{}, 0, false
			}
			rest = rest[i:]
			total += i
			if k < 3 {
				if len(rest) == 0 || rest[0] != ' ' {
					return scpRecord{}, 0, false
				}
				rest = rest[1:]
				total++
			}
		}
		if len(rest) == 0 || rest[0] != '\n' {
			return scpRecord{}, 0, false
		}
		total++
		return scpRecord{kind: scpRecAccessTime}, total, true

	default:
		return scpRecord{}, 0, false
	}
}
