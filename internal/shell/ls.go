package shell

import (
	"fmt"
	"strings"
)

func cmdLs(state *ConnectionState, params [][]byte, session Session) CommandResult {
	dirs := toStrings(params)

	if len(dirs) == 0 {
		entries, err := state.FS.Ls(nil)
		if err != nil {
			session.Write([]byte(fmt.Sprintf("ls: %s: %s\n", state.FS.Pwd(), err)))
			return CommandResult{Kind: ResultExit, Code: 1}
		}
		session.Write([]byte(formatLsEntries(entries)))
		return CommandResult{Kind: ResultExit, Code: 0}
	}

	if len(dirs) == 1 {
		entries, err := state.FS.Ls(&dirs[0])
		if err != nil {
			session.Write([]byte(fmt.Sprintf("ls: %s: %s\n", dirs[0], err)))
			return CommandResult{Kind: ResultExit, Code: 1}
		}
		session.Write([]byte(formatLsEntries(entries)))
		return CommandResult{Kind: ResultExit, Code: 0}
	}

	var out strings.Builder
	var exitCode uint32
	for i, d := range dirs {
		if i > 0 {
			out.WriteString("\n")
		}
		entries, err := state.FS.Ls(&d)
		if err != nil {
			out.WriteString(fmt.Sprintf("ls: %s: %s\n", d, err))
			exitCode = 1
			continue
		}
		out.WriteString(d + ":\n")
		out.WriteString(formatLsEntries(entries))
	}
	session.Write([]byte(out.String()))
	return CommandResult{Kind: ResultExit, Code: exitCode}
}

func formatLsEntries(entries []string) string {
	if len(entries) == 0 {
		return ""
	}
	return strings.Join(entries, "  ") + "\n"
}
