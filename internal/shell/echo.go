package shell

import "strings"

func cmdEcho(state *ConnectionState, params [][]byte, session Session) CommandResult {
	out := strings.Join(toStrings(params), " ")
	if !session.Redirected() {
		out += "\n"
	}
	session.Write([]byte(out))
	return CommandResult{Kind: ResultExit, Code: 0}
}
