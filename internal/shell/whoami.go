package shell

func cmdWhoami(state *ConnectionState, params [][]byte, session Session) CommandResult {
	session.Write([]byte(state.Username + "\n"))
	return CommandResult{Kind: ResultExit, Code: 0}
}
