package shell

func cmdPwd(state *ConnectionState, params [][]byte, session Session) CommandResult {
	session.Write([]byte(state.FS.Pwd() + "\n"))
	return CommandResult{Kind: ResultExit, Code: 0}
}
