package shell

import "strconv"

func cmdExit(state *ConnectionState, params [][]byte, session Session) CommandResult {
	var code uint32
	if len(params) > 0 {
		n, err := strconv.ParseUint(string(params[0]), 10, 32)
		if err != nil {
			code = 2
		} else {
			code = uint32(n)
		}
	}
	return CommandResult{Kind: ResultClose, Code: code}
}
