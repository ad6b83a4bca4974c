package shell

import (
	"fmt"
	"strings"
)

type unameFields uint8

const (
	unameKernelName unameFields = 1 << iota
	unameNodeName
	unameKernelRelease
	unameKernelVersion
	unameMachine
	unameProcessor
	unamePlatform
	unameOperatingSystem
	unameAll = unameKernelName | unameNodeName | unameKernelRelease | unameKernelVersion |
		unameMachine | unameProcessor | unamePlatform | unameOperatingSystem
)

const unameHelp = `Usage: uname [OPTION]...
Print certain system information.  With no OPTION, same as -s.

  -a, --all                print all information, in the following order,
                             except omit -p and -i if unknown:
  -s, --kernel-name        print the kernel name
  -n, --nodename           print the network node hostname
  -r, --kernel-release     print the kernel release
  -v, --kernel-version     print the kernel version
  -m, --machine            print the machine hardware name
  -p, --processor          print the processor type (non-portable)
  -i, --hardware-platform  print the hardware platform (non-portable)
  -o, --operating-system   print the operating system
      --help     display this help and exit
      --version  output version information and exit

GNU coreutils online help: <https://www.gnu.org/software/coreutils/>
Report any translation bugs to <https://translationproject.org/team/>
Full documentation <https://www.gnu.org/software/coreutils/uname>
or available locally via: info '(coreutils) uname invocation'
`

const unameVersion = `uname (GNU coreutils) 8.32
Copyright (C) 2020 Free Software Foundation, Inc.
License GPLv3+: GNU GPL version 3 or later <https://gnu.org/licenses/gpl.html>.
This is free software: you are free to change and redistribute it.
There is NO WARRANTY, to the extent permitted by law.

Written by David MacKenzie.
`

// cmdUname prints a fixed fake UNIX identity. With no flags given at all
// it defaults to -s, per the honeypot's documented contract (the Rust
// original leaves this case unhandled and would print a bare newline).
func cmdUname(state *ConnectionState, params [][]byte, session Session) CommandResult {
	var toPrint unameFields
	var filterUnknown bool

	for _, a := range ParseArgs(toStrings(params)) {
		switch a.Kind {
		case ArgShort:
			switch a.Char {
			case 'a':
				filterUnknown = true
				toPrint = unameAll
			case 's':
				toPrint |= unameKernelName
			case 'n':
				toPrint |= unameNodeName
			case 'r':
				toPrint |= unameKernelRelease
			case 'v':
				toPrint |= unameKernelVersion
			case 'm':
				toPrint |= unameMachine
			case 'p':
				toPrint |= unameProcessor
			case 'i':
				toPrint |= unamePlatform
			case 'o':
				toPrint |= unameOperatingSystem
			default:
				session.Write([]byte(fmt.Sprintf("uname: invalid option -- '%c'\nTry 'uname --help' for more information.\n", a.Char)))
				return CommandResult{Kind: ResultExit, Code: 1}
			}
		case ArgLong:
			switch a.Name {
			case "all":
				filterUnknown = true
				toPrint = unameAll
			case "kernel-name":
				toPrint |= unameKernelName
			case "nodename":
				toPrint |= unameNodeName
			case "kernel-release":
				toPrint |= unameKernelRelease
			case "kernel-version":
				toPrint |= unameKernelVersion
			case "machine":
				toPrint |= unameMachine
			case "processor":
				toPrint |= unameProcessor
			case "hardware-platform":
				toPrint |= unamePlatform
			case "operating-system":
				toPrint |= unameOperatingSystem
			case "help":
				session.Write([]byte(unameHelp))
				return CommandResult{Kind: ResultExit, Code: 0}
			case "version":
				session.Write([]byte(unameVersion))
				return CommandResult{Kind: ResultExit, Code: 0}
			default:
				session.Write([]byte(fmt.Sprintf("uname: unrecognized option '--%s'\nTry 'uname --help' for more information.\n", a.Name)))
				return CommandResult{Kind: ResultExit, Code: 1}
			}
		case ArgOperand:
			session.Write([]byte(fmt.Sprintf("uname: extra operand '%s'\nTry 'uname --help' for more information.\n", a.Value)))
			return CommandResult{Kind: ResultExit, Code: 1}
		}
	}

	if toPrint == 0 {
		toPrint = unameKernelName
	}

	var fields []string
	if toPrint&unameKernelName != 0 {
		fields = append(fields, "Linux")
	}
	if toPrint&unameNodeName != 0 {
		fields = append(fields, "cd5079c0d642")
	}
	if toPrint&unameKernelRelease != 0 {
		fields = append(fields, "5.15.49")
	}
	if toPrint&unameKernelVersion != 0 {
		fields = append(fields, "#1 SMP PREEMPT Tue Sep 13 07:51:32 UTC 2022")
	}
	if toPrint&unameMachine != 0 {
		fields = append(fields, "x86_64")
	}
	if toPrint&unameProcessor != 0 && !filterUnknown {
		fields = append(fields, "unknown")
	}
	if toPrint&unamePlatform != 0 && !filterUnknown {
		fields = append(fields, "unknown")
	}
	if toPrint&unameOperatingSystem != 0 {
		fields = append(fields, "GNU/Linux")
	}

	session.Write([]byte(strings.Join(fields, " ") + "\n"))
	return CommandResult{Kind: ResultExit, Code: 0}
}
