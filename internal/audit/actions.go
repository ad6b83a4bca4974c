package audit

import "encoding/json"

// LoginAttemptUsernamePassword records a password authentication attempt,
// successful or not.
type LoginAttemptUsernamePassword struct {
	Username string
	Password string
}

func (a LoginAttemptUsernamePassword) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type           string `json:"type"`
		CredentialType string `json:"credential-type"`
		Username       string `json:"username"`
		Password       string `json:"password"`
	}{"login-attempt", "username-password", a.Username, a.Password})
}

// LoginAttemptPublicKey records a public-key authentication attempt. These
// are always rejected, but the offered key is logged.
type LoginAttemptPublicKey struct {
	Kind        string
	Fingerprint string
}

func (a LoginAttemptPublicKey) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type           string `json:"type"`
		CredentialType string `json:"credential-type"`
		Kind           string `json:"kind"`
		Fingerprint    string `json:"fingerprint"`
	}{"login-attempt", "public-key", a.Kind, a.Fingerprint})
}

// PtyMode is a single (opcode, value) pair from a pty-req's encoded mode
// list, serialized as a 2-element array to mirror the original's tuple.
type PtyMode struct {
	Opcode uint8
	Value  uint32
}

func (m PtyMode) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]uint32{uint32(m.Opcode), m.Value})
}

// PtyRequest records a "pty-req" channel request.
type PtyRequest struct {
	Term      string
	ColWidth  uint32
	RowHeight uint32
	PixWidth  uint32
	PixHeight uint32
	Modes     []PtyMode
}

func (a PtyRequest) MarshalJSON() ([]byte, error) {
	modes := a.Modes
	if modes == nil {
		modes = []PtyMode{}
	}
	return json.Marshal(struct {
		Type      string    `json:"type"`
		Term      string    `json:"term"`
		ColWidth  uint32    `json:"col_width"`
		RowHeight uint32    `json:"row_height"`
		PixWidth  uint32    `json:"pix_width"`
		PixHeight uint32    `json:"pix_height"`
		Modes     []PtyMode `json:"modes"`
	}{"pty-request", a.Term, a.ColWidth, a.RowHeight, a.PixWidth, a.PixHeight, modes})
}

// X11Request records an "x11-req" channel request.
type X11Request struct {
	SingleConnection bool
	AuthProtocol     string
	AuthCookie       string
	ScreenNumber     uint32
}

func (a X11Request) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type             string `json:"type"`
		SingleConnection bool   `json:"single_connection"`
		AuthProtocol     string `json:"x11_auth_protocol"`
		AuthCookie       string `json:"x11_auth_cookie"`
		ScreenNumber     uint32 `json:"x11_screen_number"`
	}{"x11-request", a.SingleConnection, a.AuthProtocol, a.AuthCookie, a.ScreenNumber})
}

// OpenX11 records a rejected "x11" channel-open request.
type OpenX11 struct {
	OriginatorAddress string
	OriginatorPort    uint32
}

func (a OpenX11) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type              string `json:"type"`
		OriginatorAddress string `json:"originator_address"`
		OriginatorPort    uint32 `json:"originator_port"`
	}{"open-x11", a.OriginatorAddress, a.OriginatorPort})
}

// OpenDirectTCPIP records a rejected "direct-tcpip" channel-open request.
type OpenDirectTCPIP struct {
	HostToConnect     string
	PortToConnect     uint32
	OriginatorAddress string
	OriginatorPort    uint32
}

func (a OpenDirectTCPIP) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type              string `json:"type"`
		HostToConnect     string `json:"host_to_connect"`
		PortToConnect     uint32 `json:"port_to_connect"`
		OriginatorAddress string `json:"originator_address"`
		OriginatorPort    uint32 `json:"originator_port"`
	}{"open-direct-tcpip", a.HostToConnect, a.PortToConnect, a.OriginatorAddress, a.OriginatorPort})
}

// ExecCommand records a command line exactly as received (a single Args
// element, untokenized), either typed at an interactive prompt or
// delivered via an "exec" channel request.
type ExecCommand struct {
	Args []string
}

func (a ExecCommand) MarshalJSON() ([]byte, error) {
	args := a.Args
	if args == nil {
		args = []string{}
	}
	return json.Marshal(struct {
		Type string   `json:"type"`
		Args []string `json:"args"`
	}{"exec-command", args})
}

// ShellRequested records a bare "shell" channel request, with no
// parameters of its own.
type ShellRequested struct{}

func (a ShellRequested) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
	}{"shell-requested"})
}

// SubsystemRequest records a "subsystem" channel request, whether or not it
// names a subsystem we implement.
type SubsystemRequest struct {
	Name string
}

func (a SubsystemRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}{"subsystem-request", a.Name})
}

// WindowChangeRequest records a "window-change" channel request.
type WindowChangeRequest struct {
	ColWidth  uint32
	RowHeight uint32
	PixWidth  uint32
	PixHeight uint32
}

func (a WindowChangeRequest) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type      string `json:"type"`
		ColWidth  uint32 `json:"col_width"`
		RowHeight uint32 `json:"row_height"`
		PixWidth  uint32 `json:"pix_width"`
		PixHeight uint32 `json:"pix_height"`
	}{"window-change-request", a.ColWidth, a.RowHeight, a.PixWidth, a.PixHeight})
}

// Signal records a "signal" channel request.
type Signal struct {
	Name string
}

func (a Signal) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		Name string `json:"name"`
	}{"signal", a.Name})
}

// TCPIPForward records a global "tcpip-forward" request.
type TCPIPForward struct {
	Address string
	Port    uint32
}

func (a TCPIPForward) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string `json:"type"`
		Address string `json:"address"`
		Port    uint32 `json:"port"`
	}{"tcpip-forward", a.Address, a.Port})
}

// CancelTCPIPForward records a global "cancel-tcpip-forward" request. Same
// shape as TCPIPForward, distinct only in its type tag.
type CancelTCPIPForward struct {
	Address string
	Port    uint32
}

func (a CancelTCPIPForward) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string `json:"type"`
		Address string `json:"address"`
		Port    uint32 `json:"port"`
	}{"cancel-tcpip-forward", a.Address, a.Port})
}

// Mkdir records a directory-creation request received by the SFTP
// subsystem.
type Mkdir struct {
	Path string
}

func (a Mkdir) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type string `json:"type"`
		Path string `json:"path"`
	}{"mkdir", a.Path})
}

// byteArray marshals as a JSON array of byte values rather than Go's
// default base64 string, matching how the file content travels on the wire
// being audited (a raw byte sequence, not an encoded blob).
type byteArray []byte

func (b byteArray) MarshalJSON() ([]byte, error) {
	ints := make([]int, len(b))
	for i, v := range b {
		ints[i] = int(v)
	}
	return json.Marshal(ints)
}

// WriteFile records a file write observed through scp or the SFTP
// subsystem.
type WriteFile struct {
	Path    string
	Content []byte
}

func (a WriteFile) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Type    string    `json:"type"`
		Path    string    `json:"path"`
		Content byteArray `json:"content"`
	}{"write-file", a.Path, a.Content})
}
