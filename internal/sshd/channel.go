package sshd

import (
	"io"
	"log/slog"

	"golang.org/x/crypto/ssh"

	"github.com/pisshoff/pisshoff/internal/audit"
	"github.com/pisshoff/pisshoff/internal/sftp"
	"github.com/pisshoff/pisshoff/internal/shell"
)

// ptyRequestMsg mirrors RFC 4254 ``pty-req``.
type ptyRequestMsg struct {
	Term     string
	Columns  uint32
	Rows     uint32
	Width    uint32
	Height   uint32
	Modelist string
}

type envRequestMsg struct {
	Name  string
	Value string
}

type execMsg struct {
	Command string
}

type subsystemMsg struct {
	Name string
}

type windowChangeMsg struct {
	Columns uint32
	Rows    uint32
	Width   uint32
	Height  uint32
}

type signalMsg struct {
	Name string
}

type x11RequestMsg struct {
	SingleConnection bool
	AuthProtocol     string
	AuthCookie       string
	ScreenNumber     uint32
}

type directTCPIPMsg struct {
	Host       string
	Port       uint32
	OriginHost string
	OriginPort uint32
}

type x11OpenMsg struct {
	OriginatorAddress string
	OriginatorPort    uint32
}

type tcpipForwardMsg struct {
	Address string
	Port    uint32
}

func parseDirectTCPIP(extra []byte) (host string, port uint32, origHost string, origPort uint32) {
	var msg directTCPIPMsg
	if ssh.Unmarshal(extra, &msg) != nil {
		return "", 0, "", 0
	}
	return msg.Host, msg.Port, msg.OriginHost, msg.OriginPort
}

func parseX11OriginatorData(extra []byte) (addr string, port uint32) {
	var msg x11OpenMsg
	if ssh.Unmarshal(extra, &msg) != nil {
		return "", 0
	}
	return msg.OriginatorAddress, msg.OriginatorPort
}

func unmarshalTCPIPForward(payload []byte) (addr string, port uint32, ok bool) {
	var msg tcpipForwardMsg
	if ssh.Unmarshal(payload, &msg) != nil {
		return "", 0, false
	}
	return msg.Address, msg.Port, true
}

// parsePtyModes decodes the POSIX terminal mode (opcode, value) pairs
// packed into a pty-req's modelist string, stopping at the TTY_OP_END
// opcode (0) or whatever is left once the string runs out.
func parsePtyModes(modelist string) []audit.PtyMode {
	data := []byte(modelist)
	var modes []audit.PtyMode
	for len(data) >= 5 {
		opcode := data[0]
		if opcode == 0 {
			break
		}
		value := uint32(data[1])<<24 | uint32(data[2])<<16 | uint32(data[3])<<8 | uint32(data[4])
		modes = append(modes, audit.PtyMode{Opcode: opcode, Value: value})
		data = data[5:]
	}
	return modes
}

// channelHandler is whatever subsystem ends up bound to a session
// channel: the shell, or sftp.
type channelHandler interface {
	handleData(data []byte)
}

type shellHandler struct {
	sh    *shell.Shell
	state *shell.ConnectionState
	sess  shell.Session
}

func (h *shellHandler) handleData(data []byte) {
	h.sh.Data(h.state, h.sess, data)
}

type sftpHandler struct {
	sub   *sftp.Subsystem
	state *sftp.ConnectionState
	sess  sftp.Session
}

func (h *sftpHandler) handleData(data []byte) {
	h.sub.Data(h.state, h.sess, data)
}

// channelSession adapts an ssh.Channel to shell.Session.
type channelSession struct {
	ch  ssh.Channel
	log *slog.Logger
}

func (c *channelSession) Write(p []byte) {
	if _, err := c.ch.Write(p); err != nil {
		c.log.Debug("channel write failed", "error", err)
	}
}

func (c *channelSession) ExitStatus(code uint32) {
	payload := ssh.Marshal(struct{ Code uint32 }{code})
	c.ch.SendRequest("exit-status", false, payload)
}

func (c *channelSession) Close() {
	c.ch.Close()
}

func (c *channelSession) Redirected() bool { return false }

// serveSessionChannel accepts a "session" channel and services its
// requests until the client hangs up. At most one of shell or sftp ever
// ends up bound to the channel, matching the original's one-subsystem-
// per-channel model.
func (c *connection) serveSessionChannel(newChannel ssh.NewChannel) {
	ch, requests, err := newChannel.Accept()
	if err != nil {
		c.log.Debug("failed to accept session channel", "error", err)
		return
	}
	defer ch.Close()

	sess := &channelSession{ch: ch, log: c.log}

	var handler channelHandler
	reading := false
	dataDone := make(chan struct{})
	startReading := func() {
		reading = true
		go func() {
			defer close(dataDone)
			buf := make([]byte, 32*1024)
			for {
				n, err := ch.Read(buf)
				if n > 0 && handler != nil {
					handler.handleData(append([]byte(nil), buf[:n]...))
				}
				if err != nil {
					if err == io.EOF {
						// Matches the original's channel_eof: a bound
						// subsystem gets a clean exit status, otherwise
						// there's nothing to report success on, so just
						// hang up.
						if handler != nil {
							sess.ExitStatus(0)
						}
						sess.Close()
					} else {
						c.log.Debug("channel read error", "error", err)
					}
					return
				}
			}
		}()
	}

	for req := range requests {
		if handler != nil && (req.Type == "shell" || req.Type == "exec" || req.Type == "subsystem") {
			replyFailure(req)
			continue
		}
		switch req.Type {
		case "pty-req":
			var msg ptyRequestMsg
			if ssh.Unmarshal(req.Payload, &msg) == nil {
				c.audit.PushAction(audit.PtyRequest{
					Term:      msg.Term,
					ColWidth:  msg.Columns,
					RowHeight: msg.Rows,
					PixWidth:  msg.Width,
					PixHeight: msg.Height,
					Modes:     parsePtyModes(msg.Modelist),
				})
			}
			// Refused, same as the original: a pty is more machinery
			// than this honeypot can plausibly back.
			replyFailure(req)

		case "x11-req":
			var msg x11RequestMsg
			if ssh.Unmarshal(req.Payload, &msg) == nil {
				c.audit.PushAction(audit.X11Request{
					SingleConnection: msg.SingleConnection,
					AuthProtocol:     msg.AuthProtocol,
					AuthCookie:       msg.AuthCookie,
					ScreenNumber:     msg.ScreenNumber,
				})
			}
			replyFailure(req)

		case "env":
			var msg envRequestMsg
			if ssh.Unmarshal(req.Payload, &msg) == nil {
				c.setEnv(msg.Name, msg.Value)
				c.audit.PushEnvVar(audit.EnvVar{Name: msg.Name, Value: msg.Value})
			}
			replySuccess(req)

		case "shell":
			c.audit.PushAction(audit.ShellRequested{})
			state := c.state()
			sh := shell.NewShell(true, sess)
			handler = &shellHandler{sh: sh, state: state, sess: sess}
			startReading()
			replySuccess(req)

		case "exec":
			var msg execMsg
			ssh.Unmarshal(req.Payload, &msg)
			state := c.state()
			sh := shell.NewShell(false, sess)
			h := &shellHandler{sh: sh, state: state, sess: sess}
			handler = h
			// Reply before running the line: exec mode closes the channel
			// once the command exits, and a reply after that is never sent.
			replySuccess(req)
			h.handleData([]byte(msg.Command))
			startReading()

		case "subsystem":
			var msg subsystemMsg
			ssh.Unmarshal(req.Payload, &msg)
			c.audit.PushAction(audit.SubsystemRequest{Name: msg.Name})

			if msg.Name == sftp.Name {
				handler = &sftpHandler{
					sub:   sftp.New(),
					state: &sftp.ConnectionState{Audit: c.audit},
					sess:  sess,
				}
				startReading()
				replySuccess(req)
			} else {
				replyFailure(req)
			}

		case "window-change":
			var msg windowChangeMsg
			if ssh.Unmarshal(req.Payload, &msg) == nil {
				c.audit.PushAction(audit.WindowChangeRequest{
					ColWidth:  msg.Columns,
					RowHeight: msg.Rows,
					PixWidth:  msg.Width,
					PixHeight: msg.Height,
				})
			}
			replySuccess(req)

		case "signal":
			var msg signalMsg
			if ssh.Unmarshal(req.Payload, &msg) == nil {
				c.audit.PushAction(audit.Signal{Name: msg.Name})
			}

		default:
			replyFailure(req)
		}
	}

	if reading {
		<-dataDone
	}
}

func replySuccess(req *ssh.Request) {
	if req.WantReply {
		req.Reply(true, nil)
	}
}

func replyFailure(req *ssh.Request) {
	if req.WantReply {
		req.Reply(false, nil)
	}
}
