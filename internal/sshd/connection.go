package sshd

import (
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"sync"

	"golang.org/x/crypto/ssh"

	"github.com/google/uuid"

	"github.com/pisshoff/pisshoff/internal/audit"
	"github.com/pisshoff/pisshoff/internal/fakefs"
	"github.com/pisshoff/pisshoff/internal/logger"
	"github.com/pisshoff/pisshoff/internal/shell"
)

// connection holds everything that outlives a single SSH authentication
// attempt and is shared by every channel opened over the connection. A
// client can open more than one session channel over the same connection
// (each serviced by its own goroutine), so the mutable fields below are
// guarded by mu.
type connection struct {
	server *Server
	id     uuid.UUID
	peer   net.Addr
	audit  *audit.Log
	log    *slog.Logger

	chanWG sync.WaitGroup

	mu       sync.Mutex
	username string
	fs       *fakefs.FileSystem
	env      map[string]string
}

func newConnection(s *Server, peer net.Addr) *connection {
	id := uuid.New()
	return &connection{
		server: s,
		id:     id,
		peer:   peer,
		audit:  audit.New(s.hostname, peer),
		log:    logger.Connection(id.String(), peer.String()),
		env:    map[string]string{},
	}
}

// setEnv records an environment variable from an "env" channel request.
func (c *connection) setEnv(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.env[name] = value
}

// setUsername records the username an auth attempt named, so later
// channels on the same connection (and their fake filesystem) see it.
func (c *connection) setUsername(username string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.username = username
}

// effectiveUsername falls back to "root" when no password attempt has
// named a username yet, matching a client that authenticates with
// something other than password auth but still opens a shell.
func (c *connection) effectiveUsername() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.effectiveUsernameLocked()
}

func (c *connection) effectiveUsernameLocked() string {
	if c.username == "" {
		return "root"
	}
	return c.username
}

// state adapts the connection to the narrow interface shell builtins
// operate against. The fake filesystem is created lazily, seeded for
// whichever username ended up authenticating. The environment is handed
// over as a snapshot copy so a concurrent "env" request on another
// channel never races with a command already reading it.
func (c *connection) state() *shell.ConnectionState {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.fs == nil {
		c.fs = fakefs.New(c.effectiveUsernameLocked())
	}

	env := make(map[string]string, len(c.env))
	for k, v := range c.env {
		env[k] = v
	}

	return &shell.ConnectionState{
		Username: c.effectiveUsernameLocked(),
		FS:       c.fs,
		Audit:    c.audit,
		Env:      env,
	}
}

// run drives the connection from a completed handshake to close: it
// services global requests and channel opens until the transport shuts
// down, then hands the finished audit log to the writer.
func (c *connection) run(sc *ssh.ServerConn, chans <-chan ssh.NewChannel, reqs <-chan *ssh.Request) {
	defer func() {
		c.chanWG.Wait()
		c.log.Info("connection closed")
		c.server.audit.Submit(c.audit)
	}()

	go c.serveGlobalRequests(reqs)

	for newChannel := range chans {
		switch newChannel.ChannelType() {
		case "session":
			c.chanWG.Add(1)
			go func() {
				defer c.chanWG.Done()
				c.serveSessionChannel(newChannel)
			}()
		case "x11":
			addr, port := parseX11OriginatorData(newChannel.ExtraData())
			c.audit.PushAction(audit.OpenX11{OriginatorAddress: addr, OriginatorPort: port})
			newChannel.Reject(ssh.Prohibited, "x11 forwarding disabled")
		case "direct-tcpip":
			host, hostPort, origAddr, origPort := parseDirectTCPIP(newChannel.ExtraData())
			c.audit.PushAction(audit.OpenDirectTCPIP{
				HostToConnect:     host,
				PortToConnect:     hostPort,
				OriginatorAddress: origAddr,
				OriginatorPort:    origPort,
			})
			newChannel.Reject(ssh.Prohibited, "direct-tcpip forwarding disabled")
		default:
			newChannel.Reject(ssh.UnknownChannelType, "unsupported channel type")
		}
	}
}

func (c *connection) serveGlobalRequests(reqs <-chan *ssh.Request) {
	for req := range reqs {
		switch req.Type {
		case "tcpip-forward":
			addr, port, ok := unmarshalTCPIPForward(req.Payload)
			if ok {
				c.audit.PushAction(audit.TCPIPForward{Address: addr, Port: port})
			}
			if req.WantReply {
				req.Reply(false, nil)
			}
		case "cancel-tcpip-forward":
			addr, port, ok := unmarshalTCPIPForward(req.Payload)
			if ok {
				c.audit.PushAction(audit.CancelTCPIPForward{Address: addr, Port: port})
			}
			if req.WantReply {
				req.Reply(false, nil)
			}
		default:
			if req.WantReply {
				req.Reply(false, nil)
			}
		}
	}
}

// tryLogin is the single authentication decision point shared by password
// and keyboard-interactive auth: a credential seen before is always
// accepted, a brand new one is accepted with the configured probability
// and remembered for next time, otherwise rejected. Either way the
// attempt is recorded.
func (c *connection) tryLogin(username, password string) bool {
	c.setUsername(username)

	var accepted bool
	switch {
	case c.server.passwords.Seen(username, password):
		c.log.Info("accepted login due to previously-seen credential", "username", username)
		accepted = true
	case rand.Float64() <= c.server.cfg.AccessProbability:
		c.log.Info("accepted login randomly", "username", username)
		c.server.passwords.Store(username, password)
		accepted = true
	default:
		c.log.Info("rejected login", "username", username)
		accepted = false
	}

	c.audit.PushAction(audit.LoginAttemptUsernamePassword{Username: username, Password: password})
	return accepted
}

func (s *Server) passwordCallback(meta ssh.ConnMetadata, password []byte) (*ssh.Permissions, error) {
	conn := s.connectionFor(meta)
	if conn.tryLogin(meta.User(), string(password)) {
		return nil, nil
	}
	return nil, fmt.Errorf("permission denied")
}

func (s *Server) keyboardInteractiveCallback(meta ssh.ConnMetadata, challenge ssh.KeyboardInteractiveChallenge) (*ssh.Permissions, error) {
	answers, err := challenge("", "", []string{"Password: "}, []bool{false})
	if err != nil || len(answers) == 0 {
		return nil, fmt.Errorf("permission denied")
	}

	conn := s.connectionFor(meta)
	if conn.tryLogin(meta.User(), answers[0]) {
		return nil, nil
	}
	return nil, fmt.Errorf("permission denied")
}

func (s *Server) publicKeyCallback(meta ssh.ConnMetadata, key ssh.PublicKey) (*ssh.Permissions, error) {
	conn := s.connectionFor(meta)
	conn.audit.PushAction(audit.LoginAttemptPublicKey{
		Kind:        key.Type(),
		Fingerprint: ssh.FingerprintSHA256(key),
	})
	return nil, fmt.Errorf("public key authentication is not accepted")
}
