// Package sshd is the top-level SSH listener: it accepts connections,
// performs the handshake, and hands each one to a Connection for the
// rest of its lifetime.
package sshd

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"sync"

	"golang.org/x/crypto/ssh"

	"github.com/pisshoff/pisshoff/internal/audit"
	"github.com/pisshoff/pisshoff/internal/logger"
	"github.com/pisshoff/pisshoff/internal/state"
)

// Config is the subset of the daemon's configuration the listener needs.
type Config struct {
	ListenAddress     string
	ServerID          string
	AccessProbability float64
}

// Server accepts SSH connections on a single listener and dispatches
// each to its own Connection.
type Server struct {
	cfg       Config
	sshConfig *ssh.ServerConfig
	passwords *state.StoredPasswords
	audit     *audit.Writer
	hostname  string

	mu       sync.Mutex
	listener net.Listener
	wg       sync.WaitGroup

	pendingMu sync.Mutex
	pending   map[string]*connection
}

// New builds a Server bound to hostKey, recording accepted credentials in
// passwords and completed connection logs to auditWriter.
func New(cfg Config, hostKey ssh.Signer, passwords *state.StoredPasswords, auditWriter *audit.Writer, hostname string) *Server {
	s := &Server{
		cfg:       cfg,
		passwords: passwords,
		audit:     auditWriter,
		hostname:  hostname,
		pending:   map[string]*connection{},
	}

	sshConfig := &ssh.ServerConfig{
		PasswordCallback:            s.passwordCallback,
		PublicKeyCallback:           s.publicKeyCallback,
		KeyboardInteractiveCallback: s.keyboardInteractiveCallback,
		ServerVersion:               cfg.ServerID,
	}
	sshConfig.AddHostKey(hostKey)
	s.sshConfig = sshConfig

	return s
}

// GenerateHostKey returns a fresh Ed25519 host key, matching the teacher's
// own preference for Ed25519 over RSA wherever a new keypair is minted.
func GenerateHostKey() (ssh.Signer, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("generate host key: %w", err)
	}
	signer, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		return nil, fmt.Errorf("wrap host key: %w", err)
	}
	return signer, nil
}

// ListenAndServe binds the configured address and serves connections
// until ctx is cancelled, at which point the listener is closed and any
// in-flight connections are allowed to finish.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.ListenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.cfg.ListenAddress, err)
	}

	s.mu.Lock()
	s.listener = ln
	s.mu.Unlock()

	logger.Info("sshd listening", "address", ln.Addr().String())

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				s.wg.Wait()
				return nil
			}
			logger.Warn("accept error", "error", err)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleConn(conn)
		}()
	}
}

func (s *Server) handleConn(netConn net.Conn) {
	peer := netConn.RemoteAddr()
	key := peer.String()

	conn := newConnection(s, peer)
	s.pendingMu.Lock()
	s.pending[key] = conn
	s.pendingMu.Unlock()
	defer func() {
		s.pendingMu.Lock()
		delete(s.pending, key)
		s.pendingMu.Unlock()
	}()

	sc, chans, globalReqs, err := ssh.NewServerConn(netConn, s.sshConfig)
	if err != nil {
		conn.log.Debug("handshake failed", "error", err)
		s.audit.Submit(conn.audit)
		return
	}
	defer sc.Close()

	conn.run(sc, chans, globalReqs)
}

// connectionFor resolves the per-connection state an auth callback should
// operate against. Every callback for a given TCP connection is invoked
// with a ConnMetadata sharing that connection's RemoteAddr, which is
// unique for the lifetime of the handshake.
func (s *Server) connectionFor(meta ssh.ConnMetadata) *connection {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	return s.pending[meta.RemoteAddr().String()]
}
