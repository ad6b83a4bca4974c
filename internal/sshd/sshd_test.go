package sshd

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/ssh"

	"github.com/pisshoff/pisshoff/internal/audit"
	"github.com/pisshoff/pisshoff/internal/state"
)

func newTestServer(t *testing.T, accessProbability float64, auditPath string) *Server {
	t.Helper()
	hostKey, err := GenerateHostKey()
	if err != nil {
		t.Fatalf("generate host key: %v", err)
	}

	w := audit.NewWriter(auditPath)
	go w.Run()
	t.Cleanup(w.Shutdown)

	return New(Config{
		ListenAddress:     "unused",
		ServerID:          "SSH-2.0-pisshoff-test",
		AccessProbability: accessProbability,
	}, hostKey, state.NewStoredPasswords(), w, "test-host")
}

// dial runs the server side of a handshake over an in-memory pipe and
// returns a connected client. done is closed once the server side of the
// connection has fully wound down (and submitted its audit log).
func dial(t *testing.T, srv *Server, user, password string) (*ssh.Client, <-chan struct{}, error) {
	t.Helper()
	serverConn, clientConn := net.Pipe()

	done := make(chan struct{})
	go func() {
		srv.handleConn(serverConn)
		close(done)
	}()

	clientCfg := &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.Password(password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
	}

	cc, chans, reqs, err := ssh.NewClientConn(clientConn, "pipe", clientCfg)
	if err != nil {
		return nil, done, err
	}
	return ssh.NewClient(cc, chans, reqs), done, nil
}

func TestPasswordAuthAcceptedWithProbabilityOne(t *testing.T) {
	srv := newTestServer(t, 1.0, filepath.Join(t.TempDir(), "audit.log"))

	client, done, err := dial(t, srv, "root", "hunter2")
	if err != nil {
		t.Fatalf("expected auth to succeed, got: %v", err)
	}
	client.Close()
	<-done
}

func TestPasswordAuthRejectedWithProbabilityZero(t *testing.T) {
	srv := newTestServer(t, 0.0, filepath.Join(t.TempDir(), "audit.log"))

	_, done, err := dial(t, srv, "root", "neverseen")
	if err == nil {
		t.Fatal("expected auth to be rejected")
	}
	<-done
}

func TestPreviouslyAcceptedCredentialAlwaysAccepted(t *testing.T) {
	passwords := state.NewStoredPasswords()
	passwords.Store("root", "knownpw")

	hostKey, err := GenerateHostKey()
	if err != nil {
		t.Fatalf("generate host key: %v", err)
	}
	w := audit.NewWriter(filepath.Join(t.TempDir(), "audit.log"))
	go w.Run()
	t.Cleanup(w.Shutdown)

	srv := New(Config{ListenAddress: "unused", ServerID: "SSH-2.0-pisshoff-test", AccessProbability: 0.0}, hostKey, passwords, w, "test-host")

	client, done, err := dial(t, srv, "root", "knownpw")
	if err != nil {
		t.Fatalf("expected the previously-accepted credential to be accepted, got: %v", err)
	}
	client.Close()
	<-done
}

func TestExecUnameProducesAuditedCommand(t *testing.T) {
	auditPath := filepath.Join(t.TempDir(), "audit.log")
	srv := newTestServer(t, 1.0, auditPath)

	client, done, err := dial(t, srv, "root", "hunter2")
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	session, err := client.NewSession()
	if err != nil {
		t.Fatalf("new session: %v", err)
	}

	out, err := session.Output("uname -a")
	if err != nil {
		t.Fatalf("exec failed: %v", err)
	}
	want := "Linux cd5079c0d642 5.15.49 #1 SMP PREEMPT Tue Sep 13 07:51:32 UTC 2022 x86_64 GNU/Linux\n"
	if string(out) != want {
		t.Fatalf("unexpected output: %q", out)
	}

	client.Close()
	<-done

	events := readAuditEvents(t, auditPath)
	foundLogin := false
	foundExec := false
	for _, kind := range events {
		switch kind {
		case "login-attempt":
			foundLogin = true
		case "exec-command":
			foundExec = true
		}
	}
	if !foundLogin || !foundExec {
		t.Fatalf("expected both a login-attempt and an exec-command event, got %v", events)
	}
}

// readAuditEvents reads the (single) connection log written to path and
// returns the "type" field of every event in its timeline. The writer
// buffers appends and flushes them on its 5s tick, so this polls until the
// line reaches disk.
func readAuditEvents(t *testing.T, path string) []string {
	t.Helper()
	var data []byte
	for deadline := time.Now().Add(10 * time.Second); ; time.Sleep(100 * time.Millisecond) {
		var err error
		data, err = os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			t.Fatalf("read audit log: %v", err)
		}
		if strings.TrimSpace(string(data)) != "" || time.Now().After(deadline) {
			break
		}
	}

	var entry struct {
		Events []struct {
			Action json.RawMessage `json:"action"`
		} `json:"events"`
	}
	line := strings.TrimSpace(string(data))
	if line == "" {
		t.Fatal("expected at least one audit log line")
	}
	if err := json.Unmarshal([]byte(strings.SplitN(line, "\n", 2)[0]), &entry); err != nil {
		t.Fatalf("unmarshal audit log: %v", err)
	}

	var kinds []string
	for _, e := range entry.Events {
		var typed struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(e.Action, &typed); err != nil {
			t.Fatalf("unmarshal event action: %v", err)
		}
		kinds = append(kinds, typed.Type)
	}
	return kinds
}

func TestParsePtyModesStopsAtEndOpcode(t *testing.T) {
	modelist := string([]byte{1, 0, 0, 0, 10, 2, 0, 0, 0, 20, 0})
	modes := parsePtyModes(modelist)
	if len(modes) != 2 {
		t.Fatalf("expected 2 modes, got %d: %#v", len(modes), modes)
	}
	if modes[0].Opcode != 1 || modes[0].Value != 10 {
		t.Fatalf("unexpected first mode: %#v", modes[0])
	}
	if modes[1].Opcode != 2 || modes[1].Value != 20 {
		t.Fatalf("unexpected second mode: %#v", modes[1])
	}
}

func TestParseDirectTCPIP(t *testing.T) {
	payload := ssh.Marshal(directTCPIPMsg{
		Host:       "10.0.0.5",
		Port:       443,
		OriginHost: "1.2.3.4",
		OriginPort: 52345,
	})

	host, port, origHost, origPort := parseDirectTCPIP(payload)
	if host != "10.0.0.5" || port != 443 || origHost != "1.2.3.4" || origPort != 52345 {
		t.Fatalf("unexpected parse: %s %d %s %d", host, port, origHost, origPort)
	}
}

func TestUnmarshalTCPIPForward(t *testing.T) {
	payload := ssh.Marshal(tcpipForwardMsg{Address: "0.0.0.0", Port: 8080})
	addr, port, ok := unmarshalTCPIPForward(payload)
	if !ok || addr != "0.0.0.0" || port != 8080 {
		t.Fatalf("unexpected parse: %s %d ok=%v", addr, port, ok)
	}
}

func TestUnmarshalTCPIPForwardMalformedIsNotOK(t *testing.T) {
	if _, _, ok := unmarshalTCPIPForward([]byte{1, 2, 3}); ok {
		t.Fatal("expected malformed payload to fail")
	}
}

