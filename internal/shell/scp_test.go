package shell

import (
	"testing"

	"github.com/pisshoff/pisshoff/internal/audit"
)

// TestScpReceivesFile mirrors the canonical "scp -t hello" transcript: the
// target operand is "hello", the client sends a file-copy record for
// "hello.txt" with its content, and the upload is recorded against the
// joined path "hello/hello.txt".
func TestScpReceivesFile(t *testing.T) {
	state := newTestState("root")
	sess := &fakeSession{}

	result := cmdScp(state, bb("-t", "hello"), sess)
	if result.Kind != ResultReadStdin {
		t.Fatalf("expected ResultReadStdin, got %#v", result)
	}
	if sess.buf.String() != scpAck {
		t.Fatalf("expected an ack byte, got %q", sess.buf.String())
	}

	cmd := result.Command
	next := cmd.Stdin(state, sess, []byte("C0777 11 hello.txt\nhello world\x00"))

	if next.Kind != ResultReadStdin {
		t.Fatalf("expected scp to keep reading, got %#v", next)
	}

	if len(state.Audit.Events) != 1 {
		t.Fatalf("expected exactly one audit event, got %d", len(state.Audit.Events))
	}
	wf, ok := state.Audit.Events[0].Action.(audit.WriteFile)
	if !ok {
		t.Fatalf("expected a WriteFile event, got %#v", state.Audit.Events[0].Action)
	}
	if wf.Path != "hello/hello.txt" || string(wf.Content) != "hello world" {
		t.Fatalf("unexpected write: %#v", wf)
	}
}

func TestScpWithoutTransferFlagPrintsHelp(t *testing.T) {
	state := newTestState("root")
	sess := &fakeSession{}

	result := cmdScp(state, bb("hello"), sess)

	if result.Kind != ResultExit || result.Code != 1 {
		t.Fatalf("unexpected result: %#v", result)
	}
	if sess.buf.String() != scpHelp {
		t.Fatalf("unexpected output: %q", sess.buf.String())
	}
}

func TestScpWithoutOperandIsAmbiguous(t *testing.T) {
	state := newTestState("root")
	sess := &fakeSession{}

	result := cmdScp(state, bb("-t"), sess)

	if result.Kind != ResultExit || result.Code != 1 {
		t.Fatalf("unexpected result: %#v", result)
	}
	if sess.buf.String() != scpAmbiguousTarget {
		t.Fatalf("unexpected output: %q", sess.buf.String())
	}
}

func TestScpMalformedRecordEndsWithExitOne(t *testing.T) {
	state := newTestState("root")
	sess := &fakeSession{}

	result := cmdScp(state, bb("-t", "hello"), sess)
	cmd := result.Command

	next := cmd.Stdin(state, sess, []byte("not a valid record\n"))

	if next.Kind != ResultExit || next.Code != 1 {
		t.Fatalf("unexpected result: %#v", next)
	}
}

func TestParseScpFileCopyRecord(t *testing.T) {
	rec, n, ok := parseScpRecord([]byte("C0644 5 test.txt\nrest"))
	if !ok {
		t.Fatal("expected the record to parse")
	}
	if rec.kind != scpRecFileCopy || rec.length != 5 || rec.name != "test.txt" {
		t.Fatalf("unexpected record: %#v", rec)
	}
	if n != len("C0644 5 test.txt\n") {
		t.Fatalf("unexpected consumed length: %d", n)
	}
}

func TestParseScpEndDirectoryRecord(t *testing.T) {
	rec, n, ok := parseScpRecord([]byte("E\nrest"))
	if !ok || rec.kind != scpRecEndDirectory || n != 2 {
		t.Fatalf("unexpected parse: rec=%#v n=%d ok=%v", rec, n, ok)
	}
}

func TestParseScpTimestampRecord(t *testing.T) {
	rec, n, ok := parseScpRecord([]byte("T1000 0 1000 0\nrest"))
	if !ok || rec.kind != scpRecAccessTime {
		t.Fatalf("unexpected parse: rec=%#v n=%d ok=%v", rec, n, ok)
	}
	if n != len("T1000 0 1000 0\n") {
		t.Fatalf("unexpected consumed length: %d", n)
	}
}

func TestParseScpRecordShortfallFails(t *testing.T) {
	if _, _, ok := parseScpRecord([]byte("C0644 5 test")); ok {
		t.Fatal("expected a truncated record to fail to parse")
	}
}
