package shell

import (
	"testing"

	"github.com/pisshoff/pisshoff/internal/audit"
)

func TestShellCommandSubstitution(t *testing.T) {
	state := newTestState("root")
	sess := &fakeSession{}
	sh := NewShell(false, sess)
	sess.buf.Reset()

	sh.Data(state, sess, []byte("echo $(echo hello) world!\n"))

	if sess.buf.String() != "hello world!\n" {
		t.Fatalf("unexpected output: %q", sess.buf.String())
	}
	if !sess.closed || !sess.gotExit || sess.exitCode != 0 {
		t.Fatalf("expected the exec-mode channel to close with status 0: closed=%v gotExit=%v code=%d", sess.closed, sess.gotExit, sess.exitCode)
	}
}

func TestShellInteractiveReprintsPrompt(t *testing.T) {
	state := newTestState("root")
	sess := &fakeSession{}
	sh := NewShell(true, sess)

	if sess.buf.String() != ShellPrompt {
		t.Fatalf("expected the initial prompt, got %q", sess.buf.String())
	}
	sess.buf.Reset()

	sh.Data(state, sess, []byte("whoami\n"))

	if sess.buf.String() != "root\n"+ShellPrompt {
		t.Fatalf("unexpected output: %q", sess.buf.String())
	}
	if sess.closed {
		t.Fatal("an interactive shell should not close the channel after a command")
	}
}

func TestShellUnameExecMode(t *testing.T) {
	state := newTestState("root")
	sess := &fakeSession{}
	sh := NewShell(false, sess)

	sh.Data(state, sess, []byte("uname -a\n"))

	want := "Linux cd5079c0d642 5.15.49 #1 SMP PREEMPT Tue Sep 13 07:51:32 UTC 2022 x86_64 GNU/Linux\n"
	if sess.buf.String() != want {
		t.Fatalf("unexpected output: %q", sess.buf.String())
	}

	if len(state.Audit.Events) != 1 {
		t.Fatalf("expected exactly one audit event, got %d", len(state.Audit.Events))
	}
	exec, ok := state.Audit.Events[0].Action.(audit.ExecCommand)
	if !ok {
		t.Fatalf("expected an ExecCommand event, got %#v", state.Audit.Events[0].Action)
	}
	if len(exec.Args) != 1 || exec.Args[0] != "uname -a\n" {
		t.Fatalf("expected the raw line to be recorded verbatim, got %#v", exec.Args)
	}
}

func TestShellExitClosesRegardlessOfMode(t *testing.T) {
	state := newTestState("root")
	sess := &fakeSession{}
	sh := NewShell(true, sess)
	sess.buf.Reset()

	sh.Data(state, sess, []byte("exit 3\n"))

	if !sess.closed || !sess.gotExit || sess.exitCode != 3 {
		t.Fatalf("expected exit to close with status 3: closed=%v gotExit=%v code=%d", sess.closed, sess.gotExit, sess.exitCode)
	}
}

func TestShellScpUpload(t *testing.T) {
	state := newTestState("root")
	sess := &fakeSession{}
	sh := NewShell(false, sess)

	sh.Data(state, sess, []byte("scp -t hello\n"))
	sh.Data(state, sess, []byte("C0777 11 hello.txt\nhello world\x00"))

	if sess.closed {
		t.Fatal("scp keeps the channel open awaiting further records until the client hangs up")
	}

	// One ExecCommand for the "scp -t hello" line, one WriteFile once the
	// uploaded file's content has fully arrived.
	if len(state.Audit.Events) != 2 {
		t.Fatalf("expected exactly two audit events, got %d: %#v", len(state.Audit.Events), state.Audit.Events)
	}
	if _, ok := state.Audit.Events[0].Action.(audit.ExecCommand); !ok {
		t.Fatalf("expected the first event to be an ExecCommand, got %#v", state.Audit.Events[0].Action)
	}
	wf, ok := state.Audit.Events[1].Action.(audit.WriteFile)
	if !ok {
		t.Fatalf("expected a WriteFile event, got %#v", state.Audit.Events[1].Action)
	}
	if wf.Path != "hello/hello.txt" || string(wf.Content) != "hello world" {
		t.Fatalf("unexpected write: %#v", wf)
	}
}

func TestShellSyntaxErrorReturnsToPrompt(t *testing.T) {
	state := newTestState("root")
	sess := &fakeSession{}
	sh := NewShell(true, sess)
	sess.buf.Reset()

	sh.Data(state, sess, []byte(`echo "unterminated`+"\n"))

	if sess.buf.String() != "bash: syntax error\n"+ShellPrompt {
		t.Fatalf("unexpected output: %q", sess.buf.String())
	}
}
