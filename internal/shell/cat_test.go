package shell

import "testing"

func TestCatSingleFile(t *testing.T) {
	state := newTestState("root")
	if err := state.FS.Write("hello.txt", []byte("hello\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	sess := &fakeSession{}

	result := cmdCat(state, bb("hello.txt"), sess)

	if result.Kind != ResultExit || result.Code != 0 {
		t.Fatalf("unexpected result: %#v", result)
	}
	if sess.buf.String() != "hello\n" {
		t.Fatalf("unexpected output: %q", sess.buf.String())
	}
}

func TestCatMissingFile(t *testing.T) {
	state := newTestState("root")
	sess := &fakeSession{}

	result := cmdCat(state, bb("nope.txt"), sess)

	if result.Kind != ResultExit || result.Code != 1 {
		t.Fatalf("unexpected result: %#v", result)
	}
	if sess.buf.String() != "cat: nope.txt: No such file or directory" {
		t.Fatalf("unexpected output: %q", sess.buf.String())
	}
}

// TestCatMixed exercises a file followed by a "-" stdin step: cat prints the
// file's content immediately, then pauses for one chunk of stdin before
// exiting.
func TestCatMixed(t *testing.T) {
	state := newTestState("root")
	if err := state.FS.Write("a.txt", []byte("first\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	sess := &fakeSession{}

	result := cmdCat(state, bb("a.txt", "-"), sess)

	if result.Kind != ResultReadStdin {
		t.Fatalf("expected ResultReadStdin, got %#v", result)
	}
	if sess.buf.String() != "first\n" {
		t.Fatalf("unexpected output before stdin: %q", sess.buf.String())
	}

	final := result.Command.Stdin(state, sess, []byte("typed input\n"))

	if final.Kind != ResultExit || final.Code != 0 {
		t.Fatalf("unexpected final result: %#v", final)
	}
	if sess.buf.String() != "first\ntyped input\n" {
		t.Fatalf("unexpected final output: %q", sess.buf.String())
	}
}

func TestCatNoArgsReadsStdinOnce(t *testing.T) {
	state := newTestState("root")
	sess := &fakeSession{}

	result := cmdCat(state, nil, sess)
	if result.Kind != ResultReadStdin {
		t.Fatalf("expected ResultReadStdin, got %#v", result)
	}

	final := result.Command.Stdin(state, sess, []byte("echoed back\n"))
	if final.Kind != ResultExit || final.Code != 0 {
		t.Fatalf("unexpected final result: %#v", final)
	}
	if sess.buf.String() != "echoed back\n" {
		t.Fatalf("unexpected output: %q", sess.buf.String())
	}
}
