package shell

import "testing"

func TestUnameNoArgsDefaultsToKernelName(t *testing.T) {
	state := newTestState("root")
	sess := &fakeSession{}

	result := cmdUname(state, nil, sess)

	if result.Kind != ResultExit || result.Code != 0 {
		t.Fatalf("unexpected result: %#v", result)
	}
	if sess.buf.String() != "Linux\n" {
		t.Fatalf("unexpected output: %q", sess.buf.String())
	}
}

func TestUnameAll(t *testing.T) {
	state := newTestState("root")
	sess := &fakeSession{}

	cmdUname(state, bb("-a"), sess)

	want := "Linux cd5079c0d642 5.15.49 #1 SMP PREEMPT Tue Sep 13 07:51:32 UTC 2022 x86_64 GNU/Linux\n"
	if sess.buf.String() != want {
		t.Fatalf("unexpected output: %q, want %q", sess.buf.String(), want)
	}
}

func TestUnameSelectedFields(t *testing.T) {
	state := newTestState("root")
	sess := &fakeSession{}

	cmdUname(state, bb("-sr"), sess)

	if sess.buf.String() != "Linux 5.15.49\n" {
		t.Fatalf("unexpected output: %q", sess.buf.String())
	}
}

func TestUnameHelp(t *testing.T) {
	state := newTestState("root")
	sess := &fakeSession{}

	result := cmdUname(state, bb("--help"), sess)

	if result.Kind != ResultExit || result.Code != 0 {
		t.Fatalf("unexpected result: %#v", result)
	}
	if sess.buf.String() != unameHelp {
		t.Fatalf("unexpected output: %q", sess.buf.String())
	}
}

func TestUnameInvalidOption(t *testing.T) {
	state := newTestState("root")
	sess := &fakeSession{}

	result := cmdUname(state, bb("-z"), sess)

	if result.Kind != ResultExit || result.Code != 1 {
		t.Fatalf("unexpected result: %#v", result)
	}
}
