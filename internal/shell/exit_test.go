package shell

import "testing"

func TestExitDefaultsToZero(t *testing.T) {
	state := newTestState("root")
	sess := &fakeSession{}

	result := cmdExit(state, nil, sess)

	if result.Kind != ResultClose || result.Code != 0 {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestExitParsesGivenCode(t *testing.T) {
	state := newTestState("root")
	sess := &fakeSession{}

	result := cmdExit(state, bb("7"), sess)

	if result.Kind != ResultClose || result.Code != 7 {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestExitUnparsableCodeIsTwo(t *testing.T) {
	state := newTestState("root")
	sess := &fakeSession{}

	result := cmdExit(state, bb("banana"), sess)

	if result.Kind != ResultClose || result.Code != 2 {
		t.Fatalf("unexpected result: %#v", result)
	}
}
