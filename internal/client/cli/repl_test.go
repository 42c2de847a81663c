package cli

import (
	"bufio"
	"context"
	"strings"
	"testing"
)

type fakeExec struct {
	loggedIn bool
	calls    []string
}

func (f *fakeExec) isLoggedIn() bool { return f.loggedIn }
func (f *fakeExec) Register(ctx context.Context) error {
	f.calls = append(f.calls, "register")
	return nil
}
func (f *fakeExec) Login(ctx context.Context) error {
	f.calls = append(f.calls, "login")
	f.loggedIn = true
	return nil
}
func (f *fakeExec) WhoAmI(ctx context.Context) error {
	f.calls = append(f.calls, "whoami")
	if !f.loggedIn {
		return errNotLoggedIn
	}
	return nil
}
func (f *fakeExec) Refresh(ctx context.Context) error {
	f.calls = append(f.calls, "refresh")
	return nil
}
func (f *fakeExec) Logout(ctx context.Context) error {
	f.calls = append(f.calls, "logout")
	f.loggedIn = false
	return nil
}

func (f *fakeExec) UploadMIDI(ctx context.Context, recordingID, path string) error {
	f.calls = append(f.calls, "upload "+recordingID+" "+path)
	return nil
}

func captureOutput(t *testing.T) *[]string {
	t.Helper()
	var lines []string
	orig := printlnFn
	printlnFn = func(a ...any) (int, error) {
		parts := make([]string, 0, len(a))
		for _, v := range a {
			if s, ok := v.(string); ok {
				parts = append(parts, s)
			}
		}
		lines = append(lines, strings.Join(parts, " "))
		return 0, nil
	}
	t.Cleanup(func() { printlnFn = orig })
	return &lines
}

func TestRunREPL_LoginFlowAndCommands(t *testing.T) {
	out := captureOutput(t)

	input := strings.NewReader(strings.Join([]string{
		"",
		"whoami",
		"register",
		"login",
		"me",
		"refresh",
		"upload r1",
		"upload r1 take.mid",
		"logout",
		"bogus",
		"exit",
		"whoami",
	}, "\n"))

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewScanner(input))

	want := []string{"whoami", "register", "login", "whoami", "refresh", "upload r1 take.mid", "logout"}
	if strings.Join(exec.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls: want %v, got %v", want, exec.calls)
	}

	joined := strings.Join(*out, "\n")
	for _, s := range []string{"Please log in first", "Usage: upload <recording-id> <file.mid>", "Unknown command: bogus", "Bye!"} {
		if !strings.Contains(joined, s) {
			t.Fatalf("output missing %q:\n%s", s, joined)
		}
	}
}

func TestRunREPL_HelpDependsOnLogin(t *testing.T) {
	out := captureOutput(t)

	exec := &fakeExec{}
	runREPL(context.Background(), exec, func() string { return "" }, bufio.NewScanner(strings.NewReader("help\nlogin\nhelp\n")))

	joined := strings.Join(*out, "\n")
	if !strings.Contains(joined, "Available commands: register, login, exit") {
		t.Fatalf("anonymous help missing:\n%s", joined)
	}
	if !strings.Contains(joined, "Available commands: whoami, refresh, upload, logout, exit") {
		t.Fatalf("logged-in help missing:\n%s", joined)
	}
}
