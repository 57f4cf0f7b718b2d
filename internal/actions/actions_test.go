package actions

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openclaw/instant-agent/internal/task"
)

// recordingShell fails the test if it is ever invoked.
type recordingShell struct {
	t      *testing.T
	called bool
	result Result
}

func (r *recordingShell) Run(ctx context.Context, command string) Result {
	r.called = true
	return r.result
}

type fakeSearcher struct {
	text string
	err  error
}

func (f *fakeSearcher) Search(ctx context.Context, query string) (string, error) {
	return f.text, f.err
}

func TestDenyListBlocksWithoutSpawning(t *testing.T) {
	dangerous := []string{
		"rm -rf /",
		"sudo apt install curl",
		"chmod 777 /etc/passwd",
		"dd if=/dev/zero of=/dev/sda",
		"mkfs.ext4 /dev/sda1",
		"fdisk /dev/sda",
		"echo ok && SUDO reboot", // case-insensitive, embedded
	}

	for _, cmd := range dangerous {
		shell := &recordingShell{t: t}
		exec := New(WithShellRunner(shell))

		res := exec.Run(context.Background(), task.ActionShell, cmd)
		if res.OK {
			t.Errorf("command %q not blocked", cmd)
		}
		if res.Text != "Command blocked for safety reasons." {
			t.Errorf("blocked text = %q", res.Text)
		}
		if shell.called {
			t.Errorf("shell invoked for blocked command %q", cmd)
		}
	}
}

func TestExtraDeny(t *testing.T) {
	shell := &recordingShell{t: t, result: Result{Text: "ok", OK: true}}
	exec := New(WithShellRunner(shell), WithExtraDeny([]string{"shutdown"}))

	res := exec.Run(context.Background(), task.ActionShell, "shutdown -h now")
	if res.OK || shell.called {
		t.Error("extra deny pattern not enforced")
	}

	res = exec.Run(context.Background(), task.ActionShell, "uptime")
	if !res.OK || !shell.called {
		t.Error("benign command should reach the shell")
	}
}

func TestRunShellDelegates(t *testing.T) {
	shell := &recordingShell{t: t, result: Result{Text: "STDOUT:\nhi\nSTDERR:\n\nReturn code: 0", OK: true}}
	exec := New(WithShellRunner(shell))

	res := exec.Run(context.Background(), task.ActionShell, "echo hi")
	if !res.OK {
		t.Errorf("result not OK: %q", res.Text)
	}
	if !strings.Contains(res.Text, "Return code: 0") {
		t.Errorf("result text = %q", res.Text)
	}
}

func TestRunSearch(t *testing.T) {
	exec := New(WithSearcher(&fakeSearcher{text: "**Result**\ncontent\nURL: https://example.com"}))

	res := exec.Run(context.Background(), task.ActionSearch, "query")
	if !res.OK {
		t.Errorf("search result not OK: %q", res.Text)
	}
	if !strings.Contains(res.Text, "example.com") {
		t.Errorf("search text = %q", res.Text)
	}
}

func TestSearchErrorFlattened(t *testing.T) {
	exec := New(WithSearcher(&fakeSearcher{err: errors.New("rate limited")}))

	res := exec.Run(context.Background(), task.ActionSearch, "query")
	if res.OK {
		t.Error("failed search reported OK")
	}
	if !strings.HasPrefix(res.Text, "Search error:") {
		t.Errorf("search error text = %q", res.Text)
	}
}

func TestSearchWithoutCapability(t *testing.T) {
	exec := New()

	res := exec.Run(context.Background(), task.ActionSearch, "query")
	if res.OK {
		t.Error("search without capability reported OK")
	}
	if !strings.HasPrefix(res.Text, "Search error:") {
		t.Errorf("text = %q", res.Text)
	}
}

func TestUnsupportedKind(t *testing.T) {
	exec := New(WithShellRunner(&recordingShell{t: t}))

	res := exec.Run(context.Background(), task.ActionKind("teleport"), "x")
	if res.OK {
		t.Error("unsupported kind reported OK")
	}
	if res.Text != "Unsupported action type: teleport" {
		t.Errorf("text = %q", res.Text)
	}
}
