package browser

import (
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"
)

func TestArgsIncludeDebuggingAndStartURL(t *testing.T) {
	l := NewLauncher(Config{
		CDPAddress: "127.0.0.1",
		CDPPort:    9222,
		ProfileDir: "/tmp/profile",
		StartURL:   "https://www.youtube.com/",
	})
	args := l.args()
	joined := strings.Join(args, " ")
	for _, want := range []string{
		"--remote-debugging-port=9222",
		"--remote-debugging-address=127.0.0.1",
		"--user-data-dir=/tmp/profile",
		"--window-size=1280,800",
	} {
		if !strings.Contains(joined, want) {
			t.Fatalf("args missing %q: %v", want, args)
		}
	}
	if args[len(args)-1] != "https://www.youtube.com/" {
		t.Fatalf("last arg = %q, want start URL", args[len(args)-1])
	}
}

func TestLaunchSkipsWhenPortInUse(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer func() { _ = ln.Close() }()
	port := ln.Addr().(*net.TCPAddr).Port

	if !isPortInUse("127.0.0.1", port) {
		t.Fatalf("isPortInUse(%d) = false, want true", port)
	}

	l := NewLauncher(Config{CDPAddress: "127.0.0.1", CDPPort: port, BrowserPath: "/nonexistent/chromium"})
	if err := l.Launch(context.Background()); err != nil {
		t.Fatalf("Launch() error = %v", err)
	}
	if l.Running() {
		t.Fatal("Running() = true, want false when browser already up")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	l.Wait(ctx)
	l.Stop()
}

func TestLaunchFailsForMissingBinary(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()

	l := NewLauncher(Config{
		CDPAddress:  "127.0.0.1",
		CDPPort:     port,
		ProfileDir:  t.TempDir(),
		BrowserPath: "/nonexistent/chromium-" + strconv.Itoa(port),
	})
	if err := l.Launch(context.Background()); err == nil {
		t.Fatal("Launch() error = nil, want start failure")
	}
}
