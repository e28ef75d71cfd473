// Package mcptest runs fake MCP tool servers as real subprocesses for tests.
//
// The test binary re-executes itself: a package's TestMain calls Main, which
// serves and exits when the binary was started as a tool server and returns
// otherwise.
//
//	func TestMain(m *testing.M) {
//		mcptest.Main()
//		os.Exit(m.Run())
//	}
package mcptest

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	modeEnv    = "STACKUP_MCPTEST_MODE"
	pidFileEnv = "STACKUP_MCPTEST_PIDFILE"
)

// Mode selects how the fake server behaves.
type Mode string

const (
	// Cooperative answers every call except hang and exits when stdin closes.
	Cooperative Mode = "cooperative"

	// Stubborn answers like Cooperative but ignores SIGTERM and never exits
	// on its own once stdin closes.
	Stubborn Mode = "stubborn"

	// Silent ignores SIGTERM and never answers the handshake.
	Silent Mode = "silent"
)

// Tools served by Cooperative and Stubborn servers.
const (
	ToolEcho = "echo" // returns its "text" argument
	ToolFail = "fail" // returns a tool error
	ToolHang = "hang" // never answers
)

// Main serves as a tool server when the process was launched by a Server
// and exits. Otherwise it returns immediately.
func Main() {
	mode := os.Getenv(modeEnv)
	if mode == "" {
		return
	}
	os.Exit(serve(Mode(mode)))
}

// Server is a fake tool server launch: the test binary plus the
// environment selecting its mode.
type Server struct {
	Command string
	Args    []string
	Env     map[string]string

	pidFile string
}

// New prepares a launch of the current test binary in mode.
func New(t testing.TB, mode Mode) *Server {
	t.Helper()
	exe, err := os.Executable()
	if err != nil {
		t.Fatalf("locating test binary: %v", err)
	}
	pidFile := filepath.Join(t.TempDir(), "server.pid")
	return &Server{
		Command: exe,
		Args:    []string{"-test.run=^$"},
		Env: map[string]string{
			modeEnv:    string(mode),
			pidFileEnv: pidFile,
		},
		pidFile: pidFile,
	}
}

// Environ returns the current environment plus the server's variables, in
// KEY=VALUE form.
func (s *Server) Environ() []string {
	env := os.Environ()
	for k, v := range s.Env {
		env = append(env, k+"="+v)
	}
	return env
}

// PID returns the process id the server recorded at startup, waiting up to
// a few seconds for it to appear.
func (s *Server) PID(t testing.TB) int {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		data, err := os.ReadFile(s.pidFile)
		if err == nil {
			if pid, perr := strconv.Atoi(strings.TrimSpace(string(data))); perr == nil {
				return pid
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("tool server never recorded its pid: %v", err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// Exited reports whether the server process has exited and been reaped.
func (s *Server) Exited(t testing.TB) bool {
	t.Helper()
	return !processAlive(s.PID(t))
}

type textInput struct {
	Text string `json:"text"`
}

type emptyInput struct{}

func serve(mode Mode) int {
	if f := os.Getenv(pidFileEnv); f != "" {
		_ = os.WriteFile(f, []byte(strconv.Itoa(os.Getpid())), 0o600)
	}

	if mode != Cooperative {
		signal.Ignore(syscall.SIGTERM)
	}

	if mode == Silent {
		time.Sleep(time.Hour)
		return 0
	}

	server := mcp.NewServer(&mcp.Implementation{Name: "mcptest", Version: "0.0.1"}, nil)
	mcp.AddTool(server, &mcp.Tool{Name: ToolEcho, Description: "Echo the text argument"},
		func(_ context.Context, _ *mcp.CallToolRequest, in textInput) (*mcp.CallToolResult, any, error) {
			return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: in.Text}}}, nil, nil
		})
	mcp.AddTool(server, &mcp.Tool{Name: ToolFail, Description: "Always fails"},
		func(context.Context, *mcp.CallToolRequest, emptyInput) (*mcp.CallToolResult, any, error) {
			return nil, nil, errors.New("quota exceeded")
		})
	mcp.AddTool(server, &mcp.Tool{Name: ToolHang, Description: "Never answers"},
		func(context.Context, *mcp.CallToolRequest, emptyInput) (*mcp.CallToolResult, any, error) {
			time.Sleep(time.Hour)
			return nil, nil, nil
		})

	// Run ends with an error when stdin closes; that is the normal shutdown.
	_ = server.Run(context.Background(), &mcp.StdioTransport{})
	if mode == Stubborn {
		time.Sleep(time.Hour)
	}
	return 0
}
