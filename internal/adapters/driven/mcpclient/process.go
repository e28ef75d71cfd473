package mcpclient

import (
	"os/exec"
	"sync"
)

// process tracks a launched tool server so it can be killed from any
// goroutine, including one that fires before Start has returned. A nil
// *process is valid and does nothing.
type process struct {
	cmd *exec.Cmd

	mu      sync.Mutex
	started bool
	killed  bool
}

func newProcess(cmd *exec.Cmd) *process {
	configureProcess(cmd)
	return &process{cmd: cmd}
}

// markStarted records a successful Start. A kill requested earlier is
// carried out now.
func (p *process) markStarted() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.started = true
	if p.killed {
		_ = killProcess(p.cmd)
	}
}

// kill stops the server and everything it spawned. Safe to call repeatedly.
func (p *process) kill() {
	if p == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.killed {
		return
	}
	p.killed = true
	if p.started {
		_ = killProcess(p.cmd)
	}
}

// wasKilled reports whether kill was requested.
func (p *process) wasKilled() bool {
	if p == nil {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.killed
}
