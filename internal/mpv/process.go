package mpv

import (
	"context"
	"os/exec"
)

// process is a running mpv instance.
type process interface {
	Kill() error
	Done() <-chan struct{}
}

// launcher starts mpv with the given arguments.
type launcher func(ctx context.Context, binary string, args []string) (process, error)

type execProcess struct {
	cmd    *exec.Cmd
	exited chan struct{}
}

func (p *execProcess) Kill() error {
	return killProcess(p.cmd)
}

func (p *execProcess) Done() <-chan struct{} {
	return p.exited
}

func execLauncher(_ context.Context, binary string, args []string) (process, error) {
	cmd := exec.Command(binary, args...)
	cmd.SysProcAttr = sysProcAttr()
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	p := &execProcess{cmd: cmd, exited: make(chan struct{})}
	// Reap the child so it does not linger as a zombie.
	go func() {
		_ = cmd.Wait()
		close(p.exited)
	}()
	return p, nil
}
