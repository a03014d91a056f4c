package phreeqc

import (
	"context"
	"io"
	"os/exec"
)

// Runner starts the engine process and waits for it.
type Runner interface {
	Run(ctx context.Context, dir, name string, args ...string) error
}

// ExecRunner runs the engine with os/exec. Output is discarded unless
// Stdout/Stderr are set.
type ExecRunner struct {
	Stdout io.Writer
	Stderr io.Writer
}

func (r ExecRunner) Run(ctx context.Context, dir, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	cmd.Stdout = r.Stdout
	cmd.Stderr = r.Stderr
	return cmd.Run()
}

// RunnerFunc adapts a function to the Runner interface.
type RunnerFunc func(ctx context.Context, dir, name string, args ...string) error

func (f RunnerFunc) Run(ctx context.Context, dir, name string, args ...string) error {
	return f(ctx, dir, name, args...)
}
