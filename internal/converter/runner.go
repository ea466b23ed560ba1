package converter

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// Runner executes an external tool to completion.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) error
}

// ExecRunner runs tools with os/exec and keeps their combined output for the
// error message.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	output, err := cmd.CombinedOutput()
	if err == nil {
		return nil
	}
	// a killed process reports an ExitError too; prefer the context cause
	if ctxErr := ctx.Err(); ctxErr != nil {
		return fmt.Errorf("%s: %w", name, ctxErr)
	}
	return &ToolError{Tool: name, Output: strings.TrimSpace(string(output)), Err: err}
}

// ToolError is a tool that could not start or exited non-zero.
type ToolError struct {
	Tool   string
	Output string
	Err    error
}

func (e *ToolError) Error() string {
	if e.Output == "" {
		return fmt.Sprintf("%s: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("%s: %v\nOutput: %s", e.Tool, e.Err, e.Output)
}

func (e *ToolError) Unwrap() error { return e.Err }

// Rejected reports whether the tool started and exited non-zero, i.e. it
// refused the input rather than being unavailable.
func (e *ToolError) Rejected() bool {
	var exitErr *exec.ExitError
	return errors.As(e.Err, &exitErr)
}
