// Copyright 2024 The bit Authors. All rights reserved.
// Use of this source code is governed by the MIT License
// that can be found in the LICENSE file.

package sycoca

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// BuilderInvoker rebuilds the database on behalf of a reader.  Rebuild
// blocks until the new file is in place or the context expires.
type BuilderInvoker interface {
	Rebuild(ctx context.Context) error
}

// InvokerFunc adapts a function to BuilderInvoker.
type InvokerFunc func(ctx context.Context) error

func (f InvokerFunc) Rebuild(ctx context.Context) error {
	return f(ctx)
}

// ExecInvoker runs an external builder command.
type ExecInvoker struct {
	Command string
	Args    []string
}

// DefaultInvoker runs "sycoca build".
func DefaultInvoker() *ExecInvoker {
	return &ExecInvoker{Command: "sycoca", Args: []string{"build"}}
}

func (e *ExecInvoker) Rebuild(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, e.Command, e.Args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w (output: %q)", e.Command, strings.Join(e.Args, " "), err, strings.TrimSpace(string(out)))
	}
	return nil
}
