package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
)

// Context holds application-wide configuration and state
type Context struct {
	context.Context

	// Container selection
	ContainerPath string

	// Output preferences
	OutputFormat string
	Verbose      bool
	Quiet        bool

	Out    io.Writer
	ErrOut io.Writer
}

// NewContext creates a new application context writing to stdout and stderr
func NewContext() *Context {
	return &Context{
		Context:      context.Background(),
		OutputFormat: "table",
		Out:          os.Stdout,
		ErrOut:       os.Stderr,
	}
}

// LogLevel returns the log level implied by the verbosity flags, or fallback
// when neither is set
func (c *Context) LogLevel(fallback string) string {
	switch {
	case c.Quiet:
		return "error"
	case c.Verbose:
		return "debug"
	default:
		return fallback
	}
}

// Printf writes a status line unless quiet
func (c *Context) Printf(format string, args ...any) {
	if !c.Quiet {
		fmt.Fprintf(c.Out, format, args...)
	}
}

// Log outputs a message based on verbosity settings
func (c *Context) Log(message string) {
	if !c.Quiet && c.Verbose {
		fmt.Fprintln(c.ErrOut, message)
	}
}

// Error reports err with its guidance. Errors are printed even when quiet.
func (c *Context) Error(err error) {
	fmt.Fprintln(c.ErrOut, "Error:", err)

	var appErr *CommonError
	if errors.As(err, &appErr) && appErr.Hint != "" {
		fmt.Fprintln(c.ErrOut, "Hint:", appErr.Hint)
	}
}
