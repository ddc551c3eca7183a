package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"strings"

	pyerrors "github.com/aledsdavies/pyfog/pkgs/errors"
)

// Exit codes
const (
	ExitOK     = 0
	ExitUsage  = 1
	ExitIO     = 2
	ExitConfig = 3
)

// CLIError represents a formatted CLI error with context
type CLIError struct {
	Message string
	Details string // Additional context
	Hint    string // How to fix it
}

// Error implements the error interface
func (e *CLIError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Details != "" {
		b.WriteString("\n")
		b.WriteString(e.Details)
	}
	if e.Hint != "" {
		b.WriteString("\n")
		b.WriteString(e.Hint)
	}
	return b.String()
}

// FormatError formats an error for CLI output with colors
func FormatError(w io.Writer, err error, useColor bool) {
	if err == nil {
		return
	}

	var cliErr *CLIError
	var pyErr *pyerrors.PyfogError
	switch {
	case stderrors.As(err, &cliErr):
		formatCLIError(w, cliErr, useColor)
	case stderrors.As(err, &pyErr):
		formatPyfogError(w, pyErr, useColor)
	default:
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Error())
	}
}

// formatPyfogError prints the message, the cause and any path context
func formatPyfogError(w io.Writer, err *pyerrors.PyfogError, useColor bool) {
	_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Message)

	if path, ok := err.GetContext("path"); ok {
		_, _ = fmt.Fprintf(w, "%s\n", Colorize(fmt.Sprintf("  File: %v", path), ColorGray, useColor))
	}
	if err.Cause != nil {
		_, _ = fmt.Fprintf(w, "%s\n", Colorize("  Cause: "+err.Cause.Error(), ColorGray, useColor))
	}
}

// formatCLIError formats CLI errors
func formatCLIError(w io.Writer, err *CLIError, useColor bool) {
	_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Error: ", ColorRed, useColor), err.Message)

	if err.Details != "" {
		_, _ = fmt.Fprintf(w, "\n%s\n", err.Details)
	}

	if err.Hint != "" {
		_, _ = fmt.Fprintf(w, "%s%s\n", Colorize("Hint: ", ColorYellow, useColor), err.Hint)
	}
}

// exitCode maps an error returned by the root command to a process status
func exitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case pyerrors.IsConfigError(err):
		return ExitConfig
	case pyerrors.IsErrorType(err, pyerrors.ErrInputRead),
		pyerrors.IsErrorType(err, pyerrors.ErrOutputWrite),
		pyerrors.IsErrorType(err, pyerrors.ErrMapRead),
		pyerrors.IsErrorType(err, pyerrors.ErrMapWrite),
		pyerrors.IsErrorType(err, pyerrors.ErrWatch):
		return ExitIO
	default:
		return ExitUsage
	}
}
