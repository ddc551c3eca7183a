package main

import (
	"bytes"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/aledsdavies/pyfog/pkgs/config"
	pyerrors "github.com/aledsdavies/pyfog/pkgs/errors"
	"github.com/aledsdavies/pyfog/pkgs/obfuscator"
	"github.com/aledsdavies/pyfog/pkgs/symmap"
	"github.com/aledsdavies/pyfog/pkgs/watch"
)

const stdStream = "-"

type runner struct {
	flags  flags
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	logger *slog.Logger
}

func (r *runner) run(cmd *cobra.Command, input, output string) error {
	opts, err := r.resolveOptions(cmd, input)
	if err != nil {
		return err
	}

	if !r.flags.watch {
		return r.obfuscate(opts, input, output)
	}

	if input == stdStream {
		return &CLIError{
			Message: "--watch needs an input file",
			Hint:    "stdin cannot be watched; pass a path instead of -",
		}
	}
	r.logger.Info("watching for changes", "input", input)
	return watch.Run(cmd.Context(), input, func() error {
		return r.obfuscate(opts, input, output)
	}, watch.Options{Logger: r.logger})
}

// resolveOptions layers defaults, the config file and explicit flags, in
// that order.
func (r *runner) resolveOptions(cmd *cobra.Command, input string) (config.Options, error) {
	opts := config.Default()

	path := r.flags.configPath
	if path == "" && input != stdStream {
		if found, ok := config.FindFile(filepath.Dir(input)); ok {
			path = found
		}
	}
	if path != "" {
		loaded, err := config.LoadFile(path, opts)
		if err != nil {
			return opts, err
		}
		opts = loaded
		r.logger.Debug("loaded config", "path", path)
	}

	changed := cmd.Flags().Changed
	if changed("hex-strings") {
		opts.UseHexStrings = r.flags.hexStrings
	}
	if changed("obfuscate-builtins") {
		opts.ObfuscateBuiltins = r.flags.obfuscateBuiltins
	}
	if changed("keep-comments") {
		opts.RemoveComments = !r.flags.keepComments
	}
	if changed("no-header") {
		opts.ForceNoHeader = r.flags.noHeader
	}
	return opts, nil
}

func (r *runner) obfuscate(opts config.Options, input, output string) error {
	src, err := r.readInput(input)
	if err != nil {
		return err
	}

	ctx := obfuscator.New(opts, obfuscator.WithLogger(r.logger))
	result := ctx.ObfuscateSource(string(src))

	if err := r.writeOutput(output, result); err != nil {
		return err
	}

	m := symmap.Build(ctx, result)
	if r.flags.debug {
		if err := symmap.WriteDebug(r.stderr, m); err != nil {
			return pyerrors.NewOutputError("cannot write debug dump", err)
		}
	}
	if r.flags.mapPath != "" {
		data, err := symmap.Encode(m)
		if err != nil {
			return pyerrors.Wrap(pyerrors.ErrMapWrite, "cannot encode symbol map", err)
		}
		if err := os.WriteFile(r.flags.mapPath, data, 0o644); err != nil {
			return pyerrors.Wrap(pyerrors.ErrMapWrite, "cannot write symbol map", err).
				WithContext("path", r.flags.mapPath)
		}
	}

	r.logger.Debug("obfuscated",
		"input", input,
		"renamed", ctx.Renames().Len(),
		"hoisted", ctx.Pool().Len(),
		"bytes", len(result))
	return nil
}

func (r *runner) readInput(input string) ([]byte, error) {
	if input == stdStream {
		data, err := io.ReadAll(r.stdin)
		if err != nil {
			return nil, pyerrors.NewInputError("cannot read stdin", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(input)
	if err != nil {
		return nil, pyerrors.NewInputError(fmt.Sprintf("cannot read %s", input), err).
			WithContext("path", input)
	}
	return data, nil
}

func (r *runner) writeOutput(output, result string) error {
	if output == stdStream {
		if _, err := io.Copy(r.stdout, bytes.NewBufferString(result)); err != nil {
			return pyerrors.NewOutputError("cannot write stdout", err)
		}
		return nil
	}
	if err := os.WriteFile(output, []byte(result), 0o644); err != nil {
		return pyerrors.NewOutputError(fmt.Sprintf("cannot write %s", output), err).
			WithContext("path", output)
	}
	r.logger.Info("written", "output", output)
	return nil
}
