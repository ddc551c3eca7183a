package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	pyerrors "github.com/aledsdavies/pyfog/pkgs/errors"
	"github.com/aledsdavies/pyfog/pkgs/symmap"
)

func newMapCmd(stdout io.Writer) *cobra.Command {
	mapCmd := &cobra.Command{
		Use:   "map",
		Short: "Inspect symbol maps written with --map",
	}

	showCmd := &cobra.Command{
		Use:   "show <file>",
		Short: "Print the rename table and header entries of a symbol map",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return showMap(stdout, args[0])
		},
	}

	mapCmd.AddCommand(showCmd)
	return mapCmd
}

func showMap(w io.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return pyerrors.Wrap(pyerrors.ErrMapRead, fmt.Sprintf("cannot open %s", path), err).
			WithContext("path", path)
	}
	defer func() { _ = f.Close() }()

	m, err := symmap.Read(f)
	if err != nil {
		return pyerrors.Wrap(pyerrors.ErrMapRead, "not a pyfog symbol map", err).
			WithContext("path", path)
	}

	_, _ = fmt.Fprintf(w, "fingerprint\t%s\n\n", m.Fingerprint)
	if err := symmap.WriteDebug(w, m); err != nil {
		return pyerrors.NewOutputError("cannot write stdout", err)
	}
	return nil
}
