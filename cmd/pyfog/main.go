package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

// flags holds everything the root command accepts
type flags struct {
	configPath        string
	debug             bool
	noColor           bool
	hexStrings        bool
	obfuscateBuiltins bool
	keepComments      bool
	noHeader          bool
	mapPath           string
	watch             bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var f flags
	rootCmd := newRootCmd(&f, os.Stdin, os.Stdout, os.Stderr)
	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		FormatError(os.Stderr, err, ShouldUseColor(f.noColor, os.Stderr))
	}
	stop()
	os.Exit(exitCode(err))
}

func newRootCmd(f *flags, stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pyfog [flags] <input> <output>",
		Short: "Obfuscate Python source",
		Long: "pyfog rewrites a Python file so that it behaves the same but is unreadable:\n" +
			"numbers and strings become arithmetic on comparisons, names become underscores.\n" +
			"Use - as input or output for stdin or stdout.",
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			r := &runner{
				flags:  *f,
				stdin:  stdin,
				stdout: stdout,
				stderr: stderr,
				logger: newLogger(stderr, f.debug),
			}
			return r.run(cmd, args[0], args[1])
		},
	}

	rootCmd.PersistentFlags().BoolVar(&f.debug, "debug", false, "Enable debug output and dump the rename table and header")
	rootCmd.PersistentFlags().BoolVar(&f.noColor, "no-color", false, "Disable colored output")
	rootCmd.Flags().StringVarP(&f.configPath, "config", "c", "", "Path to a pyfog.toml or .json config file")
	rootCmd.Flags().BoolVar(&f.hexStrings, "hex-strings", false, "Encode strings as hex escapes instead of character arrays")
	rootCmd.Flags().BoolVar(&f.obfuscateBuiltins, "obfuscate-builtins", false, "Reach built-in functions through getattr(__import__(...))")
	rootCmd.Flags().BoolVar(&f.keepComments, "keep-comments", false, "Keep comments instead of removing them")
	rootCmd.Flags().BoolVar(&f.noHeader, "no-header", false, "Inline every constant instead of hoisting them into a header")
	rootCmd.Flags().StringVar(&f.mapPath, "map", "", "Write a symbol map to this file")
	rootCmd.Flags().BoolVarP(&f.watch, "watch", "w", false, "Re-obfuscate whenever the input changes")

	rootCmd.AddCommand(newMapCmd(stdout))
	return rootCmd
}

// newLogger creates the debug logger. Level is debug when --debug is set or
// PYFOG_DEBUG is non-empty.
func newLogger(w io.Writer, debug bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if debug || os.Getenv("PYFOG_DEBUG") != "" {
		logLevel = slog.LevelDebug
	}

	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: logLevel,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			// Remove timestamp for cleaner output
			if a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			// Simplify level display
			if a.Key == slog.LevelKey {
				return slog.Attr{}
			}
			return a
		},
	}))
}
