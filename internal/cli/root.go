// Package cli implements the syncgen command line.
package cli

import (
	"fmt"
	"log/slog"
	"slices"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command. When level is non-nil,
// --verbose lowers it to debug.
func NewRootCommand(level *slog.LevelVar) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "syncgen",
		Short: "Audio/video sync calibration clip generator",
		Long: `Generate test clips whose video flashes a QR-coded marker while the
audio plays a matching phase-modulated tone burst, so an analyzer can
measure the offset between the two streams.

A pattern is given as "q=FRAMES,f=HZ[,c=CYCLES]".`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			if opts.Verbose && level != nil {
				level.Set(slog.LevelDebug)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "debug logging")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewGenerateCommand(opts))
	cmd.AddCommand(NewPlanCommand(opts))
	cmd.AddCommand(NewVerifyCommand(opts))

	return cmd
}
