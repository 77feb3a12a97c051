package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/zsiec/syncgen/internal/pipeline"
)

// NewVerifyCommand creates the verify command.
func NewVerifyCommand(rootOpts *RootOptions) *cobra.Command {
	s := newSettings()
	cmd := &cobra.Command{
		Use:   "verify [flags] PCM [PATTERN...]",
		Short: "Demodulate every tone burst of a generated PCM stream",
		Long: `Read raw s16le mono audio as written by generate and decode the burst
of every cycle, checking its CRC and sequence index. The timebase,
patterns and burst layout flags must match the ones used to generate.

Extract the audio of a clip with:
  ffmpeg -i output.mp4 -f s16le -ac 1 -ar 48000 audio.pcm`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := &OutputFormatter{Format: rootOpts.Format, Writer: cmd.OutOrStdout()}
			cfg, err := s.resolve(cmd, args[1:])
			if err != nil {
				return classify("load settings", err)
			}
			if err := cfg.Validate(); err != nil {
				return classify("verify", err)
			}
			pcm, err := os.ReadFile(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "read audio", err)
			}
			rep, err := pipeline.Verify(cmd.Context(), cfg, pcm)
			if err != nil {
				return classify("verify", err)
			}
			if !rep.OK() {
				if err := out.Failure(rep, "verification failed"); err != nil {
					return err
				}
				return NewExitError(ExitFailure, "verification failed")
			}
			return out.Success(rep)
		},
	}
	s.addMarkerFlags(cmd)
	return cmd
}
