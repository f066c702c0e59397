package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/harrison/rxharness/internal/baseline"
)

// NewBaselineCommand creates the 'rxharness baseline' command group
func NewBaselineCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Manage the accepted regression baseline",
	}
	cmd.AddCommand(newBaselinePromoteCommand())
	cmd.AddCommand(newBaselineListCommand())
	return cmd
}

func newBaselinePromoteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "promote",
		Short: "Replace the baseline with the current raw output",
		Long: `Replace <baseline-dir> wholesale with a copy of <raw-output-dir>.
The swap happens under an exclusive file lock; a failed copy leaves the
previous baseline in place.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer sess.Close()
			return promoteBaseline(sess)
		},
	}
}

func promoteBaseline(sess *session) error {
	raw, dst := sess.cfg.RawOutputDir, sess.cfg.BaselineDir
	sess.log.Infof("Copying '%s' to '%s'...", raw, dst)
	if err := baseline.Promote(raw, dst); err != nil {
		return err
	}
	files, err := baseline.Files(dst)
	if err != nil {
		return err
	}
	sess.log.Infof("Baseline updated successfully (%d file(s)).", len(files))
	return nil
}

func newBaselineListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the files in the current baseline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !baseline.Exists(cfg.BaselineDir) {
				fmt.Fprintf(out, "No baseline at %s\n", cfg.BaselineDir)
				return nil
			}
			files, err := baseline.Files(cfg.BaselineDir)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintln(out, f)
			}
			return nil
		},
	}
}
