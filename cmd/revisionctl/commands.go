package main

import (
	"github.com/spf13/cobra"

	"essaysmaster_backend/internals/configs"
)

type cliFlags struct {
	submission string
	student    string
	round      int
	offset     int
	limit      int
	textFile   string
	origFile   string
	prompt     string
	name       string
	seedDir    string
}

// newRootCmd builds a fresh command tree so tests can run commands in isolation.
func newRootCmd() *cobra.Command {
	f := &cliFlags{}

	root := &cobra.Command{
		Use:           "revisionctl",
		Short:         "Operate essay revision sessions from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			configs.LoadEnv()
		},
	}

	stateCmd := &cobra.Command{
		Use:   "state",
		Short: "Print the session state for a submission and student",
		RunE:  func(cmd *cobra.Command, args []string) error { return runState(cmd, f) },
	}
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Rewind a session so a round can be redone",
		RunE:  func(cmd *cobra.Command, args []string) error { return runReset(cmd, f) },
	}
	versionsCmd := &cobra.Command{
		Use:   "versions",
		Short: "List version snapshots of a session",
		RunE:  func(cmd *cobra.Command, args []string) error { return runVersions(cmd, f) },
	}
	progressCmd := &cobra.Command{
		Use:   "progress",
		Short: "List per-round progress evaluations",
		RunE:  func(cmd *cobra.Command, args []string) error { return runProgress(cmd, f) },
	}
	roundCmd := &cobra.Command{
		Use:   "round",
		Short: "Print the stored artifact of one round",
		RunE:  func(cmd *cobra.Command, args []string) error { return runRound(cmd, f) },
	}
	processCmd := &cobra.Command{
		Use:   "process",
		Short: "Run one revision round against the configured AI provider",
		RunE:  func(cmd *cobra.Command, args []string) error { return runProcess(cmd, f) },
	}
	seedCmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo sessions from the seeds directory",
		RunE:  func(cmd *cobra.Command, args []string) error { return runSeed(cmd, f) },
	}
	purgeCmd := &cobra.Command{
		Use:   "purge-locks",
		Short: "Delete expired round lock rows (postgres lock driver only)",
		RunE:  func(cmd *cobra.Command, args []string) error { return runPurgeLocks(cmd) },
	}

	for _, c := range []*cobra.Command{stateCmd, resetCmd, versionsCmd, progressCmd, roundCmd, processCmd} {
		c.Flags().StringVar(&f.submission, "submission", "", "submission id (uuid)")
		c.Flags().StringVar(&f.student, "student", "", "student id (uuid)")
		_ = c.MarkFlagRequired("submission")
		_ = c.MarkFlagRequired("student")
	}
	for _, c := range []*cobra.Command{resetCmd, roundCmd, processCmd} {
		c.Flags().IntVar(&f.round, "round", 0, "round number (1-6)")
		_ = c.MarkFlagRequired("round")
	}
	versionsCmd.Flags().IntVar(&f.offset, "offset", 0, "rows to skip")
	versionsCmd.Flags().IntVar(&f.limit, "limit", 20, "rows to return")

	processCmd.Flags().StringVar(&f.textFile, "text-file", "", "file with the current essay text")
	processCmd.Flags().StringVar(&f.origFile, "original-file", "", "file with the original essay text (defaults to --text-file)")
	processCmd.Flags().StringVar(&f.prompt, "prompt", "", "essay question")
	processCmd.Flags().StringVar(&f.name, "name", "", "student first name")
	_ = processCmd.MarkFlagRequired("text-file")

	seedCmd.Flags().StringVar(&f.seedDir, "dir", "internals/seeds", "seeds directory")

	root.AddCommand(stateCmd, resetCmd, versionsCmd, progressCmd, roundCmd, processCmd, seedCmd, purgeCmd)
	return root
}
