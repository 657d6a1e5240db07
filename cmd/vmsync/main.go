package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/yuya-takeyama/vmsync/internal/config"
	"github.com/yuya-takeyama/vmsync/pkg/logger"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
	builtBy = "unknown"
)

var (
	configPath string
	verbose    bool
	quiet      bool
)

// Replaced in tests
var (
	getwd           = os.Getwd
	fsys  afero.Fs  = afero.NewOsFs()
	stdin io.Reader = os.Stdin
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "vmsync",
		Short: "Mirror a working directory to its remote counterpart on a VM or in S3",
		Long: `vmsync finds the remote location that corresponds to the current directory
through a marker file (.vm-prefix or .s3-prefix) in the directory or one of its
ancestors, and builds the rsync, ssh or aws s3 command that syncs the two.`,
		Version:      versionString(),
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ~/.config/vmsync/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug output to stderr")
	rootCmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "Suppress non-error output")
	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	rootCmd.AddCommand(newSyncCmd(), newVMCmd(), newMFACmd(), newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), versionString())
		},
	}
}

func versionString() string {
	return fmt.Sprintf("%s (commit: %s, built at: %s by %s)", version, commit, date, builtBy)
}

func loadConfig() (*config.Config, error) {
	path := configPath
	if path == "" {
		var err error
		path, err = config.DefaultPath()
		if err != nil {
			return nil, err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

func newLogger(cmd *cobra.Command) *logger.SyncLogger {
	return &logger.SyncLogger{
		IsQuiet:   quiet,
		IsVerbose: verbose,
		Out:       cmd.ErrOrStderr(),
	}
}
