package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/yuya-takeyama/vmsync/internal/walker"
	"github.com/yuya-takeyama/vmsync/pkg/executor"
	"github.com/yuya-takeyama/vmsync/pkg/planner"
)

var (
	syncPathOnly  bool
	syncPrintOnly bool
	syncList      bool
	syncS3        bool
	syncGit       bool
	syncPipe      string
	syncFrom      bool
	syncHost      string
)

func newSyncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync [flags] [-- args...]",
		Short: "Sync the current directory with its remote counterpart",
		Long: `Sync the current directory with the remote path named by the nearest
.vm-prefix (rsync over ssh) or .s3-prefix (aws s3 sync) marker. Arguments
after -- are passed to rsync, ssh or aws s3 unchanged.`,
		Args: cobra.ArbitraryArgs,
		RunE: runSync,
	}

	f := cmd.Flags()
	f.BoolVarP(&syncPathOnly, "path", "p", false, "Only print the corresponding remote path and exit")
	f.BoolVar(&syncPrintOnly, "print", false, "Only print the command and exit")
	f.BoolVar(&syncList, "list", false, "List files in the corresponding remote path instead of syncing")
	f.BoolVarP(&syncS3, "s3", "3", false, "Sync with S3 via .s3-prefix (default: the VM via .vm-prefix)")
	f.BoolVarP(&syncGit, "git", "g", false, "Sync only files tracked by git")
	f.StringVar(&syncPipe, "pipe", "", "Sync only the files listed in this file (- for stdin)")
	f.BoolVarP(&syncFrom, "from", "f", false, "Sync from the remote (default: to the remote)")
	f.StringVar(&syncHost, "host", "", "Host for rsync and ssh (default: sync.host from config)")
	f.SetInterspersed(false)

	cmd.MarkFlagsMutuallyExclusive("path", "print")
	cmd.MarkFlagsMutuallyExclusive("list", "path")

	return cmd
}

func runSync(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cmd)
	log.IsDryRun = syncPrintOnly

	marker := cfg.Sync.VMMarker
	if syncS3 {
		marker = cfg.Sync.S3Marker
	}

	wd, err := getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}

	remote, err := walker.FindCorrespondingPath(fsys, wd, marker)
	if err != nil {
		return err
	}

	if syncPathOnly {
		fmt.Fprintln(cmd.OutOrStdout(), remote)
		return nil
	}

	host := cfg.Sync.Host
	hostSet := cmd.Flags().Changed("host")
	if hostSet {
		host = syncHost
	}

	req, err := planner.NewRequest(planner.Options{
		S3:         syncS3,
		From:       syncFrom,
		List:       syncList,
		Git:        syncGit,
		Pipe:       syncPipe,
		Host:       host,
		HostSet:    hostSet,
		RemotePath: remote,
		Args:       args,
	})
	if err != nil {
		return err
	}

	log.Debug(fmt.Sprintf("tokens: %q", planner.Tokens(req)))
	cmdline := planner.Synthesize(req)

	if syncPrintOnly {
		log.Command(cmdline)
		fmt.Fprintln(cmd.OutOrStdout(), cmdline)
		return nil
	}

	return executor.NewExecutor(log).
		WithIO(stdin, cmd.OutOrStdout(), cmd.ErrOrStderr()).
		Run(cmd.Context(), cmdline)
}
