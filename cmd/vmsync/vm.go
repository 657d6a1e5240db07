package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/yuya-takeyama/vmsync/internal/credentials"
	"github.com/yuya-takeyama/vmsync/internal/sshconfig"
	"github.com/yuya-takeyama/vmsync/pkg/chooser"
	"github.com/yuya-takeyama/vmsync/pkg/ec2client"
	"github.com/yuya-takeyama/vmsync/pkg/logger"
)

const (
	vmStart    = "start"
	vmStop     = "stop"
	vmSetupSSH = "setup-ssh"
	vmPrint    = "print"
	vmDescribe = "describe"
)

var errNoRegion = errors.New("no default region set and none specified.  Use `--region` to explicitly pass a region")

var (
	vmID     string
	vmRegion string
	vmName   string
)

var newInstances = func(cfg aws.Config) ec2client.Instances {
	return ec2client.NewAWSClient(cfg)
}

type picker interface {
	Choose(ctx context.Context, labels []string) (int, error)
}

func newVMCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vm [start|stop|setup-ssh|print|describe]",
		Short: "Operate on an EC2 instance, picking it interactively unless --id is given",
		Long: `Operate on an EC2 instance using the mfa profile. Without --id the instance
is picked from a list with fzf. The instance id is printed last.

  start      start the instance
  stop       stop the instance
  setup-ssh  point ssh config hosts starting with vm.host_prefix at its public ip
  describe   print the instance as JSON
  print      only print the id (default)`,
		ValidArgs: []string{vmStart, vmStop, vmSetupSSH, vmPrint, vmDescribe},
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		RunE:      runVM,
	}

	cmd.Flags().StringVarP(&vmID, "id", "i", "", "Instance id to operate on")
	cmd.Flags().StringVarP(&vmRegion, "region", "r", "", "AWS region (default: vm.region from config, then the SDK default)")
	cmd.Flags().StringVar(&vmName, "name", "", "Only offer instances whose Name tag matches this glob")

	return cmd
}

func runVM(cmd *cobra.Command, args []string) error {
	action := vmPrint
	if len(args) > 0 {
		action = args[0]
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	region := vmRegion
	if region == "" {
		region = cfg.VM.Region
	}

	ctx := cmd.Context()
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithSharedConfigProfile(credentials.MFASection),
		awsconfig.WithSharedCredentialsFiles([]string{cfg.MFA.CredentialsFile}),
	}
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}
	if vmID == "" && awsCfg.Region == "" {
		return errNoRegion
	}

	program, extra, err := cfg.ChooserCommand()
	if err != nil {
		return err
	}
	ch := chooser.New(program, extra...)
	ch.Stderr = cmd.ErrOrStderr()

	r := &vmRunner{
		instances:  newInstances(awsCfg),
		chooser:    ch,
		fs:         fsys,
		sshConfig:  cfg.VM.SSHConfig,
		hostPrefix: cfg.VM.HostPrefix,
		out:        cmd.OutOrStdout(),
		log:        newLogger(cmd),
	}
	return r.run(ctx, action, vmID, vmName)
}

type vmRunner struct {
	instances  ec2client.Instances
	chooser    picker
	fs         afero.Fs
	sshConfig  string
	hostPrefix string
	out        io.Writer
	log        *logger.SyncLogger
}

func (r *vmRunner) run(ctx context.Context, action, id, namePattern string) error {
	var inst *types.Instance
	if id == "" {
		chosen, err := r.choose(ctx, namePattern)
		if err != nil {
			return err
		}
		inst = chosen
		id = aws.ToString(chosen.InstanceId)
	}

	// setup-ssh and describe need the instance itself
	if inst == nil && (action == vmSetupSSH || action == vmDescribe) {
		got, err := r.instances.GetInstance(ctx, id)
		if err != nil {
			return err
		}
		inst = got
	}

	switch action {
	case vmStart:
		if err := r.instances.Start(ctx, id); err != nil {
			return err
		}
		r.log.Info("start requested", map[string]interface{}{"id": id})
	case vmStop:
		if err := r.instances.Stop(ctx, id); err != nil {
			return err
		}
		r.log.Info("stop requested", map[string]interface{}{"id": id})
	case vmSetupSSH:
		ip, err := ec2client.PublicIP(*inst)
		if err != nil {
			return err
		}
		if err := sshconfig.Rewrite(r.fs, r.sshConfig, r.hostPrefix, ip); err != nil {
			return err
		}
		r.log.Info("ssh config updated", map[string]interface{}{
			"path":   r.sshConfig,
			"prefix": r.hostPrefix,
			"ip":     ip,
		})
	case vmDescribe:
		data, err := json.MarshalIndent(inst, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal instance: %w", err)
		}
		fmt.Fprintln(r.out, string(data))
	case vmPrint:
	default:
		return fmt.Errorf("unknown vm command %q", action)
	}

	fmt.Fprintln(r.out, id)
	return nil
}

func (r *vmRunner) choose(ctx context.Context, namePattern string) (*types.Instance, error) {
	all, err := r.instances.ListInstances(ctx)
	if err != nil {
		return nil, err
	}

	candidates, err := ec2client.FilterByName(all, namePattern)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no instances match name %q", namePattern)
	}

	idx, err := r.chooser.Choose(ctx, ec2client.Labels(candidates))
	if err != nil {
		return nil, err
	}
	return &candidates[idx], nil
}
