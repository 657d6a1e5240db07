package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/yuya-takeyama/vmsync/internal/credentials"
	"github.com/yuya-takeyama/vmsync/internal/mfa"
)

var (
	mfaDevice string
	mfaCheck  bool
)

// readToken prompts for the token when none was given on the command line
var readToken = func(cmd *cobra.Command) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("mfa token is required")
	}

	fmt.Fprint(cmd.ErrOrStderr(), "MFA token: ")
	b, err := term.ReadPassword(fd)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		return "", fmt.Errorf("failed to read mfa token: %w", err)
	}
	return strings.TrimSpace(string(b)), nil
}

func newMFACmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mfa [token]",
		Short: "Create or check the temporary session stored in the mfa profile",
		Long: `Exchange a one-time MFA token for temporary credentials and store them in
the [mfa] section of the AWS credentials file. With --check, fail unless the
stored session is still valid.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runMFA,
	}

	cmd.Flags().StringVarP(&mfaDevice, "device", "d", "", "MFA device serial arn (default: mfa.device from config)")
	cmd.Flags().BoolVarP(&mfaCheck, "check", "c", false, "Check whether the current session has expired")

	return cmd
}

func runMFA(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cmd)
	store := credentials.NewStore(cfg.MFA.CredentialsFile)

	if mfaCheck {
		log.Debug("checking session in " + store.Path)
		return mfa.NewSession(nil, store).Check(time.Now())
	}

	var token string
	if len(args) > 0 {
		token = args[0]
	} else {
		token, err = readToken(cmd)
		if err != nil {
			return err
		}
	}

	device := mfaDevice
	if device == "" {
		device = cfg.MFA.Device
	}

	ctx := cmd.Context()
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithSharedCredentialsFiles([]string{cfg.MFA.CredentialsFile}),
	)
	if err != nil {
		return fmt.Errorf("failed to load AWS config: %w", err)
	}

	session := mfa.NewSession(sts.NewFromConfig(awsCfg), store)
	expiry, err := session.Create(ctx, device, token)
	if err != nil {
		return err
	}

	log.Info("session created", map[string]interface{}{
		"profile": credentials.MFASection,
		"expires": expiry.Format(time.RFC3339),
	})
	return nil
}
