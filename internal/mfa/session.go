package mfa

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/yuya-takeyama/vmsync/internal/credentials"
)

// ErrSessionExpired is returned by Check when no usable session is stored
var ErrSessionExpired = errors.New("no session or has expired; pls use token to create new session")

// STSAPI is the subset of *sts.Client used here
type STSAPI interface {
	GetSessionToken(ctx context.Context, params *sts.GetSessionTokenInput, optFns ...func(*sts.Options)) (*sts.GetSessionTokenOutput, error)
}

// Session mints temporary credentials from an MFA code and keeps them in the
// mfa section of a credentials store
type Session struct {
	api   STSAPI
	store *credentials.Store
}

func NewSession(api STSAPI, store *credentials.Store) *Session {
	return &Session{api: api, store: store}
}

func (s *Session) Create(ctx context.Context, serial, code string) (time.Time, error) {
	if serial == "" {
		return time.Time{}, fmt.Errorf("mfa device serial is required (use --device or set mfa.device in config)")
	}
	if code == "" {
		return time.Time{}, fmt.Errorf("mfa token code is required")
	}

	out, err := s.api.GetSessionToken(ctx, &sts.GetSessionTokenInput{
		SerialNumber: aws.String(serial),
		TokenCode:    aws.String(code),
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("get session token: %w", err)
	}

	cred := out.Credentials
	if cred == nil || cred.Expiration == nil {
		return time.Time{}, fmt.Errorf("get session token: response has no credentials")
	}

	expiry := cred.Expiration.Local()
	values := map[string]string{
		credentials.KeyAccessKeyID:     aws.ToString(cred.AccessKeyId),
		credentials.KeySecretAccessKey: aws.ToString(cred.SecretAccessKey),
		credentials.KeySessionToken:    aws.ToString(cred.SessionToken),
		credentials.KeyExpiration:      expiry.Format(time.RFC3339),
	}
	if err := s.store.UpdateSection(credentials.MFASection, values); err != nil {
		return time.Time{}, err
	}

	return expiry, nil
}

func (s *Session) Check(now time.Time) error {
	valid, err := s.store.SessionValid(now)
	if err != nil {
		return err
	}
	if !valid {
		return ErrSessionExpired
	}
	return nil
}
