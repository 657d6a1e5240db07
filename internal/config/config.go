package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/yaml.v3"
)

const (
	DefaultHost       = "vmrs-script"
	DefaultHostPrefix = "vmrs"
	DefaultVMMarker   = ".vm-prefix"
	DefaultS3Marker   = ".s3-prefix"
	DefaultChooser    = "fzf"
)

// Config represents the complete vmsync configuration
type Config struct {
	Sync SyncConfig `yaml:"sync"`
	VM   VMConfig   `yaml:"vm"`
	MFA  MFAConfig  `yaml:"mfa"`
}

// SyncConfig configures marker lookup and the default host
type SyncConfig struct {
	Host     string `yaml:"host"`
	VMMarker string `yaml:"vm_marker"`
	S3Marker string `yaml:"s3_marker"`
}

// VMConfig configures instance selection and ssh config updates
type VMConfig struct {
	Region     string `yaml:"region"`
	HostPrefix string `yaml:"host_prefix"`
	SSHConfig  string `yaml:"ssh_config"`
	Chooser    string `yaml:"chooser"`
}

// MFAConfig configures session minting
type MFAConfig struct {
	Device          string `yaml:"device"`
	CredentialsFile string `yaml:"credentials_file"`
}

// DefaultPath returns $HOME/.config/vmsync/config.yaml
func DefaultPath() (string, error) {
	home, err := homedir.Dir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(home, ".config", "vmsync", "config.yaml"), nil
}

// Load reads the configuration file at path. A missing file is not an error
// and yields the defaults.
func Load(path string) (*Config, error) {
	path, err := homedir.Expand(os.ExpandEnv(path))
	if err != nil {
		return nil, fmt.Errorf("failed to expand config path: %w", err)
	}

	var cfg Config
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.expand(); err != nil {
		return nil, err
	}

	if err := cfg.applyDefaults(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// expand expands environment variables and ~ in path fields
func (c *Config) expand() error {
	c.Sync.Host = os.ExpandEnv(c.Sync.Host)
	c.VM.Region = os.ExpandEnv(c.VM.Region)
	c.MFA.Device = os.ExpandEnv(c.MFA.Device)

	for _, p := range []*string{&c.VM.SSHConfig, &c.MFA.CredentialsFile} {
		expanded, err := homedir.Expand(os.ExpandEnv(*p))
		if err != nil {
			return fmt.Errorf("failed to expand %q: %w", *p, err)
		}
		*p = expanded
	}
	return nil
}

// applyDefaults fills in zero-value fields with sensible defaults.
func (c *Config) applyDefaults() error {
	if c.Sync.Host == "" {
		c.Sync.Host = DefaultHost
	}
	if c.Sync.VMMarker == "" {
		c.Sync.VMMarker = DefaultVMMarker
	}
	if c.Sync.S3Marker == "" {
		c.Sync.S3Marker = DefaultS3Marker
	}
	if c.VM.HostPrefix == "" {
		c.VM.HostPrefix = DefaultHostPrefix
	}
	if c.VM.Chooser == "" {
		c.VM.Chooser = DefaultChooser
	}

	if c.VM.SSHConfig == "" || c.MFA.CredentialsFile == "" {
		home, err := homedir.Dir()
		if err != nil {
			return fmt.Errorf("failed to get user home directory: %w", err)
		}
		if c.VM.SSHConfig == "" {
			c.VM.SSHConfig = filepath.Join(home, ".ssh", "config")
		}
		if c.MFA.CredentialsFile == "" {
			c.MFA.CredentialsFile = filepath.Join(home, ".aws", "credentials")
		}
	}
	return nil
}

// Validate checks the configuration for errors
func (c *Config) Validate() error {
	for name, marker := range map[string]string{
		"sync.vm_marker": c.Sync.VMMarker,
		"sync.s3_marker": c.Sync.S3Marker,
	} {
		if strings.ContainsRune(marker, filepath.Separator) {
			return fmt.Errorf("%s must be a file name, got %q", name, marker)
		}
	}

	if strings.ContainsAny(c.Sync.Host, " \t:") {
		return fmt.Errorf("sync.host must be a bare host alias, got %q", c.Sync.Host)
	}

	if _, _, err := c.ChooserCommand(); err != nil {
		return err
	}

	return nil
}

// ChooserCommand splits vm.chooser into a program and its extra arguments
func (c *Config) ChooserCommand() (string, []string, error) {
	words, err := shellquote.Split(c.VM.Chooser)
	if err != nil {
		return "", nil, fmt.Errorf("vm.chooser: %w", err)
	}
	if len(words) == 0 {
		return "", nil, fmt.Errorf("vm.chooser is empty")
	}
	return words[0], words[1:], nil
}
