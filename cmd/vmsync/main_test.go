package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"

	"github.com/yuya-takeyama/vmsync/internal/mfa"
	"github.com/yuya-takeyama/vmsync/internal/walker"
	"github.com/yuya-takeyama/vmsync/pkg/planner"
)

func execute(t *testing.T, cfgPath string, args ...string) (string, string, error) {
	t.Helper()

	if cfgPath == "" {
		cfgPath = filepath.Join(t.TempDir(), "missing.yaml")
	}

	var stdout, stderr bytes.Buffer
	root := newRootCmd()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(append([]string{"--config", cfgPath}, args...))

	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func setupWorkspace(t *testing.T, wd string) {
	t.Helper()

	fs := afero.NewMemMapFs()
	files := map[string]string{
		"/work/.vm-prefix": "/srv/app\n",
		"/work/.s3-prefix": "s3://bucket/app\n",
	}
	for path, content := range files {
		if err := afero.WriteFile(fs, path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	if err := fs.MkdirAll("/work/sub/dir", 0755); err != nil {
		t.Fatal(err)
	}

	origFS, origGetwd := fsys, getwd
	fsys = fs
	getwd = func() (string, error) { return wd, nil }
	t.Cleanup(func() {
		fsys, getwd = origFS, origGetwd
	})
}

func TestSync_Print(t *testing.T) {
	setupWorkspace(t, "/work/sub/dir")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{
			name: "corresponding path",
			args: []string{"sync", "--path"},
			want: "/srv/app/sub/dir",
		},
		{
			name: "s3 corresponding path",
			args: []string{"sync", "-p", "-3"},
			want: "s3://bucket/app/sub/dir",
		},
		{
			name: "push to default host",
			args: []string{"sync", "--print"},
			want: "rsync -azsc ./ vmrs-script:/srv/app/sub/dir",
		},
		{
			name: "pull from explicit host",
			args: []string{"sync", "--print", "--from", "--host", "box"},
			want: "rsync -azsc box:/srv/app/sub/dir ./",
		},
		{
			name: "list over ssh",
			args: []string{"sync", "--print", "--list"},
			want: "ssh vmrs-script ls -l /srv/app/sub/dir",
		},
		{
			name: "s3 sync",
			args: []string{"sync", "--print", "-3"},
			want: "aws --profile mfa s3 sync ./ s3://bucket/app/sub/dir",
		},
		{
			name: "s3 list",
			args: []string{"sync", "--print", "-3", "--list"},
			want: "aws --profile mfa s3 ls s3://bucket/app/sub/dir",
		},
		{
			name: "git tracked files",
			args: []string{"sync", "--print", "-g"},
			want: "git ls-files | rsync -azsc ./ vmrs-script:/srv/app/sub/dir",
		},
		{
			name: "files from stdin",
			args: []string{"sync", "--print", "--pipe", "-"},
			want: "rsync -azsc --files-from=- ./ vmrs-script:/srv/app/sub/dir",
		},
		{
			name: "passthrough args",
			args: []string{"sync", "--print", "--", "--delete", "--exclude", "build output"},
			want: "rsync -azsc --delete --exclude 'build output' ./ vmrs-script:/srv/app/sub/dir",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stdout, _, err := execute(t, "", tt.args...)
			if err != nil {
				t.Fatalf("execute() error = %v", err)
			}
			if got := strings.TrimSuffix(stdout, "\n"); got != tt.want {
				t.Errorf("stdout = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSync_HostFromConfig(t *testing.T) {
	setupWorkspace(t, "/work")

	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("sync:\n  host: devbox\n"), 0644); err != nil {
		t.Fatal(err)
	}

	stdout, _, err := execute(t, cfgPath, "sync", "--print")
	if err != nil {
		t.Fatalf("execute() error = %v", err)
	}
	if want := "rsync -azsc ./ devbox:/srv/app\n"; stdout != want {
		t.Errorf("stdout = %q, want %q", stdout, want)
	}

	// a defaulted host is not an explicit --host
	if _, _, err := execute(t, cfgPath, "sync", "--print", "-3"); err != nil {
		t.Errorf("s3 with configured host error = %v", err)
	}
}

func TestSync_Errors(t *testing.T) {
	tests := []struct {
		name   string
		wd     string
		args   []string
		target error
	}{
		{
			name: "path and print",
			wd:   "/work",
			args: []string{"sync", "--path", "--print"},
		},
		{
			name: "list and path",
			wd:   "/work",
			args: []string{"sync", "--list", "--path"},
		},
		{
			name:   "s3 with explicit host",
			wd:     "/work",
			args:   []string{"sync", "--print", "-3", "--host", "box"},
			target: planner.ErrInvalidCombination,
		},
		{
			name:   "s3 with git",
			wd:     "/work",
			args:   []string{"sync", "--print", "-3", "-g"},
			target: planner.ErrInvalidCombination,
		},
		{
			name:   "git with pipe",
			wd:     "/work",
			args:   []string{"sync", "--print", "-g", "--pipe", "files.txt"},
			target: planner.ErrInvalidCombination,
		},
		{
			name:   "no marker",
			wd:     "/elsewhere",
			args:   []string{"sync", "--print"},
			target: walker.ErrMarkerNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setupWorkspace(t, tt.wd)

			stdout, _, err := execute(t, "", tt.args...)
			if err == nil {
				t.Fatalf("expected error, got stdout %q", stdout)
			}
			if tt.target != nil && !errors.Is(err, tt.target) {
				t.Errorf("error = %v, want %v", err, tt.target)
			}
			if stdout != "" {
				t.Errorf("stdout = %q, want nothing", stdout)
			}
		})
	}
}

func TestMFA_Check(t *testing.T) {
	dir := t.TempDir()
	credsPath := filepath.Join(dir, "credentials")
	cfgPath := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(cfgPath, []byte("mfa:\n  credentials_file: "+credsPath+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, _, err := execute(t, cfgPath, "mfa", "--check"); !errors.Is(err, mfa.ErrSessionExpired) {
		t.Errorf("missing credentials error = %v, want ErrSessionExpired", err)
	}

	writeSession := func(expiry time.Time) {
		t.Helper()
		content := "[default]\naws_access_key_id = AKIA\n\n[mfa]\nexpiration = " + expiry.Format(time.RFC3339) + "\n"
		if err := os.WriteFile(credsPath, []byte(content), 0600); err != nil {
			t.Fatal(err)
		}
	}

	writeSession(time.Now().Add(-time.Hour))
	if _, _, err := execute(t, cfgPath, "mfa", "-c"); !errors.Is(err, mfa.ErrSessionExpired) {
		t.Errorf("expired session error = %v, want ErrSessionExpired", err)
	}

	writeSession(time.Now().Add(time.Hour))
	if _, _, err := execute(t, cfgPath, "mfa", "-c"); err != nil {
		t.Errorf("valid session error = %v", err)
	}
}

func TestVersion(t *testing.T) {
	stdout, _, err := execute(t, "", "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(stdout, "dev (commit: none") {
		t.Errorf("stdout = %q", stdout)
	}
}
