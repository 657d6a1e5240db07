package credentials

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"
)

const sampleCredentials = `[default]
aws_access_key_id = AKIADEFAULT
aws_secret_access_key = secret-default

[mfa]
aws_access_key_id = ASIAOLD
aws_secret_access_key = secret-old
aws_session_token = token-old
expiration = 2026-10-17T12:00:00+09:00
`

func writeCredentials(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "credentials")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadSection(t *testing.T) {
	store := NewStore(writeCredentials(t, sampleCredentials))

	got, ok, err := store.ReadSection("default")
	if err != nil || !ok {
		t.Fatalf("ReadSection() = %v, %v", ok, err)
	}
	want := map[string]string{
		"aws_access_key_id":     "AKIADEFAULT",
		"aws_secret_access_key": "secret-default",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ReadSection() = %v, want %v", got, want)
	}

	if _, ok, err := store.ReadSection("missing"); ok || err != nil {
		t.Errorf("missing section: ok = %v, err = %v", ok, err)
	}
}

func TestReadSection_MissingFile(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nope"))
	if _, ok, err := store.ReadSection(MFASection); ok || err != nil {
		t.Errorf("ReadSection() ok = %v, err = %v", ok, err)
	}
}

func TestUpdateSection(t *testing.T) {
	path := writeCredentials(t, sampleCredentials)
	store := NewStore(path)

	err := store.UpdateSection(MFASection, map[string]string{
		KeyAccessKeyID:  "ASIANEW",
		KeySessionToken: "token-new",
	})
	if err != nil {
		t.Fatalf("UpdateSection() error = %v", err)
	}

	mfa, _, err := store.ReadSection(MFASection)
	if err != nil {
		t.Fatal(err)
	}
	if mfa[KeyAccessKeyID] != "ASIANEW" || mfa[KeySessionToken] != "token-new" {
		t.Errorf("updated keys not written: %v", mfa)
	}
	if mfa[KeySecretAccessKey] != "secret-old" {
		t.Errorf("untouched key lost: %v", mfa)
	}

	def, _, err := store.ReadSection("default")
	if err != nil {
		t.Fatal(err)
	}
	if def["aws_access_key_id"] != "AKIADEFAULT" {
		t.Errorf("other section changed: %v", def)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("mode = %o, want 600", perm)
	}
}

func TestUpdateSection_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".aws", "credentials")
	store := NewStore(path)

	if err := store.UpdateSection(MFASection, map[string]string{KeyExpiration: "2030-01-01T00:00:00Z"}); err != nil {
		t.Fatalf("UpdateSection() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "[mfa]") {
		t.Errorf("section header missing:\n%s", data)
	}
}

func TestSessionValid(t *testing.T) {
	now := time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		content string
		want    bool
		wantErr bool
	}{
		{
			name:    "not yet expired",
			content: "[mfa]\nexpiration = 2026-10-17T12:00:00+09:00\n",
			want:    true,
		},
		{
			name:    "expired",
			content: "[mfa]\nexpiration = 2026-10-16T23:59:59Z\n",
			want:    false,
		},
		{
			name:    "expires exactly now",
			content: "[mfa]\nexpiration = 2026-10-17T00:00:00Z\n",
			want:    false,
		},
		{
			name:    "no expiration key",
			content: "[mfa]\naws_session_token = x\n",
			want:    false,
		},
		{
			name:    "no mfa section",
			content: "[default]\naws_access_key_id = x\n",
			want:    false,
		},
		{
			name:    "unparseable expiration",
			content: "[mfa]\nexpiration = tomorrow\n",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStore(writeCredentials(t, tt.content))
			got, err := store.SessionValid(now)
			if (err != nil) != tt.wantErr {
				t.Fatalf("SessionValid() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("SessionValid() = %v, want %v", got, tt.want)
			}
		})
	}
}
