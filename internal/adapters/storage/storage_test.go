package storage

import "testing"

func TestObjectKey(t *testing.T) {
	cases := []struct {
		folder, name, suffix, want string
	}{
		{"exports/riverside-park", "riverside-weekday-am.csv", "1a2b3c4d", "exports/riverside-park/riverside-weekday-am_1a2b3c4d.csv"},
		{"exports", "../escape.csv", "x", "exports/escape_x.csv"},
		{"", "plain", "y", "plain_y"},
	}
	for _, tc := range cases {
		if got := ObjectKey(tc.folder, tc.name, tc.suffix); got != tc.want {
			t.Errorf("ObjectKey(%q, %q): expected %q, got %q", tc.folder, tc.name, tc.want, got)
		}
	}
}

type minioConfig struct{ endpoint string }

func (c minioConfig) GetMinIOEndpoint() string      { return c.endpoint }
func (c minioConfig) GetMinIOAccessKey() string     { return "access" }
func (c minioConfig) GetMinIOSecretKey() string     { return "secret" }
func (c minioConfig) GetMinIOUseSSL() bool          { return false }
func (c minioConfig) GetMinioBucketExports() string { return "exports" }
func (c minioConfig) IsMinIOEnabled() bool          { return c.endpoint != "" }

func TestNewMinIORequiresEndpoint(t *testing.T) {
	if _, err := NewMinIO(minioConfig{}); err == nil {
		t.Fatal("expected error without endpoint")
	}
}
