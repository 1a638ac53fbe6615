package cli

import (
	"os"
	"path/filepath"
	"testing"
)

func TestXDGDirs(t *testing.T) {
	tests := []struct {
		name     string
		env      string
		fallback string
		fn       func() (string, error)
		file     string
	}{
		{"cache", "XDG_CACHE_HOME", ".cache", cacheDir, ""},
		{"config", "XDG_CONFIG_HOME", ".config", configPath, "config.toml"},
		{"data", "XDG_DATA_HOME", filepath.Join(".local", "share"), dataDir, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name+"/env", func(t *testing.T) {
			base := t.TempDir()
			t.Setenv(tt.env, base)

			got, err := tt.fn()
			if err != nil {
				t.Fatalf("error: %v", err)
			}
			want := filepath.Join(base, appName, tt.file)
			if got != want {
				t.Errorf("got %q, want %q", got, want)
			}
		})

		t.Run(tt.name+"/home", func(t *testing.T) {
			t.Setenv(tt.env, "")
			home, err := os.UserHomeDir()
			if err != nil {
				t.Skip("no home directory")
			}

			got, err := tt.fn()
			if err != nil {
				t.Fatalf("error: %v", err)
			}
			want := filepath.Join(home, tt.fallback, appName, tt.file)
			if got != want {
				t.Errorf("got %q, want %q", got, want)
			}
		})
	}
}
