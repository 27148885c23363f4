package security

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	safeDir := filepath.Join(tmpDir, "safe")
	unsafeDir := filepath.Join(tmpDir, "unsafe")
	if err := os.MkdirAll(safeDir, 0755); err != nil {
		t.Fatalf("Failed to create safe directory: %v", err)
	}
	if err := os.MkdirAll(unsafeDir, 0755); err != nil {
		t.Fatalf("Failed to create unsafe directory: %v", err)
	}
	symlinkPath := filepath.Join(safeDir, "evil-symlink")
	if err := os.Symlink(unsafeDir, symlinkPath); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	tests := []struct {
		name      string
		filePath  string
		safeDir   string
		wantError bool
	}{
		{"file in directory", filepath.Join(safeDir, "kept.asc"), safeDir, false},
		{"nested file not yet created", filepath.Join(safeDir, "run", "removed.asc"), safeDir, false},
		{"directory itself", safeDir, safeDir, false},
		{"dot-dot escape", filepath.Join(safeDir, "..", "kept.asc"), safeDir, true},
		{"relative escape", "../../../etc/passwd", safeDir, true},
		{"absolute path outside", "/etc/passwd", safeDir, true},
		{"new file below escaping symlink", filepath.Join(symlinkPath, "kept.asc"), safeDir, true},
		{"escaping symlink itself", symlinkPath, safeDir, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.filePath, tt.safeDir)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidatePathWithinDirectory(%q, %q) error = %v, wantError %v",
					tt.filePath, tt.safeDir, err, tt.wantError)
			}
		})
	}
}

func TestValidatePathWithinDirectory_MissingSafeDir(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	if err := ValidatePathWithinDirectory(filepath.Join(missing, "a.asc"), missing); err == nil {
		t.Error("expected error for missing safe directory")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "unknown"},
		{"scan-001.asc", "scan-001.asc"},
		{"street scan/2026", "street_scan_2026"},
		{"../../etc", "etc"},
		{"a   b", "a_b"},
		{"Ünïcode", "n_code"},
		{"...", "unknown"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
