package security

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestValidatePathWithinDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	outputDir := filepath.Join(tmpDir, "output")
	elsewhere := filepath.Join(tmpDir, "elsewhere")
	for _, d := range []string{outputDir, elsewhere} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatalf("Failed to create %s: %v", d, err)
		}
	}
	link := filepath.Join(outputDir, "linked")
	if err := os.Symlink(elsewhere, link); err != nil {
		t.Fatalf("Failed to create symlink: %v", err)
	}

	tests := []struct {
		name      string
		filePath  string
		wantError bool
	}{
		{"report file", filepath.Join(outputDir, "scene_analysis.json"), false},
		{"nested new file", filepath.Join(outputDir, "scene-3", "plot.png"), false},
		{"dot dot", filepath.Join(outputDir, "..", "scene_analysis.json"), true},
		{"relative escape", "../../../etc/passwd", true},
		{"absolute outside", "/etc/passwd", true},
		{"through symlink", filepath.Join(link, "scene_analysis.json"), true},
		{"symlink itself", link, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePathWithinDirectory(tt.filePath, outputDir)
			if (err != nil) != tt.wantError {
				t.Errorf("ValidatePathWithinDirectory() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}

	if err := ValidatePathWithinDirectory(filepath.Join(tmpDir, "x"), filepath.Join(tmpDir, "missing")); err == nil {
		t.Error("missing safe directory should be an error")
	}
}

func TestJoinWithinDirectory(t *testing.T) {
	tests := []struct {
		dir, name string
		want      string
		wantError bool
	}{
		{"output", "scene_analysis.json", filepath.Join("output", "scene_analysis.json"), false},
		{"/srv/out/", "scene-1/plot.png", "/srv/out/scene-1/plot.png", false},
		{"output", "a/../b.json", filepath.Join("output", "b.json"), false},
		{"output", "../b.json", "", true},
		{"output", "a/../../b.json", "", true},
		{"output", "/etc/passwd", "", true},
		{"output", ".", "", true},
		{"output", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.dir+"|"+tt.name, func(t *testing.T) {
			got, err := JoinWithinDirectory(tt.dir, tt.name)
			if (err != nil) != tt.wantError {
				t.Fatalf("JoinWithinDirectory() error = %v, wantError %v", err, tt.wantError)
			}
			if got != tt.want {
				t.Errorf("JoinWithinDirectory() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"host-a", "host-a"},
		{"host a/b", "host_a_b"},
		{"  ", "unknown"},
		{"", "unknown"},
		{"..hidden..", "hidden"},
		{"a***b", "a_b"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Errorf("SanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if got := SanitizeFilename(strings.Repeat("x", 500)); len(got) != 128 {
		t.Errorf("long name length = %d, want 128", len(got))
	}
}
