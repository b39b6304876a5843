package platform

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFindRoot(t *testing.T) {
	// /tmp/
	//   lib/ (.notes)
	//     subdir/
	//       nested/
	//   configured/ (notes.yaml)
	//   empty/

	baseDir := t.TempDir()
	libDir := filepath.Join(baseDir, "lib")
	subDir := filepath.Join(libDir, "subdir")
	nestedDir := filepath.Join(subDir, "nested")
	configuredDir := filepath.Join(baseDir, "configured")
	emptyDir := filepath.Join(baseDir, "empty")

	for _, d := range []string{nestedDir, configuredDir, emptyDir, filepath.Join(libDir, ".notes")} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(configuredDir, DefaultConfigFile), nil, 0644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		startPath string
		wantRoot  string
		wantErr   bool
	}{
		{name: "Start at Root", startPath: libDir, wantRoot: libDir},
		{name: "Start in Subdir", startPath: subDir, wantRoot: libDir},
		{name: "Start Nested Deeply", startPath: nestedDir, wantRoot: libDir},
		{name: "Config File Marker", startPath: configuredDir, wantRoot: configuredDir},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindRoot(tt.startPath)
			if (err != nil) != tt.wantErr {
				t.Fatalf("FindRoot() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.wantRoot {
				t.Errorf("FindRoot() = %v, want %v", got, tt.wantRoot)
			}
		})
	}
}
