package catalog

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadGroupSeed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "groups.yaml")
	content := `groups:
  - name: Fitness
    color: "#22c55e"
    description: All fitness classes
    event_types:
      - Yoga
      - Pilates
  - name: Board Games
    event_types:
      - Chess Night
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	seeds, err := LoadGroupSeed(path)
	if err != nil {
		t.Fatalf("LoadGroupSeed() error = %v", err)
	}
	if len(seeds) != 2 {
		t.Fatalf("got %d groups, want 2", len(seeds))
	}
	if seeds[0].Name != "Fitness" || seeds[0].Color != "#22c55e" || len(seeds[0].EventTypes) != 2 {
		t.Errorf("first group = %+v", seeds[0])
	}
	if seeds[1].Name != "Board Games" || len(seeds[1].EventTypes) != 1 {
		t.Errorf("second group = %+v", seeds[1])
	}
}

func TestLoadGroupSeedErrors(t *testing.T) {
	if _, err := LoadGroupSeed(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should error")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("groups:\n  - color: \"#fff\"\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadGroupSeed(path); err == nil {
		t.Error("group without a name should error")
	}
}
