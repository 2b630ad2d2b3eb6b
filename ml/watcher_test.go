package ml

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"
)

func writeGarbage(path string) error {
	return os.WriteFile(path, []byte("not json"), 0o644)
}

func TestArtifactWatcherReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")

	first := testArtifact()
	first.Version = "v1"
	if err := first.Save(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	predictor := NewPredictor()
	if err := predictor.SetArtifact(first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	watcher, err := WatchArtifact(path, predictor, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer watcher.Close()

	second := testArtifact()
	second.Version = "v2"
	if err := second.Save(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if predictor.Version() == "v2" {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("artifact not reloaded, version still %q", predictor.Version())
}

func TestArtifactWatcherKeepsOldModelOnBadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "model.json")

	artifact := testArtifact()
	artifact.Version = "good"
	if err := artifact.Save(path); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	predictor := NewPredictor()
	if err := predictor.SetArtifact(artifact); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	watcher, err := WatchArtifact(path, predictor, zap.NewNop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer watcher.Close()

	if err := writeGarbage(path); err != nil {
		t.Fatal(err)
	}

	// give the debounce a chance to fire
	time.Sleep(2 * reloadDebounce)
	if predictor.Version() != "good" {
		t.Fatalf("bad file replaced the model: version %q", predictor.Version())
	}
	if !predictor.Loaded() {
		t.Fatal("predictor lost its model")
	}
}
