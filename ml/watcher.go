package ml

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ArtifactWatcher hot-reloads the model when the artifact file is replaced
// on disk, so a newly trained model can be picked up without a restart.
// A file that fails to load keeps the previous artifact in place.
type ArtifactWatcher struct {
	watcher   *fsnotify.Watcher
	path      string
	predictor *Predictor
	logger    *zap.Logger
	done      chan struct{}
}

const reloadDebounce = 500 * time.Millisecond

func WatchArtifact(path string, predictor *Predictor, logger *zap.Logger) (*ArtifactWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// watch the directory: editors and trainers typically replace the file
	// by rename, which drops a watch held on the file itself
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		watcher.Close()
		return nil, err
	}

	w := &ArtifactWatcher{
		watcher:   watcher,
		path:      abs,
		predictor: predictor,
		logger:    logger,
		done:      make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *ArtifactWatcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *ArtifactWatcher) run() {
	var reload <-chan time.Time
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			reload = time.After(reloadDebounce)
		case <-reload:
			reload = nil
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("artifact watcher error", zap.Error(err))
		case <-w.done:
			return
		}
	}
}

func (w *ArtifactWatcher) reload() {
	artifact, err := LoadArtifact(w.path)
	if err != nil {
		w.logger.Error("failed to reload model artifact", zap.String("path", w.path), zap.Error(err))
		return
	}
	if err := w.predictor.SetArtifact(artifact); err != nil {
		w.logger.Error("failed to install reloaded artifact", zap.Error(err))
		return
	}
	w.logger.Info("model artifact reloaded",
		zap.String("path", w.path),
		zap.String("version", artifact.Version),
		zap.String("model_type", artifact.ModelType))
}
