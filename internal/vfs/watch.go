package vfs

import (
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// watcher follows the underlying file of one filesystem.
type watcher struct {
	w    *fsnotify.Watcher
	done chan struct{}
	once sync.Once
}

// newWatcher watches the directory of the underlying file, since editors and
// tools replace files by renaming over them.
func newWatcher(fsys *FileSystem) (*watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(fsys.underlying)); err != nil {
		_ = w.Close()
		return nil, err
	}
	wt := &watcher{w: w, done: make(chan struct{})}
	go wt.run(fsys)
	return wt, nil
}

func (wt *watcher) run(fsys *FileSystem) {
	for {
		select {
		case <-wt.done:
			return
		case ev, ok := <-wt.w.Events:
			if !ok {
				return
			}
			if ev.Name != fsys.underlying {
				continue
			}
			switch {
			case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
				logger.Info("underlying file gone, closing filesystem", "underlying", fsys.underlying, "op", ev.Op.String())
				_ = fsys.Close()
				return
			case ev.Has(fsnotify.Write), ev.Has(fsnotify.Create):
				logger.Debug("underlying file changed", "underlying", fsys.underlying)
				fsys.invalidateSizes()
			}
		case err, ok := <-wt.w.Errors:
			if !ok {
				return
			}
			logger.Warn("watch error", "underlying", fsys.underlying, "error", err)
		}
	}
}

// stop ends the watch. It does not wait for run to return, so it is safe to
// call from run itself.
func (wt *watcher) stop() {
	wt.once.Do(func() {
		close(wt.done)
		_ = wt.w.Close()
	})
}
