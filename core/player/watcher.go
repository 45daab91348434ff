package player

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"jzonefm/logger"
)

// LibraryWatcher 监听本地音乐库目录，文件变动去抖后触发曲库重建
type LibraryWatcher struct {
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// WatchLibraryDir starts watching dir. Bursts of filesystem events
// collapse into a single rebuild call after the debounce window.
func WatchLibraryDir(dir string, debounce time.Duration, rebuild func()) (*LibraryWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create library watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch library dir %s: %w", dir, err)
	}

	lw := &LibraryWatcher{watcher: w, done: make(chan struct{})}
	go lw.loop(debounce, rebuild)

	logger.Info("[Watcher] 开始监听本地音乐库", logger.String("dir", dir))
	return lw, nil
}

func (lw *LibraryWatcher) loop(debounce time.Duration, rebuild func()) {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-lw.done:
			if timer != nil {
				timer.Stop()
			}
			return
		case event, ok := <-lw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			logger.Debug("[Watcher] 音乐库目录变动",
				logger.String("file", event.Name),
				logger.String("op", event.Op.String()))
			if timer == nil {
				timer = time.NewTimer(debounce)
				fire = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(debounce)
			}
		case err, ok := <-lw.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("[Watcher] 监听音乐库目录出错", logger.ErrorField(err))
		case <-fire:
			timer = nil
			fire = nil
			rebuild()
		}
	}
}

// Close stops the watcher.
func (lw *LibraryWatcher) Close() error {
	close(lw.done)
	return lw.watcher.Close()
}
