package watcher

import (
	"log"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow absorbs the burst of write events a file copy produces so
// the callback fires once per dropped file.
const debounceWindow = 2 * time.Second

var videoExtensions = map[string]bool{
	".mp4": true,
	".mov": true,
	".mkv": true,
	".avi": true,
	".m4v": true,
}

// OnVideo is called with the video's identifier (the filename stem) once a
// dropped file has settled.
type OnVideo func(videoID, path string)

// Watcher monitors a drop folder and triggers pipeline ingestion for each
// video file that lands in it.
type Watcher struct {
	dir      string
	callback OnVideo
	watcher  *fsnotify.Watcher
	mu       sync.Mutex
	debounce map[string]*time.Timer
	stop     chan struct{}
}

func New(dir string, cb OnVideo) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		dir:      dir,
		callback: cb,
		watcher:  fw,
		debounce: make(map[string]*time.Timer),
		stop:     make(chan struct{}),
	}, nil
}

func (w *Watcher) Start() error {
	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}
	go w.eventLoop()
	log.Printf("[watcher] watching drop folder %s", w.dir)
	return nil
}

func (w *Watcher) Stop() {
	close(w.stop)
	w.watcher.Close()
}

func (w *Watcher) eventLoop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[watcher] error: %v", err)
		case <-w.stop:
			return
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return
	}

	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasSuffix(base, ".tmp") ||
		strings.HasSuffix(base, ".part") {
		return
	}

	ext := strings.ToLower(filepath.Ext(base))
	if !videoExtensions[ext] {
		return
	}

	// Debounce until writes quiesce, then fire once.
	w.mu.Lock()
	if timer, ok := w.debounce[event.Name]; ok {
		timer.Stop()
	}
	eventName := event.Name
	w.debounce[eventName] = time.AfterFunc(debounceWindow, func() {
		w.mu.Lock()
		delete(w.debounce, eventName)
		w.mu.Unlock()

		videoID := strings.TrimSuffix(filepath.Base(eventName), filepath.Ext(eventName))
		log.Printf("[watcher] detected %s (video %s)", eventName, videoID)
		w.callback(videoID, eventName)
	})
	w.mu.Unlock()
}
