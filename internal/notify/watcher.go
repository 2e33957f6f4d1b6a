// Package notify hot-reloads the prompt-enhancer instruction template.
// Editing the template file takes effect on the next turn without a
// restart.
package notify

import (
	"log"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// TemplateWatcher watches a prompt template file and dispatches its content
// to a callback on change.
type TemplateWatcher struct {
	path     string
	callback func(content string)
	watcher  *fsnotify.Watcher
	done     chan struct{}
}

// NewTemplateWatcher creates a watcher for the given template file.
func NewTemplateWatcher(path string, callback func(content string)) *TemplateWatcher {
	return &TemplateWatcher{
		path:     path,
		callback: callback,
		done:     make(chan struct{}),
	}
}

// Start loads the template once, then watches the containing directory for
// writes to the file. Watching the directory rather than the file survives
// editors that replace the file on save. Call Stop to clean up.
func (tw *TemplateWatcher) Start() error {
	tw.load()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(tw.path)); err != nil {
		_ = w.Close()
		return err
	}
	tw.watcher = w

	go tw.loop()
	log.Printf("notify: watching %s for prompt template changes", tw.path)
	return nil
}

// Stop shuts down the watcher.
func (tw *TemplateWatcher) Stop() {
	if tw.watcher != nil {
		_ = tw.watcher.Close()
	}
	<-tw.done
}

func (tw *TemplateWatcher) loop() {
	defer close(tw.done)

	for {
		select {
		case event, ok := <-tw.watcher.Events:
			if !ok {
				return
			}
			if event.Name != tw.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				tw.load()
			}
		case err, ok := <-tw.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("notify: watcher error: %v", err)
		}
	}
}

// load reads the template and hands it to the callback. A missing or
// unreadable file is logged and skipped; the previous template stays in
// effect.
func (tw *TemplateWatcher) load() {
	data, err := os.ReadFile(tw.path)
	if err != nil {
		log.Printf("notify: failed to read prompt template %s: %v", tw.path, err)
		return
	}
	tw.callback(string(data))
	log.Printf("notify: loaded prompt template from %s (%d bytes)", tw.path, len(data))
}
