package control

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
)

// FileWatcher is a fallback control channel for environments where a Unix
// domain socket isn't reachable (e.g. the session runs inside a container
// whose socket mount didn't propagate). It watches a directory for
// dropped "*.cmd.json" files, decodes each as a Command, and writes the
// Response back next to it as "*.resp.json". Grounded on the teacher
// pack's fsnotify usage in pkg/prefetch's GitEventDetector, adapted from
// watching git refs to watching a control drop directory.
type FileWatcher struct {
	dir       string
	watcher   *fsnotify.Watcher
	onCommand func(cmd Command) (map[string]interface{}, error)
	stop      chan struct{}
	done      chan struct{}
}

// NewFileWatcher creates a FileWatcher rooted at dir, creating dir if it
// does not already exist.
func NewFileWatcher(dir string, onCommand func(Command) (map[string]interface{}, error)) (*FileWatcher, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("control: create watch dir: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("control: create fs watcher: %w", err)
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("control: watch %s: %w", dir, err)
	}

	return &FileWatcher{
		dir:       dir,
		watcher:   watcher,
		onCommand: onCommand,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}, nil
}

const (
	cmdSuffix  = ".cmd.json"
	respSuffix = ".resp.json"
)

// Start begins watching for dropped command files. It returns
// immediately; processing happens in a background goroutine until Stop
// is called or ctx is canceled.
func (w *FileWatcher) Start(ctx context.Context) {
	go w.run(ctx)
}

func (w *FileWatcher) run(ctx context.Context) {
	defer close(w.done)
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stop:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !strings.HasSuffix(event.Name, cmdSuffix) {
				continue
			}
			w.handleDroppedFile(event.Name)
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *FileWatcher) handleDroppedFile(path string) {
	data, err := os.ReadFile(path)
	if err != nil {
		// File may have already been consumed by a racing read; ignore.
		return
	}

	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		w.writeResponse(path, Response{Success: false, Message: "invalid command file", Error: err.Error()})
		_ = os.Remove(path)
		return
	}

	var resp Response
	if w.onCommand != nil {
		result, err := w.onCommand(cmd)
		if err != nil {
			resp = Response{Success: false, Message: fmt.Sprintf("command failed: %v", err), Error: err.Error()}
		} else {
			resp = Response{Success: true, Message: fmt.Sprintf("command '%s' completed successfully", cmd.Type), Data: result}
		}
	} else {
		resp = Response{Success: false, Message: "no command handler registered", Error: "server misconfiguration"}
	}

	w.writeResponse(path, resp)
	_ = os.Remove(path)
}

func (w *FileWatcher) writeResponse(cmdPath string, resp Response) {
	base := strings.TrimSuffix(filepath.Base(cmdPath), cmdSuffix)
	respPath := filepath.Join(filepath.Dir(cmdPath), base+respSuffix)

	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	_ = os.WriteFile(respPath, data, 0644)
}

// Stop halts the watcher and waits for its goroutine to exit.
func (w *FileWatcher) Stop() {
	select {
	case <-w.stop:
	default:
		close(w.stop)
	}
	<-w.done
}
