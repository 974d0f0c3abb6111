package control

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileWatcherProcessesDroppedCommand(t *testing.T) {
	dir := t.TempDir()

	var gotType string
	w, err := NewFileWatcher(dir, func(cmd Command) (map[string]interface{}, error) {
		gotType = cmd.Type
		return map[string]interface{}{"ok": true}, nil
	})
	if err != nil {
		t.Fatalf("NewFileWatcher: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	w.Start(ctx)
	defer w.Stop()

	cmd := Command{Type: "status", SessionID: "sess-1", Timestamp: time.Now()}
	data, err := json.Marshal(cmd)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	cmdPath := filepath.Join(dir, "req1"+cmdSuffix)
	if err := os.WriteFile(cmdPath, data, 0644); err != nil {
		t.Fatalf("write command file: %v", err)
	}

	respPath := filepath.Join(dir, "req1"+respSuffix)
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, err := os.Stat(respPath); err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	respData, err := os.ReadFile(respPath)
	if err != nil {
		t.Fatalf("response file never appeared: %v", err)
	}
	var resp Response
	if err := json.Unmarshal(respData, &resp); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if !resp.Success {
		t.Errorf("resp.Success = false, want true: %+v", resp)
	}
	if gotType != "status" {
		t.Errorf("handler saw type %q, want %q", gotType, "status")
	}
	if _, err := os.Stat(cmdPath); !os.IsNotExist(err) {
		t.Errorf("expected command file to be consumed, stat err = %v", err)
	}
}
