package lockfile

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLockAcquisition(t *testing.T) {
	tempDir := t.TempDir()

	lock, err := AcquireLock(tempDir)
	if err != nil {
		t.Fatalf("failed to acquire lock: %v", err)
	}
	defer lock.Release()

	lockPath := filepath.Join(tempDir, LockFileName)
	content, err := os.ReadFile(lockPath)
	if err != nil {
		t.Fatalf("failed to read lock file: %v", err)
	}
	expected := fmt.Sprintf("pid=%d\n", os.Getpid())
	if string(content) != expected {
		t.Errorf("lock file content mismatch: expected %q, got %q", expected, string(content))
	}
}

func TestLockConflict(t *testing.T) {
	tempDir := t.TempDir()

	lock1, err := AcquireLock(tempDir)
	if err != nil {
		t.Fatalf("failed to acquire first lock: %v", err)
	}
	defer lock1.Release()

	lock2, err := AcquireLock(tempDir)
	if err == nil {
		lock2.Release()
		t.Fatal("second lock acquisition should have failed")
	}

	var lockErr *LockError
	if !errors.As(err, &lockErr) {
		t.Errorf("expected LockError, got: %T", err)
	}
	errMsg := err.Error()
	if !strings.Contains(errMsg, "another PromptStudio instance") {
		t.Errorf("error message should mention another instance: %s", errMsg)
	}
	if !strings.Contains(errMsg, tempDir) {
		t.Errorf("error message should contain the lock path: %s", errMsg)
	}
}

func TestLockReleaseAndReacquisition(t *testing.T) {
	tempDir := t.TempDir()

	lock, err := AcquireLock(tempDir)
	if err != nil {
		t.Fatalf("failed to acquire lock: %v", err)
	}
	lockPath := filepath.Join(tempDir, LockFileName)

	if err := lock.Release(); err != nil {
		t.Errorf("failed to release lock: %v", err)
	}
	if _, err := os.Stat(lockPath); !os.IsNotExist(err) {
		t.Errorf("lock file should be removed after release: %s", lockPath)
	}
	if err := lock.Release(); err != nil {
		t.Errorf("repeated release should be safe: %v", err)
	}

	lock2, err := AcquireLock(tempDir)
	if err != nil {
		t.Fatalf("failed to reacquire lock after release: %v", err)
	}
	defer lock2.Release()
}

func TestExtractPID(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected int
	}{
		{"valid pid", "pid=12345\n", 12345},
		{"pid with extra content", "pid=67890\nother=info", 67890},
		{"no pid", "other=info", 0},
		{"empty content", "", 0},
		{"invalid pid", "pid=abc", 0},
		{"no equals", "pid12345", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := extractPID(tt.content); result != tt.expected {
				t.Errorf("extractPID(%q) = %d, want %d", tt.content, result, tt.expected)
			}
		})
	}
}

func TestIsProcessRunning(t *testing.T) {
	if !isProcessRunning(os.Getpid()) {
		t.Error("our own process should be detected as running")
	}
}

func TestCreatesMissingStateDirectory(t *testing.T) {
	stateDir := filepath.Join(t.TempDir(), "nested", "state")

	lock, err := AcquireLock(stateDir)
	if err != nil {
		t.Fatalf("should create the directory and acquire the lock: %v", err)
	}
	defer lock.Release()

	if _, err := os.Stat(stateDir); os.IsNotExist(err) {
		t.Errorf("state directory should have been created: %s", stateDir)
	}
}
