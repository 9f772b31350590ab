package drivers

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLocalFSDriver_DirectoryHashing(t *testing.T) {
	tempDir := t.TempDir()

	driver, err := NewLocalFSDriver(tempDir, "/api/v1/files/")
	if err != nil {
		t.Fatalf("failed to create driver: %v", err)
	}

	ctx := context.Background()
	key := "portfolios/stu-42.json"
	content := []byte(`{"studentId":"stu-42"}`)

	if err := driver.Save(ctx, key, bytes.NewReader(content), "application/json"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// portfolios/stu-42.json should be at portfolios/st/u-/stu-42.json
	fullPath := filepath.Join(tempDir, "portfolios", "st", "u-", "stu-42.json")
	if _, err := os.Stat(fullPath); err != nil {
		t.Fatalf("file not found at hashed path %s: %v", fullPath, err)
	}

	reader, contentType, err := driver.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	got, _ := io.ReadAll(reader)
	reader.Close()
	if !bytes.Equal(got, content) {
		t.Errorf("unexpected content: %s", got)
	}
	if contentType != "application/json" {
		t.Errorf("expected content type application/json, got %s", contentType)
	}

	url, err := driver.GenerateURL(ctx, key, 0)
	if err != nil {
		t.Fatalf("GenerateURL failed: %v", err)
	}
	if url != "/api/v1/files/"+key {
		t.Errorf("unexpected URL: %s", url)
	}

	if err := driver.Delete(ctx, key); err != nil {
		t.Errorf("Delete failed: %v", err)
	}
	if _, err := os.Stat(fullPath); !os.IsNotExist(err) {
		t.Error("file still exists after deletion")
	}
	if err := driver.Delete(ctx, key); err != nil {
		t.Errorf("second Delete should be a no-op, got %v", err)
	}
}

func TestLocalFSDriver_Overwrite(t *testing.T) {
	driver, err := NewLocalFSDriver(t.TempDir(), "")
	if err != nil {
		t.Fatalf("failed to create driver: %v", err)
	}
	ctx := context.Background()

	for _, body := range []string{"v1", "version two"} {
		if err := driver.Save(ctx, "snap.json", strings.NewReader(body), "application/json"); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	reader, _, err := driver.Get(ctx, "snap.json")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	defer reader.Close()
	got, _ := io.ReadAll(reader)
	if string(got) != "version two" {
		t.Errorf("expected latest content, got %q", got)
	}

	url, _ := driver.GenerateURL(ctx, "snap.json", 0)
	if url != "snap.json" {
		t.Errorf("expected bare key without public URL, got %s", url)
	}
}

func TestLocalFSDriver_InvalidKeys(t *testing.T) {
	driver, err := NewLocalFSDriver(t.TempDir(), "")
	if err != nil {
		t.Fatalf("failed to create driver: %v", err)
	}
	ctx := context.Background()

	for _, key := range []string{"", "../escape.json", "/abs.json", "a/../../b.json", "dir/"} {
		if err := driver.Save(ctx, key, strings.NewReader("x"), "text/plain"); err == nil {
			t.Errorf("expected Save to reject key %q", key)
		}
	}

	if _, _, err := driver.Get(ctx, "portfolios/missing.json"); err != ErrObjectNotFound {
		t.Errorf("expected ErrObjectNotFound, got %v", err)
	}
}
