package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLocalUploadStore_Save(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "static", "uploads")
	store := NewLocalUploadStore(dir)

	tests := []struct {
		name     string
		filename string
		expected string
	}{
		{"plain name", "photo.jpg", "photo.jpg"},
		{"spaces", "my holiday photo.PNG", "my_holiday_photo.PNG"},
		{"path traversal", "../../etc/passwd.jpg", "etc_passwd.jpg"},
		{"no extension", "README", "README"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path, err := store.Save(tt.filename, []byte("data"))
			if err != nil {
				t.Fatalf("Save failed: %v", err)
			}
			if path != filepath.Join(dir, tt.expected) {
				t.Errorf("Expected path %s, got %s", filepath.Join(dir, tt.expected), path)
			}
			if _, err := os.Stat(path); err != nil {
				t.Errorf("Expected file on disk: %v", err)
			}
		})
	}
}

func TestLocalUploadStore_SaveOverwrites(t *testing.T) {
	store := NewLocalUploadStore(t.TempDir())

	if _, err := store.Save("a.jpg", []byte("first upload")); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}
	path, err := store.Save("a.jpg", []byte("second"))
	if err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(got) != "second" {
		t.Errorf("Expected second upload to replace the first, got %q", got)
	}

	entries, _ := os.ReadDir(store.Dir())
	if len(entries) != 1 {
		t.Errorf("Expected a single stored file, got %d", len(entries))
	}
}

func TestLocalUploadStore_EmptyFilename(t *testing.T) {
	store := NewLocalUploadStore(t.TempDir())

	_, err := store.Save("日本語", []byte("x"))
	if !errors.Is(err, ErrEmptyFilename) {
		t.Errorf("Expected ErrEmptyFilename, got %v", err)
	}
}

func TestNoopArchive(t *testing.T) {
	archive := NewNoopArchive()
	if err := archive.Put(context.Background(), "a.jpg", []byte("x")); err != nil {
		t.Errorf("Expected nil error, got %v", err)
	}
	if archive.Name() != "none" {
		t.Errorf("Expected name none, got %s", archive.Name())
	}
}

func TestNewAzureArchive_InvalidKey(t *testing.T) {
	if _, err := NewAzureArchive("account", "not base64!", "uploads", ""); err == nil {
		t.Error("Expected error for a key that is not base64")
	}
}
