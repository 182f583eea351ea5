package storage

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"syncbox/internal/server/store"
)

func TestFileSystemStore_Save(t *testing.T) {
	t.Run("saves blob to disk", func(t *testing.T) {
		dir := t.TempDir()
		fs := NewFileSystemStore(dir)

		data := bytes.NewReader([]byte("test content"))
		n, err := fs.Save("abc123.txt", data)
		require.NoError(t, err)
		assert.Equal(t, int64(12), n)

		content, err := os.ReadFile(filepath.Join(dir, "abc123.txt"))
		require.NoError(t, err)
		assert.Equal(t, "test content", string(content))
	})

	t.Run("saves large content", func(t *testing.T) {
		dir := t.TempDir()
		fs := NewFileSystemStore(dir)

		largeContent := strings.Repeat("x", 1024*1024) // 1MB
		n, err := fs.Save("large.zip", bytes.NewReader([]byte(largeContent)))
		require.NoError(t, err)
		assert.Equal(t, int64(len(largeContent)), n)
	})
}

func TestFileSystemStore_GetPath(t *testing.T) {
	t.Run("returns path for existing blob", func(t *testing.T) {
		dir := t.TempDir()
		fs := NewFileSystemStore(dir)

		filePath := filepath.Join(dir, "test123.pdf")
		require.NoError(t, os.WriteFile(filePath, []byte("data"), 0o644))

		path, err := fs.GetPath("test123.pdf")
		require.NoError(t, err)
		assert.Equal(t, filePath, path)
	})

	t.Run("returns error for missing blob", func(t *testing.T) {
		fs := NewFileSystemStore(t.TempDir())

		_, err := fs.GetPath("nonexistent.txt")
		assert.Error(t, err)
	})
}

func TestFileSystemStore_Delete(t *testing.T) {
	t.Run("deletes existing blob", func(t *testing.T) {
		dir := t.TempDir()
		fs := NewFileSystemStore(dir)

		filePath := filepath.Join(dir, "del123.png")
		require.NoError(t, os.WriteFile(filePath, []byte("data"), 0o644))

		require.NoError(t, fs.Delete("del123.png"))

		_, err := os.Stat(filePath)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("no error for missing blob", func(t *testing.T) {
		fs := NewFileSystemStore(t.TempDir())
		assert.NoError(t, fs.Delete("nonexistent.txt"))
	})
}

func TestFileSystemStore_DeleteAll(t *testing.T) {
	t.Run("removes every blob", func(t *testing.T) {
		dir := t.TempDir()
		fs := NewFileSystemStore(dir)

		for _, name := range []string{"a.txt", "b.pdf", "c.png"} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
		}

		require.NoError(t, fs.DeleteAll())

		names, err := fs.List()
		require.NoError(t, err)
		assert.Empty(t, names)
	})

	t.Run("no error for missing directory", func(t *testing.T) {
		fs := NewFileSystemStore(filepath.Join(t.TempDir(), "missing"))
		assert.NoError(t, fs.DeleteAll())
	})
}

func TestFileSystemStore_UsedBytes(t *testing.T) {
	dir := t.TempDir()
	fs := NewFileSystemStore(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("world!"), 0o644))

	total, err := fs.UsedBytes()
	require.NoError(t, err)
	assert.Equal(t, int64(11), total)
}

func TestFileSystemStore_EnsureDir(t *testing.T) {
	t.Run("creates directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "uploads")
		fs := NewFileSystemStore(dir)

		require.NoError(t, fs.EnsureDir())

		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	})

	t.Run("succeeds if directory exists", func(t *testing.T) {
		fs := NewFileSystemStore(t.TempDir())
		assert.NoError(t, fs.EnsureDir())
	})
}

func TestOrphanScanner(t *testing.T) {
	newFixture := func(t *testing.T) (*store.Store, *FileSystemStore, string) {
		t.Helper()
		dir := t.TempDir()
		st, err := store.New(filepath.Join(dir, "sync_data.json"))
		require.NoError(t, err)
		blobDir := filepath.Join(dir, "uploads")
		fs := NewFileSystemStore(blobDir)
		require.NoError(t, fs.EnsureDir())
		return st, fs, blobDir
	}

	t.Run("reports blobs with no live record", func(t *testing.T) {
		st, fs, blobDir := newFixture(t)

		require.NoError(t, os.WriteFile(filepath.Join(blobDir, "live.txt"), []byte("x"), 0o644))
		require.NoError(t, os.WriteFile(filepath.Join(blobDir, "orphan.txt"), []byte("x"), 0o644))

		err := st.Update(func(doc *store.Document) error {
			doc.PushFile(store.FileRecord{ID: "f1", StoredName: "live.txt", Timestamp: time.Now()})
			return nil
		})
		require.NoError(t, err)

		sc := NewOrphanScanner(st, fs, time.Hour)
		orphans, err := sc.Orphans()
		require.NoError(t, err)
		assert.Equal(t, []string{"orphan.txt"}, orphans)
	})

	t.Run("never deletes blobs", func(t *testing.T) {
		st, fs, blobDir := newFixture(t)

		orphanPath := filepath.Join(blobDir, "orphan.txt")
		require.NoError(t, os.WriteFile(orphanPath, []byte("x"), 0o644))

		sc := NewOrphanScanner(st, fs, time.Hour)
		sc.runScan()

		_, err := os.Stat(orphanPath)
		assert.NoError(t, err, "scanner must leave orphaned blobs in place")
	})

	t.Run("stops cleanly", func(t *testing.T) {
		st, fs, _ := newFixture(t)

		sc := NewOrphanScanner(st, fs, time.Hour)
		ctx, cancel := context.WithCancel(context.Background())
		sc.Start(ctx)
		cancel()
		sc.Wait()
	})
}
