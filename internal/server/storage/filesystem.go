package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Store defines the interface for upload blob storage backends.
// This allows swapping the filesystem for S3 or other backends later.
type Store interface {
	Save(storedName string, data io.Reader) (int64, error)
	GetPath(storedName string) (string, error)
	Delete(storedName string) error
	DeleteAll() error
	List() ([]string, error)
	UsedBytes() (int64, error)
	EnsureDir() error
}

// FileSystemStore stores uploaded blobs on the local filesystem. Blobs are
// named by the caller, conventionally "<id>.<ext>".
type FileSystemStore struct {
	basePath string
}

// NewFileSystemStore creates a new filesystem storage backend.
func NewFileSystemStore(basePath string) *FileSystemStore {
	return &FileSystemStore{basePath: basePath}
}

// EnsureDir creates the upload directory if it doesn't exist.
func (fs *FileSystemStore) EnsureDir() error {
	if err := os.MkdirAll(fs.basePath, 0o755); err != nil {
		return fmt.Errorf("failed to create upload directory %s: %w", fs.basePath, err)
	}
	return nil
}

// Save writes data from a reader to a blob with the given stored name.
// Returns the number of bytes written.
func (fs *FileSystemStore) Save(storedName string, data io.Reader) (int64, error) {
	filePath := fs.filePath(storedName)

	file, err := os.Create(filePath)
	if err != nil {
		return 0, fmt.Errorf("failed to create file %s: %w", filePath, err)
	}
	defer file.Close()

	n, err := io.Copy(file, data)
	if err != nil {
		// Clean up partial file on error
		os.Remove(filePath)
		return 0, fmt.Errorf("failed to write file: %w", err)
	}

	return n, nil
}

// GetPath returns the absolute path to a stored blob.
// Returns an error if the blob does not exist.
func (fs *FileSystemStore) GetPath(storedName string) (string, error) {
	filePath := fs.filePath(storedName)

	if _, err := os.Stat(filePath); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("file not found: %s", storedName)
		}
		return "", fmt.Errorf("failed to stat file: %w", err)
	}

	return filePath, nil
}

// Delete removes a stored blob. Missing blobs are not an error.
func (fs *FileSystemStore) Delete(storedName string) error {
	filePath := fs.filePath(storedName)
	if err := os.Remove(filePath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file %s: %w", filePath, err)
	}
	return nil
}

// DeleteAll removes every regular file in the upload directory. Deletion is
// best-effort: every file is attempted, and the returned error reports how
// many failed.
func (fs *FileSystemStore) DeleteAll() error {
	entries, err := os.ReadDir(fs.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read upload directory: %w", err)
	}

	var failed int
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if err := os.Remove(filepath.Join(fs.basePath, entry.Name())); err != nil {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("failed to delete %d of %d files", failed, len(entries))
	}
	return nil
}

// List returns the names of all regular files in the upload directory.
func (fs *FileSystemStore) List() ([]string, error) {
	entries, err := os.ReadDir(fs.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read upload directory: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if !entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	return names, nil
}

// UsedBytes returns the total size of all stored blobs.
func (fs *FileSystemStore) UsedBytes() (int64, error) {
	entries, err := os.ReadDir(fs.basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read upload directory: %w", err)
	}

	var total int64
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		total += info.Size()
	}
	return total, nil
}

func (fs *FileSystemStore) filePath(storedName string) string {
	return filepath.Join(fs.basePath, storedName)
}
