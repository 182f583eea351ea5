package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"syncbox/internal/server/config"
	"syncbox/internal/server/storage"
	"syncbox/internal/server/store"
)

// Sentinel errors for the service layer.
var (
	ErrNotFound            = errors.New("record not found")
	ErrEmptyText           = errors.New("text must not be empty")
	ErrInvalidURL          = errors.New("url must start with http:// or https://")
	ErrFileRequired        = errors.New("no file provided")
	ErrExtensionNotAllowed = errors.New("file type not allowed")
	ErrFileTooLarge        = errors.New("file exceeds maximum allowed size")
)

// allowedExtensions are the file types accepted for upload.
var allowedExtensions = map[string]bool{
	"txt": true, "pdf": true, "doc": true, "docx": true,
	"jpg": true, "jpeg": true, "png": true, "gif": true,
	"mp4": true, "mp3": true, "zip": true, "rar": true,
}

// ShortenResult is returned after shortening a URL. Reused reports whether
// an existing record was returned instead of minting a new code.
type ShortenResult struct {
	ShortURL  string `json:"short_url"`
	ShortCode string `json:"short_code"`
	Reused    bool   `json:"-"`
}

// URLEntry is a URL record annotated with its computed short URL.
type URLEntry struct {
	store.URLRecord
	ShortURL string `json:"short_url"`
}

// Stats holds aggregate server statistics.
type Stats struct {
	Texts       int   `json:"texts"`
	Files       int   `json:"files"`
	URLs        int   `json:"urls"`
	TotalClicks int64 `json:"total_clicks"`
	StorageUsed int64 `json:"storage_used_bytes"`
}

// SyncService contains the business logic for texts, file uploads and
// shortened URLs.
type SyncService struct {
	store *store.Store
	blobs storage.Store
	cfg   *config.Config
}

// NewSyncService creates a new sync service.
func NewSyncService(st *store.Store, blobs storage.Store, cfg *config.Config) *SyncService {
	return &SyncService{
		store: st,
		blobs: blobs,
		cfg:   cfg,
	}
}

// AppendText records a text snippet at the front of the texts collection,
// keeping only the most recent entries.
func (s *SyncService) AppendText(ctx context.Context, content, userAgent string) (*store.TextRecord, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyText
	}

	rec := store.TextRecord{
		ID:        uuid.NewString(),
		Content:   content,
		Type:      "text",
		Timestamp: time.Now().UTC(),
		Size:      int64(len(content)),
		UserAgent: userAgent,
	}

	err := s.store.Update(func(doc *store.Document) error {
		doc.PushText(rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save text: %w", err)
	}

	slog.Info("text synced", "id", rec.ID, "size", rec.Size)
	return &rec, nil
}

// AppendFile stores an uploaded file:
// validates the extension, writes the blob under "<id>.<ext>", and records
// the metadata at the front of the files collection.
func (s *SyncService) AppendFile(ctx context.Context, originalFilename string, data io.Reader, size int64, userAgent string) (*store.FileRecord, error) {
	if originalFilename == "" {
		return nil, ErrFileRequired
	}
	if size > s.cfg.MaxUploadSize {
		return nil, ErrFileTooLarge
	}

	filename := sanitizeFilename(originalFilename)

	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	if ext == "" || !allowedExtensions[ext] {
		return nil, ErrExtensionNotAllowed
	}

	fileID := uuid.NewString()
	storedName := fileID + "." + ext

	written, err := s.blobs.Save(storedName, data)
	if err != nil {
		return nil, fmt.Errorf("failed to store file: %w", err)
	}

	rec := store.FileRecord{
		ID:           fileID,
		OriginalName: filename,
		StoredName:   storedName,
		Type:         "file",
		Timestamp:    time.Now().UTC(),
		Size:         written,
		Extension:    ext,
		UserAgent:    userAgent,
	}

	err = s.store.Update(func(doc *store.Document) error {
		doc.PushFile(rec)
		return nil
	})
	if err != nil {
		// Clean up stored blob on record failure
		s.blobs.Delete(storedName)
		return nil, fmt.Errorf("failed to save file record: %w", err)
	}

	slog.Info("file uploaded",
		"id", fileID,
		"filename", filename,
		"size", written,
	)
	return &rec, nil
}

// ShortenURL returns a short URL for longURL. Submitting a URL that already
// has a live record returns its existing code without touching the store;
// otherwise the counter is advanced and a fresh code is minted.
func (s *SyncService) ShortenURL(ctx context.Context, longURL, userAgent string) (*ShortenResult, error) {
	longURL = strings.TrimSpace(longURL)
	if longURL == "" {
		return nil, ErrInvalidURL
	}
	if !strings.HasPrefix(longURL, "http://") && !strings.HasPrefix(longURL, "https://") {
		return nil, ErrInvalidURL
	}

	var result ShortenResult

	// Reuse check first: no mutation, no persist on a hit.
	var existing *store.URLRecord
	err := s.store.View(func(doc *store.Document) error {
		if rec, ok := doc.FindURLByLong(longURL); ok {
			existing = &rec
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load store: %w", err)
	}
	if existing != nil {
		result = ShortenResult{
			ShortURL:  s.shortURL(existing.ShortCode),
			ShortCode: existing.ShortCode,
			Reused:    true,
		}
		return &result, nil
	}

	err = s.store.Update(func(doc *store.Document) error {
		// Re-check under the lock; another request may have won the race.
		if rec, ok := doc.FindURLByLong(longURL); ok {
			result = ShortenResult{
				ShortURL:  s.shortURL(rec.ShortCode),
				ShortCode: rec.ShortCode,
				Reused:    true,
			}
			return nil
		}

		doc.URLCounter++
		code := store.ShortCode(doc.URLCounter)

		doc.PushURL(store.URLRecord{
			ID:        uuid.NewString(),
			LongURL:   longURL,
			ShortCode: code,
			Type:      "url",
			Timestamp: time.Now().UTC(),
			Clicks:    0,
			UserAgent: userAgent,
		})

		result = ShortenResult{
			ShortURL:  s.shortURL(code),
			ShortCode: code,
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save url: %w", err)
	}

	if !result.Reused {
		slog.Info("url shortened", "code", result.ShortCode, "long_url", longURL)
	}
	return &result, nil
}

// ResolveShortCode looks up a short code, bumps its click counter, and
// returns the record so the caller can redirect to the long URL.
func (s *SyncService) ResolveShortCode(ctx context.Context, code string) (*store.URLRecord, error) {
	var found *store.URLRecord

	err := s.store.Update(func(doc *store.Document) error {
		for i := range doc.URLs {
			if doc.URLs[i].ShortCode == code {
				doc.URLs[i].Clicks++
				rec := doc.URLs[i]
				found = &rec
				return nil
			}
		}
		return ErrNotFound
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to resolve short code: %w", err)
	}

	return found, nil
}

// RecentActivity merges texts and files, newest first, and returns the top
// five entries. Texts sort ahead of files on equal timestamps.
func (s *SyncService) RecentActivity(ctx context.Context) ([]any, error) {
	type entry struct {
		ts   time.Time
		item any
	}
	var entries []entry

	err := s.store.View(func(doc *store.Document) error {
		for _, t := range doc.Texts {
			entries = append(entries, entry{ts: t.Timestamp, item: t})
		}
		for _, f := range doc.Files {
			entries = append(entries, entry{ts: f.Timestamp, item: f})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load store: %w", err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ts.After(entries[j].ts)
	})

	if len(entries) > 5 {
		entries = entries[:5]
	}

	items := make([]any, len(entries))
	for i, e := range entries {
		items[i] = e.item
	}
	return items, nil
}

// URLHistory returns all live URL records, newest first, each annotated
// with its computed short URL.
func (s *SyncService) URLHistory(ctx context.Context) ([]URLEntry, error) {
	entries := []URLEntry{}

	err := s.store.View(func(doc *store.Document) error {
		for _, u := range doc.URLs {
			entries = append(entries, URLEntry{
				URLRecord: u,
				ShortURL:  s.shortURL(u.ShortCode),
			})
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load store: %w", err)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
	return entries, nil
}

// DeleteURL removes a URL record by id. The counter is never decremented,
// so re-adding the same long URL later mints a fresh code.
func (s *SyncService) DeleteURL(ctx context.Context, id string) error {
	err := s.store.Update(func(doc *store.Document) error {
		for i, u := range doc.URLs {
			if u.ID == id {
				doc.URLs = append(doc.URLs[:i], doc.URLs[i+1:]...)
				return nil
			}
		}
		return ErrNotFound
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete url: %w", err)
	}

	slog.Info("url deleted", "id", id)
	return nil
}

// ClearAll resets every collection and the counter, then deletes all
// uploaded blobs. Blob deletion is best-effort; the store reset always
// happens first.
func (s *SyncService) ClearAll(ctx context.Context) error {
	err := s.store.Update(func(doc *store.Document) error {
		doc.Texts = []store.TextRecord{}
		doc.Files = []store.FileRecord{}
		doc.URLs = []store.URLRecord{}
		doc.URLCounter = 0
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to reset store: %w", err)
	}

	if err := s.blobs.DeleteAll(); err != nil {
		return fmt.Errorf("history cleared but some files could not be removed: %w", err)
	}

	slog.Info("history cleared")
	return nil
}

// Download returns the on-disk path and original filename for a stored
// file.
func (s *SyncService) Download(ctx context.Context, id string) (filePath string, filename string, err error) {
	var rec store.FileRecord

	err = s.store.View(func(doc *store.Document) error {
		f, ok := doc.FindFile(id)
		if !ok {
			return ErrNotFound
		}
		rec = f
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", "", ErrNotFound
		}
		return "", "", fmt.Errorf("failed to load store: %w", err)
	}

	path, err := s.blobs.GetPath(rec.StoredName)
	if err != nil {
		// Record exists but the blob is gone.
		return "", "", ErrNotFound
	}

	return path, rec.OriginalName, nil
}

// GetStats returns aggregate server statistics.
func (s *SyncService) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.store.View(func(doc *store.Document) error {
		stats.Texts = len(doc.Texts)
		stats.Files = len(doc.Files)
		stats.URLs = len(doc.URLs)
		for _, u := range doc.URLs {
			stats.TotalClicks += u.Clicks
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load store: %w", err)
	}

	used, err := s.blobs.UsedBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to measure storage: %w", err)
	}
	stats.StorageUsed = used

	return stats, nil
}

// Ping verifies the data file is readable.
func (s *SyncService) Ping(ctx context.Context) error {
	return s.store.View(func(doc *store.Document) error { return nil })
}

func (s *SyncService) shortURL(code string) string {
	return fmt.Sprintf("%s/s/%s", s.cfg.BaseURL, code)
}

// sanitizeFilename strips directory components, replaces unsafe characters,
// and limits length.
func sanitizeFilename(name string) string {
	// Normalize Windows-style backslashes to forward slashes before
	// calling filepath.Base, which is platform-specific.
	name = strings.ReplaceAll(name, "\\", "/")

	// Take only the base name
	name = filepath.Base(name)

	// Keep alphanumerics, dot, dash and underscore; everything else
	// becomes an underscore.
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.' || r == '-' || r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	name = b.String()

	// Limit length. The extension itself can exceed the limit (a long name
	// with an early dot), so clamp it first to keep the slice bounds valid.
	if len(name) > 255 {
		ext := filepath.Ext(name)
		if len(ext) > 255 {
			ext = ext[:255]
		}
		name = name[:255-len(ext)] + ext
	}

	if name == "" || name == "." || strings.Trim(name, "._-") == "" {
		name = "upload"
	}

	return name
}
