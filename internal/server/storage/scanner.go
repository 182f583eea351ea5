package storage

import (
	"context"
	"log/slog"
	"time"

	"syncbox/internal/server/store"
)

// OrphanScanner periodically diffs the upload directory against the live
// file records and reports blobs that nothing references anymore. Records
// that age out of the files cap leave their blobs behind; that is existing
// behavior callers rely on, so the scanner only observes and never deletes.
type OrphanScanner struct {
	store    *store.Store
	blobs    Store
	interval time.Duration
	done     chan struct{}
}

// NewOrphanScanner creates a new orphan scanner.
func NewOrphanScanner(st *store.Store, blobs Store, interval time.Duration) *OrphanScanner {
	return &OrphanScanner{
		store:    st,
		blobs:    blobs,
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start begins the scan loop in a background goroutine.
func (sc *OrphanScanner) Start(ctx context.Context) {
	slog.Info("orphan scanner started", "interval", sc.interval)

	go func() {
		ticker := time.NewTicker(sc.interval)
		defer ticker.Stop()

		// Run once immediately on start
		sc.runScan()

		for {
			select {
			case <-ticker.C:
				sc.runScan()
			case <-ctx.Done():
				slog.Info("orphan scanner stopping")
				close(sc.done)
				return
			}
		}
	}()
}

// Wait blocks until the scanner has fully stopped.
func (sc *OrphanScanner) Wait() {
	<-sc.done
}

func (sc *OrphanScanner) runScan() {
	orphans, err := sc.Orphans()
	if err != nil {
		slog.Error("orphan scan failed", "error", err)
		return
	}

	if len(orphans) == 0 {
		return
	}

	slog.Warn("unreferenced blobs in upload directory",
		"count", len(orphans),
		"blobs", orphans,
	)
}

// Orphans returns the stored names present in the upload directory that no
// live file record references.
func (sc *OrphanScanner) Orphans() ([]string, error) {
	names, err := sc.blobs.List()
	if err != nil {
		return nil, err
	}

	live := make(map[string]bool)
	err = sc.store.View(func(doc *store.Document) error {
		for _, f := range doc.Files {
			live[f.StoredName] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var orphans []string
	for _, name := range names {
		if !live[name] {
			orphans = append(orphans, name)
		}
	}
	return orphans, nil
}
