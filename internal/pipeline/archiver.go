package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/opinionterm/opiniond/internal/domain"
)

// Snapshots above this size go through the multipart upload path.
const multipartThreshold = 16 * 1024 * 1024

// Archiver writes periodic JSON snapshots of the market catalog to blob
// storage, one object per run, keyed by date.
type Archiver struct {
	catalog CatalogLoader
	writer  domain.BlobWriter
	logger  *slog.Logger
}

// NewArchiver creates a new Archiver.
func NewArchiver(catalog CatalogLoader, writer domain.BlobWriter, logger *slog.Logger) *Archiver {
	return &Archiver{catalog: catalog, writer: writer, logger: logger}
}

// snapshot is the archived document: the catalog plus capture metadata.
type snapshot struct {
	CapturedAt time.Time       `json:"captured_at"`
	Count      int             `json:"count"`
	Markets    []domain.Market `json:"markets"`
}

// Run captures one snapshot and uploads it.
func (a *Archiver) Run(ctx context.Context) error {
	markets, err := a.catalog.LoadAll(ctx)
	if err != nil {
		return fmt.Errorf("archiver: load catalog: %w", err)
	}

	now := time.Now().UTC()
	doc := snapshot{CapturedAt: now, Count: len(markets), Markets: markets}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("archiver: marshal snapshot: %w", err)
	}

	key := fmt.Sprintf("catalog/%s/%s.json", now.Format("2006/01/02"), uuid.NewString())
	if len(data) > multipartThreshold {
		err = a.writer.PutLarge(ctx, key, bytes.NewReader(data), 0)
	} else {
		err = a.writer.Put(ctx, key, bytes.NewReader(data), "application/json")
	}
	if err != nil {
		return fmt.Errorf("archiver: upload %s: %w", key, err)
	}

	a.logger.Info("catalog snapshot archived",
		slog.String("key", key),
		slog.Int("markets", len(markets)),
		slog.Int("bytes", len(data)),
	)
	return nil
}

// RunLoop archives on a repeating interval until the context is cancelled.
// Unlike the refresher there is no immediate first run; a snapshot right at
// startup would usually duplicate the previous process's last one.
func (a *Archiver) RunLoop(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.Run(ctx); err != nil {
				a.logger.Error("catalog archive failed", slog.String("error", err.Error()))
			}
		}
	}
}
