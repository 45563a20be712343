package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/opinionterm/opiniond/internal/domain"
)

type stubLoader struct {
	markets []domain.Market
	err     error
}

func (s *stubLoader) LoadAll(ctx context.Context) ([]domain.Market, error) {
	return s.markets, s.err
}

type stubStore struct {
	domain.MarketStore
	upserts [][]domain.Market
	err     error
}

func (s *stubStore) UpsertBatch(ctx context.Context, markets []domain.Market) error {
	s.upserts = append(s.upserts, markets)
	return s.err
}

type stubWriter struct {
	keys   []string
	bodies [][]byte
}

func (w *stubWriter) Put(ctx context.Context, path string, data io.Reader, contentType string) error {
	body, _ := io.ReadAll(data)
	w.keys = append(w.keys, path)
	w.bodies = append(w.bodies, body)
	return nil
}

func (w *stubWriter) PutLarge(ctx context.Context, path string, data io.Reader, partSize int64) error {
	return w.Put(ctx, path, data, "")
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(discard{}, nil))
}

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

func TestRefresherPersistsCatalog(t *testing.T) {
	store := &stubStore{}
	r := NewRefresher(&stubLoader{markets: []domain.Market{{ID: 1}, {ID: 2}}}, store, testLogger())

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(store.upserts) != 1 || len(store.upserts[0]) != 2 {
		t.Fatalf("upserts = %+v", store.upserts)
	}
}

func TestRefresherSkipsEmptyCatalog(t *testing.T) {
	store := &stubStore{}
	r := NewRefresher(&stubLoader{}, store, testLogger())

	if err := r.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(store.upserts) != 0 {
		t.Fatalf("expected no upserts for empty catalog, got %+v", store.upserts)
	}
}

func TestRefresherPropagatesLoadError(t *testing.T) {
	r := NewRefresher(&stubLoader{err: errors.New("upstream down")}, &stubStore{}, testLogger())
	if err := r.Run(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestArchiverWritesDatedSnapshot(t *testing.T) {
	writer := &stubWriter{}
	a := NewArchiver(&stubLoader{markets: []domain.Market{{ID: 7, Title: "m"}}}, writer, testLogger())

	if err := a.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(writer.keys) != 1 {
		t.Fatalf("keys = %v", writer.keys)
	}
	key := writer.keys[0]
	if !strings.HasPrefix(key, "catalog/") || !strings.HasSuffix(key, ".json") {
		t.Errorf("key = %q, want catalog/YYYY/MM/DD/<id>.json shape", key)
	}

	var doc struct {
		Count   int             `json:"count"`
		Markets []domain.Market `json:"markets"`
	}
	if err := json.Unmarshal(writer.bodies[0], &doc); err != nil {
		t.Fatalf("unmarshal snapshot: %v", err)
	}
	if doc.Count != 1 || len(doc.Markets) != 1 || doc.Markets[0].ID != 7 {
		t.Errorf("snapshot = %+v", doc)
	}
}
