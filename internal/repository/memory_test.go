package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/MykolaKantsir/web/internal/domain"
)

func seedDrawing(t *testing.T, repo MeasuringRepository, id, filename string, at time.Time) {
	t.Helper()
	err := repo.CreateDrawing(context.Background(), &domain.Drawing{ID: id, Filename: filename, Width: 100, Height: 100, PageCount: 1, CreatedAt: at})
	if err != nil {
		t.Fatalf("CreateDrawing: %v", err)
	}
}

func TestMemoryDimensionsKeepAuthoringOrder(t *testing.T) {
	repo := NewMemoryRepository(zap.NewNop())
	ctx := context.Background()
	seedDrawing(t, repo, "d1", "PART-1.pdf", time.Now())

	for _, id := range []string{"c", "a", "b"} {
		if err := repo.SaveDimension(ctx, &domain.Dimension{ID: id, DrawingID: "d1", Value: 1}); err != nil {
			t.Fatalf("SaveDimension(%s): %v", id, err)
		}
	}
	// Updating keeps the position.
	if err := repo.SaveDimension(ctx, &domain.Dimension{ID: "c", DrawingID: "d1", Value: 2}); err != nil {
		t.Fatal(err)
	}

	dims, err := repo.ListDimensions(ctx, "d1")
	if err != nil {
		t.Fatal(err)
	}
	got := []string{dims[0].ID, dims[1].ID, dims[2].ID}
	if got[0] != "c" || got[1] != "a" || got[2] != "b" || len(dims) != 3 {
		t.Errorf("Expected [c a b], got %v", got)
	}
	if dims[0].Value != 2 {
		t.Errorf("update not applied: %+v", dims[0])
	}

	if err := repo.SaveDimension(ctx, &domain.Dimension{ID: "x", DrawingID: "missing"}); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown drawing, got %v", err)
	}
}

func TestMemoryFindDrawingPrefersNewest(t *testing.T) {
	repo := NewMemoryRepository(zap.NewNop())
	now := time.Now()
	seedDrawing(t, repo, "old", "Bracket-A.pdf", now.Add(-time.Hour))
	seedDrawing(t, repo, "new", "bracket-A rev2.pdf", now)
	seedDrawing(t, repo, "other", "Shaft.pdf", now.Add(time.Hour))

	d, err := repo.FindDrawing(context.Background(), "BRACKET")
	if err != nil || d.ID != "new" {
		t.Errorf("FindDrawing = %+v, %v; want new", d, err)
	}
	if _, err := repo.FindDrawing(context.Background(), "flange"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestMemoryPutMeasurement(t *testing.T) {
	repo := NewMemoryRepository(zap.NewNop())
	ctx := context.Background()
	seedDrawing(t, repo, "d1", "PART-1.pdf", time.Now())
	if err := repo.CreateProtocol(ctx, &domain.Protocol{ID: "p1", DrawingID: "d1", Status: domain.StatusOpen}); err != nil {
		t.Fatal(err)
	}
	if err := repo.CreateProtocol(ctx, &domain.Protocol{ID: "p1", DrawingID: "d1", Status: domain.StatusOpen}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for a second p1, got %v", err)
	}

	m := &domain.Measurement{ProtocolID: "p1", DimensionID: "dim1", Value: 10.5, Pass: true}
	if prev, err := repo.PutMeasurement(ctx, m, false); err != nil || prev != nil {
		t.Fatalf("first put: %+v, %v", prev, err)
	}

	dup := &domain.Measurement{ProtocolID: "p1", DimensionID: "dim1", Value: 10.9}
	prev, err := repo.PutMeasurement(ctx, dup, false)
	if err != nil || prev == nil || prev.Value != 10.5 {
		t.Fatalf("duplicate put: %+v, %v", prev, err)
	}

	if prev, err := repo.PutMeasurement(ctx, dup, true); err != nil || prev != nil {
		t.Fatalf("replace put: %+v, %v", prev, err)
	}
	list, _ := repo.ListMeasurements(ctx, "p1")
	if len(list) != 1 || list[0].Value != 10.9 {
		t.Errorf("Expected single replaced value, got %+v", list)
	}

	if err := repo.FinishProtocol(ctx, "p1", time.Now()); err != nil {
		t.Fatal(err)
	}
	if err := repo.FinishProtocol(ctx, "p1", time.Now()); !errors.Is(err, domain.ErrProtocolClosed) {
		t.Errorf("second finish: expected ErrProtocolClosed, got %v", err)
	}
	if _, err := repo.PutMeasurement(ctx, m, true); !errors.Is(err, domain.ErrProtocolClosed) {
		t.Errorf("Expected ErrProtocolClosed, got %v", err)
	}

	open, _ := repo.ListProtocols(ctx, "d1", domain.StatusOpen)
	all, _ := repo.ListProtocols(ctx, "d1", "")
	if len(open) != 0 || len(all) != 1 {
		t.Errorf("open=%d all=%d", len(open), len(all))
	}
}

func TestMemoryImageStore(t *testing.T) {
	store := NewMemoryImageStore()
	ctx := context.Background()

	if err := store.UploadFile(ctx, "drawings/a.png", []byte{1, 2, 3}, "image/png"); err != nil {
		t.Fatal(err)
	}
	data, err := store.DownloadFile(ctx, "drawings/a.png")
	if err != nil || len(data) != 3 {
		t.Fatalf("DownloadFile = %v, %v", data, err)
	}
	_ = store.DeleteFile(ctx, "drawings/a.png")
	if _, err := store.DownloadFile(ctx, "drawings/a.png"); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}
