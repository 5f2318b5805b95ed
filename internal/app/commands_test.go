package app_test

import (
	"context"
	"testing"

	"github.com/guanwill/restaurants-nearby/internal/app"
	"github.com/guanwill/restaurants-nearby/internal/domain"
)

type recordingRepo struct {
	fakeRepo
	upserts [][]domain.Restaurant
	logged  struct {
		kept, dropped int
	}
}

func (r *recordingRepo) UpsertRestaurants(ctx context.Context, rs []domain.Restaurant) error {
	r.upserts = append(r.upserts, rs)
	return nil
}

func (r *recordingRepo) LogIngest(ctx context.Context, source string, kept, dropped int) error {
	r.logged.kept, r.logged.dropped = kept, dropped
	return nil
}

func TestIngestCSV_BatchesAndAudits(t *testing.T) {
	csv := "Name,Latitude,Longitude\n" +
		"A,1.0,1.0\nB,2.0,2.0\nC,3.0,3.0\n" +
		"broken,,\n"

	repo := &recordingRepo{}
	cache := &fakeCache{}
	ing := app.NewIngestionService(repo, cache, 2)

	stats, err := ing.IngestCSV(context.Background(), "guide.csv", csv)
	if err != nil {
		t.Fatalf("err: %v", err)
	}
	if stats.Rows != 4 || stats.Dropped != 1 {
		t.Fatalf("unexpected stats: %+v", stats)
	}
	if len(repo.upserts) != 2 || len(repo.upserts[0]) != 2 || len(repo.upserts[1]) != 1 {
		t.Fatalf("batching wrong: %d batches", len(repo.upserts))
	}
	if repo.logged.kept != 3 || repo.logged.dropped != 1 {
		t.Fatalf("audit row wrong: %+v", repo.logged)
	}
	if _, ok := cache.store["michelin:version"]; !ok {
		t.Fatalf("dataset version not bumped")
	}
}

func TestIngestCSV_EmptyDatasetIsAnError(t *testing.T) {
	repo := &recordingRepo{}
	ing := app.NewIngestionService(repo, &fakeCache{}, 0)

	if _, err := ing.IngestCSV(context.Background(), "empty.csv", "Name,Latitude,Longitude\n"); err == nil {
		t.Fatalf("header-only dataset must surface a typed failure")
	}
	if len(repo.upserts) != 0 {
		t.Fatalf("nothing should be written for an unusable dataset")
	}
}
