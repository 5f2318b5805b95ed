package app

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/guanwill/restaurants-nearby/internal/domain"
	"github.com/guanwill/restaurants-nearby/internal/michelin"
)

type IngestionService struct {
	repo  domain.RestaurantRepository
	cache domain.Cache
	batch int
}

func NewIngestionService(r domain.RestaurantRepository, cache domain.Cache, batch int) *IngestionService {
	if batch <= 0 {
		batch = 200
	}
	return &IngestionService{repo: r, cache: cache, batch: batch}
}

// IngestCSV parses the Michelin dataset text and upserts it in batches.
// Malformed rows are dropped by the parser, not surfaced; the drop count
// is recorded so row totals can be audited later. After a successful load
// the dataset version is bumped so stale nearby caches stop matching.
func (s *IngestionService) IngestCSV(ctx context.Context, source, text string) (michelin.ParseStats, error) {
	rs, stats := michelin.Parse(text)
	if len(rs) == 0 {
		return stats, fmt.Errorf("dataset %q: no usable rows (saw %d, dropped %d)", source, stats.Rows, stats.Dropped)
	}

	for start := 0; start < len(rs); start += s.batch {
		end := min(start+s.batch, len(rs))
		if err := s.repo.UpsertRestaurants(ctx, rs[start:end]); err != nil {
			return stats, fmt.Errorf("upsert batch %d..%d failed: %w", start, end, err)
		}
	}

	if err := s.repo.LogIngest(ctx, source, len(rs), stats.Dropped); err != nil {
		log.Warn().Err(err).Str("source", source).Msg("ingest audit row failed")
	}

	if s.cache != nil {
		v := strconv.FormatInt(time.Now().Unix(), 10)
		// No TTL: the version lives until the next load replaces it.
		if err := s.cache.Set(ctx, datasetVersionKey, v, 0); err != nil {
			log.Warn().Err(err).Msg("dataset version bump failed")
		}
	}
	return stats, nil
}
