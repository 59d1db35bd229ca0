package monitor

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// MediaIndex lists the media paths records currently point at.
type MediaIndex interface {
	MediaPaths(ctx context.Context) ([]string, error)
}

// AssetStore is the view of the upload directory the sweeper needs.
type AssetStore interface {
	Files() (map[string]time.Time, error)
	Tracked(p string) bool
	ScheduleRemoval(p string)
}

// AssetSweeper periodically removes uploaded files that no record references.
// Files younger than the grace period and uploads still in flight are left alone.
type AssetSweeper struct {
	records  MediaIndex
	assets   AssetStore
	interval time.Duration
	grace    time.Duration
	now      func() time.Time
}

// NewAssetSweeper creates and returns a new instance of AssetSweeper.
func NewAssetSweeper(records MediaIndex, assets AssetStore, interval, grace time.Duration) *AssetSweeper {
	return &AssetSweeper{
		records:  records,
		assets:   assets,
		interval: interval,
		grace:    grace,
		now:      time.Now,
	}
}

// Start runs a sweep immediately and then once per interval until ctx is done.
func (s *AssetSweeper) Start(ctx context.Context) {
	log.Info().Dur("interval", s.interval).Dur("grace", s.grace).Msg("Starting asset sweeper")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if _, err := s.Sweep(ctx); err != nil {
			log.Error().Err(err).Msg("Asset sweep failed")
		}
		select {
		case <-ctx.Done():
			log.Info().Msg("Asset sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

// Sweep schedules every orphaned file for removal and returns how many were found.
func (s *AssetSweeper) Sweep(ctx context.Context) (int, error) {
	files, err := s.assets.Files()
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		return 0, nil
	}

	referenced, err := s.records.MediaPaths(ctx)
	if err != nil {
		return 0, err
	}
	inUse := make(map[string]struct{}, len(referenced))
	for _, p := range referenced {
		inUse[cleanPath(p)] = struct{}{}
	}

	cutoff := s.now().Add(-s.grace)
	orphans := 0
	for p, modified := range files {
		if _, ok := inUse[p]; ok {
			continue
		}
		if modified.After(cutoff) || s.assets.Tracked(p) {
			continue
		}
		s.assets.ScheduleRemoval(p)
		orphans++
	}

	log.Info().Int("files", len(files)).Int("referenced", len(inUse)).Int("orphans", orphans).Msg("Asset sweep completed")
	return orphans, nil
}

func cleanPath(p string) string {
	return strings.TrimPrefix(path.Clean("/"+p), "/")
}
