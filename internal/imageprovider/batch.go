package imageprovider

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/precivox/precivox-images/internal/logger"
)

// ResolveMany resolves titles in windows of the configured batch size. Titles
// within a window resolve concurrently; windows run one after another with the
// batch delay in between. Every title gets an entry in the result, a
// placeholder when it failed or when ctx ended before its window ran.
// Duplicate titles share one entry.
func (s *Service) ResolveMany(ctx context.Context, titles []string, scope string) map[string]string {
	results := make(map[string]string, len(titles))
	if len(titles) == 0 {
		return results
	}

	start := time.Now()
	windows := 0
	log := s.log.WithContext(ctx).With(
		logger.Int("titles", len(titles)),
		logger.Int("batch_size", s.batchSize))
	log.Debug("batch resolution started")

	for offset := 0; offset < len(titles); offset += s.batchSize {
		if ctx.Err() != nil {
			s.abandon(titles[offset:], results, start)
			log.Warn("batch resolution cancelled",
				logger.Int("resolved", offset),
				logger.Error(ctx.Err()))
			return results
		}

		end := min(offset+s.batchSize, len(titles))
		window := titles[offset:end]
		outcomes := make([]string, len(window))

		var g errgroup.Group
		for i, title := range window {
			g.Go(func() error {
				outcomes[i] = s.ResolveOne(ctx, title, scope)
				return nil
			})
		}
		_ = g.Wait()

		for i, title := range window {
			results[title] = outcomes[i]
		}
		windows++

		if end < len(titles) && s.batchDelay > 0 {
			timer := time.NewTimer(s.batchDelay)
			select {
			case <-ctx.Done():
				timer.Stop()
				s.abandon(titles[end:], results, start)
				log.Warn("batch resolution cancelled between windows",
					logger.Int("resolved", end),
					logger.Error(ctx.Err()))
				return results
			case <-timer.C:
			}
		}
	}

	log.Info("batch resolution completed",
		logger.Int("windows", windows),
		logger.Int("unique_titles", len(results)),
		logger.Duration("elapsed", time.Since(start)))
	return results
}

// abandon fills the result for titles that will not be resolved.
func (s *Service) abandon(titles []string, results map[string]string, start time.Time) {
	for _, title := range titles {
		results[title] = s.placeholder(title, ReasonCancelled, start)
	}
}
