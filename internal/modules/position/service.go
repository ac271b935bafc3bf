package position

import (
	"context"
	"errors"
	"time"
)

// Service drives the sample loop against a FixProvider.
type Service struct {
	provider FixProvider
	now      func() time.Time
}

func NewService(provider FixProvider) *Service {
	return &Service{provider: provider, now: time.Now}
}

// Acquire requests successive fixes until one meets the required accuracy,
// the sample budget is spent, or the time budget expires. Among all fixes
// obtained it returns the most precise one, not necessarily the last.
// It never downgrades a failure to a default position.
func (s *Service) Acquire(ctx context.Context, cfg Config) (Sample, error) {
	cfg = cfg.withDefaults()

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	var (
		best    Fix
		haveFix bool
	)
	for i := 0; i < cfg.MaxSamples; i++ {
		if ctx.Err() != nil {
			break
		}
		fix, err := s.provider.CurrentFix(ctx, cfg.EnableHighAccuracy)
		if err != nil {
			if errors.Is(err, ErrPermissionDenied) {
				return Sample{}, ErrPermissionDenied
			}
			if ctx.Err() != nil {
				break
			}
			// Transient provider error; remaining budget may still yield a fix.
			continue
		}
		if !haveFix || fix.AccuracyMeters < best.AccuracyMeters {
			best = fix
			haveFix = true
		}
		if best.AccuracyMeters <= cfg.RequiredAccuracyMeters {
			return s.sample(best), nil
		}
	}

	if !haveFix {
		// A caller abort is not a provider failure; report it as such.
		if err := ctx.Err(); err != nil {
			return Sample{}, err
		}
		return Sample{}, ErrProviderUnavailable
	}
	if best.AccuracyMeters > cfg.RequiredAccuracyMeters {
		return Sample{}, ErrAccuracyUnattainable
	}
	return s.sample(best), nil
}

func (s *Service) sample(f Fix) Sample {
	return Sample{
		Point:          f.Point,
		AccuracyMeters: f.AccuracyMeters,
		CapturedAt:     s.now().UTC(),
	}
}
