package voice

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// Adapter implements the synthesis policy: try the primary engine, fall back
// once to the secondary, and in developer mode produce a silent placeholder
// instead of failing the run. Engine selection happens at call time based on
// observed failure, never up front.
type Adapter struct {
	primary             Engine
	fallback            Engine
	developerMode       bool
	placeholderDuration time.Duration
	logger              *slog.Logger
}

// NewAdapter wires the two engines. primary may be nil when the remote
// engine's credentials are absent; the adapter then starts on the fallback.
func NewAdapter(primary, fallback Engine, developerMode bool, placeholderDuration time.Duration, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		primary:             primary,
		fallback:            fallback,
		developerMode:       developerMode,
		placeholderDuration: placeholderDuration,
		logger:              logger,
	}
}

// Synthesize produces the voiceover at outPath and reports which engine made
// it. Every degradation leaves a warning in the result so metadata never
// claims a clean primary success that did not happen.
func (a *Adapter) Synthesize(ctx context.Context, text string, outPath string) (Result, error) {
	res := Result{Path: outPath}

	if a.primary != nil {
		if err := a.primary.Synthesize(ctx, text, outPath); err == nil {
			res.Engine = a.primary.Name()
			return res, nil
		} else {
			warn := fmt.Sprintf("%s engine failed: %v", a.primary.Name(), err)
			res.Warnings = append(res.Warnings, warn)
			a.logger.Warn("primary voice engine failed, trying fallback", "engine", a.primary.Name(), "error", err)
			if ctx.Err() != nil {
				return res, fmt.Errorf("%w: %v", ErrSynthesisFailed, ctx.Err())
			}
		}
	} else {
		res.Warnings = append(res.Warnings, "primary voice engine not configured")
		a.logger.Warn("primary voice engine not configured, using fallback")
	}

	if a.fallback != nil {
		if err := a.fallback.Synthesize(ctx, text, outPath); err == nil {
			res.Engine = a.fallback.Name()
			return res, nil
		} else {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s engine failed: %v", a.fallback.Name(), err))
			a.logger.Warn("fallback voice engine failed", "engine", a.fallback.Name(), "error", err)
			if ctx.Err() != nil {
				return res, fmt.Errorf("%w: %v", ErrSynthesisFailed, ctx.Err())
			}
		}
	}

	if a.developerMode {
		if err := WritePlaceholderWAV(outPath, a.placeholderDuration); err != nil {
			return res, fmt.Errorf("%w: placeholder: %v", ErrSynthesisFailed, err)
		}
		res.Engine = EnginePlaceholder
		res.Placeholder = true
		res.Warnings = append(res.Warnings, "all engines failed; produced silent placeholder audio")
		a.logger.Warn("all voice engines failed, produced placeholder audio", "duration", a.placeholderDuration)
		return res, nil
	}

	return res, fmt.Errorf("%w: all engines exhausted", ErrSynthesisFailed)
}
