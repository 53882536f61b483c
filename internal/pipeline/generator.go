package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/rain-station-coding/internal/domain"
	"github.com/couchcryptid/rain-station-coding/internal/observability"
)

// CodeStore is the read side of the station registry. Every lookup is
// restricted to active stations of the category being coded.
type CodeStore interface {
	// ActiveCodesWithPrefix lists the codes that start with prefix.
	ActiveCodesWithPrefix(ctx context.Context, prefix string) ([]string, error)

	// ActiveCodesInRange lists the numeric codes in [lo, hi).
	ActiveCodesInRange(ctx context.Context, lo, hi int64) ([]int64, error)

	// MaxRegistryID returns the highest persisted registry identifier, 0 when empty.
	MaxRegistryID(ctx context.Context) (int64, error)
}

// Generator allocates station codes quadrant by quadrant.
type Generator struct {
	store   CodeStore
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewGenerator creates a Generator backed by store.
func NewGenerator(store CodeStore, logger *slog.Logger, metrics *observability.Metrics) *Generator {
	return &Generator{store: store, logger: logger, metrics: metrics}
}

// Generate returns the next unused code for the quadrant containing (lat, lon).
// Sequences already persisted and sequences recorded in cache are both
// considered taken; the new sequence is added to cache before returning.
func (g *Generator) Generate(ctx context.Context, lat, lon float64, cache *domain.SequenceCache) (string, error) {
	prefix, err := domain.QuadrantPrefix(lat, lon)
	if err != nil {
		return "", err
	}
	lo, hi, err := domain.QuadrantRange(prefix)
	if err != nil {
		return "", err
	}

	persisted, err := g.store.ActiveCodesInRange(ctx, lo, hi)
	if err != nil {
		return "", fmt.Errorf("query quadrant %s: %w", prefix, err)
	}

	last := 0
	for _, code := range persisted {
		if code < lo || code >= hi {
			continue
		}
		last = max(last, domain.SequenceOf(code))
	}
	for _, seq := range cache.Sequences(prefix) {
		last = max(last, seq)
	}

	next := last + 1
	if next > domain.MaxSequence {
		g.metrics.QuadrantExhausted.Inc()
		return "", fmt.Errorf("%w: quadrant %s already holds sequence %d", domain.ErrQuadrantExhausted, prefix, last)
	}

	code, err := domain.RenderCode(prefix, next)
	if err != nil {
		return "", err
	}
	cache.Add(prefix, next)
	g.metrics.CodesGenerated.Inc()

	g.logger.Debug("code allocated",
		"quadrant", prefix,
		"sequence", next,
		"persisted", len(persisted),
	)
	return code, nil
}

// QuadrantUsage summarizes the persisted codes of one quadrant.
type QuadrantUsage struct {
	Prefix       string   `json:"prefix"`
	Codes        []string `json:"codes"`
	LastSequence int      `json:"last_sequence"`
	Remaining    int      `json:"remaining"`
}

// Inspect lists the active codes sharing prefix and the last sequence in use.
func (g *Generator) Inspect(ctx context.Context, prefix string) (QuadrantUsage, error) {
	if _, _, err := domain.QuadrantRange(prefix); err != nil {
		return QuadrantUsage{}, err
	}

	codes, err := g.store.ActiveCodesWithPrefix(ctx, prefix)
	if err != nil {
		return QuadrantUsage{}, fmt.Errorf("list quadrant %s: %w", prefix, err)
	}

	usage := QuadrantUsage{Prefix: prefix, Codes: codes}
	for _, c := range codes {
		n, err := domain.ParseCode(c)
		if err != nil {
			g.logger.Warn("skipping malformed stored code", "quadrant", prefix, "code", c)
			continue
		}
		usage.LastSequence = max(usage.LastSequence, domain.SequenceOf(n))
	}
	usage.Remaining = domain.MaxSequence - usage.LastSequence
	return usage, nil
}
