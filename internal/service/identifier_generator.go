package service

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/voc-service/internal/domain"
	"github.com/spec-kit/voc-service/internal/repository"
)

const (
	identifierPrefix = "VOC"
	identifierDate   = "20060102"
)

// FormatIdentifier renders VOC-<yyyyMMdd>-<5 digit sequence>.
func FormatIdentifier(day string, seq int64) string {
	return fmt.Sprintf("%s-%s-%05d", identifierPrefix, day, seq)
}

func identifierDayPrefix(day string) string {
	return identifierPrefix + "-" + day + "-"
}

type identifierStore interface {
	ExistsByIdentifier(ctx context.Context, identifier string) (bool, error)
}

// IdentifierGenerator produces date scoped ticket identifiers and skips ones already taken.
type IdentifierGenerator struct {
	sequence   repository.SequenceRepository
	store      identifierStore
	maxRetries int
	now        Clock
	logger     *zap.Logger
}

// NewIdentifierGenerator constructs the generator. maxRetries below one is treated as one.
func NewIdentifierGenerator(sequence repository.SequenceRepository, store identifierStore, maxRetries int, clock Clock, logger *zap.Logger) *IdentifierGenerator {
	if maxRetries < 1 {
		maxRetries = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentifierGenerator{
		sequence:   sequence,
		store:      store,
		maxRetries: maxRetries,
		now:        clock,
		logger:     logger,
	}
}

// MaxRetries returns the collision bound.
func (g *IdentifierGenerator) MaxRetries() int {
	return g.maxRetries
}

// Generate returns a candidate that did not exist at check time.
func (g *IdentifierGenerator) Generate(ctx context.Context) (string, error) {
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		candidate, free, err := g.Candidate(ctx, attempt)
		if err != nil {
			return "", err
		}
		if free {
			return candidate, nil
		}
	}
	return "", &domain.IdentifierGenerationError{MaxRetries: g.maxRetries}
}

// Candidate draws one identifier from the sequence and reports whether it was free at
// check time. Callers that also count insert collisions drive the retry loop themselves.
func (g *IdentifierGenerator) Candidate(ctx context.Context, attempt int) (string, bool, error) {
	day := g.now().Format(identifierDate)
	seq, err := g.sequence.Next(ctx, day)
	if err != nil {
		return "", false, fmt.Errorf("next ticket sequence: %w", err)
	}
	candidate := FormatIdentifier(day, seq)

	exists, err := g.store.ExistsByIdentifier(ctx, candidate)
	if err != nil {
		return "", false, fmt.Errorf("check identifier %s: %w", candidate, err)
	}
	if exists {
		g.logger.Debug("ticket identifier collision",
			zap.String("identifier", candidate),
			zap.Int("attempt", attempt))
		return "", false, nil
	}
	return candidate, true, nil
}

type maxSequenceStore interface {
	MaxSequenceWithPrefix(ctx context.Context, prefix string) (int64, error)
}

// SeedFromStore returns a seed reading the highest stored sequence for a day.
func SeedFromStore(store maxSequenceStore) repository.SeedFunc {
	return func(ctx context.Context, day string) (int64, error) {
		seq, err := store.MaxSequenceWithPrefix(ctx, identifierDayPrefix(day))
		if err != nil {
			return 0, fmt.Errorf("max identifier for %s: %w", day, err)
		}
		return seq, nil
	}
}

// memorySequence counts in process, seeded from the store on the first call of each day.
// It serves single-instance deployments that run without Redis.
type memorySequence struct {
	seed repository.SeedFunc
	mu   sync.Mutex
	day  string
	last int64
}

// NewMemorySequence builds an in-process sequence.
func NewMemorySequence(seed repository.SeedFunc) repository.SequenceRepository {
	return &memorySequence{seed: seed}
}

func (s *memorySequence) Next(ctx context.Context, day string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.day != day {
		start, err := s.seed(ctx, day)
		if err != nil {
			return 0, err
		}
		s.day = day
		s.last = start
	}
	s.last++
	return s.last, nil
}
