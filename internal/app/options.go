package app

import (
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"cyber-sensei-progress/internal/domain"
)

// Option configures stores and challenge boards.
type Option func(*settings)

type settings struct {
	now        func() time.Time
	loc        *time.Location
	newID      func() string
	logger     *zap.Logger
	metrics    *Metrics
	catalog    []domain.Achievement
	challenges []domain.Challenge
}

func newSettings(opts []Option) settings {
	s := settings{
		now:        time.Now,
		loc:        time.UTC,
		newID:      uuid.NewString,
		logger:     zap.NewNop(),
		catalog:    domain.Achievements(),
		challenges: domain.DailyChallenges(),
	}
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

func (s settings) mutation() mutation {
	return mutation{now: s.now(), loc: s.loc, newID: s.newID}
}

// WithClock replaces time.Now, mainly for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *settings) { s.now = now }
}

// WithLocation sets the time zone calendar days are counted in.
func WithLocation(loc *time.Location) Option {
	return func(s *settings) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithIDGenerator replaces the activity entry id generator.
func WithIDGenerator(newID func() string) Option {
	return func(s *settings) { s.newID = newID }
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *settings) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(metrics *Metrics) Option {
	return func(s *settings) { s.metrics = metrics }
}

// WithCatalog overrides the achievement catalog.
func WithCatalog(catalog []domain.Achievement) Option {
	return func(s *settings) { s.catalog = catalog }
}

// WithChallenges overrides the daily challenge catalog.
func WithChallenges(challenges []domain.Challenge) Option {
	return func(s *settings) { s.challenges = challenges }
}
