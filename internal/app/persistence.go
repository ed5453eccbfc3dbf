package app

import (
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"cyber-sensei-progress/internal/domain"
)

// KVStore abstracts the durable key-value backend (in-memory, Redis, Postgres, SQLite).
// Get returns domain.ErrKeyNotFound when nothing is stored under key.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}

// Persistence is the read/write boundary of the progression engine. Reads
// never fail: absent or unreadable records yield defaults. Writes are best
// effort: failures are logged and counted, never returned.
type Persistence struct {
	kv      KVStore
	logger  *zap.Logger
	metrics *Metrics
}

func NewPersistence(kv KVStore, logger *zap.Logger, metrics *Metrics) *Persistence {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Persistence{kv: kv, logger: logger, metrics: metrics}
}

// LoadProgress returns the stored state for key, or the default state and
// false when nothing usable is stored.
func (p *Persistence) LoadProgress(ctx context.Context, key string) (domain.ProgressState, bool) {
	state := domain.DefaultProgress()
	if !p.load(ctx, key, &state) {
		return domain.DefaultProgress(), false
	}
	return normalizeProgress(state), true
}

// SaveProgress writes state under key.
func (p *Persistence) SaveProgress(ctx context.Context, key string, state domain.ProgressState) {
	p.save(ctx, key, state)
}

// LoadDaily returns the stored day record for key. A record from another day
// is reported as absent.
func (p *Persistence) LoadDaily(ctx context.Context, key, today string) (domain.DailyProgress, bool) {
	daily := domain.NewDailyProgress(today)
	if !p.load(ctx, key, &daily) || daily.Date != today {
		return domain.NewDailyProgress(today), false
	}
	if daily.CompletedChallenges == nil {
		daily.CompletedChallenges = []string{}
	}
	return daily, true
}

func (p *Persistence) SaveDaily(ctx context.Context, key string, daily domain.DailyProgress) {
	p.save(ctx, key, daily)
}

// Clear removes whatever is stored under key.
func (p *Persistence) Clear(ctx context.Context, key string) {
	if err := p.kv.Delete(ctx, key); err != nil {
		p.metrics.persistenceFailed("clear")
		p.logger.Warn("clear persisted record failed", zap.String("key", key), zap.Error(err))
	}
}

// load decodes the record under key on top of dst, so absent fields keep
// the defaults dst was initialised with.
func (p *Persistence) load(ctx context.Context, key string, dst any) bool {
	raw, err := p.kv.Get(ctx, key)
	if errors.Is(err, domain.ErrKeyNotFound) {
		return false
	}
	if err != nil {
		p.metrics.persistenceFailed("load")
		p.logger.Warn("read persisted record failed, using defaults", zap.String("key", key), zap.Error(err))
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		p.metrics.recovered()
		p.logger.Warn("persisted record is malformed, using defaults", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

func (p *Persistence) save(ctx context.Context, key string, v any) {
	raw, err := json.Marshal(v)
	if err != nil {
		p.metrics.persistenceFailed("save")
		p.logger.Warn("encode record failed", zap.String("key", key), zap.Error(err))
		return
	}
	if err := p.kv.Set(ctx, key, raw); err != nil {
		p.metrics.persistenceFailed("save")
		p.logger.Warn("write persisted record failed", zap.String("key", key), zap.Error(err))
	}
}

// normalizeProgress repairs records written by older or misbehaving clients
// so every invariant of ProgressState holds after load.
func normalizeProgress(state domain.ProgressState) domain.ProgressState {
	state.XP = min(nonNegative(state.XP), domain.MaxXP)
	state.Level = domain.LevelFor(state.XP)
	state.CurrentStreak = nonNegative(state.CurrentStreak)
	state.LongestStreak = nonNegative(state.LongestStreak)
	if state.LongestStreak < state.CurrentStreak {
		state.LongestStreak = state.CurrentStreak
	}
	state.LastActiveDate = normalizeDay(state.LastActiveDate)
	state.TotalQuizzesPassed = nonNegative(state.TotalQuizzesPassed)
	state.TotalExercisesCompleted = nonNegative(state.TotalExercisesCompleted)
	state.TotalChatMessages = nonNegative(state.TotalChatMessages)

	lessons := make([]domain.LessonProgress, 0, len(state.LessonsCompleted))
	seenLessons := make(map[string]struct{}, len(state.LessonsCompleted))
	for _, l := range state.LessonsCompleted {
		if _, dup := seenLessons[l.LessonID]; dup {
			continue
		}
		seenLessons[l.LessonID] = struct{}{}
		lessons = append(lessons, l)
	}
	state.LessonsCompleted = lessons

	earned := make([]string, 0, len(state.AchievementsEarned))
	seenEarned := make(map[string]struct{}, len(state.AchievementsEarned))
	for _, id := range state.AchievementsEarned {
		if _, dup := seenEarned[id]; dup {
			continue
		}
		seenEarned[id] = struct{}{}
		earned = append(earned, id)
	}
	state.AchievementsEarned = earned

	if state.ActivityLog == nil {
		state.ActivityLog = []domain.ActivityLogEntry{}
	}
	if len(state.ActivityLog) > domain.ActivityLogCap {
		state.ActivityLog = state.ActivityLog[:domain.ActivityLogCap]
	}
	return state
}

func nonNegative(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
