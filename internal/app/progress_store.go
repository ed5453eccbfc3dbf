package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"cyber-sensei-progress/internal/domain"
)

// Operation names carried by domain.ProgressUpdate.
const (
	OpOpen             = "open"
	OpGrantXP          = "grantXP"
	OpCompleteLesson   = "completeLesson"
	OpPassQuiz         = "passQuiz"
	OpCompleteExercise = "completeExercise"
	OpChatMessage      = "chatMessage"
	OpUpdateStreak     = "updateStreak"
	OpReset            = "reset"
)

// Store owns one learner's ProgressState. Every mutation runs to completion
// under mu, so each operation observes the committed result of the previous
// one. Consumers get copies and must route changes back through the Store.
//
// Preconditions are the caller's job: amounts are non-negative and quiz
// scores are within 0..100.
type Store struct {
	key         string
	persistence *Persistence
	settings    settings

	mu          sync.Mutex
	state       domain.ProgressState
	subscribers map[chan domain.ProgressUpdate]struct{}
}

// OpenStore loads the persisted state under key once and returns a store
// owning it. Missing or unreadable records start from defaults.
func OpenStore(ctx context.Context, key string, persistence *Persistence, opts ...Option) *Store {
	s := &Store{
		key:         key,
		persistence: persistence,
		settings:    newSettings(opts),
		subscribers: make(map[chan domain.ProgressUpdate]struct{}),
	}
	state, found := persistence.LoadProgress(ctx, key)
	s.state = state
	s.settings.logger.Debug("progress loaded", zap.String("key", key), zap.Bool("found", found), zap.Int("xp", state.XP))
	return s
}

// Key returns the storage key the store persists under.
func (s *Store) Key() string {
	return s.key
}

// GrantXP adds amount XP and logs reason.
func (s *Store) GrantXP(ctx context.Context, amount int, reason string) domain.ProgressUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := grantXP(s.state, amount, reason, s.settings.mutation())
	return s.commitLocked(ctx, OpGrantXP, next, true)
}

// CompleteLesson marks a lesson completed. Completing an already completed
// lesson grants nothing and skips achievement evaluation, but the completion
// is still logged, persisted and broadcast.
func (s *Store) CompleteLesson(ctx context.Context, lessonID, moduleID string) domain.ProgressUpdate {
	update, _ := s.completeLesson(ctx, lessonID, moduleID)
	return update
}

// completeLesson also reports whether the call was the first completion.
func (s *Store) completeLesson(ctx context.Context, lessonID, moduleID string) (domain.ProgressUpdate, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, first := completeLesson(s.state, lessonID, moduleID, s.settings.mutation())
	return s.commitLocked(ctx, OpCompleteLesson, next, first), first
}

// PassQuiz records a passed quiz with score in 0..100.
func (s *Store) PassQuiz(ctx context.Context, lessonID string, score int) domain.ProgressUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := passQuiz(s.state, lessonID, score, s.settings.mutation())
	return s.commitLocked(ctx, OpPassQuiz, next, true)
}

func (s *Store) CompleteExercise(ctx context.Context, lessonID string) domain.ProgressUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := completeExercise(s.state, lessonID, s.settings.mutation())
	return s.commitLocked(ctx, OpCompleteExercise, next, true)
}

// IncrementChatMessages bumps the chat counter only: no XP, no activity
// entry and no achievement evaluation.
func (s *Store) IncrementChatMessages(ctx context.Context) domain.ProgressUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commitLocked(ctx, OpChatMessage, incrementChatMessages(s.state), false)
}

// UpdateStreak advances or restarts the daily streak. It is a no-op when
// activity was already observed today.
func (s *Store) UpdateStreak(ctx context.Context) domain.ProgressUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, changed := updateStreak(s.state, s.settings.mutation())
	if !changed {
		return s.unchangedLocked(OpUpdateStreak)
	}
	return s.commitLocked(ctx, OpUpdateStreak, next, true)
}

// Reset replaces the state with defaults and clears the persisted copy.
func (s *Store) Reset(ctx context.Context) domain.ProgressUpdate {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = domain.DefaultProgress()
	s.persistence.Clear(ctx, s.key)
	s.settings.metrics.mutation(OpReset)
	s.settings.logger.Info("progress reset", zap.String("key", s.key))
	update := domain.ProgressUpdate{Operation: OpReset, State: s.state.Clone()}
	s.broadcastLocked(update)
	return update
}

// Snapshot returns a copy of the committed state.
func (s *Store) Snapshot() domain.ProgressState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *Store) Level() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Level
}

// XPForNextLevel returns the width of every level.
func (s *Store) XPForNextLevel() int {
	return domain.LevelSize
}

// CurrentLevelXP returns the XP earned inside the current level.
func (s *Store) CurrentLevelXP() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.XP % domain.LevelSize
}

// Summary returns the state together with its derived values.
func (s *Store) Summary() domain.ProgressSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return summarize(s.state)
}

// Achievements returns the catalog annotated with earned flags.
func (s *Store) Achievements() []domain.AchievementStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return achievementStatuses(s.state, s.settings.catalog)
}

// Subscribe returns a channel that receives an update after every committed
// mutation, starting with the current state. The caller must invoke the
// returned cancel function to avoid leaks.
func (s *Store) Subscribe() (<-chan domain.ProgressUpdate, func()) {
	ch := make(chan domain.ProgressUpdate, 8)

	s.mu.Lock()
	ch <- domain.ProgressUpdate{Operation: OpOpen, State: s.state.Clone()}
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	cancel := func() {
		s.mu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.mu.Unlock()
	}
	return ch, cancel
}

// SubscriberCount reports how many live subscriptions the store has.
func (s *Store) SubscriberCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subscribers)
}

func (s *Store) commitLocked(ctx context.Context, op string, next domain.ProgressState, evaluate bool) domain.ProgressUpdate {
	var unlocked []domain.Achievement
	if evaluate {
		next, unlocked = awardAchievements(next, s.settings.catalog)
	}
	s.state = next
	s.persistence.SaveProgress(ctx, s.key, next)

	s.settings.metrics.mutation(op)
	s.settings.metrics.unlocked(unlocked)
	for _, a := range unlocked {
		s.settings.logger.Info("achievement unlocked", zap.String("key", s.key), zap.String("achievement", a.ID))
	}

	update := domain.ProgressUpdate{Operation: op, State: next.Clone(), Unlocked: unlocked}
	s.broadcastLocked(update)
	return update
}

func (s *Store) unchangedLocked(op string) domain.ProgressUpdate {
	return domain.ProgressUpdate{Operation: op, State: s.state.Clone()}
}

func (s *Store) broadcastLocked(update domain.ProgressUpdate) {
	for ch := range s.subscribers {
		own := update
		own.State = update.State.Clone()
		select {
		case ch <- own:
		default:
			// Replace the stale update so a slow consumer never blocks a mutation.
			// Its unlocks ride along so no achievement notice is lost.
			select {
			case stale := <-ch:
				own.Unlocked = mergeUnlocked(stale.Unlocked, update.Unlocked)
			default:
			}
			ch <- own
		}
	}
}

func mergeUnlocked(earlier, later []domain.Achievement) []domain.Achievement {
	if len(earlier) == 0 {
		return later
	}
	merged := make([]domain.Achievement, 0, len(earlier)+len(later))
	merged = append(merged, earlier...)
	return append(merged, later...)
}

func summarize(state domain.ProgressState) domain.ProgressSummary {
	return domain.ProgressSummary{
		Progress:       state.Clone(),
		Level:          state.Level,
		CurrentLevelXP: state.XP % domain.LevelSize,
		XPForNextLevel: domain.LevelSize,
	}
}
