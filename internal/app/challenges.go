package app

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"cyber-sensei-progress/internal/domain"
)

// ChallengeBoard tracks today's counters for the daily challenges and pays
// out rewards through the progress Store. Its record is day-scoped and lives
// outside ProgressState.
type ChallengeBoard struct {
	key         string
	persistence *Persistence
	progress    *Store
	settings    settings

	mu    sync.Mutex
	daily domain.DailyProgress
}

// OpenChallengeBoard loads today's record under key. Records from a previous
// day are discarded.
func OpenChallengeBoard(ctx context.Context, key string, persistence *Persistence, progress *Store, opts ...Option) *ChallengeBoard {
	b := &ChallengeBoard{
		key:         key,
		persistence: persistence,
		progress:    progress,
		settings:    newSettings(opts),
	}
	b.daily, _ = persistence.LoadDaily(ctx, key, b.settings.mutation().today())
	return b
}

func (b *ChallengeBoard) RecordLesson(ctx context.Context) {
	b.record(ctx, func(d *domain.DailyProgress) { d.LessonsToday++ })
}

// RecordQuiz counts the quiz only when score reaches domain.QuizChallengeMinScore.
func (b *ChallengeBoard) RecordQuiz(ctx context.Context, score int) {
	if score < domain.QuizChallengeMinScore {
		return
	}
	b.record(ctx, func(d *domain.DailyProgress) { d.QuizzesToday++ })
}

func (b *ChallengeBoard) RecordExercise(ctx context.Context) {
	b.record(ctx, func(d *domain.DailyProgress) { d.ExercisesToday++ })
}

func (b *ChallengeBoard) RecordChat(ctx context.Context) {
	b.record(ctx, func(d *domain.DailyProgress) { d.ChatToday++ })
}

// Snapshot returns a copy of today's record.
func (b *ChallengeBoard) Snapshot() domain.DailyProgress {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollLocked()
	out := b.daily
	out.CompletedChallenges = append([]string{}, b.daily.CompletedChallenges...)
	return out
}

// Challenges returns today's challenges with their progress.
func (b *ChallengeBoard) Challenges() []domain.ChallengeStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollLocked()

	today := b.todaysLocked()
	out := make([]domain.ChallengeStatus, 0, len(today))
	for _, c := range today {
		out = append(out, b.statusLocked(c))
	}
	return out
}

// Claim pays out the reward for a completed challenge once per day.
func (b *ChallengeBoard) Claim(ctx context.Context, challengeID string) (domain.ProgressUpdate, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollLocked()

	var challenge *domain.Challenge
	today := b.todaysLocked()
	for i := range today {
		if today[i].ID == challengeID {
			challenge = &today[i]
			break
		}
	}
	if challenge == nil {
		return domain.ProgressUpdate{}, domain.ErrChallengeNotFound
	}
	if !b.statusLocked(*challenge).Claimable {
		return domain.ProgressUpdate{}, domain.ErrChallengeNotClaimable
	}

	update := b.progress.GrantXP(ctx, challenge.XPReward, "Daily Challenge: "+challenge.Title)
	b.daily.CompletedChallenges = append(b.daily.CompletedChallenges, challenge.ID)
	b.persistence.SaveDaily(ctx, b.key, b.daily)
	b.settings.metrics.claimed(challenge.ID)
	b.settings.logger.Info("daily challenge claimed", zap.String("key", b.key), zap.String("challenge", challenge.ID))
	return update, nil
}

func (b *ChallengeBoard) record(ctx context.Context, apply func(*domain.DailyProgress)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rollLocked()
	apply(&b.daily)
	b.persistence.SaveDaily(ctx, b.key, b.daily)
}

// rollLocked starts a fresh record once the calendar day has changed.
func (b *ChallengeBoard) rollLocked() {
	today := b.settings.mutation().today()
	if b.daily.Date != today {
		b.daily = domain.NewDailyProgress(today)
	}
}

func (b *ChallengeBoard) todaysLocked() []domain.Challenge {
	shown := domain.DailyChallengesShown
	if shown > len(b.settings.challenges) {
		shown = len(b.settings.challenges)
	}
	return b.settings.challenges[:shown]
}

func (b *ChallengeBoard) statusLocked(c domain.Challenge) domain.ChallengeStatus {
	progress := b.progressLocked(c)
	completed := false
	for _, id := range b.daily.CompletedChallenges {
		if id == c.ID {
			completed = true
			break
		}
	}
	return domain.ChallengeStatus{
		Challenge: c,
		Progress:  progress,
		Completed: completed,
		Claimable: !completed && progress >= c.Requirement,
	}
}

func (b *ChallengeBoard) progressLocked(c domain.Challenge) int {
	switch c.Kind {
	case domain.ChallengeLesson:
		return b.daily.LessonsToday
	case domain.ChallengeQuiz:
		return b.daily.QuizzesToday
	case domain.ChallengeExercise:
		return b.daily.ExercisesToday
	case domain.ChallengeChat:
		return b.daily.ChatToday
	case domain.ChallengeStreak:
		if b.progress.Snapshot().CurrentStreak > 0 {
			return 1
		}
		return 0
	default:
		return 0
	}
}
