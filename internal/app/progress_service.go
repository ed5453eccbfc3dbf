package app

import (
	"context"
	"sync"

	"cyber-sensei-progress/internal/domain"
)

// Learner bundles the per-learner state owners.
type Learner struct {
	ID         string
	Progress   *Store
	Challenges *ChallengeBoard
}

// LearnerRepository abstracts how live learners are held (in-process map, etc).
// Every successful Acquire must be paired with one Release; a learner is only
// dropped once all of its holders have released it.
type LearnerRepository interface {
	Acquire(ctx context.Context, learnerID string) (*Learner, error)
	Release(learnerID string)
}

// StorageKeys names the keys a learner's records are persisted under.
type StorageKeys struct {
	ProgressPrefix string
	DailyPrefix    string
}

// DefaultStorageKeys are the keys earlier clients used.
func DefaultStorageKeys() StorageKeys {
	return StorageKeys{
		ProgressPrefix: "cyber_sensei_progress",
		DailyPrefix:    "cyber_sensei_daily_progress",
	}
}

func (k StorageKeys) Progress(learnerID string) string {
	return k.ProgressPrefix + ":" + learnerID
}

func (k StorageKeys) Daily(learnerID string) string {
	return k.DailyPrefix + ":" + learnerID
}

// LearnerOpener builds a learner from its persisted records.
type LearnerOpener func(ctx context.Context, learnerID string) *Learner

// NewLearnerOpener returns an opener that loads learners through persistence.
func NewLearnerOpener(persistence *Persistence, keys StorageKeys, opts ...Option) LearnerOpener {
	return func(ctx context.Context, learnerID string) *Learner {
		store := OpenStore(ctx, keys.Progress(learnerID), persistence, opts...)
		return &Learner{
			ID:         learnerID,
			Progress:   store,
			Challenges: OpenChallengeBoard(ctx, keys.Daily(learnerID), persistence, store, opts...),
		}
	}
}

// ProgressService contains the progression use cases invoked by transports.
type ProgressService struct {
	learners LearnerRepository
}

func NewProgressService(learners LearnerRepository) *ProgressService {
	return &ProgressService{learners: learners}
}

// Open starts a session for a learner. The streak is brought up to date here,
// before any other mutation of the session.
func (s *ProgressService) Open(ctx context.Context, learnerID string) (domain.ProgressUpdate, error) {
	learner, release, err := s.acquire(ctx, learnerID)
	if err != nil {
		return domain.ProgressUpdate{}, err
	}
	defer release()
	return learner.Progress.UpdateStreak(ctx), nil
}

func (s *ProgressService) GrantXP(ctx context.Context, learnerID string, amount int, reason string) (domain.ProgressUpdate, error) {
	learner, release, err := s.acquire(ctx, learnerID)
	if err != nil {
		return domain.ProgressUpdate{}, err
	}
	defer release()
	return learner.Progress.GrantXP(ctx, amount, reason), nil
}

// CompleteLesson records a lesson completion; only a first completion counts
// towards today's lesson challenge.
func (s *ProgressService) CompleteLesson(ctx context.Context, learnerID, lessonID, moduleID string) (domain.ProgressUpdate, error) {
	learner, release, err := s.acquire(ctx, learnerID)
	if err != nil {
		return domain.ProgressUpdate{}, err
	}
	defer release()
	update, first := learner.Progress.completeLesson(ctx, lessonID, moduleID)
	if first {
		learner.Challenges.RecordLesson(ctx)
	}
	return update, nil
}

func (s *ProgressService) PassQuiz(ctx context.Context, learnerID, lessonID string, score int) (domain.ProgressUpdate, error) {
	learner, release, err := s.acquire(ctx, learnerID)
	if err != nil {
		return domain.ProgressUpdate{}, err
	}
	defer release()
	update := learner.Progress.PassQuiz(ctx, lessonID, score)
	learner.Challenges.RecordQuiz(ctx, score)
	return update, nil
}

func (s *ProgressService) CompleteExercise(ctx context.Context, learnerID, lessonID string) (domain.ProgressUpdate, error) {
	learner, release, err := s.acquire(ctx, learnerID)
	if err != nil {
		return domain.ProgressUpdate{}, err
	}
	defer release()
	update := learner.Progress.CompleteExercise(ctx, lessonID)
	learner.Challenges.RecordExercise(ctx)
	return update, nil
}

// SendChatMessage counts one chat message sent to the AI tutor.
func (s *ProgressService) SendChatMessage(ctx context.Context, learnerID string) (domain.ProgressUpdate, error) {
	learner, release, err := s.acquire(ctx, learnerID)
	if err != nil {
		return domain.ProgressUpdate{}, err
	}
	defer release()
	update := learner.Progress.IncrementChatMessages(ctx)
	learner.Challenges.RecordChat(ctx)
	return update, nil
}

func (s *ProgressService) ClaimChallenge(ctx context.Context, learnerID, challengeID string) (domain.ProgressUpdate, error) {
	learner, release, err := s.acquire(ctx, learnerID)
	if err != nil {
		return domain.ProgressUpdate{}, err
	}
	defer release()
	return learner.Challenges.Claim(ctx, challengeID)
}

// Reset wipes a learner's progress. Irreversible.
func (s *ProgressService) Reset(ctx context.Context, learnerID string) (domain.ProgressUpdate, error) {
	learner, release, err := s.acquire(ctx, learnerID)
	if err != nil {
		return domain.ProgressUpdate{}, err
	}
	defer release()
	return learner.Progress.Reset(ctx), nil
}

func (s *ProgressService) Progress(ctx context.Context, learnerID string) (domain.ProgressSummary, error) {
	learner, release, err := s.acquire(ctx, learnerID)
	if err != nil {
		return domain.ProgressSummary{}, err
	}
	defer release()
	return learner.Progress.Summary(), nil
}

func (s *ProgressService) Achievements(ctx context.Context, learnerID string) ([]domain.AchievementStatus, error) {
	learner, release, err := s.acquire(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	defer release()
	return learner.Progress.Achievements(), nil
}

func (s *ProgressService) Challenges(ctx context.Context, learnerID string) ([]domain.ChallengeStatus, error) {
	learner, release, err := s.acquire(ctx, learnerID)
	if err != nil {
		return nil, err
	}
	defer release()
	return learner.Challenges.Challenges(), nil
}

// Subscribe returns a channel of committed updates for a learner. The learner
// stays in memory until the returned cancel function is invoked; after that
// its state is reloaded from persistence on next use.
func (s *ProgressService) Subscribe(ctx context.Context, learnerID string) (<-chan domain.ProgressUpdate, func(), error) {
	learner, release, err := s.acquire(ctx, learnerID)
	if err != nil {
		return nil, nil, err
	}
	ch, unsubscribe := learner.Progress.Subscribe()
	var once sync.Once
	cancel := func() {
		once.Do(func() {
			unsubscribe()
			release()
		})
	}
	return ch, cancel, nil
}

func (s *ProgressService) acquire(ctx context.Context, learnerID string) (*Learner, func(), error) {
	learner, err := s.learners.Acquire(ctx, learnerID)
	if err != nil {
		return nil, nil, err
	}
	return learner, func() { s.learners.Release(learnerID) }, nil
}

// Summarize derives the read model for a state.
func Summarize(state domain.ProgressState) domain.ProgressSummary {
	return summarize(state)
}
