package app_test

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyber-sensei-progress/internal/domain"
)

func TestGrantXPAccumulatesAndLevels(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, newMemoryKV(), newTestClock())

	amounts := []int{0, 120, 380, 1, 499, 1000}
	total := 0
	for _, amount := range amounts {
		update := store.GrantXP(ctx, amount, "test")
		total += amount
		assert.Equal(t, total, update.State.XP)
		assert.Equal(t, total/500+1, update.State.Level)
	}
	assert.Equal(t, total, store.Snapshot().XP)
}

func TestGrantXPFromFreshState(t *testing.T) {
	store := newTestStore(t, newMemoryKV(), newTestClock())

	update := store.GrantXP(context.Background(), 600, "test")

	assert.Equal(t, 600, update.State.XP)
	assert.Equal(t, 2, update.State.Level)
	require.Len(t, update.State.ActivityLog, 1)
	entry := update.State.ActivityLog[0]
	assert.Equal(t, domain.ActivityXP, entry.Type)
	assert.Equal(t, "+600 XP", entry.Title)
	assert.Equal(t, "test", entry.Description)
	assert.Equal(t, 600, entry.XPEarned)
	assert.Equal(t, "entry-1", entry.ID)
}

func TestCompleteLessonFirstTime(t *testing.T) {
	clock := newTestClock()
	store := newTestStore(t, newMemoryKV(), clock)

	update := store.CompleteLesson(context.Background(), "1-1", "1")

	assert.Equal(t, 75, update.State.XP)
	require.Len(t, update.State.LessonsCompleted, 1)
	lesson := update.State.LessonsCompleted[0]
	assert.Equal(t, "1-1", lesson.LessonID)
	assert.Equal(t, "1", lesson.ModuleID)
	assert.True(t, lesson.Completed)
	require.NotNil(t, lesson.CompletedAt)
	assert.True(t, lesson.CompletedAt.Equal(clock.Now()))
	assert.Equal(t, []string{"first_steps"}, achievementIDs(update.Unlocked))
	assert.Contains(t, update.State.AchievementsEarned, "first_steps")

	require.Len(t, update.State.ActivityLog, 1)
	assert.Equal(t, domain.ActivityLesson, update.State.ActivityLog[0].Type)
	assert.Equal(t, domain.LessonXP, update.State.ActivityLog[0].XPEarned, "the entry records the base reward only")
}

func TestCompleteLessonTwiceGrantsOnce(t *testing.T) {
	ctx := context.Background()
	kv := newMemoryKV()
	store := newTestStore(t, kv, newTestClock())

	store.CompleteLesson(ctx, "1-1", "1")
	updates, cancel := store.Subscribe()
	defer cancel()
	<-updates // initial snapshot

	update := store.CompleteLesson(ctx, "1-1", "1")

	assert.Equal(t, 75, update.State.XP)
	assert.Len(t, update.State.LessonsCompleted, 1)
	assert.Empty(t, update.Unlocked)

	require.Len(t, update.State.ActivityLog, 2, "a repeat completion is still logged")
	repeat := update.State.ActivityLog[0]
	assert.Equal(t, domain.ActivityLesson, repeat.Type)
	assert.Equal(t, "Lesson Completed", repeat.Title)
	assert.Equal(t, domain.LessonXP, repeat.XPEarned)

	require.Len(t, updates, 1)
	notified := <-updates
	assert.Equal(t, "completeLesson", notified.Operation)
	assert.Len(t, notified.State.ActivityLog, 2)

	persisted := persistedState(t, kv, testKey)
	assert.Equal(t, 75, persisted.XP)
	assert.Len(t, persisted.ActivityLog, 2)
}

func TestPassQuizAfterLesson(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, newMemoryKV(), newTestClock())
	store.CompleteLesson(ctx, "1-1", "1")

	update := store.PassQuiz(ctx, "1-1", 100)

	assert.Equal(t, 225, update.State.XP)
	assert.Equal(t, 1, update.State.TotalQuizzesPassed)
	require.Len(t, update.State.LessonsCompleted, 1)
	require.NotNil(t, update.State.LessonsCompleted[0].QuizScore)
	assert.Equal(t, 100, *update.State.LessonsCompleted[0].QuizScore)
	assert.True(t, update.State.LessonsCompleted[0].Completed)

	entry := update.State.ActivityLog[0]
	assert.Equal(t, "Perfect Quiz!", entry.Title)
	assert.Equal(t, "Scored 100%", entry.Description)
	assert.Equal(t, 150, entry.XPEarned)
}

func TestPassQuizWithoutPerfectScore(t *testing.T) {
	store := newTestStore(t, newMemoryKV(), newTestClock())

	update := store.PassQuiz(context.Background(), "2-1", 0)

	assert.Equal(t, 100, update.State.XP)
	assert.Equal(t, "Quiz Passed", update.State.ActivityLog[0].Title)
	require.NotNil(t, update.State.LessonsCompleted[0].QuizScore)
	assert.Equal(t, 0, *update.State.LessonsCompleted[0].QuizScore)
}

func TestQuizBeforeLessonSharesOneRecord(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, newMemoryKV(), newTestClock())

	quiz := store.PassQuiz(ctx, "1-2", 80)
	require.Len(t, quiz.State.LessonsCompleted, 1)
	assert.False(t, quiz.State.LessonsCompleted[0].Completed)
	assert.Empty(t, quiz.State.AchievementsEarned)

	lesson := store.CompleteLesson(ctx, "1-2", "1")

	assert.Equal(t, 100+50, lesson.State.XP, "no first-time bonus once a record exists")
	require.Len(t, lesson.State.LessonsCompleted, 1)
	record := lesson.State.LessonsCompleted[0]
	assert.True(t, record.Completed)
	assert.Equal(t, "1", record.ModuleID)
	require.NotNil(t, record.QuizScore)
	assert.Equal(t, 80, *record.QuizScore)
}

func TestCompleteExercise(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, newMemoryKV(), newTestClock())
	store.CompleteLesson(ctx, "1-1", "1")

	update := store.CompleteExercise(ctx, "1-1")

	assert.Equal(t, 150, update.State.XP)
	assert.Equal(t, 1, update.State.TotalExercisesCompleted)
	require.Len(t, update.State.LessonsCompleted, 1)
	assert.True(t, update.State.LessonsCompleted[0].ExerciseCompleted)
	assert.Equal(t, domain.ActivityExercise, update.State.ActivityLog[0].Type)
	assert.Equal(t, 75, update.State.ActivityLog[0].XPEarned)
}

func TestExercisesUnlockHandsOn(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, newMemoryKV(), newTestClock())

	var last domain.ProgressUpdate
	for i := 0; i < 5; i++ {
		last = store.CompleteExercise(ctx, fmt.Sprintf("1-%d", i))
	}

	assert.Equal(t, []string{"hands_on"}, achievementIDs(last.Unlocked))
	assert.Len(t, last.State.LessonsCompleted, 5)
}

// Chat messages only bump the counter. This pins the current behaviour:
// no XP, no activity entry and no achievement evaluation.
func TestIncrementChatMessagesIsCounterOnly(t *testing.T) {
	ctx := context.Background()
	kv := newMemoryKV()
	qualifying := domain.DefaultProgress()
	qualifying.LessonsCompleted = []domain.LessonProgress{{LessonID: "1-1", ModuleID: "1", Completed: true}}
	seedState(t, kv, testKey, qualifying)
	store := newTestStore(t, kv, newTestClock())

	var update domain.ProgressUpdate
	for i := 0; i < 50; i++ {
		update = store.IncrementChatMessages(ctx)
	}

	assert.Equal(t, 50, update.State.TotalChatMessages)
	assert.Equal(t, 0, update.State.XP)
	assert.Empty(t, update.State.ActivityLog)
	assert.Empty(t, update.State.AchievementsEarned, "chat does not run achievement evaluation")
	assert.NotContains(t, update.State.AchievementsEarned, "curious_mind")
	assert.Equal(t, 50, persistedState(t, kv, testKey).TotalChatMessages)

	// The next evaluating operation picks the pending unlock up.
	granted := store.GrantXP(ctx, 0, "sync")
	assert.Equal(t, []string{"first_steps"}, achievementIDs(granted.Unlocked))
}

func TestUpdateStreakNeverActive(t *testing.T) {
	clock := newTestClock()
	store := newTestStore(t, newMemoryKV(), clock)

	update := store.UpdateStreak(context.Background())

	assert.Equal(t, 1, update.State.CurrentStreak)
	assert.Equal(t, 1, update.State.LongestStreak)
	assert.Equal(t, "2026-10-18", update.State.LastActiveDate)
}

func TestUpdateStreakSameDayIsNoop(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, newMemoryKV(), newTestClock())
	first := store.UpdateStreak(ctx)

	second := store.UpdateStreak(ctx)

	assert.Equal(t, first.State, second.State)
}

func TestUpdateStreakConsecutiveDays(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	store := newTestStore(t, newMemoryKV(), clock)

	var update domain.ProgressUpdate
	for day := 0; day < 3; day++ {
		update = store.UpdateStreak(ctx)
		assert.GreaterOrEqual(t, update.State.LongestStreak, update.State.CurrentStreak)
		clock.advanceDays(1)
	}

	assert.Equal(t, 3, update.State.CurrentStreak)
	assert.Equal(t, 3, update.State.LongestStreak)
	assert.Equal(t, []string{"streak_starter"}, achievementIDs(update.Unlocked))
}

func TestUpdateStreakAfterGapResets(t *testing.T) {
	kv := newMemoryKV()
	seeded := domain.DefaultProgress()
	seeded.CurrentStreak = 5
	seeded.LongestStreak = 5
	seeded.LastActiveDate = "2026-10-16"
	seedState(t, kv, testKey, seeded)
	store := newTestStore(t, kv, newTestClock())

	update := store.UpdateStreak(context.Background())

	assert.Equal(t, 1, update.State.CurrentStreak)
	assert.Equal(t, 5, update.State.LongestStreak)
	assert.Equal(t, "2026-10-18", update.State.LastActiveDate)
}

func TestUpdateStreakAcceptsLegacyDates(t *testing.T) {
	kv := newMemoryKV()
	seedRaw(t, kv, testKey, `{"xp":10,"currentStreak":2,"longestStreak":4,"lastActiveDate":"Sat Oct 17 2026"}`)
	store := newTestStore(t, kv, newTestClock())

	update := store.UpdateStreak(context.Background())

	assert.Equal(t, 3, update.State.CurrentStreak)
	assert.Equal(t, 4, update.State.LongestStreak)
}

func TestAchievementsNeverShrinkUntilReset(t *testing.T) {
	ctx := context.Background()
	clock := newTestClock()
	kv := newMemoryKV()
	store := newTestStore(t, kv, clock)

	ops := []func() domain.ProgressUpdate{
		func() domain.ProgressUpdate { return store.UpdateStreak(ctx) },
		func() domain.ProgressUpdate { return store.CompleteLesson(ctx, "1-1", "1") },
		func() domain.ProgressUpdate { return store.GrantXP(ctx, 1000, "bonus") },
		func() domain.ProgressUpdate { return store.PassQuiz(ctx, "1-1", 90) },
		func() domain.ProgressUpdate { return store.IncrementChatMessages(ctx) },
		func() domain.ProgressUpdate { clock.advanceDays(3); return store.UpdateStreak(ctx) },
		func() domain.ProgressUpdate { return store.CompleteLesson(ctx, "1-1", "1") },
	}

	prior := []string{}
	for _, op := range ops {
		update := op()
		for _, id := range prior {
			assert.Contains(t, update.State.AchievementsEarned, id)
		}
		prior = update.State.AchievementsEarned
	}
	assert.Contains(t, prior, "xp_hunter")

	reset := store.Reset(ctx)
	assert.Empty(t, reset.State.AchievementsEarned)
}

func TestModulesRequirementNeverUnlocks(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, newMemoryKV(), newTestClock())

	for i := 0; i < 12; i++ {
		store.CompleteLesson(ctx, fmt.Sprintf("1-%d", i), "1")
	}
	update := store.GrantXP(ctx, 10000, "everything")

	assert.NotContains(t, update.State.AchievementsEarned, "module_complete")
	assert.Contains(t, update.State.AchievementsEarned, "dedicated")
	assert.Contains(t, update.State.AchievementsEarned, "xp_legend")
}

func TestActivityLogIsCapped(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, newMemoryKV(), newTestClock())

	var update domain.ProgressUpdate
	for i := 0; i < 60; i++ {
		update = store.GrantXP(ctx, 1, fmt.Sprintf("reason-%d", i))
		assert.LessOrEqual(t, len(update.State.ActivityLog), domain.ActivityLogCap)
		assert.Equal(t, fmt.Sprintf("reason-%d", i), update.State.ActivityLog[0].Description)
	}

	require.Len(t, update.State.ActivityLog, 50)
	assert.Equal(t, "reason-10", update.State.ActivityLog[49].Description)
}

func TestResetRestoresDefaultsAndClearsStorage(t *testing.T) {
	ctx := context.Background()
	kv := newMemoryKV()
	store := newTestStore(t, kv, newTestClock())
	store.UpdateStreak(ctx)
	store.CompleteLesson(ctx, "1-1", "1")
	store.PassQuiz(ctx, "1-1", 100)

	update := store.Reset(ctx)

	assert.Equal(t, domain.DefaultProgress(), update.State)
	assert.Equal(t, domain.DefaultProgress(), store.Snapshot())
	_, err := kv.Get(ctx, testKey)
	assert.ErrorIs(t, err, domain.ErrKeyNotFound)
}

func TestReadAccessors(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, newMemoryKV(), newTestClock())
	store.GrantXP(ctx, 600, "test")
	store.CompleteLesson(ctx, "1-1", "1")

	assert.Equal(t, 500, store.XPForNextLevel())
	assert.Equal(t, 175, store.CurrentLevelXP())
	assert.Equal(t, 2, store.Level())

	statuses := store.Achievements()
	require.Len(t, statuses, len(domain.Achievements()))
	for _, status := range statuses {
		assert.Equal(t, status.ID == "first_steps", status.Earned, status.ID)
	}

	summary := store.Summary()
	assert.Equal(t, 675, summary.Progress.XP)
	assert.Equal(t, 175, summary.CurrentLevelXP)
	assert.Equal(t, 500, summary.XPForNextLevel)
}

func TestSnapshotIsACopy(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, newMemoryKV(), newTestClock())
	store.PassQuiz(ctx, "1-1", 70)

	snapshot := store.Snapshot()
	*snapshot.LessonsCompleted[0].QuizScore = 5
	snapshot.AchievementsEarned = append(snapshot.AchievementsEarned, "forged")

	fresh := store.Snapshot()
	assert.Equal(t, 70, *fresh.LessonsCompleted[0].QuizScore)
	assert.NotContains(t, fresh.AchievementsEarned, "forged")
}

func TestSubscribeReceivesCommittedUpdates(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, newMemoryKV(), newTestClock())

	updates, cancel := store.Subscribe()
	defer cancel()
	initial := <-updates
	assert.Equal(t, 0, initial.State.XP)

	store.CompleteLesson(ctx, "1-1", "1")

	update := <-updates
	assert.Equal(t, "completeLesson", update.Operation)
	assert.Equal(t, 75, update.State.XP)
	assert.Equal(t, []string{"first_steps"}, achievementIDs(update.Unlocked))
	assert.Equal(t, 1, store.SubscriberCount())

	cancel()
	_, open := <-updates
	assert.False(t, open)
	assert.Equal(t, 0, store.SubscriberCount())
}

func TestSlowSubscriberGetsNewestUpdate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, newMemoryKV(), newTestClock())
	updates, cancel := store.Subscribe()
	defer cancel()

	for i := 0; i < 20; i++ {
		store.GrantXP(ctx, 1, "tick")
	}

	var last domain.ProgressUpdate
	for len(updates) > 0 {
		last = <-updates
	}
	assert.Equal(t, 20, last.State.XP)
}

func TestSlowSubscriberKeepsUnlocks(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, newMemoryKV(), newTestClock())
	updates, cancel := store.Subscribe()
	defer cancel()

	store.CompleteLesson(ctx, "1-1", "1")
	for i := 0; i < 20; i++ {
		store.GrantXP(ctx, 0, "tick")
	}

	var unlocked []string
	var last domain.ProgressUpdate
	for len(updates) > 0 {
		last = <-updates
		unlocked = append(unlocked, achievementIDs(last.Unlocked)...)
	}
	assert.Equal(t, []string{"first_steps"}, unlocked)
	assert.Equal(t, 75, last.State.XP)
}

func TestGrantXPSaturates(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, newMemoryKV(), newTestClock())

	store.GrantXP(ctx, math.MaxInt, "overflow")
	update := store.GrantXP(ctx, 1, "more")

	assert.Equal(t, domain.MaxXP, update.State.XP)
	assert.Equal(t, domain.LevelFor(domain.MaxXP), update.State.Level)
	assert.Positive(t, update.State.Level)
}

func TestWriteFailuresDoNotAffectState(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t, failingKV{}, newTestClock())

	store.CompleteLesson(ctx, "1-1", "1")
	update := store.GrantXP(ctx, 25, "bonus")

	assert.Equal(t, 100, update.State.XP)
	assert.Equal(t, 100, store.Snapshot().XP)
	assert.Equal(t, domain.DefaultProgress(), store.Reset(ctx).State)
}

func TestStoreReloadsCommittedState(t *testing.T) {
	ctx := context.Background()
	kv := newMemoryKV()
	clock := newTestClock()
	first := newTestStore(t, kv, clock)
	first.UpdateStreak(ctx)
	first.CompleteLesson(ctx, "1-1", "1")
	first.PassQuiz(ctx, "1-1", 100)

	second := newTestStore(t, kv, clock)

	assert.Equal(t, first.Snapshot(), second.Snapshot())
}
