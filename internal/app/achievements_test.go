package app_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cyber-sensei-progress/internal/app"
	"cyber-sensei-progress/internal/domain"
)

func TestEvaluateAchievements(t *testing.T) {
	completed := func(n int) []domain.LessonProgress {
		lessons := make([]domain.LessonProgress, 0, n)
		for i := 0; i < n; i++ {
			lessons = append(lessons, domain.LessonProgress{LessonID: string(rune('a' + i)), Completed: true})
		}
		return lessons
	}

	tests := []struct {
		name  string
		state func() domain.ProgressState
		want  []string
	}{
		{
			name:  "fresh learner",
			state: domain.DefaultProgress,
			want:  []string{},
		},
		{
			name: "lessons",
			state: func() domain.ProgressState {
				s := domain.DefaultProgress()
				s.LessonsCompleted = completed(5)
				return s
			},
			want: []string{"first_steps", "quick_learner"},
		},
		{
			name: "incomplete lesson records do not count",
			state: func() domain.ProgressState {
				s := domain.DefaultProgress()
				s.LessonsCompleted = []domain.LessonProgress{{LessonID: "1-1", ExerciseCompleted: true}}
				return s
			},
			want: []string{},
		},
		{
			name: "longest streak qualifies after the current one broke",
			state: func() domain.ProgressState {
				s := domain.DefaultProgress()
				s.CurrentStreak = 1
				s.LongestStreak = 7
				return s
			},
			want: []string{"streak_starter", "streak_master"},
		},
		{
			name: "quizzes exercises and xp",
			state: func() domain.ProgressState {
				s := domain.DefaultProgress()
				s.TotalQuizzesPassed = 25
				s.TotalExercisesCompleted = 15
				s.XP = 5000
				return s
			},
			want: []string{"quiz_novice", "quiz_master", "hands_on", "practitioner", "xp_hunter", "xp_legend"},
		},
		{
			name: "already earned entries are skipped",
			state: func() domain.ProgressState {
				s := domain.DefaultProgress()
				s.LessonsCompleted = completed(1)
				s.AchievementsEarned = []string{"first_steps"}
				return s
			},
			want: []string{},
		},
		{
			name: "chat messages alone unlock nothing",
			state: func() domain.ProgressState {
				s := domain.DefaultProgress()
				s.TotalChatMessages = 500
				return s
			},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := app.EvaluateAchievements(tt.state(), domain.Achievements())
			assert.Equal(t, tt.want, achievementIDs(got))
		})
	}
}

func TestEvaluateAchievementsCustomCatalog(t *testing.T) {
	catalog := []domain.Achievement{
		{ID: "modules", Requirement: domain.Requirement{Kind: domain.RequirementModules, Value: 0}},
		{ID: "zero_xp", Requirement: domain.Requirement{Kind: domain.RequirementXP, Value: 0}},
	}

	got := app.EvaluateAchievements(domain.DefaultProgress(), catalog)

	assert.Equal(t, []string{"zero_xp"}, achievementIDs(got))
}

func TestRecordActivity(t *testing.T) {
	state := domain.DefaultProgress()
	for i := 0; i < domain.ActivityLogCap; i++ {
		state = app.RecordActivity(state, domain.ActivityLogEntry{ID: string(rune('A' + i%26)), Timestamp: time.Unix(int64(i), 0)})
	}
	before := state.ActivityLog

	next := app.RecordActivity(state, domain.ActivityLogEntry{ID: "newest"})

	require.Len(t, next.ActivityLog, domain.ActivityLogCap)
	assert.Equal(t, "newest", next.ActivityLog[0].ID)
	assert.Equal(t, before[0], next.ActivityLog[1])
	assert.Equal(t, before[domain.ActivityLogCap-2], next.ActivityLog[domain.ActivityLogCap-1])
	assert.Len(t, state.ActivityLog, domain.ActivityLogCap, "input log is left alone")
	assert.NotEqual(t, "newest", state.ActivityLog[0].ID)
}

func TestRequirementKindText(t *testing.T) {
	for _, kind := range []domain.RequirementKind{
		domain.RequirementLessons,
		domain.RequirementXP,
		domain.RequirementStreak,
		domain.RequirementQuizzes,
		domain.RequirementExercises,
		domain.RequirementModules,
	} {
		text, err := kind.MarshalText()
		require.NoError(t, err)

		var decoded domain.RequirementKind
		require.NoError(t, decoded.UnmarshalText(text))
		assert.Equal(t, kind, decoded)
	}

	var unknown domain.RequirementKind
	assert.Error(t, unknown.UnmarshalText([]byte("karma")))
}
