package domain

import (
	"math"
	"time"
)

const (
	// LevelSize is the amount of XP that makes up one level.
	LevelSize = 500
	// MaxXP is the XP ceiling; grants beyond it saturate.
	MaxXP = math.MaxInt32
	// ActivityLogCap bounds the activity log; older entries are evicted.
	ActivityLogCap = 50
)

// XP rewards granted by the progression operations.
const (
	LessonXP           = 50
	FirstTimeBonusXP   = 25
	QuizPassXP         = 100
	QuizPerfectBonusXP = 50
	ExerciseXP         = 75
)

// LevelFor derives the level for an XP total.
func LevelFor(xp int) int {
	return xp/LevelSize + 1
}

// ProgressState is the root aggregate for one learner.
type ProgressState struct {
	XP                      int                `json:"xp"`
	Level                   int                `json:"level"`
	CurrentStreak           int                `json:"currentStreak"`
	LongestStreak           int                `json:"longestStreak"`
	LastActiveDate          string             `json:"lastActiveDate"`
	LessonsCompleted        []LessonProgress   `json:"lessonsCompleted"`
	AchievementsEarned      []string           `json:"achievementsEarned"`
	TotalQuizzesPassed      int                `json:"totalQuizzesPassed"`
	TotalExercisesCompleted int                `json:"totalExercisesCompleted"`
	TotalChatMessages       int                `json:"totalChatMessages"`
	ActivityLog             []ActivityLogEntry `json:"activityLog"`
}

// DefaultProgress returns the state of a learner with no history.
func DefaultProgress() ProgressState {
	return ProgressState{
		Level:              1,
		LessonsCompleted:   []LessonProgress{},
		AchievementsEarned: []string{},
		ActivityLog:        []ActivityLogEntry{},
	}
}

// Clone returns a deep copy so callers never share slices with the owner.
func (p ProgressState) Clone() ProgressState {
	out := p
	out.LessonsCompleted = make([]LessonProgress, len(p.LessonsCompleted))
	for i, l := range p.LessonsCompleted {
		out.LessonsCompleted[i] = l.clone()
	}
	out.AchievementsEarned = append(make([]string, 0, len(p.AchievementsEarned)), p.AchievementsEarned...)
	out.ActivityLog = append(make([]ActivityLogEntry, 0, len(p.ActivityLog)), p.ActivityLog...)
	return out
}

// Lesson returns the record for lessonID and its index, or -1 when absent.
func (p ProgressState) Lesson(lessonID string) (LessonProgress, int) {
	for i, l := range p.LessonsCompleted {
		if l.LessonID == lessonID {
			return l, i
		}
	}
	return LessonProgress{}, -1
}

// CompletedLessons counts lesson records marked completed.
func (p ProgressState) CompletedLessons() int {
	n := 0
	for _, l := range p.LessonsCompleted {
		if l.Completed {
			n++
		}
	}
	return n
}

// HasAchievement reports whether id is in the earned set.
func (p ProgressState) HasAchievement(id string) bool {
	for _, earned := range p.AchievementsEarned {
		if earned == id {
			return true
		}
	}
	return false
}

// LessonProgress is the durable per-lesson record.
type LessonProgress struct {
	LessonID          string     `json:"lessonId"`
	ModuleID          string     `json:"moduleId"`
	Completed         bool       `json:"completed"`
	CompletedAt       *time.Time `json:"completedAt,omitempty"`
	QuizScore         *int       `json:"quizScore,omitempty"`
	ExerciseCompleted bool       `json:"exerciseCompleted,omitempty"`
}

func (l LessonProgress) clone() LessonProgress {
	out := l
	if l.CompletedAt != nil {
		t := *l.CompletedAt
		out.CompletedAt = &t
	}
	if l.QuizScore != nil {
		s := *l.QuizScore
		out.QuizScore = &s
	}
	return out
}

// ActivityType classifies activity log entries.
type ActivityType string

const (
	ActivityLesson      ActivityType = "lesson"
	ActivityQuiz        ActivityType = "quiz"
	ActivityExercise    ActivityType = "exercise"
	ActivityAchievement ActivityType = "achievement"
	ActivityChat        ActivityType = "chat"
	ActivityXP          ActivityType = "xp"
)

// ActivityLogEntry is an immutable, human-readable event.
type ActivityLogEntry struct {
	ID          string       `json:"id"`
	Type        ActivityType `json:"type"`
	Title       string       `json:"title"`
	Description string       `json:"description,omitempty"`
	XPEarned    int          `json:"xpEarned,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

// ProgressUpdate is published to subscribers after every committed mutation.
type ProgressUpdate struct {
	Operation string        `json:"operation"`
	State     ProgressState `json:"state"`
	Unlocked  []Achievement `json:"unlocked,omitempty"`
}

// DailyProgress is the day-scoped side table behind daily challenges.
type DailyProgress struct {
	Date                string   `json:"date"`
	CompletedChallenges []string `json:"completedChallenges"`
	LessonsToday        int      `json:"lessonsToday"`
	QuizzesToday        int      `json:"quizzesToday"`
	ExercisesToday      int      `json:"exercisesToday"`
	ChatToday           int      `json:"chatToday"`
}

// NewDailyProgress returns an empty day record for date.
func NewDailyProgress(date string) DailyProgress {
	return DailyProgress{Date: date, CompletedChallenges: []string{}}
}

// ChallengeStatus is a challenge annotated with today's progress.
type ChallengeStatus struct {
	Challenge
	Progress  int  `json:"progress"`
	Completed bool `json:"completed"`
	Claimable bool `json:"claimable"`
}

// ProgressSummary is the read model consumers render: the state plus its derived values.
type ProgressSummary struct {
	Progress       ProgressState `json:"progress"`
	Level          int           `json:"level"`
	CurrentLevelXP int           `json:"currentLevelXP"`
	XPForNextLevel int           `json:"xpForNextLevel"`
}
