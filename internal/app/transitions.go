package app

import (
	"fmt"
	"time"

	"cyber-sensei-progress/internal/domain"
)

const dayLayout = "2006-01-02"

// legacyDayLayout is how earlier clients wrote lastActiveDate.
const legacyDayLayout = "Mon Jan 02 2006"

// mutation carries the ambient inputs of a transition so the transition
// itself stays a pure function of (state, args).
type mutation struct {
	now   time.Time
	loc   *time.Location
	newID func() string
}

func (m mutation) today() string {
	return m.now.In(m.loc).Format(dayLayout)
}

func (m mutation) yesterday() string {
	t := m.now.In(m.loc)
	return time.Date(t.Year(), t.Month(), t.Day()-1, 12, 0, 0, 0, m.loc).Format(dayLayout)
}

func (m mutation) entry(kind domain.ActivityType, title, description string, xp int) domain.ActivityLogEntry {
	return domain.ActivityLogEntry{
		ID:          m.newID(),
		Type:        kind,
		Title:       title,
		Description: description,
		XPEarned:    xp,
		Timestamp:   m.now,
	}
}

// addXP applies amount, saturating at domain.MaxXP, and re-derives the level.
func addXP(state *domain.ProgressState, amount int) {
	if amount > domain.MaxXP-state.XP {
		state.XP = domain.MaxXP
	} else {
		state.XP += amount
	}
	state.Level = domain.LevelFor(state.XP)
}

// upsertLesson applies update to the record for lessonID, creating a minimal
// record first when the learner has never touched the lesson.
func upsertLesson(state *domain.ProgressState, lessonID string, update func(*domain.LessonProgress)) {
	_, idx := state.Lesson(lessonID)
	if idx < 0 {
		state.LessonsCompleted = append(state.LessonsCompleted, domain.LessonProgress{LessonID: lessonID})
		idx = len(state.LessonsCompleted) - 1
	}
	update(&state.LessonsCompleted[idx])
}

func grantXP(state domain.ProgressState, amount int, reason string, m mutation) domain.ProgressState {
	next := state.Clone()
	addXP(&next, amount)
	return RecordActivity(next, m.entry(domain.ActivityXP, fmt.Sprintf("+%d XP", amount), reason, amount))
}

// completeLesson reports whether this was the first completion of lessonID.
// A repeat still logs the completion but leaves XP and lesson records alone.
// The entry always carries the base lesson reward, bonus or not.
func completeLesson(state domain.ProgressState, lessonID, moduleID string, m mutation) (domain.ProgressState, bool) {
	entry := m.entry(domain.ActivityLesson, "Lesson Completed", "Completed lesson "+lessonID, domain.LessonXP)
	existing, idx := state.Lesson(lessonID)
	if idx >= 0 && existing.Completed {
		return RecordActivity(state.Clone(), entry), false
	}

	earned := domain.LessonXP
	if idx < 0 {
		earned += domain.FirstTimeBonusXP
	}

	next := state.Clone()
	completedAt := m.now
	upsertLesson(&next, lessonID, func(l *domain.LessonProgress) {
		l.ModuleID = moduleID
		l.Completed = true
		l.CompletedAt = &completedAt
	})
	addXP(&next, earned)
	return RecordActivity(next, entry), true
}

func passQuiz(state domain.ProgressState, lessonID string, score int, m mutation) domain.ProgressState {
	perfect := score == 100
	earned := domain.QuizPassXP
	title := "Quiz Passed"
	if perfect {
		earned += domain.QuizPerfectBonusXP
		title = "Perfect Quiz!"
	}

	next := state.Clone()
	addXP(&next, earned)
	next.TotalQuizzesPassed++
	upsertLesson(&next, lessonID, func(l *domain.LessonProgress) {
		s := score
		l.QuizScore = &s
	})
	return RecordActivity(next, m.entry(domain.ActivityQuiz, title, fmt.Sprintf("Scored %d%%", score), earned))
}

func completeExercise(state domain.ProgressState, lessonID string, m mutation) domain.ProgressState {
	next := state.Clone()
	addXP(&next, domain.ExerciseXP)
	next.TotalExercisesCompleted++
	upsertLesson(&next, lessonID, func(l *domain.LessonProgress) {
		l.ExerciseCompleted = true
	})
	return RecordActivity(next, m.entry(domain.ActivityExercise, "Exercise Completed", "", domain.ExerciseXP))
}

func incrementChatMessages(state domain.ProgressState) domain.ProgressState {
	next := state.Clone()
	next.TotalChatMessages++
	return next
}

// updateStreak reports false when activity was already observed today.
func updateStreak(state domain.ProgressState, m mutation) (domain.ProgressState, bool) {
	today := m.today()
	if state.LastActiveDate == today {
		return state, false
	}

	next := state.Clone()
	if state.LastActiveDate == m.yesterday() {
		next.CurrentStreak++
	} else {
		next.CurrentStreak = 1
	}
	if next.CurrentStreak > next.LongestStreak {
		next.LongestStreak = next.CurrentStreak
	}
	next.LastActiveDate = today
	return next, true
}

// normalizeDay rewrites legacy lastActiveDate values into dayLayout. Values
// that parse as neither are returned unchanged and simply never match today.
func normalizeDay(day string) string {
	if day == "" {
		return ""
	}
	if _, err := time.Parse(dayLayout, day); err == nil {
		return day
	}
	if t, err := time.Parse(legacyDayLayout, day); err == nil {
		return t.Format(dayLayout)
	}
	return day
}
