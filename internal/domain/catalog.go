package domain

import "fmt"

// RequirementKind selects the counter an achievement is measured against.
type RequirementKind int

const (
	RequirementLessons RequirementKind = iota + 1
	RequirementXP
	RequirementStreak
	RequirementQuizzes
	RequirementExercises
	// RequirementModules has no counter behind it; nothing tracks completed modules.
	RequirementModules
)

var requirementNames = map[RequirementKind]string{
	RequirementLessons:   "lessons",
	RequirementXP:        "xp",
	RequirementStreak:    "streak",
	RequirementQuizzes:   "quizzes",
	RequirementExercises: "exercises",
	RequirementModules:   "modules",
}

func (k RequirementKind) String() string {
	if name, ok := requirementNames[k]; ok {
		return name
	}
	return fmt.Sprintf("RequirementKind(%d)", int(k))
}

func (k RequirementKind) MarshalText() ([]byte, error) {
	name, ok := requirementNames[k]
	if !ok {
		return nil, fmt.Errorf("unknown requirement kind %d", int(k))
	}
	return []byte(name), nil
}

func (k *RequirementKind) UnmarshalText(text []byte) error {
	for kind, name := range requirementNames {
		if name == string(text) {
			*k = kind
			return nil
		}
	}
	return fmt.Errorf("unknown requirement kind %q", text)
}

// Requirement is the threshold an achievement unlocks at.
type Requirement struct {
	Kind  RequirementKind `json:"type"`
	Value int             `json:"value"`
}

// Achievement is a static catalog entry.
type Achievement struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description"`
	Icon        string      `json:"icon"`
	Requirement Requirement `json:"requirement"`
}

// AchievementStatus is a catalog entry annotated with the learner's earned flag.
type AchievementStatus struct {
	Achievement
	Earned bool `json:"earned"`
}

// Achievements returns the achievement catalog in display order.
//
// curious_mind is described as a chat milestone but measured in lessons; the
// requirement is kept as shipped until product intent is confirmed.
func Achievements() []Achievement {
	return []Achievement{
		{ID: "first_steps", Title: "First Steps", Description: "Complete your first lesson", Icon: "🎯", Requirement: Requirement{RequirementLessons, 1}},
		{ID: "quick_learner", Title: "Quick Learner", Description: "Complete 5 lessons", Icon: "⚡", Requirement: Requirement{RequirementLessons, 5}},
		{ID: "dedicated", Title: "Dedicated", Description: "Complete 10 lessons", Icon: "📚", Requirement: Requirement{RequirementLessons, 10}},
		{ID: "streak_starter", Title: "Streak Starter", Description: "Maintain a 3-day streak", Icon: "🔥", Requirement: Requirement{RequirementStreak, 3}},
		{ID: "streak_master", Title: "Streak Master", Description: "Maintain a 7-day streak", Icon: "🔥", Requirement: Requirement{RequirementStreak, 7}},
		{ID: "streak_legend", Title: "Streak Legend", Description: "Maintain a 30-day streak", Icon: "⭐", Requirement: Requirement{RequirementStreak, 30}},
		{ID: "quiz_novice", Title: "Quiz Novice", Description: "Pass 5 quizzes", Icon: "✅", Requirement: Requirement{RequirementQuizzes, 5}},
		{ID: "quiz_master", Title: "Quiz Master", Description: "Pass 25 quizzes", Icon: "🏆", Requirement: Requirement{RequirementQuizzes, 25}},
		{ID: "hands_on", Title: "Hands-On", Description: "Complete 5 exercises", Icon: "🛠️", Requirement: Requirement{RequirementExercises, 5}},
		{ID: "practitioner", Title: "Practitioner", Description: "Complete 15 exercises", Icon: "💪", Requirement: Requirement{RequirementExercises, 15}},
		{ID: "xp_hunter", Title: "XP Hunter", Description: "Earn 1000 XP", Icon: "💎", Requirement: Requirement{RequirementXP, 1000}},
		{ID: "xp_legend", Title: "XP Legend", Description: "Earn 5000 XP", Icon: "👑", Requirement: Requirement{RequirementXP, 5000}},
		{ID: "module_complete", Title: "Module Master", Description: "Complete a full module", Icon: "🎓", Requirement: Requirement{RequirementModules, 1}},
		{ID: "curious_mind", Title: "Curious Mind", Description: "Send 50 chat messages", Icon: "🧠", Requirement: Requirement{RequirementLessons, 50}},
	}
}

// ChallengeKind selects the daily counter a challenge reads.
type ChallengeKind string

const (
	ChallengeLesson   ChallengeKind = "lesson"
	ChallengeQuiz     ChallengeKind = "quiz"
	ChallengeExercise ChallengeKind = "exercise"
	ChallengeStreak   ChallengeKind = "streak"
	ChallengeChat     ChallengeKind = "chat"
)

// Challenge is a static daily challenge definition.
type Challenge struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Kind        ChallengeKind `json:"type"`
	Requirement int           `json:"requirement"`
	XPReward    int           `json:"xpReward"`
	Difficulty  string        `json:"difficulty"`
}

// QuizChallengeMinScore is the score a quiz must reach to count towards the quiz challenge.
const QuizChallengeMinScore = 80

// DailyChallengesShown is how many challenges from the catalog are offered each day.
const DailyChallengesShown = 3

// DailyChallenges returns the daily challenge catalog.
func DailyChallenges() []Challenge {
	return []Challenge{
		{ID: "complete_lesson", Title: "Knowledge Seeker", Description: "Complete 2 lessons today", Kind: ChallengeLesson, Requirement: 2, XPReward: 100, Difficulty: "easy"},
		{ID: "pass_quiz", Title: "Quiz Champion", Description: "Pass a quiz with 80%+ score", Kind: ChallengeQuiz, Requirement: 1, XPReward: 150, Difficulty: "medium"},
		{ID: "complete_exercise", Title: "Hands-On Hacker", Description: "Complete 2 interactive exercises", Kind: ChallengeExercise, Requirement: 2, XPReward: 200, Difficulty: "medium"},
		{ID: "maintain_streak", Title: "Consistency King", Description: "Maintain your learning streak", Kind: ChallengeStreak, Requirement: 1, XPReward: 75, Difficulty: "easy"},
		{ID: "chat_ai", Title: "Curious Mind", Description: "Ask the AI Sensei 5 questions", Kind: ChallengeChat, Requirement: 5, XPReward: 50, Difficulty: "easy"},
	}
}
