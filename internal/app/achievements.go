package app

import "cyber-sensei-progress/internal/domain"

// EvaluateAchievements returns the catalog entries state newly qualifies for,
// in catalog order. Entries already in state.AchievementsEarned are skipped.
// It never grants XP.
func EvaluateAchievements(state domain.ProgressState, catalog []domain.Achievement) []domain.Achievement {
	var unlocked []domain.Achievement
	for _, achievement := range catalog {
		if state.HasAchievement(achievement.ID) {
			continue
		}
		if requirementMet(state, achievement.Requirement) {
			unlocked = append(unlocked, achievement)
		}
	}
	return unlocked
}

func requirementMet(state domain.ProgressState, req domain.Requirement) bool {
	switch req.Kind {
	case domain.RequirementLessons:
		return state.CompletedLessons() >= req.Value
	case domain.RequirementXP:
		return state.XP >= req.Value
	case domain.RequirementStreak:
		return state.CurrentStreak >= req.Value || state.LongestStreak >= req.Value
	case domain.RequirementQuizzes:
		return state.TotalQuizzesPassed >= req.Value
	case domain.RequirementExercises:
		return state.TotalExercisesCompleted >= req.Value
	case domain.RequirementModules:
		// No operation counts completed modules yet.
		return false
	default:
		return false
	}
}

// awardAchievements unions newly qualified ids into the earned set.
// state must already be a private copy.
func awardAchievements(state domain.ProgressState, catalog []domain.Achievement) (domain.ProgressState, []domain.Achievement) {
	unlocked := EvaluateAchievements(state, catalog)
	for _, achievement := range unlocked {
		state.AchievementsEarned = append(state.AchievementsEarned, achievement.ID)
	}
	return state, unlocked
}

// achievementStatuses annotates the catalog with earned flags.
func achievementStatuses(state domain.ProgressState, catalog []domain.Achievement) []domain.AchievementStatus {
	out := make([]domain.AchievementStatus, 0, len(catalog))
	for _, achievement := range catalog {
		out = append(out, domain.AchievementStatus{
			Achievement: achievement,
			Earned:      state.HasAchievement(achievement.ID),
		})
	}
	return out
}
