package app

import "cyber-sensei-progress/internal/domain"

// RecordActivity prepends entry to the activity log and keeps the newest
// domain.ActivityLogCap entries. The input state's log is not modified.
func RecordActivity(state domain.ProgressState, entry domain.ActivityLogEntry) domain.ProgressState {
	size := len(state.ActivityLog) + 1
	if size > domain.ActivityLogCap {
		size = domain.ActivityLogCap
	}
	log := make([]domain.ActivityLogEntry, 0, size)
	log = append(log, entry)
	log = append(log, state.ActivityLog[:size-1]...)
	state.ActivityLog = log
	return state
}
