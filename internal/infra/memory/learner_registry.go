package memory

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"cyber-sensei-progress/internal/app"
	"cyber-sensei-progress/internal/domain"
)

// LearnerRegistry is an in-memory implementation of app.LearnerRepository.
// It keeps at most one live learner per id so all connections of a learner
// share a single Store. A learner stays resident while any holder has it
// acquired and is dropped by the release that brings its holders to zero.
type LearnerRegistry struct {
	open app.LearnerOpener
	sf   singleflight.Group

	mu       sync.Mutex
	learners map[string]*residentLearner
}

type residentLearner struct {
	learner *app.Learner
	holders int
}

func NewLearnerRegistry(open app.LearnerOpener) *LearnerRegistry {
	return &LearnerRegistry{
		open:     open,
		learners: make(map[string]*residentLearner),
	}
}

func (r *LearnerRegistry) Acquire(ctx context.Context, learnerID string) (*app.Learner, error) {
	if learnerID == "" {
		return nil, domain.ErrLearnerRequired
	}
	if learner, ok := r.hold(learnerID, nil); ok {
		return learner, nil
	}

	// Concurrent first opens share one load from persistence.
	result, err, _ := r.sf.Do(learnerID, func() (interface{}, error) {
		learner := r.open(ctx, learnerID)

		r.mu.Lock()
		defer r.mu.Unlock()
		if resident, ok := r.learners[learnerID]; ok {
			return resident.learner, nil
		}
		r.learners[learnerID] = &residentLearner{learner: learner}
		return learner, nil
	})
	if err != nil {
		return nil, err
	}
	learner, _ := r.hold(learnerID, result.(*app.Learner))
	return learner, nil
}

// hold takes a reference on the resident learner. When none is resident and
// opened is non-nil, opened becomes the resident learner; that only happens
// when every holder released it between the open and this call.
func (r *LearnerRegistry) hold(learnerID string, opened *app.Learner) (*app.Learner, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	resident, ok := r.learners[learnerID]
	if !ok {
		if opened == nil {
			return nil, false
		}
		resident = &residentLearner{learner: opened}
		r.learners[learnerID] = resident
	}
	resident.holders++
	return resident.learner, true
}

func (r *LearnerRegistry) Release(learnerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	resident, ok := r.learners[learnerID]
	if !ok {
		return
	}
	resident.holders--
	if resident.holders <= 0 {
		delete(r.learners, learnerID)
	}
}

// Len reports how many learners are held in memory.
func (r *LearnerRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.learners)
}
