package eventrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/Overland-East-Bay/terreiro-api/internal/domain"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/eventrepo"
)

// Repo is an in-memory implementation of eventrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu   sync.RWMutex
	byID map[domain.EventID]domain.ExternalEvent
}

func NewRepo() *Repo {
	return &Repo{
		byID: make(map[domain.EventID]domain.ExternalEvent),
	}
}

func (r *Repo) Create(ctx context.Context, e domain.ExternalEvent) error {
	_ = ctx
	if e.ID <= 0 {
		return eventrepo.ErrAlreadyExists // treat non-positive ID as invalid; app layer allocates IDs
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[e.ID]; ok {
		return eventrepo.ErrAlreadyExists
	}
	r.byID[e.ID] = domain.CloneExternalEvent(e)
	return nil
}

func (r *Repo) Save(ctx context.Context, e domain.ExternalEvent) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[e.ID]; !ok {
		return eventrepo.ErrNotFound
	}
	r.byID[e.ID] = domain.CloneExternalEvent(e)
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.EventID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byID[id]; !ok {
		return eventrepo.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.EventID) (domain.ExternalEvent, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.byID[id]
	if !ok {
		return domain.ExternalEvent{}, eventrepo.ErrNotFound
	}
	return domain.CloneExternalEvent(e), nil
}

func (r *Repo) List(ctx context.Context) ([]domain.ExternalEvent, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.ExternalEvent, 0, len(r.byID))
	for _, e := range r.byID {
		out = append(out, domain.CloneExternalEvent(e))
	}
	sortEvents(out)
	return out, nil
}

func (r *Repo) NextID(ctx context.Context) (domain.EventID, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var max domain.EventID
	for id := range r.byID {
		if id > max {
			max = id
		}
	}
	return max + 1, nil
}

func (r *Repo) ReplaceAll(ctx context.Context, es []domain.ExternalEvent) error {
	_ = ctx
	next := make(map[domain.EventID]domain.ExternalEvent, len(es))
	for _, e := range es {
		next[e.ID] = domain.CloneExternalEvent(e)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = next
	return nil
}

func sortEvents(es []domain.ExternalEvent) {
	sort.Slice(es, func(i, j int) bool {
		a, b := es[i], es[j]
		switch {
		case a.Date != nil && b.Date != nil:
			if !a.Date.Equal(*b.Date) {
				return a.Date.After(*b.Date)
			}
		case a.Date != nil:
			return true
		case b.Date != nil:
			return false
		}
		return a.ID > b.ID
	})
}
