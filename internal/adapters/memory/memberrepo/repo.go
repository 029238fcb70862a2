package memberrepo

import (
	"context"
	"strings"
	"sync"

	"github.com/Overland-East-Bay/terreiro-api/internal/domain"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/memberrepo"
)

// Repo is an in-memory implementation of memberrepo.Repository.
// It is safe for concurrent use.
type Repo struct {
	mu sync.RWMutex

	byID map[domain.MemberID]domain.Member
}

func NewRepo() *Repo {
	return &Repo{
		byID: make(map[domain.MemberID]domain.Member),
	}
}

func (r *Repo) Create(ctx context.Context, m domain.Member) error {
	_ = ctx
	if m.ID <= 0 {
		return memberrepo.ErrAlreadyExists // treat non-positive ID as invalid; app layer allocates IDs
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[m.ID]; ok {
		return memberrepo.ErrAlreadyExists
	}
	r.byID[m.ID] = domain.CloneMember(m)
	return nil
}

func (r *Repo) Update(ctx context.Context, m domain.Member) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[m.ID]; !ok {
		return memberrepo.ErrNotFound
	}
	r.byID[m.ID] = domain.CloneMember(m)
	return nil
}

func (r *Repo) Delete(ctx context.Context, id domain.MemberID) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.byID[id]; !ok {
		return memberrepo.ErrNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *Repo) GetByID(ctx context.Context, id domain.MemberID) (domain.Member, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.byID[id]
	if !ok {
		return domain.Member{}, memberrepo.ErrNotFound
	}
	return domain.CloneMember(m), nil
}

func (r *Repo) List(ctx context.Context, f memberrepo.Filter) ([]domain.Member, error) {
	_ = ctx
	qTokens := tokenize(f.Query)

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Member, 0, len(r.byID))
	for _, m := range r.byID {
		if f.Status != nil && m.Status != *f.Status {
			continue
		}
		if f.Function != nil && m.Function != *f.Function {
			continue
		}
		if f.Department != nil && m.Department != *f.Department {
			continue
		}
		if len(qTokens) > 0 && !matchesAllTokens(m.Name, qTokens) {
			continue
		}
		out = append(out, domain.CloneMember(m))
	}
	domain.SortMembersByName(out, nil)
	return out, nil
}

func (r *Repo) NextID(ctx context.Context) (domain.MemberID, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]domain.MemberID, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	return domain.NextMemberID(ids), nil
}

func (r *Repo) ReplaceAll(ctx context.Context, ms []domain.Member) error {
	_ = ctx
	next := make(map[domain.MemberID]domain.Member, len(ms))
	for _, m := range ms {
		next[m.ID] = domain.CloneMember(m)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID = next
	return nil
}

func tokenize(s string) []string {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return nil
	}
	return strings.Fields(s)
}

func matchesAllTokens(name string, tokens []string) bool {
	hay := strings.ToLower(name)
	for _, t := range tokens {
		if !strings.Contains(hay, t) {
			return false
		}
	}
	return true
}
