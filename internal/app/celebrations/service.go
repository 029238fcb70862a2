package celebrations

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Overland-East-Bay/terreiro-api/internal/domain"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/memberrepo"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/tablestore"
)

// Input is the editable part of a celebration.
type Input struct {
	Name     string
	Date     *time.Time
	Payments map[domain.MemberID]domain.Payment
}

// Service owns the celebrations ("festas") and their payment lists.
type Service struct {
	members memberrepo.Repository
	sync    tablestore.Syncer

	mu    sync.Mutex
	items map[domain.CelebrationID]domain.Celebration

	Logger *slog.Logger
}

func NewService(members memberrepo.Repository, syncer tablestore.Syncer) *Service {
	return &Service{
		members: members,
		sync:    syncer,
		items:   make(map[domain.CelebrationID]domain.Celebration),
		Logger:  slog.Default(),
	}
}

// Restore replaces the celebrations, e.g. with records loaded from storage.
func (s *Service) Restore(cs []domain.Celebration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = make(map[domain.CelebrationID]domain.Celebration, len(cs))
	for _, c := range cs {
		c = domain.CloneCelebration(c)
		s.items[c.ID] = c
	}
}

// List returns dated celebrations newest first, then undated ones.
func (s *Service) List(ctx context.Context) []domain.Celebration {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked()
}

func (s *Service) Get(ctx context.Context, id domain.CelebrationID) (domain.Celebration, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.items[id]
	if !ok {
		return domain.Celebration{}, notFound()
	}
	return domain.CloneCelebration(c), nil
}

func (s *Service) Create(ctx context.Context, in Input) (domain.Celebration, error) {
	c, err := s.validate(ctx, in)
	if err != nil {
		return domain.Celebration{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	var max domain.CelebrationID
	for id := range s.items {
		if id > max {
			max = id
		}
	}
	c.ID = max + 1
	s.items[c.ID] = c
	s.Logger.Info("celebration created", slog.Int64("id", int64(c.ID)), slog.String("name", c.Name))
	s.submitLocked()
	return domain.CloneCelebration(c), nil
}

// Update overwrites a celebration, payments included.
func (s *Service) Update(ctx context.Context, id domain.CelebrationID, in Input) (domain.Celebration, error) {
	c, err := s.validate(ctx, in)
	if err != nil {
		return domain.Celebration{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return domain.Celebration{}, notFound()
	}
	c.ID = id
	s.items[id] = c
	s.submitLocked()
	return domain.CloneCelebration(c), nil
}

// SetPayment records one member's payment. Marking a member unpaid clears the amount.
func (s *Service) SetPayment(ctx context.Context, id domain.CelebrationID, member domain.MemberID, p domain.Payment) (domain.Celebration, error) {
	p, err := s.checkPayment(ctx, member, p, "payment")
	if err != nil {
		return domain.Celebration{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.items[id]
	if !ok {
		return domain.Celebration{}, notFound()
	}
	c = domain.CloneCelebration(c)
	c.Payments[member] = p
	s.items[id] = c
	s.submitLocked()
	return domain.CloneCelebration(c), nil
}

func (s *Service) Delete(ctx context.Context, id domain.CelebrationID) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return notFound()
	}
	delete(s.items, id)
	s.submitLocked()
	return nil
}

// MemberDeleted drops a deleted member's payments.
func (s *Service) MemberDeleted(ctx context.Context, id domain.MemberID) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := false
	for cid, c := range s.items {
		if _, ok := c.Payments[id]; !ok {
			continue
		}
		c = domain.CloneCelebration(c)
		delete(c.Payments, id)
		s.items[cid] = c
		changed = true
	}
	if changed {
		s.submitLocked()
	}
	return nil
}

func (s *Service) validate(ctx context.Context, in Input) (domain.Celebration, error) {
	name := domain.NormalizeHumanName(in.Name)
	if name == "" {
		return domain.Celebration{}, validationError("invalid name", map[string]any{"name": "must be non-empty"})
	}
	c := domain.Celebration{Name: name, Payments: make(map[domain.MemberID]domain.Payment, len(in.Payments))}
	if in.Date != nil {
		d := *in.Date
		c.Date = &d
	}
	for mid, p := range in.Payments {
		p, err := s.checkPayment(ctx, mid, p, fmt.Sprintf("payments.%d", mid))
		if err != nil {
			return domain.Celebration{}, err
		}
		c.Payments[mid] = p
	}
	return c, nil
}

func (s *Service) checkPayment(ctx context.Context, mid domain.MemberID, p domain.Payment, field string) (domain.Payment, error) {
	if _, err := s.members.GetByID(ctx, mid); errors.Is(err, memberrepo.ErrNotFound) {
		return domain.Payment{}, validationError("unknown member", map[string]any{field: "must reference an existing member"})
	} else if err != nil {
		return domain.Payment{}, err
	}
	if p.AmountCents < 0 {
		return domain.Payment{}, validationError("invalid amount", map[string]any{field: "amount must not be negative"})
	}
	if !p.Paid {
		p.AmountCents = 0
	}
	return p, nil
}

func (s *Service) listLocked() []domain.Celebration {
	out := make([]domain.Celebration, 0, len(s.items))
	for _, c := range s.items {
		out = append(out, domain.CloneCelebration(c))
	}
	sort.Slice(out, func(i, j int) bool {
		di, dj := out[i].Date, out[j].Date
		switch {
		case di != nil && dj != nil && !di.Equal(*dj):
			return di.After(*dj)
		case (di == nil) != (dj == nil):
			return di != nil
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Service) submitLocked() {
	if s.sync == nil {
		return
	}
	recs, err := tablestore.Encode(s.listLocked(), func(c domain.Celebration) int64 { return int64(c.ID) })
	if err != nil {
		s.Logger.Error("encode celebrations", slog.Any("err", err))
		return
	}
	s.sync.Submit(tablestore.TableCelebrations, recs)
}

func notFound() *Error {
	return &Error{Status: 404, Code: "CELEBRATION_NOT_FOUND", Message: "celebration not found"}
}
