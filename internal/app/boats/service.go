package boats

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/Overland-East-Bay/terreiro-api/internal/domain"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/memberrepo"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/tablestore"
)

// BoatRefClearer drops member references to a deleted boat.
type BoatRefClearer interface {
	ClearBoat(ctx context.Context, boat domain.BoatID) (int, error)
}

// Input is the editable part of a boat.
type Input struct {
	Name     string
	Sponsors []domain.SponsorRef
}

// Service owns the juremação boats.
type Service struct {
	members memberrepo.Repository
	refs    BoatRefClearer
	sync    tablestore.Syncer

	mu    sync.Mutex
	boats map[domain.BoatID]domain.Boat

	Logger *slog.Logger
}

func NewService(members memberrepo.Repository, refs BoatRefClearer, syncer tablestore.Syncer) *Service {
	return &Service{
		members: members,
		refs:    refs,
		sync:    syncer,
		boats:   make(map[domain.BoatID]domain.Boat),
		Logger:  slog.Default(),
	}
}

// Restore replaces the boats, e.g. with records loaded from storage.
func (s *Service) Restore(bs []domain.Boat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.boats = make(map[domain.BoatID]domain.Boat, len(bs))
	for _, b := range bs {
		s.boats[b.ID] = domain.CloneBoat(b)
	}
}

// List returns the boats ordered by name.
func (s *Service) List(ctx context.Context) []domain.Boat {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listLocked()
}

func (s *Service) Get(ctx context.Context, id domain.BoatID) (domain.Boat, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boats[id]
	if !ok {
		return domain.Boat{}, notFound()
	}
	return domain.CloneBoat(b), nil
}

// Exists reports whether id names a boat.
func (s *Service) Exists(ctx context.Context, id domain.BoatID) bool {
	_, err := s.Get(ctx, id)
	return err == nil
}

func (s *Service) Create(ctx context.Context, in Input) (domain.Boat, error) {
	b, err := s.validate(ctx, in)
	if err != nil {
		return domain.Boat{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = s.nextIDLocked()
	s.boats[b.ID] = b
	s.submitLocked()
	return domain.CloneBoat(b), nil
}

func (s *Service) Update(ctx context.Context, id domain.BoatID, in Input) (domain.Boat, error) {
	b, err := s.validate(ctx, in)
	if err != nil {
		return domain.Boat{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.boats[id]; !ok {
		return domain.Boat{}, notFound()
	}
	b.ID = id
	s.boats[id] = b
	s.submitLocked()
	return domain.CloneBoat(b), nil
}

// Delete removes a boat and clears the jurema boat reference of its members.
func (s *Service) Delete(ctx context.Context, id domain.BoatID) error {
	s.mu.Lock()
	if _, ok := s.boats[id]; !ok {
		s.mu.Unlock()
		return notFound()
	}
	delete(s.boats, id)
	s.submitLocked()
	s.mu.Unlock()

	if s.refs == nil {
		return nil
	}
	n, err := s.refs.ClearBoat(ctx, id)
	if err != nil {
		return fmt.Errorf("clear boat references: %w", err)
	}
	s.Logger.Info("boat deleted", slog.Int64("id", int64(id)), slog.Int("members_cleared", n))
	return nil
}

// MemberDeleted removes a deleted member from every boat's sponsors.
func (s *Service) MemberDeleted(ctx context.Context, id domain.MemberID) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()

	changed := false
	for bid, b := range s.boats {
		kept := b.Sponsors[:0:0]
		for _, sp := range b.Sponsors {
			if sp.MemberID != id {
				kept = append(kept, sp)
			}
		}
		if len(kept) != len(b.Sponsors) {
			b.Sponsors = kept
			s.boats[bid] = b
			changed = true
		}
	}
	if changed {
		s.submitLocked()
	}
	return nil
}

// validate normalizes the name and checks that every sponsor is a member
// sponsoring with that entity line. Duplicate sponsors are dropped.
func (s *Service) validate(ctx context.Context, in Input) (domain.Boat, error) {
	name := domain.NormalizeHumanName(in.Name)
	if name == "" {
		return domain.Boat{}, validationError("invalid name", map[string]any{"name": "must be non-empty"})
	}
	b := domain.Boat{Name: name, Sponsors: []domain.SponsorRef{}}
	seen := make(map[domain.SponsorRef]bool, len(in.Sponsors))
	for i, sp := range in.Sponsors {
		if seen[sp] {
			continue
		}
		field := fmt.Sprintf("sponsors[%d]", i)
		m, err := s.members.GetByID(ctx, sp.MemberID)
		if errors.Is(err, memberrepo.ErrNotFound) {
			return domain.Boat{}, validationError("unknown sponsor", map[string]any{field: "must reference an existing member"})
		} else if err != nil {
			return domain.Boat{}, err
		}
		if !sponsors(m, sp.EntityKey) {
			return domain.Boat{}, validationError("invalid sponsor entity", map[string]any{field: "member does not sponsor with this entity"})
		}
		seen[sp] = true
		b.Sponsors = append(b.Sponsors, sp)
	}
	return b, nil
}

func sponsors(m domain.Member, k domain.EntityKey) bool {
	for _, e := range m.SponsorEntities {
		if e == k {
			return true
		}
	}
	return false
}

func (s *Service) listLocked() []domain.Boat {
	out := make([]domain.Boat, 0, len(s.boats))
	for _, b := range s.boats {
		out = append(out, domain.CloneBoat(b))
	}
	c := domain.NameCollator()
	sort.Slice(out, func(i, j int) bool {
		if r := c.CompareString(out[i].Name, out[j].Name); r != 0 {
			return r < 0
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func (s *Service) nextIDLocked() domain.BoatID {
	var max domain.BoatID
	for id := range s.boats {
		if id > max {
			max = id
		}
	}
	return max + 1
}

func (s *Service) submitLocked() {
	if s.sync == nil {
		return
	}
	recs, err := tablestore.Encode(s.listLocked(), func(b domain.Boat) int64 { return int64(b.ID) })
	if err != nil {
		s.Logger.Error("encode boats", slog.Any("err", err))
		return
	}
	s.sync.Submit(tablestore.TableBoats, recs)
}

func notFound() *Error {
	return &Error{Status: 404, Code: "BOAT_NOT_FOUND", Message: "boat not found"}
}
