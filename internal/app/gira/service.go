package gira

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/Overland-East-Bay/terreiro-api/internal/domain"
	"github.com/Overland-East-Bay/terreiro-api/internal/platform/metrics"
	clockport "github.com/Overland-East-Bay/terreiro-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/memberrepo"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/tablestore"
)

// Session is the open ceremony session as presented to callers.
type Session struct {
	State State
	Pools Pools

	// Attendance of the active members, each list ordered by name.
	Present []domain.Member
	Absent  []domain.Member
	Unset   []domain.Member
}

// HistoryDetail is a ceremony record with the names of the members it references.
type HistoryDetail struct {
	Record domain.CeremonyRecord
	// Names resolves member ids; members deleted since the ceremony are missing.
	Names map[domain.MemberID]string
}

// Service owns the open ceremony session and the ceremony history.
// Every mutation is serialized; persistence is handed to the syncer.
type Service struct {
	repo memberrepo.Repository
	clk  clockport.Clock
	sync tablestore.Syncer

	mu      sync.Mutex
	state   State
	history []domain.CeremonyRecord // newest first

	Options Options
	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

func NewService(repo memberrepo.Repository, clk clockport.Clock, syncer tablestore.Syncer) *Service {
	return &Service{
		repo:   repo,
		clk:    clk,
		sync:   syncer,
		state:  NewState(),
		Logger: slog.Default(),
	}
}

// Restore replaces the ceremony history, e.g. with records loaded from storage.
func (s *Service) Restore(records []domain.CeremonyRecord) {
	out := make([]domain.CeremonyRecord, 0, len(records))
	for _, r := range records {
		out = append(out, domain.CloneCeremonyRecord(r))
	}
	sortNewestFirst(out)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = out
}

func (s *Service) Session(ctx context.Context) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionLocked(ctx)
}

// Apply validates a against the registry and the current pools, then reduces it into the session.
func (s *Service) Apply(ctx context.Context, a Action) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms, err := s.activeMembers(ctx)
	if err != nil {
		return Session{}, err
	}
	if err := s.validate(ms, a); err != nil {
		return Session{}, err
	}
	s.state = Reduce(s.state, a)
	return s.sessionLocked(ctx)
}

// MarkAllActivePresent marks every active member present.
func (s *Service) MarkAllActivePresent(ctx context.Context) (Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms, err := s.activeMembers(ctx)
	if err != nil {
		return Session{}, err
	}
	ids := make([]domain.MemberID, 0, len(ms))
	for _, m := range ms {
		ids = append(ids, m.ID)
	}
	s.state = Reduce(s.state, MarkAllPresent{Members: ids})
	return s.sessionLocked(ctx)
}

// Finalize records the session in history (newest first) and starts a new session.
func (s *Service) Finalize(ctx context.Context) (domain.CeremonyRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms, err := s.repo.List(ctx, memberrepo.Filter{})
	if err != nil {
		return domain.CeremonyRecord{}, err
	}
	now := s.clk.Now()
	rec, next, err := Finalize(ms, s.state, s.nextHistoryIDLocked(now.UnixMilli()), now)
	if err != nil {
		return domain.CeremonyRecord{}, err
	}

	s.history = append([]domain.CeremonyRecord{rec}, s.history...)
	s.state = next
	s.Metrics.CeremonyFinalized()
	s.Logger.Info("ceremony finalized",
		slog.Int64("id", int64(rec.ID)),
		slog.String("label", rec.Label),
		slog.Int("present", len(rec.Present)),
		slog.Int("absent", len(rec.Absent)),
	)
	s.submitHistoryLocked()
	return domain.CloneCeremonyRecord(rec), nil
}

func (s *Service) History(ctx context.Context) []domain.CeremonyRecord {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CeremonyRecord, 0, len(s.history))
	for _, r := range s.history {
		out = append(out, domain.CloneCeremonyRecord(r))
	}
	return out
}

func (s *Service) HistoryRecord(ctx context.Context, id domain.HistoryID) (HistoryDetail, error) {
	s.mu.Lock()
	var (
		rec   domain.CeremonyRecord
		found bool
	)
	for _, r := range s.history {
		if r.ID == id {
			rec, found = domain.CloneCeremonyRecord(r), true
			break
		}
	}
	s.mu.Unlock()
	if !found {
		return HistoryDetail{}, &Error{
			Status:  404,
			Code:    "CEREMONY_NOT_FOUND",
			Message: "ceremony record not found",
		}
	}

	ms, err := s.repo.List(ctx, memberrepo.Filter{})
	if err != nil {
		return HistoryDetail{}, err
	}
	names := make(map[domain.MemberID]string, len(ms))
	for _, m := range ms {
		names[m.ID] = m.Name
	}
	return HistoryDetail{Record: rec, Names: names}, nil
}

// DeleteHistory removes every ceremony record.
func (s *Service) DeleteHistory(ctx context.Context) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = nil
	s.Logger.Info("ceremony history cleared")
	s.submitHistoryLocked()
}

// MemberDeleted drops a removed member from the open session.
func (s *Service) MemberDeleted(ctx context.Context, id domain.MemberID) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = Reduce(s.state, SetPresence{Member: id, Mark: domain.PresenceUnset})
}

func (s *Service) sessionLocked(ctx context.Context) (Session, error) {
	ms, err := s.activeMembers(ctx)
	if err != nil {
		return Session{}, err
	}
	out := Session{
		State:   s.state.Clone(),
		Pools:   ComputePools(ms, s.state, s.Options),
		Present: []domain.Member{},
		Absent:  []domain.Member{},
		Unset:   []domain.Member{},
	}
	for _, m := range ms {
		switch s.state.Presence[m.ID] {
		case domain.PresencePresent:
			out.Present = append(out.Present, m)
		case domain.PresenceAbsent:
			out.Absent = append(out.Absent, m)
		default:
			out.Unset = append(out.Unset, m)
		}
	}
	return out, nil
}

func (s *Service) activeMembers(ctx context.Context) ([]domain.Member, error) {
	active := domain.StatusActive
	return s.repo.List(ctx, memberrepo.Filter{Status: &active})
}

func (s *Service) validate(active []domain.Member, a Action) error {
	byID := make(map[domain.MemberID]domain.Member, len(active))
	for _, m := range active {
		byID[m.ID] = m
	}

	switch a := a.(type) {
	case SetPresence:
		if a.Mark == domain.PresenceUnset {
			return nil
		}
		if _, ok := byID[a.Member]; !ok {
			return validationError("only active members can be marked", map[string]any{"memberId": "must reference an active member"})
		}
	case MarkAllPresent:
		for _, id := range a.Members {
			if _, ok := byID[id]; !ok {
				return validationError("only active members can be marked", map[string]any{"memberId": "must reference an active member"})
			}
		}
	case SetPairing:
		pools := ComputePools(active, s.state, s.Options)
		choices, ok := pools.AssistantOptions[a.Medium]
		if !ok {
			return validationError("medium must be a present member able to lead", map[string]any{"mediumId": "not a present medium"})
		}
		// Moving an assistant away from another medium is allowed; the reducer releases them.
		if a.Assistant != nil && !containsMember(choices, *a.Assistant) && !containsMember(pools.Assistants, *a.Assistant) {
			return validationError("assistant is not available for this medium", map[string]any{"assistantId": "not an assistant candidate"})
		}
	case SetDepartmentSlot:
		if a.Slot != domain.SlotReception && a.Slot != domain.SlotCanteen {
			return validationError("invalid department slot", map[string]any{"slot": "must be reception or canteen"})
		}
		if a.Member == nil {
			return nil
		}
		pools := ComputePools(active, s.state, s.Options)
		if !containsMember(pools.DepartmentCandidates[a.Slot], *a.Member) {
			return validationError("member is not available for this department slot", map[string]any{"memberId": "not a department candidate"})
		}
	}
	return nil
}

func (s *Service) nextHistoryIDLocked(candidate int64) domain.HistoryID {
	id := domain.HistoryID(candidate)
	for _, r := range s.history {
		if r.ID >= id {
			id = r.ID + 1
		}
	}
	return id
}

func (s *Service) submitHistoryLocked() {
	if s.sync == nil {
		return
	}
	recs, err := tablestore.Encode(s.history, func(r domain.CeremonyRecord) int64 { return int64(r.ID) })
	if err != nil {
		s.Logger.Error("encode ceremony history", slog.Any("err", err))
		return
	}
	s.sync.Submit(tablestore.TableCeremonyHistory, recs)
}

func sortNewestFirst(rs []domain.CeremonyRecord) {
	sort.SliceStable(rs, func(i, j int) bool {
		if !rs[i].FinalizedAt.Equal(rs[j].FinalizedAt) {
			return rs[i].FinalizedAt.After(rs[j].FinalizedAt)
		}
		return rs[i].ID > rs[j].ID
	})
}
