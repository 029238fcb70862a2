package members

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Overland-East-Bay/terreiro-api/internal/domain"
	"github.com/Overland-East-Bay/terreiro-api/internal/platform/metrics"
	clockport "github.com/Overland-East-Bay/terreiro-api/internal/ports/out/clock"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/memberrepo"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/tablestore"
)

// DeleteHook is called after a member was removed from the registry.
type DeleteHook func(ctx context.Context, id domain.MemberID) error

type Service struct {
	repo memberrepo.Repository
	clk  clockport.Clock
	sync tablestore.Syncer

	mu    sync.Mutex
	hooks []DeleteHook

	// BoatExists validates jurema boat references. Nil accepts any id.
	BoatExists func(ctx context.Context, id domain.BoatID) bool

	Logger  *slog.Logger
	Metrics *metrics.Metrics
}

func NewService(repo memberrepo.Repository, clk clockport.Clock, syncer tablestore.Syncer) *Service {
	return &Service{
		repo:   repo,
		clk:    clk,
		sync:   syncer,
		Logger: slog.Default(),
	}
}

// OnDelete registers h to run after every member deletion.
func (s *Service) OnDelete(h DeleteHook) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hooks = append(s.hooks, h)
}

// Restore replaces the registry, e.g. with records loaded from storage.
func (s *Service) Restore(ctx context.Context, ms []domain.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.ReplaceAll(ctx, ms)
}

func (s *Service) List(ctx context.Context, f memberrepo.Filter) ([]domain.Member, error) {
	return s.repo.List(ctx, f)
}

func (s *Service) Get(ctx context.Context, id domain.MemberID) (domain.Member, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			return domain.Member{}, notFound()
		}
		return domain.Member{}, err
	}
	return m, nil
}

func (s *Service) Create(ctx context.Context, in CreateMemberInput) (domain.Member, error) {
	m, err := s.fromInput(ctx, in)
	if err != nil {
		return domain.Member{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id, err := s.repo.NextID(ctx)
	if err != nil {
		return domain.Member{}, err
	}
	now := s.clk.Now()
	m.ID = id
	m.CreatedAt = now
	m.UpdatedAt = now
	if err := s.repo.Create(ctx, m); err != nil {
		return domain.Member{}, err
	}
	s.Logger.Info("member created", slog.Int64("id", int64(m.ID)))
	s.submitLocked(ctx)
	return m, nil
}

func (s *Service) Update(ctx context.Context, id domain.MemberID, in UpdateMemberInput) (domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			return domain.Member{}, notFound()
		}
		return domain.Member{}, err
	}

	if in.Name.IsSpecified() {
		name := ""
		if !in.Name.IsNull() {
			name = domain.NormalizeHumanName(in.Name.Value())
		}
		if name == "" {
			return domain.Member{}, validationError("invalid name", map[string]any{"name": "must be non-empty"})
		}
		m.Name = name
	}
	if in.Status.IsSpecified() {
		if in.Status.IsNull() || !validStatus(in.Status.Value()) {
			return domain.Member{}, validationError("invalid status", map[string]any{"status": "must be active, on-leave or discharged"})
		}
		m.Status = in.Status.Value()
	}
	if in.Department.IsSpecified() {
		if in.Department.IsNull() || !validDepartment(in.Department.Value()) {
			return domain.Member{}, validationError("invalid department", map[string]any{"department": "must be a known department"})
		}
		m.Department = in.Department.Value()
	}
	if in.Function.IsSpecified() {
		if in.Function.IsNull() || !validFunction(in.Function.Value()) {
			return domain.Member{}, validationError("invalid function", map[string]any{"function": "must be a known function"})
		}
		m.Function = in.Function.Value()
	}
	if in.CanLead.IsSpecified() {
		m.CanLead = !in.CanLead.IsNull() && in.CanLead.Value()
	}
	applyTime(&m.EntryDate, in.EntryDate)
	applyTime(&m.BirthDate, in.BirthDate)
	if in.Orixas.IsSpecified() {
		m.Orixas = domain.Orixas{}
		if !in.Orixas.IsNull() {
			m.Orixas = trimOrixas(in.Orixas.Value())
		}
	}
	if in.Entities.IsSpecified() {
		m.Entities = nil
		if !in.Entities.IsNull() {
			ents, err := cleanEntities(in.Entities.Value())
			if err != nil {
				return domain.Member{}, err
			}
			m.Entities = ents
		}
	}
	if in.SymbolURL.IsSpecified() {
		m.SymbolURL = ""
		if !in.SymbolURL.IsNull() {
			m.SymbolURL = strings.TrimSpace(in.SymbolURL.Value())
		}
	}
	if in.Jurema.IsSpecified() {
		m.Jurema = domain.Jurema{}
		if !in.Jurema.IsNull() {
			if err := s.checkBoat(ctx, in.Jurema.Value().BoatID); err != nil {
				return domain.Member{}, err
			}
			m.Jurema = in.Jurema.Value()
		}
	}
	if in.SupportOrder.IsSpecified() {
		m.SupportOrder = domain.Milestone{}
		if !in.SupportOrder.IsNull() {
			m.SupportOrder = in.SupportOrder.Value()
		}
	}
	if in.PasseOrder.IsSpecified() {
		m.PasseOrder = domain.Milestone{}
		if !in.PasseOrder.IsNull() {
			m.PasseOrder = in.PasseOrder.Value()
		}
	}

	m.UpdatedAt = s.clk.Now()
	if err := s.repo.Update(ctx, m); err != nil {
		return domain.Member{}, err
	}
	s.submitLocked(ctx)
	return domain.CloneMember(m), nil
}

// Delete removes a member and then runs the delete hooks. Hook failures are
// logged; the deletion stands.
func (s *Service) Delete(ctx context.Context, id domain.MemberID) error {
	s.mu.Lock()
	if err := s.repo.Delete(ctx, id); err != nil {
		s.mu.Unlock()
		if errors.Is(err, memberrepo.ErrNotFound) {
			return notFound()
		}
		return err
	}
	s.submitLocked(ctx)
	hooks := append([]DeleteHook(nil), s.hooks...)
	s.mu.Unlock()

	s.Logger.Info("member deleted", slog.Int64("id", int64(id)))
	for _, h := range hooks {
		if err := h(ctx, id); err != nil {
			s.Logger.Error("member delete hook", slog.Int64("id", int64(id)), slog.Any("err", err))
		}
	}
	return nil
}

// SetSponsorEntities replaces the entity lines a member sponsors boats with.
// Keys are deduplicated and kept in display order.
func (s *Service) SetSponsorEntities(ctx context.Context, id domain.MemberID, keys []domain.EntityKey) (domain.Member, error) {
	seen := make(map[domain.EntityKey]bool, len(keys))
	for _, k := range keys {
		if !k.Valid() {
			return domain.Member{}, validationError("invalid entity key", map[string]any{"sponsorEntities": "unknown entity " + string(k)})
		}
		seen[k] = true
	}
	var ordered []domain.EntityKey
	for _, k := range domain.EntityKeys {
		if seen[k] {
			ordered = append(ordered, k)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, memberrepo.ErrNotFound) {
			return domain.Member{}, notFound()
		}
		return domain.Member{}, err
	}
	m.SponsorEntities = ordered
	m.UpdatedAt = s.clk.Now()
	if err := s.repo.Update(ctx, m); err != nil {
		return domain.Member{}, err
	}
	s.submitLocked(ctx)
	return m, nil
}

// ClearBoat drops the jurema boat reference of every member pointing at boat.
// It returns the number of members changed.
func (s *Service) ClearBoat(ctx context.Context, boat domain.BoatID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ms, err := s.repo.List(ctx, memberrepo.Filter{})
	if err != nil {
		return 0, err
	}
	n := 0
	now := s.clk.Now()
	for _, m := range ms {
		if m.Jurema.BoatID == nil || *m.Jurema.BoatID != boat {
			continue
		}
		m.Jurema.BoatID = nil
		m.UpdatedAt = now
		if err := s.repo.Update(ctx, m); err != nil {
			return n, err
		}
		n++
	}
	if n > 0 {
		s.submitLocked(ctx)
	}
	return n, nil
}

// Import reads members from a CSV file and commits every valid row.
func (s *Service) Import(ctx context.Context, r io.Reader) (ImportResult, error) {
	today := s.today()
	rows, res, err := parseImport(r, today)
	if err != nil {
		return ImportResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := s.repo.NextID(ctx)
	if err != nil {
		return ImportResult{}, err
	}
	now := s.clk.Now()
	res.Imported = make([]domain.Member, 0, len(rows))
	for _, row := range rows {
		m := row.member
		m.ID = next
		m.CreatedAt = now
		m.UpdatedAt = now
		if err := s.repo.Create(ctx, m); err != nil {
			return ImportResult{}, err
		}
		res.Imported = append(res.Imported, m)
		next++
	}

	s.Metrics.ImportRows(len(res.Imported), len(res.Errors))
	s.Logger.Info("members imported",
		slog.Int("imported", len(res.Imported)),
		slog.Int("errors", len(res.Errors)),
		slog.Int("warnings", len(res.Warnings)),
	)
	if len(res.Imported) > 0 {
		s.submitLocked(ctx)
	}
	return res, nil
}

func (s *Service) fromInput(ctx context.Context, in CreateMemberInput) (domain.Member, error) {
	name := domain.NormalizeHumanName(in.Name)
	if name == "" {
		return domain.Member{}, validationError("invalid name", map[string]any{"name": "must be non-empty"})
	}
	m := domain.Member{
		Name:         name,
		Status:       in.Status,
		Department:   in.Department,
		Function:     in.Function,
		CanLead:      in.CanLead,
		EntryDate:    in.EntryDate,
		BirthDate:    in.BirthDate,
		Orixas:       trimOrixas(in.Orixas),
		SymbolURL:    strings.TrimSpace(in.SymbolURL),
		Jurema:       in.Jurema,
		SupportOrder: in.SupportOrder,
		PasseOrder:   in.PasseOrder,
	}
	if m.Status == "" {
		m.Status = domain.StatusActive
	} else if !validStatus(m.Status) {
		return domain.Member{}, validationError("invalid status", map[string]any{"status": "must be active, on-leave or discharged"})
	}
	if m.Department == "" {
		m.Department = domain.DepartmentNone
	} else if !validDepartment(m.Department) {
		return domain.Member{}, validationError("invalid department", map[string]any{"department": "must be a known department"})
	}
	if m.Function == "" {
		m.Function = domain.FunctionNone
	} else if !validFunction(m.Function) {
		return domain.Member{}, validationError("invalid function", map[string]any{"function": "must be a known function"})
	}
	if m.EntryDate == nil {
		m.EntryDate = s.today()
	}
	ents, err := cleanEntities(in.Entities)
	if err != nil {
		return domain.Member{}, err
	}
	m.Entities = ents
	if err := s.checkBoat(ctx, m.Jurema.BoatID); err != nil {
		return domain.Member{}, err
	}
	return domain.CloneMember(m), nil
}

func (s *Service) checkBoat(ctx context.Context, id *domain.BoatID) error {
	if id == nil || s.BoatExists == nil || s.BoatExists(ctx, *id) {
		return nil
	}
	return validationError("unknown boat", map[string]any{"jurema.boatId": "must reference an existing boat"})
}

func (s *Service) submitLocked(ctx context.Context) {
	if s.sync == nil {
		return
	}
	ms, err := s.repo.List(ctx, memberrepo.Filter{})
	if err != nil {
		s.Logger.Error("list members for sync", slog.Any("err", err))
		return
	}
	recs, err := tablestore.Encode(ms, func(m domain.Member) int64 { return int64(m.ID) })
	if err != nil {
		s.Logger.Error("encode members", slog.Any("err", err))
		return
	}
	s.sync.Submit(tablestore.TableMembers, recs)
}

func (s *Service) today() *time.Time {
	d := clockport.Today(s.clk)
	return &d
}

func applyTime(dst **time.Time, o Optional[time.Time]) {
	if !o.IsSpecified() {
		return
	}
	if o.IsNull() {
		*dst = nil
		return
	}
	v := o.Value()
	*dst = &v
}

func trimOrixas(o domain.Orixas) domain.Orixas {
	return domain.Orixas{Primary: strings.TrimSpace(o.Primary), Secondary: strings.TrimSpace(o.Secondary)}
}

// cleanEntities rejects unknown entity lines and drops blank names.
func cleanEntities(in domain.Entities) (domain.Entities, error) {
	if len(in) == 0 {
		return nil, nil
	}
	out := make(domain.Entities, len(in))
	for k, v := range in {
		if !k.Valid() {
			return nil, validationError("invalid entity", map[string]any{"entities": "unknown entity " + string(k)})
		}
		if v = strings.TrimSpace(v); v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func validStatus(v domain.MemberStatus) bool {
	p, err := domain.ParseMemberStatus(string(v))
	return err == nil && p == v
}

func validDepartment(v domain.Department) bool {
	p, err := domain.ParseDepartment(string(v))
	return err == nil && p == v
}

func validFunction(v domain.Function) bool {
	p, err := domain.ParseFunction(string(v))
	return err == nil && p == v
}
