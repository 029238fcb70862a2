package httpapi

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net/http"
	"strings"

	"github.com/Overland-East-Bay/terreiro-api/internal/app/members"
	"github.com/Overland-East-Bay/terreiro-api/internal/domain"
	"github.com/Overland-East-Bay/terreiro-api/internal/ports/out/memberrepo"
)

const maxImportUpload = 4 << 20

func (s *Server) ListMembers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := memberrepo.Filter{Query: q.Get("q")}
	if v := q.Get("status"); v != "" {
		st, err := domain.ParseMemberStatus(v)
		if err != nil {
			writeValidation(w, r, "invalid status filter", map[string]any{"status": err.Error()})
			return
		}
		f.Status = &st
	}
	if v := q.Get("function"); v != "" {
		fn, err := domain.ParseFunction(v)
		if err != nil {
			writeValidation(w, r, "invalid function filter", map[string]any{"function": err.Error()})
			return
		}
		f.Function = &fn
	}
	if v := q.Get("department"); v != "" {
		d, err := domain.ParseDepartment(v)
		if err != nil {
			writeValidation(w, r, "invalid department filter", map[string]any{"department": err.Error()})
			return
		}
		f.Department = &d
	}

	ms, err := s.Members.List(r.Context(), f)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"members": membersFromDomain(ms)})
}

func (s *Server) GetMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "memberId")
	if !ok {
		return
	}
	m, err := s.Members.Get(r.Context(), domain.MemberID(id))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"member": memberFromDomain(m)})
}

func (s *Server) CreateMember(w http.ResponseWriter, r *http.Request) {
	var body createMemberRequest
	raw, ok := decodeBody(w, r, &body)
	if !ok {
		return
	}
	s.idempotent(w, r, "/members", raw, func(ctx context.Context) (int, any, error) {
		m, err := s.Members.Create(ctx, createMemberInputFromRequest(body))
		if err != nil {
			return 0, nil, err
		}
		return http.StatusCreated, map[string]any{"member": memberFromDomain(m)}, nil
	})
}

func (s *Server) UpdateMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "memberId")
	if !ok {
		return
	}
	var body updateMemberRequest
	if _, ok := decodeBody(w, r, &body); !ok {
		return
	}
	m, err := s.Members.Update(r.Context(), domain.MemberID(id), updateMemberInputFromRequest(body))
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"member": memberFromDomain(m)})
}

func (s *Server) DeleteMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "memberId")
	if !ok {
		return
	}
	if err := s.Members.Delete(r.Context(), domain.MemberID(id)); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) SetSponsorEntities(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "memberId")
	if !ok {
		return
	}
	var body sponsorEntitiesRequest
	if _, ok := decodeBody(w, r, &body); !ok {
		return
	}
	m, err := s.Members.SetSponsorEntities(r.Context(), domain.MemberID(id), body.Entities)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"member": memberFromDomain(m)})
}

// ImportMembers accepts a CSV file either as the raw body or as the "file"
// part of a multipart form.
func (s *Server) ImportMembers(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxImportUpload)

	var src io.Reader = r.Body
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxImportUpload); err != nil {
			writeValidation(w, r, "invalid multipart upload", map[string]any{"file": err.Error()})
			return
		}
		f, _, err := r.FormFile("file")
		if err != nil {
			writeValidation(w, r, "missing file part", map[string]any{"file": "required"})
			return
		}
		defer f.Close()
		src = f
	}

	res, err := s.Members.Import(r.Context(), src)
	if err != nil {
		s.writeAppError(w, r, err)
		return
	}
	out := importResponse{
		Imported: membersFromDomain(res.Imported),
		Errors:   res.Errors,
		Warnings: res.Warnings,
	}
	if out.Errors == nil {
		out.Errors = []members.RowError{}
	}
	if out.Warnings == nil {
		out.Warnings = []members.RowError{}
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) MemberImportTemplate(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := members.WriteTemplate(&buf); err != nil {
		s.writeAppError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": members.TemplateFilename}))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *Server) RequestMagicLink(w http.ResponseWriter, r *http.Request) {
	var body magicLinkRequest
	if _, ok := decodeBody(w, r, &body); !ok {
		return
	}
	sub := strings.ToLower(strings.TrimSpace(body.Subject))
	if sub == "" {
		writeValidation(w, r, "subject is required", map[string]any{"subject": "must be non-empty"})
		return
	}
	// Unknown subjects get the same answer as known ones.
	if s.SubjectAllowed == nil || s.SubjectAllowed(sub) {
		tok, exp, err := s.Auth.IssueLink(sub)
		if err != nil {
			s.writeAppError(w, r, err)
			return
		}
		link := strings.TrimRight(s.PublicBaseURL, "/") + "/auth/session?token=" + tok
		s.logger().Info("magic link issued",
			"subject", sub,
			"expires_at", exp,
			"link", link,
		)
	} else {
		s.logger().Warn("magic link refused", "subject", sub)
	}
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) ExchangeMagicLink(w http.ResponseWriter, r *http.Request) {
	var body sessionRequest
	if _, ok := decodeBody(w, r, &body); !ok {
		return
	}
	sess, err := s.Auth.Exchange(strings.TrimSpace(body.Token))
	if err != nil {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", err.Error(), nil)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{Token: sess.Token, Subject: sess.Subject, ExpiresAt: sess.ExpiresAt})
}
