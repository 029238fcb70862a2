// Package magiclink issues and verifies HS256 tokens for passwordless sign-in.
//
// A link token (typ "magic") is short lived and can be exchanged exactly once
// for a session token (typ "session"). Only session tokens authenticate requests.
package magiclink

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"

	clockport "github.com/Overland-East-Bay/terreiro-api/internal/ports/out/clock"
)

const (
	TypeMagic   = "magic"
	TypeSession = "session"

	DefaultLinkTTL    = 15 * time.Minute
	DefaultSessionTTL = 30 * 24 * time.Hour
	DefaultClockSkew  = 30 * time.Second
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenUsed    = errors.New("token already used")
)

// Config configures token signing. Secret is required.
type Config struct {
	Secret     []byte
	Issuer     string
	LinkTTL    time.Duration
	SessionTTL time.Duration
	ClockSkew  time.Duration
}

// Claims is the token payload.
type Claims struct {
	Type string `json:"typ"`
	jwt.RegisteredClaims
}

// Session is the result of a successful link exchange.
type Session struct {
	Token     string
	Subject   string
	ExpiresAt time.Time
}

type Service struct {
	cfg  Config
	clk  clockport.Clock
	used *cache.Cache
}

func New(cfg Config, clk clockport.Clock) (*Service, error) {
	if len(cfg.Secret) < 16 {
		return nil, fmt.Errorf("magic link secret must be at least 16 bytes")
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "terreiro-api"
	}
	if cfg.LinkTTL <= 0 {
		cfg.LinkTTL = DefaultLinkTTL
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = DefaultSessionTTL
	}
	if cfg.ClockSkew < 0 {
		cfg.ClockSkew = 0
	}
	return &Service{
		cfg:  cfg,
		clk:  clk,
		used: cache.New(cfg.LinkTTL+cfg.ClockSkew, time.Minute),
	}, nil
}

// IssueLink signs a single-use link token for subject.
func (s *Service) IssueLink(subject string) (string, time.Time, error) {
	return s.issue(subject, TypeMagic, s.cfg.LinkTTL)
}

// IssueSession signs a session token directly, skipping the link step.
func (s *Service) IssueSession(subject string) (Session, error) {
	tok, exp, err := s.issue(subject, TypeSession, s.cfg.SessionTTL)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: tok, Subject: subject, ExpiresAt: exp}, nil
}

// Exchange trades a link token for a session token. A link token is accepted once.
func (s *Service) Exchange(raw string) (Session, error) {
	c, err := s.parse(raw, TypeMagic)
	if err != nil {
		return Session{}, err
	}
	ttl := s.cfg.LinkTTL + s.cfg.ClockSkew
	if c.ExpiresAt != nil {
		ttl = c.ExpiresAt.Sub(s.clk.Now()) + s.cfg.ClockSkew
	}
	if err := s.used.Add(c.ID, struct{}{}, ttl); err != nil {
		return Session{}, ErrTokenUsed
	}
	return s.IssueSession(c.Subject)
}

// Verify checks a session token and returns its subject.
func (s *Service) Verify(ctx context.Context, raw string) (string, error) {
	_ = ctx
	c, err := s.parse(raw, TypeSession)
	if err != nil {
		return "", err
	}
	return c.Subject, nil
}

func (s *Service) issue(subject, typ string, ttl time.Duration) (string, time.Time, error) {
	if subject == "" {
		return "", time.Time{}, fmt.Errorf("subject is required")
	}
	now := s.clk.Now()
	exp := now.Add(ttl)
	claims := Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.cfg.Issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.cfg.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", typ, err)
	}
	return tok, exp, nil
}

func (s *Service) parse(raw, typ string) (Claims, error) {
	var c Claims
	tok, err := jwt.ParseWithClaims(raw, &c,
		func(*jwt.Token) (any, error) { return s.cfg.Secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.cfg.Issuer),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(s.cfg.ClockSkew),
		jwt.WithTimeFunc(s.clk.Now),
	)
	if err != nil || !tok.Valid {
		return Claims{}, ErrInvalidToken
	}
	if c.Type != typ || c.Subject == "" || c.ID == "" {
		return Claims{}, ErrInvalidToken
	}
	return c, nil
}
