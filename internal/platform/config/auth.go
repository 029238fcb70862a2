package config

import (
	"errors"
	"fmt"
	"strings"
)

// Auth modes.
//
// dev trusts the X-Debug-Subject header (local workflows only), magiclink
// requires a session token obtained through the magic-link exchange, none
// disables authentication.
const (
	AuthModeDev       = "dev"
	AuthModeMagicLink = "magiclink"
	AuthModeNone      = "none"
)

// minSecretBytes matches the HS256 key size floor enforced by the token service.
const minSecretBytes = 16

func (c Config) validateAuth() error {
	switch c.AuthMode {
	case AuthModeDev:
		if strings.TrimSpace(c.DevSubject) == "" {
			return errors.New("DEV_SUBJECT must not be blank in dev auth mode")
		}
	case AuthModeNone:
	case AuthModeMagicLink:
		if len(c.MagicLinkSecret) < minSecretBytes {
			return fmt.Errorf("MAGIC_LINK_SECRET must be at least %d bytes", minSecretBytes)
		}
		if c.MagicLinkTTL <= 0 || c.SessionTTL <= 0 {
			return errors.New("MAGIC_LINK_TTL and SESSION_TTL must be positive durations (e.g. 15m)")
		}
		if c.ClockSkew < 0 {
			return errors.New("AUTH_CLOCK_SKEW must not be negative")
		}
	default:
		return fmt.Errorf("unknown auth mode %q (want dev, magiclink or none)", c.AuthMode)
	}
	return nil
}

// SubjectAllowed reports whether sub may request a magic link.
func (c Config) SubjectAllowed(sub string) bool {
	if len(c.AllowedSubjects) == 0 {
		return true
	}
	for _, s := range c.AllowedSubjects {
		if strings.EqualFold(strings.TrimSpace(s), sub) {
			return true
		}
	}
	return false
}
