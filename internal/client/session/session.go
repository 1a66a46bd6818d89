// Package session holds the operator's bearer token and identity for the
// lifetime of a console run. The console only consumes what the identity
// provider hands out: a token and the user claims behind it. A 401 from any
// gateway call invalidates the session exactly once.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"packtrack/internal/client/models"
	"packtrack/internal/common"
)

type Session struct {
	mu       sync.Mutex
	token    string
	user     models.AuthUser
	onLogout func()
}

// New creates an unauthenticated session. onLogout fires once when the
// session is invalidated, whether by explicit logout or a gateway 401.
func New(onLogout func()) *Session {
	return &Session{onLogout: onLogout}
}

// Start installs a token and the user identity returned alongside it.
func (s *Session) Start(token string, user models.AuthUser) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = user
}

// Resume installs a previously issued JWT, recovering the user identity from
// its claims without verifying the signature (the gateway remains the
// authority; a stale token just earns a 401 on first use). An expired or
// malformed token is rejected up front.
func (s *Session) Resume(token string) error {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		if exp.Before(time.Now()) {
			return common.ErrInvalidToken
		}
	}

	user := models.AuthUser{}
	if v, ok := claims["sub"].(string); ok {
		user.Sub = v
	}
	if v, ok := claims["role"].(string); ok {
		user.Role = v
	}
	if v, ok := claims["name"].(string); ok {
		user.Name = v
	}
	if v, ok := claims["username"].(string); ok {
		user.Username = v
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
	s.user = user
	return nil
}

func (s *Session) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token
}

func (s *Session) User() models.AuthUser {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.user
}

func (s *Session) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.token != ""
}

// Invalidate drops the token and fires the logout hook. Safe to call more
// than once; the hook fires only on the authenticated→unauthenticated edge.
func (s *Session) Invalidate() {
	s.mu.Lock()
	wasAuthenticated := s.token != ""
	s.token = ""
	s.user = models.AuthUser{}
	hook := s.onLogout
	s.mu.Unlock()

	if wasAuthenticated && hook != nil {
		hook()
	}
}
