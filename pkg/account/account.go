// Package account defines the identities, session credentials, and the
// client capability shared by the API-backed and browser-backed Instagram
// backends.
package account

import (
	"context"
	"strings"
	"time"
)

// Identity is one Instagram account as seen in a follow relationship.
// The numeric ID is the stable key; usernames can change at any time, so
// equality and set membership are always decided by ID.
type Identity struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Credentials are what the API-backed login exchanges for a session. The
// browser-backed login only uses Username to pre-fill the form; the user
// types the password into Instagram directly.
type Credentials struct {
	Username         string
	Password         string
	VerificationCode string
}

// Session is the credential bundle that authorizes calls on behalf of a
// user. It is created by a successful login, persisted by the session
// store, and owned by one client for the lifetime of a run.
type Session struct {
	Username   string    `json:"username"`
	UserID     string    `json:"user_id"`
	SessionID  string    `json:"session_id"`
	CSRFToken  string    `json:"csrf_token"`
	UserAgent  string    `json:"user_agent,omitempty"`
	CapturedAt time.Time `json:"captured_at"`
}

// Valid reports whether the session carries enough state to authenticate a
// request. It says nothing about whether Instagram still accepts it.
func (s *Session) Valid() bool {
	return s != nil && s.SessionID != "" && s.UserID != ""
}

// Client is the capability both backends implement. Everything above this
// interface (reconciliation, the unfollow controller, the CLI) is
// backend-agnostic; the implementation is chosen once, at construction
// time, from configuration.
type Client interface {
	// Login establishes or restores a session. The browser variant blocks
	// until the user finishes signing in out-of-band or ctx is cancelled;
	// it deliberately has no fixed timeout since challenges are open-ended.
	Login(ctx context.Context, creds Credentials) (*Session, error)

	// ListFollowing returns every account the session's user follows,
	// aggregated across all pages. A retried call starts again from the
	// first page; partial pagination state is never resumed.
	ListFollowing(ctx context.Context, sess *Session) ([]Identity, error)

	// ListFollowers returns every account following the session's user,
	// with the same pagination contract as ListFollowing.
	ListFollowers(ctx context.Context, sess *Session) ([]Identity, error)

	// Unfollow removes the follow edge from the session's user to target.
	// The platform-side effect is not reversible by this program.
	Unfollow(ctx context.Context, sess *Session, target Identity) error
}

// NormalizeUsername lowercases and trims whitespace and a leading @, the way
// usernames arrive from text fields and shell arguments. Instagram handles
// are case-insensitive, so the lowercase form is canonical.
func NormalizeUsername(username string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(username), "@"))
}
