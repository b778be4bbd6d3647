package browser

import (
	"testing"

	"github.com/go-rod/rod/lib/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igunfollow/pkg/account"
)

func TestSessionFromCookies_WaitsForBothTokens(t *testing.T) {
	// Only csrftoken so far, the user is still typing their password.
	sess := sessionFromCookies("testuser", []*proto.NetworkCookie{
		{Name: "csrftoken", Value: "csrf-1", Domain: ".instagram.com"},
	})
	assert.Nil(t, sess)

	// sessionid landed but ds_user_id has not yet.
	sess = sessionFromCookies("testuser", []*proto.NetworkCookie{
		{Name: "csrftoken", Value: "csrf-1", Domain: ".instagram.com"},
		{Name: "sessionid", Value: "sess-1", Domain: ".instagram.com"},
	})
	assert.Nil(t, sess)

	sess = sessionFromCookies("testuser", []*proto.NetworkCookie{
		{Name: "csrftoken", Value: "csrf-1", Domain: ".instagram.com"},
		{Name: "sessionid", Value: "sess-1", Domain: ".instagram.com"},
		{Name: "ds_user_id", Value: "12345", Domain: ".instagram.com"},
	})
	require.NotNil(t, sess)
	assert.Equal(t, "testuser", sess.Username)
	assert.Equal(t, "sess-1", sess.SessionID)
	assert.Equal(t, "12345", sess.UserID)
	assert.Equal(t, "csrf-1", sess.CSRFToken)
	assert.False(t, sess.CapturedAt.IsZero())
}

func TestSessionFromCookies_IgnoresForeignDomains(t *testing.T) {
	sess := sessionFromCookies("testuser", []*proto.NetworkCookie{
		{Name: "sessionid", Value: "evil", Domain: ".example.com"},
		{Name: "ds_user_id", Value: "666", Domain: ".example.com"},
	})
	assert.Nil(t, sess)
}

func TestSessionCookieParams(t *testing.T) {
	params := sessionCookieParams(&account.Session{
		SessionID: "sess-1",
		UserID:    "12345",
		CSRFToken: "csrf-1",
	})
	require.Len(t, params, 3)

	byName := map[string]*proto.NetworkCookieParam{}
	for _, p := range params {
		byName[p.Name] = p
		assert.Equal(t, ".instagram.com", p.Domain)
		assert.Equal(t, "/", p.Path)
		assert.True(t, p.Secure)
	}
	assert.Equal(t, "sess-1", byName["sessionid"].Value)
	assert.True(t, byName["sessionid"].HTTPOnly)
	assert.Equal(t, "12345", byName["ds_user_id"].Value)
	assert.Equal(t, "csrf-1", byName["csrftoken"].Value)
}

func TestSessionCookieParams_NoCSRF(t *testing.T) {
	params := sessionCookieParams(&account.Session{SessionID: "sess-1", UserID: "12345"})
	assert.Len(t, params, 2)
}
