package instagram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"igunfollow/pkg/account"
	errs "igunfollow/pkg/errors"
	"igunfollow/pkg/logger"
)

// roundTripFunc lets tests stub the transport with a plain function
type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func newTestClient(t *testing.T, handler roundTripFunc) *Client {
	t.Helper()
	c := NewClient(5*time.Second, 600, logger.NewTestLogger())
	c.httpClient.Transport = handler
	return c
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func testSession() *account.Session {
	return &account.Session{
		Username:   "testuser",
		UserID:     "12345",
		SessionID:  "sess-abc",
		CSRFToken:  "csrf-xyz",
		CapturedAt: time.Now(),
	}
}

func TestListFollowing_AggregatesPages(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		assert.Contains(t, req.URL.Path, "/friendships/12345/following/")
		assert.Contains(t, req.Header.Get("Cookie"), "sessionid=sess-abc")
		assert.Equal(t, WebAppID, req.Header.Get("X-IG-App-ID"))

		switch req.URL.Query().Get("max_id") {
		case "":
			return jsonResponse(200, `{
				"users": [
					{"pk": 1, "username": "alpha"},
					{"pk": 2, "username": "bravo"}
				],
				"next_max_id": "cursor-2",
				"status": "ok"
			}`), nil
		case "cursor-2":
			return jsonResponse(200, `{
				"users": [{"pk": 3, "username": "charlie"}],
				"status": "ok"
			}`), nil
		default:
			t.Fatalf("unexpected max_id %q", req.URL.Query().Get("max_id"))
			return nil, nil
		}
	})

	got, err := client.ListFollowing(context.Background(), testSession())
	require.NoError(t, err)
	assert.Equal(t, []account.Identity{
		{ID: "1", Username: "alpha"},
		{ID: "2", Username: "bravo"},
		{ID: "3", Username: "charlie"},
	}, got)
}

func TestListFollowers_RateLimited(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		resp := jsonResponse(429, `{"message": "Please wait a few minutes before you try again.", "status": "fail"}`)
		resp.Header.Set("Retry-After", "120")
		return resp, nil
	})

	_, err := client.ListFollowers(context.Background(), testSession())
	require.Error(t, err)
	assert.Equal(t, errs.KindRateLimit, errs.KindOf(err))
	assert.Equal(t, 2*time.Minute, errs.RetryAfterHint(err))
}

func TestListFollowing_SessionExpired(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(401, `{"message": "login_required", "status": "fail"}`), nil
	})

	_, err := client.ListFollowing(context.Background(), testSession())
	require.Error(t, err)
	assert.Equal(t, errs.KindSessionExpired, errs.KindOf(err))
}

func TestListFollowing_RejectsInvalidSession(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		t.Fatal("no request should be sent")
		return nil, nil
	})

	_, err := client.ListFollowing(context.Background(), &account.Session{Username: "x"})
	require.Error(t, err)
	assert.Equal(t, errs.KindSessionExpired, errs.KindOf(err))
}

func TestListFollowing_NetworkError(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return nil, fmt.Errorf("connection refused")
	})

	_, err := client.ListFollowing(context.Background(), testSession())
	require.Error(t, err)
	assert.Equal(t, errs.KindNetwork, errs.KindOf(err))
}

func TestUnfollow_Success(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, http.MethodPost, req.Method)
		assert.Contains(t, req.URL.Path, "/friendships/destroy/42/")
		assert.Equal(t, "csrf-xyz", req.Header.Get("X-CSRFToken"))
		return jsonResponse(200, `{"friendship_status": {"following": false}, "status": "ok"}`), nil
	})

	err := client.Unfollow(context.Background(), testSession(), account.Identity{ID: "42", Username: "gone"})
	assert.NoError(t, err)
}

func TestUnfollow_NotFound(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(404, `{"message": "User not found", "status": "fail"}`), nil
	})

	err := client.Unfollow(context.Background(), testSession(), account.Identity{ID: "42", Username: "gone"})
	require.Error(t, err)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

func TestUnfollow_FailStatus(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(200, `{"status": "fail"}`), nil
	})

	err := client.Unfollow(context.Background(), testSession(), account.Identity{ID: "42"})
	require.Error(t, err)
	assert.Equal(t, errs.KindUnknown, errs.KindOf(err))
}

func TestUnfollow_RequiresUserID(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		t.Fatal("no request should be sent")
		return nil, nil
	})

	err := client.Unfollow(context.Background(), testSession(), account.Identity{Username: "noid"})
	require.Error(t, err)
	assert.Equal(t, errs.KindNotFound, errs.KindOf(err))
}

func TestLogin_Success(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		switch {
		case req.URL.Path == LoginPageEndpoint:
			resp := jsonResponse(200, "<html></html>")
			resp.Header.Add("Set-Cookie", "csrftoken=csrf-fresh; Path=/; Secure")
			return resp, nil
		case req.URL.Path == LoginAjaxEndpoint:
			require.Equal(t, "csrf-fresh", req.Header.Get("X-CSRFToken"))
			body, _ := io.ReadAll(req.Body)
			assert.Contains(t, string(body), "username=testuser")
			assert.Contains(t, string(body), "enc_password=%23PWD_INSTAGRAM_BROWSER%3A0%3A")

			resp := jsonResponse(200, `{"user": true, "authenticated": true, "userId": "12345", "status": "ok"}`)
			resp.Header.Add("Set-Cookie", "sessionid=sess-new; Path=/; Secure")
			resp.Header.Add("Set-Cookie", "ds_user_id=12345; Path=/; Secure")
			resp.Header.Add("Set-Cookie", "csrftoken=csrf-rotated; Path=/; Secure")
			return resp, nil
		default:
			t.Fatalf("unexpected path %s", req.URL.Path)
			return nil, nil
		}
	})

	sess, err := client.Login(context.Background(), account.Credentials{
		Username: "@TestUser",
		Password: "hunter2",
	})
	require.NoError(t, err)
	assert.Equal(t, "testuser", sess.Username)
	assert.Equal(t, "12345", sess.UserID)
	assert.Equal(t, "sess-new", sess.SessionID)
	assert.Equal(t, "csrf-rotated", sess.CSRFToken)
	assert.True(t, sess.Valid())
}

func TestLogin_WrongPassword(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path == LoginPageEndpoint {
			resp := jsonResponse(200, "<html></html>")
			resp.Header.Add("Set-Cookie", "csrftoken=csrf-fresh; Path=/")
			return resp, nil
		}
		return jsonResponse(200, `{"user": true, "authenticated": false, "status": "ok"}`), nil
	})

	_, err := client.Login(context.Background(), account.Credentials{Username: "testuser", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, errs.KindAuth, errs.KindOf(err))
	assert.Contains(t, err.Error(), "wrong password")
}

func TestLogin_TwoFactorWithoutCode(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path == LoginPageEndpoint {
			resp := jsonResponse(200, "<html></html>")
			resp.Header.Add("Set-Cookie", "csrftoken=csrf-fresh; Path=/")
			return resp, nil
		}
		return jsonResponse(400, `{"two_factor_required": true, "two_factor_info": {"two_factor_identifier": "abc"}, "status": "fail"}`), nil
	})

	_, err := client.Login(context.Background(), account.Credentials{Username: "testuser", Password: "hunter2"})
	require.Error(t, err)
	assert.Equal(t, errs.KindChallenge, errs.KindOf(err))
}

func TestLogin_Checkpoint(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		if req.URL.Path == LoginPageEndpoint {
			resp := jsonResponse(200, "<html></html>")
			resp.Header.Add("Set-Cookie", "csrftoken=csrf-fresh; Path=/")
			return resp, nil
		}
		return jsonResponse(400, `{"message": "checkpoint_required", "checkpoint_url": "/challenge/", "status": "fail"}`), nil
	})

	_, err := client.Login(context.Background(), account.Credentials{Username: "testuser", Password: "hunter2"})
	require.Error(t, err)
	assert.Equal(t, errs.KindChallenge, errs.KindOf(err))
}

func TestLogin_RequiresCredentials(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		t.Fatal("no request should be sent")
		return nil, nil
	})

	_, err := client.Login(context.Background(), account.Credentials{Username: "testuser"})
	require.Error(t, err)
	assert.Equal(t, errs.KindAuth, errs.KindOf(err))
}

func TestValidate_FillsIdentity(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		assert.Equal(t, CurrentUserEndpoint, req.URL.Path)
		return jsonResponse(200, `{"user": {"pk": 12345, "username": "testuser"}, "status": "ok"}`), nil
	})

	sess := testSession()
	sess.Username = ""

	err := client.Validate(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, "testuser", sess.Username)
}

func TestValidate_ExpiredSession(t *testing.T) {
	client := newTestClient(t, func(req *http.Request) (*http.Response, error) {
		return jsonResponse(403, `{"message": "login_required", "status": "fail"}`), nil
	})

	err := client.Validate(context.Background(), testSession())
	require.Error(t, err)
	assert.Equal(t, errs.KindSessionExpired, errs.KindOf(err))
}
