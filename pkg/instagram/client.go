// Package instagram implements the API-backed account client. It talks to
// the same private web endpoints the instagram.com frontend uses, with the
// session cookies captured at login.
package instagram

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"igunfollow/pkg/account"
	errs "igunfollow/pkg/errors"
	"igunfollow/pkg/logger"
	"igunfollow/pkg/ratelimit"
	"igunfollow/pkg/retry"
)

// Client is the API-backed Instagram client
type Client struct {
	httpClient *http.Client
	headers    map[string]string
	limiter    ratelimit.Limiter
	logger     logger.Logger
}

var _ account.Client = (*Client)(nil)

// NewClient creates a new API-backed client. requestsPerMinute paces the
// paginated list fetches.
func NewClient(timeout time.Duration, requestsPerMinute int, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if requestsPerMinute <= 0 {
		requestsPerMinute = 30
	}

	jar, _ := cookiejar.New(nil)
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
			Jar:     jar,
		},
		headers: map[string]string{
			"User-Agent":       "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/121.0.0.0 Safari/537.36",
			"Accept":           "*/*",
			"Accept-Language":  "en-US,en;q=0.9",
			"X-IG-App-ID":      WebAppID,
			"X-Requested-With": "XMLHttpRequest",
			"Referer":          BaseURL + "/",
		},
		limiter: ratelimit.NewTokenBucket(requestsPerMinute, time.Minute),
		logger:  log,
	}
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// Login exchanges username/password for a session via the web login
// endpoint. A verification code in the credentials completes a pending
// two-factor prompt.
func (c *Client) Login(ctx context.Context, creds account.Credentials) (*account.Session, error) {
	username := account.NormalizeUsername(creds.Username)
	if username == "" || creds.Password == "" {
		return nil, errs.New(errs.KindAuth, "username and password are required")
	}
	if !IsValidUsername(username) {
		return nil, errs.Newf(errs.KindAuth, "%q is not a valid Instagram username", username)
	}

	csrf, err := c.fetchLoginCSRF(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching login page: %w", err)
	}

	form := url.Values{}
	form.Set("username", username)
	// The web client sends the password in this envelope; version 0 is the
	// plain-text fallback the endpoint still accepts.
	form.Set("enc_password", fmt.Sprintf("#PWD_INSTAGRAM_BROWSER:0:%d:%s", time.Now().Unix(), creds.Password))
	form.Set("queryParams", "{}")
	form.Set("optIntoOneTap", "false")

	loginResp, err := c.postLoginForm(ctx, BaseURL+LoginAjaxEndpoint, csrf, form)
	if err != nil {
		return nil, fmt.Errorf("login request: %w", err)
	}

	if loginResp.TwoFactorRequired {
		if creds.VerificationCode == "" {
			return nil, errs.New(errs.KindChallenge, "Instagram requested a verification code (2FA)")
		}
		identifier := ""
		if loginResp.TwoFactorInfo != nil {
			identifier = loginResp.TwoFactorInfo.TwoFactorIdentifier
		}
		twoFactor := url.Values{}
		twoFactor.Set("username", username)
		twoFactor.Set("verificationCode", creds.VerificationCode)
		twoFactor.Set("identifier", identifier)
		loginResp, err = c.postLoginForm(ctx, BaseURL+TwoFactorEndpoint, csrf, twoFactor)
		if err != nil {
			return nil, fmt.Errorf("two-factor request: %w", err)
		}
	}

	if loginResp.CheckpointURL != "" {
		return nil, errs.New(errs.KindChallenge, "Instagram challenge required, verify the login in the app and try again")
	}
	if !loginResp.Authenticated {
		if loginResp.User {
			return nil, errs.New(errs.KindAuth, "wrong password")
		}
		return nil, errs.New(errs.KindAuth, "login failed, check your credentials")
	}

	sess := c.sessionFromCookies(username)
	if sess.UserID == "" {
		sess.UserID = loginResp.UserID
	}
	if !sess.Valid() {
		return nil, errs.New(errs.KindAuth, "login succeeded but no session cookies were issued")
	}

	c.logger.InfoWithFields("logged in", map[string]interface{}{
		"username": username,
		"user_id":  sess.UserID,
	})
	return sess, nil
}

// Validate checks a restored session against the current-user endpoint,
// filling in the user id and username if the stored file predates them.
// Transient network failures are retried briefly; everything else is
// surfaced as-is.
func (c *Client) Validate(ctx context.Context, sess *account.Session) error {
	if !sess.Valid() {
		return errs.New(errs.KindSessionExpired, "session is missing tokens")
	}

	resp, err := retry.DoWithResult(ctx, func() (*CurrentUserResponse, error) {
		var out CurrentUserResponse
		if err := c.getJSON(ctx, BaseURL+CurrentUserEndpoint, sess, &out); err != nil {
			return nil, err
		}
		return &out, nil
	}, &retry.Config{
		MaxAttempts: 3,
		Backoff:     &retry.ConstantBackoff{Delay: 3 * time.Second},
		RetryIf:     errs.TransientNetwork,
		Logger:      c.logger,
	})
	if err != nil {
		return err
	}

	if sess.Username == "" {
		sess.Username = resp.User.Username
	}
	if sess.UserID == "" {
		sess.UserID = resp.User.PK.String()
	}
	return nil
}

// ListFollowing returns every account the session's user follows
func (c *Client) ListFollowing(ctx context.Context, sess *account.Session) ([]account.Identity, error) {
	return c.listFriendships(ctx, sess, "following", FollowingURL)
}

// ListFollowers returns every account following the session's user
func (c *Client) ListFollowers(ctx context.Context, sess *account.Session) ([]account.Identity, error) {
	return c.listFriendships(ctx, sess, "followers", FollowersURL)
}

// listFriendships aggregates all pages of one relation. It never resumes
// mid-page: a failed pass is retried by the caller from the start.
func (c *Client) listFriendships(ctx context.Context, sess *account.Session, relation string, pageURL func(userID, maxID string) string) ([]account.Identity, error) {
	if !sess.Valid() {
		return nil, errs.New(errs.KindSessionExpired, "session is missing tokens")
	}

	var identities []account.Identity
	maxID := ""
	page := 0
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var resp FriendshipPage
		if err := c.getJSON(ctx, pageURL(sess.UserID, maxID), sess, &resp); err != nil {
			return nil, fmt.Errorf("fetching %s page %d: %w", relation, page+1, err)
		}

		for _, user := range resp.Users {
			identities = append(identities, account.Identity{
				ID:       user.PK.String(),
				Username: user.Username,
			})
		}
		page++

		c.logger.DebugWithFields("fetched friendship page", map[string]interface{}{
			"relation": relation,
			"page":     page,
			"total":    len(identities),
		})

		if resp.NextMaxID == "" {
			break
		}
		maxID = resp.NextMaxID
	}

	c.logger.InfoWithFields("fetched full relation", map[string]interface{}{
		"relation": relation,
		"count":    len(identities),
		"pages":    page,
	})
	return identities, nil
}

// Unfollow removes the follow edge to target
func (c *Client) Unfollow(ctx context.Context, sess *account.Session, target account.Identity) error {
	if !sess.Valid() {
		return errs.New(errs.KindSessionExpired, "session is missing tokens")
	}
	if target.ID == "" {
		return errs.New(errs.KindNotFound, "target has no user id")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, UnfollowURL(target.ID), strings.NewReader(url.Values{}.Encode()))
	if err != nil {
		return errs.Newf(errs.KindUnknown, "failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	c.applySession(req, sess)

	var resp UnfollowResponse
	if err := c.doJSON(req, &resp); err != nil {
		return err
	}
	if resp.Status != "ok" {
		return errs.Newf(errs.KindUnknown, "unfollow returned status %q", resp.Status)
	}

	c.logger.DebugWithFields("unfollowed", map[string]interface{}{
		"target_id":       target.ID,
		"target_username": target.Username,
	})
	return nil
}

// fetchLoginCSRF loads the login page so the csrf cookie lands in the jar
func (c *Client) fetchLoginCSRF(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, BaseURL+LoginPageEndpoint, nil)
	if err != nil {
		return "", errs.Newf(errs.KindUnknown, "failed to create request: %v", err)
	}
	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if csrf := c.cookieValue("csrftoken"); csrf != "" {
		return csrf, nil
	}
	return "", errs.New(errs.KindUnknown, "login page issued no csrf token")
}

// postLoginForm submits a login-flow form with the csrf header set. The
// login endpoints report two-factor and checkpoint states as HTTP 400 with
// a JSON body, so a well-formed body on 200 or 400 is returned for the
// caller to interpret instead of being classified as a failure outright.
func (c *Client) postLoginForm(ctx context.Context, rawURL, csrf string, form url.Values) (*LoginResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errs.Newf(errs.KindUnknown, "failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("X-CSRFToken", csrf)

	resp, err := c.do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &errs.Error{
			Kind:    errs.KindNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	var out LoginResponse
	if jsonErr := json.Unmarshal(body, &out); jsonErr == nil &&
		(resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusBadRequest) {
		return &out, nil
	}

	if classified := errs.ClassifyStatus(resp.StatusCode, body); classified != nil {
		return nil, errs.WithRetryAfterHeader(classified, resp.Header.Get("Retry-After"))
	}
	return nil, &errs.Error{
		Kind:    errs.KindParsing,
		Message: "failed to parse login response",
		Code:    resp.StatusCode,
	}
}

// getJSON performs an authenticated GET and decodes the JSON response
func (c *Client) getJSON(ctx context.Context, rawURL string, sess *account.Session, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return errs.Newf(errs.KindUnknown, "failed to create request: %v", err)
	}
	c.applySession(req, sess)
	return c.doJSON(req, target)
}

// doJSON runs the request, classifies the response status, and decodes the
// body
func (c *Client) doJSON(req *http.Request, target interface{}) error {
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errs.Error{
			Kind:    errs.KindNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	if classified := errs.ClassifyStatus(resp.StatusCode, body); classified != nil {
		classified = errs.WithRetryAfterHeader(classified, resp.Header.Get("Retry-After"))
		c.logger.WarnWithFields("request failed", map[string]interface{}{
			"url":    req.URL.String(),
			"status": resp.StatusCode,
			"kind":   string(classified.Kind),
		})
		return classified
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		preview := string(body)
		if len(preview) > 200 {
			preview = preview[:200] + "..."
		}
		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          req.URL.String(),
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": preview,
		})
		return &errs.Error{
			Kind:    errs.KindParsing,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    resp.StatusCode,
		}
	}
	return nil
}

// do performs an HTTP request with the configured headers
func (c *Client) do(req *http.Request) (*http.Response, error) {
	for key, value := range c.headers {
		if req.Header.Get(key) == "" {
			req.Header.Set(key, value)
		}
	}

	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, &errs.Error{
			Kind:    errs.KindNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}

	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})
	return resp, nil
}

// applySession attaches the session cookies and csrf header to a request
func (c *Client) applySession(req *http.Request, sess *account.Session) {
	cookies := []string{
		"sessionid=" + sess.SessionID,
		"ds_user_id=" + sess.UserID,
	}
	if sess.CSRFToken != "" {
		cookies = append(cookies, "csrftoken="+sess.CSRFToken)
		req.Header.Set("X-CSRFToken", sess.CSRFToken)
	}
	req.Header.Set("Cookie", strings.Join(cookies, "; "))
	if sess.UserAgent != "" {
		req.Header.Set("User-Agent", sess.UserAgent)
	}
}

// sessionFromCookies builds a session from the jar after a login flow
func (c *Client) sessionFromCookies(username string) *account.Session {
	return &account.Session{
		Username:   username,
		UserID:     c.cookieValue("ds_user_id"),
		SessionID:  c.cookieValue("sessionid"),
		CSRFToken:  c.cookieValue("csrftoken"),
		UserAgent:  c.headers["User-Agent"],
		CapturedAt: time.Now(),
	}
}

func (c *Client) cookieValue(name string) string {
	base, _ := url.Parse(BaseURL)
	for _, cookie := range c.httpClient.Jar.Cookies(base) {
		if cookie.Name == name {
			return cookie.Value
		}
	}
	return ""
}
