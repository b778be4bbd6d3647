// Package browser implements the browser-backed account client. Login opens
// a visible Chrome window and waits for the user to sign in themselves;
// list and unfollow calls then ride the logged-in browser session by
// issuing fetches inside the page, so they carry the exact cookies,
// fingerprint, and TLS stack of a real browser.
package browser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"igunfollow/pkg/account"
	errs "igunfollow/pkg/errors"
	"igunfollow/pkg/instagram"
	"igunfollow/pkg/logger"
	"igunfollow/pkg/ratelimit"
)

const (
	cookieDomain = ".instagram.com"
	// loginPollInterval is how often the login cookies are checked while
	// the user signs in manually.
	loginPollInterval = time.Second
)

// Client drives Instagram through a real Chrome instance
type Client struct {
	chromePath string
	limiter    ratelimit.Limiter
	logger     logger.Logger

	mu      sync.Mutex
	browser *rod.Browser
	cleanup func()
	page    *rod.Page
	// sessionID of the session the live page is authenticated as
	sessionID string
}

var _ account.Client = (*Client)(nil)

// NewClient creates a browser-backed client. chromePath overrides the
// auto-detected Chrome binary; empty means detect.
func NewClient(chromePath string, requestsPerMinute int, log logger.Logger) *Client {
	if log == nil {
		log = logger.GetLogger()
	}
	if requestsPerMinute <= 0 {
		requestsPerMinute = 30
	}
	return &Client{
		chromePath: chromePath,
		limiter:    ratelimit.NewSlidingWindow(requestsPerMinute, time.Minute),
		logger:     log,
	}
}

// Login opens a visible Chrome window on the Instagram login page and waits
// until the user has signed in, detected by the sessionid and ds_user_id
// cookies appearing. There is no fixed deadline; the wait ends when the
// cookies land, the window is closed, or ctx is cancelled.
func (c *Client) Login(ctx context.Context, creds account.Credentials) (*account.Session, error) {
	browser, cleanup, err := c.launch(ctx, false)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	page, err := browser.Page(proto.TargetCreateTarget{URL: instagram.BaseURL + instagram.LoginPageEndpoint})
	if err != nil {
		return nil, errs.Newf(errs.KindUnknown, "failed to open login page: %v", err)
	}

	username := account.NormalizeUsername(creds.Username)
	if username != "" {
		c.prefillUsername(page, username)
	}

	c.logger.Info("waiting for you to log in through the browser window")

	ticker := time.NewTicker(loginPollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		cookies, err := proto.NetworkGetCookies{}.Call(page)
		if err != nil {
			// The user closed the window before finishing.
			return nil, errs.New(errs.KindAuth, "browser window closed before login completed")
		}

		sess := sessionFromCookies(username, cookies.Cookies)
		if sess == nil {
			continue
		}
		sess.UserAgent = c.pageUserAgent(ctx, page)

		c.logger.InfoWithFields("browser login detected", map[string]interface{}{
			"user_id": sess.UserID,
		})
		return sess, nil
	}
}

// ListFollowing returns every account the session's user follows
func (c *Client) ListFollowing(ctx context.Context, sess *account.Session) ([]account.Identity, error) {
	return c.listFriendships(ctx, sess, "following", instagram.FollowingURL)
}

// ListFollowers returns every account following the session's user
func (c *Client) ListFollowers(ctx context.Context, sess *account.Session) ([]account.Identity, error) {
	return c.listFriendships(ctx, sess, "followers", instagram.FollowersURL)
}

func (c *Client) listFriendships(ctx context.Context, sess *account.Session, relation string, pageURL func(userID, maxID string) string) ([]account.Identity, error) {
	if !sess.Valid() {
		return nil, errs.New(errs.KindSessionExpired, "session is missing tokens")
	}
	page, err := c.ensureSession(ctx, sess)
	if err != nil {
		return nil, err
	}

	var identities []account.Identity
	maxID := ""
	pages := 0
	for {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}

		var resp instagram.FriendshipPage
		if err := c.fetchJSON(ctx, page, "GET", pageURL(sess.UserID, maxID), sess, &resp); err != nil {
			return nil, fmt.Errorf("fetching %s page %d: %w", relation, pages+1, err)
		}

		for _, user := range resp.Users {
			identities = append(identities, account.Identity{
				ID:       user.PK.String(),
				Username: user.Username,
			})
		}
		pages++

		if resp.NextMaxID == "" {
			break
		}
		maxID = resp.NextMaxID
	}

	c.logger.InfoWithFields("fetched full relation", map[string]interface{}{
		"relation": relation,
		"count":    len(identities),
		"pages":    pages,
	})
	return identities, nil
}

// Unfollow removes the follow edge to target through the live page
func (c *Client) Unfollow(ctx context.Context, sess *account.Session, target account.Identity) error {
	if !sess.Valid() {
		return errs.New(errs.KindSessionExpired, "session is missing tokens")
	}
	if target.ID == "" {
		return errs.New(errs.KindNotFound, "target has no user id")
	}
	page, err := c.ensureSession(ctx, sess)
	if err != nil {
		return err
	}

	var resp instagram.UnfollowResponse
	if err := c.fetchJSON(ctx, page, "POST", instagram.UnfollowURL(target.ID), sess, &resp); err != nil {
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

// Close shuts down any live browser instance
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closeLocked()
}

func (c *Client) closeLocked() {
	if c.cleanup != nil {
		c.cleanup()
	}
	c.browser = nil
	c.cleanup = nil
	c.page = nil
	c.sessionID = ""
}

// ensureSession returns a page authenticated as sess, launching a headless
// Chrome and installing the session cookies on first use.
func (c *Client) ensureSession(ctx context.Context, sess *account.Session) (*rod.Page, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.page != nil && c.sessionID == sess.SessionID {
		return c.page, nil
	}
	c.closeLocked()

	browser, cleanup, err := c.launch(ctx, true)
	if err != nil {
		return nil, err
	}

	if err := browser.SetCookies(sessionCookieParams(sess)); err != nil {
		cleanup()
		return nil, errs.Newf(errs.KindUnknown, "failed to install session cookies: %v", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: instagram.BaseURL + "/"})
	if err != nil {
		cleanup()
		return nil, errs.Newf(errs.KindUnknown, "failed to open instagram: %v", err)
	}
	if err := page.WaitLoad(); err != nil {
		cleanup()
		return nil, &errs.Error{Kind: errs.KindNetwork, Message: fmt.Sprintf("instagram did not load: %v", err)}
	}

	c.browser = browser
	c.cleanup = cleanup
	c.page = page
	c.sessionID = sess.SessionID
	return page, nil
}

// launch starts Chrome and connects to it
func (c *Client) launch(ctx context.Context, headless bool) (*rod.Browser, func(), error) {
	l := launcher.New().Headless(headless).Leakless(true)
	if c.chromePath != "" {
		l = l.Bin(c.chromePath)
	}

	controlURL, err := l.Launch()
	if err != nil {
		return nil, nil, errs.Newf(errs.KindUnknown, "failed to launch Chrome: %v (set chrome_path if it is installed somewhere unusual)", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Cleanup()
		return nil, nil, errs.Newf(errs.KindUnknown, "failed to connect to Chrome: %v", err)
	}

	c.logger.DebugWithFields("launched Chrome", map[string]interface{}{
		"headless": headless,
		"bin":      c.chromePath,
	})

	cleanup := func() {
		_ = browser.Close()
		l.Cleanup()
	}
	return browser, cleanup, nil
}

// fetchJSON runs a fetch inside the page with the browser's own cookies and
// decodes the JSON response into target.
func (c *Client) fetchJSON(ctx context.Context, page *rod.Page, method, rawURL string, sess *account.Session, target interface{}) error {
	res, err := page.Context(ctx).Evaluate(&rod.EvalOptions{
		ByValue:      true,
		AwaitPromise: true,
		JS: `async (method, url, appID, csrf) => {
			const resp = await fetch(url, {
				method: method,
				credentials: "include",
				headers: {
					"X-IG-App-ID": appID,
					"X-CSRFToken": csrf,
					"X-Requested-With": "XMLHttpRequest",
				},
			});
			return { status: resp.status, body: await resp.text() };
		}`,
		JSArgs: []interface{}{method, rawURL, instagram.WebAppID, sess.CSRFToken},
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return &errs.Error{Kind: errs.KindNetwork, Message: fmt.Sprintf("in-page fetch failed: %v", err)}
	}

	status := res.Value.Get("status").Int()
	body := res.Value.Get("body").Str()

	if classified := errs.ClassifyStatus(status, []byte(body)); classified != nil {
		c.logger.WarnWithFields("in-page request failed", map[string]interface{}{
			"url":    rawURL,
			"status": status,
			"kind":   string(classified.Kind),
		})
		return classified
	}

	if err := json.Unmarshal([]byte(body), target); err != nil {
		// A 200 with an HTML body means the page itself is showing
		// something; the visible text tells us what.
		if pageErr := errs.ClassifyPageText(body); pageErr != nil {
			return pageErr
		}
		return &errs.Error{Kind: errs.KindParsing, Message: fmt.Sprintf("failed to parse response: %v", err), Code: status}
	}
	return nil
}

// prefillUsername types the username into the login form, best effort
func (c *Client) prefillUsername(page *rod.Page, username string) {
	el, err := page.Timeout(5 * time.Second).Element(`input[name="username"]`)
	if err != nil {
		return
	}
	_ = el.Input(username)
}

// pageUserAgent reads the browser's user agent so API calls made against
// the captured session look like the browser that created it.
func (c *Client) pageUserAgent(ctx context.Context, page *rod.Page) string {
	res, err := page.Context(ctx).Evaluate(&rod.EvalOptions{
		ByValue: true,
		JS:      `() => navigator.userAgent`,
	})
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// sessionFromCookies builds a session once the login cookies are present.
// Returns nil while the user is still signing in.
func sessionFromCookies(username string, cookies []*proto.NetworkCookie) *account.Session {
	sess := &account.Session{
		Username:   username,
		CapturedAt: time.Now(),
	}
	for _, cookie := range cookies {
		if !strings.HasSuffix(cookie.Domain, "instagram.com") {
			continue
		}
		switch cookie.Name {
		case "sessionid":
			sess.SessionID = cookie.Value
		case "ds_user_id":
			sess.UserID = cookie.Value
		case "csrftoken":
			sess.CSRFToken = cookie.Value
		}
	}
	if !sess.Valid() {
		return nil
	}
	return sess
}

// sessionCookieParams converts a stored session into browser cookies
func sessionCookieParams(sess *account.Session) []*proto.NetworkCookieParam {
	params := []*proto.NetworkCookieParam{
		{Name: "sessionid", Value: sess.SessionID, Domain: cookieDomain, Path: "/", Secure: true, HTTPOnly: true},
		{Name: "ds_user_id", Value: sess.UserID, Domain: cookieDomain, Path: "/", Secure: true},
	}
	if sess.CSRFToken != "" {
		params = append(params, &proto.NetworkCookieParam{
			Name: "csrftoken", Value: sess.CSRFToken, Domain: cookieDomain, Path: "/", Secure: true,
		})
	}
	return params
}
