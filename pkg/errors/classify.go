package errors

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// The same logical failure surfaces differently from the two backends: the
// API variant sees status codes and JSON payloads, the browser variant sees
// whatever text Instagram renders into the page. These classifiers are the
// seam that keeps everything above the account client backend-agnostic.

// API payload markers, lowercased. Instagram reports most failure modes in
// the "message" or "error_type" fields of an otherwise 4xx response.
var (
	challengeMarkers = []string{
		"challenge_required",
		"checkpoint_required",
		"checkpoint_challenge_required",
		"two_factor_required",
		"recaptcha",
	}
	rateLimitMarkers = []string{
		"please wait a few minutes",
		"rate_limit_error",
		"feedback_required",
	}
	loginMarkers = []string{
		"login_required",
		"loginrequired",
		"user has logged out",
	}
)

// ClassifyStatus maps an API response (status code plus raw body) to a
// classified error. A nil return means the response is not an error.
func ClassifyStatus(code int, body []byte) *Error {
	if code == http.StatusOK {
		return nil
	}

	lower := strings.ToLower(string(body))

	// Challenge payloads arrive under several status codes (400, 403),
	// so the body markers win over the code.
	if containsAny(lower, challengeMarkers) {
		return &Error{
			Kind:    KindChallenge,
			Message: "Instagram requires manual verification",
			Code:    code,
		}
	}
	if containsAny(lower, rateLimitMarkers) {
		return &Error{
			Kind:       KindRateLimit,
			Message:    "Instagram temporarily limited actions",
			Code:       code,
			RetryAfter: defaultRetryAfter,
		}
	}

	switch code {
	case http.StatusUnauthorized:
		return &Error{Kind: KindSessionExpired, Message: "session rejected", Code: code}
	case http.StatusForbidden:
		if containsAny(lower, loginMarkers) {
			return &Error{Kind: KindSessionExpired, Message: "login required", Code: code}
		}
		return &Error{Kind: KindAuth, Message: "request refused", Code: code}
	case http.StatusNotFound:
		return &Error{Kind: KindNotFound, Message: "resource not found", Code: code}
	case http.StatusTooManyRequests:
		return &Error{
			Kind:       KindRateLimit,
			Message:    "rate limit exceeded",
			Code:       code,
			RetryAfter: defaultRetryAfter,
		}
	default:
		if code >= 500 {
			return &Error{Kind: KindNetwork, Message: "server error", Code: code}
		}
		return &Error{Kind: KindUnknown, Message: "unexpected status " + strconv.Itoa(code), Code: code}
	}
}

// WithRetryAfterHeader folds a Retry-After response header into a
// rate-limit error, replacing the default hint.
func WithRetryAfterHeader(err *Error, header string) *Error {
	if err == nil || err.Kind != KindRateLimit || header == "" {
		return err
	}
	if secs, convErr := strconv.Atoi(strings.TrimSpace(header)); convErr == nil && secs > 0 {
		err.RetryAfter = time.Duration(secs) * time.Second
	}
	return err
}

// Visible phrases Instagram renders when the browser variant runs into
// trouble. Matched case-insensitively against page text.
var (
	pageChallengePhrases = []string{
		"are you a robot",
		"confirm it's you",
		"confirm it’s you",
		"enter the code",
		"enter confirmation code",
		"verification code",
		"suspicious login attempt",
		"help us confirm",
	}
	pageRateLimitPhrases = []string{
		"please wait a few minutes",
		"try again later",
		"we limit how often",
	}
	pageLoginPhrases = []string{
		"log in to instagram",
		"sorry, your password was incorrect",
	}
	pageNotFoundPhrases = []string{
		"sorry, this page isn't available",
		"user not found",
	}
)

// ClassifyPageText maps visible page text from the browser backend to a
// classified error. A nil return means the text carries no known failure.
func ClassifyPageText(text string) *Error {
	lower := strings.ToLower(text)

	switch {
	case containsAny(lower, pageChallengePhrases):
		return &Error{Kind: KindChallenge, Message: "Instagram is asking for manual verification"}
	case containsAny(lower, pageRateLimitPhrases):
		return &Error{
			Kind:       KindRateLimit,
			Message:    "Instagram temporarily limited actions",
			RetryAfter: defaultRetryAfter,
		}
	case containsAny(lower, pageNotFoundPhrases):
		return &Error{Kind: KindNotFound, Message: "account not found"}
	case containsAny(lower, pageLoginPhrases):
		return &Error{Kind: KindSessionExpired, Message: "browser session is logged out"}
	default:
		return nil
	}
}

// defaultRetryAfter is used when Instagram rate-limits without saying for
// how long.
const defaultRetryAfter = 5 * time.Minute

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
