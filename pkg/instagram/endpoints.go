package instagram

import (
	"fmt"
	"net/url"
)

const (
	// BaseURL is the base URL for Instagram
	BaseURL = "https://www.instagram.com"

	// LoginPageEndpoint serves the login form and the csrf cookie
	LoginPageEndpoint = "/accounts/login/"

	// LoginAjaxEndpoint is the web login endpoint
	LoginAjaxEndpoint = "/accounts/login/ajax/"

	// TwoFactorEndpoint completes a 2FA login
	TwoFactorEndpoint = "/accounts/login/ajax/two_factor/"

	// CurrentUserEndpoint validates a restored session
	CurrentUserEndpoint = "/api/v1/accounts/current_user/"

	// FollowingEndpoint is the paginated following list
	FollowingEndpoint = "/api/v1/friendships/%s/following/"

	// FollowersEndpoint is the paginated followers list
	FollowersEndpoint = "/api/v1/friendships/%s/followers/"

	// UnfollowEndpoint removes a follow edge
	UnfollowEndpoint = "/api/v1/friendships/destroy/%s/"

	// WebAppID is the x-ig-app-id the web client sends
	WebAppID = "936619743392459"

	// DefaultPageSize is how many accounts the friendship endpoints
	// return per page
	DefaultPageSize = 200
)

// FollowingURL constructs the URL for one page of the following list
func FollowingURL(userID, maxID string) string {
	return friendshipURL(FollowingEndpoint, userID, maxID)
}

// FollowersURL constructs the URL for one page of the followers list
func FollowersURL(userID, maxID string) string {
	return friendshipURL(FollowersEndpoint, userID, maxID)
}

func friendshipURL(endpoint, userID, maxID string) string {
	params := url.Values{}
	params.Set("count", fmt.Sprintf("%d", DefaultPageSize))
	if maxID != "" {
		params.Set("max_id", maxID)
	}
	return fmt.Sprintf(BaseURL+endpoint+"?%s", userID, params.Encode())
}

// UnfollowURL constructs the URL for the unfollow mutation
func UnfollowURL(userID string) string {
	return fmt.Sprintf(BaseURL+UnfollowEndpoint, userID)
}

// IsValidUsername checks if a username is valid according to Instagram
// rules
func IsValidUsername(username string) bool {
	if username == "" || len(username) > 30 {
		return false
	}
	for _, char := range username {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '.' || char == '_') {
			return false
		}
	}
	return true
}
