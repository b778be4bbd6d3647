package instagram

import "encoding/json"

// FriendshipUser is one account in a following/followers page. The pk is
// numeric JSON, so json.Number keeps it lossless as a string.
type FriendshipUser struct {
	PK       json.Number `json:"pk"`
	Username string      `json:"username"`
	FullName string      `json:"full_name"`
}

// FriendshipPage is one page of the following/followers lists
type FriendshipPage struct {
	Users     []FriendshipUser `json:"users"`
	NextMaxID string           `json:"next_max_id"`
	BigList   bool             `json:"big_list"`
	Status    string           `json:"status"`
}

// LoginResponse is the web login ajax response
type LoginResponse struct {
	Authenticated     bool   `json:"authenticated"`
	User              bool   `json:"user"`
	UserID            string `json:"userId"`
	Status            string `json:"status"`
	TwoFactorRequired bool   `json:"two_factor_required"`
	TwoFactorInfo     *struct {
		TwoFactorIdentifier string `json:"two_factor_identifier"`
	} `json:"two_factor_info"`
	CheckpointURL string `json:"checkpoint_url"`
	Message       string `json:"message"`
}

// CurrentUserResponse is the session validation response
type CurrentUserResponse struct {
	User struct {
		PK       json.Number `json:"pk"`
		Username string      `json:"username"`
	} `json:"user"`
	Status string `json:"status"`
}

// UnfollowResponse is the friendship destroy response
type UnfollowResponse struct {
	FriendshipStatus struct {
		Following bool `json:"following"`
	} `json:"friendship_status"`
	Status string `json:"status"`
}
