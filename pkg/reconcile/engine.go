// Package reconcile computes which followed accounts do not follow back.
package reconcile

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"igunfollow/pkg/account"
	"igunfollow/pkg/logger"
)

// Snapshot is the result of one reconciliation pass. All three lists come
// from the same pass; a pass that fails partway produces no snapshot.
type Snapshot struct {
	Following        []account.Identity
	Followers        []account.Identity
	NotFollowingBack []account.Identity
	FetchedAt        time.Time
}

// Engine runs reconciliation passes against an account client
type Engine struct {
	client account.Client
	logger logger.Logger
}

// NewEngine creates a reconciliation engine
func NewEngine(client account.Client, log logger.Logger) *Engine {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Engine{client: client, logger: log}
}

// ComputeNotFollowingBack fetches both relations with the same session and
// returns the accounts followed but not following back, sorted by username.
// Any fetch error fails the whole pass.
func (e *Engine) ComputeNotFollowingBack(ctx context.Context, sess *account.Session) (*Snapshot, error) {
	following, err := e.client.ListFollowing(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("listing following: %w", err)
	}
	followers, err := e.client.ListFollowers(ctx, sess)
	if err != nil {
		return nil, fmt.Errorf("listing followers: %w", err)
	}

	snapshot := &Snapshot{
		Following:        following,
		Followers:        followers,
		NotFollowingBack: Difference(following, followers),
		FetchedAt:        time.Now(),
	}

	e.logger.InfoWithFields("reconciliation complete", map[string]interface{}{
		"following":          len(following),
		"followers":          len(followers),
		"not_following_back": len(snapshot.NotFollowingBack),
	})
	return snapshot, nil
}

// Difference returns the accounts in following that are absent from
// followers, compared by user id so renamed accounts are still matched.
// Duplicates in following are collapsed. The result is sorted by username.
func Difference(following, followers []account.Identity) []account.Identity {
	followerKeys := make(map[string]struct{}, len(followers))
	for _, id := range followers {
		followerKeys[identityKey(id)] = struct{}{}
	}

	seen := make(map[string]struct{}, len(following))
	diff := make([]account.Identity, 0)
	for _, id := range following {
		key := identityKey(id)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if _, follows := followerKeys[key]; !follows {
			diff = append(diff, id)
		}
	}

	SortByUsername(diff)
	return diff
}

// SortByUsername orders identities case-insensitively by username, with the
// user id as a tie breaker so the order is stable across passes.
func SortByUsername(identities []account.Identity) {
	sort.Slice(identities, func(i, j int) bool {
		a := strings.ToLower(identities[i].Username)
		b := strings.ToLower(identities[j].Username)
		if a != b {
			return a < b
		}
		return identities[i].ID < identities[j].ID
	})
}

// identityKey is the comparison key for one account. The stable numeric id
// wins; the username only matters for identities that never got one.
func identityKey(id account.Identity) string {
	if id.ID != "" {
		return id.ID
	}
	return "name:" + strings.ToLower(id.Username)
}
