package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"igunfollow/pkg/reconcile"
	"igunfollow/pkg/ui"
)

var (
	listUser string
	listJSON bool
)

// listNotFollowingCmd represents the list command
var listNotFollowingCmd = &cobra.Command{
	Use:   "list",
	Short: "List accounts you follow that don't follow back",
	Long: `Fetch your full following and followers lists in one pass and print
the accounts that don't follow you back, sorted by username.

Both lists come from the same pass; if either fetch fails nothing is
printed, so the output never mixes fresh and stale data. The printed
numbers can be passed straight to 'igunfollow unfollow'.`,
	Example: `  # List for the only stored session
  igunfollow list

  # List for a specific account
  igunfollow list --user myusername

  # Machine-readable output
  igunfollow list --json`,
	Run: runListNotFollowing,
}

func init() {
	rootCmd.AddCommand(listNotFollowingCmd)
	listNotFollowingCmd.Flags().StringVar(&listUser, "user", "", "account to list for (defaults to the only stored session)")
	listNotFollowingCmd.Flags().BoolVar(&listJSON, "json", false, "print the result as JSON")
}

func runListNotFollowing(cmd *cobra.Command, args []string) {
	ctx, stop := signalContext()
	defer stop()

	store := openSessionStore()
	sess, err := resolveSession(ctx, store, listUser)
	if err != nil {
		ui.PrintError("Cannot load session", err.Error())
		os.Exit(1)
	}

	client, release := newAccountClient()
	defer release()

	snap, err := reconcile.NewEngine(client, nil).ComputeNotFollowingBack(ctx, sess)
	if err != nil {
		ui.PrintError("Reconciliation failed", err.Error())
		os.Exit(1)
	}

	// The session worked; refresh its timestamp.
	_ = store.Touch(sess.Username, sess)

	if listJSON {
		out, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			ui.PrintError("Failed to encode result", err.Error())
			os.Exit(1)
		}
		fmt.Println(string(out))
		return
	}

	ui.PrintInfo("Following", fmt.Sprintf("%d", len(snap.Following)))
	ui.PrintInfo("Followers", fmt.Sprintf("%d", len(snap.Followers)))
	ui.PrintInfo("Not following back", fmt.Sprintf("%d", len(snap.NotFollowingBack)))
	fmt.Println()

	if len(snap.NotFollowingBack) == 0 {
		ui.PrintSuccess("Everyone you follow follows you back")
		return
	}

	names := make([]string, len(snap.NotFollowingBack))
	for i, id := range snap.NotFollowingBack {
		names[i] = "@" + id.Username
	}
	ui.PrintNumberedList(names)
	fmt.Println()
	ui.PrintHighlight("Run 'igunfollow unfollow --all' or pick numbers/usernames from the list")
}
