package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"igunfollow/pkg/account"
	"igunfollow/pkg/reconcile"
	"igunfollow/pkg/ui"
	"igunfollow/pkg/ui/tui"
	"igunfollow/pkg/unfollow"
)

var (
	unfollowUser     string
	unfollowAll      bool
	unfollowYes      bool
	unfollowNoTUI    bool
	unfollowDelayMin time.Duration
	unfollowDelayMax time.Duration
)

// unfollowCmd represents the unfollow command
var unfollowCmd = &cobra.Command{
	Use:   "unfollow [targets...]",
	Short: "Unfollow accounts that don't follow back",
	Long: `Reconcile your lists and unfollow the selected accounts, one at a
time with a random pause between actions.

Targets are usernames or 1-based numbers from 'igunfollow list', or
--all for the whole list. The run stops dead if Instagram rate-limits
or demands verification; whatever wasn't attempted stays untouched for
a later run. Ctrl-C (or q in the UI) stops after the action in flight.`,
	Example: `  # Unfollow everyone who doesn't follow back
  igunfollow unfollow --all

  # Unfollow specific accounts by username or list position
  igunfollow unfollow some_account 3 7

  # Slower pacing, no confirmation prompt
  igunfollow unfollow --all --delay-min 5s --delay-max 12s --yes`,
	Run: runUnfollow,
}

func init() {
	rootCmd.AddCommand(unfollowCmd)
	unfollowCmd.Flags().StringVar(&unfollowUser, "user", "", "account to act as (defaults to the only stored session)")
	unfollowCmd.Flags().BoolVar(&unfollowAll, "all", false, "unfollow every account that doesn't follow back")
	unfollowCmd.Flags().BoolVarP(&unfollowYes, "yes", "y", false, "skip the confirmation prompt")
	unfollowCmd.Flags().BoolVar(&unfollowNoTUI, "no-tui", false, "plain line output instead of the full-screen UI")
	unfollowCmd.Flags().DurationVar(&unfollowDelayMin, "delay-min", 0, "minimum pause between unfollows (default from config)")
	unfollowCmd.Flags().DurationVar(&unfollowDelayMax, "delay-max", 0, "maximum pause between unfollows (default from config)")
}

func runUnfollow(cmd *cobra.Command, args []string) {
	if !unfollowAll && len(args) == 0 {
		ui.PrintError("Nothing to do", "pass target usernames/numbers or --all")
		os.Exit(1)
	}

	ctx, stop := signalContext()
	defer stop()

	store := openSessionStore()
	sess, err := resolveSession(ctx, store, unfollowUser)
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
	if len(snap.NotFollowingBack) == 0 {
		ui.PrintSuccess("Everyone you follow follows you back, nothing to unfollow")
		return
	}

	targets, err := selectTargets(snap.NotFollowingBack, args)
	if err != nil {
		ui.PrintError("Bad target selection", err.Error())
		os.Exit(1)
	}

	if !unfollowYes && !confirmRun(targets) {
		ui.PrintWarning("Aborted, nothing was unfollowed")
		return
	}

	delay := unfollow.DelayRange{
		Min: cfg.Unfollow.DelayMin,
		Max: cfg.Unfollow.DelayMax,
	}
	if unfollowDelayMin > 0 {
		delay.Min = unfollowDelayMin
	}
	if unfollowDelayMax > 0 {
		delay.Max = unfollowDelayMax
	}

	controller := unfollow.NewController(client, delay, nil)
	run := controller.Start(ctx, sess, targets)

	var summary unfollow.Summary
	if unfollowNoTUI {
		summary = followPlain(run)
	} else {
		screen := tui.NewTUI(targets, stop)
		go screen.Follow(run, targets)
		if err := screen.Start(); err != nil {
			ui.PrintError("UI failed", err.Error())
		}
		summary = run.Wait()
	}

	// The session worked; refresh its timestamp.
	_ = store.Touch(sess.Username, sess)

	printSummary(summary)
	if summary.State == unfollow.StateAborted {
		os.Exit(1)
	}
}

// selectTargets resolves the positional args against the reconciled list.
// Each arg is a username (with or without @) or a 1-based position.
func selectTargets(notFollowingBack []account.Identity, args []string) ([]account.Identity, error) {
	if unfollowAll {
		return notFollowingBack, nil
	}

	byName := make(map[string]int, len(notFollowingBack))
	for i, id := range notFollowingBack {
		byName[strings.ToLower(id.Username)] = i
	}

	seen := make(map[int]struct{}, len(args))
	var targets []account.Identity
	for _, arg := range args {
		var idx int
		if n, err := strconv.Atoi(arg); err == nil {
			if n < 1 || n > len(notFollowingBack) {
				return nil, fmt.Errorf("position %d is out of range (1-%d)", n, len(notFollowingBack))
			}
			idx = n - 1
		} else {
			name := account.NormalizeUsername(arg)
			i, ok := byName[name]
			if !ok {
				return nil, fmt.Errorf("@%s is not on the not-following-back list", name)
			}
			idx = i
		}
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		targets = append(targets, notFollowingBack[idx])
	}
	return targets, nil
}

// confirmRun asks before touching anything
func confirmRun(targets []account.Identity) bool {
	ui.PrintWarning(fmt.Sprintf("About to unfollow %d account(s):", len(targets)))
	names := make([]string, len(targets))
	for i, t := range targets {
		names[i] = "@" + t.Username
	}
	ui.PrintNumberedList(names)

	answer, err := promptLine("Proceed? (y/N): ")
	if err != nil {
		return false
	}
	return strings.HasPrefix(strings.ToLower(answer), "y")
}

// followPlain prints one line per result as they arrive
func followPlain(run *unfollow.Run) unfollow.Summary {
	for res := range run.Results() {
		switch res.Status {
		case unfollow.StatusSucceeded:
			ui.PrintSuccess(fmt.Sprintf("✓ unfollowed @%s", res.Target.Username))
		case unfollow.StatusSkipped:
			ui.PrintWarning(fmt.Sprintf("○ skipped @%s", res.Target.Username), res.Err)
		case unfollow.StatusFailed:
			ui.PrintError(fmt.Sprintf("✗ failed @%s", res.Target.Username), res.Err)
		}
	}
	return run.Wait()
}

func printSummary(summary unfollow.Summary) {
	fmt.Println()
	switch summary.State {
	case unfollow.StateCompleted:
		ui.PrintSuccess("Run complete")
	case unfollow.StateCancelled:
		ui.PrintWarning("Run cancelled, already-issued unfollows stay done")
	case unfollow.StateAborted:
		ui.PrintError("Run aborted", summary.AbortErr)
	}
	ui.PrintInfo("Unfollowed", fmt.Sprintf("%d", summary.Succeeded))
	ui.PrintInfo("Failed", fmt.Sprintf("%d", summary.Failed))
	ui.PrintInfo("Skipped", fmt.Sprintf("%d", summary.Skipped))
	if summary.Unattempted > 0 {
		ui.PrintInfo("Never attempted", fmt.Sprintf("%d", summary.Unattempted))
	}
	ui.PrintInfo("Duration", summary.Finished.Sub(summary.Started).Round(time.Second).String())
}
