package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"igunfollow/pkg/auth"
	"igunfollow/pkg/ui"
)

// authCmd represents the auth command
var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage remembered accounts and stored sessions",
	Long: `Manage remembered Instagram accounts and their stored sessions.

Credentials are stored using:
  - System keychain (when available)
  - Encrypted file with PBKDF2 key derivation
  - Environment variables (read-only fallback)

Never share your credentials or session files!`,
}

// authListCmd represents the auth list command
var authListCmd = &cobra.Command{
	Use:   "list",
	Short: "List remembered accounts and stored sessions",
	Run:   runAuthList,
}

// authLogoutCmd represents the auth logout command
var authLogoutCmd = &cobra.Command{
	Use:   "logout [username]",
	Short: "Forget an account's credentials and session",
	Long: `Remove an account's remembered credentials and delete its stored
session file. With no username, every stored session and remembered
account is listed and you pick one.`,
	Example: `  # Forget a specific account
  igunfollow auth logout myusername

  # Choose interactively
  igunfollow auth logout`,
	Args: cobra.MaximumNArgs(1),
	Run:  runAuthLogout,
}

func init() {
	rootCmd.AddCommand(authCmd)
	authCmd.AddCommand(authListCmd)
	authCmd.AddCommand(authLogoutCmd)
}

func runAuthList(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to open credential store", err.Error())
		os.Exit(1)
	}

	accounts, err := manager.List()
	if err != nil {
		ui.PrintError("Failed to list accounts", err.Error())
		os.Exit(1)
	}

	fmt.Println(ui.Cyan("Remembered accounts:"))
	if len(accounts) == 0 {
		fmt.Println(ui.Dim("  none"))
	}
	for _, acct := range accounts {
		line := "  @" + acct.Username
		if !acct.LastUsed.IsZero() {
			line += ui.Dim("  last used " + acct.LastUsed.Format("2006-01-02 15:04"))
		}
		fmt.Println(line)
	}

	store := openSessionStore()
	keys, err := store.List()
	if err != nil {
		ui.PrintError("Failed to list sessions", err.Error())
		os.Exit(1)
	}

	fmt.Println()
	fmt.Println(ui.Cyan("Stored sessions:"))
	if len(keys) == 0 {
		fmt.Println(ui.Dim("  none"))
	}
	for _, key := range keys {
		fmt.Println("  @" + key)
	}
}

func runAuthLogout(cmd *cobra.Command, args []string) {
	manager, err := auth.NewManager()
	if err != nil {
		ui.PrintError("Failed to open credential store", err.Error())
		os.Exit(1)
	}
	store := openSessionStore()

	username := ""
	if len(args) > 0 {
		username = args[0]
	}

	if username == "" {
		keys, _ := store.List()
		accounts, _ := manager.List()
		known := map[string]struct{}{}
		for _, key := range keys {
			known[key] = struct{}{}
		}
		for _, acct := range accounts {
			known[strings.ToLower(acct.Username)] = struct{}{}
		}
		if len(known) == 0 {
			ui.PrintWarning("Nothing to log out of")
			return
		}

		var names []string
		for name := range known {
			names = append(names, "@"+name)
		}
		ui.PrintNumberedList(names)
		answer, err := promptLine("Username to forget: ")
		if err != nil || answer == "" {
			return
		}
		username = answer
	}

	username = strings.TrimPrefix(strings.TrimSpace(username), "@")

	if err := manager.Delete(username); err != nil && !errors.Is(err, auth.ErrCredentialsNotFound) {
		ui.PrintWarning("Could not remove credentials", err.Error())
	}
	if err := store.Delete(username); err != nil {
		ui.PrintWarning("Could not remove session", err.Error())
	}

	ui.PrintSuccess(fmt.Sprintf("Forgot @%s", username))
}
