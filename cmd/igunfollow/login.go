package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"igunfollow/pkg/account"
	"igunfollow/pkg/auth"
	"igunfollow/pkg/browser"
	"igunfollow/pkg/config"
	errs "igunfollow/pkg/errors"
	"igunfollow/pkg/ui"
)

var (
	loginBrowser  bool
	loginCode     string
	loginNoSave   bool
	loginPassword string
)

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Log in to Instagram and store the session",
	Long: `Log in to Instagram and persist the session for later runs.

Two ways in:
  - API login (default): enter your password (and a 2FA code if your
    account requires one) and the session is captured directly.
  - Browser login (--browser): a visible Chrome window opens on the
    Instagram login page. Sign in yourself, solve any checkpoint
    Instagram throws at you, and the session is captured the moment
    the login cookies land. There is no time limit.

The captured session is written to the session store and reused by the
list and unfollow commands until Instagram expires it.`,
	Example: `  # API login
  igunfollow login myusername

  # Browser login, for accounts that trip challenges
  igunfollow login myusername --browser

  # API login with a 2FA code
  igunfollow login myusername --code 123456`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLogin,
}

func init() {
	rootCmd.AddCommand(loginCmd)
	loginCmd.Flags().BoolVar(&loginBrowser, "browser", false, "log in through a visible Chrome window")
	loginCmd.Flags().StringVar(&loginCode, "code", "", "two-factor verification code")
	loginCmd.Flags().BoolVar(&loginNoSave, "no-save-credentials", false, "don't remember the credentials for next time")
	loginCmd.Flags().StringVar(&loginPassword, "password", "", "password (prompted securely when omitted)")
}

func runLogin(cmd *cobra.Command, args []string) {
	username := ""
	if len(args) > 0 {
		username = account.NormalizeUsername(args[0])
	}

	ctx, stop := signalContext()
	defer stop()

	store := openSessionStore()

	var sess *account.Session
	var err error
	if loginBrowser || cfg.Backend == config.BackendBrowser {
		sess, err = browserLogin(ctx, username)
	} else {
		sess, err = apiLogin(ctx, username)
	}
	if err != nil {
		if errs.IsChallenge(err) {
			ui.PrintError("Instagram wants extra verification", err.Error())
			ui.PrintWarning("Try again with --browser and complete the check in the window")
		} else {
			ui.PrintError("Login failed", err.Error())
		}
		os.Exit(1)
	}

	if err := store.Save(sess.Username, sess); err != nil {
		ui.PrintError("Failed to save session", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess(fmt.Sprintf("Logged in as @%s, session saved", sess.Username))
}

// apiLogin signs in through the web API with a password
func apiLogin(ctx context.Context, username string) (*account.Session, error) {
	manager, err := auth.NewManager()
	if err != nil {
		return nil, fmt.Errorf("opening credential store: %w", err)
	}

	if username == "" {
		if recent, _ := manager.MostRecent(); recent != nil {
			username = recent.Username
			ui.PrintInfo("Account", "@"+username+" (most recent)")
		} else {
			username, err = promptLine("Instagram username: ")
			if err != nil {
				return nil, err
			}
			username = account.NormalizeUsername(username)
		}
	}
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}

	password := loginPassword
	if password == "" {
		if stored, _ := manager.Retrieve(username); stored != nil {
			password = stored.Password
		}
	}
	if password == "" {
		fmt.Printf("Password for @%s: ", username)
		password, err = readPassword()
		if err != nil {
			return nil, fmt.Errorf("reading password: %w", err)
		}
	}
	if password == "" {
		return nil, fmt.Errorf("password is required")
	}

	client := newAPIClient()
	sess, err := client.Login(ctx, account.Credentials{
		Username:         username,
		Password:         password,
		VerificationCode: loginCode,
	})
	if err != nil {
		return nil, err
	}

	if !loginNoSave {
		saveErr := manager.Store(&auth.Account{
			Username: username,
			Password: password,
			LastUsed: time.Now(),
		})
		if saveErr != nil {
			ui.PrintWarning("Could not remember credentials", saveErr.Error())
		}
	}
	return sess, nil
}

// browserLogin opens a visible Chrome window and waits for the user to sign
// in, then confirms the captured session against the API before accepting
// it. The confirmation retries briefly: Instagram sometimes lags between
// issuing the cookies and honoring them.
func browserLogin(ctx context.Context, username string) (*account.Session, error) {
	client := browser.NewClient(cfg.Browser.ChromePath, cfg.RateLimit.RequestsPerMinute, nil)
	defer client.Close()

	ui.PrintHighlight("Opening Chrome, sign in through the window (Ctrl-C to give up)")

	sess, err := client.Login(ctx, account.Credentials{Username: username})
	if err != nil {
		return nil, err
	}

	if err := newAPIClient().Validate(ctx, sess); err != nil {
		return nil, fmt.Errorf("captured session did not check out: %w", err)
	}
	if sess.Username == "" {
		return nil, fmt.Errorf("could not determine the logged-in username")
	}
	return sess, nil
}

// readPassword reads a password without echoing it
func readPassword() (string, error) {
	data, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// promptLine reads one line from stdin
func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
