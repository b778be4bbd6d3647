package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"igunfollow/pkg/account"
	"igunfollow/pkg/browser"
	"igunfollow/pkg/config"
	errs "igunfollow/pkg/errors"
	"igunfollow/pkg/instagram"
	"igunfollow/pkg/logger"
	"igunfollow/pkg/session"
	"igunfollow/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile  string
	logLevel    string
	backendFlag string
	sessionDir  string

	// cfg is loaded once per invocation in PersistentPreRun
	cfg *config.Config
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "igunfollow",
	Short: "Find and unfollow Instagram accounts that don't follow you back",
	Long: `igunfollow reconciles your Instagram following list against your
followers and unfollows the accounts that don't follow back, one at a
time with a human-ish pause between actions.

Features:
  - Log in through the API or a visible Chrome window
  - Sessions persisted and reused across runs
  - Secure credential storage using the system keychain
  - Sequential unfollowing with a configurable random delay
  - Hard stop on rate limits and verification challenges`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		flags := map[string]interface{}{}
		if backendFlag != "" {
			flags["backend"] = backendFlag
		}
		if logLevel != "" {
			flags["log-level"] = logLevel
		}
		if sessionDir != "" {
			flags["session-dir"] = sessionDir
		}

		var err error
		cfg, err = config.Load(configFile, flags)
		if err != nil {
			ui.PrintError("Failed to load configuration", err.Error())
			os.Exit(1)
		}

		if err := logger.Initialize(&cfg.Logging); err != nil {
			ui.PrintError("Failed to initialize logging", err.Error())
			os.Exit(1)
		}

		if cmd.Name() != "version" && cmd.Name() != "help" && cmd.Name() != "completion" {
			ui.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is $HOME/.config/igunfollow/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&backendFlag, "backend", "", "account backend (api or browser)")
	rootCmd.PersistentFlags().StringVar(&sessionDir, "session-dir", "", "directory for session files")

	rootCmd.SetVersionTemplate(`igunfollow {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// signalContext returns a context cancelled by Ctrl-C or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// newAPIClient builds the API-backed client with the configured pacing
func newAPIClient() *instagram.Client {
	client := instagram.NewClient(cfg.Instagram.RequestTimeout, cfg.RateLimit.RequestsPerMinute, nil)
	if cfg.Instagram.UserAgent != "" {
		client.SetHeader("User-Agent", cfg.Instagram.UserAgent)
	}
	return client
}

// newAccountClient builds the configured backend. The returned func releases
// whatever the backend holds open.
func newAccountClient() (account.Client, func()) {
	if cfg.Backend == config.BackendBrowser {
		client := browser.NewClient(cfg.Browser.ChromePath, cfg.RateLimit.RequestsPerMinute, nil)
		return client, client.Close
	}
	return newAPIClient(), func() {}
}

// openSessionStore opens the configured session store
func openSessionStore() *session.Store {
	store, err := session.NewStore(cfg.Session.Directory)
	if err != nil {
		ui.PrintError("Failed to open session store", err.Error())
		os.Exit(1)
	}
	return store
}

// resolveSession loads the stored session for username, or the only stored
// session when no username is given. It never returns an expired session
// silently: a session the API rejects is deleted and reported.
func resolveSession(ctx context.Context, store *session.Store, username string) (*account.Session, error) {
	username = account.NormalizeUsername(username)

	if username == "" {
		keys, err := store.List()
		if err != nil {
			return nil, err
		}
		switch len(keys) {
		case 0:
			return nil, fmt.Errorf("no stored sessions, run 'igunfollow login' first")
		case 1:
			username = keys[0]
		default:
			return nil, fmt.Errorf("multiple stored sessions (%v), pick one with --user", keys)
		}
	}

	sess, err := store.Load(username)
	if err != nil {
		return nil, err
	}
	if sess == nil {
		return nil, fmt.Errorf("no stored session for %q, run 'igunfollow login %s' first", username, username)
	}

	if cfg.Backend == config.BackendAPI {
		if err := newAPIClient().Validate(ctx, sess); err != nil {
			if errs.IsSessionExpired(err) || errs.IsAuth(err) {
				_ = store.Delete(username)
				return nil, fmt.Errorf("stored session for %q is no longer valid, run 'igunfollow login %s' again", username, username)
			}
			return nil, err
		}
	}
	return sess, nil
}
