package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mmcdole/cinedex/internal/catalog"
	"github.com/mmcdole/cinedex/internal/config"
	"github.com/mmcdole/cinedex/internal/domain"
	"github.com/mmcdole/cinedex/internal/log"
	"github.com/mmcdole/cinedex/internal/session"
	"github.com/mmcdole/cinedex/internal/store"
	"github.com/mmcdole/cinedex/internal/tmdb"
	"github.com/mmcdole/cinedex/internal/tui"
	"github.com/mmcdole/cinedex/internal/tui/styles"
	"golang.org/x/term"
	"golang.org/x/text/language"
)

// Version is set at build time via -ldflags
var Version = "dev"

// clearSpinnerLine clears the spinner line from the terminal
const clearSpinnerLine = "\r                                    \r"

const usage = `Usage: cinedex [flags] [command]

Commands:
  signup              create an account
  login               log in
  profile             edit name, email, avatar or password
  users [query]       list or search accounts (admin)
  ban <email|id>      ban an account (admin)
  unban <email|id>    lift a ban (admin)
  delete <email|id>   delete an account (admin)
  promote <email|id>  grant the admin role (admin)
  demote <email|id>   revoke the admin role (admin)

With no command, cinedex starts the browser.

Flags:
`

var stdin = bufio.NewReader(os.Stdin)

func main() {
	var showVersion, logout bool
	flag.BoolVar(&showVersion, "v", false, "print version")
	flag.BoolVar(&showVersion, "version", false, "print version")
	flag.BoolVar(&logout, "logout", false, "end the current session")
	flag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if showVersion {
		fmt.Printf("cinedex %s\n", Version)
		return
	}

	if err := run(flag.Args(), logout); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, logout bool) error {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Setup logger
	logger, err := log.SetupLogger(&cfg.Logging)
	if err != nil {
		// Fall back to null logger if file logging fails
		logger = log.NullLogger()
	}
	slog.SetDefault(logger)

	logger.Info("starting cinedex", "version", Version)

	// Open the session store
	st, err := store.NewSessionStore(cfg.Storage.DataDir)
	if err != nil {
		return fmt.Errorf("failed to open session store: %w", err)
	}
	defer st.Close()

	sessionSvc, err := session.NewService(st, logger,
		session.WithAuthorization(),
		session.WithAdminCredentials(cfg.Admin.Email, cfg.Admin.Password),
	)
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	if logout {
		if err := sessionSvc.Logout(); err != nil {
			return fmt.Errorf("logout failed: %w", err)
		}
		fmt.Println("✓ Logged out")
		return nil
	}

	if len(args) > 0 {
		return runCommand(sessionSvc, args)
	}

	// Check if configured
	if !cfg.IsConfigured() {
		return runSetupFlow(cfg, logger)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	client := newClient(cfg, cfg.TMDB.Token, logger)
	catalogSvc := catalog.NewService(client, logger,
		catalog.WithMinQueryLength(cfg.Catalog.MinQueryLength),
		catalog.WithImageBaseURL(cfg.TMDB.ImageBaseURL),
		catalog.WithLocale(language.Make(cfg.TMDB.Language)),
	)

	// Create TUI model
	model := tui.NewModel(catalogSvc, sessionSvc)
	model.ImageBaseURL = cfg.TMDB.ImageBaseURL
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen())

	logger.Info("starting TUI")

	if _, err := p.Run(); err != nil {
		logger.Error("TUI error", "error", err)
		return fmt.Errorf("TUI error: %w", err)
	}

	logger.Info("shutting down")
	return nil
}

func newClient(cfg *config.Config, token string, logger *slog.Logger) *tmdb.Client {
	return tmdb.NewClient(token, logger,
		tmdb.WithBaseURL(cfg.TMDB.BaseURL),
		tmdb.WithLanguage(cfg.TMDB.Language),
		tmdb.WithTimeout(cfg.TMDB.Timeout),
	)
}

// runCommand dispatches an account subcommand
func runCommand(svc *session.Service, args []string) error {
	cmd, rest := args[0], args[1:]

	switch cmd {
	case "signup":
		return runSignup(svc)
	case "login":
		return runLogin(svc)
	case "profile":
		return runProfile(svc)
	case "users":
		return runUsers(svc, strings.Join(rest, " "))
	case "ban", "unban", "delete", "promote", "demote":
		if len(rest) != 1 {
			return fmt.Errorf("usage: cinedex %s <email|id>", cmd)
		}
		return runAdminAction(svc, cmd, rest[0])
	default:
		flag.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func runSignup(svc *session.Service) error {
	name, err := prompt("Name: ")
	if err != nil {
		return err
	}
	email, err := prompt("Email: ")
	if err != nil {
		return err
	}
	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}
	confirm, err := promptPassword("Confirm password: ")
	if err != nil {
		return err
	}
	if password != confirm {
		return errors.New("passwords do not match")
	}

	p, err := svc.CreatePrincipal(domain.SignupData{Name: name, Email: email, Password: password})
	if err != nil {
		return fmt.Errorf("signup failed: %w", err)
	}

	fmt.Printf("✓ Account created for %s. Run cinedex login to sign in.\n", p.Email)
	return nil
}

func runLogin(svc *session.Service) error {
	email, err := prompt("Email: ")
	if err != nil {
		return err
	}
	password, err := promptPassword("Password: ")
	if err != nil {
		return err
	}

	p, err := svc.Authenticate(email, password)
	switch {
	case errors.Is(err, domain.ErrAccountBanned):
		return errors.New("this account has been banned")
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrInvalidCredentials):
		return errors.New("invalid email or password")
	case err != nil:
		return fmt.Errorf("login failed: %w", err)
	}

	fmt.Printf("✓ Welcome, %s!\n", p.Name)
	return nil
}

func runUsers(svc *session.Service, query string) error {
	var users []domain.Principal
	var err error
	if query == "" {
		users, err = svc.Principals()
	} else {
		users, err = svc.SearchPrincipals(query)
	}
	if errors.Is(err, domain.ErrForbidden) {
		return errors.New("admin login required")
	}
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tEMAIL\tROLE\tSTATUS\tFAVORITES")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\n", u.ID, u.Name, u.Email, u.Role, u.Status, len(u.Favorites))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	stats := svc.Stats()
	fmt.Printf("\n%d accounts, %d admins, %d active, %d banned\n", stats.Total, stats.Admins, stats.Active, stats.Banned)
	return nil
}

func runAdminAction(svc *session.Service, action, target string) error {
	users, err := svc.Principals()
	if errors.Is(err, domain.ErrForbidden) {
		return errors.New("admin login required")
	}
	if err != nil {
		return err
	}

	id, ok := findPrincipal(users, target)
	if !ok {
		return fmt.Errorf("no account matches %q", target)
	}

	switch action {
	case "ban":
		err = svc.BanPrincipal(id)
	case "unban":
		err = svc.UnbanPrincipal(id)
	case "delete":
		err = svc.DeletePrincipal(id)
	case "promote":
		err = svc.SetRole(id, domain.RoleAdmin)
	case "demote":
		err = svc.SetRole(id, domain.RoleUser)
	}
	if err != nil {
		return fmt.Errorf("%s failed: %w", action, err)
	}

	fmt.Printf("✓ %s %s\n", action, target)
	return nil
}

// findPrincipal matches target against ids, then case-insensitively against emails
func findPrincipal(users []domain.Principal, target string) (string, bool) {
	want := domain.NormalizeEmail(target)
	for _, u := range users {
		if u.ID == target || domain.NormalizeEmail(u.Email) == want {
			return u.ID, true
		}
	}
	return "", false
}

func runProfile(svc *session.Service) error {
	cur, ok := svc.Current()
	if !ok {
		return errors.New("log in first (cinedex login)")
	}

	fmt.Println("Leave a field empty to keep it.")
	name, err := prompt(fmt.Sprintf("Name [%s]: ", cur.Name))
	if err != nil {
		return err
	}
	email, err := prompt(fmt.Sprintf("Email [%s]: ", cur.Email))
	if err != nil {
		return err
	}
	avatar, err := prompt("Avatar URL: ")
	if err != nil {
		return err
	}
	password, err := promptPassword("New password: ")
	if err != nil {
		return err
	}
	if password != "" {
		confirm, err := promptPassword("Confirm password: ")
		if err != nil {
			return err
		}
		if password != confirm {
			return errors.New("passwords do not match")
		}
	}

	update, changed := profileUpdate(name, email, password, avatar)
	if !changed {
		fmt.Println("Nothing to update.")
		return nil
	}

	p, err := svc.UpdatePrincipal(update)
	if errors.Is(err, domain.ErrDuplicateEmail) {
		return errors.New("that email is already in use")
	}
	if err != nil {
		return fmt.Errorf("profile update failed: %w", err)
	}

	fmt.Printf("✓ Profile updated for %s\n", p.Email)
	return nil
}

// profileUpdate sets only the fields that were filled in
func profileUpdate(name, email, password, avatar string) (domain.ProfileUpdate, bool) {
	var u domain.ProfileUpdate
	set := func(v string) *string {
		if strings.TrimSpace(v) == "" {
			return nil
		}
		return &v
	}
	u.Name = set(name)
	u.Email = set(email)
	u.Avatar = set(avatar)
	if password != "" {
		u.Password = &password
	}
	changed := u.Name != nil || u.Email != nil || u.Avatar != nil || u.Password != nil
	return u, changed
}

func prompt(label string) (string, error) {
	fmt.Print(label)
	input, err := stdin.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}
	return strings.TrimSpace(input), nil
}

// promptPassword reads without echo on a terminal, plain lines otherwise
func promptPassword(label string) (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return prompt(label)
	}

	fmt.Print(label)
	raw, err := term.ReadPassword(fd)
	fmt.Println()
	if err != nil {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return string(raw), nil
}

// runSetupFlow handles the initial setup when no token is configured
func runSetupFlow(cfg *config.Config, logger *slog.Logger) error {
	fmt.Println()
	fmt.Println("Welcome to cinedex!")
	fmt.Println()
	fmt.Println("cinedex needs a TMDB API read access token.")
	fmt.Println("Create one at https://www.themoviedb.org/settings/api")
	fmt.Println()

	for {
		token, err := prompt("Enter your TMDB token: ")
		if err != nil {
			return err
		}
		if token == "" {
			fmt.Println("Token cannot be empty. Please try again.")
			continue
		}

		fmt.Println()
		if err := verifyTokenWithSpinner(newClient(cfg, token, logger)); err != nil {
			fmt.Printf("\n✗ Could not verify token: %v\n", err)
			fmt.Println("Please check the token and try again.")
			fmt.Println()
			continue
		}

		cfg.TMDB.Token = token
		break
	}

	if err := config.SaveConfig(cfg); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Println()
	fmt.Println("✓ Configuration saved!")
	fmt.Println()
	fmt.Println("Run cinedex again to start browsing.")

	return nil
}

// verifyTokenWithSpinner checks the token by fetching the genre list
func verifyTokenWithSpinner(client *tmdb.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		_, err := client.Genres(ctx)
		errCh <- err
	}()

	frame := 0
	fmt.Printf("\r%s Verifying token...", styles.SpinnerFrames[frame])

	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case err := <-errCh:
			fmt.Print(clearSpinnerLine)
			if err != nil {
				return err
			}
			fmt.Println("✓ Token verified")
			return nil

		case <-ticker.C:
			frame++
			fmt.Printf("\r%s Verifying token...", styles.SpinnerFrames[frame%len(styles.SpinnerFrames)])

		case <-ctx.Done():
			fmt.Print(clearSpinnerLine)
			return fmt.Errorf("verification timed out")
		}
	}
}
