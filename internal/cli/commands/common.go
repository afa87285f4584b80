package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/manifoldco/promptui"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/carepulse-dev/carepulse/internal/booking"
	"github.com/carepulse-dev/carepulse/internal/cli/auth"
	"github.com/carepulse-dev/carepulse/internal/cli/userconfig"
	"github.com/carepulse-dev/carepulse/internal/credentials"
	"github.com/carepulse-dev/carepulse/internal/graphql"
	"github.com/carepulse-dev/carepulse/internal/logger"
	"github.com/carepulse-dev/carepulse/internal/session"
)

// Prompter asks the user for a value. Masked prompts hide the input.
type Prompter func(label string, masked bool) (string, error)

// Option overrides a dependency of a command, mainly for tests
type Option func(*cliEnv)

// WithServer targets a specific front-end server instead of the configured one
func WithServer(serverURL string) Option {
	return func(e *cliEnv) { e.serverURL = serverURL }
}

// WithMode selects the credential mode
func WithMode(mode credentials.Mode) Option {
	return func(e *cliEnv) { e.mode = mode }
}

// WithStore replaces the OS keyring
func WithStore(store credentials.Store) Option {
	return func(e *cliEnv) { e.store = store }
}

// WithPrompter replaces the interactive prompt
func WithPrompter(p Prompter) Option {
	return func(e *cliEnv) { e.prompt = p }
}

// WithBrowserOpener replaces the system browser launcher
func WithBrowserOpener(open func(url string) error) Option {
	return func(e *cliEnv) { e.openBrowser = open }
}

func withOutput(w io.Writer) Option {
	return func(e *cliEnv) { e.out = w }
}

// cliEnv holds everything a command needs to talk to one server
type cliEnv struct {
	out         io.Writer
	serverURL   string
	mode        credentials.Mode
	store       credentials.Store
	prompt      Prompter
	openBrowser func(url string) error
	log         zerolog.Logger
}

// newEnv resolves the server and credential mode from the user config unless overridden
func newEnv(opts ...Option) (*cliEnv, error) {
	level := os.Getenv("CAREPULSE_LOG_LEVEL")
	if level == "" {
		level = "warn"
	}

	e := &cliEnv{
		out:         os.Stdout,
		prompt:      terminalPrompt,
		openBrowser: openBrowser,
		log:         logger.New(os.Stderr, level, "console"),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.serverURL == "" || e.mode == "" {
		cfg, err := userconfig.Load()
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		if e.serverURL == "" {
			e.serverURL = cfg.Server()
		}
		if e.mode == "" {
			mode, err := cfg.Mode()
			if err != nil {
				return nil, fmt.Errorf("invalid auth_mode in config: %w", err)
			}
			e.mode = mode
		}
	}

	if e.store == nil {
		e.store = auth.NewKeyringStore(e.serverURL)
	}
	return e, nil
}

// session builds a session with a cached client that goes through the
// server's same-origin GraphQL proxy, restoring any stored credentials.
func (e *cliEnv) session() (*session.Session, error) {
	sess, _, err := e.connect()
	return sess, err
}

// booking returns the patient journey service on the same client as the session
func (e *cliEnv) booking() (*booking.Service, *session.Session, error) {
	sess, client, err := e.connect()
	if err != nil {
		return nil, nil, err
	}
	return booking.New(client, e.log), sess, nil
}

func (e *cliEnv) connect() (*session.Session, *graphql.Client, error) {
	jar := credentials.NewJar()

	var sess *session.Session
	client, err := graphql.NewBrowserClient(graphql.BrowserOptions{
		SiteURL: e.serverURL,
		Mode:    e.mode,
		Jar:     jar,
		Token:   func() string { return sess.Token() },
		OnAuthFailure: func() {
			if err := e.store.Clear(); err != nil {
				e.log.Warn().Err(err).Msg("Failed to clear rejected credentials")
			}
			jar.Clear()
		},
		Logger: e.log,
	})
	if err != nil {
		return nil, nil, err
	}

	sess = session.New(session.Options{
		Client: client,
		Store:  e.store,
		Jar:    jar,
		Mode:   e.mode,
		Logger: e.log,
	})
	if err := sess.Resume(); err != nil {
		return nil, nil, fmt.Errorf("failed to restore session: %w", err)
	}
	return sess, client, nil
}

// errNotInteractive is returned when a prompt is needed but stdin is not a terminal
var errNotInteractive = errors.New("stdin is not a terminal")

func terminalPrompt(label string, masked bool) (string, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", errNotInteractive
	}

	prompt := promptui.Prompt{Label: label}
	if masked {
		prompt.Mask = '*'
	}
	return prompt.Run()
}

// valueOrPrompt returns the first non-empty of flag and env, prompting as a last resort
func (e *cliEnv) valueOrPrompt(flag, envKey, label string, masked bool) (string, error) {
	if flag != "" {
		return flag, nil
	}
	if v := os.Getenv(envKey); v != "" {
		return v, nil
	}

	v, err := e.prompt(label, masked)
	if errors.Is(err, errNotInteractive) {
		return "", fmt.Errorf("%s is required in non-interactive mode (use a flag or %s env var)", label, envKey)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", label, err)
	}
	return v, nil
}
