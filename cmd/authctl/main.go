// Command authctl drives the authentication API from a terminal using the
// same refresh-aware pipeline as the web front end.
//
//	authctl -email ann@example.com -password secret1 login whoami sessions
//	authctl -email ann@example.com -code 123456 verify-mfa
//	authctl revoke <session-id> logout
//
// Commands run in order within one process. The access token is kept in
// memory, or in Redis when REDIS_ADDR is set so it outlives the process.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/signal"
	"strings"

	"github.com/jrsteele09/authfront/api"
	"github.com/jrsteele09/authfront/authclient"
	"github.com/jrsteele09/authfront/credentials"
	"github.com/jrsteele09/authfront/internal/config"
	"github.com/jrsteele09/authfront/refresh"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var errUsage = errors.New("usage")

type options struct {
	baseURL  string
	email    string
	password string
	code     string
	verbose  bool
}

func main() {
	var opts options
	flag.StringVar(&opts.baseURL, "api", "", "API base URL (defaults to API_BASE_URL)")
	flag.StringVar(&opts.email, "email", "", "account email for login and verify-mfa")
	flag.StringVar(&opts.password, "password", os.Getenv("AUTHCTL_PASSWORD"), "account password for login")
	flag.StringVar(&opts.code, "code", "", "MFA code for verify-mfa")
	flag.BoolVar(&opts.verbose, "v", false, "debug logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: authctl [flags] command...\n\nCommands: login, verify-mfa, whoami, sessions, revoke <id>, logout\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	level := zerolog.WarnLevel
	if opts.verbose {
		level = zerolog.DebugLevel
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg := config.New()
	if opts.baseURL == "" {
		opts.baseURL = cfg.GetAPIBaseURL()
	}
	store, err := newStore(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open credential store")
	}

	c, err := newCLI(opts, cfg, store, os.Stdout, nil)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build client")
	}
	if err := c.exec(ctx, flag.Args()); err != nil {
		if errors.Is(err, errUsage) {
			flag.Usage()
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, "Error:", describe(err))
		os.Exit(1)
	}
}

// newStore returns a RedisStore when REDIS_ADDR is configured.
func newStore(cfg config.Config) (credentials.Store, error) {
	if cfg.GetRedisAddr() == "" {
		return credentials.NewMemoryStore(credentials.WithMaxAge(cfg.GetAccessTokenMaxAge())), nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr: cfg.GetRedisAddr(),
		DB:   cfg.GetRedisDB(),
	})
	return credentials.NewRedisStore(rdb, cfg.GetRedisTokenKey(), cfg.GetAccessTokenMaxAge())
}

type cli struct {
	opts   options
	out    io.Writer
	client *authclient.Client
}

func newCLI(opts options, cfg config.Config, store credentials.Store, out io.Writer, rt http.RoundTripper) (*cli, error) {
	inner, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client, err := authclient.New(authclient.Config{
		BaseURL:      opts.baseURL,
		Timeout:      cfg.GetAPITimeout(),
		RefreshPath:  cfg.GetRefreshPath(),
		EntryPath:    cfg.GetEntryPath(),
		CookieName:   cfg.GetAccessTokenCookie(),
		Jar:          credentials.NewTokenJar(inner, store, cfg.GetAccessTokenCookie()),
		Navigator:    loginAgain(out),
		RoundTripper: rt,
	}, store)
	if err != nil {
		return nil, err
	}
	return &cli{opts: opts, out: out, client: client}, nil
}

// loginAgain is the terminal's version of returning to the login page.
func loginAgain(out io.Writer) refresh.Navigator {
	return refresh.NavigatorFunc(func(context.Context, string) {
		fmt.Fprintln(out, "Your session has ended. Run authctl login to sign in again.")
	})
}

func (c *cli) exec(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	for i := 0; i < len(args); i++ {
		var err error
		switch args[i] {
		case "login":
			err = c.login(ctx)
		case "verify-mfa":
			err = c.verifyMFA(ctx)
		case "whoami":
			err = c.whoami(ctx)
		case "sessions":
			err = c.sessions(ctx)
		case "revoke":
			if i+1 >= len(args) {
				return fmt.Errorf("%w: revoke needs a session id", errUsage)
			}
			i++
			err = c.revoke(ctx, args[i])
		case "logout":
			err = c.logout(ctx)
		default:
			return fmt.Errorf("%w: unknown command %q", errUsage, args[i])
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (c *cli) login(ctx context.Context) error {
	resp, err := c.client.API.Login(ctx, api.LoginRequest{Email: c.opts.email, Password: c.opts.password})
	if err != nil {
		return err
	}
	if resp.MFARequired {
		fmt.Fprintln(c.out, "Two-factor authentication required. Run authctl -email", c.opts.email, "-code <code> verify-mfa")
		return nil
	}
	fmt.Fprintln(c.out, resp.Message)
	return nil
}

func (c *cli) verifyMFA(ctx context.Context) error {
	resp, err := c.client.API.VerifyMFALogin(ctx, api.MFALoginRequest{Code: c.opts.code, Email: c.opts.email})
	if err != nil {
		return err
	}
	fmt.Fprintln(c.out, resp.Message)
	return nil
}

func (c *cli) whoami(ctx context.Context) error {
	current, err := c.client.Sessions.Current(ctx)
	if err != nil {
		return err
	}
	if current.User == nil {
		return errors.New("no user in response")
	}
	mfa := "off"
	if current.User.MFAEnabled() {
		mfa = "on"
	}
	fmt.Fprintf(c.out, "%s <%s> (2FA %s)\n", current.User.Name, current.User.Email, mfa)
	return nil
}

func (c *cli) sessions(ctx context.Context) error {
	list, err := c.client.Sessions.List(ctx)
	if err != nil {
		return err
	}
	for _, s := range list.Sessions {
		marker := " "
		if s.IsCurrent {
			marker = "*"
		}
		fmt.Fprintf(c.out, "%s %s  %s  %s\n", marker, s.ID, s.CreatedAt.Format("2006-01-02 15:04"), s.UserAgent)
	}
	return nil
}

func (c *cli) revoke(ctx context.Context, id string) error {
	if err := c.client.Sessions.Delete(ctx, id); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Session", id, "signed out")
	return nil
}

func (c *cli) logout(ctx context.Context) error {
	if err := c.client.API.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(c.out, "Signed out")
	return nil
}

// describe turns pipeline errors into one line for the terminal.
func describe(err error) string {
	var rf *refresh.RefreshFailedError
	if errors.As(err, &rf) {
		return "session expired"
	}
	var verr *api.ValidationError
	if errors.As(err, &verr) {
		return verr.Message()
	}
	return strings.TrimSpace(err.Error())
}
