// Command sessionctl inspects and edits the persisted smartcapi session
// without running the shell server. It reads the same configuration and
// opens the same credential store.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"smartcapi-client/internal/backend"
	"smartcapi-client/internal/config"
	"smartcapi-client/internal/credstore"
	"smartcapi-client/internal/domain"
	"smartcapi-client/internal/guard"
	"smartcapi-client/internal/observability"
	"smartcapi-client/internal/service"
)

const usage = `usage: sessionctl <command> [flags]

commands:
  status                      show the restored session
  login -username U -password P
                              exchange credentials with the backend
  identity -id ID -name NAME -token T
                              adopt an identity verified elsewhere
  set-user -id ID -username U -name NAME -token T -role R
                              apply a loosely shaped identity
  logout                      clear every credential key
  navigate PATH               evaluate navigation to PATH
`

var errUsage = errors.New("usage")

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}
	// Logs go to stderr so stdout stays machine readable.
	observability.SetLogger(observability.NewLogger(os.Stderr, cfg.LogLevel, cfg.LogFormat))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := credstore.Open(ctx, cfg)
	if err != nil {
		slog.Error("failed to open credential store", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer closeStore()

	a := newApp(store, backend.NewAuthClient(cfg.BackendURL), os.Stdout)
	a.loginTimeout = cfg.LoginTimeout

	if err := a.run(ctx, os.Args[1:]); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type app struct {
	sessions     *service.SessionService
	guard        *guard.Guard
	out          io.Writer
	now          func() time.Time
	loginTimeout time.Duration
}

func newApp(store domain.CredentialStore, auth domain.Authenticator, out io.Writer) *app {
	sessions := service.NewSessionService(store, auth)
	return &app{
		sessions: sessions,
		guard:    guard.New(sessions, store),
		out:      out,
		now:      time.Now,
	}
}

type statusOutput struct {
	Authenticated bool               `json:"authenticated"`
	SubjectID     string             `json:"subject_id,omitempty"`
	DisplayName   string             `json:"display_name,omitempty"`
	Role          domain.Role        `json:"role,omitempty"`
	HasToken      bool               `json:"has_token"`
	Token         *backend.TokenInfo `json:"token,omitempty"`
}

func (a *app) run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return errUsage
	}

	a.sessions.Restore(ctx)

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "status":
		return a.status()

	case "login":
		fs := flag.NewFlagSet("login", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		username := fs.String("username", "", "backend username")
		password := fs.String("password", "", "backend password")
		if err := fs.Parse(rest); err != nil {
			return errors.Join(errUsage, err)
		}
		if a.loginTimeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, a.loginTimeout)
			defer cancel()
		}
		res := a.sessions.LoginWithCredentials(ctx, *username, *password)
		if err := a.print(redact(res)); err != nil {
			return err
		}
		if !res.OK {
			return fmt.Errorf("login failed: %s", res.Error)
		}
		return nil

	case "identity":
		fs := flag.NewFlagSet("identity", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		id := fs.String("id", "", "subject id")
		name := fs.String("name", "", "display name")
		token := fs.String("token", "", "bearer token")
		if err := fs.Parse(rest); err != nil {
			return errors.Join(errUsage, err)
		}
		res, err := a.sessions.Login(ctx, *id, *name, *token)
		if err != nil {
			return err
		}
		return a.print(redact(res))

	case "set-user":
		fs := flag.NewFlagSet("set-user", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		var p domain.IdentityPayload
		subject := fs.String("id", "", "subject id")
		fs.StringVar(&p.Username, "username", "", "username")
		fs.StringVar(&p.Name, "name", "", "display name")
		fs.StringVar(&p.Token, "token", "", "bearer token")
		fs.StringVar(&p.Role, "role", "", "role")
		if err := fs.Parse(rest); err != nil {
			return errors.Join(errUsage, err)
		}
		p.ID = domain.FlexString(*subject)
		if _, err := a.sessions.SetUser(ctx, p); err != nil {
			return err
		}
		return a.status()

	case "logout":
		a.sessions.Logout(ctx)
		return a.status()

	case "navigate":
		if len(rest) != 1 {
			return errUsage
		}
		if _, ok := guard.Lookup(rest[0]); !ok {
			return fmt.Errorf("unknown route %q", rest[0])
		}
		return a.print(a.guard.Evaluate(ctx, rest[0], ""))
	}

	return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
}

func (a *app) status() error {
	sess := a.sessions.Current()
	out := statusOutput{
		Authenticated: sess.Authenticated,
		SubjectID:     sess.SubjectID,
		DisplayName:   sess.DisplayName,
		Role:          sess.Role,
		HasToken:      sess.HasToken(),
	}
	if sess.HasToken() {
		if info, err := backend.InspectToken(sess.Token, a.now()); err == nil {
			out.Token = &info
		}
	}
	return a.print(out)
}

func (a *app) print(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// redact drops the bearer token from a result before it is printed.
func redact(res domain.LoginResult) domain.LoginResult {
	if res.User != nil {
		u := *res.User
		u.Token = ""
		res.User = &u
	}
	return res
}
