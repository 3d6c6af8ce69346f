// Command billing is the counter-side client: it logs in through the gateway,
// keeps the session between runs and drives the product, order and sales
// views from the session cache.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-redis/redis/v8"

	"ShreeMohan/internal/config"
	"ShreeMohan/internal/session"
	"ShreeMohan/pkg/kit"
)

const usage = `usage: billing [-config file] <command> [flags]

commands:
  login           -u user -p password
  logout
  whoami
  products
  add-product     -name -price -stock [-description] [-image]
  restock         -id -qty
  delete-product  -id
  orders          [-start YYYY-MM-DD -end YYYY-MM-DD]
  order           -customer [-address] -item id:qty[@rate] ...
  delete-order    -id
  sales           [-range daily|weekly|monthly] [-top n] [-recent n]
`

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("billing", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := fs.String("config", "billing.yaml", "optional yaml config file")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() == 0 {
		fs.Usage()
		return 2
	}

	cfg, err := kit.LoadConfig[config.Billing]("billing", *configPath, config.BillingDefaults())
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	log := kit.NewLogger("billing", cfg.Log.Level)
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tokens, closeTokens, err := tokenStore(cfg)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer closeTokens()

	cache := session.New(sessionConfig(cfg), session.Deps{
		Client: &http.Client{
			Timeout:   cfg.Backend.Timeout,
			Transport: kit.NewClientTransport("billing-api", nil, nil),
		},
		Tokens: tokens,
		Log:    log,
	})

	events, unsubscribe := cache.Subscribe()
	defer unsubscribe()

	cmd := &commands{cache: cache, out: stdout}
	name, rest := fs.Arg(0), fs.Args()[1:]
	if name != "login" {
		cache.VerifySessionOnStartup(ctx)
	}

	err = cmd.dispatch(ctx, name, rest)
	cache.Wait()
	reportEvents(events, stderr)

	switch {
	case err == nil:
		return 0
	case errors.Is(err, errUsage):
		fs.Usage()
		return 2
	case errors.Is(err, flag.ErrHelp):
		return 0
	default:
		fmt.Fprintln(stderr, "error:", describe(err))
		return 1
	}
}

// reportEvents prints why a session ended, if it ended on its own. It only
// reads what is already queued.
func reportEvents(events <-chan session.Event, w io.Writer) {
	for {
		select {
		case ev := <-events:
			if ev.Kind == session.SessionInvalidated && ev.Reason != nil && !errors.Is(ev.Reason, session.ErrNotAuthenticated) {
				fmt.Fprintf(w, "session ended (%v), run `billing login` again\n", ev.Reason)
			}
		default:
			return
		}
	}
}

func sessionConfig(cfg config.Billing) session.Config {
	sc := session.Config{BaseURL: cfg.Backend.URL}
	if sc.BaseURL == "" {
		sc.BaseURL = os.Getenv("BACKEND_URL")
	}
	if cfg.Backend.Legacy {
		sc.LoginPath = session.LegacyLoginPath
		sc.VerifyPath = session.LegacyVerifyPath
	}
	return sc
}

func tokenStore(cfg config.Billing) (session.TokenStore, func(), error) {
	switch cfg.Tokens.Store {
	case "memory":
		return session.NewMemoryTokenStore(), func() {}, nil
	case "redis":
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		return session.NewRedisTokenStore(client, cfg.Redis.Prefix, cfg.Redis.TTL), func() { _ = client.Close() }, nil
	case "file":
		return session.NewFileTokenStore(cfg.Tokens.File), func() {}, nil
	default:
		return nil, nil, fmt.Errorf("unknown token store %q", cfg.Tokens.Store)
	}
}

// describe turns cache errors into the line shown to the operator.
func describe(err error) string {
	var apiErr *session.APIError
	switch {
	case errors.As(err, &apiErr):
		return apiErr.Message
	case errors.Is(err, session.ErrNotAuthenticated):
		return "not logged in, run `billing login` first"
	case errors.Is(err, session.ErrSessionExpired):
		return "session expired, run `billing login` again"
	case errors.Is(err, session.ErrNetwork):
		return "cannot reach the billing server: " + err.Error()
	default:
		return err.Error()
	}
}
