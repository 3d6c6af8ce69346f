// Package session is the client-side session and data cache: it owns the
// bearer token, mirrors the products, orders and sale records collections,
// and mediates every call the UI layer makes to the billing API.
package session

import (
	"context"
	"net/http"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"ShreeMohan/internal/model"
	"ShreeMohan/pkg/kit"
)

const (
	// DefaultBaseURL is the gateway on the local host, standing in for the
	// same-origin setup of the browser build.
	DefaultBaseURL = "http://localhost:8080"

	DefaultLoginPath  = "/api/auth/login/"
	DefaultVerifyPath = "/api/auth/verify-token/"
	LegacyLoginPath   = "/api/login/"
	LegacyVerifyPath  = "/api/verify-token/"

	DefaultSalesRecordsPath = "/api/salerecords/"

	productsPath = "/api/products/"
	ordersPath   = "/api/orders/"
)

type State int

const (
	Unauthenticated State = iota
	Verifying
	Authenticated
)

func (s State) String() string {
	switch s {
	case Verifying:
		return "verifying"
	case Authenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

type Config struct {
	BaseURL          string
	LoginPath        string
	VerifyPath       string
	SalesRecordsPath string
}

func (c Config) withDefaults() Config {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.LoginPath == "" {
		c.LoginPath = DefaultLoginPath
	}
	if c.VerifyPath == "" {
		c.VerifyPath = DefaultVerifyPath
	}
	if c.SalesRecordsPath == "" {
		c.SalesRecordsPath = DefaultSalesRecordsPath
	}
	return c
}

type Deps struct {
	Client *http.Client
	Tokens TokenStore
	Log    *zap.Logger
}

// Session is a point-in-time view of the authentication state.
type Session struct {
	Token        string
	RefreshToken string
	User         *model.User
	LoggedIn     bool
}

// Cache is safe for concurrent use. Session fields and collections are only
// written under mu, and token and state always change together.
type Cache struct {
	cfg    Config
	client *http.Client
	tokens TokenStore
	log    *zap.Logger

	mu      sync.RWMutex
	state   State
	token   string
	refresh string
	user    *model.User
	// epoch bumps on every login and logout so responses that were in flight
	// across the change are discarded instead of repopulating the cache.
	epoch    uint64
	products []model.Product
	orders   []model.Order
	sales    []model.SaleRecord

	subsMu  sync.Mutex
	subs    map[int]chan Event
	nextSub int

	startup sync.Once
	bg      sync.WaitGroup
}

func New(cfg Config, deps Deps) *Cache {
	if deps.Client == nil {
		deps.Client = &http.Client{Transport: kit.NewClientTransport("billing-api", nil, nil)}
	}
	if deps.Tokens == nil {
		deps.Tokens = NewMemoryTokenStore()
	}
	if deps.Log == nil {
		deps.Log = zap.NewNop()
	}

	return &Cache{
		cfg:    cfg.withDefaults(),
		client: deps.Client,
		tokens: deps.Tokens,
		log:    deps.Log,
		subs:   make(map[int]chan Event),
	}
}

func (c *Cache) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Cache) IsLoggedIn() bool { return c.State() == Authenticated }

func (c *Cache) Session() Session {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Session{
		Token:        c.token,
		RefreshToken: c.refresh,
		LoggedIn:     c.state == Authenticated,
	}
	if c.user != nil {
		u := *c.user
		s.User = &u
	}
	return s
}

func (c *Cache) Products() []model.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.products)
}

func (c *Cache) Orders() []model.Order {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.orders)
}

func (c *Cache) SalesRecords() []model.SaleRecord {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.sales)
}

// Product looks a product up in the cached collection.
func (c *Cache) Product(id int64) (model.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := slices.IndexFunc(c.products, func(p model.Product) bool { return p.ID == id })
	if i < 0 {
		return model.Product{}, false
	}
	return c.products[i], true
}

// Logout always ends unauthenticated with every cached collection emptied.
func (c *Cache) Logout(ctx context.Context) {
	c.invalidate(ctx, "", nil)
}

// invalidate clears the session. A non-empty token makes it conditional: a
// 401 for a token that has since been replaced by a fresh login is ignored.
func (c *Cache) invalidate(ctx context.Context, token string, reason error) {
	c.mu.Lock()
	if token != "" && token != c.token {
		c.mu.Unlock()
		return
	}
	c.state = Unauthenticated
	c.token, c.refresh, c.user = "", "", nil
	c.products, c.orders, c.sales = nil, nil, nil
	c.epoch++
	c.mu.Unlock()

	if err := c.tokens.Clear(context.WithoutCancel(ctx)); err != nil {
		c.log.Warn("clear persisted tokens failed", zap.Error(err))
	}

	if reason != nil {
		c.log.Info("session invalidated", zap.Error(reason))
	}
	c.publish(Event{Kind: SessionInvalidated, Reason: reason})
}

// Wait blocks until every scheduled background refresh has finished.
func (c *Cache) Wait() { c.bg.Wait() }

// goRefresh runs fn after the calling operation has returned. The caller's
// cancellation does not reach it; only its values do.
func (c *Cache) goRefresh(ctx context.Context, fn func(context.Context)) {
	ctx = context.WithoutCancel(ctx)
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		fn(ctx)
	}()
}

func (c *Cache) currentEpoch() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.epoch
}
