package main

import (
	"bytes"
	"context"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"ShreeMohan/internal/auth"
	"ShreeMohan/internal/catalog"
	"ShreeMohan/internal/gateway"
	"ShreeMohan/internal/model"
	"ShreeMohan/internal/order"
	"ShreeMohan/internal/session"
)

const jwtSecret = "cli-secret-cli-secret-cli-secret"

// startPlatform runs the four services in memory and points the CLI at the
// gateway through the environment.
func startPlatform(t *testing.T) {
	t.Helper()

	users := auth.NewMemStore()
	require.NoError(t, auth.EnsureAdmin(context.Background(), users, "u_admin", "admin", "shopkeeper"))
	authTS := httptest.NewServer(auth.NewHandler(
		&auth.Server{Store: users, JWT: auth.NewTokenMaker(jwtSecret, time.Hour, 0)},
		auth.HTTPDeps{Log: zap.NewNop(), Service: "auth"},
	))
	t.Cleanup(authTS.Close)

	catalogTS := httptest.NewServer(catalog.NewHandler(
		&catalog.Server{Store: catalog.NewMemStore(
			model.Product{Name: "Tea", Price: 150, Stock: 5},
			model.Product{Name: "Sugar", Price: 90, Stock: 20},
		)},
		catalog.HTTPDeps{Log: zap.NewNop(), Service: "catalog"},
	))
	t.Cleanup(catalogTS.Close)

	orderTS := httptest.NewServer(order.NewHandler(
		&order.Server{
			Store:   order.NewMemStore(),
			Catalog: order.NewCatalogClient(catalogTS.URL, time.Second, nil),
		},
		order.HTTPDeps{Log: zap.NewNop(), Service: "order"},
	))
	t.Cleanup(orderTS.Close)

	h, err := gateway.NewHandler(
		gateway.Deps{JWTSecret: jwtSecret, AuthURL: authTS.URL, CatalogURL: catalogTS.URL, OrderURL: orderTS.URL},
		gateway.HTTPDeps{Log: zap.NewNop(), Service: "gateway"},
	)
	require.NoError(t, err)
	gw := httptest.NewServer(h)
	t.Cleanup(gw.Close)

	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("BILLING_BACKEND_URL", gw.URL)
	t.Setenv("BILLING_TOKENS_STORE", "file")
	t.Setenv("BILLING_TOKENS_FILE", filepath.Join(dir, "tokens.json"))
	t.Setenv("BILLING_LOG_LEVEL", "error")
}

func billing(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestCLI_CounterFlow(t *testing.T) {
	startPlatform(t)

	code, out, _ := billing(t, "products")
	assert.Equal(t, 1, code)

	code, out, errOut := billing(t, "login", "-u", "admin", "-p", "shopkeeper")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "logged in as admin (2 products, 0 orders)")

	code, out, _ = billing(t, "whoami")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "admin")

	code, out, errOut = billing(t, "order", "-customer", "Ram", "-item", "1:2")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "total 300.00")

	code, out, _ = billing(t, "products")
	require.Equal(t, 0, code)
	assert.Regexp(t, `Tea\s+150.00\s+3`, out)

	code, out, _ = billing(t, "sales", "-range", "daily")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "revenue 300.00  orders 1  items 2")
	assert.Contains(t, out, "Tea")

	code, out, _ = billing(t, "logout")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "logged out")

	code, _, errOut = billing(t, "orders")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "not logged in")
}

func TestCLI_OrderOverStockIsRefusedLocally(t *testing.T) {
	startPlatform(t)

	code, _, errOut := billing(t, "login", "-u", "admin", "-p", "shopkeeper")
	require.Equal(t, 0, code, errOut)

	code, _, errOut = billing(t, "order", "-customer", "Ram", "-item", "1:50")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "insufficient stock")
}

func TestCLI_BadLoginShowsServerMessage(t *testing.T) {
	startPlatform(t)

	code, _, errOut := billing(t, "login", "-u", "admin", "-p", "wrong")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "Invalid username or password")
}

func TestCLI_Usage(t *testing.T) {
	startPlatform(t)

	code, _, errOut := billing(t)
	assert.Equal(t, 2, code)
	assert.Contains(t, errOut, "usage: billing")

	code, _, _ = billing(t, "frobnicate")
	assert.Equal(t, 2, code)

	code, _, _ = billing(t, "login", "-u", "admin")
	assert.Equal(t, 2, code)
}

func TestParseItem(t *testing.T) {
	c := &commands{cache: session.New(session.Config{}, session.Deps{})}

	row, err := c.parseItem("7:3@12.5")
	require.NoError(t, err)
	assert.Equal(t, int64(7), row.ProductID)
	assert.Equal(t, 3, row.Qty)
	assert.InDelta(t, 12.5, row.Rate, 1e-9)

	_, err = c.parseItem("7")
	assert.Error(t, err)
	_, err = c.parseItem("x:1")
	assert.Error(t, err)
	_, err = c.parseItem("1:2@abc")
	assert.Error(t, err)
}
