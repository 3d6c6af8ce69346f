package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ShreeMohan/internal/model"
)

func loggedIn(t *testing.T, f *fakeAPI) *Cache {
	t.Helper()
	c := f.cache(t, NewMemoryTokenStore())
	require.NoError(t, c.Login(context.Background(), "admin", "secret"))
	return c
}

func nextEvent(t *testing.T, ch <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("no session event")
		return Event{}
	}
}

func TestLogin_StoresTokenAndLoadsCollections(t *testing.T) {
	f := newFakeAPI(t)
	tokens := NewMemoryTokenStore()
	c := f.cache(t, tokens)
	events, stop := c.Subscribe()
	defer stop()

	require.NoError(t, c.Login(context.Background(), "admin", "secret"))

	s := c.Session()
	assert.True(t, s.LoggedIn)
	assert.Equal(t, "tok-1", s.Token)
	assert.Equal(t, "ref-tok-1", s.RefreshToken)
	require.NotNil(t, s.User)
	assert.Equal(t, "admin", s.User.Username)
	assert.Equal(t, "1", s.User.ID)

	assert.Len(t, c.Products(), 2)
	assert.NotNil(t, c.Orders())
	assert.NotNil(t, c.SalesRecords())
	assert.Equal(t, 1, f.count("GET /api/products/"))
	assert.Equal(t, 1, f.count("GET /api/orders/"))
	assert.Equal(t, 1, f.count("GET /api/salerecords/"))

	stored, err := tokens.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Tokens{Access: "tok-1", Refresh: "ref-tok-1"}, stored)

	ev := nextEvent(t, events)
	assert.Equal(t, SessionStarted, ev.Kind)
}

func TestLogin_RejectedKeepsState(t *testing.T) {
	f := newFakeAPI(t)
	c := f.cache(t, NewMemoryTokenStore())

	err := c.Login(context.Background(), "admin", "wrong")

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Equal(t, "Invalid username or password", apiErr.Message)
	assert.Equal(t, Unauthenticated, c.State())
	assert.Empty(t, c.Session().Token)
	assert.Zero(t, f.count("GET /api/products/"))
}

func TestLogin_LegacyPath(t *testing.T) {
	f := newFakeAPI(t)
	c := New(Config{BaseURL: f.srv.URL + "/", LoginPath: LegacyLoginPath}, Deps{})
	t.Cleanup(c.Wait)

	require.NoError(t, c.Login(context.Background(), "admin", "secret"))
	assert.Equal(t, 1, f.count("POST /api/login/"))
	assert.True(t, c.IsLoggedIn())
}

func TestLogin_NetworkFailure(t *testing.T) {
	f := newFakeAPI(t)
	c := f.cache(t, NewMemoryTokenStore())
	f.srv.Close()

	err := c.Login(context.Background(), "admin", "secret")
	require.ErrorIs(t, err, ErrNetwork)
	assert.Equal(t, Unauthenticated, c.State())
}

func TestLogout_ClearsEverything(t *testing.T) {
	f := newFakeAPI(t)
	tokens := NewMemoryTokenStore()
	c := f.cache(t, tokens)
	require.NoError(t, c.Login(context.Background(), "admin", "secret"))

	events, stop := c.Subscribe()
	defer stop()

	c.Logout(context.Background())

	s := c.Session()
	assert.False(t, s.LoggedIn)
	assert.Empty(t, s.Token)
	assert.Nil(t, s.User)
	assert.Empty(t, c.Products())
	assert.Empty(t, c.Orders())
	assert.Empty(t, c.SalesRecords())

	stored, _ := tokens.Load(context.Background())
	assert.Empty(t, stored.Access)

	ev := nextEvent(t, events)
	assert.Equal(t, SessionInvalidated, ev.Kind)
	assert.NoError(t, ev.Reason)

	// unconditional
	c.Logout(context.Background())
	assert.Equal(t, Unauthenticated, c.State())
}

func TestVerifySessionOnStartup_ValidToken(t *testing.T) {
	f := newFakeAPI(t)
	f.set(func(f *fakeAPI) { f.token = "persisted" })

	tokens := NewMemoryTokenStore()
	require.NoError(t, tokens.Save(context.Background(), Tokens{Access: "persisted"}))
	c := f.cache(t, tokens)

	c.VerifySessionOnStartup(context.Background())

	assert.True(t, c.IsLoggedIn())
	assert.Equal(t, "admin", c.Session().User.Username)
	assert.Len(t, c.Products(), 2)

	c.VerifySessionOnStartup(context.Background())
	assert.Equal(t, 1, f.count("GET /api/auth/verify-token/"))
}

func TestVerifySessionOnStartup_RejectedToken(t *testing.T) {
	f := newFakeAPI(t)
	tokens := NewMemoryTokenStore()
	require.NoError(t, tokens.Save(context.Background(), Tokens{Access: "stale"}))
	c := f.cache(t, tokens)
	events, stop := c.Subscribe()
	defer stop()

	c.VerifySessionOnStartup(context.Background())

	assert.Equal(t, Unauthenticated, c.State())
	assert.Empty(t, c.Session().Token)
	stored, _ := tokens.Load(context.Background())
	assert.Empty(t, stored.Access)
	assert.Zero(t, f.count("GET /api/products/"))

	ev := nextEvent(t, events)
	assert.Equal(t, SessionInvalidated, ev.Kind)
	assert.ErrorIs(t, ev.Reason, ErrSessionExpired)
}

func TestVerifySessionOnStartup_NoStoredToken(t *testing.T) {
	f := newFakeAPI(t)
	c := f.cache(t, NewMemoryTokenStore())

	c.VerifySessionOnStartup(context.Background())

	assert.Equal(t, Unauthenticated, c.State())
	assert.Zero(t, f.count("GET /api/auth/verify-token/"))
}

func TestVerifySessionOnStartup_NetworkFailureLogsOut(t *testing.T) {
	f := newFakeAPI(t)
	tokens := NewMemoryTokenStore()
	require.NoError(t, tokens.Save(context.Background(), Tokens{Access: "persisted"}))
	c := f.cache(t, tokens)
	f.srv.Close()

	c.VerifySessionOnStartup(context.Background())

	assert.Equal(t, Unauthenticated, c.State())
	stored, _ := tokens.Load(context.Background())
	assert.Empty(t, stored.Access)
}

func TestDo_WithoutToken(t *testing.T) {
	f := newFakeAPI(t)
	c := f.cache(t, NewMemoryTokenStore())

	resp, err := c.Do(context.Background(), http.MethodGet, "/api/products/", nil)
	assert.Nil(t, resp)
	require.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Zero(t, f.count("GET /api/products/"))
}

func TestDo_PassesNon401Through(t *testing.T) {
	f := newFakeAPI(t)
	c := loggedIn(t, f)
	f.set(func(f *fakeAPI) { f.failOrders = true })

	resp, err := c.Do(context.Background(), http.MethodGet, "/api/orders/", nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.True(t, c.IsLoggedIn())
}

func TestDo_401InvalidatesSession(t *testing.T) {
	f := newFakeAPI(t)
	c := loggedIn(t, f)
	events, stop := c.Subscribe()
	defer stop()

	// server-side expiry
	f.set(func(f *fakeAPI) { f.token = "rotated" })

	_, err := c.AddProduct(context.Background(), model.Product{Name: "Rice", Price: 80, Stock: 3})
	require.ErrorIs(t, err, ErrSessionExpired)

	assert.False(t, c.IsLoggedIn())
	assert.Empty(t, c.Products())

	ev := nextEvent(t, events)
	assert.Equal(t, SessionInvalidated, ev.Kind)
	assert.ErrorIs(t, ev.Reason, ErrSessionExpired)
}

func TestDo_Stale401DoesNotEndNewerSession(t *testing.T) {
	f := newFakeAPI(t)
	c := loggedIn(t, f)
	old := c.Session().Token

	require.NoError(t, c.Login(context.Background(), "admin", "secret"))
	c.invalidate(context.Background(), old, ErrSessionExpired)

	assert.True(t, c.IsLoggedIn())
	assert.Equal(t, "tok-2", c.Session().Token)
}

func TestLoadOrders_FailureKeepsCachedCopy(t *testing.T) {
	f := newFakeAPI(t)
	c := loggedIn(t, f)

	_, err := c.AddOrder(context.Background(), model.Order{
		Customer: "Hari",
		Items:    []model.OrderItem{{ProductID: 2, Quantity: 1, Rate: 90}},
	})
	require.NoError(t, err)
	c.Wait()
	before := c.Orders()
	require.Len(t, before, 1)

	f.set(func(f *fakeAPI) { f.failOrders = true })
	c.LoadOrders(context.Background())

	assert.Equal(t, before, c.Orders())
	assert.True(t, c.IsLoggedIn())
}

func TestAddOrder_DecrementsStockAndRefreshesSales(t *testing.T) {
	f := newFakeAPI(t)
	c := loggedIn(t, f)

	created, err := c.AddOrder(context.Background(), model.Order{
		Customer: "  Sita ",
		Items:    []model.OrderItem{{ProductID: 1, Particulars: "Tea", Quantity: 2, Rate: 150}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Sita", created.Customer)
	assert.Equal(t, 300.0, created.Total)

	tea, ok := c.Product(1)
	require.True(t, ok)
	assert.Equal(t, 3, tea.Stock)
	require.Len(t, c.Orders(), 1)

	c.Wait()
	recs := c.SalesRecords()
	require.Len(t, recs, 1)
	assert.Equal(t, 2, recs[0].Quantity)
	assert.Equal(t, 300.0, recs[0].Total)
	assert.Equal(t, 2, f.count("GET /api/salerecords/"))
}

func TestAddOrder_OverStockSendsNothing(t *testing.T) {
	f := newFakeAPI(t)
	c := loggedIn(t, f)

	_, err := c.AddOrder(context.Background(), model.Order{
		Customer: "Sita",
		Items: []model.OrderItem{
			{ProductID: 1, Quantity: 4, Rate: 150},
			{ProductID: 1, Quantity: 2, Rate: 150},
		},
	})
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Zero(t, f.count("POST /api/orders/"))

	tea, _ := c.Product(1)
	assert.Equal(t, 5, tea.Stock)
}

func TestAddOrder_UnknownProduct(t *testing.T) {
	f := newFakeAPI(t)
	c := loggedIn(t, f)

	_, err := c.AddOrder(context.Background(), model.Order{
		Customer: "Sita",
		Items:    []model.OrderItem{{ProductID: 42, Quantity: 1, Rate: 10}},
	})
	require.ErrorIs(t, err, ErrUnknownProduct)
	assert.Zero(t, f.count("POST /api/orders/"))
}

func TestAddOrder_ValidationBeforeNetwork(t *testing.T) {
	f := newFakeAPI(t)
	c := loggedIn(t, f)

	_, err := c.AddOrder(context.Background(), model.Order{Customer: " "})

	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Zero(t, f.count("POST /api/orders/"))
}

func TestAddOrder_ServerErrorBodyUnmodified(t *testing.T) {
	f := newFakeAPI(t)
	c := loggedIn(t, f)
	body := `{"error":"Not enough stock","details":{"product":1}}`
	f.set(func(f *fakeAPI) { f.rejectOrder = body })

	_, err := c.AddOrder(context.Background(), model.Order{
		Customer: "Sita",
		Items:    []model.OrderItem{{ProductID: 1, Quantity: 1, Rate: 150}},
	})

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, body, apiErr.Body)
	assert.Equal(t, "Not enough stock", apiErr.Message)

	tea, _ := c.Product(1)
	assert.Equal(t, 5, tea.Stock)
	assert.Empty(t, c.Orders())
}

func TestAddProduct_AppendsServerCopy(t *testing.T) {
	f := newFakeAPI(t)
	c := loggedIn(t, f)

	p, err := c.AddProduct(context.Background(), model.Product{Name: " Rice ", Price: 80, Stock: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(101), p.ID)
	assert.Equal(t, "Rice", p.Name)

	got, ok := c.Product(101)
	require.True(t, ok)
	assert.Equal(t, 10, got.Stock)
	c.Wait()
	assert.Equal(t, 2, f.count("GET /api/salerecords/"))
}

func TestAddProduct_Invalid(t *testing.T) {
	f := newFakeAPI(t)
	c := loggedIn(t, f)

	_, err := c.AddProduct(context.Background(), model.Product{Name: "Rice", Stock: -1})

	var verr *model.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "stock", verr.Fields[0].Field)
	assert.Zero(t, f.count("POST /api/products/"))
}

func TestRestock_UpdatesCachedProduct(t *testing.T) {
	f := newFakeAPI(t)
	c := loggedIn(t, f)

	p, err := c.Restock(context.Background(), 1, 7)
	require.NoError(t, err)
	assert.Equal(t, 12, p.Stock)

	cached, _ := c.Product(1)
	assert.Equal(t, 12, cached.Stock)
	assert.Equal(t, 1, f.count("PUT /api/products/1/"))

	_, err = c.Restock(context.Background(), 99, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteProduct(t *testing.T) {
	f := newFakeAPI(t)
	c := loggedIn(t, f)

	require.NoError(t, c.DeleteProduct(context.Background(), 2))
	_, ok := c.Product(2)
	assert.False(t, ok)
	assert.Len(t, c.Products(), 1)

	var apiErr *APIError
	require.ErrorAs(t, c.DeleteProduct(context.Background(), 2), &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestDeleteOrder_RefreshesProductsAndSales(t *testing.T) {
	f := newFakeAPI(t)
	c := loggedIn(t, f)

	o, err := c.AddOrder(context.Background(), model.Order{
		OrderID:  "INV-7",
		Customer: "Sita",
		Items:    []model.OrderItem{{ProductID: 1, Quantity: 2, Rate: 150}},
	})
	require.NoError(t, err)
	c.Wait()

	require.NoError(t, c.DeleteOrder(context.Background(), o.OrderID))
	assert.Empty(t, c.Orders())

	c.Wait()
	tea, _ := c.Product(1)
	assert.Equal(t, 5, tea.Stock)
	assert.Empty(t, c.SalesRecords())
}

func TestOrdersBetween_SendsDateBounds(t *testing.T) {
	f := newFakeAPI(t)
	c := loggedIn(t, f)

	start := time.Date(2026, 3, 1, 15, 0, 0, 0, time.UTC)
	end := time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)
	rows, err := c.OrdersBetween(context.Background(), start, end)
	require.NoError(t, err)
	assert.Empty(t, rows)

	f.mu.Lock()
	q := f.lastQuery
	f.mu.Unlock()
	assert.Equal(t, "end=2026-03-31&start=2026-03-01", q)
}

func TestLogout_DiscardsInFlightLoad(t *testing.T) {
	f := newFakeAPI(t)
	c := loggedIn(t, f)
	gate := make(chan struct{})
	f.set(func(f *fakeAPI) { f.productsGate = gate })

	done := make(chan struct{})
	go func() {
		defer close(done)
		c.LoadProducts(context.Background())
	}()
	require.Eventually(t, func() bool { return f.count("GET /api/products/") == 2 }, 2*time.Second, 5*time.Millisecond)

	c.Logout(context.Background())
	close(gate)
	<-done

	assert.Empty(t, c.Products())
	assert.Equal(t, Unauthenticated, c.State())
}

func TestSubscribe_UnsubscribeClosesChannel(t *testing.T) {
	c := New(Config{}, Deps{})
	ch, stop := c.Subscribe()
	stop()
	stop()

	_, open := <-ch
	assert.False(t, open)

	c.Logout(context.Background())
}

func TestAPIError_MessageShapes(t *testing.T) {
	cases := map[string]struct {
		body string
		want string
	}{
		"service envelope": {`{"error":"product not found"}`, "product not found"},
		"detail":           {`{"detail":"Authentication credentials were not provided."}`, "Authentication credentials were not provided."},
		"field errors":     {`{"non_field_errors":["Unable to log in"]}`, "Unable to log in"},
		"plain text":       {"  bad gateway \n", "bad gateway"},
		"empty":            {"", "Bad Request"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, errorMessage([]byte(tc.body), http.StatusBadRequest))
		})
	}
}

func TestNetworkError_WrapsBoth(t *testing.T) {
	cause := errors.New("connection refused")
	err := networkError(http.MethodGet, "/api/products/", cause)
	assert.ErrorIs(t, err, ErrNetwork)
	assert.ErrorIs(t, err, cause)
}

func TestLoadProducts_ReconcilesOptimisticStock(t *testing.T) {
	f := newFakeAPI(t)
	c := loggedIn(t, f)

	_, err := c.AddOrder(context.Background(), model.Order{
		Customer: "Sita",
		Items:    []model.OrderItem{{ProductID: 1, Quantity: 2, Rate: 150}},
	})
	require.NoError(t, err)
	c.Wait()

	tea, _ := c.Product(1)
	require.Equal(t, 3, tea.Stock)

	// another counter sold one more in the meantime
	f.set(func(f *fakeAPI) { f.products[0].Stock = 2 })
	c.LoadProducts(context.Background())

	tea, _ = c.Product(1)
	assert.Equal(t, 2, tea.Stock)
}

func TestLoadProducts_UnknownEnvelopeKeepsCachedCopy(t *testing.T) {
	f := newFakeAPI(t)
	c := loggedIn(t, f)
	before := c.Products()
	require.Len(t, before, 2)

	f.set(func(f *fakeAPI) { f.productsBody = `{"count": 0}` })
	c.LoadProducts(context.Background())
	assert.Equal(t, before, c.Products())

	f.set(func(f *fakeAPI) { f.productsBody = `{"data": [{"id": 9, "name": "Salt", "stock": "4"}]}` })
	c.LoadProducts(context.Background())
	require.Len(t, c.Products(), 1)
	assert.Equal(t, 4, c.Products()[0].Stock)
}

func TestListEnvelope_Shapes(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    int
		wantErr bool
	}{
		{"bare array", `[{"id": 1}, {"id": 2}]`, 2, false},
		{"records", `{"records": [{"id": 1}]}`, 1, false},
		{"results", `{"count": 1, "results": [{"id": 1}]}`, 1, false},
		{"data", `{"data": [{"id": 1}, {"id": 2}, {"id": 3}]}`, 3, false},
		{"empty list", `{"results": []}`, 0, false},
		{"null list", `{"data": null}`, 0, false},
		{"no list key", `{"detail": "ok"}`, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var rows listEnvelope[model.Product]
			err := json.Unmarshal([]byte(tt.body), &rows)
			if tt.wantErr {
				assert.ErrorIs(t, err, errNoList)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, rows)
			assert.Len(t, rows, tt.want)
		})
	}
}
