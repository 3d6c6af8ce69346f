package session

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ShreeMohan/internal/model"
	"ShreeMohan/internal/sales"
)

// fakeAPI is an in-process stand-in for the gateway. It understands just
// enough of the contract to exercise the cache.
type fakeAPI struct {
	mu          sync.Mutex
	token       string
	issued      int
	products    []model.Product
	orders      []model.Order
	nextID      int64
	failOrders  bool
	rejectOrder string
	lastQuery   string
	// productsGate, when set, holds GET /api/products/ until it is closed
	productsGate chan struct{}
	// productsBody, when set, replaces the GET /api/products/ response body
	productsBody string
	calls        map[string]int

	srv *httptest.Server
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()

	f := &fakeAPI{
		nextID: 100,
		calls:  make(map[string]int),
		products: []model.Product{
			{ID: 1, Name: "Tea", Price: 150, Stock: 5},
			{ID: 2, Name: "Sugar", Price: 90, Stock: 20},
		},
	}

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			f.mu.Lock()
			f.calls[req.Method+" "+req.URL.Path]++
			f.mu.Unlock()
			next.ServeHTTP(w, req)
		})
	})

	r.Post("/api/auth/login/", f.login)
	r.Post("/api/login/", f.login)
	r.Get("/api/auth/verify-token/", f.verify)

	r.Group(func(r chi.Router) {
		r.Use(f.requireToken)
		r.Get("/api/products/", f.listProducts)
		r.Post("/api/products/", f.createProduct)
		r.Put("/api/products/{id}/", f.updateProduct)
		r.Delete("/api/products/{id}/", f.deleteProduct)
		r.Get("/api/orders/", f.listOrders)
		r.Post("/api/orders/", f.createOrder)
		r.Delete("/api/orders/{order_id}/", f.deleteOrder)
		r.Get("/api/salerecords/", f.listSales)
	})

	f.srv = httptest.NewServer(r)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeAPI) cache(t *testing.T, tokens TokenStore) *Cache {
	t.Helper()
	c := New(Config{BaseURL: f.srv.URL}, Deps{Tokens: tokens, Log: zap.NewNop()})
	t.Cleanup(c.Wait)
	return c
}

func (f *fakeAPI) count(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[key]
}

func (f *fakeAPI) set(fn func(f *fakeAPI)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (f *fakeAPI) login(w http.ResponseWriter, r *http.Request) {
	var in credentials
	_ = json.NewDecoder(r.Body).Decode(&in)
	if in.Username != "admin" || in.Password != "secret" {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Invalid username or password"})
		return
	}

	f.mu.Lock()
	f.issued++
	f.token = "tok-" + strconv.Itoa(f.issued)
	token := f.token
	f.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{
		"access":  token,
		"refresh": "ref-" + token,
		"user":    map[string]any{"id": 1, "username": "admin"},
	})
}

func (f *fakeAPI) verify(w http.ResponseWriter, r *http.Request) {
	if !f.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "Token is invalid or expired"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": map[string]any{"id": "1", "username": "admin"}})
}

func (f *fakeAPI) authorized(r *http.Request) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	got := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	return f.token != "" && got == f.token
}

func (f *fakeAPI) requireToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !f.authorized(r) {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (f *fakeAPI) listProducts(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	gate := f.productsGate
	f.mu.Unlock()
	if gate != nil {
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.productsBody != "" {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(f.productsBody))
		return
	}
	writeJSON(w, http.StatusOK, f.products)
}

func (f *fakeAPI) createProduct(w http.ResponseWriter, r *http.Request) {
	var p model.Product
	_ = json.NewDecoder(r.Body).Decode(&p)

	f.mu.Lock()
	f.nextID++
	p.ID = f.nextID
	f.products = append(f.products, p)
	f.mu.Unlock()

	writeJSON(w, http.StatusCreated, p)
}

func (f *fakeAPI) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	var p model.Product
	_ = json.NewDecoder(r.Body).Decode(&p)
	p.ID = id

	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.products {
		if f.products[i].ID == id {
			f.products[i] = p
			writeJSON(w, http.StatusOK, p)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
}

func (f *fakeAPI) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)

	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.products {
		if f.products[i].ID == id {
			f.products = append(f.products[:i], f.products[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
}

func (f *fakeAPI) listOrders(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastQuery = r.URL.RawQuery
	if f.failOrders {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "database unavailable"})
		return
	}
	// paginated shape, as some deployments answer
	writeJSON(w, http.StatusOK, map[string]any{"results": f.orders})
}

func (f *fakeAPI) createOrder(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.rejectOrder != "" {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(f.rejectOrder))
		return
	}

	var o model.Order
	_ = json.NewDecoder(r.Body).Decode(&o)
	f.nextID++
	o.ID = f.nextID
	if o.OrderID == "" {
		o.OrderID = "INV-" + strconv.FormatInt(o.ID, 10)
	}
	o.Date = time.Now().UTC()
	o.Status = "Completed"
	for id, qty := range o.Quantities() {
		for i := range f.products {
			if f.products[i].ID == id {
				f.products[i].Stock -= qty
			}
		}
	}
	f.orders = append(f.orders, o)
	writeJSON(w, http.StatusCreated, o)
}

func (f *fakeAPI) deleteOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")

	f.mu.Lock()
	defer f.mu.Unlock()
	for i, o := range f.orders {
		if o.OrderID == orderID {
			for id, qty := range o.Quantities() {
				for j := range f.products {
					if f.products[j].ID == id {
						f.products[j].Stock += qty
					}
				}
			}
			f.orders = append(f.orders[:i], f.orders[i+1:]...)
			w.WriteHeader(http.StatusNoContent)
			return
		}
	}
	writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
}

func (f *fakeAPI) listSales(w http.ResponseWriter, _ *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"records": sales.Flatten(f.orders)})
}
