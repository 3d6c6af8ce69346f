package order

import (
	"context"
	"errors"
	"maps"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ShreeMohan/internal/bill"
	"ShreeMohan/internal/model"
	"ShreeMohan/internal/sales"
	"ShreeMohan/pkg/kit"
)

const statusCompleted = "Completed"

type Server struct {
	Store   Store
	Catalog Catalog
	Log     *zap.Logger
	now     func() time.Time
}

func (s *Server) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	f, ok := parseFilter(w, r)
	if !ok {
		return
	}

	orders, err := s.Store.List(r.Context(), f)
	if err != nil {
		s.Log.Error("list orders failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, orders)
}

// saleRecords serves the flattened per-item view. It is computed from the
// stored orders on every read.
func (s *Server) saleRecords(w http.ResponseWriter, r *http.Request) {
	f, ok := parseFilter(w, r)
	if !ok {
		return
	}

	orders, err := s.Store.List(r.Context(), f)
	if err != nil {
		s.Log.Error("list orders for sale records failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	records := sales.Flatten(orders)
	if records == nil {
		records = []model.SaleRecord{}
	}
	kit.WriteJSON(w, http.StatusOK, records)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")

	o, err := s.Store.Get(r.Context(), orderID)
	if errors.Is(err, ErrNotFound) {
		kit.WriteError(w, r, http.StatusNotFound, "order not found", map[string]any{"order_id": orderID})
		return
	}
	if err != nil {
		s.Log.Error("store get order failed", zap.Error(err), zap.String("order_id", orderID))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}
	kit.WriteJSON(w, http.StatusOK, o)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())

	var o model.Order
	if err := kit.DecodeJSON(w, r, &o); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	o.Normalize()
	if err := model.Validate(o); err != nil {
		var verr *model.ValidationError
		if errors.As(err, &verr) {
			kit.WriteError(w, r, http.StatusBadRequest, verr.Error(), verr.Fields)
			return
		}
		kit.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
		return
	}
	if o.OrderID == "" {
		o.OrderID = bill.NewOrderID()
	}
	if o.Date.IsZero() {
		o.Date = s.clock()
	}
	if o.Status == "" {
		o.Status = statusCompleted
	}

	reserved, err := s.reserveStock(r.Context(), &o)
	if err != nil {
		s.releaseStock(r.Context(), reserved)
		s.writeCatalogError(w, r, err)
		return
	}

	created, err := s.Store.Create(r.Context(), o)
	if err != nil {
		s.releaseStock(r.Context(), reserved)
		if errors.Is(err, ErrOrderIDTaken) {
			kit.WriteError(w, r, http.StatusConflict, "order id already exists", map[string]any{"order_id": o.OrderID})
			return
		}
		s.Log.Error("store create order failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	s.Log.Info("order created",
		zap.String("order_id", created.OrderID),
		zap.String("user_id", u.ID),
		zap.Float64("total", created.Total),
	)
	kit.WriteJSON(w, http.StatusCreated, created)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "order_id")

	o, err := s.Store.Delete(r.Context(), orderID)
	if errors.Is(err, ErrNotFound) {
		kit.WriteError(w, r, http.StatusNotFound, "order not found", map[string]any{"order_id": orderID})
		return
	}
	if err != nil {
		s.Log.Error("store delete order failed", zap.Error(err), zap.String("order_id", orderID))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
		return
	}

	s.releaseStock(r.Context(), o.Quantities())
	w.WriteHeader(http.StatusNoContent)
}

type stockError struct {
	productID int64
	err       error
}

func (e *stockError) Error() string { return e.err.Error() }
func (e *stockError) Unwrap() error { return e.err }

// reserveStock takes every ordered quantity from the catalog. On failure it
// returns what was already taken so the caller can give it back. Missing
// item names are filled from the catalog.
func (s *Server) reserveStock(ctx context.Context, o *model.Order) (map[int64]int, error) {
	want := o.Quantities()
	taken := make(map[int64]int, len(want))
	names := make(map[int64]string, len(want))

	for _, id := range slices.Sorted(maps.Keys(want)) {
		p, err := s.Catalog.AdjustStock(ctx, id, -want[id])
		if err != nil {
			return taken, &stockError{productID: id, err: err}
		}
		taken[id] = want[id]
		names[id] = p.Name
	}

	for i := range o.Items {
		it := &o.Items[i]
		if it.ProductName == "" {
			it.ProductName = names[it.ProductID]
		}
		if it.Particulars == "" {
			it.Particulars = it.ProductName
		}
	}
	return taken, nil
}

// releaseStock puts quantities back even if the request was cancelled.
// Failures are only logged.
func (s *Server) releaseStock(ctx context.Context, qty map[int64]int) {
	ctx = context.WithoutCancel(ctx)
	for id, n := range qty {
		if _, err := s.Catalog.AdjustStock(ctx, id, n); err != nil {
			s.Log.Warn("restore stock failed", zap.Int64("product_id", id), zap.Int("quantity", n), zap.Error(err))
		}
	}
}

func (s *Server) writeCatalogError(w http.ResponseWriter, r *http.Request, err error) {
	var details map[string]any
	var se *stockError
	if errors.As(err, &se) {
		details = map[string]any{"product": se.productID}
	}

	switch {
	case errors.Is(err, ErrCatalogOutOfStock):
		kit.WriteError(w, r, http.StatusConflict, "Not enough stock", details)
	case errors.Is(err, ErrCatalogNotFound):
		kit.WriteError(w, r, http.StatusBadRequest, "invalid product", details)
	case errors.Is(err, ErrCatalogUnavailable):
		kit.WriteError(w, r, http.StatusServiceUnavailable, "catalog unavailable", nil)
	default:
		s.Log.Warn("catalog error", zap.Error(err))
		kit.WriteError(w, r, http.StatusBadGateway, "catalog error", nil)
	}
}

func parseFilter(w http.ResponseWriter, r *http.Request) (Filter, bool) {
	var f Filter
	for _, p := range []struct {
		name string
		dst  *time.Time
	}{{"start", &f.Start}, {"end", &f.End}} {
		raw := strings.TrimSpace(r.URL.Query().Get(p.name))
		t, err := model.ParseDate(raw)
		if err != nil {
			kit.WriteError(w, r, http.StatusBadRequest, "invalid "+p.name+" date", map[string]any{p.name: raw})
			return Filter{}, false
		}
		*p.dst = t
	}

	if !f.Start.IsZero() && !f.End.IsZero() && f.Start.After(f.End) {
		kit.WriteError(w, r, http.StatusBadRequest, errBadDateFilter.Error(), nil)
		return Filter{}, false
	}
	return f, true
}
