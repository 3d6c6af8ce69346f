package catalog

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"ShreeMohan/internal/model"
	"ShreeMohan/pkg/kit"
)

type Server struct {
	Store Store
	Log   *zap.Logger
}

// Routes covers /products and everything below it.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Get("/", s.list)
	r.Post("/", s.create)
	r.Route("/{id}", func(r chi.Router) {
		r.Get("/", s.get)
		r.Put("/", s.update)
		r.Delete("/", s.delete)
		r.Post("/stock", s.adjustStock)
	})
	return r
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	products, err := s.Store.List(r.Context())
	if err != nil {
		s.fail(w, r, "list products", err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, products)
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	p, err := s.Store.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, "get product", err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	p, ok := decodeProduct(w, r)
	if !ok {
		return
	}

	created, err := s.Store.Create(r.Context(), p)
	if err != nil {
		s.fail(w, r, "create product", err)
		return
	}
	kit.WriteJSON(w, http.StatusCreated, created)
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}
	p, ok := decodeProduct(w, r)
	if !ok {
		return
	}
	p.ID = id

	updated, err := s.Store.Update(r.Context(), p)
	if err != nil {
		s.fail(w, r, "update product", err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, updated)
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	if err := s.Store.Delete(r.Context(), id); err != nil {
		s.fail(w, r, "delete product", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type stockReq struct {
	Delta int `json:"delta"`
}

func (s *Server) adjustStock(w http.ResponseWriter, r *http.Request) {
	id, ok := productID(w, r)
	if !ok {
		return
	}

	var req stockReq
	if err := kit.DecodeJSON(w, r, &req); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return
	}

	p, err := s.Store.AdjustStock(r.Context(), id, req.Delta)
	if err != nil {
		s.fail(w, r, "adjust stock", err)
		return
	}
	kit.WriteJSON(w, http.StatusOK, p)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		kit.WriteError(w, r, http.StatusNotFound, "product not found", map[string]any{"id": chi.URLParam(r, "id")})
	case errors.Is(err, ErrNameTaken):
		kit.WriteError(w, r, http.StatusConflict, "A product with this name already exists", nil)
	case errors.Is(err, ErrInsufficientStock):
		kit.WriteError(w, r, http.StatusConflict, "Not enough stock", map[string]any{"id": chi.URLParam(r, "id")})
	default:
		s.Log.Error(op+" failed", zap.Error(err))
		kit.WriteError(w, r, http.StatusInternalServerError, "server error", nil)
	}
}

func productID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		kit.WriteError(w, r, http.StatusBadRequest, "invalid product id", map[string]any{"id": raw})
		return 0, false
	}
	return id, true
}

func decodeProduct(w http.ResponseWriter, r *http.Request) (model.Product, bool) {
	var p model.Product
	if err := kit.DecodeJSON(w, r, &p); err != nil {
		kit.WriteError(w, r, http.StatusBadRequest, "bad json", map[string]any{"cause": err.Error()})
		return p, false
	}

	p.Name = strings.TrimSpace(p.Name)
	if err := model.Validate(p); err != nil {
		writeValidation(w, r, err)
		return p, false
	}
	return p, true
}

func writeValidation(w http.ResponseWriter, r *http.Request, err error) {
	var verr *model.ValidationError
	if errors.As(err, &verr) {
		kit.WriteError(w, r, http.StatusBadRequest, verr.Error(), verr.Fields)
		return
	}
	kit.WriteError(w, r, http.StatusBadRequest, err.Error(), nil)
}
