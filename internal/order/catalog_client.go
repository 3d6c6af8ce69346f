package order

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ShreeMohan/internal/model"
	"ShreeMohan/pkg/kit"
)

var (
	ErrCatalogNotFound    = errors.New("catalog product not found")
	ErrCatalogOutOfStock  = errors.New("catalog: not enough stock")
	ErrCatalogBadStatus   = errors.New("catalog bad status")
	ErrCatalogUnavailable = errors.New("catalog unavailable")
)

const (
	defaultCatalogTimeout = 3 * time.Second
	catalogClientName     = "catalog"
)

// Catalog is what order creation needs from the products service.
type Catalog interface {
	GetProduct(ctx context.Context, id int64) (model.Product, error)
	AdjustStock(ctx context.Context, id int64, delta int) (model.Product, error)
}

type CatalogClient struct {
	BaseURL string
	Client  *http.Client
}

func NewCatalogClient(baseURL string, timeout time.Duration, m *kit.ClientMetrics) *CatalogClient {
	if u, err := url.Parse(baseURL); err == nil && u.Scheme != "" && u.Host != "" {
		baseURL = strings.TrimRight(baseURL, "/")
	}
	if timeout <= 0 {
		timeout = defaultCatalogTimeout
	}
	return &CatalogClient{
		BaseURL: baseURL,
		Client: &http.Client{
			Timeout:   timeout,
			Transport: kit.NewClientTransport(catalogClientName, nil, m),
		},
	}
}

func (c *CatalogClient) productURL(id int64) string {
	return c.BaseURL + "/products/" + strconv.FormatInt(id, 10)
}

func (c *CatalogClient) GetProduct(ctx context.Context, id int64) (model.Product, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.productURL(id)+"/", nil)
	if err != nil {
		return model.Product{}, err
	}
	return c.do(req)
}

func (c *CatalogClient) AdjustStock(ctx context.Context, id int64, delta int) (model.Product, error) {
	body, err := json.Marshal(map[string]int{"delta": delta})
	if err != nil {
		return model.Product{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.productURL(id)+"/stock/", bytes.NewReader(body))
	if err != nil {
		return model.Product{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *CatalogClient) do(req *http.Request) (model.Product, error) {
	resp, err := c.Client.Do(req)
	if err != nil {
		return model.Product{}, fmt.Errorf("%w: %w", ErrCatalogUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return model.Product{}, ErrCatalogNotFound
	case http.StatusConflict:
		return model.Product{}, ErrCatalogOutOfStock
	default:
		_, _ = io.Copy(io.Discard, resp.Body)
		return model.Product{}, fmt.Errorf("%w: status=%d", ErrCatalogBadStatus, resp.StatusCode)
	}

	var p model.Product
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return model.Product{}, fmt.Errorf("decode catalog product: %w", err)
	}
	return p, nil
}
