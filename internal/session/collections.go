package session

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ShreeMohan/internal/model"
)

// LoadProducts replaces the cached products wholesale. Failures keep the
// previous copy and are only logged.
func (c *Cache) LoadProducts(ctx context.Context) {
	load(ctx, c, "products", productsPath, func(rows []model.Product) { c.products = rows })
}

func (c *Cache) LoadOrders(ctx context.Context) {
	load(ctx, c, "orders", ordersPath, func(rows []model.Order) { c.orders = rows })
}

func (c *Cache) LoadSalesRecords(ctx context.Context) {
	load(ctx, c, "salerecords", c.cfg.SalesRecordsPath, func(rows []model.SaleRecord) { c.sales = rows })
}

// Reload starts the three loads together and waits for all of them. Each
// one succeeds or fails on its own; no ordering between them is assumed.
func (c *Cache) Reload(ctx context.Context) {
	var g errgroup.Group
	g.Go(func() error { c.LoadProducts(ctx); return nil })
	g.Go(func() error { c.LoadOrders(ctx); return nil })
	g.Go(func() error { c.LoadSalesRecords(ctx); return nil })
	_ = g.Wait()
}

func load[T any](ctx context.Context, c *Cache, collection, path string, apply func([]T)) {
	epoch := c.currentEpoch()

	var rows listEnvelope[T]
	if err := c.call(ctx, http.MethodGet, path, nil, &rows); err != nil {
		c.log.Warn("load failed, keeping cached copy", zap.String("collection", collection), zap.Error(err))
		return
	}
	if rows == nil {
		rows = listEnvelope[T]{}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch {
		return
	}
	apply(rows)
}

// AddProduct creates a product and appends the server's copy to the cache.
func (c *Cache) AddProduct(ctx context.Context, p model.Product) (model.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	if err := model.Validate(p); err != nil {
		return model.Product{}, err
	}

	epoch := c.currentEpoch()
	var created model.Product
	if err := c.call(ctx, http.MethodPost, productsPath, p, &created); err != nil {
		return model.Product{}, err
	}

	c.mu.Lock()
	if c.epoch == epoch {
		c.products = append(c.products, created)
	}
	c.mu.Unlock()

	c.goRefresh(ctx, c.LoadSalesRecords)
	return created, nil
}

// UpdateProduct replaces a product on the server and in the cache.
func (c *Cache) UpdateProduct(ctx context.Context, p model.Product) (model.Product, error) {
	p.Name = strings.TrimSpace(p.Name)
	if p.ID <= 0 {
		return model.Product{}, model.Invalid("id", "gt", "0")
	}
	if err := model.Validate(p); err != nil {
		return model.Product{}, err
	}

	epoch := c.currentEpoch()
	var updated model.Product
	if err := c.call(ctx, http.MethodPut, productPath(p.ID), p, &updated); err != nil {
		return model.Product{}, err
	}

	c.mu.Lock()
	if c.epoch == epoch {
		if i := c.productIndex(updated.ID); i >= 0 {
			c.products[i] = updated
		} else {
			c.products = append(c.products, updated)
		}
	}
	c.mu.Unlock()
	return updated, nil
}

// Restock adds quantity units to the cached product and writes it back.
func (c *Cache) Restock(ctx context.Context, id int64, quantity int) (model.Product, error) {
	if quantity <= 0 {
		return model.Product{}, model.Invalid("quantity", "gt", "0")
	}
	p, ok := c.Product(id)
	if !ok {
		return model.Product{}, fmt.Errorf("%w: product %d", ErrNotFound, id)
	}
	p.Stock += quantity
	return c.UpdateProduct(ctx, p)
}

func (c *Cache) DeleteProduct(ctx context.Context, id int64) error {
	epoch := c.currentEpoch()
	if err := c.call(ctx, http.MethodDelete, productPath(id), nil, nil); err != nil {
		return err
	}

	c.mu.Lock()
	if c.epoch == epoch {
		c.products = slices.DeleteFunc(c.products, func(p model.Product) bool { return p.ID == id })
	}
	c.mu.Unlock()
	return nil
}

// AddOrder places an order. Every line is checked against cached stock
// before anything is sent. On success the order is appended, the cached
// stock of each product drops by the ordered quantity right away, and sale
// records refresh in the background. The next LoadProducts reconciles stock
// with the server.
func (c *Cache) AddOrder(ctx context.Context, o model.Order) (model.Order, error) {
	o.Normalize()
	if err := model.Validate(o); err != nil {
		return model.Order{}, err
	}
	if err := c.checkStock(o); err != nil {
		return model.Order{}, err
	}

	epoch := c.currentEpoch()
	var created model.Order
	if err := c.call(ctx, http.MethodPost, ordersPath, o, &created); err != nil {
		return model.Order{}, err
	}

	c.mu.Lock()
	if c.epoch == epoch {
		c.orders = append(c.orders, created)
		for id, qty := range o.Quantities() {
			if i := c.productIndex(id); i >= 0 {
				c.products[i].Stock = max(c.products[i].Stock-qty, 0)
			}
		}
	}
	c.mu.Unlock()

	c.goRefresh(ctx, c.LoadSalesRecords)
	return created, nil
}

func (c *Cache) checkStock(o model.Order) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for id, qty := range o.Quantities() {
		i := c.productIndex(id)
		if i < 0 {
			return fmt.Errorf("%w: product %d", ErrUnknownProduct, id)
		}
		if p := c.products[i]; qty > p.Stock {
			return fmt.Errorf("%w: %s has %d, requested %d", ErrInsufficientStock, p.Name, p.Stock, qty)
		}
	}
	return nil
}

// DeleteOrder removes an order. The server puts the stock back, so products
// refresh alongside sale records.
func (c *Cache) DeleteOrder(ctx context.Context, orderID string) error {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return model.Invalid("order_id", "required", "")
	}

	epoch := c.currentEpoch()
	if err := c.call(ctx, http.MethodDelete, ordersPath+url.PathEscape(orderID)+"/", nil, nil); err != nil {
		return err
	}

	c.mu.Lock()
	if c.epoch == epoch {
		c.orders = slices.DeleteFunc(c.orders, func(o model.Order) bool { return o.OrderID == orderID })
	}
	c.mu.Unlock()

	c.goRefresh(ctx, c.LoadSalesRecords)
	c.goRefresh(ctx, c.LoadProducts)
	return nil
}

// OrdersBetween fetches orders dated within [start, end] without touching the
// cached collection.
func (c *Cache) OrdersBetween(ctx context.Context, start, end time.Time) ([]model.Order, error) {
	q := url.Values{}
	q.Set("start", start.Format(time.DateOnly))
	q.Set("end", end.Format(time.DateOnly))

	var rows listEnvelope[model.Order]
	if err := c.call(ctx, http.MethodGet, ordersPath+"?"+q.Encode(), nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Cache) productIndex(id int64) int {
	return slices.IndexFunc(c.products, func(p model.Product) bool { return p.ID == id })
}

func productPath(id int64) string {
	return productsPath + strconv.FormatInt(id, 10) + "/"
}
