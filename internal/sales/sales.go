// Package sales derives report rows and dashboard figures from orders.
package sales

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"ShreeMohan/internal/model"
)

// Flatten produces one record per order line. Orders without a date are
// skipped because they cannot be placed on a timeline.
func Flatten(orders []model.Order) []model.SaleRecord {
	out := make([]model.SaleRecord, 0, len(orders))
	for _, o := range orders {
		if o.Date.IsZero() {
			continue
		}
		for _, it := range o.Items {
			out = append(out, model.SaleRecord{
				ID:        it.ID,
				OrderID:   o.OrderID,
				ProductID: it.ProductID,
				Product:   it.Label(),
				Customer:  o.Customer,
				Quantity:  it.Quantity,
				Price:     it.Rate,
				Total:     it.LineTotal(),
				Date:      o.Date,
			})
		}
	}
	return out
}

type WindowKind string

const (
	Daily   WindowKind = "daily"
	Weekly  WindowKind = "weekly"
	Monthly WindowKind = "monthly"
)

func ParseWindowKind(s string) (WindowKind, error) {
	switch k := WindowKind(strings.ToLower(strings.TrimSpace(s))); k {
	case Daily, Weekly, Monthly:
		return k, nil
	case "":
		return Monthly, nil
	default:
		return "", fmt.Errorf("unknown range %q", s)
	}
}

// Window returns the first and last calendar day covered by kind, counting
// today as the last day.
func Window(kind WindowKind, now time.Time) (start, end time.Time) {
	end = day(now)
	switch kind {
	case Daily:
		return end, end
	case Weekly:
		return end.AddDate(0, 0, -6), end
	default:
		return end.AddDate(0, 0, -29), end
	}
}

// Between keeps records whose day falls within [start, end]. Days are
// counted in start's location, whatever zone the record dates carry.
func Between(records []model.SaleRecord, start, end time.Time) []model.SaleRecord {
	loc := start.Location()
	from, to := day(start), day(end.In(loc))
	out := make([]model.SaleRecord, 0, len(records))
	for _, r := range records {
		d := day(r.Date.In(loc))
		if d.Before(from) || d.After(to) {
			continue
		}
		out = append(out, r)
	}
	return out
}

type Summary struct {
	Revenue      float64 `json:"revenue"`
	Orders       int     `json:"orders"`
	Quantity     int     `json:"quantity"`
	AverageOrder float64 `json:"average_order"`
}

func Summarize(records []model.SaleRecord) Summary {
	var s Summary
	seen := make(map[string]struct{})
	for _, r := range records {
		s.Revenue += r.Total
		s.Quantity += r.Quantity
		seen[r.OrderID] = struct{}{}
	}
	s.Orders = len(seen)
	if s.Orders > 0 {
		s.AverageOrder = s.Revenue / float64(s.Orders)
	}
	return s
}

type DayPoint struct {
	Day      time.Time `json:"day"`
	Quantity int       `json:"quantity"`
	Revenue  float64   `json:"revenue"`
	Orders   int       `json:"orders"`
}

// ByDay buckets records per calendar day, oldest first.
func ByDay(records []model.SaleRecord) []DayPoint {
	type bucket struct {
		DayPoint
		orders map[string]struct{}
	}
	buckets := make(map[time.Time]*bucket)
	for _, r := range records {
		if r.Date.IsZero() {
			continue
		}
		d := day(r.Date)
		b, ok := buckets[d]
		if !ok {
			b = &bucket{DayPoint: DayPoint{Day: d}, orders: make(map[string]struct{})}
			buckets[d] = b
		}
		b.Quantity += r.Quantity
		b.Revenue += r.Total
		b.orders[r.OrderID] = struct{}{}
	}

	out := make([]DayPoint, 0, len(buckets))
	for _, b := range buckets {
		b.Orders = len(b.orders)
		out = append(out, b.DayPoint)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out
}

type ProductShare struct {
	Product  string  `json:"product"`
	Quantity int     `json:"quantity"`
	Percent  float64 `json:"percent"`
}

// TopProducts ranks products by quantity sold. Percent is relative to the
// returned top n, matching how the dashboard pie is drawn.
func TopProducts(records []model.SaleRecord, n int) []ProductShare {
	qty := make(map[string]int)
	for _, r := range records {
		name := r.Product
		if name == "" {
			name = "Unknown"
		}
		qty[name] += r.Quantity
	}

	out := make([]ProductShare, 0, len(qty))
	for name, q := range qty {
		out = append(out, ProductShare{Product: name, Quantity: q})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		return out[i].Product < out[j].Product
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}

	total := 0
	for _, p := range out {
		total += p.Quantity
	}
	for i := range out {
		if total > 0 {
			out[i].Percent = float64(out[i].Quantity) * 100 / float64(total)
		}
	}
	return out
}

type OrderDigest struct {
	OrderID  string    `json:"order_id"`
	Customer string    `json:"customer"`
	Date     time.Time `json:"date"`
	Total    float64   `json:"total"`
	Products []string  `json:"products"`
}

// RecentOrders regroups records by order and returns the newest n.
func RecentOrders(records []model.SaleRecord, n int) []OrderDigest {
	byID := make(map[string]*OrderDigest)
	order := make([]string, 0)
	for _, r := range records {
		d, ok := byID[r.OrderID]
		if !ok {
			d = &OrderDigest{OrderID: r.OrderID, Customer: r.Customer, Date: r.Date}
			byID[r.OrderID] = d
			order = append(order, r.OrderID)
		}
		d.Total += r.Total
		d.Products = append(d.Products, r.Product)
	}

	out := make([]OrderDigest, 0, len(order))
	for _, id := range order {
		out = append(out, *byID[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
