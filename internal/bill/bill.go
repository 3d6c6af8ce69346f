// Package bill models the invoice sheet filled in at the counter before it
// becomes an order.
package bill

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"ShreeMohan/internal/model"
)

const DefaultRows = 10

type Row struct {
	ProductID   int64
	Particulars string
	Qty         int
	Rate        float64
}

func (r Row) Amount() float64 { return float64(r.Qty) * r.Rate }

func (r Row) blank() bool {
	return r.ProductID == 0 && strings.TrimSpace(r.Particulars) == "" && r.Qty == 0 && r.Rate == 0
}

type Bill struct {
	Customer        string
	CustomerAddress string
	Date            time.Time
	DateNP          string
	Rows            []Row
}

// New returns a sheet with the usual ten empty rows.
func New(customer string, date time.Time) *Bill {
	return &Bill{
		Customer: customer,
		Date:     date,
		Rows:     make([]Row, DefaultRows),
	}
}

func (b *Bill) AddRow(r Row) { b.Rows = append(b.Rows, r) }

// Set fills row i, growing the sheet if needed.
func (b *Bill) Set(i int, r Row) {
	for len(b.Rows) <= i {
		b.Rows = append(b.Rows, Row{})
	}
	b.Rows[i] = r
}

// DeleteRows drops the rows at the given indexes. Unknown indexes are ignored.
func (b *Bill) DeleteRows(idx ...int) {
	drop := make(map[int]struct{}, len(idx))
	for _, i := range idx {
		drop[i] = struct{}{}
	}
	kept := b.Rows[:0]
	for i, r := range b.Rows {
		if _, ok := drop[i]; !ok {
			kept = append(kept, r)
		}
	}
	b.Rows = kept
}

func (b *Bill) GrandTotal() float64 {
	var sum float64
	for _, r := range b.Rows {
		sum += r.Amount()
	}
	return sum
}

// Order converts the filled rows into an order ready for submission. Blank
// rows are dropped; validation is left to the caller.
func (b *Bill) Order() model.Order {
	o := model.Order{
		OrderID:         NewOrderID(),
		Customer:        b.Customer,
		CustomerAddress: b.CustomerAddress,
		Date:            b.Date,
		DateNP:          b.DateNP,
	}
	for _, r := range b.Rows {
		if r.blank() {
			continue
		}
		o.Items = append(o.Items, model.OrderItem{
			ProductID:   r.ProductID,
			Particulars: r.Particulars,
			Quantity:    r.Qty,
			Rate:        r.Rate,
		})
	}
	o.Normalize()
	return o
}

// NewOrderID returns an invoice number that is unique without a round trip:
// 16 hex digits of a random uuid, of which 60 bits are random.
func NewOrderID() string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "INV-" + strings.ToUpper(hex[:16])
}
