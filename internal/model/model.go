// Package model is the single normalized schema for products, orders, sale
// records and users. Every decoder in the repository goes through these types,
// so field-name variants are resolved here and nowhere else.
package model

import (
	"encoding/json"
	"math"
	"strings"
	"time"
)

type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Role     string `json:"role,omitempty"`
}

func (u *User) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID       text `json:"id"`
		UserID   text `json:"user_id"`
		Username text `json:"username"`
		Email    text `json:"email"`
		Role     text `json:"role"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*u = User{
		ID:       firstText(raw.ID, raw.UserID),
		Username: firstText(raw.Username, raw.Email),
		Role:     string(raw.Role),
	}
	return nil
}

type Product struct {
	ID          int64   `json:"id,omitempty"`
	Name        string  `json:"name" validate:"required,max=200"`
	Price       float64 `json:"price" validate:"gte=0"`
	Stock       int     `json:"stock" validate:"gte=0"`
	Description string  `json:"description"`
	Image       string  `json:"image"`
}

func (p *Product) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID          text   `json:"id"`
		PK          text   `json:"pk"`
		Name        text   `json:"name"`
		Price       number `json:"price"`
		Stock       number `json:"stock"`
		Description text   `json:"description"`
		Image       text   `json:"image"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*p = Product{
		ID:          text(firstText(raw.ID, raw.PK)).int64(),
		Name:        string(raw.Name),
		Price:       float64(raw.Price),
		Stock:       raw.Stock.int(),
		Description: string(raw.Description),
		Image:       string(raw.Image),
	}
	return nil
}

type OrderItem struct {
	ID          int64   `json:"id,omitempty"`
	ProductID   int64   `json:"product" validate:"gt=0"`
	ProductName string  `json:"product_name,omitempty"`
	Particulars string  `json:"particulars"`
	Quantity    int     `json:"quantity" validate:"gt=0"`
	Rate        float64 `json:"rate" validate:"gte=0"`
	Amount      float64 `json:"amount"`
}

// Label is the human-readable name of the line.
func (it OrderItem) Label() string {
	if it.ProductName != "" {
		return it.ProductName
	}
	return it.Particulars
}

func (it *OrderItem) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID          text   `json:"id"`
		Product     text   `json:"product"`
		ProductID   text   `json:"product_id"`
		ProductName text   `json:"product_name"`
		Name        text   `json:"name"`
		Particulars text   `json:"particulars"`
		Quantity    number `json:"quantity"`
		Qty         number `json:"qty"`
		Rate        number `json:"rate"`
		Price       number `json:"price"`
		Amount      number `json:"amount"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*it = OrderItem{
		ID:          raw.ID.int64(),
		ProductID:   text(firstText(raw.ProductID, raw.Product)).int64(),
		ProductName: firstText(raw.ProductName, raw.Name),
		Particulars: string(raw.Particulars),
		Quantity:    firstNumber(raw.Quantity, raw.Qty).int(),
		Rate:        float64(firstNumber(raw.Rate, raw.Price)),
		Amount:      float64(raw.Amount),
	}
	// a non-numeric "product" is a name, not a key
	if it.ProductName == "" && raw.Product != "" && !raw.Product.numeric() {
		it.ProductName = string(raw.Product)
	}
	if it.Amount == 0 {
		it.Amount = it.LineTotal()
	}
	return nil
}

func (it OrderItem) LineTotal() float64 {
	return roundCents(float64(it.Quantity) * it.Rate)
}

type Order struct {
	ID              int64       `json:"id,omitempty"`
	OrderID         string      `json:"order_id"`
	Customer        string      `json:"customer" validate:"required,max=200"`
	CustomerAddress string      `json:"customer_address"`
	Total           float64     `json:"total"`
	Status          string      `json:"status,omitempty"`
	Date            time.Time   `json:"date,omitzero"`
	DateNP          string      `json:"date_np,omitempty"`
	Items           []OrderItem `json:"items" validate:"required,min=1,dive"`
}

func (o *Order) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID              text        `json:"id"`
		PK              text        `json:"pk"`
		OrderID         text        `json:"order_id"`
		Customer        text        `json:"customer"`
		CustomerName    text        `json:"customer_name"`
		Buyer           text        `json:"buyer"`
		CustomerAddress text        `json:"customer_address"`
		Total           number      `json:"total"`
		Status          text        `json:"status"`
		Date            timestamp   `json:"date"`
		DateNP          text        `json:"date_np"`
		Items           []OrderItem `json:"items"`
		OrderItems      []OrderItem `json:"order_items"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*o = Order{
		ID:              text(firstText(raw.ID, raw.PK)).int64(),
		OrderID:         firstText(raw.OrderID, raw.ID, raw.PK),
		Customer:        firstText(raw.Customer, raw.CustomerName, raw.Buyer),
		CustomerAddress: string(raw.CustomerAddress),
		Total:           float64(raw.Total),
		Status:          string(raw.Status),
		Date:            time.Time(raw.Date),
		DateNP:          string(raw.DateNP),
		Items:           raw.Items,
	}
	if len(o.Items) == 0 {
		o.Items = raw.OrderItems
	}
	if o.Total == 0 {
		o.Total = o.ItemsTotal()
	}
	return nil
}

// Normalize trims free-text fields and fills derived amounts before an order
// is validated or sent.
func (o *Order) Normalize() {
	o.OrderID = strings.TrimSpace(o.OrderID)
	o.Customer = strings.TrimSpace(o.Customer)
	o.CustomerAddress = strings.TrimSpace(o.CustomerAddress)
	for i := range o.Items {
		it := &o.Items[i]
		it.Particulars = strings.TrimSpace(it.Particulars)
		it.Amount = it.LineTotal()
	}
	o.Total = o.ItemsTotal()
}

func (o Order) ItemsTotal() float64 {
	var sum float64
	for _, it := range o.Items {
		sum += it.LineTotal()
	}
	return roundCents(sum)
}

// Quantities sums ordered quantity per product id.
func (o Order) Quantities() map[int64]int {
	out := make(map[int64]int, len(o.Items))
	for _, it := range o.Items {
		out[it.ProductID] += it.Quantity
	}
	return out
}

// SaleRecord is one order line flattened for reporting. It is derived from
// orders and never stored on its own.
type SaleRecord struct {
	ID        int64     `json:"id,omitempty"`
	OrderID   string    `json:"order_id,omitempty"`
	ProductID int64     `json:"product,omitempty"`
	Product   string    `json:"product_name"`
	Customer  string    `json:"customer"`
	Quantity  int       `json:"quantity"`
	Price     float64   `json:"price"`
	Total     float64   `json:"total"`
	Date      time.Time `json:"date,omitzero"`
}

func (r *SaleRecord) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID           text      `json:"id"`
		OrderID      text      `json:"order_id"`
		Order        text      `json:"order"`
		Product      text      `json:"product"`
		ProductName  text      `json:"product_name"`
		Particulars  text      `json:"particulars"`
		Customer     text      `json:"customer"`
		CustomerName text      `json:"customer_name"`
		Buyer        text      `json:"buyer"`
		Quantity     number    `json:"quantity"`
		Qty          number    `json:"qty"`
		Price        number    `json:"price"`
		Rate         number    `json:"rate"`
		Total        number    `json:"total"`
		Date         timestamp `json:"date"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}

	*r = SaleRecord{
		ID:       raw.ID.int64(),
		OrderID:  firstText(raw.OrderID, raw.Order),
		Product:  firstText(raw.ProductName, raw.Particulars),
		Customer: firstText(raw.Customer, raw.CustomerName, raw.Buyer),
		Quantity: firstNumber(raw.Quantity, raw.Qty).int(),
		Price:    float64(firstNumber(raw.Price, raw.Rate)),
		Total:    float64(raw.Total),
		Date:     time.Time(raw.Date),
	}
	if raw.Product.numeric() {
		r.ProductID = raw.Product.int64()
	} else if r.Product == "" {
		r.Product = string(raw.Product)
	}
	if r.Total == 0 {
		r.Total = roundCents(float64(r.Quantity) * r.Price)
	}
	return nil
}

func firstNumber(vals ...number) number {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
