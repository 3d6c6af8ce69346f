package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"ShreeMohan/internal/bill"
	"ShreeMohan/internal/model"
	"ShreeMohan/internal/sales"
	"ShreeMohan/internal/session"
)

var errUsage = errors.New("usage")

type commands struct {
	cache *session.Cache
	out   io.Writer
	now   func() time.Time
}

func (c *commands) dispatch(ctx context.Context, name string, args []string) error {
	switch name {
	case "login":
		return c.login(ctx, args)
	case "logout":
		c.cache.Logout(ctx)
		fmt.Fprintln(c.out, "logged out")
		return nil
	case "whoami":
		return c.whoami()
	case "products":
		return c.products()
	case "add-product":
		return c.addProduct(ctx, args)
	case "restock":
		return c.restock(ctx, args)
	case "delete-product":
		return c.deleteProduct(ctx, args)
	case "orders":
		return c.orders(ctx, args)
	case "order":
		return c.order(ctx, args)
	case "delete-order":
		return c.deleteOrder(ctx, args)
	case "sales":
		return c.sales(args)
	default:
		return fmt.Errorf("unknown command %q: %w", name, errUsage)
	}
}

func (c *commands) requireLogin() error {
	if !c.cache.IsLoggedIn() {
		return session.ErrNotAuthenticated
	}
	return nil
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func (c *commands) login(ctx context.Context, args []string) error {
	fs := newFlags("login")
	user := fs.String("u", "", "username or email")
	pass := fs.String("p", "", "password")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *user == "" || *pass == "" {
		return fmt.Errorf("login needs -u and -p: %w", errUsage)
	}

	if err := c.cache.Login(ctx, *user, *pass); err != nil {
		return err
	}
	s := c.cache.Session()
	fmt.Fprintf(c.out, "logged in as %s (%d products, %d orders)\n",
		s.User.Username, len(c.cache.Products()), len(c.cache.Orders()))
	return nil
}

func (c *commands) whoami() error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	u := c.cache.Session().User
	fmt.Fprintf(c.out, "%s (id %s)\n", u.Username, u.ID)
	return nil
}

func (c *commands) products() error {
	if err := c.requireLogin(); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tPRICE\tSTOCK")
	for _, p := range c.cache.Products() {
		fmt.Fprintf(tw, "%d\t%s\t%.2f\t%d\n", p.ID, p.Name, p.Price, p.Stock)
	}
	return tw.Flush()
}

func (c *commands) addProduct(ctx context.Context, args []string) error {
	fs := newFlags("add-product")
	var p model.Product
	fs.StringVar(&p.Name, "name", "", "product name")
	fs.Float64Var(&p.Price, "price", 0, "unit price")
	fs.IntVar(&p.Stock, "stock", 0, "opening stock")
	fs.StringVar(&p.Description, "description", "", "description")
	fs.StringVar(&p.Image, "image", "", "image url")
	if err := fs.Parse(args); err != nil {
		return err
	}

	created, err := c.cache.AddProduct(ctx, p)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "added product %d %s\n", created.ID, created.Name)
	return nil
}

func (c *commands) restock(ctx context.Context, args []string) error {
	fs := newFlags("restock")
	id := fs.Int64("id", 0, "product id")
	qty := fs.Int("qty", 0, "quantity to add")
	if err := fs.Parse(args); err != nil {
		return err
	}

	p, err := c.cache.Restock(ctx, *id, *qty)
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "%s now has %d in stock\n", p.Name, p.Stock)
	return nil
}

func (c *commands) deleteProduct(ctx context.Context, args []string) error {
	fs := newFlags("delete-product")
	id := fs.Int64("id", 0, "product id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.cache.DeleteProduct(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "deleted product %d\n", *id)
	return nil
}

func (c *commands) orders(ctx context.Context, args []string) error {
	fs := newFlags("orders")
	start := fs.String("start", "", "first day, YYYY-MM-DD")
	end := fs.String("end", "", "last day, YYYY-MM-DD")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.requireLogin(); err != nil {
		return err
	}

	rows := c.cache.Orders()
	if *start != "" || *end != "" {
		if *start == "" || *end == "" {
			return fmt.Errorf("orders needs both -start and -end: %w", errUsage)
		}
		from, err := model.ParseDate(*start)
		if err != nil {
			return fmt.Errorf("start: %w", err)
		}
		to, err := model.ParseDate(*end)
		if err != nil {
			return fmt.Errorf("end: %w", err)
		}
		if rows, err = c.cache.OrdersBetween(ctx, from, to); err != nil {
			return err
		}
	}

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ORDER\tDATE\tCUSTOMER\tITEMS\tTOTAL\tSTATUS")
	for _, o := range rows {
		date := ""
		if !o.Date.IsZero() {
			date = o.Date.Format(time.DateOnly)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%.2f\t%s\n", o.OrderID, date, o.Customer, len(o.Items), o.Total, o.Status)
	}
	return tw.Flush()
}

// itemFlags collects repeated -item id:qty[@rate] values.
type itemFlags []string

func (f *itemFlags) String() string     { return strings.Join(*f, ",") }
func (f *itemFlags) Set(v string) error { *f = append(*f, v); return nil }

func (c *commands) order(ctx context.Context, args []string) error {
	fs := newFlags("order")
	customer := fs.String("customer", "", "customer name")
	address := fs.String("address", "", "customer address")
	var items itemFlags
	fs.Var(&items, "item", "product id:quantity, optionally @rate (repeatable)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.requireLogin(); err != nil {
		return err
	}

	now := time.Now
	if c.now != nil {
		now = c.now
	}
	b := bill.New(*customer, now())
	b.CustomerAddress = *address
	b.Rows = b.Rows[:0]
	for _, raw := range items {
		row, err := c.parseItem(raw)
		if err != nil {
			return err
		}
		b.AddRow(row)
	}

	created, err := c.cache.AddOrder(ctx, b.Order())
	if err != nil {
		return err
	}
	fmt.Fprintf(c.out, "order %s saved, total %.2f\n", created.OrderID, created.Total)
	return nil
}

// parseItem reads "id:qty" or "id:qty@rate". Without a rate the cached
// product price is used.
func (c *commands) parseItem(raw string) (bill.Row, error) {
	pair, rateText, hasRate := strings.Cut(raw, "@")
	idText, qtyText, ok := strings.Cut(pair, ":")
	if !ok {
		return bill.Row{}, fmt.Errorf("item %q: want id:qty", raw)
	}
	id, err := strconv.ParseInt(strings.TrimSpace(idText), 10, 64)
	if err != nil {
		return bill.Row{}, fmt.Errorf("item %q: bad product id", raw)
	}
	qty, err := strconv.Atoi(strings.TrimSpace(qtyText))
	if err != nil {
		return bill.Row{}, fmt.Errorf("item %q: bad quantity", raw)
	}

	row := bill.Row{ProductID: id, Qty: qty}
	if p, ok := c.cache.Product(id); ok {
		row.Particulars = p.Name
		row.Rate = p.Price
	}
	if hasRate {
		if row.Rate, err = strconv.ParseFloat(strings.TrimSpace(rateText), 64); err != nil {
			return bill.Row{}, fmt.Errorf("item %q: bad rate", raw)
		}
	}
	return row, nil
}

func (c *commands) deleteOrder(ctx context.Context, args []string) error {
	fs := newFlags("delete-order")
	id := fs.String("id", "", "order id")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.cache.DeleteOrder(ctx, *id); err != nil {
		return err
	}
	fmt.Fprintf(c.out, "deleted order %s\n", *id)
	return nil
}

func (c *commands) sales(args []string) error {
	fs := newFlags("sales")
	rangeName := fs.String("range", "monthly", "daily, weekly or monthly")
	top := fs.Int("top", 5, "top products to list")
	recent := fs.Int("recent", 5, "recent orders to list")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := c.requireLogin(); err != nil {
		return err
	}
	kind, err := sales.ParseWindowKind(*rangeName)
	if err != nil {
		return err
	}

	now := time.Now
	if c.now != nil {
		now = c.now
	}
	start, end := sales.Window(kind, now())
	records := sales.Between(c.cache.SalesRecords(), start, end)
	sum := sales.Summarize(records)

	fmt.Fprintf(c.out, "%s sales %s to %s\n", kind, start.Format(time.DateOnly), end.Format(time.DateOnly))
	fmt.Fprintf(c.out, "revenue %.2f  orders %d  items %d  average order %.2f\n",
		sum.Revenue, sum.Orders, sum.Quantity, sum.AverageOrder)

	tw := tabwriter.NewWriter(c.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nPRODUCT\tQTY\tSHARE")
	for _, p := range sales.TopProducts(records, *top) {
		fmt.Fprintf(tw, "%s\t%d\t%.1f%%\n", p.Product, p.Quantity, p.Percent)
	}
	fmt.Fprintln(tw, "\nORDER\tDATE\tCUSTOMER\tTOTAL")
	for _, o := range sales.RecentOrders(records, *recent) {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.2f\n", o.OrderID, o.Date.Format(time.DateOnly), o.Customer, o.Total)
	}
	return tw.Flush()
}
