// Package seeder fills the storefront tables with deterministic sample data
// so the service answers example questions without real customer records.
package seeder

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
)

const (
	DialectPostgres = "postgres"
	DialectDuckDB   = "duckdb"
)

type Options struct {
	Seed      int64
	Customers int
	Products  int
	Orders    int
	Reviews   int
	Tickets   int

	// CreateTables builds the storefront tables before inserting. The demo
	// engine needs this; a migrated database does not.
	CreateTables bool
	Dialect      string
}

func DefaultOptions() Options {
	return Options{
		Seed:      42,
		Customers: 40,
		Products:  25,
		Orders:    120,
		Reviews:   80,
		Tickets:   30,
		Dialect:   DialectPostgres,
	}
}

type Summary struct {
	Customers  int
	Products   int
	Orders     int
	OrderItems int
	Reviews    int
	Tickets    int
	Skipped    bool
}

type Seeder struct {
	db   *sql.DB
	opts Options
	log  *slog.Logger
}

func New(db *sql.DB, opts Options, logger *slog.Logger) *Seeder {
	defaults := DefaultOptions()
	if opts.Seed == 0 {
		opts.Seed = defaults.Seed
	}
	if opts.Customers < 2 {
		opts.Customers = defaults.Customers
	}
	if opts.Products <= 0 {
		opts.Products = defaults.Products
	}
	if opts.Orders < 3 {
		opts.Orders = defaults.Orders
	}
	if opts.Reviews < 0 {
		opts.Reviews = defaults.Reviews
	}
	if opts.Tickets < 0 {
		opts.Tickets = defaults.Tickets
	}
	if opts.Dialect == "" {
		opts.Dialect = defaults.Dialect
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Seeder{db: db, opts: opts, log: logger}
}

// Run seeds the database once. A database that already holds customers is
// left alone and reported through Summary.Skipped.
func (s *Seeder) Run(ctx context.Context) (Summary, error) {
	if s.opts.CreateTables {
		if err := s.createTables(ctx); err != nil {
			return Summary{}, err
		}
	}

	var existing int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM customers`).Scan(&existing); err != nil {
		return Summary{}, fmt.Errorf("check existing rows: %w", err)
	}
	if existing > 0 {
		s.log.InfoContext(ctx, "database already seeded", slog.Int("customers", existing))
		return Summary{Skipped: true}, nil
	}

	data := newGenerator(s.opts.Seed).build(s.opts)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Summary{}, fmt.Errorf("begin seed tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.insertAll(ctx, tx, data); err != nil {
		return Summary{}, err
	}
	if err := tx.Commit(); err != nil {
		return Summary{}, fmt.Errorf("commit seed tx: %w", err)
	}

	summary := Summary{
		Customers:  len(data.customers),
		Products:   len(data.products),
		Orders:     len(data.orders),
		OrderItems: len(data.items),
		Reviews:    len(data.reviews),
		Tickets:    len(data.tickets),
	}
	s.log.InfoContext(ctx, "seeded demo data",
		slog.Int64("seed", s.opts.Seed),
		slog.Int("customers", summary.Customers),
		slog.Int("products", summary.Products),
		slog.Int("orders", summary.Orders),
		slog.Int("order_items", summary.OrderItems),
		slog.Int("reviews", summary.Reviews),
		slog.Int("tickets", summary.Tickets),
	)
	return summary, nil
}

func (s *Seeder) insertAll(ctx context.Context, tx *sql.Tx, data dataset) error {
	for _, item := range data.customers {
		if err := s.exec(ctx, tx,
			`INSERT INTO customers (customer_id, name, email, city, country, created_at) VALUES (%s)`, 6,
			item.ID, item.Name, item.Email, item.City, item.Country, item.CreatedAt); err != nil {
			return fmt.Errorf("insert customer %d: %w", item.ID, err)
		}
	}
	for _, item := range data.products {
		if err := s.exec(ctx, tx,
			`INSERT INTO products (product_id, name, category, price, stock_quantity, created_at) VALUES (%s)`, 6,
			item.ID, item.Name, item.Category, item.Price, item.Stock, item.CreatedAt); err != nil {
			return fmt.Errorf("insert product %d: %w", item.ID, err)
		}
	}
	for _, item := range data.orders {
		if err := s.exec(ctx, tx,
			`INSERT INTO orders (order_id, customer_id, order_date, status, total_amount, created_at) VALUES (%s)`, 6,
			item.ID, item.CustomerID, item.Date, item.Status, item.Total, item.CreatedAt); err != nil {
			return fmt.Errorf("insert order %d: %w", item.ID, err)
		}
	}
	for _, item := range data.items {
		if err := s.exec(ctx, tx,
			`INSERT INTO order_items (order_item_id, order_id, product_id, quantity, unit_price) VALUES (%s)`, 5,
			item.ID, item.OrderID, item.ProductID, item.Quantity, item.UnitPrice); err != nil {
			return fmt.Errorf("insert order item %d: %w", item.ID, err)
		}
	}
	for _, item := range data.reviews {
		if err := s.exec(ctx, tx,
			`INSERT INTO reviews (review_id, product_id, customer_id, rating, comment, created_at) VALUES (%s)`, 6,
			item.ID, item.ProductID, item.CustomerID, item.Rating, item.Comment, item.CreatedAt); err != nil {
			return fmt.Errorf("insert review %d: %w", item.ID, err)
		}
	}
	for _, item := range data.tickets {
		if err := s.exec(ctx, tx,
			`INSERT INTO support_tickets (ticket_id, customer_id, order_id, subject, status, priority, created_at, resolved_at) VALUES (%s)`, 8,
			item.ID, item.CustomerID, item.OrderID, item.Subject, item.Status, item.Priority, item.CreatedAt, item.ResolvedAt); err != nil {
			return fmt.Errorf("insert ticket %d: %w", item.ID, err)
		}
	}
	return nil
}

func (s *Seeder) exec(ctx context.Context, tx *sql.Tx, template string, count int, args ...any) error {
	_, err := tx.ExecContext(ctx, fmt.Sprintf(template, s.placeholders(count)), args...)
	return err
}

func (s *Seeder) placeholders(count int) string {
	parts := make([]string, count)
	for i := range parts {
		if s.opts.Dialect == DialectDuckDB {
			parts[i] = "?"
		} else {
			parts[i] = fmt.Sprintf("$%d", i+1)
		}
	}
	return strings.Join(parts, ", ")
}

// createTables uses portable DDL that both PostgreSQL and DuckDB accept. The
// migrated PostgreSQL schema is richer; this one only has to carry demo mode.
func (s *Seeder) createTables(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS customers (
	customer_id BIGINT PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL,
	city TEXT NOT NULL,
	country TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS products (
	product_id BIGINT PRIMARY KEY,
	name TEXT NOT NULL,
	category TEXT NOT NULL,
	price FLOAT8 NOT NULL,
	stock_quantity INTEGER NOT NULL,
	created_at TIMESTAMP NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS orders (
	order_id BIGINT PRIMARY KEY,
	customer_id BIGINT NOT NULL REFERENCES customers (customer_id),
	order_date DATE NOT NULL,
	status TEXT NOT NULL,
	total_amount FLOAT8 NOT NULL,
	created_at TIMESTAMP NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS order_items (
	order_item_id BIGINT PRIMARY KEY,
	order_id BIGINT NOT NULL REFERENCES orders (order_id),
	product_id BIGINT NOT NULL REFERENCES products (product_id),
	quantity INTEGER NOT NULL,
	unit_price FLOAT8 NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS reviews (
	review_id BIGINT PRIMARY KEY,
	product_id BIGINT NOT NULL REFERENCES products (product_id),
	customer_id BIGINT NOT NULL REFERENCES customers (customer_id),
	rating INTEGER NOT NULL,
	comment TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
)`,
		`CREATE TABLE IF NOT EXISTS support_tickets (
	ticket_id BIGINT PRIMARY KEY,
	customer_id BIGINT NOT NULL REFERENCES customers (customer_id),
	order_id BIGINT,
	subject TEXT NOT NULL,
	status TEXT NOT NULL,
	priority TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL,
	resolved_at TIMESTAMP
)`,
	}
	for _, statement := range statements {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("create demo table: %w", err)
		}
	}
	return nil
}
