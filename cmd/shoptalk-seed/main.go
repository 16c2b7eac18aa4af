package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"

	"github.com/shoptalk/shoptalk/internal/config"
	"github.com/shoptalk/shoptalk/internal/demo/seeder"
	"github.com/shoptalk/shoptalk/internal/observability"
)

func main() {
	defaults := seeder.DefaultOptions()
	seed := flag.Int64("seed", defaults.Seed, "random seed for the generated dataset")
	customers := flag.Int("customers", defaults.Customers, "number of customers to generate")
	products := flag.Int("products", defaults.Products, "number of products to generate")
	orders := flag.Int("orders", defaults.Orders, "number of orders to generate")
	reviews := flag.Int("reviews", defaults.Reviews, "number of reviews to generate")
	tickets := flag.Int("tickets", defaults.Tickets, "number of support tickets to generate")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv("shoptalk-seed")
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	if cfg.Database.DSN == "" {
		fmt.Fprintln(os.Stderr, "SHOPTALK_DB_DSN is required")
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stdout)

	db, err := sql.Open("pgx", cfg.Database.DSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "database open error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "database ping error: %v\n", err)
		os.Exit(1)
	}

	summary, err := seeder.New(db, seeder.Options{
		Seed:      *seed,
		Customers: *customers,
		Products:  *products,
		Orders:    *orders,
		Reviews:   *reviews,
		Tickets:   *tickets,
		Dialect:   seeder.DialectPostgres,
	}, logger).Run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "seed failed: %v\n", err)
		os.Exit(1)
	}
	if summary.Skipped {
		fmt.Println("database already holds customers; nothing to do")
		return
	}
	fmt.Printf("seeded %d customers, %d products, %d orders, %d order items, %d reviews, %d tickets\n",
		summary.Customers, summary.Products, summary.Orders, summary.OrderItems, summary.Reviews, summary.Tickets)
}
