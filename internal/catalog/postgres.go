package catalog

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// PostgresConfig controls the connection pool used to publish products.
type PostgresConfig struct {
	DSN             string
	Table           string
	MaxConns        int32
	MaxConnLifetime time.Duration
}

type txBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// PostgresPublisher mirrors the catalog into a products table. Every publish
// replaces the table contents inside one transaction.
type PostgresPublisher struct {
	pool  txBeginner
	table string
}

// NewPostgresPublisher connects to Postgres using cfg.
func NewPostgresPublisher(ctx context.Context, cfg PostgresConfig) (*PostgresPublisher, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("catalog.postgres_dsn is required")
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	publisher, err := NewPostgresPublisherWithPool(pool, cfg.Table)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return publisher, nil
}

// NewPostgresPublisherWithPool constructs a publisher from an existing pool (primarily for testing).
func NewPostgresPublisherWithPool(pool txBeginner, table string) (*PostgresPublisher, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "products"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &PostgresPublisher{pool: pool, table: table}, nil
}

// Name identifies the publisher in logs.
func (p *PostgresPublisher) Name() string {
	return "postgres:" + p.table
}

// Close releases the underlying pool resources.
func (p *PostgresPublisher) Close() {
	if p == nil || p.pool == nil {
		return
	}
	p.pool.Close()
}

// Publish replaces every row of the products table with c.Products.
func (p *PostgresPublisher) Publish(ctx context.Context, c Catalog) (err error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin catalog tx: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			err = fmt.Errorf("%w (rollback: %v)", err, rbErr)
		}
	}()

	if _, err = tx.Exec(ctx, fmt.Sprintf(createTableSQL, p.table)); err != nil {
		return fmt.Errorf("ensure %s table: %w", p.table, err)
	}
	if _, err = tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s", p.table)); err != nil {
		return fmt.Errorf("clear %s: %w", p.table, err)
	}
	insert := fmt.Sprintf(insertSQL, p.table)
	for _, prod := range c.Products {
		_, err = tx.Exec(ctx, insert,
			prod.ID,
			prod.Title,
			prod.Club,
			prod.League,
			string(prod.Category),
			prod.Season,
			prod.Price,
			prod.DisplayPrice,
			prod.Sizes,
			prod.Images,
			prod.Description,
			prod.Tags,
			prod.IsNew,
			prod.IsOnSale,
			prod.InStock,
			prod.Brand,
			prod.Material,
			c.GeneratedAt,
		)
		if err != nil {
			return fmt.Errorf("insert product %s: %w", prod.ID, err)
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit catalog tx: %w", err)
	}
	return nil
}

const createTableSQL = `CREATE TABLE IF NOT EXISTS %s (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	club TEXT NOT NULL,
	league TEXT NOT NULL,
	category TEXT NOT NULL,
	season TEXT NOT NULL,
	price INTEGER NOT NULL,
	display_price INTEGER NOT NULL,
	sizes TEXT[] NOT NULL,
	images TEXT[] NOT NULL,
	description TEXT NOT NULL,
	tags TEXT[] NOT NULL,
	is_new BOOLEAN NOT NULL,
	is_on_sale BOOLEAN NOT NULL,
	in_stock BOOLEAN NOT NULL,
	brand TEXT NOT NULL,
	material TEXT NOT NULL,
	generated_at TIMESTAMPTZ NOT NULL
)`

const insertSQL = `
INSERT INTO %s (
	id,
	title,
	club,
	league,
	category,
	season,
	price,
	display_price,
	sizes,
	images,
	description,
	tags,
	is_new,
	is_on_sale,
	in_stock,
	brand,
	material,
	generated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
