// Package store provides the Postgres-backed persistence layer for the
// harvested entity graph. All writes are idempotent against the schema's
// uniqueness keys, so a run can be safely repeated or resumed.
package store

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fiberloom/fiberloom/internal/crawler"
	"github.com/fiberloom/fiberloom/internal/fingerprint"
)

//go:embed schema.sql
var schemaSQL string

// pgxPool is the subset of pgxpool.Pool the store uses; pgxmock
// satisfies it in tests.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Postgres implements crawler.Store on a pgx connection pool.
type Postgres struct {
	pool  pgxPool
	clock crawler.Clock
}

// New connects a pool and verifies it with a ping.
func New(ctx context.Context, dsn string, clock crawler.Clock) (*Postgres, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{pool: pool, clock: clock}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for
// testing).
func NewWithPool(pool pgxPool, clock crawler.Clock) *Postgres {
	return &Postgres{pool: pool, clock: clock}
}

// Migrate applies the embedded schema. Statements are idempotent
// (CREATE ... IF NOT EXISTS) so this runs on every startup.
func (s *Postgres) Migrate(ctx context.Context) error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// Close releases the underlying pool.
func (s *Postgres) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// UpsertProduct inserts the product or, on a URL conflict, updates every
// mutable field in place and touches updated_at. Returns the row id.
func (s *Postgres) UpsertProduct(ctx context.Context, p crawler.Product) (int64, error) {
	images := p.Images
	if images == nil {
		images = []string{}
	}
	imagesJSON, err := json.Marshal(images)
	if err != nil {
		return 0, fmt.Errorf("marshal images: %w", err)
	}
	materialsJSON, err := json.Marshal(p.Materials)
	if err != nil {
		return 0, fmt.Errorf("marshal materials: %w", err)
	}

	now := s.clock.Now()
	query := `
		INSERT INTO products (
			source_domain, url, sku, name, brand, description, category,
			images, materials, created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (url) DO UPDATE SET
			sku = EXCLUDED.sku,
			name = EXCLUDED.name,
			brand = EXCLUDED.brand,
			description = EXCLUDED.description,
			category = EXCLUDED.category,
			images = EXCLUDED.images,
			materials = EXCLUDED.materials,
			updated_at = EXCLUDED.updated_at
		RETURNING id
	`
	var id int64
	err = s.pool.QueryRow(ctx, query,
		p.SourceDomain, p.URL, p.SKU, p.Name, p.Brand, p.Description, p.Category,
		imagesJSON, materialsJSON, now, now,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert product: %w", err)
	}
	return id, nil
}

// InsertVariant appends a variant row. There is deliberately no
// uniqueness key: repeated crawls append the rows again.
func (s *Postgres) InsertVariant(ctx context.Context, productID int64, v crawler.Variant) error {
	query := `
		INSERT INTO variants (
			product_id, variant_sku, color, size, upc, ean, gtin,
			price, currency, availability, raw
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := s.pool.Exec(ctx, query,
		productID, v.SKU, v.Color, v.Size, v.UPC, v.EAN, v.GTIN,
		v.Price, v.Currency, v.Availability, rawJSON(v.Raw),
	)
	if err != nil {
		return fmt.Errorf("insert variant: %w", err)
	}
	return nil
}

// InsertReview appends a review; a fingerprint collision is a silent
// no-op so re-crawls never duplicate reviews.
func (s *Postgres) InsertReview(ctx context.Context, productID int64, r crawler.Review) error {
	fp := fingerprint.Review(productID, r.Author, r.PublishedAt, r.Body)
	query := `
		INSERT INTO reviews (
			product_id, rating, title, body, author, lang,
			published_at, source, raw, fingerprint
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (fingerprint) DO NOTHING
	`
	_, err := s.pool.Exec(ctx, query,
		productID, r.Rating, r.Title, r.Body, r.Author, r.Lang,
		r.PublishedAt, r.Source, rawJSON(r.Raw), fp,
	)
	if err != nil {
		return fmt.Errorf("insert review: %w", err)
	}
	return nil
}

// UpsertMaterial inserts a canonical material name or returns the
// existing row's id on a name conflict.
func (s *Postgres) UpsertMaterial(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return 0, fmt.Errorf("material name is required")
	}
	query := `
		INSERT INTO materials (name)
		VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id
	`
	var id int64
	if err := s.pool.QueryRow(ctx, query, name).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert material: %w", err)
	}
	return id, nil
}

// rawJSON maps an absent payload to SQL NULL rather than an empty
// jsonb document.
func rawJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}

// InsertProductMaterial records one material mention; an identical
// (product, material, source, raw) tuple is a silent no-op.
func (s *Postgres) InsertProductMaterial(ctx context.Context, productID, materialID int64, m crawler.Mention) error {
	query := `
		INSERT INTO product_materials (product_id, material_id, percentage, source, raw)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (product_id, material_id, source, raw) DO NOTHING
	`
	_, err := s.pool.Exec(ctx, query, productID, materialID, m.Percentage, m.Source, m.Raw)
	if err != nil {
		return fmt.Errorf("insert product material: %w", err)
	}
	return nil
}
