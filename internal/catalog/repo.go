package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("product not found")

type Repo struct{ DB *pgxpool.Pool }

const productCols = `id, seller_id, name, description, price_cents, stock, category, enabled, created_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.SellerID, &p.Name, &p.Description, &p.PriceCents,
		&p.Stock, &p.Category, &p.Enabled, &p.CreatedAt)
	return p, err
}

// List returns enabled products only; disabled products stay out of catalog
// reads but keep their historical order references.
func (r *Repo) List(ctx context.Context, f Filters) ([]Product, error) {
	var (
		conds = []string{"enabled"}
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Category != "" {
		conds = append(conds, "category = "+arg(f.Category))
	}
	if f.Search != "" {
		conds = append(conds, "(name ILIKE "+arg("%"+f.Search+"%")+" OR description ILIKE "+arg("%"+f.Search+"%")+")")
	}
	if f.MinPriceCents != nil {
		conds = append(conds, "price_cents >= "+arg(*f.MinPriceCents))
	}
	if f.MaxPriceCents != nil {
		conds = append(conds, "price_cents <= "+arg(*f.MaxPriceCents))
	}
	if f.InStock {
		conds = append(conds, "stock > 0")
	}

	q := `SELECT ` + productCols + ` FROM products WHERE ` + strings.Join(conds, " AND ") + ` ORDER BY created_at DESC`
	rows, err := r.DB.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) Categories(ctx context.Context) ([]string, error) {
	rows, err := r.DB.Query(ctx, `SELECT DISTINCT category FROM products WHERE enabled ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListBySeller includes disabled products so owners still see them.
func (r *Repo) ListBySeller(ctx context.Context, sellerID string) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+productCols+` FROM products WHERE seller_id=$1 ORDER BY created_at DESC`, sellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) Get(ctx context.Context, id string) (Product, error) {
	p, err := scanProduct(r.DB.QueryRow(ctx, `SELECT `+productCols+` FROM products WHERE id=$1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrNotFound
	}
	return p, err
}

func (r *Repo) Resolve(ctx context.Context, id string) (Ref, error) {
	var ref Ref
	err := r.DB.QueryRow(ctx,
		`SELECT id, seller_id, name, price_cents, enabled FROM products WHERE id=$1`, id).
		Scan(&ref.ID, &ref.SellerID, &ref.Name, &ref.PriceCents, &ref.Enabled)
	if errors.Is(err, pgx.ErrNoRows) {
		return Ref{}, ErrNotFound
	}
	return ref, err
}

func (r *Repo) Create(ctx context.Context, p *Product) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	p.Enabled = true
	p.CreatedAt = time.Now().UTC()
	_, err := r.DB.Exec(ctx, `
		INSERT INTO products(id, seller_id, name, description, price_cents, stock, category, enabled, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		p.ID, p.SellerID, p.Name, p.Description, p.PriceCents, p.Stock, p.Category, p.Enabled, p.CreatedAt)
	return err
}

// Update holds the mutable catalog fields; nil means leave unchanged. Stock
// is deliberately absent: every stock write goes through the inventory repo.
type Update struct {
	Name        *string
	Description *string
	PriceCents  *int64
	Category    *string
}

func (r *Repo) Update(ctx context.Context, id string, u Update) error {
	var (
		sets []string
		args []any
	)
	set := func(col string, v any) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if u.Name != nil {
		set("name", *u.Name)
	}
	if u.Description != nil {
		set("description", *u.Description)
	}
	if u.PriceCents != nil {
		set("price_cents", *u.PriceCents)
	}
	if u.Category != nil {
		set("category", *u.Category)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)
	ct, err := r.DB.Exec(ctx,
		`UPDATE products SET `+strings.Join(sets, ", ")+fmt.Sprintf(` WHERE id = $%d`, len(args)), args...)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repo) SetEnabled(ctx context.Context, id string, enabled bool) error {
	ct, err := r.DB.Exec(ctx, `UPDATE products SET enabled=$2 WHERE id=$1`, id, enabled)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
