package store

import (
	"context"
	"database/sql"
	"fmt"
)

func (s *PostgresStore) ListProducts(ctx context.Context) ([]ProductRow, error) {
	rows, err := s.DB.QueryContext(ctx, queryListProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ProductRow{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// UnitPrice reads the current catalog row for a product. It never serves a
// cached value; purchases call it at quote time.
func (s *PostgresStore) UnitPrice(ctx context.Context, productID int64) (ProductRow, error) {
	p, err := scanProduct(s.DB.QueryRowContext(ctx, queryUnitPrice, productID))
	if err != nil {
		return ProductRow{}, fmt.Errorf("failed to read price of product %d: %w", productID, err)
	}
	return p, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(r rowScanner) (ProductRow, error) {
	var p ProductRow
	var category, origin sql.NullString
	if err := r.Scan(&p.ID, &category, &p.Name, &p.Price, &p.Stock, &origin); err != nil {
		return ProductRow{}, err
	}
	p.Category = category.String
	p.Origin = origin.String
	return p, nil
}
