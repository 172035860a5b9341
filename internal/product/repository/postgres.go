package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/product/dto"
	"github.com/jmoiron/sqlx"
)

const productColumns = `id, kind, title, category_id, price, pricing_rule, created_at, updated_at`

type PGRepository struct {
	DB *sqlx.DB
}

func NewPGRepository(db *sqlx.DB) *PGRepository {
	return &PGRepository{DB: db}
}

type memberRow struct {
	BundleID  string `db:"bundle_id"`
	ProductID string `db:"product_id"`
}

func (r *PGRepository) Create(ctx context.Context, p *model.Product) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
        INSERT INTO products (id, kind, title, category_id, price, pricing_rule, created_at, updated_at)
        VALUES (:id, :kind, :title, :category_id, :price, :pricing_rule, :created_at, :updated_at)
    `
	if _, err := tx.NamedExecContext(ctx, query, p); err != nil {
		return err
	}
	if err := insertMembers(ctx, tx, p.ID, p.MemberIDs); err != nil {
		return err
	}
	return tx.Commit()
}

func insertMembers(ctx context.Context, tx *sqlx.Tx, bundleID string, memberIDs []string) error {
	query := tx.Rebind(`INSERT INTO bundle_members (bundle_id, product_id, position) VALUES (?, ?, ?)`)
	for i, memberID := range memberIDs {
		if _, err := tx.ExecContext(ctx, query, bundleID, memberID, i); err != nil {
			return fmt.Errorf("add member %s to bundle %s: %w", memberID, bundleID, err)
		}
	}
	return nil
}

func (r *PGRepository) FindByID(ctx context.Context, id string) (*model.Product, error) {
	var p model.Product
	query := r.DB.Rebind(`SELECT ` + productColumns + ` FROM products WHERE id = ? LIMIT 1`)
	if err := r.DB.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrProductNotFound
		}
		return nil, err
	}

	products := []model.Product{p}
	if err := r.attachMembers(ctx, products); err != nil {
		return nil, err
	}
	return &products[0], nil
}

func (r *PGRepository) FindByIDs(ctx context.Context, ids []string) ([]model.Product, error) {
	products := []model.Product{}
	if len(ids) == 0 {
		return products, nil
	}

	query, args, err := sqlx.In(`SELECT `+productColumns+` FROM products WHERE id IN (?)`, ids)
	if err != nil {
		return nil, err
	}
	if err := r.DB.SelectContext(ctx, &products, r.DB.Rebind(query), args...); err != nil {
		return nil, err
	}
	if err := r.attachMembers(ctx, products); err != nil {
		return nil, err
	}
	return products, nil
}

func (r *PGRepository) FindAll(ctx context.Context, f *dto.ProductFilters) ([]model.Product, int, error) {
	if f == nil {
		f = &dto.ProductFilters{}
	}

	conditions := []string{}
	args := []interface{}{}

	if f.CategoryID != "" {
		conditions = append(conditions, "category_id = ?")
		args = append(args, f.CategoryID)
	}
	if f.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, f.Kind)
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var count int
	if err := r.DB.GetContext(ctx, &count, r.DB.Rebind("SELECT count(*) FROM products"+whereClause), args...); err != nil {
		return nil, 0, err
	}

	query := "SELECT " + productColumns + " FROM products" + whereClause + " ORDER BY title ASC, id ASC"
	if f.PageSize > 0 {
		page := f.Page
		if page < 1 {
			page = 1
		}
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.PageSize, (page-1)*f.PageSize)
	}

	products := []model.Product{}
	if err := r.DB.SelectContext(ctx, &products, r.DB.Rebind(query), args...); err != nil {
		return nil, 0, err
	}
	if err := r.attachMembers(ctx, products); err != nil {
		return nil, 0, err
	}
	return products, count, nil
}

// attachMembers fills MemberIDs of every bundle in products, in position order.
func (r *PGRepository) attachMembers(ctx context.Context, products []model.Product) error {
	index := make(map[string]int)
	var bundleIDs []string
	for i := range products {
		if products[i].IsBundle() {
			index[products[i].ID] = i
			bundleIDs = append(bundleIDs, products[i].ID)
			products[i].MemberIDs = []string{}
		}
	}
	if len(bundleIDs) == 0 {
		return nil
	}

	query, args, err := sqlx.In(
		`SELECT bundle_id, product_id FROM bundle_members WHERE bundle_id IN (?) ORDER BY bundle_id, position`,
		bundleIDs,
	)
	if err != nil {
		return err
	}
	var rows []memberRow
	if err := r.DB.SelectContext(ctx, &rows, r.DB.Rebind(query), args...); err != nil {
		return err
	}
	for _, row := range rows {
		i := index[row.BundleID]
		products[i].MemberIDs = append(products[i].MemberIDs, row.ProductID)
	}
	return nil
}

func (r *PGRepository) ReplaceMembers(ctx context.Context, bundleID string, memberIDs []string) error {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM bundle_members WHERE bundle_id = ?`), bundleID); err != nil {
		return err
	}
	if err := insertMembers(ctx, tx, bundleID, memberIDs); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *PGRepository) Delete(ctx context.Context, id string) error {
	// Membership rows on both sides go through ON DELETE CASCADE.
	res, err := r.DB.ExecContext(ctx, r.DB.Rebind("DELETE FROM products WHERE id = ?"), id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrProductNotFound
	}
	return nil
}
