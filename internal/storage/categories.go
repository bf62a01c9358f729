package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"monea/internal/core"
)

const categoryColumns = `id, user_id, parent_id, name, type, icon, color, is_system, is_hidden, display_order`

func scanCategory(row interface{ Scan(...any) error }) (core.Category, error) {
	var c core.Category
	err := row.Scan(&c.ID, &c.UserID, &c.ParentID, &c.Name, &c.Type,
		&c.Icon, &c.Color, &c.IsSystem, &c.IsHidden, &c.DisplayOrder)
	return c, err
}

func (r *Repository) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO categories (user_id, parent_id, name, type, icon, color, display_order)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		c.UserID, c.ParentID, c.Name, c.Type, c.Icon, c.Color, c.DisplayOrder)
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Category{}, fmt.Errorf("create category id: %w", err)
	}
	return r.GetCategory(ctx, c.UserID, id)
}

// GetCategory returns the user's category or a shared system one.
func (r *Repository) GetCategory(ctx context.Context, userID, id int64) (core.Category, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+categoryColumns+` FROM categories WHERE id = ? AND user_id IN (0, ?)`, id, userID)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.ErrNotFound
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

func (r *Repository) ListCategories(ctx context.Context, userID int64, categoryType core.CategoryType) ([]core.Category, error) {
	query := `SELECT ` + categoryColumns + ` FROM categories WHERE user_id IN (0, ?) AND is_hidden = 0`
	args := []any{userID}
	if categoryType != "" {
		query += ` AND type = ?`
		args = append(args, categoryType)
	}
	query += ` ORDER BY display_order, name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (r *Repository) UpdateCategory(ctx context.Context, c core.Category) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE categories SET parent_id = ?, name = ?, icon = ?, color = ?, is_hidden = ?, display_order = ?
		WHERE id = ? AND user_id = ? AND is_system = 0`,
		c.ParentID, c.Name, c.Icon, c.Color, boolToInt(c.IsHidden), c.DisplayOrder, c.ID, c.UserID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// DeleteCategory removes a user category; transactions keep the stale id and
// surface as uncategorized. System categories cannot be deleted.
func (r *Repository) DeleteCategory(ctx context.Context, userID, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM categories WHERE id = ? AND user_id = ? AND is_system = 0`, id, userID)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return core.ErrNotFound
	}
	return nil
}
