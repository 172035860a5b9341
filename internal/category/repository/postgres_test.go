package repository

import (
	"context"
	"testing"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/category/dto"
	"github.com/fekuna/omnipos-catalog-service/internal/database"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := database.NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, database.Migrate(context.Background(), db))
	return db
}

func newCategory(id, name string, parentID *string) *model.Category {
	now := time.Now().UTC().Truncate(time.Second)
	return &model.Category{
		BaseModel: model.BaseModel{ID: id, CreatedAt: now, UpdatedAt: now},
		ParentID:  parentID,
		Name:      name,
	}
}

func ptr(s string) *string { return &s }

func TestPGRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("CreateAndFindByID", func(t *testing.T) {
		repo := NewPGRepository(newTestDB(t))

		require.NoError(t, repo.Create(ctx, newCategory("root", "Electronics", nil)))
		require.NoError(t, repo.Create(ctx, newCategory("phones", "Phones", ptr("root"))))

		got, err := repo.FindByID(ctx, "phones")
		require.NoError(t, err)
		require.Equal(t, "Phones", got.Name)
		require.NotNil(t, got.ParentID)
		require.Equal(t, "root", *got.ParentID)

		root, err := repo.FindByID(ctx, "root")
		require.NoError(t, err)
		require.True(t, root.IsRoot())
	})

	t.Run("FindByID_NotFound", func(t *testing.T) {
		repo := NewPGRepository(newTestDB(t))
		_, err := repo.FindByID(ctx, "missing")
		require.ErrorIs(t, err, model.ErrCategoryNotFound)
	})

	t.Run("Create_RejectsUnknownParent", func(t *testing.T) {
		repo := NewPGRepository(newTestDB(t))
		err := repo.Create(ctx, newCategory("orphan", "Orphan", ptr("ghost")))
		require.Error(t, err)
	})

	t.Run("FindAll_FiltersAndPages", func(t *testing.T) {
		repo := NewPGRepository(newTestDB(t))
		require.NoError(t, repo.Create(ctx, newCategory("root", "Root", nil)))
		require.NoError(t, repo.Create(ctx, newCategory("other", "Other root", nil)))
		for _, name := range []string{"c", "a", "b"} {
			require.NoError(t, repo.Create(ctx, newCategory("child-"+name, name, ptr("root"))))
		}

		all, count, err := repo.FindAll(ctx, nil)
		require.NoError(t, err)
		require.Equal(t, 5, count)
		require.Len(t, all, 5)

		roots, count, err := repo.FindAll(ctx, &dto.CategoryFilters{ParentID: ptr("")})
		require.NoError(t, err)
		require.Equal(t, 2, count)
		require.Len(t, roots, 2)

		page, count, err := repo.FindAll(ctx, &dto.CategoryFilters{ParentID: ptr("root"), Page: 2, PageSize: 2})
		require.NoError(t, err)
		require.Equal(t, 3, count)
		require.Len(t, page, 1)
		require.Equal(t, "c", page[0].Name)
	})

	t.Run("Update_MovesCategory", func(t *testing.T) {
		repo := NewPGRepository(newTestDB(t))
		require.NoError(t, repo.Create(ctx, newCategory("a", "A", nil)))
		require.NoError(t, repo.Create(ctx, newCategory("b", "B", nil)))

		moved := newCategory("b", "B renamed", ptr("a"))
		require.NoError(t, repo.Update(ctx, moved))

		got, err := repo.FindByID(ctx, "b")
		require.NoError(t, err)
		require.Equal(t, "B renamed", got.Name)
		require.Equal(t, "a", *got.ParentID)

		err = repo.Update(ctx, newCategory("missing", "x", nil))
		require.ErrorIs(t, err, model.ErrCategoryNotFound)
	})

	t.Run("Delete_CascadesToDescendantsAndProducts", func(t *testing.T) {
		db := newTestDB(t)
		repo := NewPGRepository(db)
		require.NoError(t, repo.Create(ctx, newCategory("root", "Root", nil)))
		require.NoError(t, repo.Create(ctx, newCategory("mid", "Mid", ptr("root"))))
		require.NoError(t, repo.Create(ctx, newCategory("leaf", "Leaf", ptr("mid"))))
		require.NoError(t, repo.Create(ctx, newCategory("keep", "Keep", nil)))

		now := time.Now().UTC()
		_, err := db.ExecContext(ctx, `INSERT INTO products (id, kind, title, category_id, price, created_at, updated_at)
			VALUES ('p-leaf', 'simple', 'Leaf product', 'leaf', '9.99', ?, ?),
			       ('p-keep', 'simple', 'Kept product', 'keep', '1.00', ?, ?)`, now, now, now, now)
		require.NoError(t, err)

		require.NoError(t, repo.Delete(ctx, "root"))

		var remaining []string
		require.NoError(t, db.SelectContext(ctx, &remaining, `SELECT id FROM categories ORDER BY id`))
		require.Equal(t, []string{"keep"}, remaining)

		var products []string
		require.NoError(t, db.SelectContext(ctx, &products, `SELECT id FROM products ORDER BY id`))
		require.Equal(t, []string{"p-keep"}, products)

		require.ErrorIs(t, repo.Delete(ctx, "root"), model.ErrCategoryNotFound)
	})
}
