package migrate_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/library-backend/pkg/migrate"
)

func TestMigrationsDirIsValid(t *testing.T) {
	require.NoError(t, migrate.ValidateDir("migrations"))
}

func TestLoansMigrationHasPartialUniqueIndex(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_borrowers_and_loans.sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	content := string(data)

	for _, sub := range []string{
		"CREATE TABLE IF NOT EXISTS borrowers",
		"CREATE TABLE IF NOT EXISTS loans",
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_loans_outstanding",
		"WHERE status = 'outstanding'",
		"CHECK (fine_balance >= 0)",
	} {
		assert.Contains(t, content, sub)
	}
}

func TestBooksMigrationBoundsAvailability(t *testing.T) {
	matches, err := filepath.Glob(filepath.Join("migrations", "*_create_books.sql"))
	require.NoError(t, err)
	require.Len(t, matches, 1)

	data, err := os.ReadFile(matches[0])
	require.NoError(t, err)
	assert.Contains(t, string(data), "available_quantity >= 0 AND available_quantity <= quantity")
}

func TestValidateDirRejectsBadFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	assert.Error(t, migrate.ValidateDir(dir))

	dir = t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20250101000000_x.sql"), []byte("-- +goose Up\n"), 0o644))
	assert.Error(t, migrate.ValidateDir(dir))

	assert.Error(t, migrate.ValidateDir(t.TempDir()))
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	path, err := migrate.CreateSQLMigration(dir, "Add Holds Table")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_add_holds_table.sql"))
	require.NoError(t, migrate.ValidateDir(dir))

	_, err = migrate.CreateSQLMigration(dir, "!!!")
	assert.Error(t, err)
}

func TestAutoMigrateBuildsSQLiteSchema(t *testing.T) {
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "auto.db")), &gorm.Config{})
	require.NoError(t, err)

	require.NoError(t, migrate.AutoMigrate(context.Background(), conn))
	for _, table := range []string{"users", "books", "borrowers", "loans", "librarians", "digital_content", "content_reviews", "content_downloads"} {
		assert.True(t, conn.Migrator().HasTable(table), table)
	}
}
