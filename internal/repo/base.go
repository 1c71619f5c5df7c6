package repo

import (
	"context"
	"strings"

	"github.com/angelmondragon/library-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Base provides a shared foundation for domain repositories.
type Base struct {
	db *gorm.DB
}

// NewBase constructs a Base repository backed by the provided GORM connection.
func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the GORM connection bound to the supplied context (if any).
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// WithTx returns a copy of the base bound to tx.
func (b Base) WithTx(tx *gorm.DB) Base {
	return Base{db: tx}
}

// Paginate applies page-based offset and limit to q.
func Paginate(q *gorm.DB, p pagination.Params) *gorm.DB {
	n := p.Normalize()
	return q.Offset(n.Offset()).Limit(n.Limit)
}

// OrderBy turns a "field" / "-field" sort key into an ORDER BY clause.
// Keys missing from columns fall back to fallback, which uses the same syntax.
func OrderBy(sortBy string, columns map[string]string, fallback string) string {
	if clause, ok := orderClause(sortBy, columns); ok {
		return clause
	}
	clause, _ := orderClause(fallback, columns)
	return clause
}

func orderClause(sortBy string, columns map[string]string) (string, bool) {
	key := strings.TrimSpace(sortBy)
	dir := "ASC"
	if strings.HasPrefix(key, "-") {
		dir = "DESC"
		key = key[1:]
	}
	column, ok := columns[key]
	if !ok {
		return "", false
	}
	return column + " " + dir, true
}

// ContainsPattern builds a case-insensitive LIKE pattern with wildcards escaped.
func ContainsPattern(value string) string {
	replacer := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + replacer.Replace(strings.ToLower(strings.TrimSpace(value))) + "%"
}

// Like returns a case-insensitive LIKE predicate on column for use with
// ContainsPattern.
func Like(column string) string {
	return "LOWER(" + column + `) LIKE ? ESCAPE '\'`
}
