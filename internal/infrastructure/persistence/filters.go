package persistence

import (
	"regexp"
	"strings"

	"gorm.io/gorm"

	"github.com/truthsource/backend/internal/domain/shared"
)

// columnPattern rejects anything that is not a plain column reference, so
// caller-supplied OrderBy values can never smuggle SQL into the query.
var columnPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// applyFilter adds ordering and pagination from the filter
func applyFilter(query *gorm.DB, filter shared.Filter, defaultOrder string) *gorm.DB {
	query = applyOrder(query, filter, defaultOrder)
	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset((filter.Page - 1) * filter.PageSize).Limit(filter.PageSize)
	}
	return query
}

func applyOrder(query *gorm.DB, filter shared.Filter, defaultOrder string) *gorm.DB {
	if filter.OrderBy != "" && columnPattern.MatchString(filter.OrderBy) {
		dir := "ASC"
		if strings.EqualFold(filter.OrderDir, "desc") {
			dir = "DESC"
		}
		return query.Order(filter.OrderBy + " " + dir)
	}
	if defaultOrder != "" {
		return query.Order(defaultOrder)
	}
	return query
}

// applySearch adds a case-insensitive LIKE across the given columns
func applySearch(query *gorm.DB, filter shared.Filter, columns ...string) *gorm.DB {
	if filter.Search == "" || len(columns) == 0 {
		return query
	}
	pattern := "%" + escapeLike(filter.Search) + "%"
	clauses := make([]string, len(columns))
	args := make([]interface{}, len(columns))
	for i, col := range columns {
		clauses[i] = col + " ILIKE ?"
		args[i] = pattern
	}
	return query.Where(strings.Join(clauses, " OR "), args...)
}

func escapeLike(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, "%", `\%`)
	return strings.ReplaceAll(s, "_", `\_`)
}
