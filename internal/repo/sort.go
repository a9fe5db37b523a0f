package repo

import (
	"fmt"
	"strings"
)

// sortColumns is the allow-list for caller-supplied sort keys. Anything not
// in here never reaches an ORDER BY clause.
var sortColumns = map[string]string{
	"id":         "c.id",
	"date":       "c.date",
	"title":      "c.title",
	"severity":   "c.severity",
	"status":     "c.status",
	"speciality": "s.name",
}

// orderBy resolves a caller-supplied sort key and direction against the
// allow-list, falling back to the query's defaults when unset.
func orderBy(sortBy, sortOrder, defaultBy, defaultOrder string) (string, error) {
	col := sortColumns[defaultBy]
	if sortBy != "" {
		c, ok := sortColumns[strings.ToLower(sortBy)]
		if !ok {
			return "", fmt.Errorf("invalid sort column %q", sortBy)
		}
		col = c
	}
	dir := strings.ToUpper(defaultOrder)
	if sortOrder != "" {
		switch strings.ToLower(sortOrder) {
		case "asc":
			dir = "ASC"
		case "desc":
			dir = "DESC"
		default:
			return "", fmt.Errorf("invalid sort order %q", sortOrder)
		}
	}
	if col == "c.id" {
		return fmt.Sprintf("ORDER BY c.id %s", dir), nil
	}
	// Tie-break on id so join duplicates arrive grouped and dedup picks a
	// stable representative.
	return fmt.Sprintf("ORDER BY %s %s, c.id %s", col, dir, dir), nil
}
