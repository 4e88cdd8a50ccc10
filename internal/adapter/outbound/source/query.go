package source

import (
	"fmt"
	"strings"
	"time"
)

// Query placeholders understood by the connector.
const (
	placeholderOffset = "{{offset}}"
	placeholderLimit  = "{{limit}}"
)

// SubstituteParams replaces {{name}} placeholders with their values. String
// values are escaped by doubling single quotes before substitution.
func SubstituteParams(query string, params map[string]string) string {
	for name, value := range params {
		placeholder := "{{" + name + "}}"
		query = strings.ReplaceAll(query, placeholder, escapeValue(value))
	}
	return query
}

func escapeValue(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}

// AppendPagination produces the query for one page. Templates carrying
// {{offset}}/{{limit}} placeholders get them substituted in place; otherwise a
// dialect pagination clause is appended.
func AppendPagination(dialect string, query string, limit, offset int) string {
	if strings.Contains(query, placeholderOffset) || strings.Contains(query, placeholderLimit) {
		query = strings.ReplaceAll(query, placeholderOffset, fmt.Sprintf("%d", offset))
		query = strings.ReplaceAll(query, placeholderLimit, fmt.Sprintf("%d", limit))
		return query
	}

	if dialect == "sqlserver" {
		// OFFSET..FETCH requires an ORDER BY clause.
		if findKeyword(maskDepth0(query), "ORDER BY") < 0 {
			query += " ORDER BY (SELECT NULL)"
		}
		return fmt.Sprintf("%s OFFSET %d ROWS FETCH NEXT %d ROWS ONLY", query, offset, limit)
	}

	return fmt.Sprintf("%s LIMIT %d OFFSET %d", query, limit, offset)
}

// BuildCountQuery derives a row-count query from the configured template.
// Pagination and trailing ORDER BY clauses are stripped; a leading
// common-table-expression prologue is kept outside the wrap because not every
// vendor accepts WITH inside a subquery.
func BuildCountQuery(query string) string {
	stripped := StripPagination(query)

	masked := maskDepth0(stripped)
	if strings.HasPrefix(strings.TrimSpace(masked), "WITH") {
		if selectPos := findKeyword(masked, "SELECT"); selectPos >= 0 {
			prologue := stripped[:selectPos]
			body := stripped[selectPos:]
			return fmt.Sprintf("%sSELECT COUNT(*) AS total FROM (%s) AS _count", prologue, body)
		}
	}

	return fmt.Sprintf("SELECT COUNT(*) AS total FROM (%s) AS _count", stripped)
}

// StripPagination removes the trailing ORDER BY and pagination clauses
// (including {{offset}}/{{limit}} placeholders) from a query.
func StripPagination(query string) string {
	masked := maskDepth0(query)

	cut := len(query)
	for _, keyword := range []string{"ORDER BY", "LIMIT", "OFFSET"} {
		if pos := findKeyword(masked, keyword); pos >= 0 && pos < cut {
			cut = pos
		}
	}

	return strings.TrimSpace(query[:cut])
}

// AppendWatermark rewrites the query with an updated_at > <watermark> predicate,
// joined with AND when a top-level WHERE already exists. The predicate is
// inserted ahead of any GROUP BY, ORDER BY or pagination clause.
func AppendWatermark(query string, watermark time.Time) string {
	masked := maskDepth0(query)

	insert := len(query)
	for _, keyword := range []string{"GROUP BY", "ORDER BY", "LIMIT", "OFFSET"} {
		if pos := findKeyword(masked, keyword); pos >= 0 && pos < insert {
			insert = pos
		}
	}

	connective := "WHERE"
	if wherePos := findKeyword(masked, "WHERE"); wherePos >= 0 && wherePos < insert {
		connective = "AND"
	}

	predicate := fmt.Sprintf("%s updated_at > '%s' ", connective,
		watermark.UTC().Format("2006-01-02 15:04:05.000000"))

	head := query[:insert]
	if !strings.HasSuffix(head, " ") && head != "" {
		head += " "
	}

	return strings.TrimSpace(head + predicate + query[insert:])
}

// BuildKeyLookup wraps the configured query to select the single row whose key
// field matches the given value.
func BuildKeyLookup(query, keyField, key string) string {
	inner := StripPagination(query)
	return fmt.Sprintf("SELECT * FROM (%s) AS src WHERE %s = '%s'", inner, keyField, escapeValue(key))
}

// maskDepth0 returns an uppercased copy of the query where string literals and
// everything inside parentheses is blanked out, so keyword searches only see
// the top level of the statement.
func maskDepth0(query string) string {
	masked := make([]byte, len(query))
	depth := 0
	inString := false

	for i := 0; i < len(query); i++ {
		c := query[i]
		masked[i] = ' '

		if inString {
			if c == '\'' {
				inString = false
			}
			continue
		}

		switch {
		case c == '\'':
			inString = true
		case c == '(':
			depth++
		case c == ')':
			if depth > 0 {
				depth--
			}
		case depth == 0:
			if c >= 'a' && c <= 'z' {
				masked[i] = c - 32
			} else {
				masked[i] = c
			}
		}
	}

	return string(masked)
}

// findKeyword returns the index of the first word-boundary occurrence of the
// keyword in a masked query, or -1.
func findKeyword(masked, keyword string) int {
	for start := 0; start < len(masked); {
		pos := strings.Index(masked[start:], keyword)
		if pos < 0 {
			return -1
		}
		pos += start

		beforeOK := pos == 0 || !isWordByte(masked[pos-1])
		end := pos + len(keyword)
		afterOK := end >= len(masked) || !isWordByte(masked[end])
		if beforeOK && afterOK {
			return pos
		}
		start = pos + 1
	}
	return -1
}

func isWordByte(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}
