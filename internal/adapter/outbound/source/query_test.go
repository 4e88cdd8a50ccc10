package source

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubstituteParams(t *testing.T) {
	query := "SELECT * FROM orders WHERE region = '{{region}}'"
	got := SubstituteParams(query, map[string]string{"region": "eu-west"})
	assert.Equal(t, "SELECT * FROM orders WHERE region = 'eu-west'", got)
}

func TestSubstituteParams_EscapesQuotes(t *testing.T) {
	query := "SELECT * FROM orders WHERE name = '{{name}}'"
	got := SubstituteParams(query, map[string]string{"name": "O'Brien"})
	assert.Equal(t, "SELECT * FROM orders WHERE name = 'O''Brien'", got)
}

func TestAppendPagination_Placeholders(t *testing.T) {
	query := "SELECT id, title FROM docs ORDER BY id LIMIT {{limit}} OFFSET {{offset}}"
	got := AppendPagination("postgres", query, 100, 200)
	assert.Equal(t, "SELECT id, title FROM docs ORDER BY id LIMIT 100 OFFSET 200", got)
}

func TestAppendPagination_AppendsClause(t *testing.T) {
	got := AppendPagination("mysql", "SELECT id FROM docs ORDER BY id", 50, 100)
	assert.Equal(t, "SELECT id FROM docs ORDER BY id LIMIT 50 OFFSET 100", got)
}

func TestAppendPagination_SQLServer(t *testing.T) {
	got := AppendPagination("sqlserver", "SELECT id FROM docs ORDER BY id", 50, 100)
	assert.Equal(t, "SELECT id FROM docs ORDER BY id OFFSET 100 ROWS FETCH NEXT 50 ROWS ONLY", got)
}

func TestAppendPagination_SQLServerAddsOrderBy(t *testing.T) {
	got := AppendPagination("sqlserver", "SELECT id FROM docs", 50, 0)
	assert.Equal(t, "SELECT id FROM docs ORDER BY (SELECT NULL) OFFSET 0 ROWS FETCH NEXT 50 ROWS ONLY", got)
}

func TestStripPagination(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{
			name:  "strips limit offset",
			query: "SELECT id FROM docs LIMIT 100 OFFSET 0",
			want:  "SELECT id FROM docs",
		},
		{
			name:  "strips placeholders with their clause",
			query: "SELECT id FROM docs LIMIT {{limit}} OFFSET {{offset}}",
			want:  "SELECT id FROM docs",
		},
		{
			name:  "strips trailing order by",
			query: "SELECT id FROM docs ORDER BY id LIMIT 10",
			want:  "SELECT id FROM docs",
		},
		{
			name:  "keeps order by inside subquery",
			query: "SELECT * FROM (SELECT id FROM docs ORDER BY id) AS q",
			want:  "SELECT * FROM (SELECT id FROM docs ORDER BY id) AS q",
		},
		{
			name:  "keeps limit inside string literal",
			query: "SELECT id FROM docs WHERE note = 'no LIMIT here'",
			want:  "SELECT id FROM docs WHERE note = 'no LIMIT here'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StripPagination(tt.query))
		})
	}
}

func TestBuildCountQuery(t *testing.T) {
	got := BuildCountQuery("SELECT id, title FROM docs ORDER BY id LIMIT {{limit}} OFFSET {{offset}}")
	assert.Equal(t, "SELECT COUNT(*) AS total FROM (SELECT id, title FROM docs) AS _count", got)
}

func TestBuildCountQuery_CTE(t *testing.T) {
	query := "WITH active AS (SELECT * FROM docs WHERE enabled) SELECT id FROM active ORDER BY id"
	got := BuildCountQuery(query)
	assert.Equal(t,
		"WITH active AS (SELECT * FROM docs WHERE enabled) SELECT COUNT(*) AS total FROM (SELECT id FROM active) AS _count",
		got)
}

func TestAppendWatermark_AddsWhere(t *testing.T) {
	watermark := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	got := AppendWatermark("SELECT id FROM docs", watermark)
	assert.Equal(t, "SELECT id FROM docs WHERE updated_at > '2026-03-01 12:00:00.000000'", got)
}

func TestAppendWatermark_AppendsAnd(t *testing.T) {
	watermark := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	got := AppendWatermark("SELECT id FROM docs WHERE enabled = true", watermark)
	assert.Equal(t, "SELECT id FROM docs WHERE enabled = true AND updated_at > '2026-03-01 12:00:00.000000'", got)
}

func TestAppendWatermark_BeforeOrderBy(t *testing.T) {
	watermark := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	got := AppendWatermark("SELECT id FROM docs ORDER BY id", watermark)
	assert.Equal(t, "SELECT id FROM docs WHERE updated_at > '2026-03-01 12:00:00.000000' ORDER BY id", got)
}

func TestAppendWatermark_SubqueryWhereIgnored(t *testing.T) {
	watermark := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	got := AppendWatermark("SELECT * FROM (SELECT id FROM docs WHERE enabled) AS q", watermark)
	assert.Equal(t,
		"SELECT * FROM (SELECT id FROM docs WHERE enabled) AS q WHERE updated_at > '2026-03-01 12:00:00.000000'",
		got)
}

func TestBuildKeyLookup(t *testing.T) {
	got := BuildKeyLookup("SELECT id, title FROM docs ORDER BY id LIMIT {{limit}} OFFSET {{offset}}", "id", "doc-7")
	assert.Equal(t, "SELECT * FROM (SELECT id, title FROM docs) AS src WHERE id = 'doc-7'", got)
}

func TestBuildKeyLookup_EscapesKey(t *testing.T) {
	got := BuildKeyLookup("SELECT id FROM docs", "id", "a'b")
	assert.Equal(t, "SELECT * FROM (SELECT id FROM docs) AS src WHERE id = 'a''b'", got)
}
