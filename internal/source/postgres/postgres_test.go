package postgres

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"record-linkage/internal/fileio"
	"record-linkage/internal/linkage/model"
)

func TestQuery_Build(t *testing.T) {
	q := Query{
		Table:   "blue.usm3",
		ID:      "id",
		Column:  "sss",
		Field:   "sss",
		Prefix:  "AB",
		Null:    []string{"sid"},
		NotNull: []string{"rid"},
	}
	query, args := q.Build()

	assert.Contains(t, query, "SELECT id AS id, sss AS value")
	assert.Contains(t, query, "FROM blue.usm3")
	assert.Contains(t, query, "sss LIKE $1")
	assert.Contains(t, query, "sid IS NULL")
	assert.Contains(t, query, "rid IS NOT NULL")
	assert.Equal(t, []any{"AB%"}, args)
}

func TestToTable(t *testing.T) {
	q := Query{Table: "blue.supplier", Field: "sss"}
	tab := toTable(q, []row{
		{ID: "10", Value: sql.NullString{String: "Acme", Valid: true}},
		{ID: "11"},
	})

	assert.Equal(t, []string{"id", "sss"}, tab.Header)
	c, err := fileio.ToCollection(tab, model.SourceB, model.DefaultFields())
	require.NoError(t, err)
	assert.Equal(t, []string{"blue.supplier0", "blue.supplier1"}, c.IDs())
	r, _ := c.Get("blue.supplier1")
	assert.Equal(t, "11", r.Raw["id"])
	assert.Equal(t, "", r.Fields["sss"])
}

func TestDSN(t *testing.T) {
	assert.Equal(t,
		`host=db port=5432 dbname=blue user=app password='it\'s' sslmode=disable`,
		DSN("db", 5432, "blue", "app", "it's", "disable"))
}
