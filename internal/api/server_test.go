package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestServer(t *testing.T) (*Server, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewServer(mock, zap.NewNop()), mock
}

func postSQL(t *testing.T, srv *Server, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/tools/run_sql", strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealthOK(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestRunSQLReturnsRows(t *testing.T) {
	t.Parallel()

	srv, mock := newTestServer(t)
	mock.ExpectQuery(`SELECT name FROM materials ORDER BY name LIMIT 200`).
		WillReturnRows(pgxmock.NewRows([]string{"name"}).AddRow("elastane").AddRow("nylon"))

	rec := postSQL(t, srv, `{"sql": "SELECT name FROM materials ORDER BY name"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Rows     []map[string]any `json:"rows"`
		RowCount int              `json:"row_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.RowCount)
	require.Len(t, resp.Rows, 2)
	assert.Equal(t, "elastane", resp.Rows[0]["name"])
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunSQLKeepsExplicitLimit(t *testing.T) {
	t.Parallel()

	srv, mock := newTestServer(t)
	mock.ExpectQuery(`SELECT url FROM products LIMIT 5`).
		WillReturnRows(pgxmock.NewRows([]string{"url"}))

	rec := postSQL(t, srv, `{"sql": "SELECT url FROM products LIMIT 5"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunSQLBindsNamedParams(t *testing.T) {
	t.Parallel()

	srv, mock := newTestServer(t)
	mock.ExpectQuery(`SELECT id FROM materials WHERE name = @name LIMIT 200`).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(int64(3)))

	rec := postSQL(t, srv, `{"sql": "SELECT id FROM materials WHERE name = @name", "params": {"name": "nylon"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRunSQLRejectsMutations(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)
	for _, sql := range []string{
		`DELETE FROM products`,
		`DROP TABLE reviews`,
		`SELECT 1; DELETE FROM products`,
		`WITH x AS (SELECT 1) INSERT INTO materials (name) SELECT 'x'`,
	} {
		rec := postSQL(t, srv, `{"sql": `+mustJSON(t, sql)+`}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code, sql)
	}
}

func TestRunSQLRejectsEmptyAndMalformed(t *testing.T) {
	t.Parallel()

	srv, _ := newTestServer(t)

	rec := postSQL(t, srv, `{"sql": "   "}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = postSQL(t, srv, `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunSQLHonorsRequestedLimit(t *testing.T) {
	t.Parallel()

	srv, mock := newTestServer(t)
	mock.ExpectQuery(`SELECT url FROM products LIMIT 10`).
		WillReturnRows(pgxmock.NewRows([]string{"url"}))

	rec := postSQL(t, srv, `{"sql": "SELECT url FROM products", "limit": 10}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSanitizeQueryAllowsCTE(t *testing.T) {
	t.Parallel()

	got, err := sanitizeQuery("WITH top AS (SELECT material_id FROM product_materials) SELECT * FROM top", 0)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(got, "LIMIT 200"))
}

func mustJSON(t *testing.T, s string) string {
	t.Helper()
	b, err := json.Marshal(s)
	require.NoError(t, err)
	return string(b)
}
