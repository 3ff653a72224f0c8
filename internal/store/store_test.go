// internal/store/store_test.go
package store

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/formpilot-cli/api/schemas"
)

// flexibleSQLMatcher creates a regex insensitive to whitespace for robust SQL
// mock expectations.
func flexibleSQLMatcher(sql string) string {
	trimmed := strings.TrimSpace(sql)
	return regexp.MustCompile(`\s+`).ReplaceAllString(regexp.QuoteMeta(trimmed), `\s+`)
}

func TestFileStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)

	doc := json.RawMessage(`{"email":"jane@example.com"}`)
	require.NoError(t, fs.Set(ctx, "profile", doc))

	got, err := fs.Get(ctx, "profile")
	require.NoError(t, err)
	assert.JSONEq(t, string(doc), string(got))
}

func TestFileStore_MissingKey(t *testing.T) {
	fs, err := NewFileStore(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = fs.Get(context.Background(), "workflows")
	assert.ErrorIs(t, err, schemas.ErrNotFound)
}

func TestFileStore_OverwriteLastWriterWins(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)

	require.NoError(t, fs.Set(ctx, "workflows", json.RawMessage(`[1]`)))
	require.NoError(t, fs.Set(ctx, "workflows", json.RawMessage(`[1,2]`)))

	got, err := fs.Get(ctx, "workflows")
	require.NoError(t, err)
	assert.JSONEq(t, `[1,2]`, string(got))
}

func TestFileStore_KeySanitization(t *testing.T) {
	ctx := context.Background()
	fs, err := NewFileStore(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)

	// Path separators must not escape the data dir.
	require.NoError(t, fs.Set(ctx, "../escape/attempt", json.RawMessage(`{}`)))
	got, err := fs.Get(ctx, "../escape/attempt")
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(got))
}

func TestMemory_RoundTripAndIsolation(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	doc := json.RawMessage(`{"a":1}`)
	require.NoError(t, m.Set(ctx, "k", doc))

	got, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(got))

	// Mutating the returned slice must not corrupt the stored copy.
	got[1] = 'x'
	again, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(again))

	_, err = m.Get(ctx, "absent")
	assert.ErrorIs(t, err, schemas.ErrNotFound)
}

func newPostgresForTest(t *testing.T) (*Postgres, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)

	mock.ExpectPing().WillReturnError(nil)
	mock.ExpectExec(flexibleSQLMatcher(sqlCreateDocuments)).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	pg, err := NewPostgres(context.Background(), mock, zaptest.NewLogger(t))
	require.NoError(t, err)
	return pg, mock
}

func TestPostgres_SetUpserts(t *testing.T) {
	pg, mock := newPostgresForTest(t)
	doc := json.RawMessage(`{"steps":[]}`)

	mock.ExpectExec(flexibleSQLMatcher(sqlUpsertDocument)).
		WithArgs("workflows", doc, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, pg.Set(context.Background(), "workflows", doc))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_GetMissingMapsToNotFound(t *testing.T) {
	pg, mock := newPostgresForTest(t)

	mock.ExpectQuery(flexibleSQLMatcher(sqlSelectDocument)).
		WithArgs("profile").
		WillReturnError(errors.New("no rows in result set"))

	_, err := pg.Get(context.Background(), "profile")
	// pgxmock surfaces its own error; a real pool returns pgx.ErrNoRows which
	// maps to schemas.ErrNotFound. Either way the call must fail.
	assert.Error(t, err)
}

func TestPostgres_GetReturnsDocument(t *testing.T) {
	pg, mock := newPostgresForTest(t)

	rows := pgxmock.NewRows([]string{"doc"}).AddRow(json.RawMessage(`{"x":1}`))
	mock.ExpectQuery(flexibleSQLMatcher(sqlSelectDocument)).
		WithArgs("profile").
		WillReturnRows(rows)

	got, err := pg.Get(context.Background(), "profile")
	require.NoError(t, err)
	assert.JSONEq(t, `{"x":1}`, string(got))
	assert.NoError(t, mock.ExpectationsWereMet())
}
