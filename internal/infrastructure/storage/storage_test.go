package storage

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EditaisScanner/internal/domain"
	"EditaisScanner/internal/ports"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { _ = mockDB.Close() })
	return sqlx.NewDb(mockDB, "postgres"), mock
}

func expectationsMet(t *testing.T, mock sqlmock.Sqlmock) {
	t.Helper()
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unfulfilled expectations: %v", err)
	}
}

func sampleEdital() domain.Edital {
	deadline := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	category := "Edital"
	return domain.Edital{
		Title:       "Edital de Seleção 2024",
		Link:        "https://example.org/editais/1",
		Description: "Inscrições até 15/03/2025",
		Deadline:    &deadline,
		PublishedAt: time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC),
		Category:    &category,
		SourceName:  "Funarte",
		CreatedAt:   time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC),
	}
}

func TestListActiveSources(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	lastRun := time.Date(2025, 1, 9, 6, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT (.+) FROM sources WHERE active = \$1 ORDER BY id`).
		WithArgs(true).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "url", "type", "active", "config", "last_scrape"}).
			AddRow(int64(1), "MinC", "https://www.gov.br/cultura/RSS", "rss", true, []byte(`{"categoria":"Cultura","headers":{"X-Key":"1"}}`), lastRun).
			AddRow(int64(2), "Broken", "https://example.org", "webpage", true, []byte(`{not json`), nil).
			AddRow(int64(3), "Bare", "https://api.example.org", "api", true, nil, nil))

	sources, err := NewSourceRepository(db, nil).ListActiveSources(context.Background())
	require.NoError(t, err)
	require.Len(t, sources, 3)

	assert.Equal(t, domain.KindFeed, sources[0].Kind)
	assert.Equal(t, "Cultura", sources[0].Config.String("categoria"))
	assert.Equal(t, map[string]string{"X-Key": "1"}, sources[0].Config.StringMap("headers"))
	require.NotNil(t, sources[0].LastRunAt)
	assert.True(t, lastRun.Equal(*sources[0].LastRunAt))

	assert.Empty(t, sources[1].Config)
	assert.Nil(t, sources[1].LastRunAt)
	assert.Empty(t, sources[2].Config)

	expectationsMet(t, mock)
}

func TestListActiveSourcesError(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT (.+) FROM sources`).WillReturnError(sql.ErrConnDone)

	_, err := NewSourceRepository(db, nil).ListActiveSources(context.Background())
	assert.ErrorIs(t, err, sql.ErrConnDone)
	expectationsMet(t, mock)
}

func TestMarkLastRun(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	at := time.Date(2025, 1, 10, 8, 0, 0, 0, time.UTC)

	mock.ExpectExec(`UPDATE sources SET last_scrape = \$1, updated_at = \$2 WHERE id = \$3`).
		WithArgs(at, at, int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewSourceRepository(db, nil).MarkLastRun(context.Background(), 7, at))
	expectationsMet(t, mock)
}

func TestExistsByLink(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	link := "https://example.org/editais/1"

	mock.ExpectQuery(`SELECT EXISTS \( SELECT 1 FROM editais WHERE link = \$1 \)`).
		WithArgs(link).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := NewPostgresRepository(db).ExistsByLink(context.Background(), link)
	require.NoError(t, err)
	assert.True(t, exists)
	expectationsMet(t, mock)
}

func TestInsert(t *testing.T) {
	t.Parallel()

	e := sampleEdital()
	testCases := []struct {
		name     string
		setup    func(mock sqlmock.Sqlmock)
		conflict bool
		wantErr  bool
	}{
		{
			name: "inserts new edital",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO editais \(nome,link,data_publicacao,data_vencimento,categoria,descricao,fonte,created_at\) VALUES (.+) ON CONFLICT \(link\) DO NOTHING`).
					WithArgs(e.Title, e.Link, e.PublishedAt, *e.Deadline, *e.Category, e.Description, e.SourceName, e.CreatedAt).
					WillReturnResult(sqlmock.NewResult(1, 1))
			},
		},
		{
			name: "no row inserted is a conflict",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO editais`).WillReturnResult(sqlmock.NewResult(0, 0))
			},
			conflict: true,
			wantErr:  true,
		},
		{
			name: "unique violation is a conflict",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO editais`).WillReturnError(&pq.Error{Code: uniqueViolation})
			},
			conflict: true,
			wantErr:  true,
		},
		{
			name: "other errors are returned",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectExec(`INSERT INTO editais`).WillReturnError(sql.ErrConnDone)
			},
			wantErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			tc.setup(mock)

			err := NewPostgresRepository(db).Insert(context.Background(), e)
			assert.Equal(t, tc.wantErr, err != nil, err)
			assert.Equal(t, tc.conflict, domain.IsConflict(err), err)
			expectationsMet(t, mock)
		})
	}
}

func TestDistinctCategories(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	mock.ExpectQuery(`SELECT DISTINCT categoria FROM editais WHERE categoria IS NOT NULL ORDER BY categoria`).
		WillReturnRows(sqlmock.NewRows([]string{"categoria"}).AddRow("Edital").AddRow("Música"))

	categories, err := NewPostgresRepository(db).DistinctCategories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Edital", "Música"}, categories)
	expectationsMet(t, mock)
}

func TestWithinSourceCommits(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	e := sampleEdital()

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT EXISTS`).WithArgs(e.Link).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(`INSERT INTO editais`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := NewTxManager(db).WithinSource(context.Background(), func(ctx context.Context, store ports.EditalStore) error {
		exists, err := store.ExistsByLink(ctx, e.Link)
		if err != nil || exists {
			return errors.New("unexpected existence check")
		}
		return store.Insert(ctx, e)
	})

	require.NoError(t, err)
	expectationsMet(t, mock)
}

func TestWithinSourceRollsBack(t *testing.T) {
	t.Parallel()

	db, mock := newMockDB(t)
	boom := errors.New("boom")

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO editais`).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectRollback()

	err := NewTxManager(db).WithinSource(context.Background(), func(ctx context.Context, store ports.EditalStore) error {
		if err := store.Insert(ctx, sampleEdital()); err != nil {
			return err
		}
		return boom
	})

	assert.ErrorIs(t, err, boom)
	expectationsMet(t, mock)
}

func TestMigrationsAreEmbedded(t *testing.T) {
	t.Parallel()

	entries, err := migrationFiles.ReadDir("migrations")
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "0001_create_sources_editais.up.sql")
	assert.Contains(t, names, "0001_create_sources_editais.down.sql")
}
