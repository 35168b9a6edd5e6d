package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arturoeanton/go-rag-pgvector/internal/domain"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &PostgresStore{db: db}, mock
}

func testChunks(n int) []domain.Chunk {
	chunks := make([]domain.Chunk, n)
	for i := range chunks {
		chunks[i] = domain.Chunk{
			Index:      i,
			Content:    "chunk content",
			StartChar:  i * 10,
			EndChar:    i*10 + 10,
			TokenCount: 3,
			Embedding:  []float32{0.5, 1},
		}
	}
	return chunks
}

func TestSaveDocument(t *testing.T) {
	pg, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO documents").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("doc-123"))
	prep := mock.ExpectPrepare("INSERT INTO chunks")
	for range testChunks(2) {
		prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()

	id, err := pg.SaveDocument(context.Background(), &domain.Document{
		Title: "Doc", Source: "doc.md", Content: "body",
	}, testChunks(2))
	require.NoError(t, err)
	assert.Equal(t, "doc-123", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveDocument_ChunkInsertFailureRollsBack(t *testing.T) {
	pg, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO documents").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("doc-123"))
	prep := mock.ExpectPrepare("INSERT INTO chunks")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	prep.ExpectExec().WillReturnError(errors.New("value too long"))
	mock.ExpectRollback()

	_, err := pg.SaveDocument(context.Background(), &domain.Document{
		Title: "Doc", Source: "doc.md", Content: "body",
	}, testChunks(5))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.Contains(t, err.Error(), "insert chunk 2")

	// Nothing of the document is visible after the rollback.
	mock.ExpectQuery("SELECT (.+) FROM documents").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "source", "content", "metadata", "created_at", "updated_at"}))
	_, err = pg.GetDocument(context.Background(), "doc-123")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveDocument_DocumentInsertFailureRollsBack(t *testing.T) {
	pg, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO documents").
		WillReturnError(errors.New("duplicate key value violates unique constraint"))
	mock.ExpectRollback()

	_, err := pg.SaveDocument(context.Background(), &domain.Document{
		Title: "Doc", Source: "doc.md", Content: "body",
	}, testChunks(1))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDocumentChunks_OrderedWithEmbeddings(t *testing.T) {
	pg, mock := newMockStore(t)

	columns := []string{"id", "document_id", "chunk_index", "content",
		"start_char", "end_char", "token_count", "metadata", "embedding"}
	mock.ExpectQuery(`(?s)FROM chunks.*ORDER BY chunk_index`).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow("c0", "doc-123", 0, "first", 0, 5, 2, []byte(`{"source":"doc.md"}`), "[0.5,1]").
			AddRow("c1", "doc-123", 1, "second", 5, 11, 2, []byte(`{}`), "[0.25,2]").
			AddRow("c2", "doc-123", 2, "third", 11, 16, 2, []byte(`{}`), ""))

	chunks, err := pg.GetDocumentChunks(context.Background(), "doc-123")
	require.NoError(t, err)
	require.Len(t, chunks, 3)

	for i, c := range chunks {
		assert.Equal(t, i, c.Index)
	}
	assert.Equal(t, []float32{0.5, 1}, chunks[0].Embedding)
	assert.Equal(t, []float32{0.25, 2}, chunks[1].Embedding)
	assert.Nil(t, chunks[2].Embedding)
	assert.Equal(t, "doc.md", chunks[0].Metadata["source"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetDocument(t *testing.T) {
	pg, mock := newMockStore(t)

	now := time.Now()
	mock.ExpectQuery("SELECT (.+) FROM documents").
		WillReturnRows(sqlmock.NewRows([]string{"id", "title", "source", "content", "metadata", "created_at", "updated_at"}).
			AddRow("doc-123", "Doc", "doc.md", "body", []byte(`{"file_type":"md"}`), now, now))

	doc, err := pg.GetDocument(context.Background(), "doc-123")
	require.NoError(t, err)
	assert.Equal(t, "Doc", doc.Title)
	assert.Equal(t, "md", doc.Metadata["file_type"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAll_ChunksBeforeDocuments(t *testing.T) {
	pg, mock := newMockStore(t)

	// Ordered expectations: chunks must go first or the FK would block.
	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM chunks").WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec("DELETE FROM documents").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, pg.DeleteAll(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteAll_FailureRollsBack(t *testing.T) {
	pg, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM chunks").WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := pg.DeleteAll(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStorage)
	assert.NoError(t, mock.ExpectationsWereMet())
}
