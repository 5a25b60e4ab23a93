package sink

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/example/lakehouse-shop/internal/infrastructure/kafka"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	rows []Row
	seen map[string]bool
	err  error
}

func (w *fakeWriter) Write(ctx context.Context, row Row) (bool, error) {
	if w.err != nil {
		return false, w.err
	}
	if w.seen == nil {
		w.seen = map[string]bool{}
	}
	if w.seen[row.ID] {
		return false, nil
	}
	w.seen[row.ID] = true
	w.rows = append(w.rows, row)
	return true, nil
}

var ingestTime = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestSink(w Writer) *Sink {
	s := New(w, nil)
	s.now = func() time.Time { return ingestTime }
	return s
}

// ============================================
// Handle Tests
// ============================================

func TestHandle_OrderEvent(t *testing.T) {
	w := &fakeWriter{}
	s := newTestSink(w)
	value := []byte(`{"id":"order_1700000000000","type":"order","timestamp":"2023-11-14T22:13:20Z","total":"249.99"}`)

	require.NoError(t, s.Handle(context.Background(), []byte("order_1700000000000"), value))

	require.Len(t, w.rows, 1)
	row := w.rows[0]
	assert.Equal(t, "order_1700000000000", row.ID)
	assert.Equal(t, "order", row.Type)
	require.NotNil(t, row.EventTime)
	assert.Equal(t, time.UnixMilli(1_700_000_000_000).UTC(), *row.EventTime)
	assert.Equal(t, value, row.Payload)
	assert.Equal(t, ingestTime, row.IngestTime)
	assert.Equal(t, Stats{Inserted: 1}, s.Stats())
}

func TestHandle_NaiveTimestamp(t *testing.T) {
	w := &fakeWriter{}
	s := newTestSink(w)

	require.NoError(t, s.Handle(context.Background(), nil, []byte(`{"id":"e1","type":"click","timestamp":"2025-03-01T10:20:30.123456"}`)))

	require.NotNil(t, w.rows[0].EventTime)
	assert.Equal(t, time.Date(2025, 3, 1, 10, 20, 30, 123456000, time.UTC), *w.rows[0].EventTime)
}

func TestHandle_BadTimestampStillStored(t *testing.T) {
	w := &fakeWriter{}
	s := newTestSink(w)

	require.NoError(t, s.Handle(context.Background(), nil, []byte(`{"id":"e1","timestamp":"yesterday"}`)))

	require.Len(t, w.rows, 1)
	assert.Nil(t, w.rows[0].EventTime)
}

func TestHandle_IDFallbacks(t *testing.T) {
	w := &fakeWriter{}
	s := newTestSink(w)
	ctx := context.Background()

	require.NoError(t, s.Handle(ctx, nil, []byte(`{"id":42,"type":"view"}`)))
	require.NoError(t, s.Handle(ctx, []byte("from-key"), []byte(`{"type":"view"}`)))

	require.Len(t, w.rows, 2)
	assert.Equal(t, "42", w.rows[0].ID)
	assert.Equal(t, "from-key", w.rows[1].ID)
}

func TestHandle_SkipsUndecodable(t *testing.T) {
	w := &fakeWriter{}
	s := newTestSink(w)
	ctx := context.Background()

	require.NoError(t, s.Handle(ctx, []byte("k"), []byte(`not json`)))
	require.NoError(t, s.Handle(ctx, nil, []byte(`{"type":"order"}`)))

	assert.Empty(t, w.rows)
	assert.Equal(t, Stats{Skipped: 2}, s.Stats())
}

func TestHandle_Duplicates(t *testing.T) {
	w := &fakeWriter{}
	s := newTestSink(w)
	ctx := context.Background()
	value := []byte(`{"id":"order_1","type":"order"}`)

	require.NoError(t, s.Handle(ctx, nil, value))
	require.NoError(t, s.Handle(ctx, nil, value))

	assert.Len(t, w.rows, 1)
	assert.Equal(t, Stats{Inserted: 1, Duplicates: 1}, s.Stats())
}

func TestHandle_WriteError(t *testing.T) {
	w := &fakeWriter{err: errors.New("connection reset")}
	s := newTestSink(w)

	err := s.Handle(context.Background(), nil, []byte(`{"id":"x"}`))

	assert.ErrorIs(t, err, w.err)
	assert.ErrorContains(t, err, "event x not stored")
	assert.Equal(t, Stats{Failed: 1}, s.Stats())
}

// failOnceWriter fails the first write of failID
type failOnceWriter struct {
	fakeWriter
	failID string
	failed bool
}

func (w *failOnceWriter) Write(ctx context.Context, row Row) (bool, error) {
	if row.ID == w.failID && !w.failed {
		w.failed = true
		return false, errors.New("connection reset")
	}
	return w.fakeWriter.Write(ctx, row)
}

type sliceReader struct {
	msgs   []kafkago.Message
	cancel context.CancelFunc
}

func (r *sliceReader) ReadMessage(ctx context.Context) (kafkago.Message, error) {
	if len(r.msgs) == 0 {
		r.cancel()
		<-ctx.Done()
		return kafkago.Message{}, ctx.Err()
	}
	msg := r.msgs[0]
	r.msgs = r.msgs[1:]
	return msg, nil
}

func (r *sliceReader) Close() error { return nil }

func TestRun_WriteFailureSkipsToNextEvent(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reader := &sliceReader{
		cancel: cancel,
		msgs: []kafkago.Message{
			{Value: []byte(`{"id":"e1","type":"order"}`)},
			{Value: []byte(`{"id":"e2","type":"order"}`)},
		},
	}
	w := &failOnceWriter{failID: "e1"}
	s := newTestSink(w)

	err := s.Run(ctx, kafka.NewConsumerWithReader(reader, nil))

	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, w.rows, 1)
	assert.Equal(t, "e2", w.rows[0].ID)
	assert.Equal(t, Stats{Inserted: 1, Failed: 1}, s.Stats())
}

// ============================================
// PostgresWriter Tests
// ============================================

func newTestWriter(t *testing.T) (*PostgresWriter, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresWriter(db), mock
}

func TestPostgresWriter_EnsureSchema(t *testing.T) {
	pw, mock := newTestWriter(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS events_streaming")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, pw.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresWriter_Insert(t *testing.T) {
	pw, mock := newTestWriter(t)
	eventTime := time.UnixMilli(1_700_000_000_000).UTC()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO events_streaming (id, type, event_time, payload, ingest_time)")).
		WithArgs("order_1", "order", eventTime, `{"id":"order_1"}`, ingestTime).
		WillReturnResult(sqlmock.NewResult(0, 1))

	inserted, err := pw.Write(context.Background(), Row{
		ID:         "order_1",
		Type:       "order",
		EventTime:  &eventTime,
		Payload:    []byte(`{"id":"order_1"}`),
		IngestTime: ingestTime,
	})

	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresWriter_ConflictIgnored(t *testing.T) {
	pw, mock := newTestWriter(t)

	mock.ExpectExec(regexp.QuoteMeta("ON CONFLICT (id) DO NOTHING")).
		WithArgs("order_1", "", nil, `{}`, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	inserted, err := pw.Write(context.Background(), Row{ID: "order_1", Payload: []byte(`{}`), IngestTime: ingestTime})

	require.NoError(t, err)
	assert.False(t, inserted)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresWriter_Error(t *testing.T) {
	pw, mock := newTestWriter(t)
	dbErr := errors.New("relation does not exist")

	mock.ExpectExec("INSERT INTO events_streaming").WillReturnError(dbErr)

	_, err := pw.Write(context.Background(), Row{ID: "x", Payload: []byte(`{}`)})

	assert.ErrorIs(t, err, dbErr)
	assert.Contains(t, err.Error(), "failed to insert event x")
}
