package worker

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tutorchat/internal/model"
)

type recordingWriter struct {
	rows []model.Exchange
	err  error
}

func (r *recordingWriter) Create(e *model.Exchange) error {
	if r.err != nil {
		return r.err
	}
	r.rows = append(r.rows, *e)
	return nil
}

func TestPersistDecodesExchange(t *testing.T) {
	repo := &recordingWriter{}
	w := NewExchangePersistWorker(nil, repo, "q", nil)

	body := []byte(`{"id":9,"identity":"u1","course_id":"c1","question":"q","answer":"a","source_count":2}`)
	require.NoError(t, w.persist(body))
	require.Len(t, repo.rows, 1)
	assert.Zero(t, repo.rows[0].ID)
	assert.Equal(t, "u1", repo.rows[0].Identity)
	assert.Equal(t, 2, repo.rows[0].SourceCount)
}

func TestPersistRejectsBadMessages(t *testing.T) {
	w := NewExchangePersistWorker(nil, &recordingWriter{}, "q", nil)
	assert.Error(t, w.persist([]byte("{")))
	assert.ErrorIs(t, w.persist([]byte(`{"identity":"u1"}`)), errInvalidExchange)

	failing := NewExchangePersistWorker(nil, &recordingWriter{err: errors.New("db down")}, "q", nil)
	assert.Error(t, failing.persist([]byte(`{"identity":"u1","course_id":"c1"}`)))
}
