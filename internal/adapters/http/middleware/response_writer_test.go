package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusRecorder_ImplicitOK(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	sr := newStatusRecorder(rec)
	n, err := sr.Write([]byte("ready"))

	assert.NoError(t, err)
	assert.Equal(t, 5, n)
	assert.Equal(t, http.StatusOK, sr.status)
	assert.Equal(t, int64(5), sr.bytes)
	assert.True(t, sr.sent)
}

func TestStatusRecorder_FirstStatusWins(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	sr := newStatusRecorder(rec)
	sr.WriteHeader(http.StatusServiceUnavailable)
	sr.WriteHeader(http.StatusOK)
	_, _ = sr.Write([]byte("a"))
	_, _ = sr.Write([]byte("bc"))

	assert.Equal(t, http.StatusServiceUnavailable, sr.status)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, int64(3), sr.bytes)
}

func TestStatusRecorder_Unwrap(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	sr := newStatusRecorder(rec)
	assert.Same(t, rec, sr.Unwrap())

	// ResponseController finds the Flusher through Unwrap.
	assert.NoError(t, http.NewResponseController(sr).Flush())
	assert.True(t, rec.Flushed)
}
