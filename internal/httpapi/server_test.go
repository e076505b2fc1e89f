package httpapi

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	_ "trade-relay-bot/internal/metrics"
)

type fakeStatus struct {
	up bool
	id int
}

func (f fakeStatus) Connected() bool { return f.up }
func (f fakeStatus) ClientID() int   { return f.id }

func TestHealthz(t *testing.T) {
	s := NewServer(":0", "PAPER", fakeStatus{up: true, id: 3})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"connected":true,"client_id":3,"mode":"PAPER"}`, rec.Body.String())

	s = NewServer(":0", "PAPER", fakeStatus{})
	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMetricsExposed(t *testing.T) {
	s := NewServer(":0", "PAPER", fakeStatus{up: true})

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "relay_session_connected"))
}

func TestUnknownPath(t *testing.T) {
	s := NewServer(":0", "PAPER", fakeStatus{})
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/healthz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
