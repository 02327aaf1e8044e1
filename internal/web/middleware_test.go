package web

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"scene-swap/common"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessLogRecordsRecoveredPanics(t *testing.T) {
	s := newTestServer(t, &fakeExchanger{})
	mux, ok := s.handler.(*chi.Mux)
	require.True(t, ok)
	mux.Get("/boom", func(http.ResponseWriter, *http.Request) { panic("boom") })

	hook := test.NewLocal(common.GetLogger())
	defer hook.Reset()

	rr := s.do(httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rr.Code)

	var found bool
	for _, e := range hook.AllEntries() {
		if e.Message == "http" && e.Data["path"] == "/boom" {
			found = true
			assert.Equal(t, http.StatusInternalServerError, e.Data["status"])
			assert.NotEmpty(t, e.Data["request_id"])
		}
	}
	assert.True(t, found, "panicking request must reach the access log")
}

func TestAccessLogRecordsStatus(t *testing.T) {
	s := newTestServer(t, &fakeExchanger{})
	hook := test.NewLocal(common.GetLogger())
	defer hook.Reset()

	s.do(httptest.NewRequest(http.MethodGet, "/api/result/download", nil))

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "http", entry.Message)
	assert.Equal(t, http.StatusNotFound, entry.Data["status"])
	assert.Equal(t, http.MethodGet, entry.Data["method"])
}
