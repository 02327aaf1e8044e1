package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"

	"scene-swap/common"
	"scene-swap/internal/asset"
	"scene-swap/internal/session"
	"scene-swap/internal/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExchanger struct {
	mu    sync.Mutex
	calls int
	uri   string
	ok    bool
	err   error
}

func (f *fakeExchanger) Exchange(context.Context, *asset.ImageAsset, *asset.ImageAsset) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.uri, f.ok, f.err
}

type testServer struct {
	t       *testing.T
	handler http.Handler
	store   *session.Store
	creds   *common.Credentials
	cookie  *http.Cookie
}

func newTestServer(t *testing.T, ex workflow.Exchanger) *testServer {
	t.Helper()
	store := session.NewStore(session.Options{
		NewController: func() *workflow.Controller { return workflow.New(ex) },
	})
	creds := common.NewCredentials("")
	app := NewApp(Options{Sessions: store, Credentials: creds, MaxUploadBytes: 1 << 20})
	return &testServer{t: t, handler: NewRouter(app), store: store, creds: creds}
}

func (s *testServer) do(req *http.Request) *httptest.ResponseRecorder {
	s.t.Helper()
	if s.cookie != nil {
		req.AddCookie(s.cookie)
	}
	rr := httptest.NewRecorder()
	s.handler.ServeHTTP(rr, req)
	for _, c := range rr.Result().Cookies() {
		if c.Name == SessionCookieName {
			s.cookie = c
		}
	}
	return rr
}

func (s *testServer) upload(slot, filename, contentType string, data []byte) *httptest.ResponseRecorder {
	s.t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	if contentType != "" {
		h.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(h)
	require.NoError(s.t, err)
	_, err = part.Write(data)
	require.NoError(s.t, err)
	require.NoError(s.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/uploads/"+slot, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return s.do(req)
}

func decodeState(t *testing.T, rr *httptest.ResponseRecorder) stateResponse {
	t.Helper()
	var st stateResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&st), rr.Body.String())
	return st
}

func TestHealthAndIndex(t *testing.T) {
	s := newTestServer(t, &fakeExchanger{})

	rr := s.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())

	rr = s.do(httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `accept="image/*"`)
	assert.Nil(t, s.cookie)
	assert.Zero(t, s.store.Len())
}

func TestSessionsAreCreatedOnFirstWrite(t *testing.T) {
	s := newTestServer(t, &fakeExchanger{})

	for _, path := range []string{"/", "/api/state", "/api/credentials", "/api/result/download"} {
		s.do(httptest.NewRequest(http.MethodGet, path, nil))
	}
	assert.Nil(t, s.cookie)
	assert.Zero(t, s.store.Len())

	st := decodeState(t, s.do(httptest.NewRequest(http.MethodGet, "/api/state", nil)))
	assert.Equal(t, workflow.StateEmpty, st.State)
	assert.False(t, st.CanGenerate)

	rr := s.do(httptest.NewRequest(http.MethodPost, "/api/generate", nil))
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Zero(t, s.store.Len())

	// 未知或已回收的 cookie 也不创建会话
	s.cookie = &http.Cookie{Name: SessionCookieName, Value: "gone"}
	s.do(httptest.NewRequest(http.MethodGet, "/api/state", nil))
	assert.Zero(t, s.store.Len())
	assert.Equal(t, "gone", s.cookie.Value)

	rr = s.upload("scene", "s.png", "image/png", []byte("s"))
	require.Equal(t, http.StatusOK, rr.Code)
	require.NotNil(t, s.cookie)
	assert.NotEqual(t, "gone", s.cookie.Value)
	assert.True(t, s.cookie.HttpOnly)
	assert.Equal(t, 1, s.store.Len())

	_, ok := s.store.Get(s.cookie.Value)
	assert.True(t, ok)
	st = decodeState(t, s.do(httptest.NewRequest(http.MethodGet, "/api/state", nil)))
	assert.True(t, st.HasScene)
	assert.Equal(t, 1, s.store.Len())
}

func TestUploadAndPreview(t *testing.T) {
	s := newTestServer(t, &fakeExchanger{})

	rr := s.upload("scene", "scene.jpg", "image/jpeg", []byte("scene-bytes"))
	require.Equal(t, http.StatusOK, rr.Code)
	st := decodeState(t, rr)
	assert.Equal(t, workflow.StateEmpty, st.State)
	assert.True(t, st.HasScene)
	assert.False(t, st.CanGenerate)
	require.True(t, strings.HasPrefix(st.ScenePreview, asset.PreviewPathPrefix))

	rr = s.do(httptest.NewRequest(http.MethodGet, st.ScenePreview, nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/jpeg", rr.Header().Get("Content-Type"))
	assert.Equal(t, "scene-bytes", rr.Body.String())

	// 重新上传后旧预览失效
	rr = s.upload("scene", "other.png", "", []byte("\x89PNG\r\n\x1a\nrest"))
	next := decodeState(t, rr)
	assert.NotEqual(t, st.ScenePreview, next.ScenePreview)
	assert.Equal(t, http.StatusNotFound, s.do(httptest.NewRequest(http.MethodGet, st.ScenePreview, nil)).Code)

	rr = s.do(httptest.NewRequest(http.MethodGet, next.ScenePreview, nil))
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))

	rr = s.upload("reference", "ref.png", "image/png", []byte("ref"))
	st = decodeState(t, rr)
	assert.Equal(t, workflow.StateReady, st.State)
	assert.True(t, st.CanGenerate)
	assert.Equal(t, 1, s.store.Len())
}

func TestUploadRejectsBadRequests(t *testing.T) {
	s := newTestServer(t, &fakeExchanger{})

	rr := s.upload("background", "a.png", "image/png", []byte("a"))
	assert.Equal(t, http.StatusNotFound, rr.Code)

	req := httptest.NewRequest(http.MethodPost, "/api/uploads/scene", strings.NewReader("plain"))
	req.Header.Set("Content-Type", "text/plain")
	assert.Equal(t, http.StatusBadRequest, s.do(req).Code)

	rr = s.upload("scene", "big.png", "image/png", bytes.Repeat([]byte("x"), 2<<20))
	assert.Contains(t, []int{http.StatusRequestEntityTooLarge, http.StatusBadRequest}, rr.Code)
}

func TestGenerateFlow(t *testing.T) {
	ex := &fakeExchanger{uri: "data:image/png;base64,aGVsbG8=", ok: true}
	s := newTestServer(t, ex)

	rr := s.do(httptest.NewRequest(http.MethodPost, "/api/generate", nil))
	assert.Equal(t, http.StatusConflict, rr.Code)
	assert.Zero(t, ex.calls)

	s.upload("scene", "s.png", "image/png", []byte("s"))
	s.upload("reference", "r.png", "image/png", []byte("r"))

	rr = s.do(httptest.NewRequest(http.MethodPost, "/api/generate", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	st := decodeState(t, rr)
	assert.Equal(t, workflow.StateSettled, st.State)
	assert.Equal(t, "data:image/png;base64,aGVsbG8=", st.Result)
	assert.Equal(t, 1, ex.calls)

	rr = s.do(httptest.NewRequest(http.MethodGet, "/api/result/download", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "image/png", rr.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="dog-swap-result.png"`, rr.Header().Get("Content-Disposition"))
	assert.Equal(t, "hello", rr.Body.String())

	s.upload("reference", "r2.png", "image/png", []byte("r2"))
	rr = s.do(httptest.NewRequest(http.MethodGet, "/api/state", nil))
	st = decodeState(t, rr)
	assert.Equal(t, workflow.StateReady, st.State)
	assert.Empty(t, st.Result)
	assert.Equal(t, http.StatusNotFound, s.do(httptest.NewRequest(http.MethodGet, "/api/result/download", nil)).Code)
}

func TestQuotaFailureAndCredentialSelection(t *testing.T) {
	ex := &fakeExchanger{err: errors.New("Error 429: Quota exceeded")}
	s := newTestServer(t, ex)
	s.upload("scene", "s.png", "image/png", []byte("s"))
	s.upload("reference", "r.png", "image/png", []byte("r"))

	st := decodeState(t, s.do(httptest.NewRequest(http.MethodPost, "/api/generate", nil)))
	require.NotNil(t, st.Failure)
	assert.Equal(t, workflow.FailureQuota, st.Failure.Kind)
	assert.Equal(t, workflow.QuotaMessage, st.Failure.Message)

	rr := s.do(httptest.NewRequest(http.MethodGet, "/api/credentials", nil))
	assert.JSONEq(t, `{"configured":false}`, rr.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/api/credentials", strings.NewReader(`{"api_key":"   "}`))
	assert.Equal(t, http.StatusBadRequest, s.do(req).Code)

	req = httptest.NewRequest(http.MethodPost, "/api/credentials", strings.NewReader(`{"api_key":"AIzaSyNEWKEY-1234"}`))
	rr = s.do(req)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"configured":true,"masked":"AIza****1234"}`, rr.Body.String())
	assert.Equal(t, "AIzaSyNEWKEY-1234", s.creds.APIKey())

	st = decodeState(t, s.do(httptest.NewRequest(http.MethodGet, "/api/state", nil)))
	assert.Nil(t, st.Failure)
	assert.Equal(t, workflow.StateReady, st.State)
}

func TestSessionsAreIsolated(t *testing.T) {
	s := newTestServer(t, &fakeExchanger{})
	s.upload("scene", "s.png", "image/png", []byte("s"))

	other := &testServer{t: t, handler: s.handler, store: s.store}
	st := decodeState(t, other.do(httptest.NewRequest(http.MethodGet, "/api/state", nil)))
	assert.False(t, st.HasScene)
	assert.Equal(t, 1, s.store.Len())

	other.upload("scene", "o.png", "image/png", []byte("o"))
	require.NotNil(t, other.cookie)
	assert.NotEqual(t, s.cookie.Value, other.cookie.Value)
	assert.Equal(t, 2, s.store.Len())
}
