// Package web 浏览器端：内嵌页面和 JSON API
package web

import (
	"encoding/json"
	"net/http"

	"scene-swap/common"
	"scene-swap/internal/session"
	"scene-swap/internal/workflow"
)

const (
	SessionCookieName = "swap_session"
	DownloadFileName  = "dog-swap-result.png"

	defaultMaxUploadBytes = 20 << 20
)

// Options App 依赖
type Options struct {
	Sessions       *session.Store
	Credentials    *common.Credentials
	MaxUploadBytes int64
	SecureCookie   bool
}

// App HTTP 处理器集合
type App struct {
	sessions     *session.Store
	credentials  *common.Credentials
	maxUpload    int64
	secureCookie bool
}

func NewApp(opts Options) *App {
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	return &App{
		sessions:     opts.Sessions,
		credentials:  opts.Credentials,
		maxUpload:    maxUpload,
		secureCookie: opts.SecureCookie,
	}
}

type apiError struct {
	Error string `json:"error"`
}

// stateResponse 控制器快照加上两个槽的预览引用
type stateResponse struct {
	workflow.Snapshot
	ScenePreview     string `json:"scene_preview,omitempty"`
	ReferencePreview string `json:"reference_preview,omitempty"`
	CanGenerate      bool   `json:"can_generate"`
}

type credentialsResponse struct {
	Configured bool   `json:"configured"`
	Masked     string `json:"masked,omitempty"`
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, apiError{Error: msg})
}

// state 会话不存在时返回空状态
func (a *App) state(sess *session.Session) stateResponse {
	if sess == nil {
		return stateResponse{Snapshot: workflow.Snapshot{State: workflow.StateEmpty}}
	}
	snap := sess.Controller.Snapshot()
	return stateResponse{
		Snapshot:         snap,
		ScenePreview:     sess.Scene.Preview(),
		ReferencePreview: sess.Reference.Preview(),
		CanGenerate:      snap.HasScene && snap.HasReference && snap.State != workflow.StateLoading,
	}
}

func (a *App) credentialsState() credentialsResponse {
	key := a.credentials.APIKey()
	if key == "" {
		return credentialsResponse{}
	}
	return credentialsResponse{Configured: true, Masked: common.MaskAPIKey(key)}
}
