package web

import (
	"embed"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"scene-swap/common"
	"scene-swap/internal/asset"
	"scene-swap/internal/utils"
	"scene-swap/internal/workflow"

	"github.com/go-chi/chi/v5"
)

//go:embed static/index.html
var staticFS embed.FS

func (a *App) Index(w http.ResponseWriter, r *http.Request) {
	page, err := staticFS.ReadFile("static/index.html")
	if err != nil {
		a.error(w, http.StatusInternalServerError, "page unavailable")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(page)
}

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Upload 接收 multipart 字段 file，替换槽内图片
func (a *App) Upload(w http.ResponseWriter, r *http.Request) {
	slot, err := workflow.ParseSlot(chi.URLParam(r, "slot"))
	if err != nil {
		a.error(w, http.StatusNotFound, err.Error())
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, a.maxUpload)
	if err := r.ParseMultipartForm(a.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			a.error(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		a.error(w, http.StatusBadRequest, "invalid multipart form")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		a.error(w, http.StatusBadRequest, "missing file")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		a.error(w, http.StatusBadRequest, "failed to read file")
		return
	}

	sess := a.ensureSession(w, r)
	img := asset.New(header.Filename, header.Header.Get("Content-Type"), data)
	sess.Uploader(slot).Select(img, func(selected *asset.ImageAsset) {
		sess.Controller.Upload(slot, selected)
	})

	common.WithFields(map[string]interface{}{
		"session":   sess.ID,
		"slot":      slot,
		"mime_type": img.MIMEType,
		"size":      img.Size,
	}).Debug("Image selected")

	a.json(w, http.StatusOK, a.state(sess))
}

// Preview 返回预览图片，已撤销的引用返回 404
func (a *App) Preview(w http.ResponseWriter, r *http.Request) {
	img, ok := a.sessions.Previews().Open(chi.URLParam(r, "id"))
	if !ok {
		a.error(w, http.StatusNotFound, "preview not found")
		return
	}
	data, err := img.Bytes()
	if err != nil {
		a.error(w, http.StatusInternalServerError, "preview unavailable")
		return
	}
	w.Header().Set("Content-Type", img.MIMEType)
	w.Header().Set("Cache-Control", "private, max-age=3600")
	_, _ = w.Write(data)
}

// Generate 同步执行一次交换。未执行（无会话、缺图或进行中）时返回 409。
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if sess == nil || !sess.Controller.Generate(r.Context()) {
		a.json(w, http.StatusConflict, a.state(sess))
		return
	}
	a.json(w, http.StatusOK, a.state(sess))
}

func (a *App) State(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, a.state(sessionFrom(r.Context())))
}

// Download 以附件形式返回当前结果
func (a *App) Download(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if sess == nil {
		a.error(w, http.StatusNotFound, "no result to download")
		return
	}
	result, ok := sess.Controller.Result()
	if !ok {
		a.error(w, http.StatusNotFound, "no result to download")
		return
	}
	_, data, err := utils.ParseDataURI(result)
	if err != nil {
		a.error(w, http.StatusInternalServerError, "result unavailable")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Disposition", `attachment; filename="`+DownloadFileName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}

func (a *App) GetCredentials(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, a.credentialsState())
}

// SetCredentials 替换进程级 API Key，并清除当前会话的错误以便重试
func (a *App) SetCredentials(w http.ResponseWriter, r *http.Request) {
	var body struct {
		APIKey string `json:"api_key"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&body); err != nil {
		a.error(w, http.StatusBadRequest, "invalid json body")
		return
	}
	if err := a.credentials.SetAPIKey(body.APIKey); err != nil {
		a.error(w, http.StatusBadRequest, err.Error())
		return
	}

	if sess := sessionFrom(r.Context()); sess != nil {
		sess.Controller.ClearFailure()
	}
	common.WithField("api_key", common.MaskAPIKey(strings.TrimSpace(body.APIKey))).Info("API key selected")

	a.json(w, http.StatusOK, a.credentialsState())
}
