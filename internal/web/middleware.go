package web

import (
	"context"
	"net/http"
	"time"

	"scene-swap/common"
	"scene-swap/internal/session"

	"github.com/go-chi/chi/v5/middleware"
)

type sessionKey struct{}

// withSession 按 cookie 查找已有会话并放入 context，不创建新会话
func (a *App) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := r.Cookie(SessionCookieName)
		if err != nil {
			next.ServeHTTP(w, r)
			return
		}
		sess, ok := a.sessions.Get(c.Value)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, sess)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// sessionFrom 当前请求的会话，没有 cookie 或会话已回收时为 nil
func sessionFrom(ctx context.Context) *session.Session {
	sess, _ := ctx.Value(sessionKey{}).(*session.Session)
	return sess
}

// ensureSession 写操作才创建会话并下发 cookie
func (a *App) ensureSession(w http.ResponseWriter, r *http.Request) *session.Session {
	if sess := sessionFrom(r.Context()); sess != nil {
		return sess
	}

	sess, _ := a.sessions.GetOrCreate("")
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

// accessLog 用 logrus 输出访问日志，附带 chi 的 request id
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		common.WithFields(map[string]interface{}{
			"request_id": middleware.GetReqID(r.Context()),
			"method":     r.Method,
			"path":       r.URL.Path,
			"status":     ww.Status(),
			"bytes":      ww.BytesWritten(),
			"dur_ms":     time.Since(start).Milliseconds(),
		}).Info("http")
	})
}
