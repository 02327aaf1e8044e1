package session

import (
	"context"
	"sync"
	"time"

	"scene-swap/common"
	"scene-swap/internal/asset"
	"scene-swap/internal/workflow"

	"github.com/google/uuid"
)

// Session 一个浏览器会话：一个控制器加两个上传槽
type Session struct {
	ID         string
	Controller *workflow.Controller
	Scene      *asset.Uploader
	Reference  *asset.Uploader

	lastActivity time.Time
}

// Uploader 返回槽对应的上传器
func (s *Session) Uploader(slot workflow.Slot) *asset.Uploader {
	if slot == workflow.SlotReference {
		return s.Reference
	}
	return s.Scene
}

type Options struct {
	IdleTimeout   time.Duration
	Previews      *asset.PreviewStore
	NewController func() *workflow.Controller
	Now           func() time.Time
}

type Store struct {
	mu            sync.Mutex
	sessions      map[string]*Session
	idleTimeout   time.Duration
	previews      *asset.PreviewStore
	newController func() *workflow.Controller
	now           func() time.Time
}

func NewStore(opts Options) *Store {
	idle := opts.IdleTimeout
	if idle <= 0 {
		idle = time.Hour
	}

	previews := opts.Previews
	if previews == nil {
		previews = asset.NewPreviewStore()
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Store{
		sessions:      make(map[string]*Session),
		idleTimeout:   idle,
		previews:      previews,
		newController: opts.NewController,
		now:           now,
	}
}

// Get 查找会话并刷新活跃时间
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[id]
	if ok {
		sess.lastActivity = s.now()
	}
	return sess, ok
}

// GetOrCreate id 为空或未知时创建新会话，第二个返回值表示是否新建
func (s *Store) GetOrCreate(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[id]; ok {
		sess.lastActivity = s.now()
		return sess, false
	}

	sess := &Session{
		ID:           uuid.NewString(),
		Controller:   s.newController(),
		Scene:        asset.NewUploader(s.previews),
		Reference:    asset.NewUploader(s.previews),
		lastActivity: s.now(),
	}
	s.sessions[sess.ID] = sess
	return sess, true
}

// Previews 所有会话共享的预览表
func (s *Store) Previews() *asset.PreviewStore {
	return s.previews
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Prune 清理空闲超时的会话并撤销其预览。请求进行中的会话不清理。
func (s *Store) Prune() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.idleTimeout)
	removed := 0
	for id, sess := range s.sessions {
		if sess.lastActivity.After(cutoff) || sess.Controller.Loading() {
			continue
		}
		sess.Scene.Release()
		sess.Reference.Release()
		delete(s.sessions, id)
		removed++
	}
	return removed
}

// Run 定期清理，直到 ctx 结束
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Prune(); n > 0 {
				common.WithFields(map[string]interface{}{
					"removed":   n,
					"remaining": s.Len(),
				}).Debug("Pruned idle sessions")
			}
		}
	}
}
