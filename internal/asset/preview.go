package asset

import (
	"sync"

	"github.com/google/uuid"
)

// PreviewPathPrefix 预览引用的 URL 前缀
const PreviewPathPrefix = "/api/previews/"

// PreviewStore 进程内共享的预览引用表，引用在撤销前一直有效
type PreviewStore struct {
	mu       sync.RWMutex
	previews map[string]*ImageAsset
}

func NewPreviewStore() *PreviewStore {
	return &PreviewStore{previews: make(map[string]*ImageAsset)}
}

// Create 登记预览并返回 id
func (s *PreviewStore) Create(a *ImageAsset) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.previews[id] = a
	s.mu.Unlock()
	return id
}

// Open 解析预览 id，已撤销的 id 不再可用
func (s *PreviewStore) Open(id string) (*ImageAsset, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.previews[id]
	return a, ok
}

// Revoke 撤销预览，忽略空 id 和未知 id
func (s *PreviewStore) Revoke(id string) {
	if id == "" {
		return
	}
	s.mu.Lock()
	delete(s.previews, id)
	s.mu.Unlock()
}

func (s *PreviewStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.previews)
}

// Uploader 单个上传槽（scene 或 reference）。
// 每次选择都会替换旧预览，反复上传不会累积引用。
type Uploader struct {
	mu       sync.Mutex
	previews *PreviewStore
	current  string
}

func NewUploader(previews *PreviewStore) *Uploader {
	return &Uploader{previews: previews}
}

// Select 撤销旧预览、登记新预览、回调 onFileSelect，返回新的预览引用。
// 回调在槽锁内执行，预览和回调收到的图片始终是同一张。
// a 为 nil 时什么都不做，返回空串。
func (u *Uploader) Select(a *ImageAsset, onFileSelect func(*ImageAsset)) string {
	if a == nil {
		return ""
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	u.previews.Revoke(u.current)
	u.current = u.previews.Create(a)
	if onFileSelect != nil {
		onFileSelect(a)
	}
	return PreviewPathPrefix + u.current
}

// Preview 当前预览引用，尚未选择时为空串
func (u *Uploader) Preview() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.current == "" {
		return ""
	}
	return PreviewPathPrefix + u.current
}

// Release 会话结束时撤销当前预览
func (u *Uploader) Release() {
	u.mu.Lock()
	u.previews.Revoke(u.current)
	u.current = ""
	u.mu.Unlock()
}
