// Package workflow 保存两张图片和生成结果，负责触发交换流程并把结果映射为界面状态
package workflow

import (
	"context"
	"fmt"
	"sync"

	"scene-swap/common"
	"scene-swap/internal/asset"
)

// State 控制器对外可见的状态
type State string

const (
	StateEmpty   State = "empty"   // 无结果、无错误、未加载
	StateReady   State = "ready"   // 两张图都已选择，等待触发
	StateLoading State = "loading" // 请求进行中
	StateSettled State = "settled" // 已有结果或错误
)

// Slot 上传槽
type Slot string

const (
	SlotScene     Slot = "scene"
	SlotReference Slot = "reference"
)

// ParseSlot 解析路由中的上传槽名称
func ParseSlot(name string) (Slot, error) {
	switch Slot(name) {
	case SlotScene, SlotReference:
		return Slot(name), nil
	default:
		return "", fmt.Errorf("unknown slot %q", name)
	}
}

// Exchanger 交换流程，gemini.Client 实现该接口
type Exchanger interface {
	Exchange(ctx context.Context, scene, reference *asset.ImageAsset) (string, bool, error)
}

// Archiver 把生成结果归档并返回访问 URL
type Archiver interface {
	Archive(ctx context.Context, dataURI string) (string, error)
}

// Snapshot 某一时刻的控制器状态
type Snapshot struct {
	State        State    `json:"state"`
	HasScene     bool     `json:"has_scene"`
	HasReference bool     `json:"has_reference"`
	Result       string   `json:"result,omitempty"`
	ResultURL    string   `json:"result_url,omitempty"`
	Failure      *Failure `json:"error,omitempty"`
}

// Option 控制器可选项
type Option func(*Controller)

// WithArchiver 成功后归档结果
func WithArchiver(a Archiver) Option {
	return func(c *Controller) {
		c.archiver = a
	}
}

// WithObserver 每次状态变化后回调，回调在锁外执行
func WithObserver(fn func(Snapshot)) Option {
	return func(c *Controller) {
		c.observer = fn
	}
}

// Controller 单个会话的工作流控制器
type Controller struct {
	exchanger Exchanger
	archiver  Archiver
	observer  func(Snapshot)

	mu        sync.Mutex
	scene     *asset.ImageAsset
	reference *asset.ImageAsset
	loading   bool
	epoch     uint64 // 每次上传递增，用于丢弃过期的交换结果
	result    string
	resultURL string
	failure   *Failure
}

// New 创建控制器
func New(exchanger Exchanger, opts ...Option) *Controller {
	c := &Controller{exchanger: exchanger}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Upload 替换指定槽的图片，并清除之前的结果和错误。
// 进行中的交换结果会在返回后被丢弃。
func (c *Controller) Upload(slot Slot, a *asset.ImageAsset) {
	if a == nil {
		return
	}

	c.mu.Lock()
	switch slot {
	case SlotScene:
		c.scene = a
	case SlotReference:
		c.reference = a
	default:
		c.mu.Unlock()
		return
	}
	c.epoch++
	c.clearOutcomeLocked()
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

// ClearFailure 清除当前错误，选择新凭据后调用
func (c *Controller) ClearFailure() {
	c.mu.Lock()
	if c.failure == nil {
		c.mu.Unlock()
		return
	}
	c.failure = nil
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)
}

// Generate 运行一次交换直到完成。
// 缺少任一图片或已有请求进行中时不做任何事并返回 false。
// 请求不可取消，ctx 的取消不会中断它。
func (c *Controller) Generate(ctx context.Context) bool {
	c.mu.Lock()
	if c.loading || c.scene == nil || c.reference == nil {
		c.mu.Unlock()
		return false
	}
	c.loading = true
	c.clearOutcomeLocked()
	epoch := c.epoch
	scene, reference := c.scene, c.reference
	snap := c.snapshotLocked()
	c.mu.Unlock()

	c.notify(snap)

	ctx = context.WithoutCancel(ctx)
	uri, ok, err := c.runExchange(ctx, scene, reference)

	var archivedURL string
	if err == nil && ok && c.archiver != nil {
		archivedURL, err = c.archiver.Archive(ctx, uri)
		if err != nil {
			common.WithError(err).Warn("Failed to archive generated image")
			archivedURL, err = "", nil
		}
	}

	c.mu.Lock()
	c.loading = false
	switch {
	case epoch != c.epoch:
		common.Debug("Discarding exchange result for replaced images")
	case err != nil:
		f := Classify(err)
		c.failure = &f
	case !ok:
		f := Absence()
		c.failure = &f
	default:
		c.result = uri
		c.resultURL = archivedURL
	}
	snap = c.snapshotLocked()
	c.mu.Unlock()

	if snap.Failure != nil {
		common.WithFields(map[string]interface{}{
			"kind":    snap.Failure.Kind,
			"message": snap.Failure.Message,
		}).Info("Generation settled with failure")
	}
	c.notify(snap)
	return true
}

// runExchange 调用交换流程，panic 也转为错误
func (c *Controller) runExchange(ctx context.Context, scene, reference *asset.ImageAsset) (uri string, ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			uri, ok, err = "", false, fmt.Errorf("exchange panicked: %v", r)
		}
	}()
	return c.exchanger.Exchange(ctx, scene, reference)
}

// Snapshot 返回当前状态
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Loading 是否有请求进行中
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

// Result 当前结果的 data URI
func (c *Controller) Result() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.result, c.result != ""
}

func (c *Controller) clearOutcomeLocked() {
	c.result = ""
	c.resultURL = ""
	c.failure = nil
}

func (c *Controller) snapshotLocked() Snapshot {
	snap := Snapshot{
		HasScene:     c.scene != nil,
		HasReference: c.reference != nil,
		Result:       c.result,
		ResultURL:    c.resultURL,
	}
	if c.failure != nil {
		f := *c.failure
		snap.Failure = &f
	}

	switch {
	case c.loading:
		snap.State = StateLoading
	case c.result != "" || c.failure != nil:
		snap.State = StateSettled
	case snap.HasScene && snap.HasReference:
		snap.State = StateReady
	default:
		snap.State = StateEmpty
	}
	return snap
}

func (c *Controller) notify(snap Snapshot) {
	if c.observer != nil {
		c.observer(snap)
	}
}
