package common

import (
	"errors"
	"strings"
	"sync"
)

// ErrEmptyAPIKey 选择了空的 API Key
var ErrEmptyAPIKey = errors.New("api key must not be empty")

// Credentials 进程级的凭据持有者。
// 调用方必须在每次请求前读取 APIKey，不能跨调用缓存。
type Credentials struct {
	mu     sync.RWMutex
	apiKey string
}

// NewCredentials 使用初始 Key（可为空）创建凭据持有者
func NewCredentials(initial string) *Credentials {
	return &Credentials{apiKey: strings.TrimSpace(initial)}
}

// APIKey 返回当前的 API Key
func (c *Credentials) APIKey() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.apiKey
}

// SetAPIKey 替换当前的 API Key，下一次调用即生效
func (c *Credentials) SetAPIKey(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptyAPIKey
	}
	c.mu.Lock()
	c.apiKey = key
	c.mu.Unlock()
	return nil
}

// Configured 是否已经有可用的 API Key
func (c *Credentials) Configured() bool {
	return c.APIKey() != ""
}

// MaskAPIKey 隐藏 API Key 的敏感部分
func MaskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "****" + key[len(key)-4:]
}
