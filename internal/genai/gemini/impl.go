package gemini

import (
	"fmt"

	"scene-swap/common"
)

// NewGeminiClientFromConfig 从配置创建 Gemini 客户端，Key 从 keys 读取
func NewGeminiClientFromConfig(cfg *common.Config, keys KeySource) (*Client, error) {
	client, err := NewClient(Config{
		Keys:      keys,
		BaseURL:   cfg.GenAIBaseURL,
		ModelName: cfg.GenAIModelName,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return client, nil
}
