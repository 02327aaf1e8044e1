package gemini

import (
	"context"
	"errors"
	"fmt"

	"scene-swap/common"
	"scene-swap/internal/asset"
	"scene-swap/internal/utils"

	"golang.org/x/sync/errgroup"
	"google.golang.org/genai"
)

// DefaultModelName 默认使用的图片模型
const DefaultModelName = "gemini-2.5-flash-image"

// 模型返回的图片统一标记为 PNG
const resultMIMEType = "image/png"

// ErrMissingAPIKey 调用时凭据持有者中没有 API Key
var ErrMissingAPIKey = errors.New("API key is not configured")

// Generator 对应 genai.Models.GenerateContent，测试中可替换
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeneratorFactory 用当次读取到的 Key 创建 Generator
type GeneratorFactory func(ctx context.Context, apiKey, baseURL string) (Generator, error)

// KeySource 凭据来源，每次调用前读取
type KeySource interface {
	APIKey() string
}

// NewSDKGenerator 基于 google.golang.org/genai 创建 Generator
func NewSDKGenerator(ctx context.Context, apiKey, baseURL string) (Generator, error) {
	clientConfig := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}

	// 如果提供了自定义 Base URL，设置 HTTPOptions
	if baseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{
			BaseURL: baseURL,
		}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}
	return client.Models, nil
}

// Client 场景主体替换的交换流程
type Client struct {
	keys         KeySource
	baseURL      string
	model        string
	newGenerator GeneratorFactory
}

// Config Gemini 客户端配置
type Config struct {
	Keys         KeySource        // 凭据来源，必填
	BaseURL      string           // 自定义 Base URL，为空则使用默认值
	ModelName    string           // 模型名称，为空则使用 DefaultModelName
	NewGenerator GeneratorFactory // 为空则使用 NewSDKGenerator
}

// NewClient 创建新的 Gemini 客户端。
// 这里不创建 SDK 客户端，Key 在每次 Exchange 时才读取。
func NewClient(cfg Config) (*Client, error) {
	if cfg.Keys == nil {
		return nil, fmt.Errorf("key source is required")
	}

	model := cfg.ModelName
	if model == "" {
		model = DefaultModelName
	}

	factory := cfg.NewGenerator
	if factory == nil {
		factory = NewSDKGenerator
	}

	return &Client{
		keys:         cfg.Keys,
		baseURL:      cfg.BaseURL,
		model:        model,
		newGenerator: factory,
	}, nil
}

// Model 当前使用的模型名称
func (c *Client) Model() string {
	return c.model
}

// Exchange 把 reference 中的主体替换进 scene。
// 返回 data:image/png;base64,... 和 true；模型没有返回图片时返回 ("", false, nil)。
// 模型调用的错误原样返回，不重试、不加超时。
func (c *Client) Exchange(ctx context.Context, scene, reference *asset.ImageAsset) (string, bool, error) {
	if scene == nil || reference == nil {
		return "", false, fmt.Errorf("both scene and reference images are required")
	}

	apiKey := c.keys.APIKey()
	if apiKey == "" {
		return "", false, ErrMissingAPIKey
	}

	// 两张图并行解码
	var scenePart, referencePart *genai.Part
	var g errgroup.Group
	g.Go(func() error {
		var err error
		scenePart, err = inlinePart(scene)
		return err
	})
	g.Go(func() error {
		var err error
		referencePart, err = inlinePart(reference)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", false, err
	}

	generator, err := c.newGenerator(ctx, apiKey, c.baseURL)
	if err != nil {
		return "", false, err
	}

	common.WithFields(map[string]interface{}{
		"model":          c.model,
		"scene_mime":     scene.MIMEType,
		"scene_size":     scene.Size,
		"reference_mime": reference.MIMEType,
		"reference_size": reference.Size,
	}).Debug("Starting subject exchange")

	contents := []*genai.Content{
		genai.NewContentFromParts(buildParts(scenePart, referencePart), genai.RoleUser),
	}
	result, err := generator.GenerateContent(ctx, c.model, contents, nil)
	if err != nil {
		common.WithError(err).WithField("model", c.model).Error("Failed to exchange subject via Gemini API")
		return "", false, err
	}

	data, ok := firstInlineImage(result)
	if !ok {
		common.WithField("model", c.model).Warn("No image data found in Gemini response")
		return "", false, nil
	}

	common.WithFields(map[string]interface{}{
		"model": c.model,
		"size":  len(data),
	}).Debug("Subject exchanged successfully")

	return utils.EncodeDataURI(resultMIMEType, data), true, nil
}

// inlinePart 把图片解码为内联数据 part
func inlinePart(a *asset.ImageAsset) (*genai.Part, error) {
	data, err := a.Bytes()
	if err != nil {
		return nil, err
	}
	return &genai.Part{
		InlineData: &genai.Blob{
			Data:     data,
			MIMEType: a.MIMEType,
		},
	}, nil
}

// firstInlineImage 按顺序扫描第一个候选的 parts，返回第一段内联图片数据
func firstInlineImage(result *genai.GenerateContentResponse) ([]byte, bool) {
	if result == nil || len(result.Candidates) == 0 {
		return nil, false
	}

	candidate := result.Candidates[0]
	if candidate == nil || candidate.Content == nil {
		return nil, false
	}

	for _, part := range candidate.Content.Parts {
		if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
			return part.InlineData.Data, true
		}
	}
	return nil, false
}
