package tools

import (
	"context"
	"fmt"
	"strings"

	"scene-swap/common"
	"scene-swap/internal/asset"
	"scene-swap/internal/utils"
	"scene-swap/internal/workflow"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

const SwapSubjectTool = "swap_subject"

// RegisterSwapTools 注册主体替换的 MCP tool
func RegisterSwapTools(s *server.MCPServer, exchanger workflow.Exchanger, opts ...workflow.Option) error {
	if exchanger == nil {
		return fmt.Errorf("exchanger is required")
	}

	swapTool := mcp.NewTool(
		SwapSubjectTool,
		mcp.WithDescription("Replace the subject in a scene image with the subject from a reference image, keeping the scene's layout, background and decorations. Returns the generated image as a data URI."),
		mcp.WithString("scene_image",
			mcp.Required(),
			mcp.Description("URL or data URI of the scene image whose composition must be preserved"),
		),
		mcp.WithString("reference_image",
			mcp.Required(),
			mcp.Description("URL or data URI of the image supplying the replacement subject"),
		),
	)

	s.AddTool(swapTool, swapHandler(exchanger, opts...))
	return nil
}

// swapHandler 每次调用使用独立的控制器，错误按界面相同的规则分类
func swapHandler(exchanger workflow.Exchanger, opts ...workflow.Option) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		sceneInput, err := req.RequireString("scene_image")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("scene_image parameter is required: %v", err)), nil
		}
		referenceInput, err := req.RequireString("reference_image")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("reference_image parameter is required: %v", err)), nil
		}

		scene, err := loadImage(ctx, "scene", sceneInput)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to load scene image: %v", err)), nil
		}
		reference, err := loadImage(ctx, "reference", referenceInput)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to load reference image: %v", err)), nil
		}

		controller := workflow.New(exchanger, opts...)
		controller.Upload(workflow.SlotScene, scene)
		controller.Upload(workflow.SlotReference, reference)
		controller.Generate(ctx)

		snap := controller.Snapshot()
		if snap.Failure != nil {
			return mcp.NewToolResultError(snap.Failure.Message), nil
		}

		text := fmt.Sprintf("Generated image: %s", snap.Result)
		if snap.ResultURL != "" {
			text = fmt.Sprintf("Generated image: %s\nArchived at: %s", snap.Result, snap.ResultURL)
		}
		return mcp.NewToolResultText(text), nil
	}
}

// loadImage 支持 data URI 和 http(s) URL
func loadImage(ctx context.Context, name, input string) (*asset.ImageAsset, error) {
	input = strings.TrimSpace(input)
	switch {
	case strings.HasPrefix(input, "data:"):
		return asset.FromDataURI(name, input)
	case strings.HasPrefix(input, "http://"), strings.HasPrefix(input, "https://"):
		data, mimeType, err := utils.DownloadImageFromURL(ctx, input)
		if err != nil {
			return nil, err
		}
		common.WithFields(map[string]interface{}{
			"image_url": utils.TruncateForLog(input, 120),
			"mime_type": mimeType,
			"size":      len(data),
		}).Debug("Image downloaded")
		return asset.New(name, mimeType, data), nil
	default:
		return nil, fmt.Errorf("expected an http(s) URL or data URI")
	}
}
