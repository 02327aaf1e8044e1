package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scene-swap/common"
	"scene-swap/internal/genai/gemini"
	"scene-swap/internal/oss"
	"scene-swap/internal/session"
	"scene-swap/internal/tools"
	"scene-swap/internal/web"
	"scene-swap/internal/workflow"

	"github.com/mark3labs/mcp-go/server"
)

func main() {
	// 加载配置
	config, err := common.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	creds := common.NewCredentials(config.GenAIAPIKey)

	geminiClient, err := gemini.NewGeminiClientFromConfig(config, creds)
	if err != nil {
		common.Fatalf("Failed to create Gemini client: %v", err)
	}

	common.WithFields(map[string]interface{}{
		"mode":     config.ServerMode,
		"base_url": config.GenAIBaseURL,
		"model":    geminiClient.Model(),
		"api_key":  common.MaskAPIKey(creds.APIKey()),
		"archive":  config.ArchiveEnabled(),
	}).Info("Server starting")
	if !creds.Configured() {
		common.Warn("GENAI_API_KEY is not set, select a key before generating")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var opts []workflow.Option
	archiver, err := oss.NewArchiverFromConfig(ctx, config)
	if err != nil {
		common.Fatalf("Failed to create OSS archiver: %v", err)
	}
	if archiver != nil {
		opts = append(opts, workflow.WithArchiver(archiver))
	}

	switch config.ServerMode {
	case common.ServerModeStdio:
		err = serveStdio(geminiClient, opts)
	default:
		err = serveHTTP(ctx, config, creds, geminiClient, opts)
	}
	if err != nil {
		common.Fatalf("Server error: %v", err)
	}
}

// serveStdio 以 MCP stdio 方式提供 swap_subject 工具
func serveStdio(exchanger workflow.Exchanger, opts []workflow.Option) error {
	s := server.NewMCPServer(
		"Scene Swap MCP Server",
		"1.0.0",
		server.WithToolCapabilities(true),
	)

	if err := tools.RegisterSwapTools(s, exchanger, opts...); err != nil {
		return fmt.Errorf("failed to register tools: %w", err)
	}
	return server.ServeStdio(s)
}

// serveHTTP 提供网页和 JSON API，收到信号后优雅退出
func serveHTTP(ctx context.Context, config *common.Config, creds *common.Credentials, exchanger workflow.Exchanger, opts []workflow.Option) error {
	sessions := session.NewStore(session.Options{
		IdleTimeout: config.SessionIdleTimeout(),
		NewController: func() *workflow.Controller {
			return workflow.New(exchanger, opts...)
		},
	})
	go sessions.Run(ctx, time.Minute)

	app := web.NewApp(web.Options{
		Sessions:       sessions,
		Credentials:    creds,
		MaxUploadBytes: config.MaxUploadBytes(),
		SecureCookie:   config.SessionCookieSecure,
	})
	srv := web.NewHTTPServer(config.GetServerAddr(), web.NewRouter(app))

	errCh := make(chan error, 1)
	go func() {
		common.Infof("HTTP listening on %s", config.GetServerAddr())
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	common.Info("Server stopped")
	return nil
}
