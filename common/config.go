package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// ServerModeHTTP 启动 Web 界面与 JSON API
	ServerModeHTTP = "http"
	// ServerModeStdio 以 MCP stdio 方式提供 swap_subject 工具
	ServerModeStdio = "stdio"

	defaultModelName = "gemini-2.5-flash-image"
)

// Config 应用配置结构
type Config struct {
	// 初始 API Key，可为空，运行期间可通过凭据接口替换
	GenAIAPIKey    string
	GenAIBaseURL   string
	GenAIModelName string

	ServerMode    string
	ServerAddress string
	ServerPort    string

	// 上传大小上限（MB）
	MaxUploadMB int
	// 会话空闲多久后回收（分钟）
	SessionIdleMinutes int
	// 会话 Cookie 是否只走 HTTPS
	SessionCookieSecure bool

	// OSS 配置，OSSBucket 为空时不归档生成结果
	OSSEndpoint  string
	OSSRegion    string
	OSSAccessKey string
	OSSSecretKey string
	OSSBucket    string

	// 日志配置
	LogLevel  string // debug, info, warn, error
	LogFormat string // json, text
	LogOutput string // stdout, stderr, file
	LogFile   string
}

// LoadConfig 从 .env 文件和环境变量加载配置
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Fprintln(os.Stderr, "Warning: .env file not found, using environment variables")
	}

	config := &Config{
		GenAIAPIKey:         strings.TrimSpace(getEnv("GENAI_API_KEY", "")),
		GenAIBaseURL:        getEnv("GENAI_BASE_URL", ""),
		GenAIModelName:      getEnv("GENAI_MODEL_NAME", defaultModelName),
		ServerMode:          strings.ToLower(getEnv("SERVER_MODE", ServerModeHTTP)),
		ServerAddress:       getEnv("SERVER_ADDRESS", "0.0.0.0"),
		ServerPort:          getEnv("SERVER_PORT", "8080"),
		MaxUploadMB:         getEnvInt("MAX_UPLOAD_MB", 20),
		SessionIdleMinutes:  getEnvInt("SESSION_IDLE_MINUTES", 60),
		SessionCookieSecure: getEnvBool("SESSION_COOKIE_SECURE", false),
		OSSEndpoint:         getEnv("OSS_ENDPOINT", ""),
		OSSRegion:           getEnv("OSS_REGION", "us-east-1"),
		OSSAccessKey:        getEnv("OSS_ACCESS_KEY", ""),
		OSSSecretKey:        getEnv("OSS_SECRET_KEY", ""),
		OSSBucket:           getEnv("OSS_BUCKET", ""),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "text"),
		LogOutput:           getEnv("LOG_OUTPUT", "stdout"),
		LogFile:             getEnv("LOG_FILE", ""),
	}

	switch config.ServerMode {
	case ServerModeHTTP, ServerModeStdio:
	default:
		return nil, fmt.Errorf("unsupported SERVER_MODE: %s", config.ServerMode)
	}

	// stdio 模式下 stdout 是 MCP 协议通道，日志不能写到 stdout
	if config.ServerMode == ServerModeStdio && strings.EqualFold(config.LogOutput, "stdout") {
		config.LogOutput = "stderr"
	}

	if config.MaxUploadMB <= 0 {
		config.MaxUploadMB = 20
	}
	if config.SessionIdleMinutes <= 0 {
		config.SessionIdleMinutes = 60
	}

	logConfig := &LogConfig{
		Level:    config.LogLevel,
		Format:   config.LogFormat,
		Output:   config.LogOutput,
		FilePath: config.LogFile,
	}
	if err := InitLogger(logConfig); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return config, nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes" || value == "on"
}

// getEnvInt 获取整型环境变量
func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if i, err := strconv.Atoi(value); err == nil {
		return i
	}
	return defaultValue
}

// GetServerAddr 返回完整的服务器地址
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.ServerAddress, c.ServerPort)
}

// ArchiveEnabled 配置了 OSS 存储桶时归档生成结果
func (c *Config) ArchiveEnabled() bool {
	return c.OSSBucket != ""
}

// MaxUploadBytes 返回单个文件的上传上限
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// SessionIdleTimeout 返回会话回收阈值
func (c *Config) SessionIdleTimeout() time.Duration {
	return time.Duration(c.SessionIdleMinutes) * time.Minute
}
