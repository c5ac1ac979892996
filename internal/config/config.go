package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// APIServerConfig 保存 API 服务器特有的配置。
type APIServerConfig struct {
	Host         string        `mapstructure:"HOST"`
	Port         string        `mapstructure:"PORT"`
	ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
	CORS         CORSConfig    `mapstructure:"CORS"`
}

// CORSConfig holds configuration for CORS.
type CORSConfig struct {
	AllowedOrigins   []string `mapstructure:"ALLOWED_ORIGINS"`
	AllowedMethods   []string `mapstructure:"ALLOWED_METHODS"`
	AllowedHeaders   []string `mapstructure:"ALLOWED_HEADERS"`
	ExposedHeaders   []string `mapstructure:"EXPOSED_HEADERS"`
	AllowCredentials bool     `mapstructure:"ALLOW_CREDENTIALS"`
	MaxAge           int      `mapstructure:"MAX_AGE"`
}

// RedisConfig holds configuration for Redis.
type RedisConfig struct {
	Addr     string `mapstructure:"ADDR"`
	Password string `mapstructure:"PASSWORD"`
	DB       int    `mapstructure:"DB"`
}

// Config holds all configuration for the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	AppName    string          `mapstructure:"APP_NAME"`
	AppVersion string          `mapstructure:"APP_VERSION"`
	LogLevel   string          `mapstructure:"LOG_LEVEL"`
	LogFormat  string          `mapstructure:"LOG_FORMAT"` // "json" 或 "console"
	Server     ServerConfig    `mapstructure:"SERVER"`     // ChatServer (WebSocket) 的配置
	APIServer  APIServerConfig `mapstructure:"API_SERVER"`
	Upload     UploadConfig    `mapstructure:"UPLOAD"`
	Gemini     GeminiConfig    `mapstructure:"GEMINI"`
	Session    SessionConfig   `mapstructure:"SESSION"`
	Redis      RedisConfig     `mapstructure:"REDIS"`
	WebSocket  WebSocketConfig `mapstructure:"WEBSOCKET"`
}

// ServerConfig holds configuration for the streaming chat server.
type ServerConfig struct {
	Host           string        `mapstructure:"HOST"`
	Port           string        `mapstructure:"PORT"`
	WebSocketPath  string        `mapstructure:"WEBSOCKET_PATH"`
	ReadTimeout    time.Duration `mapstructure:"READ_TIMEOUT"`
	WriteTimeout   time.Duration `mapstructure:"WRITE_TIMEOUT"`
	MaxHeaderBytes int           `mapstructure:"MAX_HEADER_BYTES"`
}

// UploadConfig holds configuration for transient upload storage.
type UploadConfig struct {
	Dir           string        `mapstructure:"DIR"`
	MaxFileSizeMB int64         `mapstructure:"MAX_FILE_SIZE_MB"`
	SweepAge      time.Duration `mapstructure:"SWEEP_AGE"` // admin sweep-uploads 的默认阈值
}

// MaxFileSizeBytes 返回上传大小上限 (字节)。
func (c UploadConfig) MaxFileSizeBytes() int64 {
	return c.MaxFileSizeMB << 20
}

// GeminiConfig holds configuration for the generative-AI provider.
type GeminiConfig struct {
	Provider    string        `mapstructure:"PROVIDER"` // "gemini" 或 "dummy"
	APIKey      string        `mapstructure:"API_KEY"`
	Model       string        `mapstructure:"MODEL"`
	ImageModel  string        `mapstructure:"IMAGE_MODEL"`
	Temperature float32       `mapstructure:"TEMPERATURE"`
	TopP        float32       `mapstructure:"TOP_P"`
	TopK        int32         `mapstructure:"TOP_K"`
	Timeout     time.Duration `mapstructure:"TIMEOUT"` // 0 表示不设置超时
}

// SessionConfig holds configuration for chat history storage.
type SessionConfig struct {
	Backend     string        `mapstructure:"BACKEND"` // "memory" 或 "redis"
	TTL         time.Duration `mapstructure:"TTL"`
	MaxMessages int           `mapstructure:"MAX_MESSAGES"`
}

// WebSocketConfig holds configuration for WebSocket connections.
type WebSocketConfig struct {
	WriteWaitSeconds    int `mapstructure:"WRITE_WAIT_SECONDS"`
	PongWaitSeconds     int `mapstructure:"PONG_WAIT_SECONDS"`
	PingPeriodSeconds   int `mapstructure:"PING_PERIOD_SECONDS"`
	MaxMessageSizeBytes int `mapstructure:"MAX_MESSAGE_SIZE_BYTES"`
}

// LoadConfig reads configuration from file or environment variables.
// A .env file in the working directory, if present, is loaded into the environment first.
func LoadConfig(path string) (config Config, err error) {
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("APP_NAME", "Gemini-Proxy")
	v.SetDefault("APP_VERSION", "1.0.0")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	// Server Defaults (ChatServer)
	v.SetDefault("SERVER.HOST", "0.0.0.0")
	v.SetDefault("SERVER.PORT", "3001")
	v.SetDefault("SERVER.WEBSOCKET_PATH", "/ws/chat")
	v.SetDefault("SERVER.READ_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER.WRITE_TIMEOUT", 30*time.Second)
	v.SetDefault("SERVER.MAX_HEADER_BYTES", 1<<20) // 1 MB

	// APIServer Defaults
	v.SetDefault("API_SERVER.HOST", "0.0.0.0")
	v.SetDefault("API_SERVER.PORT", "3000")
	// 模型调用可能较慢，写超时需要比普通接口长
	v.SetDefault("API_SERVER.READ_TIMEOUT", 60*time.Second)
	v.SetDefault("API_SERVER.WRITE_TIMEOUT", 5*time.Minute)
	v.SetDefault("API_SERVER.CORS.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("API_SERVER.CORS.ALLOWED_METHODS", []string{"GET", "POST", "DELETE", "OPTIONS"})
	v.SetDefault("API_SERVER.CORS.ALLOWED_HEADERS", []string{"Accept", "Content-Type", "X-Requested-With"})
	v.SetDefault("API_SERVER.CORS.EXPOSED_HEADERS", []string{"Content-Length"})
	v.SetDefault("API_SERVER.CORS.ALLOW_CREDENTIALS", false)
	v.SetDefault("API_SERVER.CORS.MAX_AGE", 300) // 5 minutes

	// Upload Defaults
	v.SetDefault("UPLOAD.DIR", "./uploads")
	v.SetDefault("UPLOAD.MAX_FILE_SIZE_MB", 20)
	v.SetDefault("UPLOAD.SWEEP_AGE", time.Hour)

	// Gemini Defaults
	v.SetDefault("GEMINI.PROVIDER", "gemini")
	v.SetDefault("GEMINI.API_KEY", "")
	v.SetDefault("GEMINI.MODEL", "gemini-1.5-flash")
	v.SetDefault("GEMINI.IMAGE_MODEL", "gemini-2.5-flash-image")
	v.SetDefault("GEMINI.TEMPERATURE", 0.7)
	v.SetDefault("GEMINI.TOP_P", 0.95)
	v.SetDefault("GEMINI.TOP_K", 40)
	v.SetDefault("GEMINI.TIMEOUT", 0)

	// Session Defaults
	v.SetDefault("SESSION.BACKEND", "memory")
	v.SetDefault("SESSION.TTL", 24*time.Hour)
	v.SetDefault("SESSION.MAX_MESSAGES", 50)

	// Redis Defaults
	v.SetDefault("REDIS.ADDR", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)

	// WebSocket Defaults
	v.SetDefault("WEBSOCKET.WRITE_WAIT_SECONDS", 10)
	v.SetDefault("WEBSOCKET.PONG_WAIT_SECONDS", 60)
	v.SetDefault("WEBSOCKET.PING_PERIOD_SECONDS", 54) // (60 * 9) / 10
	v.SetDefault("WEBSOCKET.MAX_MESSAGE_SIZE_BYTES", 64<<10)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.AutomaticEnv()
	// GEMINI.API_KEY <- GEMINI_API_KEY, UPLOAD.DIR <- UPLOAD_DIR
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}
	err = config.Validate()
	return
}

// Validate checks values that have no sensible fallback.
func (c Config) Validate() error {
	if c.Upload.MaxFileSizeMB <= 0 {
		return errors.New("UPLOAD.MAX_FILE_SIZE_MB 必须大于 0")
	}
	if c.Upload.Dir == "" {
		return errors.New("UPLOAD.DIR 不能为空")
	}
	switch c.Session.Backend {
	case "memory", "redis":
	default:
		return errors.New("SESSION.BACKEND 只支持 memory 或 redis")
	}
	switch c.Gemini.Provider {
	case "gemini", "google", "dummy":
	default:
		return errors.New("GEMINI.PROVIDER 只支持 gemini 或 dummy")
	}
	return nil
}
