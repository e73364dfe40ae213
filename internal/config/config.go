package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Qwen     QwenConfig
	Chat     ChatConfig
	Storage  StorageConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
}

type DatabaseConfig struct {
	Connection string
}

type QwenConfig struct {
	APIKey      string
	Endpoint    string
	Timeout     time.Duration
	Temperature float64
	TopP        float64
}

type ChatConfig struct {
	DailyMessageLimit int
}

type StorageConfig struct {
	UploadPath      string
	MaxImageSize    int64
	MaxVideoSize    int64
	ThumbnailWidth  int
	ThumbnailHeight int
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "app.log.csv"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		Qwen: QwenConfig{
			APIKey:      getEnv("DASHSCOPE_API_KEY", ""),
			Endpoint:    getEnv("DASHSCOPE_ENDPOINT", ""),
			Timeout:     time.Duration(getEnvAsInt("DASHSCOPE_TIMEOUT_SECONDS", 60)) * time.Second,
			Temperature: getEnvAsFloat("DASHSCOPE_TEMPERATURE", 0.7),
			TopP:        getEnvAsFloat("DASHSCOPE_TOP_P", 0.8),
		},
		Chat: ChatConfig{
			DailyMessageLimit: getEnvAsInt("CHAT_DAILY_MESSAGE_LIMIT", 200),
		},
		Storage: StorageConfig{
			UploadPath:      getEnv("UPLOAD_PATH", "./uploads"),
			MaxImageSize:    int64(getEnvAsInt("MAX_IMAGE_SIZE_BYTES", 10*1024*1024)),
			MaxVideoSize:    int64(getEnvAsInt("MAX_VIDEO_SIZE_BYTES", 100*1024*1024)),
			ThumbnailWidth:  getEnvAsInt("THUMBNAIL_WIDTH", 320),
			ThumbnailHeight: getEnvAsInt("THUMBNAIL_HEIGHT", 320),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
