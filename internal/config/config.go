package config

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// readSecret reads a Docker secret from a file path specified by an env var
// with _FILE suffix. If FOO is already set directly, the file is skipped.
// If FOO_FILE is set, reads the file content and sets FOO.
func readSecret(envKey string) {
	if os.Getenv(envKey) != "" {
		return
	}
	fileKey := envKey + "_FILE"
	filePath := os.Getenv(fileKey)
	if filePath == "" {
		return
	}
	data, err := os.ReadFile(filePath)
	if err != nil {
		return
	}
	val := strings.TrimSpace(string(data))
	os.Setenv(envKey, val)
}

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	S3        S3Config
	Ollama    OllamaConfig
	Piper     PiperConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port     string
	Env      string
	LogLevel string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type S3Config struct {
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Region          string
	Bucket          string
}

type OllamaConfig struct {
	URL            string
	VisionModel    string
	TextModel      string
	TimeoutSeconds int
}

type PiperConfig struct {
	URL            string
	TimeoutSeconds int
}

type AuthConfig struct {
	// JWTSecret enables bearer auth on the API group when non-empty.
	JWTSecret string
}

type RateLimitConfig struct {
	GeneratePerHour int
}

func Load() (*Config, error) {
	// Read Docker Swarm secrets from _FILE env vars before Viper binds
	readSecret("REDIS_PASSWORD")
	readSecret("S3_ACCESS_KEY_ID")
	readSecret("S3_SECRET_ACCESS_KEY")
	readSecret("JWT_SECRET")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	// Bind environment variables with underscores to nested config keys
	_ = viper.BindEnv("server.port", "SERVER_PORT")
	_ = viper.BindEnv("server.env", "SERVER_ENV")
	_ = viper.BindEnv("server.log_level", "LOG_LEVEL")
	_ = viper.BindEnv("redis.addr", "REDIS_ADDR")
	_ = viper.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = viper.BindEnv("redis.db", "REDIS_DB")
	_ = viper.BindEnv("s3.endpoint", "S3_ENDPOINT")
	_ = viper.BindEnv("s3.access_key_id", "S3_ACCESS_KEY_ID")
	_ = viper.BindEnv("s3.secret_access_key", "S3_SECRET_ACCESS_KEY")
	_ = viper.BindEnv("s3.region", "S3_REGION")
	_ = viper.BindEnv("s3.bucket", "S3_BUCKET")
	_ = viper.BindEnv("ollama.url", "OLLAMA_URL")
	_ = viper.BindEnv("ollama.vision_model", "OLLAMA_VLM_MODEL")
	_ = viper.BindEnv("ollama.text_model", "OLLAMA_TXT_MODEL")
	_ = viper.BindEnv("ollama.timeout", "OLLAMA_TIMEOUT")
	_ = viper.BindEnv("piper.url", "PIPER_URL")
	_ = viper.BindEnv("piper.timeout", "PIPER_TIMEOUT")
	_ = viper.BindEnv("auth.jwt_secret", "JWT_SECRET")
	_ = viper.BindEnv("ratelimit.generate_per_hour", "RATELIMIT_GENERATE_PER_HOUR")

	// Defaults
	viper.SetDefault("server.port", "8000")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("server.log_level", "info")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("s3.region", "auto")
	viper.SetDefault("ollama.url", "http://localhost:11434")
	viper.SetDefault("ollama.vision_model", "qwen2.5vl:7b")
	viper.SetDefault("ollama.text_model", "qwen2.5:7b")
	viper.SetDefault("ollama.timeout", 300)
	viper.SetDefault("piper.url", "http://localhost:5000")
	viper.SetDefault("piper.timeout", 120)
	viper.SetDefault("ratelimit.generate_per_hour", 20)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port:     viper.GetString("server.port"),
			Env:      viper.GetString("server.env"),
			LogLevel: viper.GetString("server.log_level"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		},
		S3: S3Config{
			Endpoint:        viper.GetString("s3.endpoint"),
			AccessKeyID:     viper.GetString("s3.access_key_id"),
			SecretAccessKey: viper.GetString("s3.secret_access_key"),
			Region:          viper.GetString("s3.region"),
			Bucket:          viper.GetString("s3.bucket"),
		},
		Ollama: OllamaConfig{
			URL:            viper.GetString("ollama.url"),
			VisionModel:    viper.GetString("ollama.vision_model"),
			TextModel:      viper.GetString("ollama.text_model"),
			TimeoutSeconds: viper.GetInt("ollama.timeout"),
		},
		Piper: PiperConfig{
			URL:            viper.GetString("piper.url"),
			TimeoutSeconds: viper.GetInt("piper.timeout"),
		},
		Auth: AuthConfig{
			JWTSecret: viper.GetString("auth.jwt_secret"),
		},
		RateLimit: RateLimitConfig{
			GeneratePerHour: viper.GetInt("ratelimit.generate_per_hour"),
		},
	}

	return cfg, nil
}
