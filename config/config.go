package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/dyike/GenieGo/consts"
)

const (
	ProviderOpenAI   = "openai"
	ProviderDeepSeek = "deepseek"

	MarketYFAPI    = "yfapi"
	MarketYahoo    = "yahoo"
	MarketLongport = "longport"

	StorageSQLite = "sqlite"
	StorageRedis  = "redis"
	StorageMemory = "memory"
)

type Config struct {
	DataDir  string `json:"data_dir"`
	LogDir   string `json:"log_dir"`
	LogLevel string `json:"log_level"`
	Debug    bool   `json:"debug"`

	LLMProvider string  `json:"llm_provider"`
	ChatModel   string  `json:"chat_model"`
	BackendURL  string  `json:"backend_url"`
	Temperature float32 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`

	// AI Model API Keys
	DeepSeekAPIKey string `json:"deepseek_api_key"`

	// Market data
	MarketProvider       string `json:"market_provider"`
	MarketBaseURL        string `json:"market_base_url"`
	MarketAPIKey         string `json:"market_api_key"`
	MarketTimeoutSeconds int    `json:"market_timeout_seconds"`
	CacheTTLSeconds      int    `json:"cache_ttl_seconds"`
	MaxRequestsPerWindow int    `json:"max_requests_per_window"`
	RateWindowSeconds    int    `json:"rate_window_seconds"`

	// Longport API Configuration
	LongportAppKey      string `json:"longport_app_key"`
	LongportAppSecret   string `json:"longport_app_secret"`
	LongportAccessToken string `json:"longport_access_token"`

	// Session persistence
	StorageBackend string `json:"storage_backend"`
	RedisAddr      string `json:"redis_addr"`
	RedisPassword  string `json:"redis_password"`
	RedisDB        int    `json:"redis_db"`

	// Eino Debug configuration
	EinoDebugEnabled bool `json:"eino_debug_enabled"`
	EinoDebugPort    int  `json:"eino_debug_port"`
}

func DefaultConfig() *Config {
	currentDir, _ := os.Getwd()
	return DefaultConfigAt(currentDir)
}

// DefaultConfigAt is DefaultConfig with data and log directories under root.
func DefaultConfigAt(root string) *Config {
	cfg := DefaultConfigWithRoot(root)

	// Load environment variables from .env file
	_ = godotenv.Load()

	cfg.loadFromEnv()
	return cfg
}

// DefaultConfigWithRoot returns the built-in defaults with data and log
// directories placed under root. The environment is not consulted.
func DefaultConfigWithRoot(root string) *Config {
	return &Config{
		DataDir:  filepath.Join(root, "data"),
		LogDir:   filepath.Join(root, "logs"),
		LogLevel: "info",

		LLMProvider: ProviderOpenAI,
		ChatModel:   "deepseek-chat",
		BackendURL:  "https://api.deepseek.com/v1",
		Temperature: 0.7,
		MaxTokens:   1000,

		MarketProvider:       MarketYFAPI,
		MarketBaseURL:        "https://yfapi.net",
		MarketTimeoutSeconds: int(consts.DefaultMarketTimeout / time.Second),
		CacheTTLSeconds:      int(consts.MarketCacheTTL / time.Second),
		MaxRequestsPerWindow: consts.MarketMaxRequests,
		RateWindowSeconds:    int(consts.MarketRateWindow / time.Second),

		StorageBackend: StorageSQLite,
		RedisAddr:      "localhost:6379",

		EinoDebugEnabled: false,
		EinoDebugPort:    52538,
	}
}

func (c *Config) loadFromEnv() {
	if val := os.Getenv("GENIEGO_DATA_DIR"); val != "" {
		c.DataDir = val
	}
	if val := os.Getenv("GENIEGO_LOG_DIR"); val != "" {
		c.LogDir = val
	}
	if val := os.Getenv("GENIEGO_LOG_LEVEL"); val != "" {
		c.LogLevel = val
	}
	if val := os.Getenv("GENIEGO_DEBUG"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.Debug = enabled
		}
	}

	if val := os.Getenv("LLM_PROVIDER"); val != "" {
		c.LLMProvider = val
	}
	if val := os.Getenv("LLM_MODEL"); val != "" {
		c.ChatModel = val
	}
	if val := os.Getenv("BACKEND_URL"); val != "" {
		c.BackendURL = val
	}
	if val := os.Getenv("LLM_TEMPERATURE"); val != "" {
		if v, err := strconv.ParseFloat(val, 32); err == nil {
			c.Temperature = float32(v)
		}
	}
	if val := os.Getenv("LLM_MAX_TOKENS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxTokens = v
		}
	}
	if val := os.Getenv("DEEPSEEK_API_KEY"); val != "" {
		c.DeepSeekAPIKey = val
	}

	if val := os.Getenv("MARKET_PROVIDER"); val != "" {
		c.MarketProvider = val
	}
	if val := os.Getenv("MARKET_BASE_URL"); val != "" {
		c.MarketBaseURL = val
	}
	if val := os.Getenv("MARKET_API_KEY"); val != "" {
		c.MarketAPIKey = val
	}
	if val := os.Getenv("MARKET_TIMEOUT_SECONDS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MarketTimeoutSeconds = v
		}
	}
	if val := os.Getenv("MARKET_CACHE_TTL_SECONDS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.CacheTTLSeconds = v
		}
	}
	if val := os.Getenv("MARKET_MAX_REQUESTS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.MaxRequestsPerWindow = v
		}
	}
	if val := os.Getenv("MARKET_WINDOW_SECONDS"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.RateWindowSeconds = v
		}
	}

	if val := os.Getenv("LONGPORT_APP_KEY"); val != "" {
		c.LongportAppKey = val
	}
	if val := os.Getenv("LONGPORT_APP_SECRET"); val != "" {
		c.LongportAppSecret = val
	}
	if val := os.Getenv("LONGPORT_ACCESS_TOKEN"); val != "" {
		c.LongportAccessToken = val
	}

	if val := os.Getenv("STORAGE_BACKEND"); val != "" {
		c.StorageBackend = val
	}
	if val := os.Getenv("REDIS_ADDR"); val != "" {
		c.RedisAddr = val
	}
	if val := os.Getenv("REDIS_PASSWORD"); val != "" {
		c.RedisPassword = val
	}
	if val := os.Getenv("REDIS_DB"); val != "" {
		if v, err := strconv.Atoi(val); err == nil {
			c.RedisDB = v
		}
	}

	if val := os.Getenv("EINO_DEBUG_ENABLED"); val != "" {
		if enabled, err := strconv.ParseBool(val); err == nil {
			c.EinoDebugEnabled = enabled
		}
	}
	if val := os.Getenv("EINO_DEBUG_PORT"); val != "" {
		if port, err := strconv.Atoi(val); err == nil {
			c.EinoDebugPort = port
		}
	}
}

func (c Config) Validate() error {
	switch c.LLMProvider {
	case ProviderOpenAI, ProviderDeepSeek:
	default:
		return fmt.Errorf("unsupported llm_provider %q", c.LLMProvider)
	}
	switch c.MarketProvider {
	case MarketYFAPI, MarketYahoo, MarketLongport:
	default:
		return fmt.Errorf("unsupported market_provider %q", c.MarketProvider)
	}
	switch c.StorageBackend {
	case StorageSQLite, StorageRedis, StorageMemory:
	default:
		return fmt.Errorf("unsupported storage_backend %q", c.StorageBackend)
	}
	if strings.TrimSpace(c.ChatModel) == "" {
		return fmt.Errorf("chat_model is required")
	}
	if c.MaxTokens <= 0 {
		return fmt.Errorf("max_tokens must be positive")
	}
	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}
	if c.CacheTTLSeconds <= 0 {
		return fmt.Errorf("cache_ttl_seconds must be positive")
	}
	if c.MaxRequestsPerWindow <= 0 {
		return fmt.Errorf("max_requests_per_window must be positive")
	}
	if c.RateWindowSeconds <= 0 {
		return fmt.Errorf("rate_window_seconds must be positive")
	}
	if c.MarketTimeoutSeconds <= 0 {
		return fmt.Errorf("market_timeout_seconds must be positive")
	}
	return nil
}

func (c Config) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

func (c Config) RateWindow() time.Duration {
	return time.Duration(c.RateWindowSeconds) * time.Second
}

func (c Config) MarketTimeout() time.Duration {
	return time.Duration(c.MarketTimeoutSeconds) * time.Second
}

func (c *Config) EnsureDirectories() error {
	dirs := []string{c.DataDir, c.LogDir}
	for _, dir := range dirs {
		path := strings.TrimSpace(dir)
		if path == "" {
			continue
		}
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", path, err)
		}
	}
	return nil
}
