package config

import (
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type HTTP struct {
	Address      string        `yaml:"address" env:"HTTP_ADDRESS" env-default:":5000"`
	CookieName   string        `yaml:"cookie_name" env:"SESSION_COOKIE_NAME" env-default:"session"`
	CookieSecure bool          `yaml:"cookie_secure" env:"SESSION_COOKIE_SECURE" env-default:"false"`
	SessionTTL   time.Duration `yaml:"session_ttl" env:"SESSION_TTL" env-default:"168h"`
	ReadTimeout  time.Duration `yaml:"read_timeout" env:"HTTP_READ_TIMEOUT" env-default:"30s"`
	// Browser origins allowed to call the API with the session cookie. Empty
	// means same-origin only.
	AllowedOrigins []string `yaml:"allowed_origins" env:"HTTP_ALLOWED_ORIGINS" env-separator:","`
	// Continuations can keep a chat request open for minutes.
	WriteTimeout time.Duration `yaml:"write_timeout" env:"HTTP_WRITE_TIMEOUT" env-default:"15m"`
}

type DeepInfra struct {
	APIKey            string        `env:"DEEPINFRA_API_KEY"`
	BaseURL           string        `yaml:"base_url" env:"DEEPINFRA_BASE_URL" env-default:"https://api.deepinfra.com/v1/openai"`
	Timeout           time.Duration `yaml:"timeout" env:"DEEPINFRA_TIMEOUT" env-default:"90s"`
	Temperature       float32       `yaml:"temperature" env:"DEEPINFRA_TEMPERATURE" env-default:"0.7"`
	MaxTokens         int           `yaml:"max_tokens" env:"DEEPINFRA_MAX_TOKENS" env-default:"2048"`
	ContextTokenLimit int           `yaml:"context_token_limit" env:"DEEPINFRA_CONTEXT_TOKEN_LIMIT" env-default:"0"`
}

type Venice struct {
	URL     string        `yaml:"url" env:"VENICE_URL" env-default:"https://outerface.venice.ai/api/inference/chat"`
	Timeout time.Duration `yaml:"timeout" env:"VENICE_TIMEOUT" env-default:"60s"`
}

type OpenRouter struct {
	APIKey            string        `env:"OPENROUTER_API_KEY"`
	BaseURL           string        `yaml:"base_url" env:"OPENROUTER_BASE_URL" env-default:"https://openrouter.ai/api/v1"`
	ChatFreeURL       string        `yaml:"chat_free_url" env:"CHATFREE_URL" env-default:"https://chatfreeai.com/api/chat"`
	Timeout           time.Duration `yaml:"timeout" env:"OPENROUTER_TIMEOUT" env-default:"60s"`
	CatalogTimeout    time.Duration `yaml:"catalog_timeout" env:"OPENROUTER_CATALOG_TIMEOUT" env-default:"10s"`
	CatalogTTL        time.Duration `yaml:"catalog_ttl" env:"OPENROUTER_CATALOG_TTL" env-default:"1h"`
	MaxContinuations  int           `yaml:"max_continuations" env:"OPENROUTER_MAX_CONTINUATIONS" env-default:"8"`
	ContinuationDelay time.Duration `yaml:"continuation_delay" env:"OPENROUTER_CONTINUATION_DELAY" env-default:"1s"`
}

type StorageBackend string

const (
	StorageBackendFile   = StorageBackend("file")
	StorageBackendRedis  = StorageBackend("redis")
	StorageBackendMemory = StorageBackend("memory")
)

type Storage struct {
	Backend     StorageBackend `yaml:"backend" env:"STORAGE_BACKEND" env-default:"file"`
	HistoryFile string         `yaml:"history_file" env:"HISTORY_FILE" env-default:"/tmp/history.txt"`
	Redis       Redis          `yaml:"redis"`
}

type Redis struct {
	Endpoint  string `yaml:"endpoint" env:"REDIS_ENDPOINT" env-default:"localhost:6379"`
	Password  string `env:"REDIS_PASSWORD"`
	DB        int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	KeyPrefix string `yaml:"key_prefix" env:"REDIS_KEY_PREFIX" env-default:"relay"`
}

type Log struct {
	Level string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
}

type Config struct {
	HTTP       HTTP       `yaml:"http"`
	DeepInfra  DeepInfra  `yaml:"deepinfra"`
	Venice     Venice     `yaml:"venice"`
	OpenRouter OpenRouter `yaml:"openrouter"`
	Storage    Storage    `yaml:"storage"`
	Log        Log        `yaml:"log"`
}

// LoadConfig reads cfgPath (when set) and then applies environment overrides.
func LoadConfig(cfgPath string) (*Config, error) {
	var cfg Config
	if cfgPath != "" {
		if err := cleanenv.ReadConfig(cfgPath, &cfg); err != nil {
			return nil, err
		}
		return &cfg, nil
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
