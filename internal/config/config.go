package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/omule0/ai-csv-analyst/internal/utils"
)

const (
	envPrefix = "CSVANALYST"
	dirName   = ".csv-analyst"
)

// Global configuration structure.
type Global struct {
	APIKey          string  `mapstructure:"api_key" yaml:"api_key"`
	DefaultModel    string  `mapstructure:"default_model" yaml:"default_model" validate:"required"`
	DefaultProvider string  `mapstructure:"default_provider" yaml:"default_provider" validate:"oneof=openrouter ollama"`
	MaxTokens       int     `mapstructure:"max_tokens" yaml:"max_tokens" validate:"gte=0"`
	Temperature     float64 `mapstructure:"temperature" yaml:"temperature" validate:"gte=0,lte=2"`
	Stream          bool    `mapstructure:"stream" yaml:"stream"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec" validate:"gte=0"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts" validate:"gte=0"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms" validate:"gte=0"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms" validate:"gte=0"`

	// Local runtimes (Ollama)
	OllamaHost       string `mapstructure:"ollama_host" yaml:"ollama_host" validate:"omitempty,url"`
	OllamaTimeoutSec int    `mapstructure:"ollama_timeout_sec" yaml:"ollama_timeout_sec" validate:"gte=0"`

	// Dataset summary
	SampleRows      int  `mapstructure:"sample_rows" yaml:"sample_rows" validate:"gte=0"`
	DistinctSample  int  `mapstructure:"distinct_sample" yaml:"distinct_sample" validate:"gte=0"`
	TopValues       int  `mapstructure:"top_values" yaml:"top_values" validate:"gte=0"`
	SummaryMaxBytes int  `mapstructure:"summary_max_bytes" yaml:"summary_max_bytes" validate:"gte=0"`
	FullEmbed       bool `mapstructure:"full_embed" yaml:"full_embed"`

	// HTTP server
	ServerAddr    string `mapstructure:"server_addr" yaml:"server_addr" validate:"required"`
	UploadLimitMB int    `mapstructure:"upload_limit_mb" yaml:"upload_limit_mb" validate:"gte=1"`
	SessionTTLMin int    `mapstructure:"session_ttl_min" yaml:"session_ttl_min" validate:"gte=1"`

	// Logging
	LogFile       string `mapstructure:"log_file" yaml:"log_file"`
	LogProduction bool   `mapstructure:"log_production" yaml:"log_production"`
}

// Dir returns ~/.csv-analyst.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, dirName), nil
}

// Save writes the given configuration to the cfgFile path. If cfgFile is empty,
// it writes to ~/.csv-analyst/config.yaml, creating the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		dir, err := Dir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := utils.SafeWriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from .env, environment, file, and defaults.
// Precedence: env > config file > defaults. Flags are applied by the caller.
func Load(cfgFile string) (*Global, error) {
	// .env in the working directory is optional
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", cfgFile, err)
		}
	} else {
		dir, err := Dir()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(dir)
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Defaults returns the built-in configuration without reading files or env.
func Defaults() *Global {
	v := viper.New()
	setDefaults(v)
	var c Global
	_ = v.Unmarshal(&c)
	return &c
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("api_key", "")
	v.SetDefault("default_model", "openai/gpt-4o-mini")
	v.SetDefault("default_provider", "openrouter")
	v.SetDefault("max_tokens", 2048)
	v.SetDefault("temperature", 0.3)
	v.SetDefault("stream", false)
	// HTTP/retry defaults
	v.SetDefault("http_timeout_sec", 60)
	v.SetDefault("retry_max_attempts", 3)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	// Ollama defaults
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("ollama_timeout_sec", 120)
	// Summary defaults
	v.SetDefault("sample_rows", 3)
	v.SetDefault("distinct_sample", 10)
	v.SetDefault("top_values", 5)
	v.SetDefault("summary_max_bytes", 32<<10)
	v.SetDefault("full_embed", false)
	// Server defaults
	v.SetDefault("server_addr", ":8080")
	v.SetDefault("upload_limit_mb", 20)
	v.SetDefault("session_ttl_min", 60)
	v.SetDefault("log_file", "")
	v.SetDefault("log_production", false)
}

var validate = newValidator()

// newValidator reports fields by their yaml key.
func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
	})
	return v
}

// Validate checks value ranges. The returned error lists each offending key.
func (c *Global) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate config: %w", err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed %q (got %v)", fe.Field(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// Keys lists the settable keys in display order.
func Keys() []string {
	return []string{
		"api_key", "default_model", "default_provider", "max_tokens", "temperature", "stream",
		"http_timeout_sec", "retry_max_attempts", "retry_base_delay_ms", "retry_max_delay_ms",
		"ollama_host", "ollama_timeout_sec",
		"sample_rows", "distinct_sample", "top_values", "summary_max_bytes", "full_embed",
		"server_addr", "upload_limit_mb", "session_ttl_min",
		"log_file", "log_production",
	}
}

// field finds the struct field tagged with yaml key.
func (c *Global) field(key string) (reflect.Value, bool) {
	rv := reflect.ValueOf(c).Elem()
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		if strings.SplitN(rt.Field(i).Tag.Get("yaml"), ",", 2)[0] == key {
			return rv.Field(i), true
		}
	}
	return reflect.Value{}, false
}

// Get formats the value of key for display.
func (c *Global) Get(key string) (string, error) {
	f, ok := c.field(key)
	if !ok {
		return "", fmt.Errorf("unknown key: %s", key)
	}
	return fmt.Sprint(f.Interface()), nil
}

// Set parses val into key and re-validates. On error c is left unchanged.
func (c *Global) Set(key, val string) error {
	next := *c
	f, ok := next.field(key)
	if !ok {
		return fmt.Errorf("unknown key: %s (valid keys: %s)", key, strings.Join(Keys(), ", "))
	}
	val = strings.TrimSpace(val)
	switch f.Kind() {
	case reflect.String:
		if key == "default_provider" {
			val = strings.ToLower(val)
			if val == "local" {
				val = "ollama"
			}
		}
		f.SetString(val)
	case reflect.Int:
		n, err := strconv.Atoi(val)
		if err != nil {
			return fmt.Errorf("invalid int for %s: %v", key, val)
		}
		f.SetInt(int64(n))
	case reflect.Float64:
		x, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return fmt.Errorf("invalid float for %s: %v", key, val)
		}
		f.SetFloat(x)
	case reflect.Bool:
		b, err := strconv.ParseBool(val)
		if err != nil {
			return fmt.Errorf("invalid bool for %s: %v", key, val)
		}
		f.SetBool(b)
	}
	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}
