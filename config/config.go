package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Config 应用程序配置结构体
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	LLM     LLMConfig     `mapstructure:"llm"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Cache   CacheConfig   `mapstructure:"cache"`
	Session SessionConfig `mapstructure:"session"`
	Export  ExportConfig  `mapstructure:"export"`
	Log     LogConfig     `mapstructure:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host            string        `mapstructure:"host"`                                     // 服务器主机
	Port            int           `mapstructure:"port" validate:"min=1,max=65535"`          // 服务器端口
	Mode            string        `mapstructure:"mode" validate:"oneof=debug release test"` // 运行模式
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"min=0"`            // 读取超时
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"min=0"`           // 写入超时，需覆盖模型调用耗时
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"min=0"`        // 优雅关闭等待时间
	MaxUploadMB     int64         `mapstructure:"max_upload_mb" validate:"min=1,max=1024"`  // 上传文件大小上限
	SecureCookies   bool          `mapstructure:"secure_cookies"`                           // 会话Cookie仅通过HTTPS发送
}

// LLMConfig 大语言模型配置
type LLMConfig struct {
	Provider    string        `mapstructure:"provider" validate:"oneof=gemini gemini-rest openai"` // 提供商
	Model       string        `mapstructure:"model"`                                               // 模型名称
	APIKey      string        `mapstructure:"api_key"`                                             // API密钥，支持 ${ENV} 形式
	BaseURL     string        `mapstructure:"base_url" validate:"omitempty,url"`                   // API端点
	Timeout     time.Duration `mapstructure:"timeout" validate:"min=0"`                            // 单次调用超时，0表示不限制
	MaxTokens   int           `mapstructure:"max_tokens" validate:"min=0"`                         // 最大生成token数量
	Temperature float32       `mapstructure:"temperature" validate:"min=0,max=2"`                  // 采样温度，0表示使用模型默认值
}

// FetchConfig 网页抓取配置
type FetchConfig struct {
	Timeout   time.Duration `mapstructure:"timeout" validate:"gt=0"` // 请求超时
	UserAgent string        `mapstructure:"user_agent"`              // User-Agent
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Type            string        `mapstructure:"type" validate:"oneof=memory redis"`         // 缓存类型：memory 或 redis
	Address         string        `mapstructure:"address" validate:"omitempty,hostname_port"` // Redis地址
	Password        string        `mapstructure:"password"`                                   // Redis密码
	DB              int           `mapstructure:"db" validate:"min=0"`                        // Redis数据库
	KeyPrefix       string        `mapstructure:"key_prefix"`                                 // 键前缀
	CleanupInterval time.Duration `mapstructure:"cleanup_interval" validate:"min=0"`          // 内存缓存清理间隔
	MaxEntries      int           `mapstructure:"max_entries" validate:"min=0"`               // 内存缓存条目上限，0表示不限制
}

// SessionConfig 会话配置
type SessionConfig struct {
	TTL time.Duration `mapstructure:"ttl" validate:"gt=0"` // 会话空闲过期时间
}

// ExportConfig PDF导出配置
type ExportConfig struct {
	FontPath string `mapstructure:"font_path"` // UTF-8 TrueType字体，用于导出韩文等非拉丁字符
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `mapstructure:"level" validate:"oneof=trace debug info warn warning error fatal panic"` // 日志级别
	File       string `mapstructure:"file"`                                                                   // 日志文件路径
	MaxSizeMB  int    `mapstructure:"max_size_mb" validate:"min=0"`                                           // 单个日志文件大小上限
	MaxBackups int    `mapstructure:"max_backups" validate:"min=0"`                                           // 保留的旧日志文件数量
	MaxAgeDays int    `mapstructure:"max_age_days" validate:"min=0"`                                          // 旧日志文件保留天数
	Compress   bool   `mapstructure:"compress"`                                                               // 是否压缩旧日志
}

// MaxUploadSize 上传大小上限（字节）
func (c ServerConfig) MaxUploadSize() int64 {
	return c.MaxUploadMB << 20
}

// Address 监听地址
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

var validate = validator.New()

// Load 从文件和环境变量加载配置
// configPath为空时在当前目录和 ./config 下查找 config.yaml，找不到则只使用默认值
func Load(configPath string) (*Config, error) {
	var config Config

	// 初始化viper
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// 尝试读取配置文件
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// 支持环境变量覆盖，例如 LLM_MODEL 覆盖 llm.model
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 解析配置到结构体
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	processEnvironmentVariables(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate 校验配置
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var validErrs validator.ValidationErrors
		if errors.As(err, &validErrs) {
			msgs := make([]string, 0, len(validErrs))
			for _, fe := range validErrs {
				msgs = append(msgs, fmt.Sprintf("%s failed on '%s'", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// processEnvironmentVariables 展开配置中的 ${VAR} 引用，并应用密钥相关的环境变量
func processEnvironmentVariables(cfg *Config) {
	cfg.LLM.APIKey = expandEnv(cfg.LLM.APIKey)
	cfg.LLM.BaseURL = expandEnv(cfg.LLM.BaseURL)
	cfg.Cache.Address = expandEnv(cfg.Cache.Address)
	cfg.Cache.Password = expandEnv(cfg.Cache.Password)
	cfg.Export.FontPath = expandEnv(cfg.Export.FontPath)

	// 未在配置中给出密钥时，按提供商读取常用的环境变量
	if cfg.LLM.APIKey == "" {
		switch cfg.LLM.Provider {
		case "openai":
			cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		default:
			cfg.LLM.APIKey = os.Getenv("GEMINI_API_KEY")
		}
	}
	if key := os.Getenv("LLM_API_KEY"); key != "" {
		cfg.LLM.APIKey = key
	}
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		cfg.Cache.Address = redisAddr
	}
	if redisPassword := os.Getenv("REDIS_PASSWORD"); redisPassword != "" {
		cfg.Cache.Password = redisPassword
	}
}

// expandEnv 只展开 ${VAR} 形式的引用，未设置的变量展开为空字符串
func expandEnv(value string) string {
	if !strings.Contains(value, "${") {
		return value
	}
	return os.Expand(value, os.Getenv)
}

// setDefaults 设置配置的默认值
func setDefaults(v *viper.Viper) {
	// 服务器默认配置
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "10m")
	v.SetDefault("server.shutdown_timeout", "10s")
	v.SetDefault("server.max_upload_mb", 32)
	v.SetDefault("server.secure_cookies", false)

	// LLM默认配置
	v.SetDefault("llm.provider", "gemini")
	v.SetDefault("llm.model", "gemini-3-pro-preview")
	v.SetDefault("llm.api_key", "")
	v.SetDefault("llm.base_url", "")
	v.SetDefault("llm.timeout", "0s")
	v.SetDefault("llm.max_tokens", 0)
	v.SetDefault("llm.temperature", 0)

	// 网页抓取默认配置
	v.SetDefault("fetch.timeout", "10s")
	v.SetDefault("fetch.user_agent", "")

	// 缓存默认配置
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.address", "localhost:6379")
	v.SetDefault("cache.password", "")
	v.SetDefault("cache.db", 0)
	v.SetDefault("cache.key_prefix", "tclass:")
	v.SetDefault("cache.cleanup_interval", "10m")
	v.SetDefault("cache.max_entries", 10000)

	// 会话默认配置
	v.SetDefault("session.ttl", "24h")

	// 导出默认配置
	v.SetDefault("export.font_path", "")

	// 日志默认配置
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age_days", 28)
	v.SetDefault("log.compress", false)
}
