package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"hotel-price-watch/internal/logging"
)

// Config materialises application configuration.
type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Logging   logging.Config  `mapstructure:"logging"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Browser   BrowserConfig   `mapstructure:"browser"`
	Monitor   MonitorConfig   `mapstructure:"monitor"`
	Alerting  AlertingConfig  `mapstructure:"alerting"`
	Export    ExportConfig    `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// DatabaseConfig encapsulates optional PostgreSQL connectivity. When DSN is
// empty the file-backed store under monitor.data_dir is used instead.
type DatabaseConfig struct {
	DSN             string        `mapstructure:"dsn"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// SchedulerConfig governs sweep cadence.
type SchedulerConfig struct {
	Interval        time.Duration `mapstructure:"interval"`
	AlignToSweep    bool          `mapstructure:"align_to_sweep"`
	AdvisoryLockKey int64         `mapstructure:"advisory_lock_key"`
	StartupDelay    time.Duration `mapstructure:"startup_delay"`
}

// BrowserConfig covers headless Chromium page loading.
type BrowserConfig struct {
	Bin           string        `mapstructure:"bin"`
	Headless      bool          `mapstructure:"headless"`
	NoSandbox     bool          `mapstructure:"no_sandbox"`
	PageTimeout   time.Duration `mapstructure:"page_timeout"`
	SettleDelay   time.Duration `mapstructure:"settle_delay"`
	ScrollOffsets []int         `mapstructure:"scroll_offsets"`
	RateSelectors []string      `mapstructure:"rate_selectors"`
}

// MonitorConfig lists the watched targets and shared monitoring defaults.
type MonitorConfig struct {
	DataDir        string         `mapstructure:"data_dir"`
	DefaultDropPct float64        `mapstructure:"default_drop_pct"`
	Targets        []TargetConfig `mapstructure:"targets"`
}

// TargetConfig identifies one watched booking page. Expected and Target are
// optional anchors; DropPct overrides the global default when set.
type TargetConfig struct {
	Name     string   `mapstructure:"name"`
	URL      string   `mapstructure:"url"`
	Expected *float64 `mapstructure:"expected"`
	Target   *float64 `mapstructure:"target"`
	DropPct  *float64 `mapstructure:"drop_pct"`
}

// AlertingConfig defines alert routing.
type AlertingConfig struct {
	Enabled  bool           `mapstructure:"enabled"`
	Subject  string         `mapstructure:"subject"`
	Telegram TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig 描述 Telegram 告警参数。
type TelegramConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	BotToken string `mapstructure:"bot_token"`
	ChatID   string `mapstructure:"chat_id"`
	APIBase  string `mapstructure:"api_base"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("LODGEWATCHER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "lodgewatcher")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("scheduler.interval", "30m")
	v.SetDefault("scheduler.align_to_sweep", true)
	v.SetDefault("scheduler.advisory_lock_key", int64(0x6c6f6467))
	v.SetDefault("scheduler.startup_delay", "0s")

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.no_sandbox", true)
	v.SetDefault("browser.page_timeout", "45s")
	v.SetDefault("browser.settle_delay", "1500ms")
	v.SetDefault("browser.scroll_offsets", []int{600, 1200, 1800, 2400})
	v.SetDefault("browser.rate_selectors", []string{
		`button[data-rate-plan-code="SAVER"].selected`,
		`button[data-rate-plan-code="SAVER"][aria-pressed="true"]`,
		`button[data-rate-plan-code="SAVER"]`,
		`button[data-room-rate-type-name="Saver"]`,
		`button[data-ratename="Saver rate"]`,
		`button[data-ratename*="Saver" i]`,
	})

	v.SetDefault("monitor.data_dir", "data")
	v.SetDefault("monitor.default_drop_pct", 5.0)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.subject", "Hotel price alerts")
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")

	v.SetDefault("export.max_data_points", 100000)

	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", "30m")
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Scheduler.Interval <= 0 {
		return fmt.Errorf("scheduler.interval must be greater than zero")
	}
	if c.Browser.PageTimeout <= 0 {
		return fmt.Errorf("browser.page_timeout must be greater than zero")
	}
	if c.Monitor.DefaultDropPct < 0 {
		return fmt.Errorf("monitor.default_drop_pct cannot be negative")
	}
	for i, target := range c.Monitor.Targets {
		if target.Name == "" {
			return fmt.Errorf("monitor.targets[%d].name is required", i)
		}
		if target.URL == "" {
			return fmt.Errorf("monitor.targets[%d].url is required", i)
		}
		if target.DropPct != nil && *target.DropPct < 0 {
			return fmt.Errorf("monitor.targets[%d].drop_pct cannot be negative", i)
		}
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token 必须配置")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id 必须配置")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}

// DropPctFor resolves a target's drop threshold against the global default.
func (c *Config) DropPctFor(target TargetConfig) float64 {
	if target.DropPct != nil {
		return *target.DropPct
	}
	return c.Monitor.DefaultDropPct
}
