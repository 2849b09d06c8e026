package config

import (
	"context"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"time"

	psnet "github.com/shirou/gopsutil/v3/net"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	// HTTP сервер
	ListenAddr string
	RulesFile  string
	Language   string
	IPv6       string
	SessionTTL time.Duration
	RateLimit  float64
	RateBurst  int

	// Zabbix настройки для самомониторинга
	MonitorEnable  bool
	ZabbixURL      string
	ZabbixUser     string
	ZabbixPassword string
	ZabbixHost     string
	SenderPort     int

	// Общие настройки
	Interval time.Duration
	LogLevel string

	// HTTP клиент настройки
	HTTPTimeout      time.Duration
	MaxRetries       int
	RetryBackoffBase time.Duration

	// Профилирование
	ProfileEnable  bool
	ProfileCPUFile string
	ProfileMemFile string
	ProfileTime    int
}

// NewConfig создает новую конфигурацию с значениями по умолчанию
func NewConfig() *Config {
	return &Config{
		ListenAddr:       ":8080",
		RulesFile:        "",
		Language:         "en_GB",
		IPv6:             "auto",
		SessionTTL:       30 * time.Minute,
		RateLimit:        20,
		RateBurst:        40,
		MonitorEnable:    false,
		ZabbixURL:        "http://localhost/api_jsonrpc.php",
		ZabbixUser:       "Admin",
		ZabbixPassword:   "zabbix",
		ZabbixHost:       "zbxinput",
		SenderPort:       10051,
		Interval:         60 * time.Second,
		LogLevel:         "info",
		HTTPTimeout:      30 * time.Second,
		MaxRetries:       3,
		RetryBackoffBase: 1 * time.Second,
		ProfileEnable:    false,
		ProfileCPUFile:   "",
		ProfileMemFile:   "",
		ProfileTime:      30,
	}
}

// Load загружает конфигурацию: файл, затем переменные окружения ZBX_*,
// затем флаги командной строки
func (c *Config) Load(cmd *cobra.Command) error {
	v := viper.New()
	v.SetEnvPrefix("ZBX")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path, err := cmd.Flags().GetString("config"); err == nil && path != "" {
		v.SetConfigFile(path)
		if ext := filepath.Ext(path); ext == ".yaml" || ext == ".yml" {
			v.SetConfigType("yaml")
		}
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}

	c.loadFrom(v)
	c.loadFromFlags(cmd)

	return c.Validate()
}

// loadFrom переносит значения, заданные в файле или окружении
func (c *Config) loadFrom(v *viper.Viper) {
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	num := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}
	flag := func(key string, dst *bool) {
		if v.IsSet(key) {
			*dst = v.GetBool(key)
		}
	}
	seconds := func(key string, dst *time.Duration) {
		if v.IsSet(key) {
			*dst = time.Duration(v.GetInt(key)) * time.Second
		}
	}

	str("listen", &c.ListenAddr)
	str("rules", &c.RulesFile)
	str("language", &c.Language)
	str("ipv6", &c.IPv6)
	seconds("session-ttl", &c.SessionTTL)
	if v.IsSet("rate-limit") {
		c.RateLimit = v.GetFloat64("rate-limit")
	}
	num("rate-burst", &c.RateBurst)

	flag("monitor", &c.MonitorEnable)
	str("zabbix-url", &c.ZabbixURL)
	str("zabbix-user", &c.ZabbixUser)
	str("zabbix-password", &c.ZabbixPassword)
	str("zabbix-host", &c.ZabbixHost)
	num("sender-port", &c.SenderPort)

	seconds("interval", &c.Interval)
	str("log-level", &c.LogLevel)
	seconds("http-timeout", &c.HTTPTimeout)
	num("max-retries", &c.MaxRetries)

	flag("profile", &c.ProfileEnable)
	str("profile-cpu", &c.ProfileCPUFile)
	str("profile-mem", &c.ProfileMemFile)
	num("profile-time", &c.ProfileTime)
}

// loadFromFlags флаги имеют наивысший приоритет
func (c *Config) loadFromFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	if flags.Changed("listen") {
		c.ListenAddr, _ = flags.GetString("listen")
	}
	if flags.Changed("rules") {
		c.RulesFile, _ = flags.GetString("rules")
	}
	if flags.Changed("language") {
		c.Language, _ = flags.GetString("language")
	}
	if flags.Changed("ipv6") {
		c.IPv6, _ = flags.GetString("ipv6")
	}
	if flags.Changed("session-ttl") {
		ttl, _ := flags.GetInt("session-ttl")
		c.SessionTTL = time.Duration(ttl) * time.Second
	}
	if flags.Changed("rate-limit") {
		c.RateLimit, _ = flags.GetFloat64("rate-limit")
	}
	if flags.Changed("rate-burst") {
		c.RateBurst, _ = flags.GetInt("rate-burst")
	}
	if flags.Changed("monitor") {
		c.MonitorEnable, _ = flags.GetBool("monitor")
	}
	if flags.Changed("zabbix-url") {
		c.ZabbixURL, _ = flags.GetString("zabbix-url")
	}
	if flags.Changed("zabbix-user") {
		c.ZabbixUser, _ = flags.GetString("zabbix-user")
	}
	if flags.Changed("zabbix-password") {
		c.ZabbixPassword, _ = flags.GetString("zabbix-password")
	}
	if flags.Changed("zabbix-host") {
		c.ZabbixHost, _ = flags.GetString("zabbix-host")
	}
	if flags.Changed("sender-port") {
		c.SenderPort, _ = flags.GetInt("sender-port")
	}
	if flags.Changed("interval") {
		intervalSec, _ := flags.GetInt("interval")
		c.Interval = time.Duration(intervalSec) * time.Second
	}
	if flags.Changed("log-level") {
		c.LogLevel, _ = flags.GetString("log-level")
	}
	if flags.Changed("profile") {
		c.ProfileEnable, _ = flags.GetBool("profile")
	}
	if flags.Changed("profile-cpu") {
		c.ProfileCPUFile, _ = flags.GetString("profile-cpu")
	}
	if flags.Changed("profile-mem") {
		c.ProfileMemFile, _ = flags.GetString("profile-mem")
	}
	if flags.Changed("profile-time") {
		c.ProfileTime, _ = flags.GetInt("profile-time")
	}
}

// Validate проверяет корректность конфигурации
func (c *Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen address is required")
	}
	switch c.IPv6 {
	case "auto", "on", "off":
	default:
		return fmt.Errorf("invalid ipv6 mode: %s (expected auto, on or off)", c.IPv6)
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	if c.RateLimit <= 0 || c.RateBurst <= 0 {
		return fmt.Errorf("rate limit and burst must be positive")
	}
	if c.Interval <= 0 {
		return fmt.Errorf("interval must be positive")
	}

	if c.MonitorEnable {
		if c.ZabbixURL == "" {
			return fmt.Errorf("zabbix URL is required")
		}
		if c.ZabbixHost == "" {
			return fmt.Errorf("zabbix host is required")
		}
		if c.SenderPort <= 0 || c.SenderPort > 65535 {
			return fmt.Errorf("invalid sender port: %d", c.SenderPort)
		}
		if c.MaxRetries <= 0 {
			return fmt.Errorf("max retries must be positive")
		}
	}

	// Проверяем уровень логирования
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s", c.LogLevel)
	}

	if c.ProfileEnable && c.ProfileTime <= 0 {
		return fmt.Errorf("profile time must be positive")
	}

	return nil
}

// AllowIPv6 решает, принимать ли IPv6 адреса в полях запросов. В режиме
// auto проверяет наличие глобального IPv6 адреса на интерфейсах.
func (c *Config) AllowIPv6(ctx context.Context) bool {
	switch c.IPv6 {
	case "on":
		return true
	case "off":
		return false
	}

	ifaces, err := psnet.InterfacesWithContext(ctx)
	if err != nil {
		return false
	}
	for _, iface := range ifaces {
		for _, addr := range iface.Addrs {
			ip, _, err := net.ParseCIDR(addr.Addr)
			if err != nil {
				ip = net.ParseIP(addr.Addr)
			}
			if ip != nil && ip.To4() == nil && !ip.IsLoopback() && !ip.IsLinkLocalUnicast() {
				return true
			}
		}
	}
	return false
}

// AddFlags добавляет флаги в cobra команду
func AddFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", "", "Path to config file (YAML/JSON/TOML)")
	cmd.Flags().String("listen", ":8080", "HTTP listen address")
	cmd.Flags().String("rules", "", "YAML file with page field rules (built-in rules when empty)")
	cmd.Flags().String("language", "en_GB", "Message language (en_GB, ru_RU)")
	cmd.Flags().String("ipv6", "auto", "IPv6 support in address fields (auto, on, off)")
	cmd.Flags().Int("session-ttl", 1800, "Session lifetime in seconds")
	cmd.Flags().Float64("rate-limit", 20, "Requests per second allowed from one IP")
	cmd.Flags().Int("rate-burst", 40, "Request burst allowed from one IP")
	cmd.Flags().String("log-level", "info", "Log level (debug, info, warn, error)")

	// Самомониторинг
	cmd.Flags().Bool("monitor", false, "Push service statistics to a Zabbix trapper")
	cmd.Flags().String("zabbix-url", "", "Zabbix API URL")
	cmd.Flags().String("zabbix-user", "", "Zabbix username")
	cmd.Flags().String("zabbix-password", "", "Zabbix password")
	cmd.Flags().String("zabbix-host", "", "Host name in Zabbix")
	cmd.Flags().Int("sender-port", 10051, "Zabbix trapper port")
	cmd.Flags().Int("interval", 60, "Statistics push interval in seconds")

	// Флаги профилирования
	cmd.Flags().Bool("profile", false, "Enable profiling (pprof routes and profile files)")
	cmd.Flags().String("profile-cpu", "", "CPU profile output file")
	cmd.Flags().String("profile-mem", "", "Memory profile output file")
	cmd.Flags().Int("profile-time", 30, "CPU profile duration in seconds")
}
