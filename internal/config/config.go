package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const DefaultAPIBaseURL = "https://discord.com/api/v10"

// Config stores runtime configuration for the dashboard service.
type Config struct {
	DiscordToken     string
	GuildID          string
	ChannelID        string
	APIBaseURL       string
	APITimeout       time.Duration
	DemoMode         bool
	PollInterval     time.Duration
	Debounce         time.Duration
	Cooldown         time.Duration
	MessageLimit     int
	StatsDays        int
	Location         *time.Location
	HTTPListenAddr   string
	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	WebDir           string
	SendRate         float64
	SendBurst        int
	PageTitle        string
	PageSubtitle     string
	LogLevel         string
	LogFormat        string
}

// Load reads the optional YAML file named by DISCORD_DASHBOARD_CONFIG and
// then environment variables, which take precedence. A missing token, guild
// or channel is not an error: the dashboard falls back to synthetic data.
func Load() (Config, error) {
	file, err := loadFile(strings.TrimSpace(os.Getenv("DISCORD_DASHBOARD_CONFIG")))
	if err != nil {
		return Config{}, err
	}
	s := settings{file: file}

	cfg := Config{
		GuildID:          s.stringSetting("DISCORD_GUILD_ID", ""),
		ChannelID:        s.stringSetting("DISCORD_CHANNEL_ID", ""),
		APITimeout:       s.durationSetting("DISCORD_TIMEOUT", 8*time.Second),
		PollInterval:     s.durationSetting("DISCORD_DASHBOARD_POLL_INTERVAL", time.Minute),
		Debounce:         s.durationSetting("DISCORD_DASHBOARD_DEBOUNCE", time.Second),
		Cooldown:         s.durationSetting("DISCORD_DASHBOARD_COOLDOWN", 500*time.Millisecond),
		MessageLimit:     s.intSetting("DISCORD_DASHBOARD_MESSAGE_LIMIT", 5),
		StatsDays:        s.intSetting("DISCORD_DASHBOARD_STATS_DAYS", 7),
		HTTPListenAddr:   s.stringSetting("DISCORD_DASHBOARD_LISTEN_ADDRESS", ":8080"),
		HTTPReadTimeout:  s.durationSetting("DISCORD_DASHBOARD_READ_TIMEOUT", 10*time.Second),
		HTTPWriteTimeout: s.durationSetting("DISCORD_DASHBOARD_WRITE_TIMEOUT", 10*time.Second),
		WebDir:           s.stringSetting("DISCORD_DASHBOARD_WEB_DIR", "web"),
		SendRate:         s.floatSetting("DISCORD_DASHBOARD_SEND_RATE", 1),
		SendBurst:        s.intSetting("DISCORD_DASHBOARD_SEND_BURST", 5),
		PageTitle:        s.stringSetting("DISCORD_DASHBOARD_TITLE", "Discord Server Dashboard"),
		PageSubtitle:     s.stringSetting("DISCORD_DASHBOARD_SUBTITLE", "Panel de actividad"),
		LogLevel:         s.stringSetting("DISCORD_DASHBOARD_LOG_LEVEL", "info"),
		LogFormat:        s.stringSetting("DISCORD_DASHBOARD_LOG_FORMAT", "json"),
	}

	if cfg.PollInterval <= 0 {
		return Config{}, fmt.Errorf("DISCORD_DASHBOARD_POLL_INTERVAL must be > 0")
	}
	if cfg.Debounce <= 0 {
		return Config{}, fmt.Errorf("DISCORD_DASHBOARD_DEBOUNCE must be > 0")
	}
	if cfg.Cooldown < 0 {
		return Config{}, fmt.Errorf("DISCORD_DASHBOARD_COOLDOWN must be >= 0")
	}
	if cfg.SendRate <= 0 || cfg.SendBurst <= 0 {
		return Config{}, fmt.Errorf("DISCORD_DASHBOARD_SEND_RATE and DISCORD_DASHBOARD_SEND_BURST must be > 0")
	}

	loc, err := loadLocation(s.stringSetting("DISCORD_DASHBOARD_TIMEZONE", "Local"))
	if err != nil {
		return Config{}, err
	}
	cfg.Location = loc

	baseURL := s.stringSetting("DISCORD_API_BASE_URL", DefaultAPIBaseURL)
	parsedURL, err := url.Parse(baseURL)
	if err != nil || parsedURL.Scheme == "" || parsedURL.Host == "" {
		return Config{}, fmt.Errorf("DISCORD_API_BASE_URL must be a valid absolute URL")
	}
	cfg.APIBaseURL = strings.TrimRight(parsedURL.String(), "/")

	token, err := loadToken(s)
	if err != nil {
		return Config{}, err
	}
	cfg.DiscordToken = token
	cfg.DemoMode = token == ""

	return cfg, nil
}

func loadToken(s settings) (string, error) {
	if token := s.stringSetting("DISCORD_TOKEN", ""); token != "" {
		return token, nil
	}

	secretPath := s.stringSetting("DISCORD_TOKEN_FILE", "")
	if secretPath == "" {
		return "", nil
	}

	secretData, err := os.ReadFile(secretPath)
	if err != nil {
		return "", fmt.Errorf("failed to read DISCORD_TOKEN_FILE: %w", err)
	}

	return strings.TrimSpace(string(secretData)), nil
}

func loadLocation(name string) (*time.Location, error) {
	if strings.EqualFold(name, "local") {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("DISCORD_DASHBOARD_TIMEZONE %q: %w", name, err)
	}
	return loc, nil
}

// fileConfig mirrors the YAML layout; every field maps onto one
// environment variable.
type fileConfig struct {
	Discord struct {
		Token      string `yaml:"token"`
		TokenFile  string `yaml:"token_file"`
		GuildID    string `yaml:"guild_id"`
		ChannelID  string `yaml:"channel_id"`
		APIBaseURL string `yaml:"api_base_url"`
		Timeout    string `yaml:"timeout"`
	} `yaml:"discord"`
	Dashboard struct {
		PollInterval string `yaml:"poll_interval"`
		Debounce     string `yaml:"debounce"`
		Cooldown     string `yaml:"cooldown"`
		MessageLimit int    `yaml:"message_limit"`
		StatsDays    *int   `yaml:"stats_days"`
		Timezone     string `yaml:"timezone"`
	} `yaml:"dashboard"`
	HTTP struct {
		ListenAddress string  `yaml:"listen_address"`
		ReadTimeout   string  `yaml:"read_timeout"`
		WriteTimeout  string  `yaml:"write_timeout"`
		WebDir        string  `yaml:"web_dir"`
		SendRate      float64 `yaml:"send_rate"`
		SendBurst     int     `yaml:"send_burst"`
	} `yaml:"http"`
	Page struct {
		Title    string `yaml:"title"`
		Subtitle string `yaml:"subtitle"`
	} `yaml:"page"`
	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

func loadFile(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read DISCORD_DASHBOARD_CONFIG: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", path, err)
	}

	values := map[string]string{
		"DISCORD_TOKEN":                    fc.Discord.Token,
		"DISCORD_TOKEN_FILE":               fc.Discord.TokenFile,
		"DISCORD_GUILD_ID":                 fc.Discord.GuildID,
		"DISCORD_CHANNEL_ID":               fc.Discord.ChannelID,
		"DISCORD_API_BASE_URL":             fc.Discord.APIBaseURL,
		"DISCORD_TIMEOUT":                  fc.Discord.Timeout,
		"DISCORD_DASHBOARD_POLL_INTERVAL":  fc.Dashboard.PollInterval,
		"DISCORD_DASHBOARD_DEBOUNCE":       fc.Dashboard.Debounce,
		"DISCORD_DASHBOARD_COOLDOWN":       fc.Dashboard.Cooldown,
		"DISCORD_DASHBOARD_TIMEZONE":       fc.Dashboard.Timezone,
		"DISCORD_DASHBOARD_LISTEN_ADDRESS": fc.HTTP.ListenAddress,
		"DISCORD_DASHBOARD_READ_TIMEOUT":   fc.HTTP.ReadTimeout,
		"DISCORD_DASHBOARD_WRITE_TIMEOUT":  fc.HTTP.WriteTimeout,
		"DISCORD_DASHBOARD_WEB_DIR":        fc.HTTP.WebDir,
		"DISCORD_DASHBOARD_TITLE":          fc.Page.Title,
		"DISCORD_DASHBOARD_SUBTITLE":       fc.Page.Subtitle,
		"DISCORD_DASHBOARD_LOG_LEVEL":      fc.Logging.Level,
		"DISCORD_DASHBOARD_LOG_FORMAT":     fc.Logging.Format,
	}
	if fc.Dashboard.MessageLimit != 0 {
		values["DISCORD_DASHBOARD_MESSAGE_LIMIT"] = strconv.Itoa(fc.Dashboard.MessageLimit)
	}
	if fc.Dashboard.StatsDays != nil {
		values["DISCORD_DASHBOARD_STATS_DAYS"] = strconv.Itoa(*fc.Dashboard.StatsDays)
	}
	if fc.HTTP.SendRate != 0 {
		values["DISCORD_DASHBOARD_SEND_RATE"] = strconv.FormatFloat(fc.HTTP.SendRate, 'f', -1, 64)
	}
	if fc.HTTP.SendBurst != 0 {
		values["DISCORD_DASHBOARD_SEND_BURST"] = strconv.Itoa(fc.HTTP.SendBurst)
	}
	return values, nil
}

// settings resolves a value from the environment first, then the file.
type settings struct {
	file map[string]string
}

func (s settings) lookup(name string) string {
	if value := strings.TrimSpace(os.Getenv(name)); value != "" {
		return value
	}
	return strings.TrimSpace(s.file[name])
}

func (s settings) durationSetting(name string, fallback time.Duration) time.Duration {
	value := s.lookup(name)
	if value == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(value)
	if err == nil {
		return parsed
	}

	// Accept plain integers as seconds for convenience (e.g. "2" => 2s).
	if seconds, parseErr := strconv.Atoi(value); parseErr == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}

	return fallback
}

func (s settings) intSetting(name string, fallback int) int {
	value := s.lookup(name)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}

	return parsed
}

func (s settings) floatSetting(name string, fallback float64) float64 {
	value := s.lookup(name)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}

	return parsed
}

func (s settings) stringSetting(name, fallback string) string {
	value := s.lookup(name)
	if value == "" {
		return fallback
	}

	return value
}
