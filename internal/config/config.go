package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"ContentRefresher/internal/domain"
)

const (
	defaultTimezone = "UTC"

	configPathEnv     = "CONTENT_REFRESH_CONFIG"
	storeDriverEnv    = "CONTENT_STORE_DRIVER"
	storeURLEnv       = "CONTENT_STORE_URL"
	storeKeyEnv       = "CONTENT_STORE_KEY"
	apiBaseURLEnv     = "CONTENT_API_BASE_URL"
	apiKeyEnv         = "CONTENT_API_KEY"
	testModeEnv       = "CONTENT_REFRESH_TEST_MODE"
	logLevelEnv       = "LOG_LEVEL"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"

	testModeScopeLimit     = 1
	testModeCandidateLimit = 5
)

// Config holds every setting of the refresh job. It is built once at process
// start and passed down explicitly.
type Config struct {
	Logging       LoggingConfig      `yaml:"logging"`
	Store         StoreConfig        `yaml:"store"`
	API           APIConfig          `yaml:"api"`
	RateLimits    RateLimitConfig    `yaml:"rateLimits"`
	Refresh       RefreshConfig      `yaml:"refresh"`
	Scheduler     SchedulerConfig    `yaml:"scheduler"`
	Notifications NotificationConfig `yaml:"notifications"`
	AgeRanges     []string           `yaml:"ageRanges"`
	Topics        []TopicConfig      `yaml:"topics" validate:"min=1,dive"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level" validate:"omitempty,oneof=debug info warn warning error"`
}

// StoreConfig describes the persistence backend.
type StoreConfig struct {
	Driver    string        `yaml:"driver" validate:"oneof=postgres sqlite"`
	URL       string        `yaml:"url" validate:"required"`
	AccessKey string        `yaml:"accessKey" validate:"required_if=Driver postgres"`
	Retention time.Duration `yaml:"retention"`
}

// APIConfig describes the search/scrape provider.
type APIConfig struct {
	BaseURL            string        `yaml:"baseUrl" validate:"required,url"`
	APIKey             string        `yaml:"apiKey" validate:"required"`
	SearchEngine       string        `yaml:"searchEngine"`
	ScrapeEngine       string        `yaml:"scrapeEngine"`
	Country            string        `yaml:"country"`
	Language           string        `yaml:"language"`
	SearchLimit        int           `yaml:"searchLimit" validate:"gte=1"`
	BulkTimeout        time.Duration `yaml:"bulkTimeout"`
	ExploratoryTimeout time.Duration `yaml:"exploratoryTimeout"`
}

// RateLimitConfig holds the spacing enforced for each external resource.
type RateLimitConfig struct {
	Search time.Duration `yaml:"search"`
	Scrape time.Duration `yaml:"scrape"`
	Scope  time.Duration `yaml:"scope"`
}

// RefreshConfig parameterises the orchestrator.
type RefreshConfig struct {
	TestMode         bool `yaml:"testMode"`
	PerAgeRange      bool `yaml:"perAgeRange"`
	ScopeLimit       int  `yaml:"scopeLimit" validate:"gte=0"`
	CandidateLimit   int  `yaml:"candidateLimit" validate:"gte=0"`
	MinContentLength int  `yaml:"minContentLength" validate:"gte=0"`
	MinSnippetLength int  `yaml:"minSnippetLength" validate:"gte=0"`
	HealthCheck      bool `yaml:"healthCheck"`
}

// SchedulerConfig defines how often the long-running mode refreshes.
type SchedulerConfig struct {
	Interval time.Duration  `yaml:"interval"`
	Timezone string         `yaml:"timezone"`
	location *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// NotificationConfig encapsulates outbound channels (Telegram, etc.).
type NotificationConfig struct {
	Telegram TelegramConfig `yaml:"telegram"`
}

// TelegramConfig wires all data required to send messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// Enabled reports whether both credentials are present.
func (t TelegramConfig) Enabled() bool {
	return t.BotToken != "" && t.ChatID != ""
}

// TopicConfig is one taxonomy entry.
type TopicConfig struct {
	Key            string   `yaml:"key" validate:"required"`
	Label          string   `yaml:"label"`
	Queries        []string `yaml:"queries" validate:"min=1,dive,required"`
	TrustedSources []string `yaml:"trustedSources"`
}

// Load applies defaults, the optional YAML file and environment overrides,
// then validates the result. An empty path falls back to
// CONTENT_REFRESH_CONFIG. Any failure wraps domain.ErrConfig.
func Load(path string) (Config, error) {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("%w: read %s: %v", domain.ErrConfig, path, err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("%w: parse %s: %v", domain.ErrConfig, path, err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return Config{}, err
	}
	if cfg.Refresh.TestMode {
		cfg.ApplyTestMode()
	}
	if err := cfg.bindTimezone(); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks required credentials and value ranges.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("%w: invalid fields: %s", domain.ErrConfig, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", domain.ErrConfig, err)
	}
	return nil
}

// ApplyTestMode limits the run to one scope and five candidates and uses the
// longer exploratory timeout.
func (c *Config) ApplyTestMode() {
	c.Refresh.TestMode = true
	c.Refresh.ScopeLimit = testModeScopeLimit
	c.Refresh.CandidateLimit = testModeCandidateLimit
}

// APITimeout returns the client timeout for the current mode.
func (c Config) APITimeout() time.Duration {
	if c.Refresh.TestMode {
		return c.API.ExploratoryTimeout
	}
	return c.API.BulkTimeout
}

// DomainTopics converts the configured taxonomy.
func (c Config) DomainTopics() []domain.Topic {
	topics := make([]domain.Topic, 0, len(c.Topics))
	for _, t := range c.Topics {
		topics = append(topics, domain.Topic{
			Key:            t.Key,
			Label:          t.Label,
			Queries:        append([]string(nil), t.Queries...),
			TrustedSources: append([]string(nil), t.TrustedSources...),
		})
	}
	return topics
}

// DomainAgeRanges returns the age dimension, or nil when scopes are topic-only.
func (c Config) DomainAgeRanges() []domain.AgeRange {
	if !c.Refresh.PerAgeRange {
		return nil
	}
	out := make([]domain.AgeRange, 0, len(c.AgeRanges))
	for _, a := range c.AgeRanges {
		out = append(out, domain.AgeRange(a))
	}
	return out
}

// DSN builds the driver connection string, injecting the access key as the
// postgres password when the URL carries none.
func (s StoreConfig) DSN() (string, error) {
	if s.Driver != "postgres" || s.AccessKey == "" {
		return s.URL, nil
	}

	u, err := url.Parse(s.URL)
	if err != nil {
		return "", fmt.Errorf("%w: store url: %v", domain.ErrConfig, err)
	}
	if _, hasPassword := u.User.Password(); hasPassword {
		return s.URL, nil
	}
	user := "postgres"
	if u.User != nil && u.User.Username() != "" {
		user = u.User.Username()
	}
	u.User = url.UserPassword(user, s.AccessKey)
	return u.String(), nil
}

func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv(logLevelEnv); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(storeDriverEnv); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv(storeURLEnv); v != "" {
		c.Store.URL = v
	}
	if v := os.Getenv(storeKeyEnv); v != "" {
		c.Store.AccessKey = v
	}
	if v := os.Getenv(apiBaseURLEnv); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv(apiKeyEnv); v != "" {
		c.API.APIKey = v
	}
	if v := os.Getenv(testModeEnv); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q is not a boolean", domain.ErrConfig, testModeEnv, v)
		}
		c.Refresh.TestMode = enabled
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Notifications.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Notifications.Telegram.ChatID = v
	}
	return nil
}

func (c *Config) bindTimezone() error {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("%w: unknown timezone %s", domain.ErrConfig, tz)
	}
	c.Scheduler.location = loc
	return nil
}
