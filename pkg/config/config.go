package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for a harvest run
type Config struct {
	Browser   BrowserConfig   `yaml:"browser" json:"browser"`
	Listing   ListingConfig   `yaml:"listing" json:"listing"`
	Run       RunConfig       `yaml:"run" json:"run"`
	Progress  ProgressConfig  `yaml:"progress" json:"progress"`
	Sink      SinkConfig      `yaml:"sink" json:"sink"`
	Outreach  OutreachConfig  `yaml:"outreach" json:"outreach"`
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`
	Retry     RetryConfig     `yaml:"retry" json:"retry"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
}

// BrowserConfig controls the automation session
type BrowserConfig struct {
	Headless          bool          `yaml:"headless" json:"headless"`
	ChromePath        string        `yaml:"chrome_path" json:"chrome_path"`
	UserAgent         string        `yaml:"user_agent" json:"user_agent"`
	ProxyServer       string        `yaml:"proxy_server" json:"proxy_server"`
	BlockHeavyAssets  bool          `yaml:"block_heavy_assets" json:"block_heavy_assets"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout" json:"navigation_timeout"`
	PanelTimeout      time.Duration `yaml:"panel_timeout" json:"panel_timeout"`
	InitialSettle     time.Duration `yaml:"initial_settle" json:"initial_settle"`
	ClickSettle       time.Duration `yaml:"click_settle" json:"click_settle"`
	EscapeSettle      time.Duration `yaml:"escape_settle" json:"escape_settle"`
	ScrollStep        int           `yaml:"scroll_step" json:"scroll_step"`
	Selectors         Selectors     `yaml:"selectors" json:"selectors"`
}

// Selectors are the CSS selectors used to read the feed and the detail panel
type Selectors struct {
	Feed     string `yaml:"feed" json:"feed"`
	Card     string `yaml:"card" json:"card"`
	CardLink string `yaml:"card_link" json:"card_link"`
	Panel    string `yaml:"panel" json:"panel"`
	Title    string `yaml:"title" json:"title"`
	Category string `yaml:"category" json:"category"`
	Rating   string `yaml:"rating" json:"rating"`
	Reviews  string `yaml:"reviews" json:"reviews"`
	Phone    string `yaml:"phone" json:"phone"`
	Website  string `yaml:"website" json:"website"`
	Address  string `yaml:"address" json:"address"`
}

// ListingConfig controls incremental growth of the candidate list
type ListingConfig struct {
	StableRounds     int           `yaml:"stable_rounds" json:"stable_rounds"`
	SettleInterval   time.Duration `yaml:"settle_interval" json:"settle_interval"`
	ContainerRetries int           `yaml:"container_retries" json:"container_retries"`
	MaxCandidates    int           `yaml:"max_candidates" json:"max_candidates"`
}

// RunConfig holds per-run parameters
type RunConfig struct {
	SeedURL string        `yaml:"seed_url" json:"seed_url"`
	Quota   int           `yaml:"quota" json:"quota"`
	Timeout time.Duration `yaml:"timeout" json:"timeout"`
}

// ProgressConfig selects the progress store backing
type ProgressConfig struct {
	Backend   string `yaml:"backend" json:"backend"` // file | sqlite | postgres
	Directory string `yaml:"directory" json:"directory"`
	DSN       string `yaml:"dsn" json:"dsn"`
	// Key pins the state key; empty derives one from the seed URL
	Key string `yaml:"key" json:"key"`
}

// SinkConfig selects where finished records go
type SinkConfig struct {
	Type  string `yaml:"type" json:"type"` // jsonl | csv | postgres
	Path  string `yaml:"path" json:"path"`
	DSN   string `yaml:"dsn" json:"dsn"`
	Table string `yaml:"table" json:"table"`
}

// OutreachConfig configures the text-generation collaborator
type OutreachConfig struct {
	Enabled     bool          `yaml:"enabled" json:"enabled"`
	BaseURL     string        `yaml:"base_url" json:"base_url"`
	Model       string        `yaml:"model" json:"model"`
	APIKey      string        `yaml:"api_key" json:"api_key"`
	Timeout     time.Duration `yaml:"timeout" json:"timeout"`
	SenderName  string        `yaml:"sender_name" json:"sender_name"`
	Services    []string      `yaml:"services" json:"services"`
	Temperature float64       `yaml:"temperature" json:"temperature"`
}

// RateLimitConfig paces detail-panel opens
type RateLimitConfig struct {
	ActionsPerMinute int    `yaml:"actions_per_minute" json:"actions_per_minute"`
	Strategy         string `yaml:"strategy" json:"strategy"` // token_bucket | sliding_window
}

// RetryConfig holds retry configuration for transient collaborator failures
type RetryConfig struct {
	Enabled      bool          `yaml:"enabled" json:"enabled"`
	MaxAttempts  int           `yaml:"max_attempts" json:"max_attempts"`
	BaseDelay    time.Duration `yaml:"base_delay" json:"base_delay"`
	MaxDelay     time.Duration `yaml:"max_delay" json:"max_delay"`
	Multiplier   float64       `yaml:"multiplier" json:"multiplier"`
	JitterFactor float64       `yaml:"jitter_factor" json:"jitter_factor"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
	JSON  bool   `yaml:"json" json:"json"`
}

// DefaultSelectors returns the selectors of the map search results feed
func DefaultSelectors() Selectors {
	return Selectors{
		Feed:     `div[role="feed"]`,
		Card:     `div[role="article"]`,
		CardLink: `a[href*="/maps/place/"]`,
		Panel:    `div[role="main"]`,
		Title:    `h1.DUwDvf`,
		Category: `button.DkEaL`,
		Rating:   `div.F7nice span[aria-hidden="true"]`,
		Reviews:  `div.F7nice span[aria-label]`,
		Phone:    `button[data-item-id*="phone"]`,
		Website:  `a[data-item-id*="authority"]`,
		Address:  `button[data-item-id="address"]`,
	}
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Browser: BrowserConfig{
			Headless:          true,
			UserAgent:         "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			BlockHeavyAssets:  true,
			NavigationTimeout: 60 * time.Second,
			PanelTimeout:      10 * time.Second,
			InitialSettle:     2 * time.Second,
			ClickSettle:       800 * time.Millisecond,
			EscapeSettle:      700 * time.Millisecond,
			ScrollStep:        8000,
			Selectors:         DefaultSelectors(),
		},
		Listing: ListingConfig{
			StableRounds:     3,
			SettleInterval:   1500 * time.Millisecond,
			ContainerRetries: 3,
			MaxCandidates:    500,
		},
		Run: RunConfig{
			Quota:   25,
			Timeout: 30 * time.Minute,
		},
		Progress: ProgressConfig{
			Backend:   "file",
			Directory: "",
		},
		Sink: SinkConfig{
			Type:  "jsonl",
			Path:  "./output/places.jsonl",
			Table: "places",
		},
		Outreach: OutreachConfig{
			Enabled:     true,
			BaseURL:     "https://api.openai.com/v1",
			Model:       "gpt-4o-mini",
			Timeout:     30 * time.Second,
			SenderName:  "Our team",
			Services:    []string{"website design", "local SEO"},
			Temperature: 0.7,
		},
		RateLimit: RateLimitConfig{
			ActionsPerMinute: 30,
			Strategy:         "token_bucket",
		},
		Retry: RetryConfig{
			Enabled:      true,
			MaxAttempts:  3,
			BaseDelay:    1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
			JitterFactor: 0.1,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFromEnv loads configuration from PLACEHARVEST_* environment variables
func (c *Config) LoadFromEnv() error {
	if seed := os.Getenv("PLACEHARVEST_SEED_URL"); seed != "" {
		c.Run.SeedURL = seed
	}
	if quota := os.Getenv("PLACEHARVEST_QUOTA"); quota != "" {
		val, err := strconv.Atoi(quota)
		if err != nil {
			return fmt.Errorf("invalid PLACEHARVEST_QUOTA: %w", err)
		}
		c.Run.Quota = val
	}
	if headless := os.Getenv("PLACEHARVEST_HEADLESS"); headless != "" {
		c.Browser.Headless = strings.ToLower(headless) == "true"
	}
	if chrome := os.Getenv("CHROME_BIN"); chrome != "" {
		c.Browser.ChromePath = chrome
	}
	if proxy := os.Getenv("PLACEHARVEST_PROXY"); proxy != "" {
		c.Browser.ProxyServer = proxy
	}

	if backend := os.Getenv("PLACEHARVEST_PROGRESS_BACKEND"); backend != "" {
		c.Progress.Backend = backend
	}
	if dir := os.Getenv("PLACEHARVEST_PROGRESS_DIR"); dir != "" {
		c.Progress.Directory = dir
	}
	if dsn := os.Getenv("PLACEHARVEST_PROGRESS_DSN"); dsn != "" {
		c.Progress.DSN = dsn
	}

	if sinkType := os.Getenv("PLACEHARVEST_SINK"); sinkType != "" {
		c.Sink.Type = sinkType
	}
	if sinkPath := os.Getenv("PLACEHARVEST_SINK_PATH"); sinkPath != "" {
		c.Sink.Path = sinkPath
	}
	if sinkDSN := os.Getenv("PLACEHARVEST_SINK_DSN"); sinkDSN != "" {
		c.Sink.DSN = sinkDSN
	}

	if apiKey := os.Getenv("PLACEHARVEST_OPENAI_API_KEY"); apiKey != "" {
		c.Outreach.APIKey = apiKey
	} else if apiKey := os.Getenv("OPENAI_API_KEY"); apiKey != "" {
		c.Outreach.APIKey = apiKey
	}
	if baseURL := os.Getenv("PLACEHARVEST_OUTREACH_BASE_URL"); baseURL != "" {
		c.Outreach.BaseURL = baseURL
	}
	if model := os.Getenv("PLACEHARVEST_OUTREACH_MODEL"); model != "" {
		c.Outreach.Model = model
	}

	if apm := os.Getenv("PLACEHARVEST_ACTIONS_PER_MINUTE"); apm != "" {
		var val int
		fmt.Sscanf(apm, "%d", &val)
		if val > 0 {
			c.RateLimit.ActionsPerMinute = val
		}
	}

	if logLevel := os.Getenv("PLACEHARVEST_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}

	return nil
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for a config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		".placeharvest.yaml",
		".placeharvest.yml",
		filepath.Join(home, ".config", "placeharvest", "config.yaml"),
		filepath.Join(home, ".config", "placeharvest", "config.yml"),
		filepath.Join(home, ".placeharvest.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Run.SeedURL != "" {
		u, err := url.Parse(c.Run.SeedURL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("seed URL %q is not an absolute URL", c.Run.SeedURL))
		}
	}
	if c.Run.Quota <= 0 {
		errs = append(errs, errors.New("quota must be positive"))
	}

	if c.Listing.StableRounds < 1 {
		errs = append(errs, errors.New("stable rounds must be at least 1"))
	}
	if c.Listing.SettleInterval < 0 {
		errs = append(errs, errors.New("settle interval cannot be negative"))
	}
	if c.Listing.ContainerRetries < 1 {
		errs = append(errs, errors.New("container retries must be at least 1"))
	}
	if c.Listing.MaxCandidates <= 0 {
		errs = append(errs, errors.New("max candidates must be positive"))
	}

	if c.Browser.PanelTimeout <= 0 {
		errs = append(errs, errors.New("panel timeout must be positive"))
	}
	if c.Browser.NavigationTimeout <= 0 {
		errs = append(errs, errors.New("navigation timeout must be positive"))
	}
	if c.Browser.Selectors.Feed == "" || c.Browser.Selectors.Card == "" || c.Browser.Selectors.Title == "" {
		errs = append(errs, errors.New("feed, card and title selectors are required"))
	}

	switch strings.ToLower(c.Progress.Backend) {
	case "file", "sqlite":
	case "postgres":
		if c.Progress.DSN == "" {
			errs = append(errs, errors.New("postgres progress backend requires a DSN"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown progress backend %q", c.Progress.Backend))
	}

	switch strings.ToLower(c.Sink.Type) {
	case "jsonl", "csv":
		if c.Sink.Path == "" {
			errs = append(errs, errors.New("sink path is required"))
		}
	case "postgres":
		if c.Sink.DSN == "" {
			errs = append(errs, errors.New("postgres sink requires a DSN"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown sink type %q", c.Sink.Type))
	}

	if c.Outreach.Enabled && c.Outreach.Timeout <= 0 {
		errs = append(errs, errors.New("outreach timeout must be positive"))
	}

	if c.RateLimit.ActionsPerMinute < 0 {
		errs = append(errs, errors.New("actions per minute cannot be negative"))
	}
	switch c.RateLimit.Strategy {
	case "token_bucket", "sliding_window", "":
	default:
		errs = append(errs, fmt.Errorf("unknown rate limit strategy %q", c.RateLimit.Strategy))
	}

	if c.Retry.MaxAttempts < 0 {
		errs = append(errs, errors.New("max retry attempts cannot be negative"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if seed, ok := flags["seed-url"].(string); ok && seed != "" {
		c.Run.SeedURL = seed
	}
	if quota, ok := flags["quota"].(int); ok && quota > 0 {
		c.Run.Quota = quota
	}
	if timeout, ok := flags["timeout"].(time.Duration); ok && timeout > 0 {
		c.Run.Timeout = timeout
	}
	if headless, ok := flags["headless"].(bool); ok {
		c.Browser.Headless = headless
	}
	if proxy, ok := flags["proxy"].(string); ok && proxy != "" {
		c.Browser.ProxyServer = proxy
	}
	if backend, ok := flags["progress-backend"].(string); ok && backend != "" {
		c.Progress.Backend = backend
	}
	if sinkType, ok := flags["sink"].(string); ok && sinkType != "" {
		c.Sink.Type = sinkType
	}
	if sinkPath, ok := flags["sink-path"].(string); ok && sinkPath != "" {
		c.Sink.Path = sinkPath
	}
	if outreach, ok := flags["outreach"].(bool); ok {
		c.Outreach.Enabled = outreach
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".placeharvest.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
