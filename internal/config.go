package internal

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// APIConfig selects and configures the data provider
type APIConfig struct {
	Provider    string        `yaml:"provider"`
	BaseURL     string        `yaml:"base_url,omitempty"`
	TokenEnv    string        `yaml:"token_env,omitempty"`     // env var holding the user token
	AppTokenEnv string        `yaml:"app_token_env,omitempty"` // env var holding the app token, if the API wants one
	File        string        `yaml:"file,omitempty"`          // fixture path for the json-file provider
	Timeout     time.Duration `yaml:"timeout,omitempty"`
}

// CacheConfig controls the local cache
type CacheConfig struct {
	Enabled *bool  `yaml:"enabled,omitempty"` // defaults to true
	Dir     string `yaml:"dir,omitempty"`     // defaults to the config directory
}

// IsEnabled returns whether caching is on, defaulting to true
func (c CacheConfig) IsEnabled() bool {
	return c.Enabled == nil || *c.Enabled
}

// CategoryRule assigns a category to transactions whose description matches Pattern
type CategoryRule struct {
	Pattern   string   `yaml:"pattern"`              // Regex matched against description and merchant
	Category  string   `yaml:"category"`             // Category to assign
	MinAmount *float64 `yaml:"min_amount,omitempty"` // Optional minimum amount (absolute value)
	MaxAmount *float64 `yaml:"max_amount,omitempty"` // Optional maximum amount (absolute value)
	Before    string   `yaml:"before,omitempty"`     // Only match transactions before this date
	After     string   `yaml:"after,omitempty"`      // Only match transactions on or after this date

	// compiled fields
	regex      *regexp.Regexp  `yaml:"-"`
	minAmount  decimal.Decimal `yaml:"-"`
	maxAmount  decimal.Decimal `yaml:"-"`
	beforeDate Date            `yaml:"-"`
	afterDate  Date            `yaml:"-"`
}

// ExcludeRule hides matching transactions from views, optionally only within a time window
type ExcludeRule struct {
	Pattern string `yaml:"pattern"`
	Before  string `yaml:"before,omitempty"` // Exclude only before this date (YYYY-MM-DD)
	After   string `yaml:"after,omitempty"`  // Exclude only on or after this date (YYYY-MM-DD)

	// compiled fields
	regex      *regexp.Regexp `yaml:"-"`
	beforeDate Date           `yaml:"-"`
	afterDate  Date           `yaml:"-"`
}

type Config struct {
	API   APIConfig   `yaml:"api"`
	Cache CacheConfig `yaml:"cache,omitempty"`
	Retry RetryPolicy `yaml:"retry"`

	// Currency is the ISO code used when an account does not say.
	// Empty means the OS locale's currency.
	Currency string `yaml:"currency,omitempty"`

	// AccountAliases maps account IDs to names shown instead of the bank's
	AccountAliases map[string]string `yaml:"account_aliases,omitempty"`

	// Rules are tried in order; the first match sets the category
	Rules []CategoryRule `yaml:"rules,omitempty"`

	// Exclude is a list of exclusion rules (can be strings or objects with time bounds)
	Exclude []yaml.Node `yaml:"exclude,omitempty"`

	// compiled exclusion rules (not serialized)
	excludeRules []ExcludeRule `yaml:"-"`
}

// DefaultConfigPath returns the default config file path (<user config dir>/moneyline/config.yaml)
func DefaultConfigPath() string {
	dir := DefaultDataDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// NewDefaultConfig returns the config used when no file exists
func NewDefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Provider:    "http",
			TokenEnv:    "MONEYLINE_TOKEN",
			AppTokenEnv: "MONEYLINE_APP_TOKEN",
			Timeout:     30 * time.Second,
		},
		Retry: DefaultRetryPolicy(),
	}
}

// LoadConfig reads path on top of the defaults. A missing file at the default
// location is not an error; a missing file that was asked for explicitly is.
// Provider settings are left to Validate, which runs before talking to the bank.
func LoadConfig(path string, explicit bool) (*Config, error) {
	cfg := NewDefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.compile(); err != nil {
		return nil, err
	}
	if problems := cfg.settingsProblems(); len(problems) > 0 {
		return nil, invalidConfig(problems)
	}
	return cfg, nil
}

func (c *Config) compile() error {
	for i := range c.Rules {
		rule := &c.Rules[i]
		re, err := regexp.Compile("(?i)" + rule.Pattern) // case-insensitive
		if err != nil {
			return fmt.Errorf("invalid rule pattern %q: %w", rule.Pattern, err)
		}
		rule.regex = re
		if rule.MinAmount != nil {
			rule.minAmount = decimal.NewFromFloat(*rule.MinAmount)
		}
		if rule.MaxAmount != nil {
			rule.maxAmount = decimal.NewFromFloat(*rule.MaxAmount)
		}
		if rule.beforeDate, err = parseOptionalDate(rule.Before); err != nil {
			return fmt.Errorf("invalid 'before' date in rule %q: %w", rule.Pattern, err)
		}
		if rule.afterDate, err = parseOptionalDate(rule.After); err != nil {
			return fmt.Errorf("invalid 'after' date in rule %q: %w", rule.Pattern, err)
		}
	}

	// Parse exclude rules (supports both strings and objects)
	c.excludeRules = nil
	for _, node := range c.Exclude {
		var rule ExcludeRule

		switch node.Kind {
		case yaml.ScalarNode:
			rule.Pattern = node.Value
		case yaml.MappingNode:
			if err := node.Decode(&rule); err != nil {
				return fmt.Errorf("parsing exclude rule: %w", err)
			}
		default:
			return fmt.Errorf("invalid exclude rule format")
		}

		re, err := regexp.Compile("(?i)" + rule.Pattern)
		if err != nil {
			return fmt.Errorf("invalid exclude pattern %q: %w", rule.Pattern, err)
		}
		rule.regex = re
		if rule.beforeDate, err = parseOptionalDate(rule.Before); err != nil {
			return fmt.Errorf("invalid 'before' date in exclude %q: %w", rule.Pattern, err)
		}
		if rule.afterDate, err = parseOptionalDate(rule.After); err != nil {
			return fmt.Errorf("invalid 'after' date in exclude %q: %w", rule.Pattern, err)
		}
		c.excludeRules = append(c.excludeRules, rule)
	}
	return nil
}

func parseOptionalDate(s string) (Date, error) {
	if s == "" {
		return Date{}, nil
	}
	return ParseDate(s)
}

// Validate reports every problem with the config at once, provider settings included
func (c *Config) Validate() error {
	problems := append(c.providerProblems(), c.settingsProblems()...)
	if len(problems) > 0 {
		return invalidConfig(problems)
	}
	return nil
}

func (c *Config) providerProblems() []string {
	var problems []string
	if !IsKnownProvider(c.API.Provider) {
		problems = append(problems, fmt.Sprintf("unknown api provider %q (available: %v)", c.API.Provider, AvailableProviders()))
	}
	switch c.API.Provider {
	case "http":
		if c.API.BaseURL == "" {
			problems = append(problems, "api.base_url is required for the http provider")
		}
		if c.API.TokenEnv == "" {
			problems = append(problems, "api.token_env is required for the http provider")
		}
	case "json-file":
		if c.API.File == "" {
			problems = append(problems, "api.file is required for the json-file provider")
		}
	}
	return problems
}

// settingsProblems covers everything a command needs even when it never calls the bank
func (c *Config) settingsProblems() []string {
	var problems []string
	if c.Retry.MaxRetries < 0 {
		problems = append(problems, fmt.Sprintf("retry.max_retries must be >= 0, got %d", c.Retry.MaxRetries))
	}
	if c.Retry.BaseDelay <= 0 {
		problems = append(problems, fmt.Sprintf("retry.base_delay must be positive, got %s", c.Retry.BaseDelay))
	}
	if c.Retry.MaxDelay < c.Retry.BaseDelay {
		problems = append(problems, fmt.Sprintf("retry.max_delay (%s) must not be below retry.base_delay (%s)", c.Retry.MaxDelay, c.Retry.BaseDelay))
	}
	for _, rule := range c.Rules {
		if rule.Category == "" {
			problems = append(problems, fmt.Sprintf("rule %q has no category", rule.Pattern))
		}
	}
	return problems
}

func invalidConfig(problems []string) error {
	return fmt.Errorf("invalid config:\n  %s", strings.Join(problems, "\n  "))
}

// CacheDir returns where cache files live
func (c *Config) CacheDir() string {
	if c.Cache.Dir != "" {
		return c.Cache.Dir
	}
	return DefaultDataDir()
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	// Create parent directories if they don't exist
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// Matches returns true if the transaction matches this rule
func (r *CategoryRule) Matches(tx Transaction) bool {
	if r.regex == nil {
		return false
	}

	if !r.regex.MatchString(tx.Description) && (tx.Merchant == "" || !r.regex.MatchString(tx.Merchant)) {
		return false
	}

	amt := tx.Amount.Abs()
	if r.MinAmount != nil && amt.LessThan(r.minAmount) {
		return false
	}
	if r.MaxAmount != nil && amt.GreaterThan(r.maxAmount) {
		return false
	}

	date := DateOf(tx.Date)
	if !r.beforeDate.IsZero() && !date.Before(r.beforeDate) {
		return false
	}
	if !r.afterDate.IsZero() && date.Before(r.afterDate) {
		return false
	}

	return true
}

// Categorize returns the category of the first matching rule, falling back
// to the category the bank supplied
func (c *Config) Categorize(tx Transaction) string {
	if c != nil {
		for i := range c.Rules {
			if c.Rules[i].Matches(tx) {
				return c.Rules[i].Category
			}
		}
	}
	return tx.Category
}

// ShouldExclude returns true if the transaction matches any exclude rule
// whose time window contains the transaction date
func (c *Config) ShouldExclude(tx Transaction) bool {
	if c == nil {
		return false
	}
	date := DateOf(tx.Date)
	for _, rule := range c.excludeRules {
		if !rule.regex.MatchString(tx.Description) {
			continue
		}
		if !rule.beforeDate.IsZero() && !date.Before(rule.beforeDate) {
			continue
		}
		if !rule.afterDate.IsZero() && date.Before(rule.afterDate) {
			continue
		}
		return true
	}
	return false
}

// AccountName returns the alias for an account, or the bank's name
func (c *Config) AccountName(acc Account) string {
	if c != nil {
		if alias := c.AccountAliases[acc.ID]; alias != "" {
			return alias
		}
	}
	return acc.Name
}

// DisplayCurrency is the currency used when an account does not name one: the
// configured code, else the OS locale's, else NZD. The OS locale also drives
// number formatting when it agrees with the configured code.
func (c *Config) DisplayCurrency() Currency {
	code := ""
	if c != nil {
		code = c.Currency
	}
	sysCode, tag, ok := SystemCurrency()
	switch {
	case code == "" && ok:
		return GetCurrencyWithLocale(sysCode, tag)
	case code == "":
		code = fallbackCurrency
	case ok && strings.EqualFold(code, sysCode):
		return GetCurrencyWithLocale(sysCode, tag)
	}
	return GetCurrency(code)
}
