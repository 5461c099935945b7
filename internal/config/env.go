package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"golang.org/x/term"
)

// DefaultJWTSecret is the placeholder secret shipped in the defaults. Tokens
// signed with it are forgeable by anyone who has read this file.
const DefaultJWTSecret = "change-me"

// Config contains all configuration parameters for the application.
// Note: the Blockfrost project id may be prompted at runtime - use PromptForProjectID()
type Config struct {
	Port      string `envconfig:"PORT" default:"8080"`
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	DatabasePath string        `envconfig:"DATABASE_PATH" default:"./edufund.db"`
	JWTSecret    string        `envconfig:"JWT_SECRET" default:"change-me"`
	JWTTTL       time.Duration `envconfig:"JWT_TTL" default:"24h"`
	DevMode      bool          `envconfig:"DEV_MODE" default:"false"`

	BlockfrostNetwork   string `envconfig:"BLOCKFROST_NETWORK" default:"preprod"`
	BlockfrostProjectID string `envconfig:"BLOCKFROST_PROJECT_ID"`
	BlockfrostURL       string `envconfig:"BLOCKFROST_URL"`
	SubmitVia           string `envconfig:"SUBMIT_VIA" default:"wallet"`
	CoinGeckoURL        string `envconfig:"COINGECKO_URL" default:"https://api.coingecko.com/api/v3"`

	// WalletProviders is a comma separated list of name=url bridge endpoints,
	// e.g. "eternl=http://127.0.0.1:9101,nami=http://127.0.0.1:9102".
	WalletProviders  string `envconfig:"WALLET_PROVIDERS"`
	WalletExtensions []int  `envconfig:"WALLET_EXTENSIONS" default:"30"`

	PlausibilityThresholdADA uint64 `envconfig:"PLAUSIBILITY_THRESHOLD_ADA" default:"1000000000"`
	FallbackBalanceLovelace  uint64 `envconfig:"FALLBACK_BALANCE_LOVELACE" default:"20000000"`

	SignTimeout    time.Duration `envconfig:"SIGN_TIMEOUT" default:"5m"`
	SubmitTimeout  time.Duration `envconfig:"SUBMIT_TIMEOUT" default:"1m"`
	ConfirmTimeout time.Duration `envconfig:"CONFIRM_TIMEOUT" default:"10m"`
	TTLSlots       uint64        `envconfig:"TTL_SLOTS" default:"7200"`
	SendCooldown   time.Duration `envconfig:"SEND_COOLDOWN" default:"0s"`
}

// cfg is the global configuration instance
var cfg *Config

// Init loads configuration from environment variables.
// A .env file in the working directory is read first when present.
func Init() error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	c, err := Load()
	if err != nil {
		return err
	}
	cfg = c
	return nil
}

// Load processes the environment into a fresh Config without touching the global instance.
func Load() (*Config, error) {
	c := &Config{}
	if err := envconfig.Process("", c); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Get returns the global configuration instance.
// Panics if Init() was not called.
func Get() *Config {
	if cfg == nil {
		panic("config not initialized, call Init() first")
	}
	return cfg
}

// Validate checks cross-field constraints envconfig cannot express.
func (c *Config) Validate() error {
	switch c.SubmitVia {
	case "wallet", "blockfrost":
	default:
		return fmt.Errorf("SUBMIT_VIA must be wallet or blockfrost, got %q", c.SubmitVia)
	}
	if c.PlausibilityThresholdADA == 0 {
		return errors.New("PLAUSIBILITY_THRESHOLD_ADA must be positive")
	}
	if _, err := c.Providers(); err != nil {
		return err
	}
	return nil
}

// CheckJWTSecret refuses the placeholder secret outside dev mode.
func (c *Config) CheckJWTSecret() error {
	if c.JWTSecret == "" {
		return errors.New("JWT_SECRET must not be empty")
	}
	if c.JWTSecret == DefaultJWTSecret && !c.DevMode {
		return errors.New("JWT_SECRET is the built-in default: set a real secret, or DEV_MODE=true for local use")
	}
	return nil
}

// ProviderEndpoint is one configured wallet bridge.
type ProviderEndpoint struct {
	Name string
	URL  string
}

// Providers parses WalletProviders into endpoints, keeping their configured order.
func (c *Config) Providers() ([]ProviderEndpoint, error) {
	if strings.TrimSpace(c.WalletProviders) == "" {
		return nil, nil
	}

	var out []ProviderEndpoint
	for _, part := range strings.Split(c.WalletProviders, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		name, url, ok := strings.Cut(part, "=")
		if !ok || strings.TrimSpace(name) == "" || strings.TrimSpace(url) == "" {
			return nil, fmt.Errorf("invalid WALLET_PROVIDERS entry %q: want name=url", part)
		}
		out = append(out, ProviderEndpoint{
			Name: strings.ToLower(strings.TrimSpace(name)),
			URL:  strings.TrimRight(strings.TrimSpace(url), "/"),
		})
	}
	return out, nil
}

// BlockfrostBaseURL returns the explicit BLOCKFROST_URL or the public endpoint for the network.
func (c *Config) BlockfrostBaseURL() string {
	if c.BlockfrostURL != "" {
		return strings.TrimRight(c.BlockfrostURL, "/")
	}
	return "https://cardano-" + c.BlockfrostNetwork + ".blockfrost.io/api/v0"
}

// PromptForProjectID prompts for the Blockfrost project id when it was not configured.
// The value is read without echoing. Does nothing when the id is already set.
func (c *Config) PromptForProjectID() error {
	if c.BlockfrostProjectID != "" {
		return nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return errors.New("BLOCKFROST_PROJECT_ID not set and stdin is not a terminal")
	}
	fmt.Fprint(os.Stderr, "Enter Blockfrost project id ("+c.BlockfrostNetwork+"): ")
	defer fmt.Fprintln(os.Stderr)

	raw, err := term.ReadPassword(int(os.Stdin.Fd()))
	if err != nil {
		return fmt.Errorf("failed to read project id: %w", err)
	}
	id := strings.TrimSpace(string(raw))
	clear(raw)
	if id == "" {
		return errors.New("project id cannot be empty")
	}
	c.BlockfrostProjectID = id
	return nil
}

// ExtensionsString renders WalletExtensions for logs.
func (c *Config) ExtensionsString() string {
	parts := make([]string, 0, len(c.WalletExtensions))
	for _, e := range c.WalletExtensions {
		parts = append(parts, strconv.Itoa(e))
	}
	return strings.Join(parts, ",")
}
