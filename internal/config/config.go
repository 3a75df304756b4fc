package config

import (
	"bytes"
	_ "embed"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/spf13/viper"

	actions "github.com/goliatone/go-auth-actions"
)

//go:embed defaults.yaml
var defaults []byte

// PlaceholderSigningKey is the token signing key shipped in defaults.yaml.
const PlaceholderSigningKey = "change-me"

var ErrInsecureSigningKey = goerrors.New("token.signing_key must be set outside debug mode", goerrors.CategoryValidation).
	WithTextCode("INSECURE_SIGNING_KEY")

// ---- Root ----

type Config struct {
	HTTP     HTTPConfig      `mapstructure:"http"`
	Realm    RealmConfig     `mapstructure:"realm"`
	Token    TokenConfig     `mapstructure:"token"`
	Database DatabaseConfig  `mapstructure:"database"`
	Redis    RedisConfig     `mapstructure:"redis"`
	Kafka    KafkaConfig     `mapstructure:"kafka"`
	SMTP     SMTPConfig      `mapstructure:"smtp"`
	Admin    AdminAuthConfig `mapstructure:"admin_auth"`
	Metrics  MetricsConfig   `mapstructure:"metrics"`
	Log      LogConfig       `mapstructure:"log"`
	Clients  []ClientConfig  `mapstructure:"clients"`
}

var _ actions.Config = Config{}

// ---- Leaf structs ----

type HTTPConfig struct {
	Addr          string `mapstructure:"addr"`
	Prefix        string `mapstructure:"prefix"`
	SessionCookie string `mapstructure:"session_cookie"`
	Debug         bool   `mapstructure:"debug"`
}

type RealmConfig struct {
	Name                     string        `mapstructure:"name"`
	BaseURL                  string        `mapstructure:"base_url"`
	DefaultClientID          string        `mapstructure:"default_client_id"`
	AdminActionTokenLifespan time.Duration `mapstructure:"admin_action_token_lifespan"`
	VerifyEmailTokenType     string        `mapstructure:"verify_email_token_type"`
}

type TokenConfig struct {
	Issuer     string `mapstructure:"issuer"`
	SigningKey string `mapstructure:"signing_key"`
}

type DatabaseConfig struct {
	DSN          string        `mapstructure:"dsn"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	PingTimeout  time.Duration `mapstructure:"ping_timeout"`
}

type RedisConfig struct {
	URL           string        `mapstructure:"url"`
	SessionPrefix string        `mapstructure:"session_prefix"`
	SessionTTL    time.Duration `mapstructure:"session_ttl"`
}

type KafkaConfig struct {
	Enabled        bool           `mapstructure:"enabled"`
	Brokers        []string       `mapstructure:"brokers"`
	ClientID       string         `mapstructure:"client_id"`
	DomainTopic    string         `mapstructure:"domain_topic"`
	AdminTopic     string         `mapstructure:"admin_topic"`
	IncludedEvents []string       `mapstructure:"included_events"`
	Timeout        time.Duration  `mapstructure:"timeout"`
	Properties     map[string]any `mapstructure:"properties"`
}

type SMTPConfig struct {
	Host     string        `mapstructure:"host"`
	Port     int           `mapstructure:"port"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	From     string        `mapstructure:"from"`
	StartTLS bool          `mapstructure:"start_tls"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type AdminAuthConfig struct {
	Enabled       bool     `mapstructure:"enabled"`
	SigningKey    string   `mapstructure:"signing_key"`
	SigningMethod string   `mapstructure:"signing_method"`
	JWKSURLs      []string `mapstructure:"jwks_urls"`
	Issuer        string   `mapstructure:"issuer"`
	RequiredRole  string   `mapstructure:"required_role"`
	TokenLookup   string   `mapstructure:"token_lookup"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level    string `mapstructure:"level"`
	Encoding string `mapstructure:"encoding"`
}

type ClientConfig struct {
	ClientID     string   `mapstructure:"client_id"`
	Enabled      bool     `mapstructure:"enabled"`
	RootURL      string   `mapstructure:"root_url"`
	BaseURL      string   `mapstructure:"base_url"`
	RedirectURIs []string `mapstructure:"redirect_uris"`
}

// Load reads embedded defaults, merges user YAML (if provided), and applies env overrides (ACTIONS_*).
func Load(path string) (Config, error) {
	v := viper.New()

	// embedded defaults
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Config{}, err
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.MergeInConfig(); err != nil {
			return Config{}, err
		}
	}

	// env override (ACTIONS_*), e.g. ACTIONS_REALM_NAME
	v.SetEnvPrefix("ACTIONS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// InsecureSigningKey reports whether the token signing key is empty or the
// shipped placeholder.
func (c Config) InsecureSigningKey() bool {
	key := strings.TrimSpace(c.Token.SigningKey)
	return key == "" || key == PlaceholderSigningKey
}

// Validate rejects settings that are only acceptable with http.debug on.
func (c Config) Validate() error {
	if c.InsecureSigningKey() && !c.HTTP.Debug {
		return ErrInsecureSigningKey
	}
	return nil
}

// ---- actions.Config ----

func (c Config) GetRealm() string {
	return c.Realm.Name
}

func (c Config) GetBaseURL() string {
	return c.Realm.BaseURL
}

func (c Config) GetDefaultClientID() string {
	return c.Realm.DefaultClientID
}

func (c Config) GetAdminActionTokenLifespan() time.Duration {
	return c.Realm.AdminActionTokenLifespan
}

func (c Config) GetVerifyEmailTokenType() actions.TokenType {
	return actions.TokenType(c.Realm.VerifyEmailTokenType)
}

// ActionClients converts the seeded clients
func (c Config) ActionClients() []*actions.Client {
	out := make([]*actions.Client, 0, len(c.Clients))
	for _, cc := range c.Clients {
		out = append(out, &actions.Client{
			ClientID:     cc.ClientID,
			Enabled:      cc.Enabled,
			RootURL:      cc.RootURL,
			BaseURL:      cc.BaseURL,
			RedirectURIs: cc.RedirectURIs,
		})
	}
	return out
}
