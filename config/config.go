package config

import (
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/joho/godotenv"

	"github.com/2HgO/aura-go/utils"
)

type Config struct {
	HTTPAddr string `env:"HTTP_ADDR" default:":8080" validate:"required"`
	LogLevel string `env:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	OpenAIKey     string `env:"OPENAI_API_KEY"`
	OpenAIBaseURL string `env:"OPENAI_BASE_URL" default:"https://api.openai.com/v1" validate:"url"`
	OpenAIModel   string `env:"OPENAI_MODEL" default:"gpt-4o-mini"`

	AuraAPIURL string `env:"NEXT_PUBLIC_AURA_API_URL" default:"https://aura.adex.network" validate:"url"`

	EthereumRPCURL string `env:"ETHEREUM_RPC_URL" default:"https://eth.llamarpc.com"`
	PolygonRPCURL  string `env:"POLYGON_RPC_URL" default:"https://polygon-rpc.com"`
	ArbitrumRPCURL string `env:"ARBITRUM_RPC_URL" default:"https://arb1.arbitrum.io/rpc"`

	WalletPrivateKey string `env:"WALLET_PRIVATE_KEY"`

	X402PaymentEndpoint string        `env:"X402_PAYMENT_ENDPOINT"`
	X402WalletAddress   string        `env:"X402_WALLET_ADDRESS" validate:"omitempty,eth_addr"`
	X402Network         string        `env:"X402_NETWORK" default:"base"`
	X402Asset           string        `env:"X402_ASSET" default:"0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913"`
	PaymentValidity     time.Duration `env:"PAYMENT_VALIDITY" default:"24h"`
	PaymentRequestTTL   time.Duration `env:"PAYMENT_REQUEST_TTL" default:"24h"`
	PaymentBaseURL      string        `env:"PAYMENT_BASE_URL" default:"https://pay.x402.org"`

	QuoteSource    string        `env:"QUOTE_SOURCE" default:"parity" validate:"oneof=parity onchain"`
	AutomationTick time.Duration `env:"AUTOMATION_TICK" default:"60s"`
	SimulationMode bool          `env:"SIMULATION_MODE" default:"true"`

	DataDBDSN    string `env:"DATA_DB_DSN"`
	RedisURL     string `env:"REDIS_URL"`
	TxDBURL      string `env:"TX_DB_URL"`
	KafkaBrokers string `env:"KAFKA_BROKERS"`
	KafkaTopic   string `env:"KAFKA_TOPIC" default:"aura.events"`
	WebhookURL   string `env:"WEBHOOK_URL"`
	WebhookKey   string `env:"WEBHOOK_KEY"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" default:"10"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" default:"20"`
	// TrustedProxies lists the IPs and CIDR ranges whose X-Forwarded-For header is believed.
	TrustedProxies string `env:"TRUSTED_PROXIES"`
}

var envDecoder = schema.NewDecoder()

func init() {
	envDecoder.SetAliasTag("env")
	envDecoder.IgnoreUnknownKeys(true)
	envDecoder.RegisterConverter(time.Duration(0), func(s string) reflect.Value {
		d, err := time.ParseDuration(s)
		if err != nil {
			return reflect.Value{}
		}
		return reflect.ValueOf(d)
	})
}

// Load reads configuration from an optional .env file followed by the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromEnviron(os.Environ())
}

func FromEnviron(environ []string) (*Config, error) {
	cfg := new(Config)
	if err := defaults.Set(cfg); err != nil {
		return nil, err
	}

	values := map[string][]string{}
	for _, kv := range environ {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || value == "" {
			continue
		}
		values[key] = []string{value}
	}
	if err := envDecoder.Decode(cfg, values); err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, err
	}
	if _, err := utils.ParseTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Brokers() []string {
	if c.KafkaBrokers == "" {
		return nil
	}
	return strings.Split(c.KafkaBrokers, ",")
}

func (c *Config) TxDBAddresses() []string {
	if c.TxDBURL == "" {
		return nil
	}
	return strings.Split(c.TxDBURL, ",")
}
