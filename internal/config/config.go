package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"storefront/internal/money"
)

// Config holds settings for the storefront binaries. Values come from the
// environment (optionally a .env file) and can be overridden by flags.
type Config struct {
	AppEnv   string
	LogLevel string
	HTTPAddr string

	StateBackend string // memory|pebble|badger
	StateDir     string

	SnapshotDir      string
	SnapshotInterval time.Duration

	// Kafka sinks
	KafkaBootstrap string
	ChangelogSink  string // none|file|kafka|both
	ChangelogDir   string
	TopicChangelog string
	ManifestSink   string // file|kafka|both
	TopicSnapshots string

	OrderSink       string // file|kafka|confluent|both
	OrdersDir       string
	TopicOrders     string
	OrderIndexGroup string

	CatalogPath string
	Currency    money.Currency
	MRPFallback float64
	ClampTotal  bool

	PaymentLatency time.Duration
	SessionIdleTTL time.Duration
}

// ChangelogFile is the JSONL file name used by the file changelog sink.
const ChangelogFile = "cart.jsonl"

// Load reads .env (if present), then the environment, then args.
func Load(args []string) (Config, error) {
	_ = godotenv.Load()
	return parse(args)
}

func parse(args []string) (Config, error) {
	var cfg Config
	var currency string
	fs := flag.NewFlagSet("storefront", flag.ContinueOnError)
	fs.StringVar(&cfg.AppEnv, "env", getEnv("APP_ENV", "dev"), "environment: dev|prod")
	fs.StringVar(&cfg.LogLevel, "log-level", getEnv("LOG_LEVEL", "info"), "log level")
	fs.StringVar(&cfg.HTTPAddr, "http", getEnv("HTTP_ADDR", ":8080"), "http listen address")
	fs.StringVar(&cfg.StateBackend, "state-backend", getEnv("STATE_BACKEND", "pebble"), "state backend: memory|pebble|badger")
	fs.StringVar(&cfg.StateDir, "state-dir", getEnv("STATE_DIR", "./data/carts"), "state data directory")
	fs.StringVar(&cfg.SnapshotDir, "snapshot-dir", getEnv("SNAPSHOT_DIR", "./snapshots"), "snapshot directory")
	fs.DurationVar(&cfg.SnapshotInterval, "snapshot-interval", getEnvDuration("SNAPSHOT_INTERVAL", time.Minute), "snapshot interval, 0 disables")
	fs.StringVar(&cfg.KafkaBootstrap, "kafka-bootstrap", getEnv("KAFKA_BOOTSTRAP", ""), "kafka bootstrap servers, e.g. localhost:9092")
	fs.StringVar(&cfg.ChangelogSink, "changelog-sink", getEnv("CHANGELOG_SINK", "file"), "changelog sink: none|file|kafka|both")
	fs.StringVar(&cfg.ChangelogDir, "changelog-dir", getEnv("CHANGELOG_DIR", "./changelog"), "changelog directory")
	fs.StringVar(&cfg.TopicChangelog, "topic-changelog", getEnv("TOPIC_CHANGELOG", "storefront.cart-changelog"), "kafka topic for cart changelog (compacted)")
	fs.StringVar(&cfg.ManifestSink, "manifest-sink", getEnv("MANIFEST_SINK", "file"), "manifest sink: file|kafka|both")
	fs.StringVar(&cfg.TopicSnapshots, "topic-snapshots", getEnv("TOPIC_SNAPSHOTS", "storefront.cart-snapshots"), "kafka topic for snapshot manifest (compacted)")
	fs.StringVar(&cfg.OrderSink, "order-sink", getEnv("ORDER_SINK", "file"), "order sink: file|kafka|confluent|both")
	fs.StringVar(&cfg.OrdersDir, "orders-dir", getEnv("ORDERS_DIR", "./orders"), "order output directory")
	fs.StringVar(&cfg.TopicOrders, "topic-orders", getEnv("TOPIC_ORDERS", "storefront.orders"), "kafka topic for placed orders")
	fs.StringVar(&cfg.OrderIndexGroup, "order-index-group", getEnv("ORDER_INDEX_GROUP", "storefront-orderindex"), "consumer group of the order indexer")
	fs.StringVar(&cfg.CatalogPath, "catalog", getEnv("CATALOG_PATH", ""), "YAML catalog override, empty uses the built-in catalog")
	fs.StringVar(&currency, "currency", getEnv("CURRENCY", string(money.INR)), "display currency: INR|USD")
	fs.Float64Var(&cfg.MRPFallback, "mrp-fallback", getEnvFloat("MRP_FALLBACK", 1.5), "list price multiplier for lines without an MRP")
	fs.BoolVar(&cfg.ClampTotal, "clamp-total", getEnvBool("CLAMP_TOTAL", true), "never report a negative final total")
	fs.DurationVar(&cfg.PaymentLatency, "payment-latency", getEnvDuration("PAYMENT_LATENCY", 2*time.Second), "simulated payment gateway latency")
	fs.DurationVar(&cfg.SessionIdleTTL, "session-idle-ttl", getEnvDuration("SESSION_IDLE_TTL", 30*time.Minute), "evict in-memory sessions idle this long, 0 disables")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	cur, err := money.ParseCurrency(currency)
	if err != nil {
		return Config{}, err
	}
	cfg.Currency = cur
	return cfg, cfg.Validate()
}

var errInvalid = errors.New("invalid config")

// Validate checks enum-valued and numeric settings.
func (c Config) Validate() error {
	check := func(name, v string, allowed ...string) error {
		for _, a := range allowed {
			if v == a {
				return nil
			}
		}
		return fmt.Errorf("%w: %s=%q, want one of %v", errInvalid, name, v, allowed)
	}
	if err := check("state-backend", c.StateBackend, "memory", "pebble", "badger"); err != nil {
		return err
	}
	if err := check("changelog-sink", c.ChangelogSink, "none", "file", "kafka", "both"); err != nil {
		return err
	}
	if err := check("manifest-sink", c.ManifestSink, "file", "kafka", "both"); err != nil {
		return err
	}
	if err := check("order-sink", c.OrderSink, "file", "kafka", "confluent", "both"); err != nil {
		return err
	}
	if c.MRPFallback < 1 {
		return fmt.Errorf("%w: mrp-fallback must be >= 1, got %v", errInvalid, c.MRPFallback)
	}
	if c.needsKafka() && c.KafkaBootstrap == "" {
		return fmt.Errorf("%w: kafka-bootstrap is required by the selected sinks", errInvalid)
	}
	return nil
}

func (c Config) needsKafka() bool {
	return c.ChangelogSink == "kafka" || c.ChangelogSink == "both" ||
		c.ManifestSink == "kafka" || c.ManifestSink == "both" ||
		c.OrderSink != "file"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def
	}
	return f
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
