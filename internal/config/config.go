package config

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// LockBackend selects the concurrency guard implementation.
const (
	LockBackendMemory   = "memory"
	LockBackendPostgres = "postgres"
)

// Config holds application level configuration loaded from environment and flags.
type Config struct {
	RunAddress       string
	DatabaseURI      string
	TiersFile        string
	SpendFeedAddress string
	AdminKeyHash     string

	LockBackend string
	LockTTL     time.Duration

	ReaperInterval  time.Duration
	ReaperBatchSize int
	ReaperWorkers   int

	ReconcileInterval  time.Duration
	ReconcileBatchSize int

	SpendPollInterval   time.Duration
	AdjustExpiryHorizon time.Duration
	ShutdownTimeout     time.Duration

	ServiceName   string
	TraceEndpoint string
	TraceInsecure bool
}

const (
	defaultRunAddress          = ":8080"
	defaultLockBackend         = LockBackendMemory
	defaultLockTTL             = 5 * time.Second
	defaultReaperInterval      = time.Minute
	defaultReaperBatchSize     = 64
	defaultReaperWorkers       = 4
	defaultReconcileInterval   = 5 * time.Minute
	defaultReconcileBatchSize  = 32
	defaultSpendPollInterval   = 30 * time.Second
	defaultAdjustExpiryHorizon = 10 * 365 * 24 * time.Hour
	defaultShutdownTimeout     = 10 * time.Second
	defaultServiceName         = "loyaltycore"
)

// Load parses configuration from flags and environment variables. A .env
// file in the working directory is applied first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(os.Args[1:], os.LookupEnv)
}

type envLookup func(string) (string, bool)

func load(args []string, lookup envLookup) (*Config, error) {
	cfg := &Config{
		RunAddress:          getString(lookup, "RUN_ADDRESS", defaultRunAddress),
		DatabaseURI:         getString(lookup, "DATABASE_URI", ""),
		TiersFile:           getString(lookup, "TIERS_FILE", ""),
		SpendFeedAddress:    getString(lookup, "SPEND_FEED_ADDRESS", ""),
		AdminKeyHash:        getString(lookup, "ADMIN_KEY_HASH", ""),
		LockBackend:         getString(lookup, "LOCK_BACKEND", defaultLockBackend),
		LockTTL:             getDuration(lookup, "LOCK_TTL", defaultLockTTL),
		ReaperInterval:      getDuration(lookup, "REAPER_INTERVAL", defaultReaperInterval),
		ReaperBatchSize:     getInt(lookup, "REAPER_BATCH_SIZE", defaultReaperBatchSize),
		ReaperWorkers:       getInt(lookup, "REAPER_WORKERS", defaultReaperWorkers),
		ReconcileInterval:   getDuration(lookup, "RECONCILE_INTERVAL", defaultReconcileInterval),
		ReconcileBatchSize:  getInt(lookup, "RECONCILE_BATCH_SIZE", defaultReconcileBatchSize),
		SpendPollInterval:   getDuration(lookup, "SPEND_POLL_INTERVAL", defaultSpendPollInterval),
		AdjustExpiryHorizon: getDuration(lookup, "ADJUST_EXPIRY_HORIZON", defaultAdjustExpiryHorizon),
		ShutdownTimeout:     getDuration(lookup, "SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		ServiceName:         getString(lookup, "SERVICE_NAME", defaultServiceName),
		TraceEndpoint:       getString(lookup, "TRACE_ENDPOINT", ""),
		TraceInsecure:       getBool(lookup, "TRACE_INSECURE", false),
	}

	fs := flag.NewFlagSet("loyaltycore", flag.ContinueOnError)
	fs.SetOutput(io.Discard)

	var (
		lockTTLStr           = cfg.LockTTL.String()
		reaperIntervalStr    = cfg.ReaperInterval.String()
		reconcileIntervalStr = cfg.ReconcileInterval.String()
		spendPollStr         = cfg.SpendPollInterval.String()
		shutdownTimeoutStr   = cfg.ShutdownTimeout.String()
	)

	fs.StringVar(&cfg.RunAddress, "a", cfg.RunAddress, "HTTP server listen address")
	fs.StringVar(&cfg.DatabaseURI, "d", cfg.DatabaseURI, "PostgreSQL DSN")
	fs.StringVar(&cfg.TiersFile, "tiers", cfg.TiersFile, "Path to the tier ladder YAML file")
	fs.StringVar(&cfg.SpendFeedAddress, "spend-feed", cfg.SpendFeedAddress, "Spend aggregation service base URL")
	fs.StringVar(&cfg.AdminKeyHash, "admin-key-hash", cfg.AdminKeyHash, "Bcrypt hash of the admin API key")
	fs.StringVar(&cfg.LockBackend, "lock-backend", cfg.LockBackend, "Concurrency guard backend (memory or postgres)")
	fs.StringVar(&lockTTLStr, "lock-ttl", lockTTLStr, "Member lock time to live")
	fs.StringVar(&reaperIntervalStr, "reaper-interval", reaperIntervalStr, "Interval between expiry reaper sweeps")
	fs.IntVar(&cfg.ReaperBatchSize, "reaper-batch", cfg.ReaperBatchSize, "Maximum batches per reaper sweep")
	fs.IntVar(&cfg.ReaperWorkers, "reaper-workers", cfg.ReaperWorkers, "Number of concurrent reaper workers")
	fs.StringVar(&reconcileIntervalStr, "reconcile-interval", reconcileIntervalStr, "Interval between reconciliation sweeps")
	fs.IntVar(&cfg.ReconcileBatchSize, "reconcile-batch", cfg.ReconcileBatchSize, "Maximum members per reconciliation sweep")
	fs.StringVar(&spendPollStr, "spend-poll-interval", spendPollStr, "Interval between spend feed polls")
	fs.StringVar(&shutdownTimeoutStr, "shutdown-timeout", shutdownTimeoutStr, "Graceful shutdown timeout")
	fs.StringVar(&cfg.TraceEndpoint, "trace-endpoint", cfg.TraceEndpoint, "OTLP trace endpoint (empty disables tracing)")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	var err error

	if cfg.LockTTL, err = time.ParseDuration(lockTTLStr); err != nil {
		return nil, fmt.Errorf("invalid lock ttl: %w", err)
	}
	if cfg.ReaperInterval, err = time.ParseDuration(reaperIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid reaper interval: %w", err)
	}
	if cfg.ReconcileInterval, err = time.ParseDuration(reconcileIntervalStr); err != nil {
		return nil, fmt.Errorf("invalid reconcile interval: %w", err)
	}
	if cfg.SpendPollInterval, err = time.ParseDuration(spendPollStr); err != nil {
		return nil, fmt.Errorf("invalid spend poll interval: %w", err)
	}
	if cfg.ShutdownTimeout, err = time.ParseDuration(shutdownTimeoutStr); err != nil {
		return nil, fmt.Errorf("invalid shutdown timeout: %w", err)
	}

	if hashFile, ok := lookup("ADMIN_KEY_HASH_FILE"); ok && hashFile != "" {
		content, err := os.ReadFile(hashFile)
		if err != nil {
			return nil, fmt.Errorf("read admin key hash file: %w", err)
		}
		cfg.AdminKeyHash = string(content)
	}

	if cfg.LockTTL <= 0 {
		cfg.LockTTL = defaultLockTTL
	}
	if cfg.ReaperInterval <= 0 {
		cfg.ReaperInterval = defaultReaperInterval
	}
	if cfg.ReaperBatchSize <= 0 {
		cfg.ReaperBatchSize = defaultReaperBatchSize
	}
	if cfg.ReaperWorkers <= 0 {
		cfg.ReaperWorkers = defaultReaperWorkers
	}
	if cfg.ReconcileInterval <= 0 {
		cfg.ReconcileInterval = defaultReconcileInterval
	}
	if cfg.ReconcileBatchSize <= 0 {
		cfg.ReconcileBatchSize = defaultReconcileBatchSize
	}
	if cfg.SpendPollInterval <= 0 {
		cfg.SpendPollInterval = defaultSpendPollInterval
	}
	if cfg.AdjustExpiryHorizon <= 0 {
		cfg.AdjustExpiryHorizon = defaultAdjustExpiryHorizon
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	if cfg.LockBackend != LockBackendMemory && cfg.LockBackend != LockBackendPostgres {
		return nil, fmt.Errorf("unknown lock backend %q", cfg.LockBackend)
	}

	if cfg.DatabaseURI == "" {
		return nil, fmt.Errorf("database URI must be provided")
	}

	if cfg.TiersFile == "" {
		return nil, fmt.Errorf("tiers file must be provided")
	}

	return cfg, nil
}

func getString(lookup envLookup, key, def string) string {
	if v, ok := lookup(key); ok && v != "" {
		return v
	}
	return def
}

func getInt(lookup envLookup, key string, def int) int {
	if v, ok := lookup(key); ok && v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getBool(lookup envLookup, key string, def bool) bool {
	if v, ok := lookup(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func getDuration(lookup envLookup, key string, def time.Duration) time.Duration {
	if v, ok := lookup(key); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
