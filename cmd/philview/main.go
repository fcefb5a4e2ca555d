package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/philview/philview/internal/api"
	"github.com/philview/philview/internal/assistant"
	"github.com/philview/philview/internal/genai"
	"github.com/philview/philview/internal/lockfile"
	"github.com/philview/philview/internal/notify"
	"github.com/philview/philview/internal/store"
	"github.com/philview/philview/internal/util"
)

// Default configuration constants
const (
	// DefaultStateDir is the default directory for Philview state data
	DefaultStateDir = "/var/lib/philview"
	// DefaultDBFileName is the default SQLite database filename
	DefaultDBFileName = "philview.db"
)

func main() {
	os.Exit(run())
}

// run wires the modules and serves until shutdown; deferred cleanup runs before the exit code is returned.
func run() int {
	config := loadEnvironmentConfig()
	initializeLogger(config.LogLevel)

	flags, err := parseCommandLineFlags(flag.CommandLine, os.Args[1:], config)
	if err != nil {
		slog.Error("Failed to parse flags", "error", err)
		return 2
	}

	if err := ensureDirectoriesExist(flags); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		return 1
	}

	// Only one process may write a SQLite database.
	if store.DetectDSNType(*flags.dbDSN) == "sqlite3" {
		lock, err := lockfile.AcquireLock(*flags.stateDir)
		if err != nil {
			slog.Error("Failed to lock state directory", "error", err)
			return 1
		}
		defer lock.Release()
	}

	storeOpts := buildStoreOptions(flags)
	genaiOpts := buildGenAIOptions(flags)
	notifyOpts := buildNotifyOptions(flags)
	apiOpts := buildAPIOptions(flags)

	slog.Info("Bootstrapping Philview with configured modules")
	slog.Debug("Module options counts", "store", len(storeOpts), "genai", len(genaiOpts), "notify", len(notifyOpts), "api", len(apiOpts))
	if err := api.Run(storeOpts, genaiOpts, notifyOpts, apiOpts); err != nil {
		slog.Error("Philview failed to run", "error", err)
		return 1
	}
	slog.Info("Philview exited successfully")
	return 0
}

// Config holds environment configuration
type Config struct {
	DatabaseURL       string
	StateDir          string
	OpenAIKey         string
	OpenAIModel       string
	OpenAIBaseURL     string
	GenAIDebug        bool
	ClassifierTimeout time.Duration
	APIAddr           string
	JWTSecret         string
	RateLimit         float64
	RateBurst         int
	ServerApply       bool
	RedisAddr         string
	RedisPassword     string
	TwilioAccountSID  string
	TwilioAuthToken   string
	TwilioFromNumber  string
	NotifyTo          string
	ReminderSchedule  string
	Seed              bool
	LogLevel          string
}

// Flags holds command line flag values
type Flags struct {
	stateDir          *string
	dbDSN             *string
	openaiKey         *string
	openaiModel       *string
	openaiBaseURL     *string
	genaiDebug        *bool
	classifierTimeout *time.Duration
	apiAddr           *string
	jwtSecret         *string
	rateLimit         *float64
	rateBurst         *int
	serverApply       *bool
	redisAddr         *string
	redisPassword     *string
	twilioAccountSID  *string
	twilioAuthToken   *string
	twilioFromNumber  *string
	notifyTo          *string
	reminderSchedule  *string
	seed              *bool
}

// parseLogLevel accepts debug, info, warn and error. Anything else means debug.
func parseLogLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelDebug
	}
	return level
}

// initializeLogger sets up structured logging at the given level
func initializeLogger(level string) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(level)}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and .env file
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		StateDir:          os.Getenv("PHILVIEW_STATE_DIR"),
		OpenAIKey:         os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:       os.Getenv("OPENAI_MODEL"),
		OpenAIBaseURL:     os.Getenv("OPENAI_BASE_URL"),
		GenAIDebug:        util.ParseBoolEnv("GENAI_DEBUG", false),
		ClassifierTimeout: util.ParseDurationEnv("PHILVIEW_CLASSIFIER_TIMEOUT", assistant.DefaultClassifierTimeout),
		APIAddr:           os.Getenv("API_ADDR"),
		JWTSecret:         os.Getenv("PHILVIEW_JWT_SECRET"),
		RateLimit:         util.ParseFloatEnv("PHILVIEW_RATE_LIMIT", api.DefaultRateLimit),
		RateBurst:         util.ParseIntEnv("PHILVIEW_RATE_BURST", api.DefaultRateBurst),
		ServerApply:       util.ParseBoolEnv("PHILVIEW_SERVER_APPLY", true),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		TwilioAccountSID:  os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:   os.Getenv("TWILIO_AUTH_TOKEN"),
		TwilioFromNumber:  os.Getenv("TWILIO_FROM_NUMBER"),
		NotifyTo:          os.Getenv("PHILVIEW_NOTIFY_TO"),
		ReminderSchedule:  os.Getenv("PHILVIEW_REMINDER_SCHEDULE"),
		Seed:              util.ParseBoolEnv("PHILVIEW_SEED", false),
		LogLevel:          os.Getenv("LOG_LEVEL"),
	}

	if config.ReminderSchedule == "" {
		config.ReminderSchedule = api.DefaultReminderSchedule
	}

	if config.StateDir == "" {
		config.StateDir = DefaultStateDir
		slog.Debug("No PHILVIEW_STATE_DIR set, using default", "default_state_dir", config.StateDir)
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"PHILVIEW_STATE_DIR", config.StateDir,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"OPENAI_MODEL", config.OpenAIModel,
		"API_ADDR", config.APIAddr,
		"PHILVIEW_JWT_SECRET_SET", config.JWTSecret != "",
		"REDIS_ADDR", config.RedisAddr,
		"TWILIO_ACCOUNT_SID_SET", config.TwilioAccountSID != "",
		"PHILVIEW_NOTIFY_TO_SET", config.NotifyTo != "")

	return config
}

// defaultDSN is DATABASE_URL when set, otherwise a SQLite file in stateDir.
func defaultDSN(config Config, stateDir string) string {
	if config.DatabaseURL != "" {
		return config.DatabaseURL
	}
	return filepath.Join(stateDir, DefaultDBFileName)
}

// parseCommandLineFlags parses args into fs with environment defaults
func parseCommandLineFlags(fs *flag.FlagSet, args []string, config Config) (Flags, error) {
	flags := Flags{
		stateDir:          fs.String("state-dir", config.StateDir, "state directory for Philview data (overrides $PHILVIEW_STATE_DIR)"),
		dbDSN:             fs.String("db-dsn", "", "database DSN; Postgres URL or SQLite path (overrides $DATABASE_URL, default <state-dir>/"+DefaultDBFileName+")"),
		openaiKey:         fs.String("openai-api-key", config.OpenAIKey, "OpenAI API key; empty means keyword routing only (overrides $OPENAI_API_KEY)"),
		openaiModel:       fs.String("openai-model", config.OpenAIModel, "OpenAI chat model (overrides $OPENAI_MODEL)"),
		openaiBaseURL:     fs.String("openai-base-url", config.OpenAIBaseURL, "OpenAI-compatible endpoint (overrides $OPENAI_BASE_URL)"),
		genaiDebug:        fs.Bool("genai-debug", config.GenAIDebug, "log model requests under <state-dir>/debug (overrides $GENAI_DEBUG)"),
		classifierTimeout: fs.Duration("classifier-timeout", config.ClassifierTimeout, "timeout for one model call (overrides $PHILVIEW_CLASSIFIER_TIMEOUT)"),
		apiAddr:           fs.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		jwtSecret:         fs.String("jwt-secret", config.JWTSecret, "HS256 secret for bearer tokens; empty trusts X-User-* headers (overrides $PHILVIEW_JWT_SECRET)"),
		rateLimit:         fs.Float64("rate-limit", config.RateLimit, "requests per second per client IP; 0 disables (overrides $PHILVIEW_RATE_LIMIT)"),
		rateBurst:         fs.Int("rate-burst", config.RateBurst, "burst per client IP (overrides $PHILVIEW_RATE_BURST)"),
		serverApply:       fs.Bool("server-apply", config.ServerApply, "apply confirmed appointment plans on the server (overrides $PHILVIEW_SERVER_APPLY)"),
		redisAddr:         fs.String("redis-addr", config.RedisAddr, "Redis address for the payload nonce ledger (overrides $REDIS_ADDR)"),
		redisPassword:     fs.String("redis-password", config.RedisPassword, "Redis password (overrides $REDIS_PASSWORD)"),
		twilioAccountSID:  fs.String("twilio-account-sid", config.TwilioAccountSID, "Twilio account SID (overrides $TWILIO_ACCOUNT_SID)"),
		twilioAuthToken:   fs.String("twilio-auth-token", config.TwilioAuthToken, "Twilio auth token (overrides $TWILIO_AUTH_TOKEN)"),
		twilioFromNumber:  fs.String("twilio-from", config.TwilioFromNumber, "Twilio sender number, whatsapp:+... for WhatsApp (overrides $TWILIO_FROM_NUMBER)"),
		notifyTo:          fs.String("notify-to", config.NotifyTo, "recipient of appointment notices; empty disables them (overrides $PHILVIEW_NOTIFY_TO)"),
		reminderSchedule:  fs.String("reminder-schedule", config.ReminderSchedule, "cron expression for daily appointment reminders; empty disables (overrides $PHILVIEW_REMINDER_SCHEDULE)"),
		seed:              fs.Bool("seed", config.Seed, "load the demo property catalog at startup (overrides $PHILVIEW_SEED)"),
	}

	if err := fs.Parse(args); err != nil {
		return flags, fmt.Errorf("failed to parse flags: %w", err)
	}

	// The default SQLite path follows -state-dir.
	if *flags.dbDSN == "" {
		*flags.dbDSN = defaultDSN(config, *flags.stateDir)
	}

	slog.Debug("flags parsed",
		"stateDir", *flags.stateDir,
		"dbType", store.DetectDSNType(*flags.dbDSN),
		"openaiKeySet", *flags.openaiKey != "",
		"openaiModel", *flags.openaiModel,
		"classifierTimeout", *flags.classifierTimeout,
		"apiAddr", *flags.apiAddr,
		"rateLimit", *flags.rateLimit,
		"serverApply", *flags.serverApply,
		"redisAddr", *flags.redisAddr,
		"notifyToSet", *flags.notifyTo != "",
		"seed", *flags.seed)

	return flags, nil
}

// ensureDirectoriesExist creates the state directory and the SQLite database's directory
func ensureDirectoriesExist(flags Flags) error {
	dirs := []string{*flags.stateDir}
	if store.DetectDSNType(*flags.dbDSN) == "sqlite3" {
		path := strings.TrimPrefix(*flags.dbDSN, "file:")
		if i := strings.IndexByte(path, '?'); i >= 0 {
			path = path[:i]
		}
		dirs = append(dirs, filepath.Dir(path))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// buildStoreOptions constructs store configuration options
func buildStoreOptions(flags Flags) []store.Option {
	dsn := *flags.dbDSN
	if dsn == "" {
		slog.Debug("No database DSN provided, will use in-memory store")
		return nil
	}
	if store.DetectDSNType(dsn) == "postgres" {
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store", "dsn_type", "postgresql")
		return []store.Option{store.WithPostgresDSN(dsn)}
	}
	slog.Debug("Detected SQLite DSN, configuring SQLite store", "dsn_type", "sqlite", "db_path", dsn)
	return []store.Option{store.WithSQLiteDSN(dsn)}
}

// buildGenAIOptions constructs GenAI configuration options
func buildGenAIOptions(flags Flags) []genai.Option {
	var genaiOpts []genai.Option
	if *flags.openaiKey != "" {
		genaiOpts = append(genaiOpts, genai.WithAPIKey(*flags.openaiKey))
	}
	if *flags.openaiModel != "" {
		genaiOpts = append(genaiOpts, genai.WithModel(*flags.openaiModel))
	}
	if *flags.openaiBaseURL != "" {
		genaiOpts = append(genaiOpts, genai.WithBaseURL(*flags.openaiBaseURL))
	}
	if *flags.genaiDebug {
		genaiOpts = append(genaiOpts, genai.WithDebugMode(true), genai.WithStateDir(*flags.stateDir))
	}
	return genaiOpts
}

// buildNotifyOptions constructs Twilio configuration options
func buildNotifyOptions(flags Flags) []notify.Option {
	var notifyOpts []notify.Option
	if *flags.twilioAccountSID != "" {
		notifyOpts = append(notifyOpts, notify.WithAccountSID(*flags.twilioAccountSID))
	}
	if *flags.twilioAuthToken != "" {
		notifyOpts = append(notifyOpts, notify.WithAuthToken(*flags.twilioAuthToken))
	}
	if *flags.twilioFromNumber != "" {
		notifyOpts = append(notifyOpts, notify.WithFromNumber(*flags.twilioFromNumber))
	}
	return notifyOpts
}

// buildAPIOptions constructs API server configuration options
func buildAPIOptions(flags Flags) []api.Option {
	apiOpts := []api.Option{
		api.WithRateLimit(*flags.rateLimit, *flags.rateBurst),
		api.WithClassifierTimeout(*flags.classifierTimeout),
		api.WithServerApply(*flags.serverApply),
		api.WithReminderSchedule(*flags.reminderSchedule),
		api.WithSeed(*flags.seed),
	}
	if *flags.apiAddr != "" {
		apiOpts = append(apiOpts, api.WithAddr(*flags.apiAddr))
	}
	if *flags.jwtSecret != "" {
		apiOpts = append(apiOpts, api.WithJWTSecret(*flags.jwtSecret))
	}
	if *flags.redisAddr != "" {
		apiOpts = append(apiOpts, api.WithRedis(*flags.redisAddr, *flags.redisPassword))
	}
	if *flags.notifyTo != "" {
		apiOpts = append(apiOpts, api.WithNotifyRecipient(*flags.notifyTo))
	}
	return apiOpts
}
