package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/betforge/coupon-engine/internal/platform/logging"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv         string
	ServiceName    string
	ServiceVersion string
	HTTPAddr       string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration

	CORSAllowedOrigins []string
	LogLevel           logging.Level

	DBURL        string
	StatsCSVPath string

	CacheDir       string
	OddsCacheTTL   time.Duration
	FormCacheTTL   time.Duration
	FixtureMemoTTL time.Duration
	SportKeys      []string
	DefaultRegions string
	DefaultMarkets string
	DefaultBookies string

	OddsAPIBaseURL             string
	OddsAPIKey                 string
	OddsAPITimeout             time.Duration
	OddsAPIMaxRetries          int
	OddsAPICircuitEnabled      bool
	OddsAPICircuitFailureCount int
	OddsAPICircuitOpenTimeout  time.Duration
	OddsAPICircuitHalfOpenMax  int

	FootballAPIBaseURL             string
	FootballAPIKey                 string
	FootballAPITimeout             time.Duration
	FootballAPIMaxRetries          int
	FootballAPICircuitEnabled      bool
	FootballAPICircuitFailureCount int
	FootballAPICircuitOpenTimeout  time.Duration
	FootballAPICircuitHalfOpenMax  int
	FormPrefetchWorkers            int

	GeminiEnabled bool
	GeminiBaseURL string
	GeminiAPIKey  string
	GeminiModel   string
	GeminiTimeout time.Duration

	PprofEnabled bool
	PprofAddr    string

	UptraceEnabled             bool
	UptraceDSN                 string
	UptraceLogsEnabled         bool
	UptraceCaptureRequestBody  bool
	UptraceRequestBodyMaxBytes int

	PyroscopeEnabled           bool
	PyroscopeServerAddress     string
	PyroscopeAppName           string
	PyroscopeAuthToken         string
	PyroscopeBasicAuthUser     string
	PyroscopeBasicAuthPassword string
	PyroscopeUploadRate        time.Duration
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	oddsCacheTTL, err := time.ParseDuration(getEnv("ODDS_CACHE_TTL", "60m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ODDS_CACHE_TTL: %w", err)
	}
	if oddsCacheTTL <= 0 {
		return Config{}, fmt.Errorf("ODDS_CACHE_TTL must be > 0")
	}

	formCacheTTL, err := time.ParseDuration(getEnv("FORM_CACHE_TTL", "12h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse FORM_CACHE_TTL: %w", err)
	}
	if formCacheTTL <= 0 {
		return Config{}, fmt.Errorf("FORM_CACHE_TTL must be > 0")
	}

	fixtureMemoTTL, err := time.ParseDuration(getEnv("FIXTURE_MEMO_TTL", "5m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse FIXTURE_MEMO_TTL: %w", err)
	}
	if fixtureMemoTTL <= 0 {
		return Config{}, fmt.Errorf("FIXTURE_MEMO_TTL must be > 0")
	}

	oddsAPIKey := strings.TrimSpace(getEnv("ODDS_API_KEY", ""))
	if oddsAPIKey == "" {
		return Config{}, fmt.Errorf("ODDS_API_KEY is required")
	}
	oddsAPITimeout, err := time.ParseDuration(getEnv("ODDS_API_TIMEOUT", "20s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ODDS_API_TIMEOUT: %w", err)
	}
	if oddsAPITimeout <= 0 {
		return Config{}, fmt.Errorf("ODDS_API_TIMEOUT must be > 0")
	}
	oddsAPIMaxRetries, err := getEnvAsInt("ODDS_API_MAX_RETRIES", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse ODDS_API_MAX_RETRIES: %w", err)
	}
	if oddsAPIMaxRetries < 0 {
		return Config{}, fmt.Errorf("ODDS_API_MAX_RETRIES must be >= 0")
	}
	oddsAPICircuitEnabled, err := strconv.ParseBool(getEnv("ODDS_API_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ODDS_API_CIRCUIT_ENABLED: %w", err)
	}
	oddsAPICircuitFailureCount, err := getEnvAsInt("ODDS_API_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse ODDS_API_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if oddsAPICircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("ODDS_API_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	oddsAPICircuitOpenTimeout, err := time.ParseDuration(getEnv("ODDS_API_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse ODDS_API_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if oddsAPICircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("ODDS_API_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	oddsAPICircuitHalfOpenMax, err := getEnvAsInt("ODDS_API_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse ODDS_API_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if oddsAPICircuitHalfOpenMax < 1 {
		return Config{}, fmt.Errorf("ODDS_API_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}

	footballAPIKey := strings.TrimSpace(getEnv("FOOTBALL_API_KEY", ""))
	footballAPITimeout, err := time.ParseDuration(getEnv("FOOTBALL_API_TIMEOUT", "20s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse FOOTBALL_API_TIMEOUT: %w", err)
	}
	if footballAPITimeout <= 0 {
		return Config{}, fmt.Errorf("FOOTBALL_API_TIMEOUT must be > 0")
	}
	footballAPIMaxRetries, err := getEnvAsInt("FOOTBALL_API_MAX_RETRIES", 1)
	if err != nil {
		return Config{}, fmt.Errorf("parse FOOTBALL_API_MAX_RETRIES: %w", err)
	}
	if footballAPIMaxRetries < 0 {
		return Config{}, fmt.Errorf("FOOTBALL_API_MAX_RETRIES must be >= 0")
	}
	footballAPICircuitEnabled, err := strconv.ParseBool(getEnv("FOOTBALL_API_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse FOOTBALL_API_CIRCUIT_ENABLED: %w", err)
	}
	footballAPICircuitFailureCount, err := getEnvAsInt("FOOTBALL_API_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse FOOTBALL_API_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	if footballAPICircuitFailureCount < 1 {
		return Config{}, fmt.Errorf("FOOTBALL_API_CIRCUIT_FAILURE_COUNT must be >= 1")
	}
	footballAPICircuitOpenTimeout, err := time.ParseDuration(getEnv("FOOTBALL_API_CIRCUIT_OPEN_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse FOOTBALL_API_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	if footballAPICircuitOpenTimeout <= 0 {
		return Config{}, fmt.Errorf("FOOTBALL_API_CIRCUIT_OPEN_TIMEOUT must be > 0")
	}
	footballAPICircuitHalfOpenMax, err := getEnvAsInt("FOOTBALL_API_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse FOOTBALL_API_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}
	if footballAPICircuitHalfOpenMax < 1 {
		return Config{}, fmt.Errorf("FOOTBALL_API_CIRCUIT_HALF_OPEN_MAX_REQ must be >= 1")
	}
	formPrefetchWorkers, err := getEnvAsInt("FORM_PREFETCH_WORKERS", 4)
	if err != nil {
		return Config{}, fmt.Errorf("parse FORM_PREFETCH_WORKERS: %w", err)
	}
	if formPrefetchWorkers < 1 {
		return Config{}, fmt.Errorf("FORM_PREFETCH_WORKERS must be >= 1")
	}

	geminiEnabled, err := strconv.ParseBool(getEnv("GEMINI_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse GEMINI_ENABLED: %w", err)
	}
	geminiAPIKey := strings.TrimSpace(getEnv("GEMINI_API_KEY", ""))
	if geminiEnabled && geminiAPIKey == "" {
		return Config{}, fmt.Errorf("GEMINI_API_KEY is required when GEMINI_ENABLED=true")
	}
	geminiTimeout, err := time.ParseDuration(getEnv("GEMINI_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse GEMINI_TIMEOUT: %w", err)
	}
	if geminiTimeout <= 0 {
		return Config{}, fmt.Errorf("GEMINI_TIMEOUT must be > 0")
	}

	pprofEnabled, err := strconv.ParseBool(getEnv("PPROF_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PPROF_ENABLED: %w", err)
	}
	pprofAddr := strings.TrimSpace(getEnv("PPROF_ADDR", ":6060"))
	if pprofEnabled && pprofAddr == "" {
		return Config{}, fmt.Errorf("PPROF_ADDR is required when PPROF_ENABLED=true")
	}

	uptraceEnabled, err := strconv.ParseBool(getEnv("UPTRACE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_ENABLED: %w", err)
	}
	uptraceDSN := strings.TrimSpace(getEnv("UPTRACE_DSN", ""))
	if uptraceEnabled && uptraceDSN == "" {
		return Config{}, fmt.Errorf("UPTRACE_DSN is required when UPTRACE_ENABLED=true")
	}
	uptraceLogsEnabled, err := strconv.ParseBool(getEnv("UPTRACE_LOGS_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_LOGS_ENABLED: %w", err)
	}
	uptraceCaptureRequestBody, err := strconv.ParseBool(getEnv("UPTRACE_CAPTURE_REQUEST_BODY", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_CAPTURE_REQUEST_BODY: %w", err)
	}
	uptraceRequestBodyMaxBytes, err := getEnvAsInt("UPTRACE_REQUEST_BODY_MAX_BYTES", 8192)
	if err != nil {
		return Config{}, fmt.Errorf("parse UPTRACE_REQUEST_BODY_MAX_BYTES: %w", err)
	}
	if uptraceRequestBodyMaxBytes <= 0 {
		return Config{}, fmt.Errorf("UPTRACE_REQUEST_BODY_MAX_BYTES must be > 0")
	}

	pyroscopeEnabled, err := strconv.ParseBool(getEnv("PYROSCOPE_ENABLED", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_ENABLED: %w", err)
	}
	pyroscopeServerAddress := strings.TrimSpace(getEnv("PYROSCOPE_SERVER_ADDRESS", ""))
	if pyroscopeEnabled && pyroscopeServerAddress == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_SERVER_ADDRESS is required when PYROSCOPE_ENABLED=true")
	}
	pyroscopeUploadRate, err := time.ParseDuration(getEnv("PYROSCOPE_UPLOAD_RATE", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PYROSCOPE_UPLOAD_RATE: %w", err)
	}
	if pyroscopeUploadRate <= 0 {
		return Config{}, fmt.Errorf("PYROSCOPE_UPLOAD_RATE must be > 0")
	}

	readTimeout, err := time.ParseDuration(getEnv("APP_READ_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_READ_TIMEOUT: %w", err)
	}
	writeTimeout, err := time.ParseDuration(getEnv("APP_WRITE_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse APP_WRITE_TIMEOUT: %w", err)
	}

	sportKeys := splitCSV(getEnv("SPORT_KEYS", "soccer_epl,soccer_spain_la_liga,soccer_germany_bundesliga,soccer_italy_serie_a,soccer_france_ligue_one"))
	if len(sportKeys) == 0 {
		return Config{}, fmt.Errorf("SPORT_KEYS cannot be empty")
	}

	cfg := Config{
		AppEnv:         appEnv,
		ServiceName:    getEnv("APP_SERVICE_NAME", "coupon-engine-api"),
		ServiceVersion: getEnv("APP_SERVICE_VERSION", "dev"),
		HTTPAddr:       getEnv("APP_HTTP_ADDR", ":8080"),
		ReadTimeout:    readTimeout,
		WriteTimeout:   writeTimeout,

		CORSAllowedOrigins: splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		LogLevel:           parseLogLevel(getEnv("APP_LOG_LEVEL", "info")),

		DBURL:        strings.TrimSpace(getEnv("DB_URL", "")),
		StatsCSVPath: getEnv("STATS_CSV_PATH", "data/stats.csv"),

		CacheDir:       getEnv("CACHE_DIR", ".cache"),
		OddsCacheTTL:   oddsCacheTTL,
		FormCacheTTL:   formCacheTTL,
		FixtureMemoTTL: fixtureMemoTTL,
		SportKeys:      sportKeys,
		DefaultRegions: getEnv("ODDS_API_REGIONS", "eu"),
		DefaultMarkets: getEnv("ODDS_API_MARKETS", "h2h,totals"),
		DefaultBookies: getEnv("ODDS_API_BOOKMAKERS", "pinnacle"),

		OddsAPIBaseURL:             getEnv("ODDS_API_BASE_URL", "https://api.the-odds-api.com/v4"),
		OddsAPIKey:                 oddsAPIKey,
		OddsAPITimeout:             oddsAPITimeout,
		OddsAPIMaxRetries:          oddsAPIMaxRetries,
		OddsAPICircuitEnabled:      oddsAPICircuitEnabled,
		OddsAPICircuitFailureCount: oddsAPICircuitFailureCount,
		OddsAPICircuitOpenTimeout:  oddsAPICircuitOpenTimeout,
		OddsAPICircuitHalfOpenMax:  oddsAPICircuitHalfOpenMax,

		FootballAPIBaseURL:             getEnv("FOOTBALL_API_BASE_URL", "https://v3.football.api-sports.io"),
		FootballAPIKey:                 footballAPIKey,
		FootballAPITimeout:             footballAPITimeout,
		FootballAPIMaxRetries:          footballAPIMaxRetries,
		FootballAPICircuitEnabled:      footballAPICircuitEnabled,
		FootballAPICircuitFailureCount: footballAPICircuitFailureCount,
		FootballAPICircuitOpenTimeout:  footballAPICircuitOpenTimeout,
		FootballAPICircuitHalfOpenMax:  footballAPICircuitHalfOpenMax,
		FormPrefetchWorkers:            formPrefetchWorkers,

		GeminiEnabled: geminiEnabled,
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		GeminiAPIKey:  geminiAPIKey,
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiTimeout: geminiTimeout,

		PprofEnabled: pprofEnabled,
		PprofAddr:    pprofAddr,

		UptraceEnabled:             uptraceEnabled,
		UptraceDSN:                 uptraceDSN,
		UptraceLogsEnabled:         uptraceLogsEnabled,
		UptraceCaptureRequestBody:  uptraceCaptureRequestBody,
		UptraceRequestBodyMaxBytes: uptraceRequestBodyMaxBytes,

		PyroscopeEnabled:           pyroscopeEnabled,
		PyroscopeServerAddress:     pyroscopeServerAddress,
		PyroscopeAuthToken:         strings.TrimSpace(getEnv("PYROSCOPE_AUTH_TOKEN", "")),
		PyroscopeBasicAuthUser:     strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_USER", "")),
		PyroscopeBasicAuthPassword: strings.TrimSpace(getEnv("PYROSCOPE_BASIC_AUTH_PASSWORD", "")),
		PyroscopeUploadRate:        pyroscopeUploadRate,
	}
	cfg.PyroscopeAppName = strings.TrimSpace(getEnv("PYROSCOPE_APP_NAME", cfg.ServiceName))
	if cfg.PyroscopeEnabled && cfg.PyroscopeAppName == "" {
		return Config{}, fmt.Errorf("PYROSCOPE_APP_NAME cannot be empty when PYROSCOPE_ENABLED=true")
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		return Config{}, fmt.Errorf("CORS_ALLOWED_ORIGINS cannot be empty")
	}

	return cfg, nil
}

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
