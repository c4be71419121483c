package config

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cleanpath/cleanpath-api/models"
)

// Config holds the project config values
type Config struct {
	URL          string
	DatabaseName string
	BaseURL      string
	Port         string
	Env          string

	JWTSecret     string
	TokenCacheTTL time.Duration

	QueryTimeout   time.Duration
	RequestTimeout time.Duration

	CollectorFrontendURL string
	AllowedOrigins       []string
	AreaWMAFile          string

	StripeSecretKey  string
	StripeCurrency   string
	StripeSuccessURL string
	StripeCancelURL  string

	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadPreset string
}

// New sets up all config related services
func New() *Config {
	env := getEnvString("APP_ENV", "local")

	// setup zap logger and replace default logger
	logger, err := setLogger(env)
	if err != nil {
		logger = zap.NewExample()
	}
	_ = zap.ReplaceGlobals(logger)

	return &Config{
		URL:          os.Getenv("DB_URI"),
		DatabaseName: getEnvString("DB_NAME", "cleanpath"),
		BaseURL:      os.Getenv("BASE_URL"),
		Port:         getEnvString("PORT", "8080"),
		Env:          env,

		JWTSecret:     os.Getenv("JWT_SECRET"),
		TokenCacheTTL: getEnvDuration("TOKEN_CACHE_TTL", 5*time.Minute),

		QueryTimeout:   getEnvDuration("QUERY_TIMEOUT", 10*time.Second),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),

		CollectorFrontendURL: getEnvString("COLLECTOR_FRONTEND_URL", "http://localhost:3000"),
		AllowedOrigins:       getEnvList("ALLOWED_ORIGINS", []string{"*"}),
		AreaWMAFile:          os.Getenv("AREA_WMA_FILE"),

		StripeSecretKey:  os.Getenv("STRIPE_SECRET_KEY"),
		StripeCurrency:   getEnvString("STRIPE_CURRENCY", "lkr"),
		StripeSuccessURL: os.Getenv("STRIPE_SUCCESS_URL"),
		StripeCancelURL:  os.Getenv("STRIPE_CANCEL_URL"),

		CloudinaryCloudName:    os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:       os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryAPISecret:    os.Getenv("CLOUDINARY_API_SECRET"),
		CloudinaryUploadPreset: os.Getenv("CLOUDINARY_UPLOAD_PRESET"),
	}
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	errText := ""
	if err != nil {
		errText = err.Error()
	}
	if httpStatusCode >= http.StatusInternalServerError {
		zap.S().Errorw(message, "status", httpStatusCode, "error", errText)
	} else {
		zap.S().Debugw(message, "status", httpStatusCode, "error", errText)
	}

	b, _ := json.Marshal(models.ErrorMessageResponse{
		Response: models.MessageError{Message: message, Error: errText},
	})
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	_, _ = w.Write(b)
}

func getEnvString(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

// getEnvList splits a comma separated value, dropping empty entries
func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
