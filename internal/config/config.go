package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"time"    // time provides duration types for TTL settings
)

// Config holds all runtime configuration values.  Each field corresponds
// to an environment variable.  The struct is built once in main and
// passed to constructors; business logic never reads the environment
// directly.
type Config struct {
	Env  string // application environment ("dev", "test", "prod")
	Port string // HTTP port to listen on

	DBUser string // database username
	DBPass string // database password (optional)
	DBHost string // database host address
	DBPort string // database port number
	DBName string // database name

	JWTSecret       string        // secret used to sign session tokens
	VisitorTokenTTL time.Duration // lifetime of visitor session tokens
	AdminTokenTTL   time.Duration // lifetime of admin session tokens
	AdminPassHash   string        // bcrypt hash of the admin passphrase (optional)
	CodeTTL         time.Duration // lifetime of pending verification codes

	MaxPerEmail   int    // redemption budget per (album, email) pair
	MaxUnlocks    uint32 // default per-album unlock ceiling
	MaxActivePins uint32 // default per-album active PIN ceiling

	AppURL           string // public origin used when building deep links
	AMQPURL          string // RabbitMQ URL for the notifier channel (optional)
	CoverPassthrough bool   // sign non-audio refs on gated albums before unlock

	S3Bucket         string        // blob store bucket (empty means local fallback)
	S3Region         string        // blob store region
	S3Endpoint       string        // custom endpoint for S3-compatible stores
	S3AccessKeyID    string        // static credential id
	S3SecretKey      string        // static credential secret
	S3ForcePathStyle bool          // path-style addressing for S3-compatible stores
	SignedURLTTL     time.Duration // lifetime of presigned retrieval URLs
}

// Load reads configuration values from environment variables and returns
// a Config.  Required variables are enforced by must() and missing
// values cause the program to exit with a fatal log message.  Everything
// else carries a default so a dev environment boots with only the DB and
// JWT settings present.
func Load() Config {
	return Config{
		Env:    must("APP_ENV"),       // environment (dev/test/prod)
		Port:   must("APP_PORT"),      // port to bind the HTTP server
		DBUser: must("DB_USER"),       // database user
		DBPass: os.Getenv("DB_PASS"),  // database password (empty allowed)
		DBHost: must("DB_HOST"),       // database host
		DBPort: must("DB_PORT"),       // database port
		DBName: must("DB_NAME"),       // database name

		JWTSecret:       must("JWT_SECRET"),
		VisitorTokenTTL: envDur("VISITOR_TOKEN_TTL", 365*24*time.Hour),
		AdminTokenTTL:   envDur("ADMIN_TOKEN_TTL", 30*24*time.Hour),
		AdminPassHash:   os.Getenv("ADMIN_PASS_HASH"),
		CodeTTL:         envDur("VERIFICATION_CODE_TTL", 15*time.Minute),

		MaxPerEmail:   envInt("MAX_PINS_PER_EMAIL", 5),
		MaxUnlocks:    envUint32("MAX_UNLOCKS_PER_ALBUM", 10000),
		MaxActivePins: envUint32("MAX_ACTIVE_PINS_PER_ALBUM", 500),

		AppURL:           os.Getenv("APP_URL"),
		AMQPURL:          firstEnv("RABBITMQ_URL", "AMQP_URL"),
		CoverPassthrough: envBool("GATE_COVER_PASSTHROUGH", true),

		S3Bucket:         os.Getenv("S3_BUCKET"),
		S3Region:         envStr("S3_REGION", "auto"),
		S3Endpoint:       os.Getenv("S3_ENDPOINT"),
		S3AccessKeyID:    os.Getenv("S3_ACCESS_KEY_ID"),
		S3SecretKey:      os.Getenv("S3_SECRET_ACCESS_KEY"),
		S3ForcePathStyle: envBool("S3_FORCE_PATH_STYLE", false),
		SignedURLTTL:     envDur("S3_SIGNED_URL_TTL", 15*time.Minute),
	}
}

// IsProd reports whether the service runs in the production environment.
// Several behaviors hinge on this: in-band dev codes, the notifier
// requirement, and dev-only diagnostic logging.
func (c Config) IsProd() bool { return c.Env == "prod" }

// S3Configured reports whether enough settings are present to build a
// presign client.  Without them the signer falls back to local paths.
func (c Config) S3Configured() bool {
	return c.S3Bucket != "" && c.S3AccessKeyID != "" && c.S3SecretKey != ""
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// firstEnv returns the first non-empty value among the given variables.
func firstEnv(keys ...string) string {
	for _, k := range keys {
		if v := os.Getenv(k); v != "" {
			return v
		}
	}
	return ""
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

// envUint32 reads a positive integer ceiling.  Zero, negative, or
// unparsable values fall back to the default rather than wrapping
// through the unsigned conversion.
func envUint32(k string, d uint32) uint32 {
	n := envInt(k, int(d))
	if n <= 0 {
		return d
	}
	return uint32(n)
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
