package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

var envLookup = os.LookupEnv

// parseEnv overlays environment variables. The names follow the deployment
// this service replaces, so existing .env files keep working:
//
//	DATABASE_URL, or POSTGRES_SERVER/PORT/USER/PASSWORD/DB when unset
//	SECRET_KEY, PREVIOUS_SECRET_KEY, SECRET_GRACE_WINDOW (Go duration)
//	ACCESS_TOKEN_EXPIRE_MINUTES
//	BACKEND_CORS_ORIGINS (comma separated)
//	REDIS_URL, HTTP_ADDR, GRPC_ADDR, LOG_LEVEL
//
// Malformed numeric values are ignored.
func parseEnv(config *Config, lookup func(string) (string, bool)) {
	get := func(name string) (string, bool) {
		v, ok := lookup(name)
		if !ok || strings.TrimSpace(v) == "" {
			return "", false
		}
		return strings.TrimSpace(v), true
	}

	if v, ok := get("DATABASE_URL"); ok {
		config.DatabaseDSN = v
	} else if dsn, ok := postgresDSNFromParts(get); ok {
		config.DatabaseDSN = dsn
	}

	if v, ok := get("SECRET_KEY"); ok {
		config.SecretKey = v
	}
	if v, ok := get("PREVIOUS_SECRET_KEY"); ok {
		config.PreviousSecretKey = v
	}
	if v, ok := get("SECRET_GRACE_WINDOW"); ok {
		if d, err := time.ParseDuration(v); err == nil {
			config.SecretGraceWindow = d
		}
	}
	if v, ok := get("ACCESS_TOKEN_EXPIRE_MINUTES"); ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			config.AccessTokenValidityDuration = time.Duration(n) * time.Minute
		}
	}
	if v, ok := get("BACKEND_CORS_ORIGINS"); ok {
		config.CORSOrigins = splitList(v)
	}
	if v, ok := get("REDIS_URL"); ok {
		config.RedisURL = v
	}
	if v, ok := get("HTTP_ADDR"); ok {
		config.HTTPAddr = v
	}
	if v, ok := get("GRPC_ADDR"); ok {
		config.GRPCAddr = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		config.LogLevel = v
	}
}

// postgresDSNFromParts builds a DSN when at least POSTGRES_SERVER is set.
func postgresDSNFromParts(get func(string) (string, bool)) (string, bool) {
	server, ok := get("POSTGRES_SERVER")
	if !ok {
		return "", false
	}
	port := "5432"
	if v, ok := get("POSTGRES_PORT"); ok {
		port = v
	}
	user := "postgres"
	if v, ok := get("POSTGRES_USER"); ok {
		user = v
	}
	password := ""
	if v, ok := get("POSTGRES_PASSWORD"); ok {
		password = v
	}
	db := "piano_simulator"
	if v, ok := get("POSTGRES_DB"); ok {
		db = v
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, password),
		Host:     fmt.Sprintf("%s:%s", server, port),
		Path:     "/" + db,
		RawQuery: "sslmode=disable",
	}
	return u.String(), true
}

// splitList accepts "a,b" as well as the JSON-ish "[a, b]" form.
func splitList(v string) []string {
	v = strings.TrimSpace(v)
	v = strings.TrimPrefix(v, "[")
	v = strings.TrimSuffix(v, "]")

	var out []string
	for _, item := range strings.Split(v, ",") {
		item = strings.Trim(strings.TrimSpace(item), `"'`)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
