// Package config loads the kernel Settings from the environment.
//
// .env files are read with godotenv first; variables already present in the
// process environment take precedence. The Settings struct is then filled
// by caarlos0/env using its struct tags and defaults.
//
//	cfg, err := config.Load()           // .env
//	cfg, err := config.Load(".env.test")
//
// Recognised variables:
//
//	APP_NAME, APP_ENV, APP_DEBUG, APP_URL, APP_PORT
//	LOG_LEVEL, LOG_FORMAT
//	SENTRY_DSN, SENTRY_ENVIRONMENT
//	HTTP_VERSION, RESPONSE_CHUNK_SIZE
//	DETERMINE_ROUTE_BEFORE_APP_MIDDLEWARE, ADD_CONTENT_LENGTH_HEADER
//	ROUTER_BASE_PATH, SHUTDOWN_TIMEOUT
package config
