// Package config loads and validates the configuration of a push dispatch
// service.
//
// Values are read with Viper from a config.yml found next to the service
// (cmd/<service>/config.yml, config/<service>.yml, config/config.yml or
// ./config.yml), then overridden by a .env file loaded with godotenv and by
// the process environment.
//
// # Usage
//
//	cfg, err := config.Load("pushd", config.WithEnvPrefix("PUSHD"))
//	if err != nil {
//		log.Fatal(err)
//	}
//	cfg.Apply()
//	shutdown, err := cfg.StartTelemetry(ctx)
//
// With the PUSHD prefix, PUSHD_PUSHER_GATEWAY_MAX_ATTEMPTS=5 sets
// pusher.gateway.max_attempts.
package config
