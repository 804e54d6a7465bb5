// Package config loads lobbyd's configuration.
//
// Values are resolved in order: built-in defaults, the TOML file passed with
// --config, LOBBYD_* environment variables, then command line flags (applied
// by cmd/lobbyd). The result is checked with Validate.
//
// # Configuration File Structure
//
//	address = "0.0.0.0:7878"
//	max_sessions = 100
//	queue_capacity = 100
//	delivery_capacity = 100
//	players_per_match = 2
//	max_message_size = 65536
//	write_timeout = "10s"
//	shutdown_timeout = "30s"
//	log_level = "info"
//	log_format = "text"
//	metrics_path = "/metrics"
//
// # Usage
//
//	cfg, err := config.Load("lobbyd.toml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	fmt.Println("Address:", cfg.Address)
package config
