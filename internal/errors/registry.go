package errors

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category Category
	Message  string
	Detail   string
}

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Configuration Errors (E100-E119)
	// ============================================

	"E100": {
		Category: CategoryConfig,
		Message:  "Configuration file not found",
		Detail:   "The configuration file passed with --config does not exist.",
	},
	"E101": {
		Category: CategoryConfig,
		Message:  "Invalid configuration file",
		Detail:   "The configuration file could not be parsed as TOML.",
	},
	"E102": {
		Category: CategoryConfig,
		Message:  "Invalid configuration value",
		Detail:   "A configuration value is out of range or malformed.",
	},
	"E103": {
		Category: CategoryConfig,
		Message:  "Invalid environment override",
		Detail:   "An LOBBYD_* environment variable could not be parsed.",
	},
	"E104": {
		Category: CategoryConfig,
		Message:  "Unknown configuration key",
		Detail:   "The configuration file contains keys lobbyd does not recognise.",
	},

	// ============================================
	// Server Errors (E120-E139)
	// ============================================

	"E120": {
		Category: CategoryServer,
		Message:  "Failed to start listener",
		Detail:   "The server could not bind its listen address. Another process may be using the port.",
	},
	"E121": {
		Category: CategoryServer,
		Message:  "Server shutdown failed",
		Detail:   "The HTTP server did not stop within the shutdown timeout.",
	},
}
