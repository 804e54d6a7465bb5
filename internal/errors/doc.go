// Package errors provides coded, actionable errors for lobbyd's command line
// and configuration layer.
//
// Each code (e.g. "E101") maps to a category, a short message and a longer
// explanation. Callers add specifics with WithDetail and WithSuggestion and
// keep the cause with Wrap, so errors.Is and errors.As still see it.
//
// # Usage
//
//	err := errors.New("E102").
//	    WithDetail("max_sessions must be positive, got 0").
//	    WithSuggestion("Set max_sessions in lobbyd.toml or LOBBYD_MAX_SESSIONS")
//
//	fmt.Fprintln(os.Stderr, err.Format())
//	// ERROR E102: Invalid configuration value
//	//
//	//   max_sessions must be positive, got 0
//	//
//	//   Hint: Set max_sessions in lobbyd.toml or LOBBYD_MAX_SESSIONS
package errors
