// Package logging provides the slog.Handler backing the daemon's CLI
// bootstrap: a colorized, level-filtered formatter for interactive
// terminals, and a plain JSON formatter otherwise, so operators get
// readable output at a console and structured output under a supervisor.
package logging
