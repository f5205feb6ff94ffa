/*
Package log provides structured logging for the bot manager using zerolog.

A single global logger is configured once via Init, either as JSON (for
aggregation) or console output (for interactive use). Packages derive child
loggers carrying their identifying fields:

	logger := log.WithComponent("bot")
	logger.Info().Str("workload", name).Msg("bot workload created")

WithUserID, WithConnectionID and WithWorkload attach the fields used to
trace one bot session across admission, creation, and teardown.
*/
package log
