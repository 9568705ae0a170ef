/*
Package log provides structured logging for karatekonnect using zerolog.

A single global Logger is configured once by Init, normally from the CLI's
persistent pre-run hook. Until then it is a no-op logger, so library code and
tests never write anything unless asked to.

# Usage

	log.Init(log.Config{
		Level:      log.InfoLevel,
		JSONOutput: false,
	})

	logger := log.WithComponent("cache")
	logger.Warn().Err(err).Msg("Discarding corrupt cache entry")

Component loggers are derived when a component is constructed, so Init must
run before the components are built.

# Fields

  - component: cache, credential, remote, roster
  - athlete_id: set on record-level operations
  - request_id: the X-Request-Id sent to the remote store

Output goes to stderr by default; command results are printed to stdout.
*/
package log
