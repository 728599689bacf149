package autopacket

import "github.com/rs/zerolog"

// defaultLogger is silent unless a caller supplies one via WithLogger,
// mirroring the "configure or get a no-op" posture common across this
// codebase's logging integrations.
func defaultLogger() zerolog.Logger {
	return zerolog.Nop()
}
