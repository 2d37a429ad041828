package observability

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/danmuck/invokereader/internal/logging"
)

// InitLogger configures the process logger and tags it with app. level applies
// unless INVOKEREADER_LOG_LEVEL is set.
func InitLogger(app, level string) zerolog.Logger {
	logging.ConfigureRuntime()
	if _, fromEnv := os.LookupEnv(logging.EnvLogLevel); !fromEnv {
		if lvl, ok := logging.ParseLevel(level); ok {
			zerolog.SetGlobalLevel(lvl)
			log.Logger = log.Logger.Level(lvl)
		}
	}
	logger := log.With().Str("app", app).Logger()
	log.Logger = logger
	return logger
}
