package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const serviceName = "token-alert-bot"

var output io.Writer = os.Stdout

// Setup configures the global zerolog logger. Unknown levels fall back to
// info; format is "json" or "console".
func Setup(level, format string) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMicro
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	var w io.Writer = output
	if strings.EqualFold(format, "console") {
		w = zerolog.ConsoleWriter{Out: output}
	}
	log.Logger = zerolog.New(w).With().Timestamp().Str("service", serviceName).Logger()
}
