package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var (
	log = logrus.New()
)

func init() {
	log.SetOutput(os.Stderr)
	log.SetLevel(logrus.InfoLevel)
}

// For returns an entry tagged with the component name.
func For(component string) *logrus.Entry {
	return log.WithField("component", component)
}

// Configure sets level ("debug", "info", ...) and format ("text" or "json").
// A nil out leaves the current destination untouched.
func Configure(level, format string, out io.Writer) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return fmt.Errorf("invalid log level %q: %w", level, err)
	}
	log.SetLevel(lvl)

	switch format {
	case "", "text":
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	case "json":
		log.SetFormatter(&logrus.JSONFormatter{})
	default:
		return fmt.Errorf("unsupported log format: %s", format)
	}

	if out != nil {
		log.SetOutput(out)
	}
	return nil
}
