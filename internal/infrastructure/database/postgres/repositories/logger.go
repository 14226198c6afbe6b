package repositories

import "github.com/bpointel/docintel/internal/infrastructure/monitoring/logging"

// Logger is the minimal logging contract required by repository
// implementations.  It is satisfied by the platform's
// monitoring/logging.Logger.
type Logger interface {
	Debug(msg string, fields ...logging.Field)
	Warn(msg string, fields ...logging.Field)
	Error(msg string, fields ...logging.Field)
}
