package datastore

import (
	"log/slog"
	"sync"

	"github.com/aquatel/hydronet-go/internal/logging"
)

var (
	dsLogger     *slog.Logger
	dsLoggerOnce sync.Once
)

// getLogger returns the datastore service logger. Audit entries for topology
// and pendency mutations go through it; logging failures never fail the
// primary operation.
func getLogger() *slog.Logger {
	dsLoggerOnce.Do(func() {
		dsLogger = logging.ForService("datastore")
		if dsLogger == nil {
			logging.Init()
			dsLogger = logging.ForService("datastore")
		}
	})
	return dsLogger
}
