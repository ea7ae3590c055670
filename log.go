package videocapture

import (
	"sync"

	"github.com/pion/logging"
)

var (
	loggerFactoryMu sync.RWMutex
	loggerFactory   logging.LoggerFactory = logging.NewDefaultLoggerFactory()
)

// SetLoggerFactory replaces the factory used by components created without
// an explicit one. Scopes used: "camera", "renderer", "testpattern", "native".
func SetLoggerFactory(factory logging.LoggerFactory) {
	if factory == nil {
		factory = logging.NewDefaultLoggerFactory()
	}
	loggerFactoryMu.Lock()
	loggerFactory = factory
	loggerFactoryMu.Unlock()
}

func newLogger(factory logging.LoggerFactory, scope string) logging.LeveledLogger {
	if factory == nil {
		loggerFactoryMu.RLock()
		factory = loggerFactory
		loggerFactoryMu.RUnlock()
	}
	return factory.NewLogger(scope)
}
