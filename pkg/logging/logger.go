// Package logging provides the process-wide logger, backed by zap.
package logging

import (
	"log"

	"go.uber.org/zap"
)

var sugar *zap.SugaredLogger

// InitLogging initializes the logger. Release mode uses zap's production
// JSON encoder, everything else the development console encoder.
func InitLogging(mode string) {
	var logger *zap.Logger
	var err error
	if mode == "release" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	sugar = logger.Sugar()
}

// Infof logs info level messages
func Infof(format string, v ...interface{}) {
	if sugar != nil {
		sugar.Infof(format, v...)
	}
}

// Warnf logs warning level messages
func Warnf(format string, v ...interface{}) {
	if sugar != nil {
		sugar.Warnf(format, v...)
	}
}

// Errorf logs error level messages
func Errorf(format string, v ...interface{}) {
	if sugar != nil {
		sugar.Errorf(format, v...)
	}
}

// Sync flushes any buffered log entries.
func Sync() {
	if sugar != nil {
		_ = sugar.Sync()
	}
}
