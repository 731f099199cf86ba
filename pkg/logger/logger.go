package logger

import (
	"fmt"

	"go.uber.org/zap"
)

var log *zap.Logger

var serviceName = "default"

func SetServiceName(newName string) string {
	oldName := serviceName
	serviceName = newName

	return oldName
}

// Init builds the process-wide zap logger. Safe to call once from the
// composition root before any other package logs.
func Init() error {
	l, err := zap.NewProduction(zap.AddCallerSkip(1))
	if err != nil {
		return err
	}
	log = l
	return nil
}

func base() *zap.Logger {
	if log == nil {
		// tests and one-shot tools may log without Init
		log = zap.NewNop()
	}
	return log
}

func Info(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	base().With(
		zap.String("service", serviceName),
	).Info(msg)
}

func Warn(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	base().With(
		zap.String("service", serviceName),
	).Warn(msg)
}

func Error(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	base().With(
		zap.String("service", serviceName),
	).Error(msg)
}

func Fatal(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	base().With(
		zap.String("service", serviceName),
	).Fatal(msg)
}
