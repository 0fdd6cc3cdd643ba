package middleware

import (
	"fmt"
	"runtime/debug"

	log "github.com/sirupsen/logrus"
)

// RecoverFromPanic логирует панику вместе со стеком и гасит её.
// Вызывать только через defer: defer middleware.RecoverFromPanic(log.Fields{...}).
func RecoverFromPanic(fields log.Fields) {
	if r := recover(); r != nil {
		entry := log.WithFields(log.Fields{
			"component": "panic_recovery",
			"panic":     fmt.Sprintf("%v", r),
			"stack":     string(debug.Stack()),
		})
		if fields != nil {
			entry = entry.WithFields(fields)
		}
		entry.Error("ПАНИКА в воркере — восстановлено")
	}
}
