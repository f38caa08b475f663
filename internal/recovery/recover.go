// Package recovery turns panics in store drivers and row decoders into
// ordinary errors so one bad query cannot take the server down.
package recovery

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
)

// ErrPanic matches every error produced from a recovered panic.
var ErrPanic = errors.New("panic recovered")

// PanicError carries the recovered value.
type PanicError struct {
	Operation string
	Value     any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s panicked: %v", e.Operation, e.Value)
}

func (e *PanicError) Is(target error) bool { return target == ErrPanic }

// RecoverToValue calls fn and converts a panic into a *PanicError.
//
//	rows, err := recovery.RecoverToValue(logger, "store query", func() ([][]any, error) {
//	    return store.Query(ctx, stmt)
//	})
func RecoverToValue[T any](logger *slog.Logger, operation string, fn func() (T, error)) (result T, err error) {
	defer func() {
		if r := recover(); r != nil {
			logPanic(logger, operation, r)
			var zero T
			result = zero
			err = &PanicError{Operation: operation, Value: r}
		}
	}()

	return fn()
}

// RecoverToError is RecoverToValue for functions without a result.
func RecoverToError(logger *slog.Logger, operation string, fn func() error) (err error) {
	_, err = RecoverToValue(logger, operation, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

func logPanic(logger *slog.Logger, operation string, r any) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.Error("Panic recovered",
		"operation", operation,
		"panic", r,
		"stack", string(debug.Stack()),
	)
}
