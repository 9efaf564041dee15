package schedule

import (
	"fmt"
	"runtime/debug"
)

type ReportFunc func(err error)

// PanicError is a panic recovered from a protected callback.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("schedule: recovered panic: %v", e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Protected runs fn and reports false if it panicked. The panic never reaches
// the caller; it is handed to report on a later task instead.
func Protected(s Scheduler, report ReportFunc, fn func()) (ok bool) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			ReportAsync(s, report, &PanicError{Value: r, Stack: debug.Stack()})
		}
	}()
	fn()
	return true
}

func ReportAsync(s Scheduler, report ReportFunc, err error) {
	if report == nil || err == nil {
		return
	}
	s.Schedule(func() {
		report(err)
	})
}
