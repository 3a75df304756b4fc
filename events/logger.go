package events

import "fmt"

// Logger is the logging surface used by the forwarder
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

type defLogger struct{}

func (defLogger) Debug(format string, args ...any) {}

func (defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] EVENTS "+format+"\n", args...)
}

func (defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] EVENTS "+format+"\n", args...)
}

func (defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] EVENTS "+format+"\n", args...)
}
