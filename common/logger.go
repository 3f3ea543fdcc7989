package common

import (
	"fmt"
)

// Logger is the logging capability injected into every component.
// The library defaults to NewNopLogger so that embedding the scanner
// never produces output the host application did not ask for.
type Logger interface {
	Log(format string, args ...interface{})
}

type logger struct {
	component string
}

func NewLogger(component string) Logger {
	return &logger{
		component: component,
	}
}

func (l *logger) Log(format string, args ...interface{}) {
	fmt.Printf("[%s] %s\n", l.component, fmt.Sprintf(format, args...))
}

type nopLogger struct{}

func NewNopLogger() Logger {
	return nopLogger{}
}

func (nopLogger) Log(string, ...interface{}) {}
