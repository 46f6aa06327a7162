package credentialexchange

import (
	"fmt"
	"os"
)

var isTraceEnabled bool

// SetTrace toggles trace output. Call it from command initialisation,
// importing this package never changes logging behaviour on its own.
func SetTrace(enabled bool) {
	isTraceEnabled = enabled
}

func Write(format string, msg ...interface{}) {
	fmt.Fprintf(os.Stderr, format, msg...)
}

func Writeln(format string, msg ...interface{}) {
	fmt.Fprintln(os.Stderr, fmt.Sprintf(format, msg...))
}

func Traceln(format string, msg ...interface{}) {
	if isTraceEnabled {
		fmt.Fprintln(os.Stderr, fmt.Sprintf(format, msg...))
	}
}

func Exit(err error) {
	if err != nil {
		Writeln(err.Error())
	}
	os.Exit(1)
}
