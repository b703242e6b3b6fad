package logging

import (
	"bytes"
	"fmt"

	log "github.com/sirupsen/logrus"
)

// CommandLineFormatter prints bare messages for output meant to be read by a person or piped elsewhere.
// Warnings and errors are prefixed with their level, and an attached error is appended.
type CommandLineFormatter struct{}

func (f *CommandLineFormatter) Format(entry *log.Entry) ([]byte, error) {
	var b bytes.Buffer
	if entry.Level <= log.WarnLevel {
		fmt.Fprintf(&b, "%s: ", entry.Level.String())
	}
	b.WriteString(entry.Message)
	if err, ok := entry.Data[log.ErrorKey]; ok {
		fmt.Fprintf(&b, ": %v", err)
	}
	b.WriteByte('\n')
	return b.Bytes(), nil
}
