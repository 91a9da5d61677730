package pydec

import (
	"io"

	"github.com/sirupsen/logrus"
)

// discardLogger is used whenever a caller doesn't supply their own
// *logrus.Entry, so Interpreter/renderers can log unconditionally instead
// of nil-checking at every call site.
func discardLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

// withOp annotates a log entry with the fields every opcode-dispatch log
// line carries: offset and mnemonic. Grounded on the per-opcode structured
// logging in aj3423/edb's opcode table and tracer.
func withOp(log *logrus.Entry, offset int64, mnemonic string) *logrus.Entry {
	return log.WithFields(logrus.Fields{
		"offset":   offset,
		"mnemonic": mnemonic,
	})
}
