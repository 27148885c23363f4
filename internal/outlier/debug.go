package outlier

import (
	"io"
	"log"
	"sync"
)

// LogWriters holds the io.Writers for each logging stream.
type LogWriters struct {
	Ops   io.Writer
	Diag  io.Writer
	Trace io.Writer
}

var (
	logMu       sync.RWMutex
	opsLogger   *log.Logger
	diagLogger  *log.Logger
	traceLogger *log.Logger
)

// SetLogWriters configures all three logging streams at once.
// Pass nil for any writer to disable that stream. All streams are disabled
// until this is called.
func SetLogWriters(w LogWriters) {
	logMu.Lock()
	defer logMu.Unlock()
	opsLogger = newLogger(w.Ops)
	diagLogger = newLogger(w.Diag)
	traceLogger = newLogger(w.Trace)
}

func newLogger(w io.Writer) *log.Logger {
	if w == nil {
		return nil
	}
	return log.New(w, "[outlier] ", log.LstdFlags|log.Lmicroseconds)
}

// opsf logs rejected calls and aborted runs.
func opsf(format string, args ...interface{}) {
	logTo(&opsLogger, format, args...)
}

// diagf logs one summary line per completed run.
func diagf(format string, args ...interface{}) {
	logTo(&diagLogger, format, args...)
}

// tracef logs scan progress.
func tracef(format string, args ...interface{}) {
	logTo(&traceLogger, format, args...)
}

func logTo(l **log.Logger, format string, args ...interface{}) {
	logMu.RLock()
	lg := *l
	logMu.RUnlock()
	if lg != nil {
		lg.Printf(format, args...)
	}
}
