// Package logger provides lightweight structured logging for factdb's
// commit/replay/destruct pipeline.
//
// factdb is an embedded library, not a server process, so each line
// carries a goroutine id — useful for telling the single writer apart
// from concurrent readers — rather than a PID. Only two levels exist
// because that is all the library itself ever emits: INFO marks
// lifecycle events (a database opened, two histories merged); TRACE
// carries subsystem-scoped commit-pipeline detail, including each
// committed transaction, and stays silent until a caller opts a
// subsystem in. Anything worse than INFO — a corrupt node,
// a uniqueness violation — is returned as an error rather than logged;
// callers that want it in their own logs can log the returned error
// themselves.
//
// Log line format:
//
//	YYYY/MM/DD HH:MM:SS.ssssss [g<goroutine>] [LEVEL] function.file:line: message
package logger

import (
	"fmt"
	"log"
	"os"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// LogLevel is the severity of a log message. Levels are hierarchical:
// setting a level only emits messages at that level or above.
type LogLevel int32

const (
	// TRACE messages are subsystem-scoped and silent until that subsystem
	// is opted in via EnableTrace or Configure: commit pipeline steps
	// (subsystem "commit").
	TRACE LogLevel = iota
	// INFO messages mark lifecycle events: a database opened, two
	// histories merged.
	INFO
)

var levelNames = map[LogLevel]string{
	TRACE: "TRACE",
	INFO:  "INFO",
}

var (
	currentLevel atomic.Int32

	// traceSubsystems tracks which pipeline stages currently emit TRACE
	// output. The stages that actually call TraceIf today: "commit".
	traceSubsystems = make(map[string]bool)
	traceMutex      sync.RWMutex

	out *log.Logger
)

func init() {
	out = log.New(os.Stdout, "", 0)
	currentLevel.Store(int32(INFO))
}

// SetLogLevel sets the minimum level by name ("TRACE" or "INFO").
func SetLogLevel(level string) error {
	switch strings.ToUpper(level) {
	case "TRACE":
		currentLevel.Store(int32(TRACE))
	case "INFO":
		currentLevel.Store(int32(INFO))
	default:
		return fmt.Errorf("logger: unknown log level %q", level)
	}
	return nil
}

// EnableTrace turns on TRACE output for the named pipeline subsystems.
// It has no effect unless the level is also at or below TRACE.
func EnableTrace(subsystems ...string) {
	traceMutex.Lock()
	defer traceMutex.Unlock()
	for _, s := range subsystems {
		traceSubsystems[s] = true
	}
}

func isTraceEnabled(subsystem string) bool {
	traceMutex.RLock()
	defer traceMutex.RUnlock()
	return traceSubsystems[subsystem]
}

// render formats one log entry: timestamp, goroutine id, level, the
// calling function/file/line skip frames up, and the message.
func render(level LogLevel, skip int, msg string) string {
	pc, file, lineNo, ok := runtime.Caller(skip)
	if !ok {
		file, lineNo = "unknown", 0
	}
	if idx := strings.LastIndex(file, "/"); idx != -1 {
		file = file[idx+1:]
	}
	file = strings.TrimSuffix(file, ".go")

	funcName := "unknown"
	if fn := runtime.FuncForPC(pc); fn != nil {
		full := fn.Name()
		if idx := strings.LastIndex(full, "."); idx != -1 {
			funcName = full[idx+1:]
		}
	}

	return fmt.Sprintf("%s [g%d] [%s] %s.%s:%d: %s",
		time.Now().Format("2006/01/02 15:04:05.000000"),
		goroutineID(), levelNames[level], funcName, file, lineNo, msg)
}

// goroutineID extracts the calling goroutine's id from its stack trace
// header ("goroutine 17 [running]:"), the only way to get it without
// threading one through every call in the commit/replay/destruct chain.
func goroutineID() int {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	id := 0
	fmt.Sscanf(strings.Fields(string(buf[:n]))[1], "%d", &id)
	return id
}

// Info logs an INFO-level lifecycle event.
func Info(format string, args ...interface{}) {
	if LogLevel(currentLevel.Load()) > INFO {
		return
	}
	out.Println(render(INFO, 3, fmt.Sprintf(format, args...)))
}

// TraceIf emits a TRACE message only when both the level allows TRACE
// and subsystem has been opted in via EnableTrace or Configure.
func TraceIf(subsystem string, format string, args ...interface{}) {
	if LogLevel(currentLevel.Load()) > TRACE || !isTraceEnabled(subsystem) {
		return
	}
	out.Println(render(TRACE, 3, fmt.Sprintf("[%s] %s", subsystem, fmt.Sprintf(format, args...))))
}

// Configure reads FACTDB_LOG_LEVEL and FACTDB_TRACE_SUBSYSTEMS from the
// environment and applies them. A host process embedding factdb can call
// this once at startup instead of wiring SetLogLevel/EnableTrace itself.
func Configure() {
	if level := os.Getenv("FACTDB_LOG_LEVEL"); level != "" {
		SetLogLevel(level)
	}
	if trace := os.Getenv("FACTDB_TRACE_SUBSYSTEMS"); trace != "" {
		subsystems := strings.Split(trace, ",")
		for i, s := range subsystems {
			subsystems[i] = strings.TrimSpace(s)
		}
		EnableTrace(subsystems...)
	}
}
