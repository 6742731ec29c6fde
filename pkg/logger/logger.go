package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

type LogLevel string

const (
	DEBUG LogLevel = "debug"
	INFO  LogLevel = "info"
	WARN  LogLevel = "warn"
	ERROR LogLevel = "error"
)

var levelRank = map[LogLevel]int{
	DEBUG: 0,
	INFO:  1,
	WARN:  2,
	ERROR: 3,
}

type Logger struct {
	level   LogLevel
	json    bool
	out     io.Writer
	context map[string]interface{}
	mu      *sync.Mutex
}

var (
	defaultLogger *Logger
	initOnce      sync.Once
)

// Init configures the process-wide logger. Safe to call once at startup;
// later calls are ignored.
func Init(level LogLevel, jsonFormat bool, out io.Writer) {
	initOnce.Do(func() {
		if _, ok := levelRank[level]; !ok {
			level = INFO
		}
		defaultLogger = &Logger{
			level:   level,
			json:    jsonFormat,
			out:     out,
			context: map[string]interface{}{},
			mu:      &sync.Mutex{},
		}
	})
}

func GetLogger() *Logger {
	if defaultLogger == nil {
		Init(INFO, false, os.Stdout)
	}
	return defaultLogger
}

// WithContext returns a logger that attaches the given field to every
// entry. The receiver is not modified.
func (l *Logger) WithContext(key string, value interface{}) *Logger {
	ctx := make(map[string]interface{}, len(l.context)+1)
	for k, v := range l.context {
		ctx[k] = v
	}
	ctx[key] = value
	return &Logger{level: l.level, json: l.json, out: l.out, context: ctx, mu: l.mu}
}

func (l *Logger) log(level LogLevel, event string, kv ...interface{}) {
	if levelRank[level] < levelRank[l.level] {
		return
	}

	fields := make(map[string]interface{}, len(l.context)+len(kv)/2)
	for k, v := range l.context {
		fields[k] = v
	}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kv[i])
		}
		fields[key] = kv[i+1]
	}

	now := time.Now().UTC().Format(time.RFC3339)

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.json {
		entry := map[string]interface{}{
			"time":  now,
			"level": string(level),
			"event": event,
		}
		for k, v := range fields {
			entry[k] = v
		}
		data, err := json.Marshal(entry)
		if err != nil {
			fmt.Fprintf(l.out, `{"time":%q,"level":"error","event":"log_marshal_failed"}`+"\n", now)
			return
		}
		fmt.Fprintln(l.out, string(data))
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s [%s] %s", now, strings.ToUpper(string(level)), event)
	for k, v := range fields {
		fmt.Fprintf(&sb, " %s=%v", k, v)
	}
	fmt.Fprintln(l.out, sb.String())
}

func (l *Logger) Debug(event string, kv ...interface{}) { l.log(DEBUG, event, kv...) }
func (l *Logger) Info(event string, kv ...interface{})  { l.log(INFO, event, kv...) }
func (l *Logger) Warn(event string, kv ...interface{})  { l.log(WARN, event, kv...) }
func (l *Logger) Error(event string, kv ...interface{}) { l.log(ERROR, event, kv...) }

func Debug(event string, kv ...interface{}) { GetLogger().Debug(event, kv...) }
func Info(event string, kv ...interface{})  { GetLogger().Info(event, kv...) }
func Warn(event string, kv ...interface{})  { GetLogger().Warn(event, kv...) }
func Error(event string, kv ...interface{}) { GetLogger().Error(event, kv...) }
