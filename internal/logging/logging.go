package logging

import (
	"encoding/json"
	"log"
	"time"
)

// Fields is one structured log line. Empty fields are omitted.
type Fields struct {
	Service    string `json:"service"`
	OrderID    string `json:"order_id,omitempty"`
	UserID     string `json:"user_id,omitempty"`
	ProductID  string `json:"product_id,omitempty"`
	Step       string `json:"step,omitempty"`
	Status     string `json:"status,omitempty"`
	DurationMS int64  `json:"duration_ms,omitempty"`
	Message    string `json:"message,omitempty"`
	Error      string `json:"error,omitempty"`
	Timestamp  string `json:"timestamp"`
}

// Logger stamps every line with its service name.
type Logger struct {
	service string
	out     *log.Logger
}

// New returns a Logger writing through the standard logger.
func New(service string) *Logger {
	return &Logger{service: service, out: log.Default()}
}

// NewWith returns a Logger writing to a specific *log.Logger.
func NewWith(service string, out *log.Logger) *Logger {
	return &Logger{service: service, out: out}
}

// Nop discards everything.
func Nop() *Logger {
	return &Logger{service: "nop"}
}

func (l *Logger) Info(f Fields) {
	if f.Status == "" {
		f.Status = "ok"
	}
	l.write(f)
}

func (l *Logger) Error(f Fields, err error) {
	if f.Status == "" {
		f.Status = "error"
	}
	if err != nil {
		f.Error = err.Error()
	}
	l.write(f)
}

func (l *Logger) write(f Fields) {
	if l == nil || l.out == nil {
		return
	}
	f.Service = l.service
	f.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(f)
	if err != nil {
		l.out.Printf("{\"service\":%q,\"status\":\"log_error\",\"error\":%q}", l.service, err.Error())
		return
	}
	l.out.Print(string(data))
}

// Since is a helper for DurationMS.
func Since(start time.Time) int64 {
	return time.Since(start).Milliseconds()
}
