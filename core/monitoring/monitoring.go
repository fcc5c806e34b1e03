// Package monitoring exposes a process-wide error reporter. The default is a
// no-op; the serve command installs a Sentry-backed monitor when a DSN is set.
package monitoring

import "time"

// Config holds the error reporting settings.
type Config struct {
	DSN              string  `json:"dsn"`
	Environment      string  `json:"environment"`
	Release          string  `json:"release"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
}

// Monitor defines methods used for error reporting.
type Monitor interface {
	CaptureException(err error, tags map[string]string)
	RecoverPanic(r any)
	Flush(timeout time.Duration)
}

type NopMonitor struct{}

func (NopMonitor) CaptureException(error, map[string]string) {}
func (NopMonitor) RecoverPanic(any)                          {}
func (NopMonitor) Flush(time.Duration)                       {}

var current Monitor = NopMonitor{}

// Init sets the global monitor implementation.
func Init(m Monitor) {
	if m != nil {
		current = m
	}
}

// Current returns the installed monitor.
func Current() Monitor { return current }

// CaptureException records the error with optional tags.
func CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	current.CaptureException(err, tags)
}

// Tags builds a tag map from alternating key/value pairs, skipping empty values.
func Tags(kv ...string) map[string]string {
	tags := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] != "" {
			tags[kv[i]] = kv[i+1]
		}
	}
	return tags
}

// Guard runs fn and reports a panic before re-raising it. Background loops
// wrap their bodies with it.
func Guard(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			current.RecoverPanic(r)
			panic(r)
		}
	}()
	fn()
}

// Flush flushes buffered events.
func Flush(d time.Duration) {
	current.Flush(d)
}
