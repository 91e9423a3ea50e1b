/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
)

type Logger = logrus.Logger

const timestampFormat = "2006-01-02 15:04:05.000"

var (
	registryMu    sync.RWMutex
	registry      = map[string]*logrus.Logger{}
	defaultLevel  = ParseLogLevel(EnvDefaultString("TXHARNESS_LOG_LEVEL", "info"))
	consoleFormat = normalizeFormat(EnvDefaultString("TXHARNESS_LOG_FORMAT", "text"))
	output        io.Writer = os.Stderr
)

// NewLogger returns the named logger, creating and registering it on first use.
// Every registered logger follows ConfigureLogLevel, ConfigureConsoleLogFormat
// and SetOutput.
func NewLogger(name string) *logrus.Logger {
	registryMu.Lock()
	defer registryMu.Unlock()
	if l, ok := registry[name]; ok {
		return l
	}
	l := logrus.New()
	l.SetOutput(output)
	l.SetLevel(defaultLevel)
	l.SetReportCaller(true)
	l.SetFormatter(newFormatter(name, consoleFormat))
	registry[name] = l
	return l
}

// ParseLogLevel maps a level name to a logrus level; unknown names mean info.
func ParseLogLevel(s string) logrus.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return logrus.TraceLevel
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	case "fatal":
		return logrus.FatalLevel
	case "panic":
		return logrus.PanicLevel
	default:
		return logrus.InfoLevel
	}
}

// ConfigureLogLevel sets the level of every logger, present and future.
func ConfigureLogLevel(levelStr string) {
	lvl := ParseLogLevel(levelStr)
	registryMu.Lock()
	defer registryMu.Unlock()
	defaultLevel = lvl
	for _, l := range registry {
		l.SetLevel(lvl)
	}
}

// SetLoggerLevel changes a single registered logger.
func SetLoggerLevel(name string, levelStr string) bool {
	registryMu.RLock()
	l, ok := registry[name]
	registryMu.RUnlock()
	if !ok {
		return false
	}
	l.SetLevel(ParseLogLevel(levelStr))
	return true
}

// ConfigureConsoleLogFormat switches every logger between "text" and "json".
func ConfigureConsoleLogFormat(format string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	consoleFormat = normalizeFormat(format)
	for name, l := range registry {
		l.SetFormatter(newFormatter(name, consoleFormat))
	}
}

// SetOutput redirects every logger.
func SetOutput(w io.Writer) {
	registryMu.Lock()
	defer registryMu.Unlock()
	output = w
	for _, l := range registry {
		l.SetOutput(w)
	}
}

func normalizeFormat(format string) string {
	if strings.ToLower(strings.TrimSpace(format)) == "json" {
		return "json"
	}
	return "text"
}

func newFormatter(name, format string) logrus.Formatter {
	if format == "json" {
		return &JSONLogFormatter{LoggerName: name}
	}
	return &Log4jColorFormatter{LoggerName: name, NameWidth: 10}
}

// Log4jColorFormatter renders
// "2025-01-02 15:04:05.000    INFO 4242 --- [  HARNESS] worker.go:61 : message k=v".
type Log4jColorFormatter struct {
	LoggerName      string
	TimestampFormat string
	NameWidth       int
}

func (f *Log4jColorFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	tsFmt := f.TimestampFormat
	if tsFmt == "" {
		tsFmt = timestampFormat
	}
	var b strings.Builder
	b.WriteString(entry.Time.Format(tsFmt))
	b.WriteString(" ")
	b.WriteString(levelColor(entry.Level).Sprintf("%7s", strings.ToUpper(entry.Level.String())))
	b.WriteString(" ")
	b.WriteString(color.MagentaString("%-6d", os.Getpid()))
	b.WriteString("--- ")
	b.WriteString(color.CyanString("[%*s]", f.NameWidth, limitRunes(f.LoggerName, f.NameWidth)))
	if entry.Caller != nil {
		b.WriteString(" ")
		b.WriteString(color.New(color.Faint).Sprintf("%s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line))
	}
	b.WriteString(" : ")
	b.WriteString(entry.Message)
	for _, k := range sortedKeys(entry.Data) {
		fmt.Fprintf(&b, " %s=%v", color.New(color.Faint).Sprint(k), entry.Data[k])
	}
	b.WriteString("\n")
	return []byte(b.String()), nil
}

// JSONLogFormatter renders one JSON object per line.
type JSONLogFormatter struct {
	LoggerName      string
	TimestampFormat string
}

func (f *JSONLogFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	tsFmt := f.TimestampFormat
	if tsFmt == "" {
		tsFmt = timestampFormat
	}
	type jsonLogRecord struct {
		Time    string                 `json:"time"`
		Level   string                 `json:"level"`
		Logger  string                 `json:"logger"`
		Caller  string                 `json:"caller,omitempty"`
		Message string                 `json:"message"`
		Fields  map[string]interface{} `json:"fields,omitempty"`
	}
	rec := jsonLogRecord{
		Time:    entry.Time.Format(tsFmt),
		Level:   entry.Level.String(),
		Logger:  f.LoggerName,
		Message: entry.Message,
	}
	if entry.Caller != nil {
		rec.Caller = fmt.Sprintf("%s:%d", filepath.Base(entry.Caller.File), entry.Caller.Line)
	}
	if len(entry.Data) > 0 {
		rec.Fields = make(map[string]interface{}, len(entry.Data))
		for k, v := range entry.Data {
			if err, ok := v.(error); ok {
				v = err.Error()
			}
			rec.Fields[k] = v
		}
	}
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

func levelColor(level logrus.Level) *color.Color {
	switch level {
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return color.New(color.FgRed)
	case logrus.WarnLevel:
		return color.New(color.FgYellow)
	case logrus.InfoLevel:
		return color.New(color.FgGreen)
	case logrus.DebugLevel:
		return color.New(color.FgBlue)
	default:
		return color.New(color.FgMagenta)
	}
}

func sortedKeys(data logrus.Fields) []string {
	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func limitRunes(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	return string(r[:n])
}

func EnvDefaultString(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
