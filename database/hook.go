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

package database

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/fatih/color"
	"github.com/uptrace/bun"
)

// QueryHook logs slow and failed statements through a Logger. Failures are
// logged at debug level with their classification; the caller decides
// whether they matter.
type QueryHook struct {
	logger   Logger
	slowTime time.Duration
}

var _ bun.QueryHook = (*QueryHook)(nil)

// NewQueryHook returns a hook warning about statements slower than slowTime.
// A zero slowTime disables slow statement warnings and a nil logger means
// the package logger.
func NewQueryHook(logger Logger, slowTime time.Duration) *QueryHook {
	return &QueryHook{logger: logger, slowTime: slowTime}
}

func (h *QueryHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *QueryHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	logger := h.logger
	if logger == nil {
		logger = GetLogger()
	}
	dur := time.Since(event.StartTime)

	if event.Err != nil {
		if errors.Is(event.Err, sql.ErrNoRows) || errors.Is(event.Err, sql.ErrTxDone) {
			return
		}
		logger.Debug("Statement failed",
			"operation", event.Operation(),
			"kind", classify(event.Err),
			"duration", dur.Round(time.Microsecond),
			"query", color.New(color.BgRed).Sprint(event.Query),
			"error", event.Err,
		)
		return
	}

	if h.slowTime > 0 && dur > h.slowTime {
		logger.Warn("Slow statement",
			"operation", event.Operation(),
			"duration", dur.Round(time.Microsecond),
			"query", operationColor(event.Operation()).Sprint(event.Query),
		)
	}
}

func operationColor(operation string) *color.Color {
	switch operation {
	case "SELECT":
		return color.New(color.FgGreen)
	case "INSERT":
		return color.New(color.FgBlue)
	case "UPDATE":
		return color.New(color.FgYellow)
	case "DELETE":
		return color.New(color.FgMagenta)
	default:
		return color.New(color.FgRed)
	}
}
