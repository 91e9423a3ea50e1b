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

package metrics

import (
	"context"
	"time"

	"github.com/uptrace/bun"
)

type statementHook struct {
	m *Metrics
}

// QueryHook returns a bun hook counting and timing every statement.
func (m *Metrics) QueryHook() bun.QueryHook {
	return &statementHook{m: m}
}

func (h *statementHook) BeforeQuery(ctx context.Context, _ *bun.QueryEvent) context.Context {
	return ctx
}

func (h *statementHook) AfterQuery(_ context.Context, event *bun.QueryEvent) {
	if h.m == nil {
		return
	}
	operation := event.Operation()
	status := "ok"
	if event.Err != nil {
		status = "error"
	}
	h.m.Statements.WithLabelValues(operation, status).Inc()
	h.m.StatementDuration.WithLabelValues(operation).Observe(time.Since(event.StartTime).Seconds())
}
