// Copyright (c) 2026 Envision Co., Ltd.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package pipeline runs a batch of raw messages through classification,
// field extraction and aggregation. One bad message never aborts the batch;
// it becomes an extraction error in the result instead.
package pipeline

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/envisionhr/attendance-report/internal/aggregate"
	"github.com/envisionhr/attendance-report/internal/classify"
	"github.com/envisionhr/attendance-report/internal/extract"
	"github.com/envisionhr/attendance-report/internal/models"
)

// DepartmentLookup resolves a sender address to a department name. An empty
// result or an error both degrade to an unknown department; the lookup can
// never fail a message.
type DepartmentLookup func(ctx context.Context, address string) (string, error)

// Result is the outcome of one pipeline run.
type Result struct {
	RunID  string
	Groups aggregate.ReportGroups
	Counts aggregate.SummaryCounts
	Errors []models.ExtractionError
}

// Pipeline classifies, extracts and aggregates message batches.
type Pipeline struct {
	logger *slog.Logger
	lookup DepartmentLookup
}

// New returns a pipeline using lookup for sender departments. lookup may be
// nil, in which case every record carries the unknown department.
func New(logger *slog.Logger, lookup DepartmentLookup) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{logger: logger, lookup: lookup}
}

// Process runs one batch. Messages without a recognised subject tag are
// dropped silently; tagged messages either yield a record or an extraction
// error, never nothing.
func (p *Pipeline) Process(ctx context.Context, msgs []models.RawMessage) Result {
	runID := uuid.NewString()
	logger := p.logger.With("run_id", runID)

	var records []models.Record
	var errs []models.ExtractionError
	departments := map[string]string{}
	dropped := 0

	for _, msg := range msgs {
		kind, ok := classify.ClassifyKind(msg.Subject)
		if !ok {
			dropped++
			continue
		}

		rec, extErr := p.processOne(ctx, logger, kind, msg, departments)
		if extErr != nil {
			logger.Warn("message failed extraction",
				"message_id", msg.ID,
				"kind", kind.String(),
				"reason", extErr.Reason)
			errs = append(errs, *extErr)
			continue
		}
		records = append(records, rec)
	}

	groups, counts := aggregate.Aggregate(records, errs)
	logger.Info("pipeline run complete",
		"messages", len(msgs),
		"dropped", dropped,
		"records", len(records),
		"errors", len(errs))

	return Result{RunID: runID, Groups: groups, Counts: counts, Errors: errs}
}

func (p *Pipeline) processOne(
	ctx context.Context,
	logger *slog.Logger,
	kind models.MessageKind,
	msg models.RawMessage,
	departments map[string]string,
) (models.Record, *models.ExtractionError) {
	var category models.AttendanceCategory
	if kind == models.KindAttendanceShare {
		if name, excluded := classify.ExcludedType(msg.Body); excluded {
			return nil, &models.ExtractionError{
				SourceMessageID: msg.ID,
				KindGuess:       kind,
				BodyExcerpt:     models.Excerpt(msg.Body),
				Reason:          "excluded attendance type: " + name,
				ReceivedAt:      msg.ReceivedAt,
			}
		}
		var ok bool
		category, ok = classify.ClassifyCategory(msg.Body)
		if !ok {
			return nil, &models.ExtractionError{
				SourceMessageID: msg.ID,
				KindGuess:       kind,
				BodyExcerpt:     models.Excerpt(msg.Body),
				Reason:          "no attendance category keyword in body",
				ReceivedAt:      msg.ReceivedAt,
			}
		}
	}

	return extract.Extract(kind, category, msg, p.department(ctx, logger, msg.SenderAddress, departments))
}

// department memoises the lookup per sender address for the run. A failed
// lookup is logged and degrades to "", never to a message failure.
func (p *Pipeline) department(
	ctx context.Context,
	logger *slog.Logger,
	address string,
	cache map[string]string,
) string {
	if p.lookup == nil || address == "" {
		return ""
	}
	if dept, ok := cache[address]; ok {
		return dept
	}
	dept, err := p.lookup(ctx, address)
	if err != nil {
		logger.Warn("department lookup failed", "address", address, "error", err)
		dept = ""
	}
	cache[address] = dept
	return dept
}
