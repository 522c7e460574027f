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

// Package aggregate groups extracted records for reporting. Grouping is a
// pure function of its inputs: the same records always produce the same
// groups, in the same order, with the same numbering.
package aggregate

import (
	"sort"

	"github.com/envisionhr/attendance-report/internal/models"
)

// NumberedLeave is a leave record with its dense 1-based sheet number.
type NumberedLeave struct {
	No     int
	Record models.LeaveRecord
}

// NumberedAttendance is an attendance record with its dense 1-based sheet
// number. Numbering restarts per category group.
type NumberedAttendance struct {
	No     int
	Record models.AttendanceRecord
}

// ReportGroups holds one slice per report sheet. Each group is sorted by
// receive time ascending, ties broken by source message id so re-runs over
// the same mailbox produce identical output.
type ReportGroups struct {
	LeaveReports []NumberedLeave
	LateArrivals []NumberedAttendance
	Outings      []NumberedAttendance
	EarlyLeaves  []NumberedAttendance
}

// SummaryCounts are the per-group totals shown on the summary sheet.
type SummaryCounts struct {
	LeaveReports int
	LateArrivals int
	Outings      int
	EarlyLeaves  int
	Errors       int
}

// Total sums every group including errors.
func (c SummaryCounts) Total() int {
	return c.LeaveReports + c.LateArrivals + c.Outings + c.EarlyLeaves + c.Errors
}

// Aggregate splits records into report groups, sorts and numbers each group,
// and tallies the summary counts. Extraction errors contribute to the counts
// but have no group of their own; the assembler lists them separately.
func Aggregate(records []models.Record, errs []models.ExtractionError) (ReportGroups, SummaryCounts) {
	var leaves []models.LeaveRecord
	var attendance [3][]models.AttendanceRecord

	for _, rec := range records {
		switch r := rec.(type) {
		case models.LeaveRecord:
			leaves = append(leaves, r)
		case models.AttendanceRecord:
			attendance[r.Category] = append(attendance[r.Category], r)
		}
	}

	groups := ReportGroups{
		LeaveReports: numberLeaves(leaves),
		LateArrivals: numberAttendance(attendance[models.CategoryLateArrival]),
		Outings:      numberAttendance(attendance[models.CategoryOuting]),
		EarlyLeaves:  numberAttendance(attendance[models.CategoryEarlyLeave]),
	}
	counts := SummaryCounts{
		LeaveReports: len(groups.LeaveReports),
		LateArrivals: len(groups.LateArrivals),
		Outings:      len(groups.Outings),
		EarlyLeaves:  len(groups.EarlyLeaves),
		Errors:       len(errs),
	}
	return groups, counts
}

func numberLeaves(recs []models.LeaveRecord) []NumberedLeave {
	sortRecords(recs, func(r models.LeaveRecord) (int64, string) {
		return r.ReceivedAt.UnixNano(), r.SourceMessageID
	})
	out := make([]NumberedLeave, len(recs))
	for i, r := range recs {
		out[i] = NumberedLeave{No: i + 1, Record: r}
	}
	return out
}

func numberAttendance(recs []models.AttendanceRecord) []NumberedAttendance {
	sortRecords(recs, func(r models.AttendanceRecord) (int64, string) {
		return r.ReceivedAt.UnixNano(), r.SourceMessageID
	})
	out := make([]NumberedAttendance, len(recs))
	for i, r := range recs {
		out[i] = NumberedAttendance{No: i + 1, Record: r}
	}
	return out
}

func sortRecords[T any](recs []T, key func(T) (int64, string)) {
	sort.SliceStable(recs, func(i, j int) bool {
		ti, idi := key(recs[i])
		tj, idj := key(recs[j])
		if ti != tj {
			return ti < tj
		}
		return idi < idj
	})
}
