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

// Package report turns aggregated record groups into the daily workbook.
// Assembly (deciding sheets, columns and cell text) is separated from the
// xlsx encoding so the layout can be tested without parsing a workbook.
package report

import (
	"fmt"
	"strconv"
	"time"

	"github.com/envisionhr/attendance-report/internal/aggregate"
	"github.com/envisionhr/attendance-report/internal/models"
)

// Sheet names. The attendance sheets exist even when empty so readers always
// find the same workbook shape.
const (
	SheetSummary      = "요약"
	SheetLeave        = "휴가신고"
	SheetLateArrival  = "근태공유_출근지연"
	SheetOuting       = "근태공유_외출"
	SheetEarlyLeave   = "근태공유_조기퇴근"
	SheetUnclassified = "미분류"
)

// Sheet is one worksheet: a header row plus data rows, all as display text.
type Sheet struct {
	Name    string
	Columns []string
	Rows    [][]string
}

// ReportSpec is a fully assembled workbook, ready for encoding.
type ReportSpec struct {
	Filename string
	Sheets   []Sheet
}

// Filename returns the canonical workbook name for a run date.
func Filename(runDate time.Time) string {
	return "근태휴가_보고서_" + runDate.Format("20060102") + ".xlsx"
}

// Assemble lays out the workbook for one pipeline run. The unclassified
// sheet appears only when there are extraction errors to review.
func Assemble(
	groups aggregate.ReportGroups,
	counts aggregate.SummaryCounts,
	errs []models.ExtractionError,
	runDate time.Time,
) ReportSpec {
	sheets := []Sheet{
		summarySheet(counts),
		leaveSheet(groups.LeaveReports),
		attendanceSheet(SheetLateArrival, groups.LateArrivals),
		attendanceSheet(SheetOuting, groups.Outings),
		attendanceSheet(SheetEarlyLeave, groups.EarlyLeaves),
	}
	if len(errs) > 0 {
		sheets = append(sheets, unclassifiedSheet(errs))
	}
	return ReportSpec{Filename: Filename(runDate), Sheets: sheets}
}

func summarySheet(counts aggregate.SummaryCounts) Sheet {
	return Sheet{
		Name:    SheetSummary,
		Columns: []string{"구분", "건수"},
		Rows: [][]string{
			{"휴가신고", strconv.Itoa(counts.LeaveReports)},
			{"근태공유(출근지연)", strconv.Itoa(counts.LateArrivals)},
			{"근태공유(외출)", strconv.Itoa(counts.Outings)},
			{"근태공유(조기퇴근)", strconv.Itoa(counts.EarlyLeaves)},
			{"오류", strconv.Itoa(counts.Errors)},
			{"총계", strconv.Itoa(counts.Total())},
		},
	}
}

func leaveSheet(recs []aggregate.NumberedLeave) Sheet {
	sheet := Sheet{
		Name:    SheetLeave,
		Columns: []string{"No", "신청자", "부서", "휴가일자", "휴가종류", "사유", "수신시간"},
	}
	for _, n := range recs {
		r := n.Record
		sheet.Rows = append(sheet.Rows, []string{
			strconv.Itoa(n.No),
			r.Applicant,
			r.Department,
			r.DateRange(),
			r.LeaveType,
			r.Reason,
			r.ReceivedAt.Format("2006-01-02 15:04"),
		})
	}
	return sheet
}

func attendanceSheet(name string, recs []aggregate.NumberedAttendance) Sheet {
	sheet := Sheet{
		Name:    name,
		Columns: []string{"No", "신청자", "부서", "날짜", "시작시간", "종료시간", "사유", "수신시간"},
	}
	for _, n := range recs {
		r := n.Record
		sheet.Rows = append(sheet.Rows, []string{
			strconv.Itoa(n.No),
			r.Applicant,
			r.Department,
			r.Date.Format("2006-01-02"),
			clockText(r.StartTime),
			clockText(r.EndTime),
			r.Reason,
			r.ReceivedAt.Format("2006-01-02 15:04"),
		})
	}
	return sheet
}

func unclassifiedSheet(errs []models.ExtractionError) Sheet {
	sheet := Sheet{
		Name:    SheetUnclassified,
		Columns: []string{"메일ID", "추정분류", "본문발췌", "실패사유"},
	}
	for _, e := range errs {
		sheet.Rows = append(sheet.Rows, []string{
			e.SourceMessageID,
			e.KindGuess.String(),
			e.BodyExcerpt,
			e.Reason,
		})
	}
	return sheet
}

func clockText(t *models.ClockTime) string {
	if t == nil {
		return ""
	}
	return t.String()
}

// Subject returns the report mail subject for a run date.
func Subject(runDate time.Time) string {
	return fmt.Sprintf("[근태보고] %s 근태/휴가 현황", runDate.Format("2006-01-02"))
}
