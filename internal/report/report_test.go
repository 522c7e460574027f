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

package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/envisionhr/attendance-report/internal/aggregate"
	"github.com/envisionhr/attendance-report/internal/deduction"
	"github.com/envisionhr/attendance-report/internal/models"
)

var runDate = time.Date(2026, 1, 20, 18, 0, 0, 0, time.UTC)

func sampleGroups() (aggregate.ReportGroups, aggregate.SummaryCounts, []models.ExtractionError) {
	received := runDate.Add(-2 * time.Hour)
	groups := aggregate.ReportGroups{
		LeaveReports: []aggregate.NumberedLeave{{
			No: 1,
			Record: models.LeaveRecord{
				Applicant:       "홍길동",
				Department:      "기업발전그룹",
				Dates:           []time.Time{time.Date(2026, 1, 22, 0, 0, 0, 0, time.UTC)},
				LeaveType:       "연차",
				LeaveDays:       1,
				Reason:          "개인 사정",
				ReceivedAt:      received,
				SourceMessageID: "l-1",
			},
		}},
		LateArrivals: []aggregate.NumberedAttendance{{
			No: 1,
			Record: models.AttendanceRecord{
				Applicant:       "김영희",
				Department:      models.DepartmentUnknown,
				Category:        models.CategoryLateArrival,
				Date:            time.Date(2026, 1, 21, 0, 0, 0, 0, time.UTC),
				EndTime:         &models.ClockTime{Hour: 10, Minute: 30},
				Reason:          "병원 진료",
				ReceivedAt:      received.Add(time.Minute),
				SourceMessageID: "a-1",
			},
		}},
	}
	counts := aggregate.SummaryCounts{LeaveReports: 1, LateArrivals: 1, Errors: 1}
	errs := []models.ExtractionError{{
		SourceMessageID: "e-1",
		KindGuess:       models.KindAttendanceShare,
		BodyExcerpt:     "사유: 은행 방문 외출 보고드립니다",
		Reason:          "missing mandatory field(s): date",
		ReceivedAt:      received,
	}}
	return groups, counts, errs
}

func TestFilename(t *testing.T) {
	if got := Filename(runDate); got != "근태휴가_보고서_20260120.xlsx" {
		t.Errorf("Filename = %q", got)
	}
}

func TestAssemble_Layout(t *testing.T) {
	groups, counts, errs := sampleGroups()
	spec := Assemble(groups, counts, errs, runDate)

	wantSheets := []string{
		SheetSummary, SheetLeave, SheetLateArrival, SheetOuting, SheetEarlyLeave, SheetUnclassified,
	}
	if len(spec.Sheets) != len(wantSheets) {
		t.Fatalf("sheet count = %d, want %d", len(spec.Sheets), len(wantSheets))
	}
	for i, name := range wantSheets {
		if spec.Sheets[i].Name != name {
			t.Errorf("sheet[%d] = %q, want %q", i, spec.Sheets[i].Name, name)
		}
	}

	summary := spec.Sheets[0]
	if summary.Rows[len(summary.Rows)-1][0] != "총계" || summary.Rows[len(summary.Rows)-1][1] != "3" {
		t.Errorf("summary total row = %v", summary.Rows[len(summary.Rows)-1])
	}

	leave := spec.Sheets[1]
	if len(leave.Rows) != 1 {
		t.Fatalf("leave rows = %v", leave.Rows)
	}
	wantLeave := []string{"1", "홍길동", "기업발전그룹", "2026-01-22", "연차", "개인 사정", "2026-01-20 16:00"}
	for i, v := range wantLeave {
		if leave.Rows[0][i] != v {
			t.Errorf("leave row[%d] = %q, want %q", i, leave.Rows[0][i], v)
		}
	}

	late := spec.Sheets[2]
	if late.Rows[0][4] != "" || late.Rows[0][5] != "10:30" {
		t.Errorf("late arrival times = %q / %q", late.Rows[0][4], late.Rows[0][5])
	}

	// Empty groups still produce their sheet, header only.
	if len(spec.Sheets[3].Rows) != 0 || len(spec.Sheets[3].Columns) == 0 {
		t.Errorf("outing sheet = %+v", spec.Sheets[3])
	}
}

func TestAssemble_NoErrorsOmitsUnclassified(t *testing.T) {
	groups, counts, _ := sampleGroups()
	counts.Errors = 0
	spec := Assemble(groups, counts, nil, runDate)
	for _, s := range spec.Sheets {
		if s.Name == SheetUnclassified {
			t.Error("unclassified sheet present without errors")
		}
	}
}

// The encoded workbook must reopen with every sheet and cell in place.
func TestEncode_RoundTrip(t *testing.T) {
	groups, counts, errs := sampleGroups()
	spec := Assemble(groups, counts, errs, runDate)

	data, err := Encode(spec)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	for _, want := range []string{SheetSummary, SheetLeave, SheetLateArrival, SheetOuting, SheetEarlyLeave, SheetUnclassified} {
		found := false
		for _, s := range sheets {
			if s == want {
				found = true
			}
		}
		if !found {
			t.Errorf("sheet %q missing from workbook (have %v)", want, sheets)
		}
	}
	for _, s := range sheets {
		if s == "Sheet1" {
			t.Error("default Sheet1 not removed")
		}
	}

	if got, err := f.GetCellValue(SheetLeave, "B2"); err != nil || got != "홍길동" {
		t.Errorf("leave B2 = %q, err %v", got, err)
	}
	if got, err := f.GetCellValue(SheetSummary, "A1"); err != nil || got != "구분" {
		t.Errorf("summary A1 = %q, err %v", got, err)
	}
	if got, err := f.GetCellValue(SheetUnclassified, "D2"); err != nil || got != "missing mandatory field(s): date" {
		t.Errorf("unclassified D2 = %q, err %v", got, err)
	}
}

// runDate is Tuesday 2026-01-20, so the history week runs 01/19 to 01/23.
func TestWeeklyDeductions(t *testing.T) {
	prior := deduction.History{
		"KimYounghee": {{Date: "2026-01-19", Minutes: 120}},
		"HongGildong": {{Date: "2026-01-19", Minutes: 120}, {Date: "2026-01-20", Minutes: 240}},
	}

	rows := WeeklyDeductions(prior, runDate)
	if len(rows) != 5 {
		t.Fatalf("got %d rows, want 5", len(rows))
	}
	if rows[0].Day != "월" || rows[0].Date != "01/19" || rows[4].Day != "금" || rows[4].Date != "01/23" {
		t.Errorf("week bounds = %+v ... %+v", rows[0], rows[4])
	}
	if rows[0].Count != 2 || rows[0].Targets != "HongGildong(120분), KimYounghee(120분)" {
		t.Errorf("monday = %+v", rows[0])
	}
	if rows[1].Count != 1 || rows[1].Targets != "HongGildong(240분)" {
		t.Errorf("tuesday = %+v", rows[1])
	}
	if rows[2].Count != 0 || rows[2].Targets != "-" {
		t.Errorf("wednesday = %+v", rows[2])
	}
}

func TestSummaryHTML(t *testing.T) {
	_, counts, _ := sampleGroups()
	week := WeeklyDeductions(deduction.History{
		"KimYounghee": {{Date: "2026-01-19", Minutes: 120}},
	}, runDate)

	body, err := SummaryHTML(counts, week, runDate)
	if err != nil {
		t.Fatalf("SummaryHTML: %v", err)
	}
	for _, want := range []string{
		"2026-01-20", "휴가신고", "미분류",
		"주간 차감 발송 이력", "KimYounghee(120분)", "1건",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("summary body missing %q", want)
		}
	}
}

func TestSubject(t *testing.T) {
	if got := Subject(runDate); got != "[근태보고] 2026-01-20 근태/휴가 현황" {
		t.Errorf("Subject = %q", got)
	}
}
