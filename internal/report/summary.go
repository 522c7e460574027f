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
	"fmt"
	"html/template"
	"sort"
	"strings"
	"time"

	"github.com/envisionhr/attendance-report/internal/aggregate"
	"github.com/envisionhr/attendance-report/internal/deduction"
)

var summaryTemplate = template.Must(template.New("summary").Parse(`<html>
<body style="font-family: 'Malgun Gothic', sans-serif; font-size: 14px;">
<p>{{.Date}} 근태/휴가 수집 결과를 공유드립니다.</p>
<table border="1" cellpadding="6" cellspacing="0" style="border-collapse: collapse;">
  <tr style="background-color: #4472C4; color: #FFFFFF;">
    <th>구분</th><th>건수</th>
  </tr>
  <tr><td>휴가신고</td><td align="center">{{.Counts.LeaveReports}}</td></tr>
  <tr><td>근태공유(출근지연)</td><td align="center">{{.Counts.LateArrivals}}</td></tr>
  <tr><td>근태공유(외출)</td><td align="center">{{.Counts.Outings}}</td></tr>
  <tr><td>근태공유(조기퇴근)</td><td align="center">{{.Counts.EarlyLeaves}}</td></tr>
  <tr><td>오류</td><td align="center">{{.Counts.Errors}}</td></tr>
  <tr><td><b>총계</b></td><td align="center"><b>{{.Total}}</b></td></tr>
</table>
{{if .HasErrors}}<p>분류/추출에 실패한 메일 {{.Counts.Errors}}건은 첨부 파일의 미분류 시트를 확인해 주세요.</p>{{end}}
<h3 style="color: #4472C4;">주간 차감 발송 이력 (월~금)</h3>
<table border="1" cellpadding="6" cellspacing="0" style="border-collapse: collapse;">
  <tr style="background-color: #4472C4; color: #FFFFFF;">
    <th>요일</th><th>날짜</th><th>발송</th><th>대상자 (차감시간)</th>
  </tr>
{{range .Week}}  <tr><td align="center">{{.Day}}</td><td align="center">{{.Date}}</td><td align="center">{{.Count}}건</td><td>{{.Targets}}</td></tr>
{{end}}</table>
<p>상세 내역은 첨부된 보고서를 참고해 주세요.</p>
</body>
</html>`))

// WeekRow is one weekday line of the deduction-history table in the report
// mail.
type WeekRow struct {
	Day     string // 월..금
	Date    string // MM/DD
	Count   int
	Targets string // "이름(차감시간분)" list, or "-" when nothing went out
}

var weekdayLabels = [5]string{"월", "화", "수", "목", "금"}

// WeeklyDeductions lays the notice history over the Monday-to-Friday week of
// the run date. Callers that sent notices during this run merge them into the
// history first so today's row reflects them.
func WeeklyDeductions(prior deduction.History, runDate time.Time) []WeekRow {
	monday := runDate.AddDate(0, 0, -int((runDate.Weekday()+6)%7))

	names := make([]string, 0, len(prior))
	for name := range prior {
		names = append(names, name)
	}
	sort.Strings(names)

	rows := make([]WeekRow, len(weekdayLabels))
	for i := range rows {
		day := monday.AddDate(0, 0, i)
		date := day.Format("2006-01-02")

		var targets []string
		for _, name := range names {
			for _, d := range prior[name] {
				if d.Date == date {
					targets = append(targets, fmt.Sprintf("%s(%d분)", name, d.Minutes))
				}
			}
		}
		joined := "-"
		if len(targets) > 0 {
			joined = strings.Join(targets, ", ")
		}
		rows[i] = WeekRow{
			Day:     weekdayLabels[i],
			Date:    day.Format("01/02"),
			Count:   len(targets),
			Targets: joined,
		}
	}
	return rows
}

// SummaryHTML renders the report mail body for one run.
func SummaryHTML(counts aggregate.SummaryCounts, week []WeekRow, runDate time.Time) (string, error) {
	var buf bytes.Buffer
	err := summaryTemplate.Execute(&buf, struct {
		Date      string
		Counts    aggregate.SummaryCounts
		Total     int
		HasErrors bool
		Week      []WeekRow
	}{
		Date:      runDate.Format("2006-01-02"),
		Counts:    counts,
		Total:     counts.Total(),
		HasErrors: counts.Errors > 0,
		Week:      week,
	})
	if err != nil {
		return "", fmt.Errorf("render summary: %w", err)
	}
	return buf.String(), nil
}
