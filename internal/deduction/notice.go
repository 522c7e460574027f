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

package deduction

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/envisionhr/attendance-report/internal/models"
)

// historyRow is one row of the per-type attendance table in the notice body.
// The three types are laid out side by side, padded to the longest column.
type historyRow struct {
	LateDate, LateMinutes   string
	EarlyDate, EarlyMinutes string
	OutDate, OutMinutes     string
}

var noticeTemplate = template.Must(template.New("notice").Parse(`<html>
<head>
<style>
body { font-family: 'Malgun Gothic', Arial, sans-serif; font-size: 14px; line-height: 1.8; color: #333; max-width: 800px; margin: 0 auto; padding: 20px; }
.content { background-color: #fff; padding: 30px; border-radius: 8px; }
.item { margin: 15px 0; }
.label { color: #4472C4; font-weight: bold; }
.history-table { width: 100%; border-collapse: collapse; margin-top: 15px; font-size: 13px; }
.history-table th { background-color: #4472C4; color: white; padding: 10px 8px; border: 1px solid #ddd; text-align: center; }
.history-table td { padding: 8px; border: 1px solid #ddd; text-align: center; }
.footer { margin-top: 30px; padding-top: 20px; border-top: 1px solid #eee; text-align: center; color: #666; font-size: 12px; }
</style>
</head>
<body>
<div class="content">
<p class="item"><span class="label">1. 신고자:</span> {{.Name}}</p>
<p class="item"><span class="label">2. 근태공유:</span> 휴가차감</p>
<p class="item"><span class="label">3. 일자:</span> {{.Date}}</p>
<p class="item"><span class="label">4. 시간:</span> {{.Minutes}}분 ({{.Days}}일)</p>
<p class="item"><span class="label">5. 근태내역:</span></p>
<table class="history-table">
<tr>
<th>출근지연-일자</th><th>출근지연-시간(분)</th>
<th>조기퇴근-일자</th><th>조기퇴근-시간(분)</th>
<th>외출-일자</th><th>외출-시간(분)</th>
</tr>
{{range .Rows}}<tr>
<td>{{.LateDate}}</td><td>{{.LateMinutes}}</td>
<td>{{.EarlyDate}}</td><td>{{.EarlyMinutes}}</td>
<td>{{.OutDate}}</td><td>{{.OutMinutes}}</td>
</tr>
{{end}}</table>
</div>
<div class="footer">
본 메일은 근태 신고 시스템에서 자동으로 발송된 메일입니다.<br><br>
이 메일은 연차 차감 사전 안내 메일이며, 위 내역과 관련하여 수정이 필요한 부분은 기업발전그룹에 문의 부탁드립니다.<br>
그룹웨어 상 실제 휴가 차감은 내일 진행될 예정입니다.
</div>
</body>
</html>`))

// NoticeHTML renders the deduction mail body. The "시간: N분" line is parsed
// back out by CollectPrior on later runs, so its wording stays fixed.
func NoticeHTML(n Notice, runDate time.Time) (string, error) {
	var buf bytes.Buffer
	err := noticeTemplate.Execute(&buf, struct {
		Name    string
		Date    string
		Minutes int
		Days    string
		Rows    []historyRow
	}{
		Name:    n.EnglishName,
		Date:    noticeDate(runDate),
		Minutes: n.DeductedMinutes,
		Days:    FormatDays(n.DeductionDays),
		Rows:    historyRows(n.Records),
	})
	if err != nil {
		return "", fmt.Errorf("render notice: %w", err)
	}
	return buf.String(), nil
}

func historyRows(records []models.AttendanceRecord) []historyRow {
	type entry struct {
		date    string
		minutes string
	}
	var late, early, out []entry

	for _, r := range records {
		e := entry{
			date:    r.Date.Format("2006-01-02"),
			minutes: fmt.Sprintf("%d", RecordMinutes(r)),
		}
		switch r.Category {
		case models.CategoryLateArrival:
			late = append(late, e)
		case models.CategoryEarlyLeave:
			early = append(early, e)
		case models.CategoryOuting:
			out = append(out, e)
		}
	}

	n := max(max(len(late), len(early)), max(len(out), 1))
	rows := make([]historyRow, n)
	for i := range rows {
		if i < len(late) {
			rows[i].LateDate, rows[i].LateMinutes = late[i].date, late[i].minutes
		}
		if i < len(early) {
			rows[i].EarlyDate, rows[i].EarlyMinutes = early[i].date, early[i].minutes
		}
		if i < len(out) {
			rows[i].OutDate, rows[i].OutMinutes = out[i].date, out[i].minutes
		}
	}
	return rows
}
