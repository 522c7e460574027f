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

// Package deduction computes leave deductions from accumulated attendance
// minutes. Every full 120 minutes converts to a quarter day. Prior deductions
// are recovered from notices the system itself sent earlier, so re-running
// never deducts the same minutes twice.
package deduction

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/envisionhr/attendance-report/internal/models"
	"github.com/envisionhr/attendance-report/internal/roster"
)

const (
	// MinutesPerUnit is the accumulation threshold for one deduction unit.
	MinutesPerUnit = 120
	// DaysPerUnit is the leave deducted per unit.
	DaysPerUnit = 0.25
)

// NoticeMarker appears in every deduction notice subject; it is also how
// those notices are recognised when scanning the folder later.
const NoticeMarker = "휴가차감"

var (
	noticeSubject = regexp.MustCompile(`\[근태공유\]\s*([\p{L}\p{N}_]+)\s*\(`)
	noticeMinutes = regexp.MustCompile(`시간[:\s]*(\d+)\s*분`)
	noticeTags    = regexp.MustCompile(`<[^>]+>`)
)

// RecordMinutes returns the absence minutes of one attendance record. Both
// boundary times are required; a record with a single stated time counts as
// zero, matching how the reports have always been tallied.
func RecordMinutes(r models.AttendanceRecord) int {
	if r.StartTime == nil || r.EndTime == nil {
		return 0
	}
	m := r.EndTime.TotalMinutes() - r.StartTime.TotalMinutes()
	if m < 0 {
		return 0
	}
	return m
}

// DeductionDays converts accumulated minutes into whole deduction units.
// Minutes below one unit carry over, they are not rounded up.
func DeductionDays(totalMinutes int) float64 {
	if totalMinutes < MinutesPerUnit {
		return 0
	}
	return float64(totalMinutes/MinutesPerUnit) * DaysPerUnit
}

// DeductedMinutes returns the minutes consumed by a deduction of the given
// days, the amount recorded in the notice and excluded from future runs.
func DeductedMinutes(days float64) int {
	return int(days/DaysPerUnit) * MinutesPerUnit
}

// PriorDeduction is one earlier deduction recovered from a sent notice.
type PriorDeduction struct {
	Date    string // YYYY-MM-DD of the notice
	Minutes int
}

// History maps an employee's English name to prior deductions.
type History map[string][]PriorDeduction

// DeductedMinutes sums the prior deductions for one employee.
func (h History) DeductedMinutes(englishName string) int {
	total := 0
	for _, d := range h[englishName] {
		total += d.Minutes
	}
	return total
}

// ParseNotice extracts the employee name and deducted minutes from one
// deduction notice. ok is false for any other mail.
func ParseNotice(subject, body string) (name string, minutes int, ok bool) {
	if !strings.Contains(subject, NoticeMarker) {
		return "", 0, false
	}
	sm := noticeSubject.FindStringSubmatch(subject)
	if sm == nil {
		return "", 0, false
	}
	// Sent notices come back as HTML; the minutes line must survive both
	// the raw and the tag-stripped form.
	bm := noticeMinutes.FindStringSubmatch(noticeTags.ReplaceAllString(body, " "))
	if bm == nil {
		return "", 0, false
	}
	minutes, err := strconv.Atoi(bm[1])
	if err != nil {
		return "", 0, false
	}
	return sm[1], minutes, true
}

// IsNotice reports whether a subject belongs to a deduction notice. The
// pipeline uses this to keep the system's own mail out of the record flow.
func IsNotice(subject string) bool {
	return strings.Contains(subject, NoticeMarker)
}

// CollectPrior scans folder messages for deduction notices and builds the
// history. The same employee on the same notice date counts once; notices
// get re-filed and re-delivered, the deduction happened once.
func CollectPrior(msgs []models.RawMessage) History {
	history := History{}
	seen := map[[2]string]bool{}

	for _, msg := range msgs {
		name, minutes, ok := ParseNotice(msg.Subject, msg.Body)
		if !ok {
			continue
		}
		date := msg.ReceivedAt.Format("2006-01-02")
		key := [2]string{name, date}
		if seen[key] {
			continue
		}
		seen[key] = true
		history[name] = append(history[name], PriorDeduction{Date: date, Minutes: minutes})
	}
	return history
}

// Notice is one deduction to announce to an employee.
type Notice struct {
	KoreanName      string
	EnglishName     string
	TotalMinutes    int // accumulated this scan
	PriorMinutes    int // already covered by earlier notices
	DeductionDays   float64
	DeductedMinutes int
	Records         []models.AttendanceRecord
}

// Subject returns the notice mail subject. Its shape is load-bearing:
// CollectPrior parses it back out of the sent folder.
func (n Notice) Subject() string {
	return "[근태공유] " + n.EnglishName + "(" + FormatDays(n.DeductionDays) + "일, " + NoticeMarker + ")"
}

// FormatDays renders a day count without trailing zeros (0.25, 0.5, 1).
func FormatDays(days float64) string {
	return strconv.FormatFloat(days, 'f', -1, 64)
}

// BuildNotices accumulates attendance minutes per applicant, subtracts what
// earlier notices already deducted, and returns one notice per employee who
// crossed a whole unit. Output is sorted by English name.
func BuildNotices(records []models.AttendanceRecord, names *roster.Roster, prior History) []Notice {
	type accumulation struct {
		minutes int
		records []models.AttendanceRecord
	}
	byApplicant := map[string]*accumulation{}
	var order []string

	for _, r := range records {
		acc, ok := byApplicant[r.Applicant]
		if !ok {
			acc = &accumulation{}
			byApplicant[r.Applicant] = acc
			order = append(order, r.Applicant)
		}
		acc.minutes += RecordMinutes(r)
		acc.records = append(acc.records, r)
	}

	var notices []Notice
	for _, korean := range order {
		acc := byApplicant[korean]
		english := names.ToEnglish(korean)
		already := prior.DeductedMinutes(english)

		remaining := acc.minutes - already
		days := DeductionDays(remaining)
		if days <= 0 {
			continue
		}
		notices = append(notices, Notice{
			KoreanName:      korean,
			EnglishName:     english,
			TotalMinutes:    acc.minutes,
			PriorMinutes:    already,
			DeductionDays:   days,
			DeductedMinutes: DeductedMinutes(days),
			Records:         acc.records,
		})
	}

	sort.Slice(notices, func(i, j int) bool {
		return notices[i].EnglishName < notices[j].EnglishName
	})
	return notices
}

// RecipientAddress derives the employee's mail address from the English name
// when the notice is sent for real (test mode overrides this).
func RecipientAddress(englishName, domain string) string {
	return strings.ToLower(strings.ReplaceAll(englishName, " ", "")) + "@" + domain
}

// noticeDate formats the run date the way the notice body states it.
func noticeDate(t time.Time) string {
	return t.Format("2006-01-02")
}
