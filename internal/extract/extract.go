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

// Package extract pulls structured fields out of loosely structured Korean
// message bodies. Bodies are expected — not guaranteed — to contain lines of
// the form "label: value"; every rule here is an explicit ordered list so a
// given body always extracts the same way.
//
// Policy: the applicant degrades (body label → sender display name → address
// local-part) rather than failing, because every message has a sender. Dates
// and reasons are never guessed; when they cannot be parsed the whole
// extraction fails with an ExtractionError.
package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/envisionhr/attendance-report/internal/models"
)

// reasonLimit caps free-text reasons before they reach a report sheet.
const reasonLimit = 200

// Label-anchored line rules. A line may carry a leading enumeration
// ("1. 신고자: ...") as the mail templates do.
var (
	applicantLine = regexp.MustCompile(`^\s*(?:\d+\.\s*)?(?:신고자|신청자|성\s*명|이름|작성자)\s*[::\-]?\s*(.+)$`)
	reasonLine    = regexp.MustCompile(`^\s*(?:\d+\.\s*)?(?:사\s*유|내용|비고)\s*[::\-]?\s*(.+)$`)
	leaveTypeLine = regexp.MustCompile(`^\s*(?:\d+\.\s*)?휴가\s*종류\s*[::\-]?\s*(\S+)`)

	// nameToken accepts an English given name or a 2-4 syllable Korean name.
	nameToken = regexp.MustCompile(`^([A-Za-z]+|[가-힣]{2,4})`)

	koreanRun = regexp.MustCompile(`^[가-힣]+`)
)

// Date rules, most specific first. Phone numbers are stripped beforehand so
// "010-1234-5678" never reads as a date.
var (
	phonePattern = regexp.MustCompile(`0\d{2}[-.\s]?\d{3,4}[-.\s]?\d{4}`)

	dateRangePattern = regexp.MustCompile(
		`(\d{4}[년.\-/]?\s*\d{1,2}[월.\-/]?\s*\d{1,2}일?)\s*[~\-]\s*(\d{4}[년.\-/]?\s*\d{1,2}[월.\-/]?\s*\d{1,2}일?)`)

	fullDatePatterns = []*regexp.Regexp{
		// 2026 년 1 월 16 일 (spaced Korean form)
		regexp.MustCompile(`(\d{4})\s*년\s*(\d{1,2})\s*월\s*(\d{1,2})\s*일`),
		// 2026년1월16일, 2026.1.16, 2026-01-16, 2026/1/16
		regexp.MustCompile(`(\d{4})[년.\-/]\s*(\d{1,2})[월.\-/]\s*(\d{1,2})일?`),
	}

	// 1월 15일, 1/15, 1.15 — year resolved from the message's receive date.
	monthDayPattern = regexp.MustCompile(`(\d{1,2})[월/.]\s*(\d{1,2})일?`)

	singleDateYMD = regexp.MustCompile(`(\d{4})[년.\-/]?\s*(\d{1,2})[월.\-/]?\s*(\d{1,2})`)
	singleDateMD  = regexp.MustCompile(`(\d{1,2})[월.\-/]\s*(\d{1,2})`)
)

// Time rules.
var (
	// 09시 30분 ~ 11시 00분, 09:30~11:00, 9시~11시
	timeRangePattern = regexp.MustCompile(
		`(\d{1,2})[시:]\s*(\d{0,2})\s*분?\s*[~\-]\s*(\d{1,2})[시:]\s*(\d{0,2})\s*분?`)
	// 오전 9시 ~ 오후 2시
	amPmRangePattern = regexp.MustCompile(`(오전|오후)\s*(\d{1,2})\s*시\s*[~\-]\s*(오전|오후)\s*(\d{1,2})\s*시`)

	singleKoreanTime = regexp.MustCompile(`(오전|오후)?\s*(\d{1,2})\s*시(?:\s*(\d{1,2})\s*분)?`)
	singleClockTime  = regexp.MustCompile(`\b(\d{1,2}):(\d{2})\b`)
)

// Leave-type rules: the specific compound types come first so 오전반차 never
// reads as 반차.
var (
	leaveTypeKeywords = regexp.MustCompile(
		`(오전반차|오후반차|반반차|연차휴가|반차휴가|특별휴가|경조사|병가|공가|반차|연차)`)

	leaveDaysPatterns = []*regexp.Regexp{
		regexp.MustCompile(`휴가\s*일수\s*[::\-]?\s*(\d+(?:\.\d+)?)\s*일`),
		regexp.MustCompile(`일\s*수\s*[::\-]?\s*(\d+(?:\.\d+)?)\s*일`),
		regexp.MustCompile(`(\d+(?:\.\d+)?)\s*일\s*(?:사용|신청|휴가)`),
		regexp.MustCompile(`총\s*(\d+(?:\.\d+)?)\s*일`),
	}
)

// maxRangeDays bounds leave-range expansion so a typo never yields months of
// dates.
const maxRangeDays = 31

// Extract turns a classified message into an immutable record, or into an
// ExtractionError when a mandatory field cannot be located. category is only
// meaningful for attendance-share messages. department is the already
// resolved department of the sender ("" when the lookup had none).
func Extract(
	kind models.MessageKind,
	category models.AttendanceCategory,
	msg models.RawMessage,
	department string,
) (models.Record, *models.ExtractionError) {
	if department == "" {
		department = models.DepartmentUnknown
	}

	applicant := Applicant(msg.Body, msg.SenderName, msg.SenderAddress)
	dates := Dates(msg.Body, msg.ReceivedAt)
	reason := Reason(msg.Body)

	var missing []string
	if len(dates) == 0 {
		missing = append(missing, "date")
	}
	if reason == "" {
		missing = append(missing, "reason")
	}

	switch kind {
	case models.KindLeaveReport:
		leaveType := LeaveType(msg.Subject, msg.Body)
		if leaveType == "" {
			missing = append(missing, "leave type")
		}
		if len(missing) > 0 {
			return nil, extractionError(msg, kind, missing)
		}
		days, ok := LeaveDays(msg.Body)
		if !ok {
			days = defaultLeaveDays(leaveType)
		}
		return models.LeaveRecord{
			Applicant:       applicant,
			Department:      department,
			Dates:           dates,
			LeaveType:       leaveType,
			LeaveDays:       days,
			Reason:          reason,
			ReceivedAt:      msg.ReceivedAt,
			SourceMessageID: msg.ID,
		}, nil

	case models.KindAttendanceShare:
		if len(missing) > 0 {
			return nil, extractionError(msg, kind, missing)
		}
		start, end := TimeRange(msg.Body)
		if start == nil && end == nil {
			// Single boundary: late arrivals state the arrival time, early
			// leaves the departure time. Time presence is never mandatory.
			if t := singleTime(msg.Body); t != nil {
				if category == models.CategoryLateArrival {
					end = t
				} else {
					start = t
				}
			}
		}
		return models.AttendanceRecord{
			Applicant:       applicant,
			Department:      department,
			Category:        category,
			Date:            dates[0],
			StartTime:       start,
			EndTime:         end,
			Reason:          reason,
			ReceivedAt:      msg.ReceivedAt,
			SourceMessageID: msg.ID,
		}, nil
	}

	return nil, &models.ExtractionError{
		SourceMessageID: msg.ID,
		KindGuess:       kind,
		BodyExcerpt:     models.Excerpt(msg.Body),
		Reason:          fmt.Sprintf("unsupported message kind %d", int(kind)),
		ReceivedAt:      msg.ReceivedAt,
	}
}

func extractionError(msg models.RawMessage, kind models.MessageKind, missing []string) *models.ExtractionError {
	return &models.ExtractionError{
		SourceMessageID: msg.ID,
		KindGuess:       kind,
		BodyExcerpt:     models.Excerpt(msg.Body),
		Reason:          "missing mandatory field(s): " + strings.Join(missing, ", "),
		ReceivedAt:      msg.ReceivedAt,
	}
}

// Applicant resolves the applicant's display name. Body labels win; the
// sender's display name and finally the address local-part are fallbacks so
// a missing label alone never fails a message.
func Applicant(body, senderName, senderAddress string) string {
	for _, line := range strings.Split(body, "\n") {
		m := applicantLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		if name := nameToken.FindString(strings.TrimSpace(m[1])); name != "" {
			return name
		}
	}

	if senderName != "" {
		if name := koreanRun.FindString(senderName); name != "" {
			return name
		}
		// "Jane Doe <jane.doe@company.com>" display forms
		if name := strings.TrimSpace(strings.SplitN(senderName, "<", 2)[0]); name != "" {
			return name
		}
	}

	if at := strings.IndexByte(senderAddress, '@'); at > 0 {
		return strings.ToLower(strings.TrimSpace(senderAddress[:at]))
	}
	return models.DepartmentUnknown
}

// Dates extracts the date(s) a message refers to. ref anchors year-less
// forms ("1월 15일") to the year the message was received, keeping
// reprocessing deterministic. Dates further than a year from ref are
// rejected as misreads. Returns nil when nothing parses — never a guess.
func Dates(body string, ref time.Time) []time.Time {
	clean := phonePattern.ReplaceAllString(body, "")
	refYear := ref.Year()

	if m := dateRangePattern.FindStringSubmatch(clean); m != nil {
		start, okS := parseSingleDate(m[1], refYear)
		end, okE := parseSingleDate(m[2], refYear)
		if okS && okE && plausibleYear(start, refYear) && plausibleYear(end, refYear) && !end.Before(start) {
			var out []time.Time
			for d, n := start, 0; !d.After(end) && n < maxRangeDays; d, n = d.AddDate(0, 0, 1), n+1 {
				out = append(out, d)
			}
			return out
		}
	}

	for _, p := range fullDatePatterns {
		for _, m := range p.FindAllStringSubmatch(clean, -1) {
			year, _ := strconv.Atoi(m[1])
			month, _ := strconv.Atoi(m[2])
			day, _ := strconv.Atoi(m[3])
			if d, ok := makeDate(year, month, day); ok && plausibleYear(d, refYear) {
				return []time.Time{d}
			}
		}
		// An implausible full date must not re-parse as a year-less one.
		clean = p.ReplaceAllString(clean, "")
	}

	for _, m := range monthDayPattern.FindAllStringSubmatch(clean, -1) {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		if d, ok := makeDate(refYear, month, day); ok {
			return []time.Time{d}
		}
	}

	return nil
}

func parseSingleDate(s string, defaultYear int) (time.Time, bool) {
	if m := singleDateYMD.FindStringSubmatch(s); m != nil {
		year, _ := strconv.Atoi(m[1])
		month, _ := strconv.Atoi(m[2])
		day, _ := strconv.Atoi(m[3])
		return makeDate(year, month, day)
	}
	if m := singleDateMD.FindStringSubmatch(s); m != nil {
		month, _ := strconv.Atoi(m[1])
		day, _ := strconv.Atoi(m[2])
		return makeDate(defaultYear, month, day)
	}
	return time.Time{}, false
}

// makeDate builds a UTC midnight date and rejects impossible combinations
// (month 13, February 30) that the regexes cannot rule out.
func makeDate(year, month, day int) (time.Time, bool) {
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return time.Time{}, false
	}
	d := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if d.Year() != year || d.Month() != time.Month(month) || d.Day() != day {
		return time.Time{}, false
	}
	return d, true
}

func plausibleYear(d time.Time, refYear int) bool {
	diff := d.Year() - refYear
	return diff >= -1 && diff <= 1
}

// TimeRange extracts a start/end pair. Either or both may be absent; time
// presence is category-dependent and never mandatory.
func TimeRange(body string) (start, end *models.ClockTime) {
	if m := timeRangePattern.FindStringSubmatch(body); m != nil {
		s, okS := makeClock(m[1], m[2], "")
		e, okE := makeClock(m[3], m[4], "")
		if okS && okE {
			return s, e
		}
	}
	if m := amPmRangePattern.FindStringSubmatch(body); m != nil {
		s, okS := makeClock(m[2], "", m[1])
		e, okE := makeClock(m[4], "", m[3])
		if okS && okE {
			return s, e
		}
	}
	return nil, nil
}

func singleTime(body string) *models.ClockTime {
	if m := singleKoreanTime.FindStringSubmatch(body); m != nil {
		if t, ok := makeClock(m[2], m[3], m[1]); ok {
			return t
		}
	}
	if m := singleClockTime.FindStringSubmatch(body); m != nil {
		if t, ok := makeClock(m[1], m[2], ""); ok {
			return t
		}
	}
	return nil
}

func makeClock(hourStr, minuteStr, meridiem string) (*models.ClockTime, bool) {
	hour, err := strconv.Atoi(hourStr)
	if err != nil {
		return nil, false
	}
	minute := 0
	if minuteStr != "" {
		minute, err = strconv.Atoi(minuteStr)
		if err != nil {
			return nil, false
		}
	}
	if meridiem == "오후" && hour != 12 {
		hour += 12
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return nil, false
	}
	return &models.ClockTime{Hour: hour, Minute: minute}, true
}

// Reason extracts the free-text reason from a labelled line. Returns "" when
// no reason line exists; the caller treats that as a mandatory-field failure.
func Reason(body string) string {
	for _, line := range strings.Split(body, "\n") {
		m := reasonLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		reason := strings.TrimSpace(m[1])
		if reason == "" {
			continue
		}
		if utf8.RuneCountInString(reason) > reasonLimit {
			reason = string([]rune(reason)[:reasonLimit]) + "..."
		}
		return reason
	}
	return ""
}

// LeaveType resolves the leave type, preferring the subject (writers often
// put "연차" in the tag line) over the body, and labelled lines over bare
// keywords.
func LeaveType(subject, body string) string {
	for _, text := range []string{subject, body} {
		for _, line := range strings.Split(text, "\n") {
			if m := leaveTypeLine.FindStringSubmatch(line); m != nil {
				return strings.TrimSpace(m[1])
			}
		}
		if m := leaveTypeKeywords.FindString(text); m != "" {
			return m
		}
	}
	return ""
}

// LeaveDays extracts an explicitly stated day count (e.g. "휴가일수: 0.5일").
// Values outside the plausible 0.25–30 range are ignored.
func LeaveDays(body string) (float64, bool) {
	for _, p := range leaveDaysPatterns {
		m := p.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		days, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		if days >= 0.25 && days <= 30 {
			return days, true
		}
	}
	return 0, false
}

// defaultLeaveDays derives a day count from the leave type when the mail
// does not state one.
func defaultLeaveDays(leaveType string) float64 {
	switch {
	case strings.Contains(leaveType, "반반차"),
		strings.Contains(leaveType, "오전반차"),
		strings.Contains(leaveType, "오후반차"):
		return 0.25
	case strings.Contains(leaveType, "반차"):
		return 0.5
	default:
		return 1.0
	}
}
