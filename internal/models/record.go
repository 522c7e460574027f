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

// Package models defines the data structures shared across the report
// pipeline: the raw mailbox message, the classification enums, and the
// closed record union produced by field extraction.
package models

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MessageKind is the top-level message classification derived from the
// subject tag.
type MessageKind int

const (
	// KindLeaveReport marks a [휴가신고] message.
	KindLeaveReport MessageKind = iota
	// KindAttendanceShare marks a [근태공유] message.
	KindAttendanceShare
)

// String returns the Korean group name used on report sheets.
func (k MessageKind) String() string {
	switch k {
	case KindLeaveReport:
		return "휴가신고"
	case KindAttendanceShare:
		return "근태공유"
	default:
		return fmt.Sprintf("MessageKind(%d)", int(k))
	}
}

// AttendanceCategory is the body-derived subcategory of an attendance-share
// message.
type AttendanceCategory int

const (
	CategoryLateArrival AttendanceCategory = iota
	CategoryOuting
	CategoryEarlyLeave
)

// String returns the Korean category name used on report sheets.
func (c AttendanceCategory) String() string {
	switch c {
	case CategoryLateArrival:
		return "출근지연"
	case CategoryOuting:
		return "외출"
	case CategoryEarlyLeave:
		return "조기퇴근"
	default:
		return fmt.Sprintf("AttendanceCategory(%d)", int(c))
	}
}

// DepartmentUnknown is recorded when the directory lookup has no department
// for a sender. A missing department is never an extraction failure.
const DepartmentUnknown = "미상"

// RawMessage is the immutable input from the mail-retrieval boundary.
// The pipeline never mutates it.
type RawMessage struct {
	ID            string
	Subject       string
	Body          string // plain text; HTML already reduced by the parser
	SenderName    string
	SenderAddress string
	ReceivedAt    time.Time
}

// ClockTime is a wall-clock time of day without a date, as mentioned in a
// message body ("09시 30분", "14:00").
type ClockTime struct {
	Hour   int
	Minute int
}

// String formats the time as HH:MM.
func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour, t.Minute)
}

// TotalMinutes returns minutes since midnight.
func (t ClockTime) TotalMinutes() int {
	return t.Hour*60 + t.Minute
}

// Record is the closed union over extracted record kinds. Adding a kind is a
// compile-time-visible change in every switch over this interface.
type Record interface {
	Kind() MessageKind
	Received() time.Time
	SourceID() string

	// sealed prevents implementations outside this package.
	sealed()
}

// LeaveRecord is a fully extracted [휴가신고] message.
type LeaveRecord struct {
	Applicant       string
	Department      string
	Dates           []time.Time // ascending, at least one
	LeaveType       string      // 연차, 반차, ...
	LeaveDays       float64     // stated or derived from LeaveType
	Reason          string
	ReceivedAt      time.Time
	SourceMessageID string
}

func (r LeaveRecord) Kind() MessageKind   { return KindLeaveReport }
func (r LeaveRecord) Received() time.Time { return r.ReceivedAt }
func (r LeaveRecord) SourceID() string    { return r.SourceMessageID }
func (r LeaveRecord) sealed()             {}

// DateRange formats the leave dates for the report sheet: a single date or
// "first ~ last".
func (r LeaveRecord) DateRange() string {
	if len(r.Dates) == 0 {
		return ""
	}
	first := r.Dates[0].Format("2006-01-02")
	if len(r.Dates) == 1 {
		return first
	}
	return first + " ~ " + r.Dates[len(r.Dates)-1].Format("2006-01-02")
}

// AttendanceRecord is a fully extracted [근태공유] message.
type AttendanceRecord struct {
	Applicant       string
	Department      string
	Category        AttendanceCategory
	Date            time.Time
	StartTime       *ClockTime // optional
	EndTime         *ClockTime // optional
	Reason          string
	ReceivedAt      time.Time
	SourceMessageID string
}

func (r AttendanceRecord) Kind() MessageKind   { return KindAttendanceShare }
func (r AttendanceRecord) Received() time.Time { return r.ReceivedAt }
func (r AttendanceRecord) SourceID() string    { return r.SourceMessageID }
func (r AttendanceRecord) sealed()             {}

// ExtractionError is produced instead of a record when a message matched a
// tag but mandatory fields could not be located. It carries enough context
// for manual review and never aborts the batch.
type ExtractionError struct {
	SourceMessageID string
	KindGuess       MessageKind
	BodyExcerpt     string
	Reason          string
	ReceivedAt      time.Time
}

// excerptLimit caps the raw-body excerpt stored on extraction errors.
const excerptLimit = 80

// Excerpt collapses whitespace in a body and truncates it for error entries.
func Excerpt(body string) string {
	collapsed := strings.Join(strings.Fields(body), " ")
	if utf8.RuneCountInString(collapsed) <= excerptLimit {
		return collapsed
	}
	runes := []rune(collapsed)
	return string(runes[:excerptLimit]) + "..."
}
