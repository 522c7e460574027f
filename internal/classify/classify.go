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

// Package classify routes raw messages: the subject tag decides the message
// kind, and for attendance-share mail an ordered keyword-family table decides
// the category. All rules are explicit slices evaluated in a fixed order so
// the outcome never depends on map iteration or library search order.
package classify

import (
	"regexp"
	"strings"

	"github.com/envisionhr/attendance-report/internal/models"
)

// Subject tags. Literal, case-sensitive substring matches.
const (
	TagLeaveReport     = "[휴가신고]"
	TagAttendanceShare = "[근태공유]"
)

// ClassifyKind reports which kind a subject belongs to. When both tags are
// present the leave report wins: leave reports are the more consequential
// kind. ok is false for out-of-scope mail, which callers drop silently.
func ClassifyKind(subject string) (kind models.MessageKind, ok bool) {
	if strings.Contains(subject, TagLeaveReport) {
		return models.KindLeaveReport, true
	}
	if strings.Contains(subject, TagAttendanceShare) {
		return models.KindAttendanceShare, true
	}
	return 0, false
}

// IsTarget reports whether a subject carries any recognised tag. Used by the
// mail client's subject filter.
func IsTarget(subject string) bool {
	_, ok := ClassifyKind(subject)
	return ok
}

// family binds an attendance category to its synonym patterns.
type family struct {
	category models.AttendanceCategory
	patterns []*regexp.Regexp
}

// families is evaluated in order; the order only matters when two families
// match at the same byte offset.
var families = []family{
	{models.CategoryLateArrival, compileAll(
		`출근\s*지연`,
		`지각`,
		`늦은\s*출근`,
	)},
	{models.CategoryOuting, compileAll(
		`외출`,
		`외근`,
		`자리\s*비움`,
	)},
	{models.CategoryEarlyLeave, compileAll(
		`조기\s*퇴근`,
		`조퇴`,
		`일찍\s*퇴근`,
	)},
}

// excludedTypes are attendance notions that are reported by employees but
// deliberately left out of the collection (on-duty rest, prior-day overtime).
var excludedTypes = []struct {
	name    string
	pattern *regexp.Regexp
}{
	{"당직휴식", regexp.MustCompile(`당직\s*휴식`)},
	{"전일야근", regexp.MustCompile(`전일\s*야근`)},
}

func compileAll(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, regexp.MustCompile(e))
	}
	return out
}

// ClassifyCategory scans the body for the earliest occurrence of any keyword
// from any family; the owning family decides the category. Real messages
// casually mention several terms, so the lowest offset wins regardless of
// which family it belongs to. ok is false when no keyword occurs at all —
// the caller must surface that as an extraction error, not drop the message.
func ClassifyCategory(body string) (category models.AttendanceCategory, ok bool) {
	best := -1
	for _, f := range families {
		for _, p := range f.patterns {
			loc := p.FindStringIndex(body)
			if loc == nil {
				continue
			}
			if best == -1 || loc[0] < best {
				best = loc[0]
				category = f.category
			}
		}
	}
	if best == -1 {
		return 0, false
	}
	return category, true
}

// ExcludedType reports whether the body names an attendance type outside the
// collection scope, and which one.
func ExcludedType(body string) (name string, excluded bool) {
	for _, e := range excludedTypes {
		if e.pattern.MatchString(body) {
			return e.name, true
		}
	}
	return "", false
}
