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

package pipeline

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/envisionhr/attendance-report/internal/models"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func msg(id, subject, body, sender string, received time.Time) models.RawMessage {
	return models.RawMessage{
		ID:            id,
		Subject:       subject,
		Body:          body,
		SenderName:    "",
		SenderAddress: sender,
		ReceivedAt:    received,
	}
}

// Three messages exercising every path at once: a clean leave report, an
// attendance share classified by body keyword, and a tagged message whose
// body has no parsable date.
func TestProcess_MixedBatch(t *testing.T) {
	base := time.Date(2026, 1, 20, 17, 0, 0, 0, time.UTC)
	msgs := []models.RawMessage{
		msg("m-1", "[휴가신고] 연차 신청",
			"신청자: 홍길동\n날짜: 2026년 1월 22일\n휴가종류: 연차\n사유: 개인 사정",
			"gildong@envision.co.kr", base),
		msg("m-2", "[근태공유] 지각 보고",
			"신고자: 김영희\n날짜: 1월 21일\n사유: 병원 진료\n출근지연 예정입니다",
			"yh.kim@envision.co.kr", base.Add(time.Minute)),
		msg("m-3", "[근태공유] 외출",
			"사유: 은행 방문\n외출 보고드립니다",
			"cs.park@envision.co.kr", base.Add(2*time.Minute)),
	}

	p := New(discardLogger(), func(ctx context.Context, address string) (string, error) {
		return "기업발전그룹", nil
	})
	res := p.Process(context.Background(), msgs)

	if res.RunID == "" {
		t.Error("empty run id")
	}
	if res.Counts.LeaveReports != 1 || res.Counts.LateArrivals != 1 ||
		res.Counts.Outings != 0 || res.Counts.EarlyLeaves != 0 || res.Counts.Errors != 1 {
		t.Fatalf("counts = %+v", res.Counts)
	}
	if len(res.Errors) != 1 || res.Errors[0].SourceMessageID != "m-3" {
		t.Fatalf("errors = %+v", res.Errors)
	}
	if !strings.Contains(res.Errors[0].Reason, "date") {
		t.Errorf("error reason = %q", res.Errors[0].Reason)
	}

	leave := res.Groups.LeaveReports[0].Record
	if leave.Applicant != "홍길동" || leave.Department != "기업발전그룹" {
		t.Errorf("leave record = %+v", leave)
	}
	late := res.Groups.LateArrivals[0].Record
	if late.Applicant != "김영희" || late.Category != models.CategoryLateArrival {
		t.Errorf("late record = %+v", late)
	}
}

func TestProcess_DropsUntaggedSilently(t *testing.T) {
	msgs := []models.RawMessage{
		msg("m-1", "주간 회의 안내", "의제 공유", "a@envision.co.kr", time.Now()),
		msg("m-2", "RE: 프로젝트 일정", "일정 첨부", "b@envision.co.kr", time.Now()),
	}

	res := New(discardLogger(), nil).Process(context.Background(), msgs)
	if res.Counts.Total() != 0 {
		t.Errorf("untagged mail produced output: %+v", res.Counts)
	}
	if len(res.Errors) != 0 {
		t.Errorf("untagged mail produced errors: %+v", res.Errors)
	}
}

func TestProcess_ExcludedTypeBecomesError(t *testing.T) {
	msgs := []models.RawMessage{
		msg("m-1", "[근태공유] 당직", "신고자: 홍길동\n날짜: 1/21\n사유: 당직 휴식 사용", "g@envision.co.kr", time.Now()),
	}

	res := New(discardLogger(), nil).Process(context.Background(), msgs)
	if res.Counts.Errors != 1 || len(res.Errors) != 1 {
		t.Fatalf("result = %+v", res.Counts)
	}
	if !strings.Contains(res.Errors[0].Reason, "당직휴식") {
		t.Errorf("error reason = %q", res.Errors[0].Reason)
	}
}

func TestProcess_UnclassifiableBodyBecomesError(t *testing.T) {
	msgs := []models.RawMessage{
		msg("m-1", "[근태공유] 공유", "날짜: 1/21\n사유: 기타\n특이사항 없음", "g@envision.co.kr", time.Now()),
	}

	res := New(discardLogger(), nil).Process(context.Background(), msgs)
	if len(res.Errors) != 1 {
		t.Fatalf("errors = %+v", res.Errors)
	}
	if !strings.Contains(res.Errors[0].Reason, "category") {
		t.Errorf("error reason = %q", res.Errors[0].Reason)
	}
}

// The directory lookup is called once per distinct sender, not per message.
func TestProcess_MemoisesDepartmentLookup(t *testing.T) {
	base := time.Date(2026, 1, 20, 17, 0, 0, 0, time.UTC)
	body := "신고자: 홍길동\n날짜: 1월 21일\n사유: 진료\n외출합니다"
	msgs := []models.RawMessage{
		msg("m-1", "[근태공유]", body, "same@envision.co.kr", base),
		msg("m-2", "[근태공유]", body, "same@envision.co.kr", base.Add(time.Minute)),
		msg("m-3", "[근태공유]", body, "other@envision.co.kr", base.Add(2*time.Minute)),
	}

	calls := map[string]int{}
	p := New(discardLogger(), func(ctx context.Context, address string) (string, error) {
		calls[address]++
		return "영업그룹", nil
	})
	res := p.Process(context.Background(), msgs)

	if res.Counts.Outings != 3 {
		t.Fatalf("counts = %+v", res.Counts)
	}
	if calls["same@envision.co.kr"] != 1 || calls["other@envision.co.kr"] != 1 {
		t.Errorf("lookup calls = %v", calls)
	}
}

// A failing lookup degrades to the unknown department instead of failing
// the message.
func TestProcess_LookupFailureDegrades(t *testing.T) {
	msgs := []models.RawMessage{
		msg("m-1", "[휴가신고]", "신청자: 홍길동\n날짜: 1월 22일\n휴가종류: 연차\n사유: 개인 사정",
			"g@envision.co.kr", time.Now()),
	}

	p := New(discardLogger(), func(ctx context.Context, address string) (string, error) {
		return "", errors.New("directory unavailable")
	})
	res := p.Process(context.Background(), msgs)

	if res.Counts.LeaveReports != 1 {
		t.Fatalf("counts = %+v", res.Counts)
	}
	if dept := res.Groups.LeaveReports[0].Record.Department; dept != models.DepartmentUnknown {
		t.Errorf("department = %q, want %q", dept, models.DepartmentUnknown)
	}
}
