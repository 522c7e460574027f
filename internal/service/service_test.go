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

package service

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/envisionhr/attendance-report/internal/config"
	"github.com/envisionhr/attendance-report/internal/graph"
	"github.com/envisionhr/attendance-report/internal/models"
	"github.com/envisionhr/attendance-report/internal/roster"
)

type fakeMail struct {
	messages []models.RawMessage
	sent     []graph.OutgoingMail
}

func (f *fakeMail) FolderID(ctx context.Context, name string) (string, error) {
	return "folder-1", nil
}

func (f *fakeMail) ListMessages(ctx context.Context, folderID string, window graph.ListWindow, keep func(string) bool) ([]models.RawMessage, error) {
	var out []models.RawMessage
	for _, m := range f.messages {
		if keep == nil || keep(m.Subject) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (f *fakeMail) UserDepartment(ctx context.Context, address string) (string, error) {
	return "기업발전그룹", nil
}

func (f *fakeMail) SendMail(ctx context.Context, mail graph.OutgoingMail) error {
	f.sent = append(f.sent, mail)
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		Mailbox:              "hr@envision.co.kr",
		Folder:               "근태 자동화",
		ReportRecipients:     []string{"boss@envision.co.kr"},
		ReportCc:             []string{"audit@envision.co.kr"},
		DeductionCc:          []string{"audit@envision.co.kr"},
		DeductionTestAddress: "wyyu@envision.co.kr",
		MailDomain:           "envision.co.kr",
	}
}

func testService(mail *fakeMail) *Service {
	s := New(testConfig(), mail, roster.Empty(), slog.New(slog.NewJSONHandler(io.Discard, nil)))
	s.now = func() time.Time { return time.Date(2026, 1, 20, 19, 0, 0, 0, time.UTC) }
	return s
}

func folderMessages() []models.RawMessage {
	base := time.Date(2026, 1, 20, 9, 0, 0, 0, time.UTC)
	return []models.RawMessage{
		{
			ID: "m-1", Subject: "[휴가신고] 연차",
			Body:          "신청자: 홍길동\n날짜: 2026년 1월 22일\n휴가종류: 연차\n사유: 개인 사정",
			SenderAddress: "gildong@envision.co.kr", ReceivedAt: base,
		},
		{
			ID: "m-2", Subject: "[근태공유] 외출",
			Body:          "신고자: 김영희\n날짜: 1월 20일\n시간: 14:00 ~ 16:30\n사유: 병원 진료\n외출합니다",
			SenderAddress: "yh.kim@envision.co.kr", ReceivedAt: base.Add(time.Minute),
		},
		// A notice the system itself sent earlier. Its body mentions 출근지연,
		// so it must be kept out of the record flow.
		{
			ID: "n-1", Subject: "[근태공유] 김영희(0.25일, 휴가차감)",
			Body:          "4. 시간: 120분\n출근지연-일자",
			SenderAddress: "hr@envision.co.kr", ReceivedAt: base.AddDate(0, 0, -1),
		},
		{
			ID: "m-3", Subject: "회의 안내",
			Body:          "무관한 메일",
			SenderAddress: "x@envision.co.kr", ReceivedAt: base,
		},
	}
}

func TestRunReport(t *testing.T) {
	mail := &fakeMail{messages: folderMessages()}
	sum, err := testService(mail).RunReport(context.Background())
	if err != nil {
		t.Fatalf("RunReport: %v", err)
	}

	if sum.Counts.LeaveReports != 1 || sum.Counts.Outings != 1 || sum.Counts.Errors != 0 {
		t.Fatalf("counts = %+v", sum.Counts)
	}
	if !sum.ReportSent || sum.NoticesSent != 0 {
		t.Errorf("summary = %+v", sum)
	}

	if len(mail.sent) != 1 {
		t.Fatalf("sent %d mails, want 1", len(mail.sent))
	}
	rep := mail.sent[0]
	if rep.Subject != "[근태보고] 2026-01-20 근태/휴가 현황" {
		t.Errorf("subject = %q", rep.Subject)
	}
	if len(rep.Attachments) != 1 || rep.Attachments[0].Name != "근태휴가_보고서_20260120.xlsx" {
		t.Errorf("attachments = %+v", rep.Attachments)
	}
	if rep.To[0] != "boss@envision.co.kr" || rep.Cc[0] != "audit@envision.co.kr" {
		t.Errorf("recipients = %v cc %v", rep.To, rep.Cc)
	}
	if !strings.Contains(rep.HTMLBody, "휴가신고") {
		t.Error("summary body missing counts table")
	}
	// The prior notice from Monday shows up in the weekly history table.
	if !strings.Contains(rep.HTMLBody, "주간 차감 발송 이력") || !strings.Contains(rep.HTMLBody, "김영희(120분)") {
		t.Error("summary body missing weekly deduction history")
	}
}

// The prior notice already covers 120 of 김영희's 150 new minutes; the
// remaining 30 stay under the threshold, so no new notice goes out.
func TestRunDeductions_PriorNoticeSubtracted(t *testing.T) {
	mail := &fakeMail{messages: folderMessages()}
	sum, err := testService(mail).RunDeductions(context.Background())
	if err != nil {
		t.Fatalf("RunDeductions: %v", err)
	}
	if sum.NoticesSent != 0 {
		t.Errorf("notices sent = %d, want 0", sum.NoticesSent)
	}
	if len(mail.sent) != 0 {
		t.Errorf("sent = %+v", mail.sent)
	}
}

func TestRunDeductions_SendsToTestAddress(t *testing.T) {
	// Without the prior notice the 150 outing minutes cross one unit.
	msgs := folderMessages()
	msgs = append(msgs[:2], msgs[3:]...)
	mail := &fakeMail{messages: msgs}

	sum, err := testService(mail).RunDeductions(context.Background())
	if err != nil {
		t.Fatalf("RunDeductions: %v", err)
	}
	if sum.NoticesSent != 1 {
		t.Fatalf("notices sent = %d, want 1", sum.NoticesSent)
	}

	notice := mail.sent[0]
	if notice.To[0] != "wyyu@envision.co.kr" {
		t.Errorf("notice recipient = %v, want test address", notice.To)
	}
	if !strings.Contains(notice.Subject, "휴가차감") || !strings.Contains(notice.Subject, "0.25일") {
		t.Errorf("notice subject = %q", notice.Subject)
	}
	if !strings.Contains(notice.HTMLBody, "120분") {
		t.Error("notice body missing deducted minutes")
	}
}

func TestRunAll(t *testing.T) {
	msgs := folderMessages()
	msgs = append(msgs[:2], msgs[3:]...)
	mail := &fakeMail{messages: msgs}

	sum, err := testService(mail).RunAll(context.Background())
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if sum.NoticesSent != 1 || !sum.ReportSent {
		t.Errorf("summary = %+v", sum)
	}
	// Notice first, then the report.
	if len(mail.sent) != 2 {
		t.Fatalf("sent %d mails", len(mail.sent))
	}
	if !strings.Contains(mail.sent[0].Subject, "휴가차감") {
		t.Errorf("first mail = %q", mail.sent[0].Subject)
	}
	if !strings.Contains(mail.sent[1].Subject, "[근태보고]") {
		t.Errorf("second mail = %q", mail.sent[1].Subject)
	}
	// The notice sent in this run lands in today's row of the weekly table.
	if !strings.Contains(mail.sent[1].HTMLBody, "김영희(120분)") {
		t.Error("report body missing the notice sent this run")
	}
}

func TestBuildWorkbook(t *testing.T) {
	mail := &fakeMail{messages: folderMessages()}
	data, filename, err := testService(mail).BuildWorkbook(context.Background())
	if err != nil {
		t.Fatalf("BuildWorkbook: %v", err)
	}
	if filename != "근태휴가_보고서_20260120.xlsx" {
		t.Errorf("filename = %q", filename)
	}
	if len(data) == 0 {
		t.Error("empty workbook")
	}
	if len(mail.sent) != 0 {
		t.Errorf("BuildWorkbook sent mail: %+v", mail.sent)
	}
}
