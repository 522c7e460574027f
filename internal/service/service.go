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

// Package service orchestrates full runs: collect mail from the shared
// folder, run the pipeline, send deduction notices, build and send the
// report. Both entry points and the scheduler call into here.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/envisionhr/attendance-report/internal/aggregate"
	"github.com/envisionhr/attendance-report/internal/classify"
	"github.com/envisionhr/attendance-report/internal/config"
	"github.com/envisionhr/attendance-report/internal/deduction"
	"github.com/envisionhr/attendance-report/internal/graph"
	"github.com/envisionhr/attendance-report/internal/models"
	"github.com/envisionhr/attendance-report/internal/pipeline"
	"github.com/envisionhr/attendance-report/internal/report"
	"github.com/envisionhr/attendance-report/internal/roster"
)

// MailClient is the Graph surface the service needs. *graph.Client
// implements it.
type MailClient interface {
	FolderID(ctx context.Context, name string) (string, error)
	ListMessages(ctx context.Context, folderID string, window graph.ListWindow, keep func(subject string) bool) ([]models.RawMessage, error)
	UserDepartment(ctx context.Context, address string) (string, error)
	SendMail(ctx context.Context, mail graph.OutgoingMail) error
}

// Service wires the pipeline to the mailbox and the outgoing mails.
type Service struct {
	cfg    *config.Config
	mail   MailClient
	names  *roster.Roster
	logger *slog.Logger
	now    func() time.Time
}

// New builds a service. names may be nil when no roster is configured.
func New(cfg *config.Config, mail MailClient, names *roster.Roster, logger *slog.Logger) *Service {
	if names == nil {
		names = roster.Empty()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		cfg:    cfg,
		mail:   mail,
		names:  names,
		logger: logger,
		now:    time.Now,
	}
}

// RunSummary reports what one run did.
type RunSummary struct {
	RunID       string
	Counts      aggregate.SummaryCounts
	NoticesSent int
	ReportSent  bool
}

// collect lists the folder once and splits the system's own deduction
// notices from employee mail. Notices carry the [근태공유] tag and mention
// attendance keywords in their history table, so letting them through the
// pipeline would fabricate records.
func (s *Service) collect(ctx context.Context) (employee, notices []models.RawMessage, err error) {
	folderID, err := s.mail.FolderID(ctx, s.cfg.Folder)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve folder: %w", err)
	}

	msgs, err := s.mail.ListMessages(ctx, folderID, graph.ListWindow{}, classify.IsTarget)
	if err != nil {
		return nil, nil, fmt.Errorf("list messages: %w", err)
	}

	for _, msg := range msgs {
		if deduction.IsNotice(msg.Subject) {
			notices = append(notices, msg)
		} else {
			employee = append(employee, msg)
		}
	}
	s.logger.Info("collected folder messages",
		"folder", s.cfg.Folder,
		"employee_mail", len(employee),
		"prior_notices", len(notices))
	return employee, notices, nil
}

func (s *Service) process(ctx context.Context, msgs []models.RawMessage) pipeline.Result {
	p := pipeline.New(s.logger, s.mail.UserDepartment)
	return p.Process(ctx, msgs)
}

// RunReport collects, processes and sends the report mail with the workbook
// attached. Deduction notices are not sent, but the notices already in the
// folder feed the report's weekly history table.
func (s *Service) RunReport(ctx context.Context) (*RunSummary, error) {
	employee, notices, err := s.collect(ctx)
	if err != nil {
		return nil, err
	}
	res := s.process(ctx, employee)

	if err := s.sendReport(ctx, res, deduction.CollectPrior(notices)); err != nil {
		return nil, err
	}
	return &RunSummary{RunID: res.RunID, Counts: res.Counts, ReportSent: true}, nil
}

// RunDeductions collects, processes and sends deduction notices only, the
// weekday pre-report run.
func (s *Service) RunDeductions(ctx context.Context) (*RunSummary, error) {
	employee, notices, err := s.collect(ctx)
	if err != nil {
		return nil, err
	}
	res := s.process(ctx, employee)

	sent, err := s.sendNotices(ctx, res.Groups, deduction.CollectPrior(notices))
	if err != nil {
		return nil, err
	}
	return &RunSummary{RunID: res.RunID, Counts: res.Counts, NoticesSent: len(sent)}, nil
}

// RunAll sends deduction notices and then the report, one collection pass.
func (s *Service) RunAll(ctx context.Context) (*RunSummary, error) {
	employee, notices, err := s.collect(ctx)
	if err != nil {
		return nil, err
	}
	res := s.process(ctx, employee)

	prior := deduction.CollectPrior(notices)
	sent, err := s.sendNotices(ctx, res.Groups, prior)
	if err != nil {
		return nil, err
	}

	// Notices sent moments ago belong in the report's weekly table too.
	today := s.now().Format("2006-01-02")
	for _, n := range sent {
		prior[n.EnglishName] = append(prior[n.EnglishName],
			deduction.PriorDeduction{Date: today, Minutes: n.DeductedMinutes})
	}

	if err := s.sendReport(ctx, res, prior); err != nil {
		return nil, err
	}
	return &RunSummary{RunID: res.RunID, Counts: res.Counts, NoticesSent: len(sent), ReportSent: true}, nil
}

// BuildWorkbook runs the pipeline and returns the encoded report without
// sending anything. Used by the CLI's --out mode.
func (s *Service) BuildWorkbook(ctx context.Context) (data []byte, filename string, err error) {
	employee, _, err := s.collect(ctx)
	if err != nil {
		return nil, "", err
	}
	res := s.process(ctx, employee)

	spec := report.Assemble(res.Groups, res.Counts, res.Errors, s.now())
	data, err = report.Encode(spec)
	if err != nil {
		return nil, "", err
	}
	return data, spec.Filename, nil
}

func (s *Service) sendReport(ctx context.Context, res pipeline.Result, prior deduction.History) error {
	runDate := s.now()
	spec := report.Assemble(res.Groups, res.Counts, res.Errors, runDate)
	data, err := report.Encode(spec)
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	body, err := report.SummaryHTML(res.Counts, report.WeeklyDeductions(prior, runDate), runDate)
	if err != nil {
		return err
	}

	err = s.mail.SendMail(ctx, graph.OutgoingMail{
		To:       s.cfg.ReportRecipients,
		Cc:       s.cfg.ReportCc,
		Subject:  report.Subject(runDate),
		HTMLBody: body,
		Attachments: []graph.Attachment{{
			Name:        spec.Filename,
			ContentType: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			Content:     data,
		}},
	})
	if err != nil {
		return fmt.Errorf("send report: %w", err)
	}
	s.logger.Info("report sent",
		"run_id", res.RunID,
		"recipients", len(s.cfg.ReportRecipients),
		"filename", spec.Filename)
	return nil
}

// sendNotices builds and sends deduction notices, returning the ones that
// went out. A failed send is logged and skipped so one bad address does not
// block the others.
func (s *Service) sendNotices(ctx context.Context, groups aggregate.ReportGroups, prior deduction.History) ([]deduction.Notice, error) {
	records := attendanceRecords(groups)
	notices := deduction.BuildNotices(records, s.names, prior)

	var sent []deduction.Notice
	for _, n := range notices {
		body, err := deduction.NoticeHTML(n, s.now())
		if err != nil {
			return sent, err
		}

		to := s.cfg.DeductionTestAddress
		if to == "" {
			to = deduction.RecipientAddress(n.EnglishName, s.cfg.MailDomain)
		}

		err = s.mail.SendMail(ctx, graph.OutgoingMail{
			To:       []string{to},
			Cc:       s.cfg.DeductionCc,
			Subject:  n.Subject(),
			HTMLBody: body,
		})
		if err != nil {
			s.logger.Error("deduction notice failed",
				"employee", n.EnglishName,
				"error", err)
			continue
		}
		s.logger.Info("deduction notice sent",
			"employee", n.EnglishName,
			"days", deduction.FormatDays(n.DeductionDays),
			"minutes", n.DeductedMinutes)
		sent = append(sent, n)
	}
	return sent, nil
}

func attendanceRecords(groups aggregate.ReportGroups) []models.AttendanceRecord {
	var out []models.AttendanceRecord
	for _, g := range [][]aggregate.NumberedAttendance{groups.LateArrivals, groups.Outings, groups.EarlyLeaves} {
		for _, n := range g {
			out = append(out, n.Record)
		}
	}
	return out
}
