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

// Attendance report — one-shot command.
//
// Runs a single collection pass against the shared mailbox and either sends
// the mails or writes the workbook locally.
//
// Usage:
//
//	go run ./cmd/report/ [--mode report|deduction|all] [--out report.xlsx]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"golang.org/x/oauth2/clientcredentials"

	"github.com/envisionhr/attendance-report/internal/config"
	"github.com/envisionhr/attendance-report/internal/graph"
	"github.com/envisionhr/attendance-report/internal/roster"
	"github.com/envisionhr/attendance-report/internal/service"
)

func main() {
	// Structured JSON logging
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// --- CLI Flags ---
	modeFlag := flag.String("mode", "report", "What to send: report, deduction or all")
	outFlag := flag.String("out", "", "Write the workbook to this path instead of sending mail")
	flag.Parse()

	switch *modeFlag {
	case "report", "deduction", "all":
	default:
		fmt.Fprintf(os.Stderr, "Error: invalid --mode %q\n\n", *modeFlag)
		flag.Usage()
		os.Exit(1)
	}

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// --- Roster (optional) ---
	names := roster.Empty()
	if cfg.RosterPath != "" {
		names, err = roster.Load(cfg.RosterPath)
		if err != nil {
			slog.Error("failed to load roster", "path", cfg.RosterPath, "error", err)
			os.Exit(1)
		}
		slog.Info("roster loaded", "employees", names.Len())
	}

	// --- Build OAuth2 client for the tenant ---
	creds := &clientcredentials.Config{
		ClientID:     cfg.Tenant.ClientID,
		ClientSecret: cfg.Tenant.ClientSecret,
		TokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", cfg.Tenant.TenantID),
		Scopes:       []string{"https://graph.microsoft.com/.default"},
	}
	mail := graph.NewClient(creds.Client(ctx), cfg.GraphBaseURL, cfg.Mailbox)

	svc := service.New(cfg, mail, names, logger)

	// --- Local workbook mode ---
	if *outFlag != "" {
		data, filename, err := svc.BuildWorkbook(ctx)
		if err != nil {
			slog.Error("failed to build workbook", "error", err)
			os.Exit(1)
		}
		if err := os.WriteFile(*outFlag, data, 0o644); err != nil {
			slog.Error("failed to write workbook", "path", *outFlag, "error", err)
			os.Exit(1)
		}
		slog.Info("workbook written", "path", *outFlag, "name", filename, "bytes", len(data))
		return
	}

	// --- Run ---
	var sum *service.RunSummary
	switch *modeFlag {
	case "report":
		sum, err = svc.RunReport(ctx)
	case "deduction":
		sum, err = svc.RunDeductions(ctx)
	case "all":
		sum, err = svc.RunAll(ctx)
	}
	if err != nil {
		slog.Error("run failed", "mode", *modeFlag, "error", err)
		os.Exit(1)
	}

	slog.Info("run complete",
		"mode", *modeFlag,
		"run_id", sum.RunID,
		"leave_reports", sum.Counts.LeaveReports,
		"late_arrivals", sum.Counts.LateArrivals,
		"outings", sum.Counts.Outings,
		"early_leaves", sum.Counts.EarlyLeaves,
		"errors", sum.Counts.Errors,
		"notices_sent", sum.NoticesSent,
		"report_sent", sum.ReportSent,
	)
}
