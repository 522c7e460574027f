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

// Attendance report — service mode.
//
// Long-running server with the weekday schedule (deduction notices first,
// the report an hour later), manual HTTP triggers and a health endpoint.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

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

	slog.Info("starting attendance report service")

	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("configuration loaded",
		"mailbox", cfg.Mailbox,
		"folder", cfg.Folder,
		"deduction_hour", cfg.DeductionHour,
		"report_hour", cfg.ReportHour,
		"timezone", cfg.Timezone,
	)

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

	// One run at a time: a manual trigger during a scheduled run waits.
	var runMu sync.Mutex
	run := func(ctx context.Context, mode string) (*service.RunSummary, error) {
		runMu.Lock()
		defer runMu.Unlock()
		switch mode {
		case "deduction":
			return svc.RunDeductions(ctx)
		case "all":
			return svc.RunAll(ctx)
		default:
			return svc.RunReport(ctx)
		}
	}

	// --- Weekday Scheduler ---
	loc := cfg.Location()
	go scheduleDaily(ctx, loc, cfg.DeductionHour, "deduction", run)
	go scheduleDaily(ctx, loc, cfg.ReportHour, "report", run)

	// --- HTTP Server: health + manual triggers ---
	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "healthy"}`))
	})
	for _, mode := range []string{"report", "deduction", "all"} {
		mode := mode
		mux.HandleFunc("/run/"+mode, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
				return
			}
			sum, err := run(r.Context(), mode)
			if err != nil {
				slog.Error("manual run failed", "mode", mode, "error", err)
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(sum)
		})
	}

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 5 * time.Minute, // manual runs block until complete
	}

	// --- Graceful Shutdown ---
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)
		sig := <-sigCh

		slog.Info("received shutdown signal", "signal", sig)
		cancel() // Stop the schedulers

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("attendance report service listening", "addr", addr)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("attendance report service stopped")
}

// scheduleDaily fires the run at the given local hour on weekdays until the
// context is cancelled.
func scheduleDaily(
	ctx context.Context,
	loc *time.Location,
	hour int,
	mode string,
	run func(context.Context, string) (*service.RunSummary, error),
) {
	for {
		next := nextWeekdayRun(time.Now().In(loc), hour)
		slog.Info("scheduled run", "mode", mode, "at", next.Format(time.RFC3339))

		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Until(next)):
		}

		sum, err := run(ctx, mode)
		if err != nil {
			slog.Error("scheduled run failed", "mode", mode, "error", err)
			continue
		}
		slog.Info("scheduled run complete",
			"mode", mode,
			"run_id", sum.RunID,
			"total", sum.Counts.Total(),
			"notices_sent", sum.NoticesSent,
		)
	}
}

// nextWeekdayRun returns the next Monday-to-Friday occurrence of the given
// hour after now.
func nextWeekdayRun(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	for !next.After(now) || next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
