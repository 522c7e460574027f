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

// Package config loads configuration from config.yaml and environment
// variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// TenantConfig holds the Azure AD app credentials.
type TenantConfig struct {
	TenantID     string `yaml:"tenant_id"`
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
}

// Config holds all configuration for the attendance report service.
type Config struct {
	Tenant TenantConfig

	// Mailbox
	Mailbox      string
	Folder       string
	GraphBaseURL string

	// Report mail
	ReportRecipients []string
	ReportCc         []string

	// Deduction notices
	DeductionCc          []string
	DeductionTestAddress string // when set, notices go here instead of employees
	MailDomain           string

	// Roster workbook for Korean to English names
	RosterPath string

	// Scheduling (server mode): weekday local hours
	DeductionHour int
	ReportHour    int
	Timezone      string

	// Server (health check and manual triggers)
	Port int
}

// rawConfig mirrors the YAML structure for unmarshalling.
type rawConfig struct {
	Tenant TenantConfig `yaml:"tenant"`
	Mail   struct {
		Mailbox string `yaml:"mailbox"`
		Folder  string `yaml:"folder"`
	} `yaml:"mail"`
	Report struct {
		Recipients []string `yaml:"recipients"`
		Cc         []string `yaml:"cc"`
	} `yaml:"report"`
	Deduction struct {
		Cc          []string `yaml:"cc"`
		TestAddress string   `yaml:"test_address"`
		MailDomain  string   `yaml:"mail_domain"`
	} `yaml:"deduction"`
	RosterPath string `yaml:"roster_path"`
}

// Load reads configuration from config.yaml (with env var expansion) and
// environment variables for non-YAML settings.
func Load() (*Config, error) {
	configPath := envOrDefault("CONFIG_PATH", "/app/config/config.yaml")

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config file %s: %w", configPath, err)
	}

	// Expand ${VAR} references in the YAML
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config YAML: %w", err)
	}

	cfg := &Config{
		Tenant: TenantConfig{
			TenantID:     firstNonEmpty(raw.Tenant.TenantID, os.Getenv("AZURE_TENANT_ID")),
			ClientID:     firstNonEmpty(raw.Tenant.ClientID, os.Getenv("AZURE_CLIENT_ID")),
			ClientSecret: firstNonEmpty(raw.Tenant.ClientSecret, os.Getenv("AZURE_CLIENT_SECRET")),
		},
		Mailbox:              firstNonEmpty(raw.Mail.Mailbox, os.Getenv("TARGET_MAILBOX")),
		Folder:               firstNonEmpty(raw.Mail.Folder, envOrDefault("TARGET_FOLDER", "Inbox")),
		GraphBaseURL:         envOrDefault("GRAPH_BASE_URL", "https://graph.microsoft.com/v1.0"),
		ReportRecipients:     nonEmptyList(raw.Report.Recipients, splitList(os.Getenv("REPORT_RECIPIENTS"))),
		ReportCc:             nonEmptyList(raw.Report.Cc, splitList(os.Getenv("REPORT_CC"))),
		DeductionCc:          nonEmptyList(raw.Deduction.Cc, splitList(os.Getenv("DEDUCTION_CC"))),
		DeductionTestAddress: firstNonEmpty(raw.Deduction.TestAddress, os.Getenv("DEDUCTION_TEST_ADDRESS")),
		MailDomain:           firstNonEmpty(raw.Deduction.MailDomain, envOrDefault("MAIL_DOMAIN", "envision.co.kr")),
		RosterPath:           firstNonEmpty(raw.RosterPath, os.Getenv("ROSTER_PATH")),
		DeductionHour:        envOrDefaultInt("DEDUCTION_HOUR", 18),
		ReportHour:           envOrDefaultInt("REPORT_HOUR", 19),
		Timezone:             envOrDefault("TIMEZONE", "Asia/Seoul"),
		Port:                 envOrDefaultInt("PORT", 8080),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.Tenant.TenantID == "" {
		missing = append(missing, "tenant_id")
	}
	if c.Tenant.ClientID == "" {
		missing = append(missing, "client_id")
	}
	if c.Tenant.ClientSecret == "" {
		missing = append(missing, "client_secret")
	}
	if c.Mailbox == "" {
		missing = append(missing, "mailbox")
	}
	if len(c.ReportRecipients) == 0 {
		missing = append(missing, "report recipients")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Location resolves the configured timezone, falling back to UTC when the
// zone database does not know it.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func nonEmptyList(lists ...[]string) []string {
	for _, l := range lists {
		if len(l) > 0 {
			return l
		}
	}
	return nil
}
