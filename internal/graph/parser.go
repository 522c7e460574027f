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

package graph

import (
	"encoding/json"
	"fmt"
	"html"
	"io"
	"regexp"
	"strings"
	"time"

	"github.com/envisionhr/attendance-report/internal/models"
)

// graphMessage represents the relevant fields of a Graph message resource.
type graphMessage struct {
	ID      string `json:"id"`
	Subject string `json:"subject"`
	From    struct {
		EmailAddress struct {
			Address string `json:"address"`
			Name    string `json:"name"`
		} `json:"emailAddress"`
	} `json:"from"`
	Body struct {
		ContentType string `json:"contentType"`
		Content     string `json:"content"`
	} `json:"body"`
	ReceivedDateTime string `json:"receivedDateTime"`
}

// parseMessagePage converts one listing page into raw messages and returns
// the next page link, if any.
func parseMessagePage(body io.Reader) ([]models.RawMessage, string, error) {
	var page struct {
		Value    []graphMessage `json:"value"`
		NextLink string         `json:"@odata.nextLink"`
	}
	if err := json.NewDecoder(body).Decode(&page); err != nil {
		return nil, "", fmt.Errorf("decode message page: %w", err)
	}

	out := make([]models.RawMessage, 0, len(page.Value))
	for _, msg := range page.Value {
		raw, err := toRawMessage(msg)
		if err != nil {
			return nil, "", err
		}
		out = append(out, raw)
	}
	return out, page.NextLink, nil
}

func toRawMessage(msg graphMessage) (models.RawMessage, error) {
	received, err := time.Parse(time.RFC3339, msg.ReceivedDateTime)
	if err != nil {
		return models.RawMessage{}, fmt.Errorf("parse receivedDateTime of %s: %w", msg.ID, err)
	}

	body := msg.Body.Content
	if strings.EqualFold(msg.Body.ContentType, "html") {
		body = htmlToText(body)
	}

	return models.RawMessage{
		ID:            msg.ID,
		Subject:       msg.Subject,
		Body:          body,
		SenderName:    msg.From.EmailAddress.Name,
		SenderAddress: msg.From.EmailAddress.Address,
		ReceivedAt:    received.UTC(),
	}, nil
}

var (
	breakTags = regexp.MustCompile(`(?i)<\s*(?:br\s*/?|/p|/div|/tr|/li)\s*>`)
	anyTag    = regexp.MustCompile(`<[^>]*>`)
	blankRuns = regexp.MustCompile(`\n{3,}`)
)

// htmlToText reduces an HTML body to plain text. Block-level closings become
// newlines first so the label-per-line extraction still sees line structure.
func htmlToText(s string) string {
	s = breakTags.ReplaceAllString(s, "\n")
	s = anyTag.ReplaceAllString(s, "")
	s = html.UnescapeString(s)

	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(line)
	}
	s = strings.Join(lines, "\n")
	s = blankRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
