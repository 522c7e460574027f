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

// Package graph is a thin Microsoft Graph REST client for the shared
// attendance mailbox: folder resolution, paged message listing, directory
// department lookup and report mail sending. Authentication lives in the
// *http.Client (an oauth2 client-credentials transport built in main).
package graph

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/envisionhr/attendance-report/internal/models"
)

// DefaultBaseURL is the production Graph endpoint.
const DefaultBaseURL = "https://graph.microsoft.com/v1.0"

// pageSize is the $top value for message listing.
const pageSize = 50

// Client calls the Graph API on behalf of one mailbox.
type Client struct {
	httpClient *http.Client
	baseURL    string
	mailbox    string
}

// NewClient creates a Graph client. httpClient must carry authentication;
// baseURL defaults to the production endpoint when empty.
func NewClient(httpClient *http.Client, baseURL, mailbox string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		mailbox:    mailbox,
	}
}

// ListWindow bounds a message listing by receive time. Zero values leave the
// corresponding side open.
type ListWindow struct {
	Since time.Time
	Until time.Time
}

// ListMessages retrieves all report-relevant messages from a folder, following
// @odata.nextLink pages. Only messages whose subject carries a recognised tag
// survive the client-side filter; keep is that predicate. HTML bodies are
// reduced to plain text by the parser.
func (c *Client) ListMessages(ctx context.Context, folderID string, window ListWindow, keep func(subject string) bool) ([]models.RawMessage, error) {
	query := url.Values{}
	query.Set("$select", "id,subject,from,body,receivedDateTime")
	query.Set("$orderby", "receivedDateTime desc")
	query.Set("$top", fmt.Sprintf("%d", pageSize))
	if filter := windowFilter(window); filter != "" {
		query.Set("$filter", filter)
	}

	next := fmt.Sprintf("%s/users/%s/mailFolders/%s/messages?%s",
		c.baseURL, url.PathEscape(c.mailbox), url.PathEscape(folderID), query.Encode())

	var out []models.RawMessage
	for next != "" {
		page, nextLink, err := c.listPage(ctx, next)
		if err != nil {
			return nil, err
		}
		for _, msg := range page {
			if keep == nil || keep(msg.Subject) {
				out = append(out, msg)
			}
		}
		next = nextLink
	}
	return out, nil
}

func windowFilter(w ListWindow) string {
	const stamp = "2006-01-02T15:04:05Z"
	switch {
	case !w.Since.IsZero() && !w.Until.IsZero():
		return fmt.Sprintf("receivedDateTime ge %s and receivedDateTime lt %s",
			w.Since.UTC().Format(stamp), w.Until.UTC().Format(stamp))
	case !w.Since.IsZero():
		return "receivedDateTime ge " + w.Since.UTC().Format(stamp)
	case !w.Until.IsZero():
		return "receivedDateTime lt " + w.Until.UTC().Format(stamp)
	}
	return ""
}

func (c *Client) listPage(ctx context.Context, pageURL string) ([]models.RawMessage, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Prefer", "outlook.body-content-type=\"text\"")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("list messages: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("graph API returned HTTP %d listing messages", resp.StatusCode)
	}

	return parseMessagePage(resp.Body)
}

// FolderID resolves a display name to a folder id. Well-known names ("Inbox",
// "SentItems", any casing) resolve without a lookup; on a localized mailbox
// the folder list carries "받은 편지함", never "Inbox", so a display-name
// search for them would fail. Other names search top-level folders first,
// then the Inbox's children, matching how mailbox owners file the shared
// folder.
func (c *Client) FolderID(ctx context.Context, name string) (string, error) {
	switch {
	case name == "" || strings.EqualFold(name, "inbox"):
		return "inbox", nil
	case strings.EqualFold(name, "sentitems"):
		return "sentitems", nil
	}

	for _, path := range []string{"/mailFolders", "/mailFolders/inbox/childFolders"} {
		id, err := c.findFolder(ctx, path, name)
		if err != nil {
			return "", err
		}
		if id != "" {
			return id, nil
		}
	}
	return "", fmt.Errorf("mail folder %q not found", name)
}

func (c *Client) findFolder(ctx context.Context, path, name string) (string, error) {
	reqURL := fmt.Sprintf("%s/users/%s%s?$select=id,displayName&$top=100",
		c.baseURL, url.PathEscape(c.mailbox), path)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("list folders: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("graph API returned HTTP %d listing folders", resp.StatusCode)
	}

	var body struct {
		Value []struct {
			ID          string `json:"id"`
			DisplayName string `json:"displayName"`
		} `json:"value"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode folder list: %w", err)
	}
	for _, f := range body.Value {
		if f.DisplayName == name {
			return f.ID, nil
		}
	}
	return "", nil
}

// UserDepartment looks up a sender's department in the directory. Unknown
// users and empty departments both return "" without error; records degrade
// rather than fail on directory gaps.
func (c *Client) UserDepartment(ctx context.Context, address string) (string, error) {
	reqURL := fmt.Sprintf("%s/users/%s?$select=department", c.baseURL, url.PathEscape(address))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("lookup user: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		slog.Warn("user not in directory", "address", address)
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("graph API returned HTTP %d for user %s", resp.StatusCode, address)
	}

	var body struct {
		Department string `json:"department"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode user: %w", err)
	}
	return body.Department, nil
}

// Attachment is a file attached to an outgoing mail.
type Attachment struct {
	Name        string
	ContentType string
	Content     []byte
}

// OutgoingMail is one mail to send from the service mailbox.
type OutgoingMail struct {
	To          []string
	Cc          []string
	Subject     string
	HTMLBody    string
	Attachments []Attachment
}

// SendMail sends a mail via /sendMail and saves it to sent items, which the
// deduction scan later relies on.
func (c *Client) SendMail(ctx context.Context, mail OutgoingMail) error {
	payload := map[string]any{
		"message":         buildMessage(mail),
		"saveToSentItems": true,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode mail: %w", err)
	}

	reqURL := fmt.Sprintf("%s/users/%s/sendMail", c.baseURL, url.PathEscape(c.mailbox))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("graph API returned HTTP %d sending mail: %s", resp.StatusCode, detail)
	}
	return nil
}

func buildMessage(mail OutgoingMail) map[string]any {
	msg := map[string]any{
		"subject": mail.Subject,
		"body": map[string]any{
			"contentType": "HTML",
			"content":     mail.HTMLBody,
		},
		"toRecipients": recipients(mail.To),
	}
	if len(mail.Cc) > 0 {
		msg["ccRecipients"] = recipients(mail.Cc)
	}
	if len(mail.Attachments) > 0 {
		var atts []map[string]any
		for _, a := range mail.Attachments {
			atts = append(atts, map[string]any{
				"@odata.type":  "#microsoft.graph.fileAttachment",
				"name":         a.Name,
				"contentType":  a.ContentType,
				"contentBytes": base64.StdEncoding.EncodeToString(a.Content),
			})
		}
		msg["attachments"] = atts
	}
	return msg
}

func recipients(addresses []string) []map[string]any {
	out := make([]map[string]any, 0, len(addresses))
	for _, a := range addresses {
		out = append(out, map[string]any{
			"emailAddress": map[string]any{"address": a},
		})
	}
	return out
}
