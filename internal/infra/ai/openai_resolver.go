// internal/infra/ai/openai_resolver.go
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"outreach_automation/internal/domain/campaign"
	"outreach_automation/internal/domain/delivery"
	idb "outreach_automation/internal/infra/database"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// OpenAIDraftResolver resolves drafts from the draft store and generates
// missing ones through the chat-completions API. Generated drafts are stored
// unapproved; the worker drops jobs until someone approves them.
type OpenAIDraftResolver struct {
	store        delivery.DraftStore
	campaignRepo campaign.Repository
	apiKey       string
	baseURL      string
	defaultModel string
	httpClient   *http.Client
	logger       *logrus.Logger
}

func NewOpenAIDraftResolver(
	store delivery.DraftStore,
	campaignRepo campaign.Repository,
	apiKey, baseURL, defaultModel string,
	logger *logrus.Logger,
) *OpenAIDraftResolver {
	return &OpenAIDraftResolver{
		store:        store,
		campaignRepo: campaignRepo,
		apiKey:       apiKey,
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		defaultModel: defaultModel,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		logger:       logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// ResolveOrGenerate returns the cached draft for (campaign, slot) or generates
// and stores a new unapproved one.
func (r *OpenAIDraftResolver) ResolveOrGenerate(ctx context.Context, campaignID string, slot int, leadID string) (*delivery.Draft, error) {
	d, err := r.store.GetBySlot(ctx, campaignID, slot)
	if err == nil {
		return d, nil
	}
	if !errors.Is(err, idb.ErrDraftNotFound) {
		return nil, fmt.Errorf("failed to look up draft: %w", err)
	}

	c, err := r.campaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, fmt.Errorf("failed to load campaign for draft generation: %w", err)
	}
	if r.apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is not configured, cannot generate draft for campaign %s", campaignID)
	}

	subject, bodyHTML, err := r.generate(ctx, c)
	if err != nil {
		return nil, err
	}

	d = &delivery.Draft{
		ID:            uuid.NewString(),
		CampaignID:    campaignID,
		ScheduledSlot: slot,
		Subject:       subject,
		BodyHTML:      bodyHTML,
		Approved:      false,
	}
	if err := r.store.Upsert(ctx, d); err != nil {
		return nil, fmt.Errorf("failed to store generated draft: %w", err)
	}
	r.logger.Infof("ai: generated draft %s for campaign %s slot %d", d.ID, campaignID, slot)
	return d, nil
}

func (r *OpenAIDraftResolver) generate(ctx context.Context, c *campaign.Campaign) (string, string, error) {
	model := c.Model
	if model == "" {
		model = r.defaultModel
	}
	prompt := fmt.Sprintf(`You are an SDR crafting an outreach email for the campaign %q.
Time zone: %s
Campaign context:
%s

Return the subject on the first line prefixed with "Subject:". Write a short HTML friendly body afterwards.`,
		c.Name, c.Timezone, c.Context)

	reqBody, err := json.Marshal(chatRequest{
		Model:    model,
		Messages: []chatMessage{{Role: "user", Content: prompt}},
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/chat/completions", bytes.NewReader(reqBody))
	if err != nil {
		return "", "", fmt.Errorf("failed to build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", "", fmt.Errorf("failed to read completion response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", "", fmt.Errorf("completion request returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 || strings.TrimSpace(parsed.Choices[0].Message.Content) == "" {
		return "", "", fmt.Errorf("AI provider returned an empty response")
	}

	subject, bodyHTML := splitDraftContent(parsed.Choices[0].Message.Content)
	return subject, bodyHTML, nil
}

// splitDraftContent takes the "Subject: ..." first line as the subject and
// wraps the rest as a simple HTML paragraph.
func splitDraftContent(content string) (string, string) {
	lines := make([]string, 0)
	for _, line := range strings.Split(content, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	if len(lines) == 0 {
		return "Hello there", "<p>Hi there,</p>"
	}

	subject := strings.TrimSpace(strings.TrimPrefix(lines[0], "Subject:"))
	if subject == "" {
		subject = "Hello there"
	}
	if len(lines) < 2 {
		return subject, "<p>Hi there,</p>"
	}
	return subject, "<p>" + strings.Join(lines[1:], "<br/>") + "</p>"
}
