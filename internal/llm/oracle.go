package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pfrederiksen/events-today/internal/event"
)

// ErrInvalidResponse marks a model reply that is not a JSON array of records.
var ErrInvalidResponse = errors.New("llm: invalid response")

const instructionTemplate = `You are cleaning a list of event listings scraped from venue and ticketing websites.
Today is %s, %s %d, %d.

For every event in the JSON array below:
1. Normalize "date" to the form "<Weekday>, <Month> <Day>" (for example "Friday, May 2").
2. Normalize "time" to the form "<h>:<mm> <AM|PM>" (for example "8:00 PM"). Leave it empty when unknown.
3. Recompute "is_today": true only when the event takes place on %s, %s %d.
4. Trim surrounding whitespace from every string field.
5. Merge duplicates: events with the same title, venue and date are one event; keep the most complete fields.

Keep every other field unchanged. Respond with only the cleaned JSON array, using the same field names.

Events:
%s`

// BuildPrompt renders the cleanup instruction for records relative to ref.
func BuildPrompt(records []event.Record, ref event.RefDate) (string, error) {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding records: %w", err)
	}
	weekday, month := ref.Weekday.String(), ref.Month.String()
	return fmt.Sprintf(instructionTemplate,
		weekday, month, ref.Day, ref.Year,
		weekday, month, ref.Day,
		string(data)), nil
}

// ParseResponse decodes the model's reply, tolerating a surrounding ``` or ```json fence.
func ParseResponse(content string) ([]event.Record, error) {
	body := stripFence(content)
	if body == "" {
		return nil, fmt.Errorf("%w: empty reply", ErrInvalidResponse)
	}

	var records []event.Record
	if err := json.Unmarshal([]byte(body), &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidResponse, err)
	}
	if records == nil {
		return nil, fmt.Errorf("%w: null reply", ErrInvalidResponse)
	}
	return records, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```")
		// Drop a language tag such as "json" on the opening fence line.
		if nl := strings.IndexByte(s, '\n'); nl >= 0 {
			if tag := strings.TrimSpace(s[:nl]); !strings.ContainsAny(tag, "[{") {
				s = s[nl+1:]
			}
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// Oracle cleans records with a chat model.
type Oracle struct {
	client      ChatClient
	model       string
	temperature float64
	maxTokens   int
}

// NewOracle returns an Oracle using client and model.
func NewOracle(client ChatClient, model string, temperature float64, maxTokens int) *Oracle {
	return &Oracle{
		client:      client,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
	}
}

// Clean sends records to the model and returns its cleaned list. Any transport or
// contract failure is returned as an error; nothing is silently dropped.
func (o *Oracle) Clean(ctx context.Context, records []event.Record, ref event.RefDate) ([]event.Record, error) {
	prompt, err := BuildPrompt(records, ref)
	if err != nil {
		return nil, err
	}

	resp, err := o.client.ChatCompletion(ctx, ChatCompletionRequest{
		Model: o.model,
		Messages: []Message{
			{Role: "system", Content: "You clean and deduplicate event data. You reply with JSON only."},
			{Role: "user", Content: prompt},
		},
		Temperature: o.temperature,
		MaxTokens:   o.maxTokens,
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices", ErrInvalidResponse)
	}

	return ParseResponse(resp.Choices[0].Message.Content)
}
