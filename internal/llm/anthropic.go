package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"

	"github.com/labtrail/labtrail/internal/model"
)

const labMatchPrompt = `You are a laboratory normalization system.

Given lab information extracted from a document and a list of existing labs in the database,
determine if this lab matches any existing lab.

Extracted lab info:
Name: %s
Address: %s
Phone: %s

Existing labs in database:
%s

Consider:
- Different address formats (abbreviations, etc.)
- Same lab, different locations (treat as separate)
- Minor variations in name (e.g., "MedLife Lab" vs "MedLife Laboratory")

If the lab matches an existing one, respond with:
{"match": true, "lab_id": "<existing lab id>"}

If it's a new lab not in the database, respond with:
{"match": false}

Return ONLY the JSON object.`

const typeMatchPrompt = `You are a medical test normalization system.

Given a lab test name and a list of existing standard test names in the database,
determine if the lab test matches any existing standard name.

Lab test name: %s
Suggested standard name: %s

Existing standard names in database:
%s

Consider:
- Different languages (e.g., "Glucoza" = "Blood Glucose")
- Different naming conventions (e.g., "CBC" = "Complete Blood Count")
- Common abbreviations
- Regional variations

If the test matches an existing standard name, respond with:
{"match": true, "standard_name": "<existing name>"}

If it's a new test not in the database, respond with:
{"match": false, "standard_name": "<suggested standard name>"}

Return ONLY the JSON object.`

// AnthropicDisambiguator is the semantic-matching collaborator consulted by
// both resolvers.
type AnthropicDisambiguator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
}

func NewAnthropicDisambiguator(apiKey, model string, maxTokens int64) *AnthropicDisambiguator {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	return &AnthropicDisambiguator{
		client:    anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:     model,
		maxTokens: maxTokens,
	}
}

func (d *AnthropicDisambiguator) complete(ctx context.Context, prompt string) (string, Usage, error) {
	message, err := d.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       anthropic.Model(d.model),
		MaxTokens:   d.maxTokens,
		Temperature: anthropic.Float(0.0),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", Usage{}, fmt.Errorf("disambiguation call failed: %w", err)
	}

	usage := Usage{
		Model:        d.model,
		InputTokens:  message.Usage.InputTokens,
		OutputTokens: message.Usage.OutputTokens,
	}

	if len(message.Content) == 0 {
		return "", usage, nil
	}
	return message.Content[0].Text, usage, nil
}

func (d *AnthropicDisambiguator) MatchLab(ctx context.Context, extracted *model.ExtractedLab, candidates []*model.Lab) (LabMatch, Usage, error) {
	var sb strings.Builder
	for _, lab := range candidates {
		fmt.Fprintf(&sb, "- ID: %s, Name: %s, Address: %s, Phone: %s\n",
			lab.ID, lab.Name, orNotProvided(lab.Address), orNotProvided(lab.Phone))
	}

	prompt := fmt.Sprintf(labMatchPrompt,
		extracted.Name,
		orNotProvided(extracted.Address),
		orNotProvided(extracted.Phone),
		sb.String(),
	)

	text, usage, err := d.complete(ctx, prompt)
	if err != nil {
		return LabMatch{}, usage, err
	}
	return parseLabMatch(text), usage, nil
}

func (d *AnthropicDisambiguator) MatchTestType(ctx context.Context, literalName, suggestedName string, existing []string) (TypeMatch, Usage, error) {
	var sb strings.Builder
	for _, name := range existing {
		fmt.Fprintf(&sb, "- %s\n", name)
	}

	prompt := fmt.Sprintf(typeMatchPrompt, literalName, suggestedName, sb.String())

	text, usage, err := d.complete(ctx, prompt)
	if err != nil {
		return TypeMatch{}, usage, err
	}
	return parseTypeMatch(text, suggestedName), usage, nil
}

// parseLabMatch degrades any malformed response to no-match: a duplicate lab
// row is acceptable, a silent merge of two labs is not.
func parseLabMatch(text string) LabMatch {
	var raw struct {
		Match bool   `json:"match"`
		LabID string `json:"lab_id"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return LabMatch{}
	}
	if !raw.Match {
		return LabMatch{}
	}
	id, err := uuid.Parse(raw.LabID)
	if err != nil {
		return LabMatch{}
	}
	return LabMatch{Matched: true, LabID: id}
}

// parseTypeMatch falls back to the suggested name on any parse failure.
func parseTypeMatch(text, suggestedName string) TypeMatch {
	var raw struct {
		Match        bool   `json:"match"`
		StandardName string `json:"standard_name"`
	}
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return TypeMatch{Matched: false, StandardName: suggestedName}
	}
	name := strings.TrimSpace(raw.StandardName)
	if name == "" {
		return TypeMatch{Matched: false, StandardName: suggestedName}
	}
	return TypeMatch{Matched: raw.Match, StandardName: name}
}

func orNotProvided(s *string) string {
	if s == nil || *s == "" {
		return "Not provided"
	}
	return *s
}
