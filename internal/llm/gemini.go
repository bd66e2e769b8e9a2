package llm

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"

	"github.com/labtrail/labtrail/internal/model"
)

const labExtractionPrompt = `Analyze this medical lab report PDF and extract the laboratory information from the header/footer.

Extract:
- name: Laboratory name
- address: Full address (if shown)
- phone: Phone number (if shown)
- email: Email address (if shown)
- accreditation: Any accreditation info (if shown)

Return ONLY a JSON object with those keys, no other text.`

const observationExtractionPrompt = `Analyze this medical lab report PDF and extract all test results.
The patient is %s, age %d; use age- and sex-specific reference ranges when the report shows several.

For each test, provide:
- lab_test_name: The exact name as printed on the report
- lab_test_code: Any code/identifier shown (optional)
- suggested_standard_name: Your suggestion for the standard English medical name
- value: Numeric value (null if non-numeric)
- value_text: Text value for non-numeric results (e.g., "Pozitiv", "Normal")
- value_normalized: Normalized version of value_text using only these values:
  POSITIVE, NEGATIVE, NORMAL, ABNORMAL, DETECTED, NOT_DETECTED, REACTIVE,
  NON_REACTIVE, PRESENT, ABSENT, HIGH, LOW, BORDERLINE (null if numeric)
- unit: Unit of measurement, in English where applicable
- lower_limit: Lower reference range (null if not shown)
- upper_limit: Upper reference range (null if not shown)
- test_date: Date the test was performed (YYYY-MM-DD)
- status: One of NORMAL, BORDERLINE, ABNORMAL for this result
- interpretation: Clinical interpretation of what this result means
- documentation: Any notes or comments about this specific test
- confidence: Your confidence in the extraction (0.0 to 1.0)

Important:
- Extract ALL tests from the document, including historical data from graphs
- Use consistent YYYY-MM-DD dates
- Return ONLY a JSON array of test objects, no other text`

// GeminiExtractor is the vision extraction collaborator.
type GeminiExtractor struct {
	client *genai.Client
	model  string
}

func NewGeminiExtractor(ctx context.Context, apiKey, model string) (*GeminiExtractor, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiExtractor{client: client, model: model}, nil
}

func (e *GeminiExtractor) generate(ctx context.Context, doc []byte, prompt string) (string, Usage, error) {
	contents := []*genai.Content{
		{
			Parts: []*genai.Part{
				{InlineData: &genai.Blob{Data: doc, MIMEType: "application/pdf"}},
				{Text: prompt},
			},
		},
	}

	temperature := float32(0.1)
	result, err := e.client.Models.GenerateContent(ctx, e.model, contents, &genai.GenerateContentConfig{
		Temperature:      &temperature,
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		return "", Usage{}, fmt.Errorf("extraction call failed: %w", err)
	}

	usage := Usage{Model: e.model}
	if result.UsageMetadata != nil {
		usage.InputTokens = int64(result.UsageMetadata.PromptTokenCount)
		usage.OutputTokens = int64(result.UsageMetadata.CandidatesTokenCount)
	}

	text := result.Text()
	if text == "" {
		return "", usage, fmt.Errorf("extraction returned empty response")
	}
	return text, usage, nil
}

func (e *GeminiExtractor) ExtractLab(ctx context.Context, doc []byte) (*model.ExtractedLab, Usage, error) {
	text, usage, err := e.generate(ctx, doc, labExtractionPrompt)
	if err != nil {
		return nil, usage, err
	}

	lab, err := parseExtractedLab(text)
	if err != nil {
		return nil, usage, err
	}
	return lab, usage, nil
}

func (e *GeminiExtractor) ExtractObservations(ctx context.Context, doc []byte, patient model.PatientContext) ([]model.ExtractedObservation, Usage, error) {
	prompt := fmt.Sprintf(observationExtractionPrompt, sexLabel(patient.Sex), patient.Age)

	text, usage, err := e.generate(ctx, doc, prompt)
	if err != nil {
		return nil, usage, err
	}

	observations, err := parseExtractedObservations(text)
	if err != nil {
		return nil, usage, err
	}
	return observations, usage, nil
}

func parseExtractedLab(text string) (*model.ExtractedLab, error) {
	var lab model.ExtractedLab
	if err := json.Unmarshal([]byte(text), &lab); err != nil {
		return nil, fmt.Errorf("failed to parse lab info from extraction response: %w", err)
	}
	if err := lab.Validate(); err != nil {
		return nil, fmt.Errorf("invalid extracted lab: %w", err)
	}
	return &lab, nil
}

func parseExtractedObservations(text string) ([]model.ExtractedObservation, error) {
	var observations []model.ExtractedObservation
	if err := json.Unmarshal([]byte(text), &observations); err != nil {
		return nil, fmt.Errorf("failed to parse test results from extraction response: %w", err)
	}
	for i := range observations {
		if err := observations[i].Validate(); err != nil {
			return nil, fmt.Errorf("invalid extracted observation: %w", err)
		}
	}
	return observations, nil
}

func sexLabel(sex model.Sex) string {
	switch sex {
	case model.SexMale:
		return "male"
	case model.SexFemale:
		return "female"
	default:
		return "of unspecified sex"
	}
}
