package service

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

	"github.com/xyqotech/xyqo-home/config"
	"github.com/xyqotech/xyqo-home/model"
	"github.com/xyqotech/xyqo-home/pkg/logger"
)

// ErrMissingCredential signals that no completion API key is configured.
// This is a configuration fault: the orchestrator surfaces it as a
// service-unavailable condition instead of masking it with the fallback
// document, which would misrepresent an analysis as having occurred.
var ErrMissingCredential = errors.New("completion API credential not configured")

// maxPromptChars bounds how much contract text goes into the prompt to
// respect the model context window.
const maxPromptChars = 12000

// maxResponseSize limits the completion response body read.
const maxResponseSize = 10 * 1024 * 1024

const systemPrompt = `Tu es un assistant juridique expert en contrats français.
Ton objectif : produire un résumé contractuel complet, en JSON STRICT, prêt à être converti en PDF.
Contraintes :
- Réponds uniquement en JSON valide UTF-8, aucune phrase hors JSON.
- Respecte exactement la structure demandée.
- Dates en ISO 8601 (YYYY-MM-DD). Montants en nombre + devise ISO 4217.
- Si une donnée est absente, mets null ou [].
- Le champ executive_summary doit être 10–20 lignes en français clair, compréhensible pour un non-juriste.
- Masque IBAN, e-mail, téléphone dans les textes.
- Ne jamais inventer : si tu n'es pas sûr, retourne null.`

// Analyzer turns extracted contract text into a structured analysis by
// calling a chat-completions API with a versioned schema prompt.
type Analyzer struct {
	config     *config.OpenAIConfig
	httpClient *http.Client
}

func NewAnalyzer(cfg *config.OpenAIConfig) *Analyzer {
	return &Analyzer{
		config: cfg,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// Configured reports whether a credential is present. Exposed for the
// health endpoint, which must not itself call the API.
func (a *Analyzer) Configured() bool {
	return a.config.APIKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// Analyze produces an AnalysisResult for the given contract text. Beyond
// the credential check it never returns an error: upstream or parse
// failures are absorbed into the fixed fallback document, flagged via
// Degraded and logged.
func (a *Analyzer) Analyze(ctx context.Context, contractText string) (*model.AnalysisResult, error) {
	if !a.Configured() {
		return nil, ErrMissingCredential
	}

	content, err := a.complete(ctx, contractText)
	if err != nil {
		logger.Error(ctx, "completion call failed", "error", err)
		return degraded("completion call failed"), nil
	}

	raw := ExtractJSON(content)
	if raw == "" {
		logger.Error(ctx, "no JSON object in completion response", "response_length", len(content))
		return degraded("no JSON in model response"), nil
	}

	if err := model.ValidateAnalysis([]byte(raw)); err != nil {
		logger.Error(ctx, "completion response failed schema validation", "error", err)
		return degraded("model response failed schema validation"), nil
	}

	var doc model.AnalysisDocument
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		logger.Error(ctx, "failed to decode analysis document", "error", err)
		return degraded("model response could not be decoded"), nil
	}

	doc.ApplyDefaults()
	return &model.AnalysisResult{Document: &doc}, nil
}

func (a *Analyzer) complete(ctx context.Context, contractText string) (string, error) {
	truncated := contractText
	if len(truncated) > maxPromptChars {
		truncated = truncated[:maxPromptChars]
	}

	userPrompt := fmt.Sprintf(`Analyse ce contrat et fournis STRICTEMENT ce JSON :

%s

<contract_text>
%s
</contract_text>`, model.PromptSchema, truncated)

	reqBody := chatRequest{
		Model: a.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: a.config.Temperature,
		MaxTokens:   a.config.MaxTokens,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	url := strings.TrimSuffix(a.config.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+a.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("failed to parse response: %w, status: %d", err, resp.StatusCode)
	}

	if result.Error != nil {
		return "", fmt.Errorf("completion API error (%s): %s", result.Error.Type, result.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion API returned status %d", resp.StatusCode)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("completion API returned no choices")
	}

	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

func degraded(reason string) *model.AnalysisResult {
	return &model.AnalysisResult{
		Document: model.FallbackAnalysis(),
		Degraded: true,
		Reason:   reason,
	}
}
