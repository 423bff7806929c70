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

	"esgadvisor/internal/config"
	"esgadvisor/internal/model"
)

// EvaluatorService implements the Oracle contract against the Gemini API.
// When no API key is configured it degrades to a deterministic offline
// evaluator so the service runs end-to-end without credentials. Transport
// failures are surfaced as ErrOracleTimeout/ErrOracleFailure and never
// silently replaced by offline results: the caller decides whether to
// resubmit the turn.
type EvaluatorService struct {
	config *config.AIConfig
	client *http.Client
}

// NewEvaluatorService creates a new evaluator service
func NewEvaluatorService(cfg *config.AIConfig) *EvaluatorService {
	return &EvaluatorService{
		config: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		},
	}
}

// Classify judges one answer against the current stimulus.
func (s *EvaluatorService) Classify(ctx context.Context, stimulus model.Stimulus, answer string, recent []model.TranscriptEntry) (*model.Verdict, error) {
	if !s.config.IsEnabled() {
		return s.offlineClassify(stimulus, answer), nil
	}

	prompt := s.buildClassifyPrompt(stimulus, answer, recent)
	response, err := s.callGemini(ctx, s.config.Models.Classify, prompt)
	if err != nil {
		return nil, err
	}

	var verdict model.Verdict
	if err := json.Unmarshal([]byte(response), &verdict); err != nil {
		return nil, fmt.Errorf("%w: decoding verdict: %v", model.ErrOracleFailure, err)
	}

	return &verdict, nil
}

// Summarize produces the final profile narrative from the transcript.
func (s *EvaluatorService) Summarize(ctx context.Context, transcript []model.TranscriptEntry) (string, error) {
	if !s.config.IsEnabled() {
		return s.offlineSummarize(transcript), nil
	}

	prompt := s.buildSummarizePrompt(transcript)
	return s.callGemini(ctx, s.config.Models.Summarize, prompt)
}

// callGemini makes a request to the Gemini API
func (s *EvaluatorService) callGemini(ctx context.Context, modelName, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]string{
					{"text": prompt},
				},
			},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrOracleFailure, err)
	}

	url := fmt.Sprintf("%s?key=%s", s.config.ModelEndpoint(modelName), s.config.APIKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrOracleFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || isTimeout(err) {
			return "", fmt.Errorf("%w: %v", model.ErrOracleTimeout, err)
		}
		return "", fmt.Errorf("%w: %v", model.ErrOracleFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrOracleFailure, err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: status %d", model.ErrOracleFailure, resp.StatusCode)
	}

	// Parse Gemini response structure
	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}

	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", fmt.Errorf("%w: %v", model.ErrOracleFailure, err)
	}

	if len(geminiResp.Candidates) > 0 && len(geminiResp.Candidates[0].Content.Parts) > 0 {
		return stripCodeFence(geminiResp.Candidates[0].Content.Parts[0].Text), nil
	}

	return "", fmt.Errorf("%w: empty response", model.ErrOracleFailure)
}

func isTimeout(err error) bool {
	var t interface{ Timeout() bool }
	return errors.As(err, &t) && t.Timeout()
}

// stripCodeFence unwraps ```json ... ``` blocks some models insist on.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	return strings.TrimSpace(trimmed)
}

// Prompt builders
func (s *EvaluatorService) buildClassifyPrompt(stimulus model.Stimulus, answer string, recent []model.TranscriptEntry) string {
	var seeds strings.Builder
	for _, q := range stimulus.SeedQuestions {
		seeds.WriteString(fmt.Sprintf("- [%s] %s\n", q.Dimension, q.Prompt))
	}

	return fmt.Sprintf(`Como analista ESG experto, estás manteniendo una conversación natural con un inversor.
Return ONLY valid JSON matching this schema:
{
  "dimension": "Environmental" or "Social" or "Governance" or "Risk" or "None",
  "sufficient": true or false,
  "followUp": "one short question in Spanish, required when sufficient is false"
}

Noticia actual: %s
Historial reciente:
%s
Respuesta del inversor: %s

Candidate follow-up prompts (pick or adapt one when the answer lacks substance):
%s
Rules:
1. "dimension" is the profile axis most salient in the investor's answer, or "None" when unclear.
2. "sufficient" is true only when the answer substantiates an opinion, not a bare reaction.
3. When "sufficient" is false, "followUp" must contain exactly one question, professional but cercano.`,
		stimulus.Text, formatTranscript(recent), answer, seeds.String())
}

func (s *EvaluatorService) buildSummarizePrompt(transcript []model.TranscriptEntry) string {
	return fmt.Sprintf(`Como analista ESG experto, resume el perfil de inversión del usuario a partir de esta entrevista completa.

Entrevista:
%s

Escribe un análisis breve en español y termina OBLIGATORIAMENTE con estas cuatro líneas, cada una con un entero entre 0 y 100:
Ambiental: <número>
Social: <número>
Gobernanza: <número>
Riesgo: <número>`,
		formatTranscript(transcript))
}

func formatTranscript(entries []model.TranscriptEntry) string {
	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(fmt.Sprintf("%s: %s\n", e.Speaker, e.Text))
	}
	return sb.String()
}

// Offline evaluator
//
// Deterministic stand-in used when GEMINI_API_KEY is unset: sufficiency by
// answer length, dimension by keyword lexicon. The lexicon carries the
// theme vocabulary the advisor was originally built around.

const offlineSufficientWords = 12

var dimensionLexicon = map[model.Dimension][]string{
	model.DimensionEnvironmental: {
		"ambiental", "emisiones", "carbono", "renovable", "residuos",
		"biodiversidad", "huella", "ecológic", "clima",
	},
	model.DimensionSocial: {
		"social", "empleado", "derechos", "diversidad", "inclusión",
		"comunidad", "seguridad", "humanos", "laboral",
	},
	model.DimensionGovernance: {
		"gobernanza", "ética", "transparencia", "consejo", "remuneración",
		"anticorrupción", "auditoría", "directiv",
	},
	model.DimensionRisk: {
		"riesgo", "volatilidad", "regulacion", "regulación", "disrupción",
		"continuidad", "crisis", "pérdida", "rentabilidad",
	},
}

func (s *EvaluatorService) offlineClassify(stimulus model.Stimulus, answer string) *model.Verdict {
	dimension := dominantDimension(answer)
	sufficient := len(strings.Fields(answer)) >= offlineSufficientWords

	verdict := &model.Verdict{
		Dimension:  dimension,
		Sufficient: sufficient,
	}
	if !sufficient {
		verdict.FollowUp = offlineFollowUp(stimulus, dimension)
	}
	return verdict
}

func (s *EvaluatorService) offlineSummarize(transcript []model.TranscriptEntry) string {
	hits := make(map[model.Dimension]int)
	for _, e := range transcript {
		if e.Speaker != model.SpeakerUser {
			continue
		}
		lower := strings.ToLower(e.Text)
		for d, words := range dimensionLexicon {
			for _, w := range words {
				if strings.Contains(lower, w) {
					hits[d]++
				}
			}
		}
	}

	var sb strings.Builder
	sb.WriteString("Perfil estimado sin conexión a partir del vocabulario de la entrevista.\n")
	for _, d := range model.Dimensions {
		sb.WriteString(fmt.Sprintf("%s: %d\n", d.SpanishLabel(), model.ClampScore(hits[d]*10)))
	}
	return sb.String()
}

// dominantDimension picks the dimension with the most lexicon hits, None
// on a tie at zero.
func dominantDimension(answer string) model.Dimension {
	lower := strings.ToLower(answer)
	best := model.DimensionNone
	bestHits := 0
	for _, d := range model.Dimensions {
		hits := 0
		for _, w := range dimensionLexicon[d] {
			if strings.Contains(lower, w) {
				hits++
			}
		}
		if hits > bestHits {
			best = d
			bestHits = hits
		}
	}
	return best
}

func offlineFollowUp(stimulus model.Stimulus, dimension model.Dimension) string {
	for _, q := range stimulus.SeedQuestions {
		if q.Dimension == dimension {
			return q.Prompt
		}
	}
	if len(stimulus.SeedQuestions) > 0 {
		return stimulus.SeedQuestions[0].Prompt
	}
	return "¿Podrías desarrollar tu respuesta con un poco más de detalle?"
}
