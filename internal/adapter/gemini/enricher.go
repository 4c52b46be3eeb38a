package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/couchcryptid/crop-advisory-service/internal/domain"
	"github.com/couchcryptid/crop-advisory-service/internal/observability"
)

const (
	kindLearn  = "learn"
	kindTrends = "trends"
)

// Enricher implements domain.DiseaseLearner and domain.TrendSource on top of
// a Generator.
type Enricher struct {
	gen     Generator
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewEnricher creates an Enricher.
func NewEnricher(gen Generator, logger *slog.Logger, metrics *observability.Metrics) *Enricher {
	return &Enricher{gen: gen, logger: logger, metrics: metrics}
}

// Learn asks the model for a treatment protocol for a disease missing from
// the crop's knowledge.
func (e *Enricher) Learn(ctx context.Context, disease, crop string) (domain.DiseaseProtocol, error) {
	var p domain.DiseaseProtocol
	if err := e.generate(ctx, kindLearn, learnPrompt(disease, crop), &p); err != nil {
		return domain.DiseaseProtocol{}, fmt.Errorf("learn %s: %w", disease, err)
	}
	if strings.TrimSpace(p.Name) == "" {
		p.Name = disease
	}
	if len(p.Symptoms) == 0 && len(p.PreventiveMeasures) == 0 &&
		len(p.ManagementProcedures.Organic) == 0 && len(p.ManagementProcedures.Chemical) == 0 {
		return domain.DiseaseProtocol{}, fmt.Errorf("learn %s: empty protocol", disease)
	}
	return p, nil
}

// Trending asks the model for recent or seasonal outbreaks of crop in region.
func (e *Enricher) Trending(ctx context.Context, region, crop string) ([]domain.TrendingAlert, error) {
	var out struct {
		TrendingAlerts []domain.TrendingAlert `json:"trending_alerts"`
	}
	if err := e.generate(ctx, kindTrends, trendPrompt(region, crop, domain.Now()), &out); err != nil {
		return nil, fmt.Errorf("trending alerts for %s: %w", crop, err)
	}
	if out.TrendingAlerts == nil {
		return []domain.TrendingAlert{}, nil
	}
	return out.TrendingAlerts, nil
}

func (e *Enricher) generate(ctx context.Context, kind, prompt string, v any) error {
	start := time.Now()
	text, err := e.gen.GenerateJSON(ctx, prompt)
	e.metrics.EnrichmentDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err == nil {
		err = decodeJSON(text, v)
	}
	if err != nil {
		e.metrics.EnrichmentRequests.WithLabelValues(kind, "error").Inc()
		e.logger.Warn("enrichment request failed", "kind", kind, "error", err)
		return err
	}
	e.metrics.EnrichmentRequests.WithLabelValues(kind, "success").Inc()
	return nil
}

// decodeJSON tolerates a markdown code fence around the document.
func decodeJSON(text string, v any) error {
	s := strings.TrimSpace(text)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	if err := json.Unmarshal([]byte(s), v); err != nil {
		return fmt.Errorf("decode model response: %w", err)
	}
	return nil
}

func learnPrompt(disease, crop string) string {
	return fmt.Sprintf(`You are an expert plant pathologist.
Task: Generate a structured technical protocol for the crop disease %q affecting %s.

Output MUST be valid JSON with this exact structure:
{
  "name": %q,
  "scientific": "Scientific Name",
  "risk": "High" or "Moderate" or "Low",
  "symptoms": ["symptom 1", "symptom 2"],
  "favorable_conditions": "brief description",
  "monitor_freq": "Weekly" or "Daily",
  "preventive_measures": ["measure 1", "measure 2"],
  "management_procedures": {
    "organic": ["organic cure 1", "organic cure 2"],
    "chemical": ["chemical cure 1", "chemical cure 2"]
  }
}`, disease, crop, disease)
}

func trendPrompt(region, crop string, now time.Time) string {
	return fmt.Sprintf(`You are an expert agricultural news analyst for %s.
Task: Identify recent (last 30 days) or seasonally trending disease outbreaks or pest issues for %s in %s.
The current month is %s; infer probable outbreaks for the season if no specific news is known.

Return a JSON object with key "trending_alerts" holding a list. Each item has:
- "title": short title
- "severity": "High", "Medium" or "Low"
- "description": one sentence summary
- "source": where the information comes from`, region, crop, region, now.Format("January 2006"))
}
