package cultivation

import (
	"context"
	"errors"
	"fmt"

	"github.com/couchcryptid/crop-advisory-service/internal/domain"
)

const (
	inactiveMessage = "Start cultivation to see dashboard."
	harvestComplete = "Harvest Complete"
)

// CurrentPhase is the active lifecycle phase joined with the protocols of its
// common diseases.
type CurrentPhase struct {
	domain.LifecyclePhase
	Index          int                      `json:"index"`
	DiseaseDetails []domain.DiseaseProtocol `json:"disease_details"`
}

// PhasePreview summarises the phase after the current one.
type PhasePreview struct {
	PhaseName      string   `json:"phase_name"`
	PreventiveTips []string `json:"preventive_tips"`
}

// Insights carries generative enrichment; an unavailable source yields an
// empty list.
type Insights struct {
	TrendingAlerts []domain.TrendingAlert `json:"trending_alerts"`
}

// Dashboard is the composite cultivation view. Inactive dashboards carry only
// Active, CurrentCrop, Message and KnowledgePreview.
type Dashboard struct {
	Active           bool                    `json:"active"`
	CurrentCrop      string                  `json:"current_crop,omitempty"`
	Message          string                  `json:"message,omitempty"`
	KnowledgePreview []domain.LifecyclePhase `json:"knowledge_preview,omitempty"`
	UserState        *State                  `json:"user_state,omitempty"`
	CurrentPhase     *CurrentPhase           `json:"current_phase,omitempty"`
	NextPhasePreview *PhasePreview           `json:"next_phase_preview,omitempty"`
	CalendarStage    *domain.StageResolution `json:"calendar_stage,omitempty"`
	AIInsights       *Insights               `json:"ai_insights,omitempty"`
}

// Dashboard builds the session's dashboard. An inactive session, or an active
// one whose knowledge vanished, degrades to a start prompt rather than an
// error.
func (m *Manager) Dashboard(ctx context.Context, sessionID string) (Dashboard, error) {
	sessionID = sessionOrDefault(sessionID)

	s, err := m.repo.Get(ctx, sessionID)
	if err != nil {
		return Dashboard{}, fmt.Errorf("load state: %w", err)
	}

	var k domain.Knowledge
	haveKnowledge := false
	if s.CurrentCrop != "" {
		k, err = m.knowledge.Get(ctx, s.CurrentCrop)
		switch {
		case err == nil:
			haveKnowledge = true
		case errors.Is(err, domain.ErrKnowledgeMissing):
		default:
			return Dashboard{}, fmt.Errorf("load knowledge: %w", err)
		}
	}

	if !s.Active || !haveKnowledge {
		d := Dashboard{Active: false, CurrentCrop: s.CurrentCrop, Message: inactiveMessage, KnowledgePreview: []domain.LifecyclePhase{}}
		if haveKnowledge {
			d.KnowledgePreview = k.LifecyclePhases
		}
		return d, nil
	}

	phases := k.LifecyclePhases
	idx := s.CurrentPhaseIndex
	if idx >= len(phases) {
		m.logger.Warn("phase index beyond knowledge, showing final phase", "session", sessionID, "crop", s.CurrentCrop, "index", idx, "phases", len(phases))
		idx = len(phases) - 1
	}

	current := phases[idx]
	preview := &PhasePreview{PhaseName: harvestComplete, PreventiveTips: []string{}}
	if idx < len(phases)-1 {
		preview = &PhasePreview{PhaseName: phases[idx+1].PhaseName, PreventiveTips: phases[idx+1].PreventiveTips}
	}

	d := Dashboard{
		Active:      true,
		CurrentCrop: s.CurrentCrop,
		UserState:   &s,
		CurrentPhase: &CurrentPhase{
			LifecyclePhase: current,
			Index:          idx,
			DiseaseDetails: k.ProtocolsFor(current),
		},
		NextPhasePreview: preview,
		AIInsights:       &Insights{TrendingAlerts: m.trending(ctx, s.CurrentCrop)},
	}

	now := domain.Now()
	elapsed := int(truncateDay(now).Sub(s.StartDate).Hours()/24) + 1
	if stage, err := m.calendar.ResolveAt(s.CurrentCrop, now, elapsed); err == nil {
		d.CalendarStage = &stage
	} else {
		m.logger.Debug("calendar stage unavailable", "crop", s.CurrentCrop, "error", err)
	}
	return d, nil
}

func (m *Manager) trending(ctx context.Context, crop string) []domain.TrendingAlert {
	if m.trends == nil {
		return []domain.TrendingAlert{}
	}
	alerts, err := m.trends.Trending(ctx, m.region, crop)
	if err != nil {
		m.logger.Warn("trending alerts unavailable", "crop", crop, "error", err)
		return []domain.TrendingAlert{}
	}
	if alerts == nil {
		return []domain.TrendingAlert{}
	}
	return alerts
}
