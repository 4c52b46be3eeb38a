package cultivation

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/couchcryptid/crop-advisory-service/internal/domain"
	"github.com/couchcryptid/crop-advisory-service/internal/observability"
	"github.com/google/uuid"
)

// Manager runs the cultivation state machine. Every mutation is a
// read-modify-write of the session's full record. Operations on one session
// are serialised in-process; the repository's revision check rejects writes
// from other processes that raced ahead.
type Manager struct {
	repo      Repository
	knowledge domain.KnowledgeSource
	calendar  domain.Calendar
	learner   domain.DiseaseLearner
	trends    domain.TrendSource
	events    domain.EventPublisher
	region    string
	logger    *slog.Logger
	metrics   *observability.Metrics

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures optional Manager collaborators.
type Option func(*Manager)

// WithLearner enables synthesizing protocols for unmatched detections.
func WithLearner(l domain.DiseaseLearner) Option {
	return func(m *Manager) { m.learner = l }
}

// WithTrends enables trending alerts on the dashboard.
func WithTrends(t domain.TrendSource) Option {
	return func(m *Manager) { m.trends = t }
}

// WithEvents publishes state changes.
func WithEvents(p domain.EventPublisher) Option {
	return func(m *Manager) { m.events = p }
}

// WithRegion sets the region used for trending alerts.
func WithRegion(region string) Option {
	return func(m *Manager) { m.region = region }
}

// NewManager creates a Manager. Phase counts come from knowledge; crop
// validity and calendar stages come from calendar.
func NewManager(repo Repository, knowledge domain.KnowledgeSource, calendar domain.Calendar, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Manager {
	m := &Manager{
		repo:      repo,
		knowledge: knowledge,
		calendar:  calendar,
		region:    "Karnataka",
		logger:    logger,
		metrics:   metrics,
		locks:     make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) lock(sessionID string) func() {
	m.mu.Lock()
	l, ok := m.locks[sessionID]
	if !ok {
		l = &sync.Mutex{}
		m.locks[sessionID] = l
	}
	m.mu.Unlock()

	l.Lock()
	return l.Unlock
}

func sessionOrDefault(sessionID string) string {
	if sessionID == "" {
		return DefaultSession
	}
	return sessionID
}

// State returns the session's current record.
func (m *Manager) State(ctx context.Context, sessionID string) (State, error) {
	s, err := m.repo.Get(ctx, sessionOrDefault(sessionID))
	if err != nil {
		return State{}, fmt.Errorf("load state: %w", err)
	}
	return s, nil
}

// Start begins a cultivation cycle at phase 0, replacing any prior crop and
// phase. Detection history is kept. A zero startDate means today.
func (m *Manager) Start(ctx context.Context, sessionID, crop string, startDate time.Time) (State, error) {
	sessionID = sessionOrDefault(sessionID)

	cc, ok := m.calendar.Lookup(crop)
	if !ok {
		m.metrics.PhaseTransitions.WithLabelValues("start", "rejected").Inc()
		return State{}, &domain.UnknownCropError{Crop: crop}
	}
	if _, err := m.knowledge.Get(ctx, cc.Crop); err != nil {
		m.metrics.PhaseTransitions.WithLabelValues("start", "rejected").Inc()
		return State{}, fmt.Errorf("load knowledge: %w", err)
	}

	unlock := m.lock(sessionID)
	defer unlock()

	prev, err := m.repo.Get(ctx, sessionID)
	if err != nil {
		return State{}, fmt.Errorf("load state: %w", err)
	}

	now := domain.Now()
	if startDate.IsZero() {
		startDate = now
	}
	next := prev.Clone()
	next.Active = true
	next.CurrentCrop = cc.Crop
	next.CurrentPhaseIndex = 0
	next.StartDate = truncateDay(startDate)
	next.LastUpdated = now

	saved, err := m.repo.Put(ctx, next)
	if err != nil {
		m.metrics.PhaseTransitions.WithLabelValues("start", "error").Inc()
		return State{}, fmt.Errorf("save state: %w", err)
	}
	m.metrics.PhaseTransitions.WithLabelValues("start", "success").Inc()
	m.logger.Info("cultivation started", "session", sessionID, "crop", cc.Crop, "start_date", saved.StartDate.Format(time.DateOnly))

	m.publish(ctx, domain.EventCultivationStarted, sessionID, phaseEvent{
		SessionID:  sessionID,
		Crop:       saved.CurrentCrop,
		PhaseIndex: 0,
		StartDate:  saved.StartDate,
	})
	return saved, nil
}

// Advance moves the phase index. Next is rejected at the final phase and
// Previous clamps at zero; the asymmetry is intentional. Rejected requests
// leave the stored state untouched. It returns the updated state and the
// phase now current.
func (m *Manager) Advance(ctx context.Context, sessionID string, action Action) (State, domain.LifecyclePhase, error) {
	sessionID = sessionOrDefault(sessionID)
	label := action.Kind.String()

	unlock := m.lock(sessionID)
	defer unlock()

	s, err := m.repo.Get(ctx, sessionID)
	if err != nil {
		return State{}, domain.LifecyclePhase{}, fmt.Errorf("load state: %w", err)
	}
	if !s.Active {
		m.metrics.PhaseTransitions.WithLabelValues(label, "rejected").Inc()
		return State{}, domain.LifecyclePhase{}, &domain.NoActiveCultivationError{SessionID: sessionID}
	}

	k, err := m.knowledge.Get(ctx, s.CurrentCrop)
	if err != nil {
		return State{}, domain.LifecyclePhase{}, fmt.Errorf("load knowledge: %w", err)
	}

	phaseCount := k.PhaseCount()
	if phaseCount == 0 {
		return State{}, domain.LifecyclePhase{}, &domain.KnowledgeMissingError{Crop: s.CurrentCrop}
	}
	// The phase list may have shrunk since the index was stored.
	current := min(s.CurrentPhaseIndex, phaseCount-1)
	idx, err := nextIndex(current, phaseCount, action)
	if err == nil && (idx < 0 || idx >= phaseCount) {
		err = &domain.InvalidPhaseTransitionError{Action: label, Index: idx, PhaseCount: phaseCount, Reason: "index out of range"}
	}
	if err != nil {
		m.metrics.PhaseTransitions.WithLabelValues(label, "rejected").Inc()
		m.logger.Debug("phase transition rejected", "session", sessionID, "action", label, "error", err)
		return State{}, domain.LifecyclePhase{}, err
	}

	s.CurrentPhaseIndex = idx
	s.LastUpdated = domain.Now()
	saved, err := m.repo.Put(ctx, s)
	if err != nil {
		m.metrics.PhaseTransitions.WithLabelValues(label, "error").Inc()
		return State{}, domain.LifecyclePhase{}, fmt.Errorf("save state: %w", err)
	}

	phase := k.LifecyclePhases[idx]
	m.metrics.PhaseTransitions.WithLabelValues(label, "success").Inc()
	m.logger.Info("phase changed", "session", sessionID, "crop", saved.CurrentCrop, "action", label, "phase", phase.PhaseName, "index", idx)

	m.publish(ctx, domain.EventPhaseChanged, sessionID, phaseEvent{
		SessionID:  sessionID,
		Crop:       saved.CurrentCrop,
		PhaseIndex: idx,
		PhaseName:  phase.PhaseName,
		Action:     label,
		StartDate:  saved.StartDate,
	})
	return saved, phase, nil
}

func nextIndex(current, phaseCount int, action Action) (int, error) {
	switch action.Kind {
	case ActionNext:
		if current >= phaseCount-1 {
			return 0, domain.NewFinalPhaseError(current, phaseCount)
		}
		return current + 1, nil
	case ActionPrevious:
		return max(0, current-1), nil
	case ActionJump:
		if action.Index < 0 || action.Index >= phaseCount {
			return 0, &domain.InvalidPhaseTransitionError{
				Action:     "jump",
				Index:      action.Index,
				PhaseCount: phaseCount,
				Reason:     "index out of range",
			}
		}
		return action.Index, nil
	default:
		return 0, &domain.InvalidPhaseTransitionError{Action: action.Kind.String(), Index: current, PhaseCount: phaseCount, Reason: "unknown action"}
	}
}

// LogDetection prepends a detection to the session's history, tagged with the
// current phase index (0 when inactive). It needs no active cultivation.
// Confidence is clamped to 0-100.
func (m *Manager) LogDetection(ctx context.Context, sessionID, disease string, confidence float64, imageRef string) (State, DetectionEntry, error) {
	sessionID = sessionOrDefault(sessionID)

	unlock := m.lock(sessionID)
	defer unlock()

	s, err := m.repo.Get(ctx, sessionID)
	if err != nil {
		return State{}, DetectionEntry{}, fmt.Errorf("load state: %w", err)
	}

	phase := 0
	if s.Active {
		phase = s.CurrentPhaseIndex
	}
	now := domain.Now()
	entry := DetectionEntry{
		ID:          uuid.NewString(),
		Date:        now,
		PhaseIndex:  phase,
		DiseaseName: disease,
		Confidence:  clampConfidence(confidence),
		ImageRef:    imageRef,
		Status:      StatusDetected,
	}

	history := make([]DetectionEntry, 0, len(s.DiseaseHistory)+1)
	history = append(history, entry)
	s.DiseaseHistory = append(history, s.DiseaseHistory...)
	s.LastUpdated = now

	saved, err := m.repo.Put(ctx, s)
	if err != nil {
		return State{}, DetectionEntry{}, fmt.Errorf("save state: %w", err)
	}
	m.metrics.DetectionsLogged.Inc()
	m.logger.Info("detection logged", "session", sessionID, "disease", disease, "confidence", entry.Confidence, "phase_index", phase)

	m.publish(ctx, domain.EventDetectionLogged, sessionID, detectionEvent{
		SessionID: sessionID,
		Crop:      saved.CurrentCrop,
		Detection: entry,
	})
	return saved, entry, nil
}

// clampConfidence bounds a score to 0-100; NaN counts as 0.
func clampConfidence(c float64) float64 {
	if math.IsNaN(c) {
		return 0
	}
	return min(max(c, 0), 100)
}

func truncateDay(t time.Time) time.Time {
	y, mo, d := t.Date()
	return time.Date(y, mo, d, 0, 0, 0, 0, t.Location())
}
