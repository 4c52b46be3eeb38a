package cultivation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/couchcryptid/crop-advisory-service/internal/domain"
)

// UnknownDisease is the label a classifier reports when it recognises nothing;
// it is logged but never matched or learned.
const UnknownDisease = "Unknown"

// DetectionResult is a logged detection plus the treatment protocol found or
// learned for it.
type DetectionResult struct {
	State      State                   `json:"state"`
	Detection  DetectionEntry          `json:"detection"`
	ProtocolID string                  `json:"protocol_id,omitempty"`
	Protocol   *domain.DiseaseProtocol `json:"protocol,omitempty"`
	Learned    bool                    `json:"learned"`
}

// Detect logs a detection and looks up its protocol in the current crop's
// knowledge. Names without a match are sent to the learner, and a learned
// protocol is stored under a generated id. Lookup and learning failures only
// omit the protocol.
func (m *Manager) Detect(ctx context.Context, sessionID, disease string, confidence float64, imageRef string) (DetectionResult, error) {
	s, entry, err := m.LogDetection(ctx, sessionID, disease, confidence, imageRef)
	if err != nil {
		return DetectionResult{}, err
	}
	res := DetectionResult{State: s, Detection: entry}

	if s.CurrentCrop == "" {
		return res, nil
	}
	k, err := m.knowledge.Get(ctx, s.CurrentCrop)
	if err != nil {
		m.logger.Warn("protocol lookup skipped", "crop", s.CurrentCrop, "error", err)
		return res, nil
	}

	if id, p, ok := k.MatchProtocol(disease); ok {
		res.ProtocolID = id
		res.Protocol = &p
		return res, nil
	}

	if m.learner == nil || strings.EqualFold(strings.TrimSpace(disease), UnknownDisease) || strings.TrimSpace(disease) == "" {
		return res, nil
	}

	id, p, err := m.learn(ctx, s.CurrentCrop, disease)
	if err != nil {
		m.metrics.DiseasesLearned.WithLabelValues("error").Inc()
		m.logger.Warn("learn disease failed", "disease", disease, "crop", s.CurrentCrop, "error", err)
		return res, nil
	}
	m.metrics.DiseasesLearned.WithLabelValues("success").Inc()
	m.logger.Info("disease learned", "disease", disease, "crop", s.CurrentCrop, "id", id)

	res.ProtocolID = id
	res.Protocol = &p
	res.Learned = true
	return res, nil
}

func (m *Manager) learn(ctx context.Context, crop, disease string) (string, domain.DiseaseProtocol, error) {
	p, err := m.learner.Learn(ctx, disease, crop)
	if err != nil {
		return "", domain.DiseaseProtocol{}, fmt.Errorf("learn protocol: %w", err)
	}
	if p.Name == "" {
		p.Name = disease
	}
	now := domain.Now()
	for attempt := 1; attempt <= maxIDAttempts; attempt++ {
		id := learnedID(now, attempt)
		err := m.knowledge.AddProtocol(ctx, crop, id, p)
		if errors.Is(err, domain.ErrProtocolExists) {
			continue
		}
		if err != nil {
			return "", domain.DiseaseProtocol{}, fmt.Errorf("store protocol: %w", err)
		}
		return id, p, nil
	}
	return "", domain.DiseaseProtocol{}, fmt.Errorf("store protocol: no free id after %d attempts: %w", maxIDAttempts, domain.ErrProtocolExists)
}

const maxIDAttempts = 100

// learnedID is d_<unix seconds>, suffixed from the second attempt on.
func learnedID(t time.Time, attempt int) string {
	if attempt <= 1 {
		return fmt.Sprintf("d_%d", t.Unix())
	}
	return fmt.Sprintf("d_%d_%d", t.Unix(), attempt)
}
