package domain

import (
	"context"
	"fmt"
	"slices"
	"strings"
)

// Knowledge is the static cultivation record for one crop.
type Knowledge struct {
	CropInfo         CropInfo                   `json:"crop_info"`
	LifecyclePhases  []LifecyclePhase           `json:"lifecycle_phases"`
	DiseaseProtocols map[string]DiseaseProtocol `json:"disease_protocols"`
}

// CropInfo is the header of a knowledge record.
type CropInfo struct {
	Name              string `json:"name,omitempty"`
	TotalDurationDays int    `json:"total_duration_days"`
}

// LifecyclePhase is one step of the crop's managed lifecycle.
type LifecyclePhase struct {
	PhaseName      string   `json:"phase_name"`
	DurationDays   int      `json:"duration_days"`
	Procedures     []string `json:"procedures"`
	PreventiveTips []string `json:"preventive_tips"`
	CommonDiseases []string `json:"common_diseases"`
}

// ManagementProcedures splits treatments by approach.
type ManagementProcedures struct {
	Organic  []string `json:"organic"`
	Chemical []string `json:"chemical"`
}

// DiseaseProtocol is the identification and treatment record for a disease.
type DiseaseProtocol struct {
	Name                 string               `json:"name"`
	Scientific           string               `json:"scientific"`
	Risk                 string               `json:"risk"`
	Symptoms             []string             `json:"symptoms"`
	FavorableConditions  string               `json:"favorable_conditions"`
	MonitorFreq          string               `json:"monitor_freq"`
	PreventiveMeasures   []string             `json:"preventive_measures"`
	ManagementProcedures ManagementProcedures `json:"management_procedures"`
}

// TrendingAlert is a short outbreak notice produced by an enrichment source.
type TrendingAlert struct {
	Title       string `json:"title"`
	Severity    string `json:"severity"`
	Description string `json:"description"`
	Source      string `json:"source"`
}

// KnowledgeSource reads and extends per-crop knowledge records. Get returns
// *KnowledgeMissingError when no record, or one without phases, exists.
// AddProtocol returns ErrProtocolExists rather than replace an id.
type KnowledgeSource interface {
	Get(ctx context.Context, crop string) (Knowledge, error)
	AddProtocol(ctx context.Context, crop, id string, p DiseaseProtocol) error
}

// DiseaseLearner synthesizes a protocol for a disease absent from knowledge.
type DiseaseLearner interface {
	Learn(ctx context.Context, disease, crop string) (DiseaseProtocol, error)
}

// TrendSource reports recent or seasonal outbreaks for a crop in a region.
type TrendSource interface {
	Trending(ctx context.Context, region, crop string) ([]TrendingAlert, error)
}

// PhaseCount is the number of lifecycle phases.
func (k Knowledge) PhaseCount() int {
	return len(k.LifecyclePhases)
}

// ProtocolsFor returns the protocols of the phase's common diseases, in the
// phase's order. Disease ids without a protocol are skipped.
func (k Knowledge) ProtocolsFor(phase LifecyclePhase) []DiseaseProtocol {
	out := make([]DiseaseProtocol, 0, len(phase.CommonDiseases))
	for _, id := range phase.CommonDiseases {
		if p, ok := k.DiseaseProtocols[id]; ok {
			out = append(out, p)
		}
	}
	return out
}

// MatchProtocol finds a protocol whose name contains, or is contained in, the
// detected disease name, ignoring case. Ids are scanned in sorted order so the
// result is stable.
func (k Knowledge) MatchProtocol(detected string) (string, DiseaseProtocol, bool) {
	needle := strings.ToLower(strings.TrimSpace(detected))
	if needle == "" {
		return "", DiseaseProtocol{}, false
	}
	ids := make([]string, 0, len(k.DiseaseProtocols))
	for id := range k.DiseaseProtocols {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		p := k.DiseaseProtocols[id]
		name := strings.ToLower(p.Name)
		if name == "" {
			continue
		}
		if strings.Contains(needle, name) || strings.Contains(name, needle) {
			return id, p, true
		}
	}
	return "", DiseaseProtocol{}, false
}

// Validate checks that the record can drive the cultivation state machine.
func (k Knowledge) Validate() error {
	if len(k.LifecyclePhases) == 0 {
		return fmt.Errorf("no lifecycle phases")
	}
	for i, p := range k.LifecyclePhases {
		if strings.TrimSpace(p.PhaseName) == "" {
			return fmt.Errorf("phase %d: empty name", i)
		}
		if p.DurationDays < 0 {
			return fmt.Errorf("phase %s: negative duration %d", p.PhaseName, p.DurationDays)
		}
		for _, id := range p.CommonDiseases {
			if _, ok := k.DiseaseProtocols[id]; !ok {
				return fmt.Errorf("phase %s: disease %s has no protocol", p.PhaseName, id)
			}
		}
	}
	return nil
}

// DiseaseID derives a stable protocol id from a disease name.
func DiseaseID(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "_")
}

func phaseTitle(stage string) string {
	words := strings.Fields(strings.ReplaceAll(stage, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// DefaultKnowledge derives a knowledge record for crop from the built-in
// tables: phases follow the crop's first season timeline and every monitored
// disease gets a protocol built from its profile and advisories.
func DefaultKnowledge(calendar Calendar, risks *RiskModel, crop string) (Knowledge, error) {
	cc, ok := calendar.Lookup(crop)
	if !ok {
		return Knowledge{}, &UnknownCropError{Crop: crop}
	}
	if len(cc.Seasons) == 0 || len(cc.Seasons[0].Timeline) == 0 {
		return Knowledge{}, &KnowledgeMissingError{Crop: cc.Crop}
	}
	season := cc.Seasons[0]

	diseases, err := risks.Diseases(cc.Crop)
	if err != nil {
		diseases = nil
	}

	k := Knowledge{
		CropInfo:         CropInfo{Name: cc.Crop, TotalDurationDays: season.Length()},
		DiseaseProtocols: make(map[string]DiseaseProtocol, len(diseases)),
	}
	ids := make([]string, 0, len(diseases))
	for _, name := range diseases {
		p, ok := risks.Profile(name)
		if !ok {
			continue
		}
		id := DiseaseID(name)
		ids = append(ids, id)
		k.DiseaseProtocols[id] = defaultProtocol(p)
	}

	for _, st := range season.Timeline {
		ops := OperationsFor(st.Name)
		tips := slices.Clone(ops.KeyConcerns)
		if risk, ok := stageDiseaseRisk[st.Name]; ok {
			tips = append(tips, risk)
		}
		k.LifecyclePhases = append(k.LifecyclePhases, LifecyclePhase{
			PhaseName:      phaseTitle(st.Name),
			DurationDays:   st.Days,
			Procedures:     slices.Clone(ops.Operations),
			PreventiveTips: tips,
			CommonDiseases: slices.Clone(ids),
		})
	}
	return k, nil
}

func defaultProtocol(p DiseaseProfile) DiseaseProtocol {
	conditions := fmt.Sprintf("Temperature %g-%g°C with humidity above %g%%", p.OptimalTemp.Min, p.OptimalTemp.Max, p.HumidityThreshold)
	if p.RainfallSensitive {
		conditions += ", favoured by rainfall"
	}
	freq := "Weekly"
	if p.BaseTier == TierHigh {
		freq = "Daily"
	}

	var preventive, chemical []string
	for _, l := range []RiskLevel{RiskModerate, RiskLow} {
		if advice, ok := diseaseAdvisories[p.Name][l]; ok {
			preventive = append(preventive, advice)
		}
	}
	for _, l := range []RiskLevel{RiskCritical, RiskSevere, RiskHigh} {
		if advice, ok := diseaseAdvisories[p.Name][l]; ok {
			chemical = append(chemical, advice)
		}
	}
	if len(preventive) == 0 {
		preventive = []string{"Monitor field regularly"}
	}

	return DiseaseProtocol{
		Name:                p.Name,
		Risk:                string(p.BaseTier),
		Symptoms:            []string{},
		FavorableConditions: conditions,
		MonitorFreq:         freq,
		PreventiveMeasures:  preventive,
		ManagementProcedures: ManagementProcedures{
			Organic:  []string{"Remove and destroy infected plant material"},
			Chemical: nonNil(chemical),
		},
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
