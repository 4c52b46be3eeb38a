package domain

import (
	"fmt"
	"math"
	"slices"
	"time"
)

// SeverityTier is a disease's intrinsic ceiling on risk escalation.
type SeverityTier string

const (
	TierLow      SeverityTier = "Low"
	TierModerate SeverityTier = "Moderate"
	TierHigh     SeverityTier = "High"
)

// RiskLevel is the discrete outcome of scoring.
type RiskLevel string

const (
	RiskLow      RiskLevel = "Low"
	RiskModerate RiskLevel = "Moderate"
	RiskHigh     RiskLevel = "High"
	RiskSevere   RiskLevel = "Severe"
	RiskCritical RiskLevel = "Critical"
)

var riskRank = map[RiskLevel]int{
	RiskLow:      0,
	RiskModerate: 1,
	RiskHigh:     2,
	RiskSevere:   3,
	RiskCritical: 4,
}

// Rank orders levels from Low (0) to Critical (4). Unknown levels rank -1.
func (l RiskLevel) Rank() int {
	r, ok := riskRank[l]
	if !ok {
		return -1
	}
	return r
}

// AtLeast reports whether l is as severe as other.
func (l RiskLevel) AtLeast(other RiskLevel) bool {
	return l.Rank() >= other.Rank()
}

// ParseRiskLevel accepts the canonical level names.
func ParseRiskLevel(s string) (RiskLevel, error) {
	l := RiskLevel(s)
	if l.Rank() < 0 {
		return "", fmt.Errorf("unknown risk level %q", s)
	}
	return l, nil
}

// Score is the descriptive 0-100 value for a level. It is a fixed lookup,
// not derived from the combined factor.
func (l RiskLevel) Score() int {
	switch l {
	case RiskCritical:
		return 95
	case RiskSevere:
		return 85
	case RiskHigh:
		return 70
	case RiskLow:
		return 30
	default:
		return 50
	}
}

// TempRange is an inclusive temperature band in °C.
type TempRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Contains reports whether t lies inside the band, bounds included.
func (r TempRange) Contains(t float64) bool {
	return r.Min <= t && t <= r.Max
}

// DiseaseProfile describes the weather a disease thrives in.
type DiseaseProfile struct {
	Name              string       `json:"name"`
	OptimalTemp       TempRange    `json:"optimal_temp"`
	HumidityThreshold float64      `json:"humidity_threshold"`
	RainfallSensitive bool         `json:"rainfall_sensitive"`
	BaseTier          SeverityTier `json:"base_risk"`
	PeakMonths        []time.Month `json:"peak_season"`
	PeakSeasonName    string       `json:"peak_season_name,omitempty"`
}

// RiskFactors holds the four independent multipliers.
type RiskFactors struct {
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	Rainfall    float64 `json:"rainfall"`
	Seasonal    float64 `json:"seasonal"`
}

// Combined is the plain product of the factors.
func (f RiskFactors) Combined() float64 {
	return f.Temperature * f.Humidity * f.Rainfall * f.Seasonal
}

// RiskAssessment is the scored risk of one disease under one observation.
type RiskAssessment struct {
	Disease             string       `json:"name"`
	BaseTier            SeverityTier `json:"base_risk"`
	Level               RiskLevel    `json:"risk_level"`
	Score               int          `json:"risk_score"`
	Factors             RiskFactors  `json:"factors"`
	CombinedFactor      float64      `json:"combined_factor"`
	ContributingFactors []string     `json:"contributing_factors"`
	Advisory            string       `json:"advisory"`
}

const (
	rainfallThresholdMM = 5.0
	nearTempBand        = 5.0
	nearHumidityBand    = 10.0
)

// ComputeFactors evaluates the four multipliers for a profile.
func ComputeFactors(p DiseaseProfile, w WeatherObservation, month time.Month) RiskFactors {
	f := RiskFactors{Rainfall: 1.0}

	switch {
	case p.OptimalTemp.Contains(w.Temperature):
		f.Temperature = 1.3
	case math.Abs(w.Temperature-p.OptimalTemp.Min) < nearTempBand || math.Abs(w.Temperature-p.OptimalTemp.Max) < nearTempBand:
		f.Temperature = 1.1
	default:
		f.Temperature = 0.8
	}

	switch {
	case w.Humidity > p.HumidityThreshold:
		f.Humidity = 1.4
	case w.Humidity > p.HumidityThreshold-nearHumidityBand:
		f.Humidity = 1.2
	default:
		f.Humidity = 0.9
	}

	if p.RainfallSensitive && w.Rainfall > rainfallThresholdMM {
		f.Rainfall = 1.3
	}

	if slices.Contains(p.PeakMonths, month) {
		f.Seasonal = 1.3
	} else {
		f.Seasonal = 0.9
	}
	return f
}

// LevelFor maps a combined factor onto the base tier's escalation ladder.
// Only High-tier diseases can reach Critical and only Moderate-tier diseases
// can reach Severe; Low-tier diseases never escalate.
func LevelFor(tier SeverityTier, combined float64) RiskLevel {
	switch tier {
	case TierHigh:
		switch {
		case combined > 1.4:
			return RiskCritical
		case combined > 1.1:
			return RiskHigh
		default:
			return RiskModerate
		}
	case TierModerate:
		switch {
		case combined > 1.5:
			return RiskSevere
		case combined > 1.2:
			return RiskHigh
		case combined > 0.9:
			return RiskModerate
		default:
			return RiskLow
		}
	default:
		return RiskLow
	}
}

// ScoreRisk scores a disease profile against a weather observation for the
// given month.
func ScoreRisk(p DiseaseProfile, w WeatherObservation, month time.Month) RiskAssessment {
	factors := ComputeFactors(p, w, month)
	combined := factors.Combined()
	level := LevelFor(p.BaseTier, combined)

	return RiskAssessment{
		Disease:             p.Name,
		BaseTier:            p.BaseTier,
		Level:               level,
		Score:               level.Score(),
		Factors:             factors,
		CombinedFactor:      round(combined, 4),
		ContributingFactors: contributingFactors(p, w, month),
		Advisory:            DiseaseAdvisory(p.Name, level, w),
	}
}

func contributingFactors(p DiseaseProfile, w WeatherObservation, month time.Month) []string {
	var factors []string
	if p.OptimalTemp.Contains(w.Temperature) {
		factors = append(factors, fmt.Sprintf("Optimal temperature (%g°C) for disease development", w.Temperature))
	}
	if w.Humidity > p.HumidityThreshold {
		factors = append(factors, fmt.Sprintf("High humidity (%g%%) favors pathogen spread", w.Humidity))
	}
	if p.RainfallSensitive && w.Rainfall > rainfallThresholdMM {
		factors = append(factors, fmt.Sprintf("Recent rainfall (%gmm) increases infection risk", w.Rainfall))
	}
	if slices.Contains(p.PeakMonths, month) {
		name := p.PeakSeasonName
		if name == "" {
			name = "Monsoon"
		}
		factors = append(factors, fmt.Sprintf("Currently in peak disease season (%s)", name))
	}
	if len(factors) == 0 {
		return []string{"General seasonal risk"}
	}
	return factors
}

var diseaseAdvisories = map[string]map[RiskLevel]string{
	"Rice Blast": {
		RiskSevere:   "Apply preventive fungicide within 48 hours. Avoid overhead irrigation.",
		RiskHigh:     "Monitor closely. Apply Tricyclazole 75% WP @ 0.6g/L if symptoms appear.",
		RiskModerate: "Monitor for initial symptoms. Maintain field sanitation.",
		RiskLow:      "Routine monitoring sufficient.",
	},
	"Bacterial Leaf Blight": {
		RiskCritical: "URGENT: Apply Streptocycline + Copper oxychloride immediately.",
		RiskSevere:   "Apply bactericide within 48 hours. Avoid spreading through irrigation.",
		RiskHigh:     "Increase monitoring frequency. Prune infected leaves if limited spread.",
		RiskModerate: "Monitor field daily. Remove infected plants immediately.",
		RiskLow:      "Routine monitoring only.",
	},
	"Finger Millet Blast": {
		RiskCritical: "URGENT: Apply Carbendazim 50% WP @ 1g/L immediately.",
		RiskSevere:   "Apply fungicide within 48 hours. Critical at flowering stage.",
		RiskHigh:     "Monitor closely around ear emergence.",
		RiskModerate: "Preventive spray recommended.",
		RiskLow:      "Routine monitoring.",
	},
	"Coffee Leaf Rust": {
		RiskCritical: "SEVERE THREAT: Apply Bordeaux mixture or Copper oxychloride immediately. Increase spray frequency.",
		RiskSevere:   "Apply fungicide every 10 days during monsoon.",
		RiskHigh:     "Apply preventive spray. Avoid wet foliage practices.",
		RiskModerate: "Monitor closely. Ensure good shade management.",
		RiskLow:      "Continue routine shade management and monitoring.",
	},
	"Red Rot": {
		RiskCritical: "URGENT: Use resistant varieties for new plantings. Destroy affected plants.",
		RiskSevere:   "Strict field sanitation. Remove and destroy symptomatic stools.",
		RiskHigh:     "Improve drainage to reduce waterlogging.",
		RiskModerate: "Monitor for stress. Maintain optimal water management.",
		RiskLow:      "Maintain normal cultural practices.",
	},
}

// DiseaseAdvisory returns the actionable advice for a disease at a level.
func DiseaseAdvisory(disease string, level RiskLevel, w WeatherObservation) string {
	if disease == "Rice Blast" && level == RiskCritical {
		return fmt.Sprintf("URGENT: Immediate fungicide application required. Current conditions (T:%g°C, H:%g%%) are ideal for rapid spread.", w.Temperature, w.Humidity)
	}
	if advice, ok := diseaseAdvisories[disease][level]; ok {
		return advice
	}
	return "Monitor field regularly"
}
