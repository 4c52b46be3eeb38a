package domain

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// CropRisk is the risk summary for every disease monitored on a crop.
type CropRisk struct {
	Crop     string             `json:"crop"`
	Weather  WeatherObservation `json:"weather"`
	Diseases []RiskAssessment   `json:"diseases"`
}

// RiskModel holds disease profiles and crop-disease associations. Profiles
// are read concurrently; AddProfile and Monitor are the extension points for
// diseases learned at runtime.
type RiskModel struct {
	mu       sync.RWMutex
	profiles map[string]DiseaseProfile
	crops    map[string][]string
}

// NewRiskModel builds a model from profiles and an ordered crop -> disease
// association table.
func NewRiskModel(profiles []DiseaseProfile, associations map[string][]string) *RiskModel {
	m := &RiskModel{
		profiles: make(map[string]DiseaseProfile, len(profiles)),
		crops:    make(map[string][]string, len(associations)),
	}
	for _, p := range profiles {
		m.profiles[p.Name] = p
	}
	for crop, diseases := range associations {
		m.crops[crop] = slices.Clone(diseases)
	}
	return m
}

// Profile returns a disease profile by name.
func (m *RiskModel) Profile(disease string) (DiseaseProfile, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.profiles[disease]
	return p, ok
}

// AddProfile registers or replaces a disease profile.
func (m *RiskModel) AddProfile(p DiseaseProfile) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.profiles[p.Name] = p
}

// Monitor appends a disease to a crop's association list if absent.
func (m *RiskModel) Monitor(crop, disease string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !slices.Contains(m.crops[crop], disease) {
		m.crops[crop] = append(m.crops[crop], disease)
	}
}

// Crops returns the monitored crops in sorted order.
func (m *RiskModel) Crops() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	names := make([]string, 0, len(m.crops))
	for name := range m.crops {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Diseases returns the crop's monitored diseases in association order.
func (m *RiskModel) Diseases(crop string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if diseases, ok := m.crops[crop]; ok {
		return slices.Clone(diseases), nil
	}
	canon := CanonicalCrop(crop)
	for name, diseases := range m.crops {
		if strings.EqualFold(name, canon) {
			return slices.Clone(diseases), nil
		}
	}
	return nil, &UnknownCropError{Crop: crop}
}

// Assess scores every disease associated with crop, in association order.
// Associated diseases without a profile are skipped.
func (m *RiskModel) Assess(crop string, w WeatherObservation, month time.Month) (CropRisk, error) {
	diseases, err := m.Diseases(crop)
	if err != nil {
		return CropRisk{}, err
	}
	out := CropRisk{Crop: crop, Weather: w, Diseases: make([]RiskAssessment, 0, len(diseases))}
	for _, name := range diseases {
		p, ok := m.Profile(name)
		if !ok {
			continue
		}
		out.Diseases = append(out.Diseases, ScoreRisk(p, w, month))
	}
	return out, nil
}

func months(ms ...time.Month) []time.Month { return ms }

// DefaultDiseaseProfiles returns the built-in disease susceptibility table.
func DefaultDiseaseProfiles() []DiseaseProfile {
	return []DiseaseProfile{
		{Name: "Rice Blast", OptimalTemp: TempRange{25, 30}, HumidityThreshold: 85, RainfallSensitive: true, BaseTier: TierModerate, PeakMonths: months(6, 7, 8, 9)},
		{Name: "Bacterial Leaf Blight", OptimalTemp: TempRange{24, 32}, HumidityThreshold: 80, RainfallSensitive: true, BaseTier: TierModerate, PeakMonths: months(6, 7, 8, 9)},
		{Name: "Finger Millet Blast", OptimalTemp: TempRange{24, 28}, HumidityThreshold: 85, RainfallSensitive: true, BaseTier: TierModerate, PeakMonths: months(7, 8, 9)},
		{Name: "Coffee Leaf Rust", OptimalTemp: TempRange{20, 24}, HumidityThreshold: 90, RainfallSensitive: true, BaseTier: TierModerate, PeakMonths: months(6, 7, 8, 9, 10)},
		{Name: "Red Rot", OptimalTemp: TempRange{28, 32}, HumidityThreshold: 80, RainfallSensitive: true, BaseTier: TierHigh, PeakMonths: months(5, 6, 7, 8, 9)},
		{Name: "Late Blight", OptimalTemp: TempRange{10, 24}, HumidityThreshold: 90, RainfallSensitive: true, BaseTier: TierHigh, PeakMonths: months(10, 11, 12, 1), PeakSeasonName: "Winter"},
		{Name: "Leaf Blight", OptimalTemp: TempRange{18, 27}, HumidityThreshold: 90, RainfallSensitive: true, BaseTier: TierModerate, PeakMonths: months(6, 7, 8)},
		{Name: "Powdery Mildew", OptimalTemp: TempRange{20, 28}, HumidityThreshold: 80, RainfallSensitive: false, BaseTier: TierModerate, PeakMonths: months(11, 12, 1), PeakSeasonName: "Winter"},
		{Name: "Soybean Rust", OptimalTemp: TempRange{15, 28}, HumidityThreshold: 95, RainfallSensitive: true, BaseTier: TierHigh, PeakMonths: months(7, 8, 9)},
		{Name: "Downy Mildew", OptimalTemp: TempRange{20, 25}, HumidityThreshold: 90, RainfallSensitive: true, BaseTier: TierHigh, PeakMonths: months(10, 11), PeakSeasonName: "Post-monsoon"},
		{Name: "Citrus Canker", OptimalTemp: TempRange{20, 30}, HumidityThreshold: 80, RainfallSensitive: true, BaseTier: TierModerate, PeakMonths: months(6, 7, 8)},
		{Name: "Apple Scab", OptimalTemp: TempRange{16, 24}, HumidityThreshold: 85, RainfallSensitive: true, BaseTier: TierHigh, PeakMonths: months(4, 5, 6), PeakSeasonName: "Spring"},
	}
}

// DefaultCropDiseases returns the built-in crop -> monitored disease table.
func DefaultCropDiseases() map[string][]string {
	return map[string][]string{
		"Paddy":     {"Rice Blast", "Bacterial Leaf Blight"},
		"Ragi":      {"Finger Millet Blast"},
		"Coffee":    {"Coffee Leaf Rust"},
		"Sugarcane": {"Red Rot"},
		"Tomato":    {"Late Blight"},
		"Potato":    {"Late Blight"},
		"Maize":     {"Leaf Blight"},
		"Capsicum":  {"Powdery Mildew"},
		"Soybean":   {"Soybean Rust"},
		"Grape":     {"Downy Mildew"},
		"Orange":    {"Citrus Canker"},
		"Apple":     {"Apple Scab"},
	}
}

// DefaultRiskModel combines the built-in profiles and associations.
func DefaultRiskModel() *RiskModel {
	return NewRiskModel(DefaultDiseaseProfiles(), DefaultCropDiseases())
}
