package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// AdvisoryBundle is the structured recommendation for one crop under one
// weather observation. Off-season and no-timeline bundles carry only Status
// and Recommendation.
type AdvisoryBundle struct {
	Crop              string           `json:"crop"`
	Status            StageStatus      `json:"status"`
	Season            string           `json:"season,omitempty"`
	Stage             string           `json:"current_stage,omitempty"`
	Recommendation    string           `json:"recommendation,omitempty"`
	WeatherAssessment string           `json:"weather_assessment,omitempty"`
	ImmediateActions  []string         `json:"immediate_actions,omitempty"`
	WaterManagement   []string         `json:"water_management,omitempty"`
	NutritionTiming   []string         `json:"nutrition_timing,omitempty"`
	DiseasePrevention []string         `json:"disease_prevention,omitempty"`
	Diseases          []RiskAssessment `json:"diseases"`
}

// Advisor composes stage resolution, risk scoring and stage heuristics.
type Advisor struct {
	calendar Calendar
	risks    *RiskModel
}

// NewAdvisor creates an Advisor over the given calendar and risk model.
func NewAdvisor(calendar Calendar, risks *RiskModel) *Advisor {
	return &Advisor{calendar: calendar, risks: risks}
}

// Compose builds the advisory for today according to the package clock.
func (a *Advisor) Compose(crop string, w WeatherObservation) (AdvisoryBundle, error) {
	return a.ComposeAt(crop, w, Now())
}

// ComposeAt builds the advisory for the given date. Crops missing from the
// calendar return *UnknownCropError; crops with a calendar but no disease
// association get an empty diseases list.
func (a *Advisor) ComposeAt(crop string, w WeatherObservation, date time.Time) (AdvisoryBundle, error) {
	stage, err := a.calendar.Resolve(crop, date)
	if err != nil {
		return AdvisoryBundle{}, fmt.Errorf("resolve stage: %w", err)
	}

	bundle := AdvisoryBundle{Crop: stage.Crop, Status: stage.Status, Season: stage.Season, Diseases: []RiskAssessment{}}
	switch stage.Status {
	case StageOffSeason:
		bundle.Recommendation = "This is not the ideal season for cultivation. Plan for the next season."
		return bundle, nil
	case StageNoTimeline:
		bundle.Recommendation = "Check crop calendar for your region."
		return bundle, nil
	}

	bundle.Stage = stage.Stage
	bundle.WeatherAssessment = AssessWeatherSuitability(stage.Crop, w)
	bundle.ImmediateActions = immediateActions(stage.Stage, w)
	bundle.WaterManagement = waterManagement(stage.Stage, w)
	bundle.NutritionTiming = nutritionTiming(stage.Stage, w)
	bundle.DiseasePrevention = diseasePrevention(stage.Stage, w)

	risk, err := a.risks.Assess(stage.Crop, w, date.Month())
	switch {
	case errors.Is(err, ErrUnknownCrop):
	case err != nil:
		return AdvisoryBundle{}, fmt.Errorf("assess risk: %w", err)
	default:
		bundle.Diseases = risk.Diseases
	}
	return bundle, nil
}

type cropRequirement struct {
	temp        TempRange
	humidityMin float64
}

var cropRequirements = map[string]cropRequirement{
	"Paddy":     {TempRange{25, 35}, 70},
	"Ragi":      {TempRange{20, 30}, 60},
	"Coffee":    {TempRange{15, 24}, 70},
	"Sugarcane": {TempRange{20, 35}, 60},
}

// AssessWeatherSuitability compares the observation against the crop's
// growing requirements.
func AssessWeatherSuitability(crop string, w WeatherObservation) string {
	req, ok := cropRequirements[crop]
	if !ok {
		return "Unknown requirements"
	}

	var parts []string
	switch {
	case req.temp.Contains(w.Temperature):
		parts = append(parts, fmt.Sprintf("Temperature (%g°C) is OPTIMAL", w.Temperature))
	case w.Temperature < req.temp.Min:
		parts = append(parts, fmt.Sprintf("Temperature (%g°C) is below optimal (%g°C)", w.Temperature, req.temp.Min))
	default:
		parts = append(parts, fmt.Sprintf("Temperature (%g°C) is above optimal (%g°C)", w.Temperature, req.temp.Max))
	}

	if w.Humidity >= req.humidityMin {
		parts = append(parts, fmt.Sprintf("Humidity (%g%%) is suitable", w.Humidity))
	} else {
		parts = append(parts, fmt.Sprintf("Humidity (%g%%) is low - may need supplementary irrigation", w.Humidity))
	}
	return strings.Join(parts, " | ")
}

func immediateActions(stage string, w WeatherObservation) []string {
	var actions []string
	switch stage {
	case "nursery":
		if w.Humidity < 60 {
			actions = append(actions, "Increase irrigation frequency to maintain seedbed moisture")
		}
		actions = append(actions, "Check for damping off disease - ensure good drainage")
	case "transplanting":
		if w.Temperature < 20 {
			actions = append(actions, "Delay transplanting until temperature improves")
		} else {
			actions = append(actions, "Ideal conditions for transplanting - proceed")
		}
	case "tillering", "flowering":
		if w.Humidity > 85 {
			actions = append(actions, "Ensure adequate drainage - monitor for fungal diseases")
		}
		if w.Rainfall > 10 {
			actions = append(actions, "Post-rain: Inspect for storm damage and lodging risk")
		}
	case "maturity":
		if w.Rainfall > 5 {
			actions = append(actions, "Avoid harvesting in wet conditions - wait for field to dry")
		}
		actions = append(actions, "Begin monitoring for grain ripeness - harvest when ready")
	}
	if len(actions) == 0 {
		return []string{"Continue routine field management"}
	}
	return actions
}

var stageWaterNeeds = map[string]string{
	"nursery":     "High (70-80% soil moisture)",
	"sowing":      "High (field saturated)",
	"germination": "Moderate-High (keep moist)",
	"tillering":   "Moderate (standing water 5-10cm)",
	"flowering":   "High (critical stage - maintain water)",
	"maturity":    "Low (allow drying)",
}

func waterManagement(stage string, w WeatherObservation) []string {
	need, ok := stageWaterNeeds[stage]
	if !ok {
		need = "Moderate"
	}
	advice := []string{"Stage requirement: " + need}

	switch {
	case w.Humidity < 50:
		advice = append(advice, "Low humidity - increase irrigation frequency")
	case w.Humidity > 85:
		advice = append(advice, "High humidity - reduce irrigation to prevent disease")
	}
	switch {
	case w.Rainfall > 10:
		advice = append(advice, "Recent heavy rainfall - assess drainage and avoid waterlogging")
	case w.Rainfall < 2:
		advice = append(advice, "No recent rain - monitor soil moisture closely")
	}
	return advice
}

var stageNutrition = map[string]string{
	"nursery":     "Base fertilizer before sowing - avoid excess nitrogen",
	"germination": "Begin light nitrogen if growth is slow",
	"tillering":   "Main nitrogen application (40-50% of dose)",
	"flowering":   "Stop nitrogen - use potassium if needed",
	"maturity":    "No fertilizer application",
}

func nutritionTiming(stage string, w WeatherObservation) []string {
	schedule, ok := stageNutrition[stage]
	if !ok {
		schedule = "Standard application"
	}
	advice := []string{schedule}

	switch {
	case w.Temperature > 35:
		advice = append(advice, "High temperature - avoid foliar spray, apply in early morning/evening")
	case w.Temperature < 15:
		advice = append(advice, "Low temperature - nutrient uptake reduced, increase concentration slightly")
	}
	return advice
}

var stageDiseaseRisk = map[string]string{
	"nursery":     "Watch for damping off - ensure drainage",
	"germination": "Monitor for leaf spots and seedling disease",
	"tillering":   "Disease pressure increasing - scout regularly",
	"flowering":   "Peak disease risk - maintain protective cover crops/sprays",
	"maturity":    "Grain quality at risk - prevent late blight/rot",
}

func diseasePrevention(stage string, w WeatherObservation) []string {
	var measures []string
	if w.Humidity > 85 {
		measures = append(measures, "High humidity - increase air circulation, reduce canopy density")
	}
	if w.Rainfall > 5 {
		measures = append(measures, "After rain: Scout for fungal diseases within 2-3 days")
	}
	risk, ok := stageDiseaseRisk[stage]
	if !ok {
		risk = "Regular disease monitoring"
	}
	return append(measures, risk)
}
