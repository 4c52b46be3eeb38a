package domain

import "time"

// StageStatus classifies a stage resolution.
type StageStatus string

const (
	StageInSeason   StageStatus = "in_season"
	StageOffSeason  StageStatus = "off_season"
	StageNoTimeline StageStatus = "no_timeline"
)

// StageOperations is the field guidance attached to a growth stage.
type StageOperations struct {
	Operations          []string `json:"operations"`
	MonitoringFrequency string   `json:"monitoring_frequency,omitempty"`
	KeyConcerns         []string `json:"key_concerns"`
}

// StageResolution is the result of placing a date on a crop's calendar.
//
// DaysRemaining counts from the start of the current stage to the end of the
// season (season length minus the cumulative duration of earlier stages), so
// DaysRemaining + the earlier stages always reconstructs the season length.
// DaysLeftInStage is the remainder of the current stage alone.
type StageResolution struct {
	Crop            string          `json:"crop"`
	Status          StageStatus     `json:"status"`
	Season          string          `json:"season,omitempty"`
	Month           time.Month      `json:"current_month"`
	Stage           string          `json:"current_stage,omitempty"`
	StageIndex      int             `json:"stage_index"`
	StageDays       int             `json:"stage_days,omitempty"`
	DaysInStage     int             `json:"days_in_stage"`
	DaysLeftInStage int             `json:"days_left_in_stage"`
	DaysRemaining   int             `json:"days_remaining"`
	SeasonLength    int             `json:"season_length,omitempty"`
	Operations      StageOperations `json:"operations"`
	Advisory        string          `json:"advisory,omitempty"`
}

// InSeason reports whether a stage was resolved.
func (r StageResolution) InSeason() bool {
	return r.Status == StageInSeason
}

// Resolve places date on the crop's calendar. The day of month stands in for
// the number of days elapsed in the season; the calendar does not know real
// planting dates. See ResolveAt to supply an elapsed-day count directly.
//
// Unknown crops return *UnknownCropError. Every other input resolves to a
// stage, an off-season result, or a no-timeline result.
func (c Calendar) Resolve(crop string, date time.Time) (StageResolution, error) {
	return c.ResolveAt(crop, date, date.Day())
}

// ResolveAt is Resolve with an explicit day-of-season. The season is still
// selected by date's month.
func (c Calendar) ResolveAt(crop string, date time.Time, dayOfSeason int) (StageResolution, error) {
	cc, ok := c.Lookup(crop)
	if !ok {
		return StageResolution{}, &UnknownCropError{Crop: crop}
	}

	res := StageResolution{Crop: cc.Crop, Month: date.Month()}

	season, found := activeSeason(cc, date.Month())
	if !found {
		res.Status = StageOffSeason
		res.Advisory = "Not the ideal planting season for this region"
		return res, nil
	}
	res.Season = season.Name

	if len(season.Timeline) == 0 {
		res.Status = StageNoTimeline
		res.Advisory = "Check crop calendar for your region."
		return res, nil
	}

	res.Status = StageInSeason
	res.SeasonLength = season.Length()
	placeInTimeline(&res, season.Timeline, dayOfSeason)
	res.Operations = OperationsFor(res.Stage)
	return res, nil
}

func activeSeason(cc CropCalendar, m time.Month) (Season, bool) {
	for _, s := range cc.Seasons {
		if s.Active(m) {
			return s, true
		}
	}
	return Season{}, false
}

// placeInTimeline walks the timeline accumulating durations; the current
// stage is the first whose cumulative duration reaches day. Days past the end
// of the timeline land on the terminal stage with nothing remaining.
func placeInTimeline(res *StageResolution, timeline []StageSpan, day int) {
	if day < 1 {
		day = 1
	}
	total := res.SeasonLength
	cumulative := 0
	for i, st := range timeline {
		before := cumulative
		cumulative += st.Days
		if day <= cumulative {
			res.Stage = st.Name
			res.StageIndex = i
			res.StageDays = st.Days
			res.DaysInStage = day - before
			res.DaysLeftInStage = st.Days - res.DaysInStage
			res.DaysRemaining = max(0, total-cumulative+st.Days)
			return
		}
	}

	last := len(timeline) - 1
	res.Stage = timeline[last].Name
	res.StageIndex = last
	res.StageDays = timeline[last].Days
	res.DaysInStage = timeline[last].Days
	res.DaysLeftInStage = 0
	res.DaysRemaining = 0
}

var stageOperations = map[string]StageOperations{
	"nursery": {
		Operations:          []string{"Seed selection", "Bed preparation", "Sowing", "Irrigation"},
		MonitoringFrequency: "Daily monitoring",
		KeyConcerns:         []string{"Seed viability", "Damping off disease", "Bird predation"},
	},
	"sowing": {
		Operations:          []string{"Land preparation", "Sowing in lines", "Initial irrigation"},
		MonitoringFrequency: "Weekly monitoring",
		KeyConcerns:         []string{"Soil moisture", "Pest attacks", "Germination failure"},
	},
	"germination": {
		Operations:          []string{"Irrigation", "Weed management", "Pest monitoring"},
		MonitoringFrequency: "3-4 times per week",
		KeyConcerns:         []string{"Soil crust formation", "Cutworms", "Seedling mortality"},
	},
	"tillering": {
		Operations:          []string{"Irrigation", "Fertilizer application", "Weed removal"},
		MonitoringFrequency: "Weekly",
		KeyConcerns:         []string{"Nutrient deficiency", "Weed competition", "Disease initiation"},
	},
	"flowering": {
		Operations:          []string{"Irrigation at panicle initiation", "Disease spray", "Nutrient spray"},
		MonitoringFrequency: "Twice weekly",
		KeyConcerns:         []string{"Stem rot", "Blast disease", "Flower abortion"},
	},
	"maturity": {
		Operations:          []string{"Final irrigation", "Monitoring for readiness", "Harvesting preparation"},
		MonitoringFrequency: "Weekly",
		KeyConcerns:         []string{"Grain quality", "Weather damage", "Pest late infestation"},
	},
}

// OperationsFor returns the field guidance for a stage. Stages without an
// entry get empty lists rather than nil so they serialize as [].
func OperationsFor(stage string) StageOperations {
	ops, ok := stageOperations[stage]
	if !ok {
		return StageOperations{Operations: []string{}, KeyConcerns: []string{}}
	}
	return ops
}
