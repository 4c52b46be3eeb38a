package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// StageSpan is one segment of a season's timeline.
type StageSpan struct {
	Name string `json:"name"`
	Days int    `json:"days"`
}

// Season is a named window of active months with an ordered stage timeline.
type Season struct {
	Name     string       `json:"name"`
	Months   []time.Month `json:"months"`
	Timeline []StageSpan  `json:"timeline"`

	WaterRequirement string `json:"water_requirement,omitempty"`
	OptimalTemp      string `json:"optimal_temp,omitempty"`
}

// Length is the nominal season length: the sum of its stage durations.
func (s Season) Length() int {
	total := 0
	for _, st := range s.Timeline {
		total += st.Days
	}
	return total
}

// Active reports whether the season covers the given month.
func (s Season) Active(m time.Month) bool {
	return slices.Contains(s.Months, m)
}

// CropCalendar lists a crop's seasons in lookup order. When seasons overlap
// the first active one wins.
type CropCalendar struct {
	Crop    string   `json:"crop"`
	Seasons []Season `json:"seasons"`
}

// Calendar maps crop identifiers to their calendars.
type Calendar map[string]CropCalendar

// CanonicalCrop trims decorations such as "Paddy (Rice)" down to the leading
// crop word.
func CanonicalCrop(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// Lookup finds a crop calendar by exact name, then by case-insensitive
// canonical name.
func (c Calendar) Lookup(crop string) (CropCalendar, bool) {
	if cc, ok := c[crop]; ok {
		return cc, true
	}
	canon := CanonicalCrop(crop)
	for name, cc := range c {
		if strings.EqualFold(name, canon) {
			return cc, true
		}
	}
	return CropCalendar{}, false
}

// Crops returns the calendar's crop names in sorted order.
func (c Calendar) Crops() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Validate checks the structural invariants of every crop calendar: at least
// one season, months within 1..12, and positive stage durations.
func (c Calendar) Validate() error {
	for _, name := range c.Crops() {
		cc := c[name]
		if len(cc.Seasons) == 0 {
			return fmt.Errorf("crop %s: no seasons", name)
		}
		for _, s := range cc.Seasons {
			if len(s.Months) == 0 {
				return fmt.Errorf("crop %s season %s: no active months", name, s.Name)
			}
			for _, m := range s.Months {
				if m < time.January || m > time.December {
					return fmt.Errorf("crop %s season %s: invalid month %d", name, s.Name, m)
				}
			}
			for _, st := range s.Timeline {
				if st.Days <= 0 {
					return fmt.Errorf("crop %s season %s: stage %s has non-positive duration %d", name, s.Name, st.Name, st.Days)
				}
			}
		}
	}
	return nil
}

func everyMonth() []time.Month {
	return []time.Month{
		time.January, time.February, time.March, time.April, time.May, time.June,
		time.July, time.August, time.September, time.October, time.November, time.December,
	}
}

// DefaultCalendar returns the built-in Karnataka crop calendar. Each call
// returns a fresh copy so callers may extend it.
func DefaultCalendar() Calendar {
	return Calendar{
		"Paddy": {Crop: "Paddy", Seasons: []Season{
			{
				Name:   "Kharif",
				Months: []time.Month{time.June, time.July, time.August, time.September, time.October},
				Timeline: []StageSpan{
					{"nursery", 45}, {"transplanting", 30}, {"tillering", 30}, {"flowering", 30}, {"maturity", 30},
				},
				WaterRequirement: "120-150 cm",
				OptimalTemp:      "25-30°C",
			},
			{
				Name:   "Rabi",
				Months: []time.Month{time.November, time.December, time.January, time.February, time.March},
				Timeline: []StageSpan{
					{"nursery", 40}, {"transplanting", 30}, {"tillering", 40}, {"flowering", 20}, {"maturity", 30},
				},
				WaterRequirement: "80-100 cm",
				OptimalTemp:      "20-25°C",
			},
		}},
		"Ragi": {Crop: "Ragi", Seasons: []Season{{
			Name:   "Kharif",
			Months: []time.Month{time.June, time.July, time.August, time.September},
			Timeline: []StageSpan{
				{"sowing", 15}, {"germination", 15}, {"tillering", 45}, {"flowering", 20}, {"maturity", 25},
			},
			WaterRequirement: "50-60 cm",
			OptimalTemp:      "20-30°C",
		}}},
		"Coffee": {Crop: "Coffee", Seasons: []Season{{
			Name:             "Perennial",
			Months:           everyMonth(),
			Timeline:         []StageSpan{{"flowering", 30}, {"fruit_development", 120}, {"harvest", 60}},
			WaterRequirement: "150-250 cm",
			OptimalTemp:      "15-24°C",
		}}},
		"Sugarcane": {Crop: "Sugarcane", Seasons: []Season{{
			Name: "Annual",
			Months: []time.Month{
				time.October, time.November, time.December, time.January, time.February, time.March,
				time.April, time.May, time.June, time.July, time.August, time.September,
			},
			Timeline:         []StageSpan{{"planting", 30}, {"germination", 60}, {"growth", 180}, {"maturity", 30}},
			WaterRequirement: "180-250 cm",
			OptimalTemp:      "20-35°C",
		}}},
		"Tomato": {Crop: "Tomato", Seasons: []Season{{
			Name:     "Kharif",
			Months:   []time.Month{time.June, time.July, time.August, time.September, time.October},
			Timeline: []StageSpan{{"nursery", 25}, {"vegetative", 45}, {"flowering", 35}, {"harvest", 30}},
		}}},
		"Potato": {Crop: "Potato", Seasons: []Season{{
			Name:     "Rabi",
			Months:   []time.Month{time.October, time.November, time.December, time.January, time.February},
			Timeline: []StageSpan{{"planting", 20}, {"vegetative", 30}, {"tuberization", 25}, {"maturation", 15}},
		}}},
		"Maize": {Crop: "Maize", Seasons: []Season{{
			Name:     "Kharif",
			Months:   []time.Month{time.June, time.July, time.August, time.September, time.October},
			Timeline: []StageSpan{{"seedling", 15}, {"vegetative", 35}, {"reproductive", 25}, {"maturity", 35}},
		}}},
		"Capsicum": {Crop: "Capsicum", Seasons: []Season{{
			Name:     "Kharif",
			Months:   []time.Month{time.June, time.July, time.August, time.September, time.October},
			Timeline: []StageSpan{{"seedling", 35}, {"vegetative", 40}, {"fruiting", 75}},
		}}},
		"Soybean": {Crop: "Soybean", Seasons: []Season{{
			Name:     "Kharif",
			Months:   []time.Month{time.June, time.July, time.August, time.September},
			Timeline: []StageSpan{{"vegetative", 35}, {"reproductive", 40}, {"maturity", 25}},
		}}},
		"Grape": {Crop: "Grape", Seasons: []Season{{
			Name:     "Perennial",
			Months:   everyMonth(),
			Timeline: []StageSpan{{"pruning", 20}, {"flowering", 30}, {"development", 60}, {"harvest", 30}},
		}}},
		"Orange": {Crop: "Orange", Seasons: []Season{{
			Name:     "Perennial",
			Months:   everyMonth(),
			Timeline: []StageSpan{{"flushing", 45}, {"fruit_set", 60}, {"development", 120}, {"harvest", 45}},
		}}},
		"Apple": {Crop: "Apple", Seasons: []Season{{
			Name:     "Perennial",
			Months:   everyMonth(),
			Timeline: []StageSpan{{"dormancy", 30}, {"bloom", 30}, {"fruit_dev", 90}, {"harvest", 30}},
		}}},
	}
}
