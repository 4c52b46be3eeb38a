// Package domain models crop phenology and weather-driven disease risk for
// Karnataka field crops.
//
// # Calendar Model
//
// Each crop has one or more seasons. A season is a set of active months and an
// ordered stage timeline of (stage, duration-in-days) pairs:
//
//	Paddy Kharif (Jun-Oct): nursery 45 | transplanting 30 | tillering 30 | flowering 30 | maturity 30
//
// A crop whose seasons do not cover the current month is off-season. Perennial
// crops (Coffee, Grape, Orange, Apple) are active every month.
//
// # Stage Resolution
//
// [Calendar.Resolve] uses the day of month as a proxy for elapsed days in the
// season: the current stage is the first whose cumulative duration reaches the
// day. days_remaining counts from the start of the current stage:
//
//	days_remaining = season_length - cumulative_through_stage + stage_duration
//
// Days beyond the timeline resolve to the terminal stage with zero remaining.
// [Calendar.ResolveAt] takes the elapsed day explicitly, which the cultivation
// dashboard derives from the recorded start date.
//
// # Risk Scoring
//
// Four multipliers are combined by product, not average:
//
//	temperature: 1.3 inside optimal range | 1.1 within 5°C of a bound | 0.8
//	humidity:    1.4 above threshold | 1.2 within 10 points below | 0.9
//	rainfall:    1.3 if rain-sensitive and > 5 mm | 1.0
//	seasonal:    1.3 in a peak month | 0.9
//
// The combined factor escalates along the ladder of the disease's base tier:
//
//	High:     > 1.4 Critical | > 1.1 High | Moderate
//	Moderate: > 1.5 Severe | > 1.2 High | > 0.9 Moderate | Low
//	Low:      Low
//
// Only High-tier diseases reach Critical and only Moderate-tier diseases reach
// Severe. The 0-100 score is a fixed lookup per level.
//
// # Advisories
//
// [Advisor] joins a stage resolution with risk scores. Its water, action,
// nutrition and prevention lists are stage-driven heuristics over the raw
// weather and never read the risk scores.
package domain
