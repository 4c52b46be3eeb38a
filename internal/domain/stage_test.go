package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 9, 0, 0, 0, time.UTC)
}

func TestResolve_PaddyKharifNursery(t *testing.T) {
	res, err := DefaultCalendar().Resolve("Paddy", date(2024, time.June, 15))
	require.NoError(t, err)

	assert.Equal(t, StageInSeason, res.Status)
	assert.True(t, res.InSeason())
	assert.Equal(t, "Kharif", res.Season)
	assert.Equal(t, "nursery", res.Stage)
	assert.Equal(t, 0, res.StageIndex)
	assert.Equal(t, 15, res.DaysInStage)
	assert.Equal(t, 30, res.DaysLeftInStage)
	// 30 days left in nursery plus the 120 days of later stages.
	assert.Equal(t, 165, res.DaysRemaining)
	assert.Equal(t, 165, res.SeasonLength)
	assert.Contains(t, res.Operations.Operations, "Seed selection")
	assert.Equal(t, "Daily monitoring", res.Operations.MonitoringFrequency)
}

func TestResolve_SecondStage(t *testing.T) {
	res, err := DefaultCalendar().Resolve("Ragi", date(2024, time.August, 20))
	require.NoError(t, err)

	assert.Equal(t, "germination", res.Stage)
	assert.Equal(t, 1, res.StageIndex)
	assert.Equal(t, 5, res.DaysInStage)
	assert.Equal(t, 10, res.DaysLeftInStage)
	assert.Equal(t, 105, res.DaysRemaining)
}

func TestResolve_RabiSeasonSelectedByMonth(t *testing.T) {
	res, err := DefaultCalendar().Resolve("Paddy", date(2024, time.December, 3))
	require.NoError(t, err)

	assert.Equal(t, "Rabi", res.Season)
	assert.Equal(t, "nursery", res.Stage)
	assert.Equal(t, 160, res.SeasonLength)
}

func TestResolve_OffSeason(t *testing.T) {
	res, err := DefaultCalendar().Resolve("Ragi", date(2024, time.January, 10))
	require.NoError(t, err)

	assert.Equal(t, StageOffSeason, res.Status)
	assert.False(t, res.InSeason())
	assert.Empty(t, res.Stage)
	assert.Equal(t, "Not the ideal planting season for this region", res.Advisory)
}

func TestResolve_NoTimeline(t *testing.T) {
	cal := Calendar{"Millet": {Crop: "Millet", Seasons: []Season{{Name: "Kharif", Months: []time.Month{time.July}}}}}

	res, err := cal.Resolve("Millet", date(2024, time.July, 1))
	require.NoError(t, err)

	assert.Equal(t, StageNoTimeline, res.Status)
	assert.Equal(t, "Kharif", res.Season)
	assert.Equal(t, "Check crop calendar for your region.", res.Advisory)
}

func TestResolve_UnknownCrop(t *testing.T) {
	_, err := DefaultCalendar().Resolve("Wheat", date(2024, time.July, 1))

	var unknown *UnknownCropError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "Wheat", unknown.Crop)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolve_BeyondTimeline(t *testing.T) {
	cal := Calendar{"Short": {Crop: "Short", Seasons: []Season{{
		Name:     "Annual",
		Months:   everyMonth(),
		Timeline: []StageSpan{{"early", 10}, {"late", 10}},
	}}}}

	res, err := cal.Resolve("Short", date(2024, time.March, 25))
	require.NoError(t, err)

	assert.Equal(t, "late", res.Stage)
	assert.Equal(t, 1, res.StageIndex)
	assert.Equal(t, 10, res.DaysInStage)
	assert.Equal(t, 0, res.DaysLeftInStage)
	assert.Equal(t, 0, res.DaysRemaining)
}

func TestResolveAt_ExplicitDay(t *testing.T) {
	cal := DefaultCalendar()

	res, err := cal.ResolveAt("Paddy", date(2024, time.July, 1), 60)
	require.NoError(t, err)
	assert.Equal(t, "transplanting", res.Stage)
	assert.Equal(t, 15, res.DaysInStage)
	assert.Equal(t, 120, res.DaysRemaining)

	res, err = cal.ResolveAt("Paddy", date(2024, time.July, 1), 400)
	require.NoError(t, err)
	assert.Equal(t, "maturity", res.Stage)
	assert.Equal(t, 0, res.DaysRemaining)

	res, err = cal.ResolveAt("Paddy", date(2024, time.July, 1), 0)
	require.NoError(t, err)
	assert.Equal(t, "nursery", res.Stage)
	assert.Equal(t, 1, res.DaysInStage)
}

func TestResolve_UnmappedStageHasEmptyOperations(t *testing.T) {
	res, err := DefaultCalendar().Resolve("Coffee", date(2024, time.May, 5))
	require.NoError(t, err)

	assert.Equal(t, "flowering", res.Stage)

	res, err = DefaultCalendar().ResolveAt("Coffee", date(2024, time.May, 5), 100)
	require.NoError(t, err)
	assert.Equal(t, "fruit_development", res.Stage)
	assert.NotNil(t, res.Operations.Operations)
	assert.Empty(t, res.Operations.Operations)
}

// Every day of a leap year resolves without error for every crop, and in-season
// results bracket the day and reconstruct the season length.
func TestResolve_AllCropsAllDates(t *testing.T) {
	cal := DefaultCalendar()
	start := date(2024, time.January, 1)

	for _, crop := range cal.Crops() {
		cc := cal[crop]
		for d := start; d.Year() == 2024; d = d.AddDate(0, 0, 1) {
			res, err := cal.Resolve(crop, d)
			require.NoError(t, err, "%s %s", crop, d.Format(time.DateOnly))

			season, active := activeSeason(cc, d.Month())
			if !active {
				assert.Equal(t, StageOffSeason, res.Status, "%s %s", crop, d.Format(time.DateOnly))
				continue
			}
			require.Equal(t, StageInSeason, res.Status)
			require.Equal(t, season.Name, res.Season)

			before := 0
			for _, st := range season.Timeline[:res.StageIndex] {
				before += st.Days
			}
			through := before + res.StageDays

			assert.Less(t, before, d.Day())
			assert.LessOrEqual(t, d.Day(), through)
			assert.Equal(t, d.Day()-before, res.DaysInStage)
			assert.Equal(t, res.StageDays, res.DaysInStage+res.DaysLeftInStage)
			assert.Equal(t, season.Length(), before+res.DaysRemaining)
		}
	}
}
