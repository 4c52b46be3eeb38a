// Command validate checks the integrity of the built-in advisory tables and,
// optionally, a directory of knowledge files: calendar structure, stage
// resolution over every in-season day, disease profile consistency, risk
// ladder ceilings per severity tier, and knowledge record completeness.
//
// Usage:
//
//	go run ./cmd/validate
//	go run ./cmd/validate -knowledge-dir data/knowledge
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/couchcryptid/crop-advisory-service/internal/adapter/knowledge"
	"github.com/couchcryptid/crop-advisory-service/internal/domain"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	knowledgeDir := flag.String("knowledge-dir", "", "directory of knowledge_core_<crop>.json files (optional)")
	year := flag.Int("year", 2024, "calendar year used when walking season dates")
	flag.Parse()

	os.Exit(run(*knowledgeDir, *year))
}

func run(knowledgeDir string, year int) int {
	calendar := domain.DefaultCalendar()
	risks := domain.DefaultRiskModel()

	fmt.Println("=== Advisory Table Integrity Validation ===")
	fmt.Println()

	phases := []*phase{
		validateCalendar(calendar),
		validateStageResolution(calendar, year),
		validateRiskModel(calendar, risks),
		validateRiskLadders(risks),
	}
	if knowledgeDir != "" {
		phases = append(phases, validateKnowledge(knowledgeDir, calendar))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Tables: %d crops, %d monitored crops\n", len(calendar.Crops()), len(risks.Crops()))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Calendar structure ──

func validateCalendar(calendar domain.Calendar) *phase {
	p := &phase{name: "Phase 1: Calendar Structure"}
	if err := calendar.Validate(); err != nil {
		p.errorf("%v", err)
	}
	for _, name := range calendar.Crops() {
		cc := calendar[name]
		if cc.Crop != name {
			p.errorf("crop %s: record names itself %q", name, cc.Crop)
		}
		seen := map[time.Month]string{}
		for _, s := range cc.Seasons {
			for _, m := range s.Months {
				if other, ok := seen[m]; ok {
					fmt.Printf("  Note: %s: %s is active in both %s and %s, %s wins\n", name, m, other, s.Name, other)
					continue
				}
				seen[m] = s.Name
			}
		}
	}
	return p
}

// ── Phase 2: Stage resolution ──
// Every day of every active month must land in a stage whose bracket holds
// the day, and the remaining days must reconstruct the season length.

func validateStageResolution(calendar domain.Calendar, year int) *phase {
	p := &phase{name: "Phase 2: Stage Resolution (every day)"}

	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	for _, name := range calendar.Crops() {
		for d := start; d.Year() == year; d = d.AddDate(0, 0, 1) {
			res, err := calendar.Resolve(name, d)
			if err != nil {
				p.errorf("%s %s: %v", name, d.Format(time.DateOnly), err)
				continue
			}
			if !res.InSeason() {
				continue
			}
			before := res.SeasonLength - res.DaysRemaining
			if res.DaysRemaining < 0 || before < 0 {
				p.errorf("%s %s: remaining %d outside season length %d", name, d.Format(time.DateOnly), res.DaysRemaining, res.SeasonLength)
			}
			if d.Day() <= res.SeasonLength && (d.Day() <= before || d.Day() > before+res.StageDays) {
				p.errorf("%s %s: day %d outside stage %s bracket (%d, %d]", name, d.Format(time.DateOnly), d.Day(), res.Stage, before, before+res.StageDays)
			}
		}
	}
	return p
}

// ── Phase 3: Risk model ──

func validateRiskModel(calendar domain.Calendar, risks *domain.RiskModel) *phase {
	p := &phase{name: "Phase 3: Disease Profiles & Associations"}

	for _, crop := range risks.Crops() {
		if _, ok := calendar.Lookup(crop); !ok {
			p.errorf("monitored crop %s has no calendar", crop)
		}
		diseases, err := risks.Diseases(crop)
		if err != nil {
			p.errorf("crop %s: %v", crop, err)
			continue
		}
		for _, name := range diseases {
			prof, ok := risks.Profile(name)
			if !ok {
				p.errorf("crop %s: disease %s has no profile", crop, name)
				continue
			}
			checkProfile(p, prof)
		}
	}
	for _, crop := range calendar.Crops() {
		if _, err := risks.Diseases(crop); err != nil {
			p.errorf("calendar crop %s monitors no diseases", crop)
		}
	}
	return p
}

func checkProfile(p *phase, prof domain.DiseaseProfile) {
	if prof.OptimalTemp.Min > prof.OptimalTemp.Max {
		p.errorf("%s: optimal temperature %g > %g", prof.Name, prof.OptimalTemp.Min, prof.OptimalTemp.Max)
	}
	if prof.HumidityThreshold < 0 || prof.HumidityThreshold > 100 {
		p.errorf("%s: humidity threshold %g outside 0-100", prof.Name, prof.HumidityThreshold)
	}
	switch prof.BaseTier {
	case domain.TierLow, domain.TierModerate, domain.TierHigh:
	default:
		p.errorf("%s: unknown base tier %q", prof.Name, prof.BaseTier)
	}
	for _, m := range prof.PeakMonths {
		if m < time.January || m > time.December {
			p.errorf("%s: invalid peak month %d", prof.Name, m)
		}
	}
}

// ── Phase 4: Risk ladders ──
// Under the most favourable weather each tier must reach exactly its ceiling.

var tierCeiling = map[domain.SeverityTier]domain.RiskLevel{
	domain.TierHigh:     domain.RiskCritical,
	domain.TierModerate: domain.RiskSevere,
	domain.TierLow:      domain.RiskLow,
}

func validateRiskLadders(risks *domain.RiskModel) *phase {
	p := &phase{name: "Phase 4: Risk Ladder Ceilings"}

	seen := map[string]bool{}
	for _, crop := range risks.Crops() {
		diseases, _ := risks.Diseases(crop)
		for _, name := range diseases {
			prof, ok := risks.Profile(name)
			if !ok || seen[name] {
				continue
			}
			seen[name] = true
			if prof.HumidityThreshold >= 100 {
				continue
			}

			month := time.July
			if len(prof.PeakMonths) > 0 {
				month = prof.PeakMonths[0]
			}
			w := domain.WeatherObservation{
				Temperature: (prof.OptimalTemp.Min + prof.OptimalTemp.Max) / 2,
				Humidity:    min(prof.HumidityThreshold+5, 100),
				Rainfall:    10,
			}
			got := domain.ScoreRisk(prof, w, month)
			if want := tierCeiling[prof.BaseTier]; got.Level != want {
				p.errorf("%s (%s tier): peak conditions give %s (factor %.2f), want %s", name, prof.BaseTier, got.Level, got.CombinedFactor, want)
			}
			if got.Score != got.Level.Score() {
				p.errorf("%s: score %d does not match level %s", name, got.Score, got.Level)
			}
		}
	}
	return p
}

// ── Phase 5: Knowledge files ──

func validateKnowledge(dir string, calendar domain.Calendar) *phase {
	p := &phase{name: "Phase 5: Knowledge Files"}

	store := knowledge.NewStore(dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctx := context.Background()
	found := 0
	for _, name := range calendar.Crops() {
		k, err := store.Get(ctx, name)
		if err != nil {
			p.errorf("%s: %v", name, err)
			continue
		}
		found++
		if err := k.Validate(); err != nil {
			p.errorf("%s: %v", name, err)
		}
		total := 0
		for _, ph := range k.LifecyclePhases {
			total += ph.DurationDays
		}
		if k.CropInfo.TotalDurationDays != 0 && total != k.CropInfo.TotalDurationDays {
			p.errorf("%s: phases sum to %d days, crop_info says %d", name, total, k.CropInfo.TotalDurationDays)
		}
	}
	fmt.Printf("  Note: %d knowledge files read from %s\n", found, dir)
	return p
}
