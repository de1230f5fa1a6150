// Package careprofile derives care knowledge for a subject from its growth
// history and conversation. All functions are pure over the model types and
// take the clock as an argument so behaviour is reproducible in tests.
package careprofile

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/plantpal/plantpal-go/internal/model"
)

const (
	// baseScore is the starting care score for a subject with no history.
	baseScore = 50

	// growthHealthyThreshold and growthStressedThreshold bound the stable
	// band for the relative growth delta between the last two photos.
	growthHealthyThreshold  = 0.1
	growthStressedThreshold = -0.1

	// staleCareDays is the gap after which the score is penalised for
	// neglect.
	staleCareDays = 14
)

// Care style and light preference values written into a profile. "unknown"
// means the conversation has not yet revealed the fact.
const (
	StyleUnknown = "unknown"
	LightUnknown = "unknown"
)

// careActionPattern maps a message pattern to the care action it records.
type careActionPattern struct {
	re     *regexp.Regexp
	action string
}

var careActionPatterns = []careActionPattern{
	{regexp.MustCompile(`water|watering|watered|sprayed|spray|mist|drink|thirsty|need.*water|give.*water|water.*me`), model.ActionWatered},
	{regexp.MustCompile(`fertil|fertiliz|food|nutrient|compost|boost|feed`), model.ActionFertilized},
	{regexp.MustCompile(`repot|repotted|pot|soil|transplant|new.*pot|bigger.*pot`), model.ActionRepotted},
}

// stylePattern maps a message pattern to an inferred habit. Later entries win
// when several match, so the most specific cadence comes last.
type stylePattern struct {
	re    *regexp.Regexp
	value string
}

var careStylePatterns = []stylePattern{
	{regexp.MustCompile(`daily|every day|often|frequent`), "frequent_waterer"},
	{regexp.MustCompile(`weekly|once a week|week`), "weekly_waterer"},
	{regexp.MustCompile(`bi-weekly|every other week|two weeks`), "biweekly_waterer"},
	{regexp.MustCompile(`monthly|once a month`), "monthly_waterer"},
}

var lightPatterns = []stylePattern{
	{regexp.MustCompile(`bright|sunny|direct light|window`), "bright_indirect"},
	{regexp.MustCompile(`low light|shade|dark`), "low_light"},
	{regexp.MustCompile(`medium light|partial shade`), "medium_light"},
}

// Ensure returns the subject's profile, creating a fresh one with neutral
// defaults when none exists yet.
func Ensure(subject *model.Subject, now time.Time) *model.Profile {
	if subject.Profile == nil {
		subject.Profile = &model.Profile{
			AdoptedDate:       now,
			UserCareStyle:     StyleUnknown,
			PreferredLight:    LightUnknown,
			WateringFrequency: "unknown",
			CareHistory:       []model.CareEvent{},
			HealthStatus:      model.HealthStable,
			CareScore:         baseScore,
		}
	}
	return subject.Profile
}

// HealthStatus classifies the subject by the relative area change between its
// two most recent analyzed photos. Fewer than two analyzed photos reads as
// stable.
func HealthStatus(subject *model.Subject) string {
	images := subject.Images
	if len(images) < 2 {
		return model.HealthStable
	}
	latest := images[len(images)-1]
	prev := images[len(images)-2]
	if latest.Area == nil || prev.Area == nil {
		return model.HealthStable
	}

	growth := (*latest.Area - *prev.Area) / math.Max(*prev.Area, 0.0001)
	switch {
	case growth > growthHealthyThreshold:
		return model.HealthThriving
	case growth < growthStressedThreshold:
		return model.HealthStressed
	default:
		return model.HealthStable
	}
}

// CareScore rates care consistency on a 0..100 scale. The score starts at 50,
// rewards a dense recent history and penalises more than two weeks of
// silence. An empty history stays at the neutral 50.
func CareScore(subject *model.Subject, now time.Time) int {
	profile := Ensure(subject, now)
	history := profile.CareHistory
	if len(history) == 0 {
		return baseScore
	}

	score := baseScore
	recent := history
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}

	if len(recent) >= 5 {
		score += 20
	}
	if len(recent) >= 10 {
		score += 10
	}

	last := recent[len(recent)-1].Date
	if now.Sub(last) > staleCareDays*24*time.Hour {
		score -= 15
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// UpdateFromConversation scans a user message for care facts and folds them
// into the profile. Detected care actions are stamped with now and appended
// to the history; habit and light statements overwrite the previous value.
func UpdateFromConversation(subject *model.Subject, text string, now time.Time) {
	profile := Ensure(subject, now)
	lower := strings.ToLower(text)

	for _, p := range careActionPatterns {
		if !p.re.MatchString(lower) {
			continue
		}
		stamp := now
		switch p.action {
		case model.ActionWatered:
			profile.LastWatered = &stamp
		case model.ActionFertilized:
			profile.LastFertilized = &stamp
		case model.ActionRepotted:
			profile.LastRepotted = &stamp
		}
		profile.CareHistory = append(profile.CareHistory, model.CareEvent{
			Date:   now,
			Action: p.action,
		})
	}

	for _, p := range careStylePatterns {
		if p.re.MatchString(lower) {
			profile.UserCareStyle = p.value
		}
	}
	for _, p := range lightPatterns {
		if p.re.MatchString(lower) {
			profile.PreferredLight = p.value
		}
	}
}

// Schedule is a watering cadence inferred from at least two recorded watering
// events.
type Schedule struct {
	AverageIntervalDays int       `json:"averageIntervalDays"`
	NextWateringDate    time.Time `json:"nextWateringDate"`
	Frequency           string    `json:"frequency"`
}

// InferWateringSchedule averages the gaps between recorded waterings and
// projects the next one. It returns nil until two waterings exist.
func InferWateringSchedule(subject *model.Subject, now time.Time) *Schedule {
	profile := Ensure(subject, now)

	var waterings []model.CareEvent
	for _, ev := range profile.CareHistory {
		if ev.Action == model.ActionWatered {
			waterings = append(waterings, ev)
		}
	}
	if len(waterings) < 2 {
		return nil
	}

	var total float64
	for i := 1; i < len(waterings); i++ {
		total += waterings[i].Date.Sub(waterings[i-1].Date).Hours() / 24
	}
	avg := total / float64(len(waterings)-1)
	rounded := int(math.Round(avg))

	frequency := "bi-weekly"
	switch {
	case rounded <= 3:
		frequency = "every 3 days"
	case rounded <= 7:
		frequency = "weekly"
	}

	next := waterings[len(waterings)-1].Date.AddDate(0, 0, int(math.Ceil(avg)))
	return &Schedule{
		AverageIntervalDays: rounded,
		NextWateringDate:    next,
		Frequency:           frequency,
	}
}

// BuildSummary renders the subject's profile as a fixed-order plain text
// digest for prompt context. Unknown facts are omitted rather than padded.
func BuildSummary(subject *model.Subject, now time.Time) string {
	profile := Ensure(subject, now)
	images := subject.Images

	adoptedDays := int(now.Sub(profile.AdoptedDate).Hours() / 24)

	var lines []string
	nickname := subject.Nickname
	if nickname == "" {
		nickname = "Unknown"
	}
	species := subject.Species
	if species == "" {
		species = "Unknown"
	}
	lines = append(lines,
		fmt.Sprintf("Nickname: %s", nickname),
		fmt.Sprintf("Species: %s", species),
		fmt.Sprintf("Adopted: %d days ago", adoptedDays),
		fmt.Sprintf("Total photos: %d", len(images)),
	)

	if len(images) >= 2 {
		latest := images[len(images)-1]
		prev := images[len(images)-2]
		if latest.Area != nil && prev.Area != nil && *prev.Area != 0 {
			growth := int(math.Round((*latest.Area - *prev.Area) / *prev.Area * 100))
			sign := ""
			if growth > 0 {
				sign = "+"
			}
			lines = append(lines, fmt.Sprintf("Growth since last photo: %s%d%%", sign, growth))
		}
	} else if len(images) == 1 {
		lines = append(lines, "Photos: 1 (upload a 2nd photo to track growth)")
	}

	lines = append(lines,
		fmt.Sprintf("Health Status: %s", HealthStatus(subject)),
		fmt.Sprintf("Care Score: %d/100", CareScore(subject, now)),
	)

	if len(profile.CareHistory) > 0 {
		counts := map[string]int{}
		for _, ev := range profile.CareHistory {
			counts[ev.Action]++
		}
		if n := counts[model.ActionWatered]; n > 0 {
			lines = append(lines, fmt.Sprintf("Watering history: %d times recorded", n))
		}
		if n := counts[model.ActionFertilized]; n > 0 {
			lines = append(lines, fmt.Sprintf("Fertilizing history: %d times", n))
		}
		if n := counts[model.ActionRepotted]; n > 0 {
			lines = append(lines, fmt.Sprintf("Repotting history: %d times", n))
		}
	} else {
		lines = append(lines, "Care history: None recorded yet (mention care actions in chat)")
	}

	if profile.UserCareStyle != StyleUnknown {
		lines = append(lines, fmt.Sprintf("User Care Style: %s", strings.ReplaceAll(profile.UserCareStyle, "_", " ")))
	}
	if profile.LastWatered != nil {
		daysSince := int(now.Sub(*profile.LastWatered).Hours() / 24)
		lines = append(lines, fmt.Sprintf("Last watered: %d day(s) ago", daysSince))
	}
	if profile.PreferredLight != LightUnknown {
		lines = append(lines, fmt.Sprintf("Preferred Light: %s", strings.ReplaceAll(profile.PreferredLight, "_", " ")))
	}

	return strings.Join(lines, "\n")
}
