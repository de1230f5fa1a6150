package careprofile

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/plantpal/plantpal-go/internal/model"
)

func ptr(v float64) *float64 { return &v }

func TestEnsureCreatesNeutralProfile(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	subject := &model.Subject{ID: "p1"}

	profile := Ensure(subject, now)
	require.NotNil(t, profile)
	assert.Equal(t, now, profile.AdoptedDate)
	assert.Equal(t, StyleUnknown, profile.UserCareStyle)
	assert.Equal(t, model.HealthStable, profile.HealthStatus)
	assert.Equal(t, 50, profile.CareScore)

	// A second call must not reset anything.
	profile.UserCareStyle = "weekly_waterer"
	again := Ensure(subject, now.Add(time.Hour))
	assert.Same(t, profile, again)
	assert.Equal(t, "weekly_waterer", again.UserCareStyle)
}

func TestHealthStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		images []model.Image
		want   string
	}{
		{
			name: "growth above threshold is thriving",
			images: []model.Image{
				{ID: "a", Area: ptr(0.20)},
				{ID: "b", Area: ptr(0.26)},
			},
			want: model.HealthThriving,
		},
		{
			name: "shrinkage below threshold is stressed",
			images: []model.Image{
				{ID: "a", Area: ptr(0.30)},
				{ID: "b", Area: ptr(0.20)},
			},
			want: model.HealthStressed,
		},
		{
			name: "small change is stable",
			images: []model.Image{
				{ID: "a", Area: ptr(0.25)},
				{ID: "b", Area: ptr(0.26)},
			},
			want: model.HealthStable,
		},
		{
			name:   "single image is stable",
			images: []model.Image{{ID: "a", Area: ptr(0.25)}},
			want:   model.HealthStable,
		},
		{
			name: "missing area is stable",
			images: []model.Image{
				{ID: "a", Area: ptr(0.25)},
				{ID: "b"},
			},
			want: model.HealthStable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			subject := &model.Subject{ID: "p1", Images: tt.images}
			assert.Equal(t, tt.want, HealthStatus(subject))
		})
	}
}

func TestCareScore(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	history := func(n int, last time.Time) []model.CareEvent {
		events := make([]model.CareEvent, n)
		for i := range events {
			events[i] = model.CareEvent{
				Date:   last.AddDate(0, 0, -(n - 1 - i)),
				Action: model.ActionWatered,
			}
		}
		return events
	}

	tests := []struct {
		name    string
		history []model.CareEvent
		want    int
	}{
		{name: "no history is neutral", history: nil, want: 50},
		{name: "sparse recent history", history: history(2, now.AddDate(0, 0, -1)), want: 50},
		{name: "five recent actions", history: history(5, now.AddDate(0, 0, -1)), want: 70},
		{name: "ten recent actions", history: history(10, now.AddDate(0, 0, -1)), want: 80},
		{name: "stale history is penalised", history: history(5, now.AddDate(0, 0, -20)), want: 55},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			subject := &model.Subject{
				ID:      "p1",
				Profile: &model.Profile{AdoptedDate: now.AddDate(0, -1, 0), CareHistory: tt.history},
			}
			assert.Equal(t, tt.want, CareScore(subject, now))
		})
	}
}

func TestUpdateFromConversation(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	t.Run("records watering", func(t *testing.T) {
		t.Parallel()
		subject := &model.Subject{ID: "p1"}
		UpdateFromConversation(subject, "I just watered you this morning!", now)

		profile := subject.Profile
		require.NotNil(t, profile)
		require.NotNil(t, profile.LastWatered)
		assert.Equal(t, now, *profile.LastWatered)
		require.Len(t, profile.CareHistory, 1)
		assert.Equal(t, model.ActionWatered, profile.CareHistory[0].Action)
	})

	t.Run("records fertilizing and repotting from one message", func(t *testing.T) {
		t.Parallel()
		subject := &model.Subject{ID: "p1"}
		UpdateFromConversation(subject, "Gave you some plant food and fresh soil today", now)

		profile := subject.Profile
		require.NotNil(t, profile.LastFertilized)
		require.NotNil(t, profile.LastRepotted)
		assert.Nil(t, profile.LastWatered)
		assert.Len(t, profile.CareHistory, 2)
	})

	t.Run("detects care style and light preference", func(t *testing.T) {
		t.Parallel()
		subject := &model.Subject{ID: "p1"}
		UpdateFromConversation(subject, "you sit by a sunny window and I check on you once a week", now)

		assert.Equal(t, "weekly_waterer", subject.Profile.UserCareStyle)
		assert.Equal(t, "bright_indirect", subject.Profile.PreferredLight)
	})

	t.Run("unrelated chatter leaves profile untouched", func(t *testing.T) {
		t.Parallel()
		subject := &model.Subject{ID: "p1"}
		UpdateFromConversation(subject, "you look lovely today", now)

		profile := subject.Profile
		assert.Empty(t, profile.CareHistory)
		assert.Equal(t, StyleUnknown, profile.UserCareStyle)
		assert.Equal(t, LightUnknown, profile.PreferredLight)
	})
}

func TestInferWateringSchedule(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	t.Run("nil below two waterings", func(t *testing.T) {
		t.Parallel()
		subject := &model.Subject{
			ID: "p1",
			Profile: &model.Profile{
				AdoptedDate: now,
				CareHistory: []model.CareEvent{{Date: now, Action: model.ActionWatered}},
			},
		}
		assert.Nil(t, InferWateringSchedule(subject, now))
	})

	t.Run("averages intervals and projects the next date", func(t *testing.T) {
		t.Parallel()
		base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		subject := &model.Subject{
			ID: "p1",
			Profile: &model.Profile{
				AdoptedDate: base,
				CareHistory: []model.CareEvent{
					{Date: base, Action: model.ActionWatered},
					{Date: base.AddDate(0, 0, 6), Action: model.ActionWatered},
					{Date: base.AddDate(0, 0, 14), Action: model.ActionWatered},
				},
			},
		}

		schedule := InferWateringSchedule(subject, now)
		require.NotNil(t, schedule)
		assert.Equal(t, 7, schedule.AverageIntervalDays)
		assert.Equal(t, "weekly", schedule.Frequency)
		assert.Equal(t, base.AddDate(0, 0, 21), schedule.NextWateringDate)
	})

	t.Run("frequency buckets", func(t *testing.T) {
		t.Parallel()
		base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
		build := func(gapDays int) *model.Subject {
			return &model.Subject{
				ID: "p1",
				Profile: &model.Profile{
					AdoptedDate: base,
					CareHistory: []model.CareEvent{
						{Date: base, Action: model.ActionWatered},
						{Date: base.AddDate(0, 0, gapDays), Action: model.ActionWatered},
					},
				},
			}
		}

		assert.Equal(t, "every 3 days", InferWateringSchedule(build(2), now).Frequency)
		assert.Equal(t, "weekly", InferWateringSchedule(build(6), now).Frequency)
		assert.Equal(t, "bi-weekly", InferWateringSchedule(build(12), now).Frequency)
	})
}

func TestBuildSummary(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)
	lastWatered := now.AddDate(0, 0, -2)
	subject := &model.Subject{
		ID:       "p1",
		Nickname: "Fernando",
		Species:  "Monstera deliciosa",
		Images: []model.Image{
			{ID: "a", Area: ptr(0.20)},
			{ID: "b", Area: ptr(0.26)},
		},
		Profile: &model.Profile{
			AdoptedDate:    now.AddDate(0, 0, -30),
			UserCareStyle:  "weekly_waterer",
			PreferredLight: "bright_indirect",
			LastWatered:    &lastWatered,
			CareHistory: []model.CareEvent{
				{Date: now.AddDate(0, 0, -9), Action: model.ActionWatered},
				{Date: now.AddDate(0, 0, -2), Action: model.ActionWatered},
				{Date: now.AddDate(0, 0, -2), Action: model.ActionFertilized},
			},
		},
	}

	summary := BuildSummary(subject, now)
	lines := strings.Split(summary, "\n")

	assert.Equal(t, "Nickname: Fernando", lines[0])
	assert.Equal(t, "Species: Monstera deliciosa", lines[1])
	assert.Equal(t, "Adopted: 30 days ago", lines[2])
	assert.Equal(t, "Total photos: 2", lines[3])
	assert.Contains(t, summary, "Growth since last photo: +30%")
	assert.Contains(t, summary, "Health Status: thriving")
	assert.Contains(t, summary, "Watering history: 2 times recorded")
	assert.Contains(t, summary, "Fertilizing history: 1 times")
	assert.Contains(t, summary, "User Care Style: weekly waterer")
	assert.Contains(t, summary, "Last watered: 2 day(s) ago")
	assert.Contains(t, summary, "Preferred Light: bright indirect")
	assert.NotContains(t, summary, "Repotting history")

	t.Run("empty subject has placeholder lines", func(t *testing.T) {
		bare := &model.Subject{ID: "p2", Images: []model.Image{{ID: "a"}}}
		summary := BuildSummary(bare, now)
		assert.Contains(t, summary, "Nickname: Unknown")
		assert.Contains(t, summary, "Species: Unknown")
		assert.Contains(t, summary, "Photos: 1 (upload a 2nd photo to track growth)")
		assert.Contains(t, summary, "Care history: None recorded yet")
	})
}
