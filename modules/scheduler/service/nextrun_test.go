package service

import (
	"testing"
	"time"

	"github.com/hweber/secondbrain/modules/scheduler/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func TestNextRunInterval(t *testing.T) {
	ref := time.Date(2026, 1, 12, 6, 0, 0, 0, time.UTC)
	schedule := &model.Schedule{Type: model.TypeInterval, IntervalMinutes: intPtr(15)}

	next, err := NextRun(schedule, ref)
	require.NoError(t, err)
	assert.Equal(t, ref.Add(15*time.Minute), next)
}

func TestNextRunDaily(t *testing.T) {
	schedule := &model.Schedule{Type: model.TypeDaily, TimeOfDay: strPtr("07:00")}

	t.Run("time not yet reached", func(t *testing.T) {
		ref := time.Date(2026, 1, 12, 6, 0, 0, 0, time.UTC)
		next, err := NextRun(schedule, ref)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 1, 12, 7, 0, 0, 0, time.UTC), next)
	})

	t.Run("time already passed", func(t *testing.T) {
		ref := time.Date(2026, 1, 12, 8, 0, 0, 0, time.UTC)
		next, err := NextRun(schedule, ref)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 1, 13, 7, 0, 0, 0, time.UTC), next)
	})

	t.Run("exactly at fire time rolls to tomorrow", func(t *testing.T) {
		ref := time.Date(2026, 1, 12, 7, 0, 0, 0, time.UTC)
		next, err := NextRun(schedule, ref)
		require.NoError(t, err)
		assert.True(t, next.After(ref))
		assert.Equal(t, time.Date(2026, 1, 13, 7, 0, 0, 0, time.UTC), next)
	})
}

func TestNextRunWeekly(t *testing.T) {
	// Monday = 0
	schedule := &model.Schedule{Type: model.TypeWeekly, DayOfWeek: intPtr(0), TimeOfDay: strPtr("08:00")}

	t.Run("from tuesday", func(t *testing.T) {
		ref := time.Date(2026, 1, 13, 10, 0, 0, 0, time.UTC) // Tue
		next, err := NextRun(schedule, ref)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 1, 19, 8, 0, 0, 0, time.UTC), next)
		assert.Equal(t, time.Monday, next.Weekday())
	})

	t.Run("same weekday before fire time", func(t *testing.T) {
		ref := time.Date(2026, 1, 12, 7, 0, 0, 0, time.UTC) // Mon 07:00
		next, err := NextRun(schedule, ref)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 1, 12, 8, 0, 0, 0, time.UTC), next)
	})

	t.Run("same weekday after fire time adds a week", func(t *testing.T) {
		ref := time.Date(2026, 1, 12, 9, 0, 0, 0, time.UTC) // Mon 09:00
		next, err := NextRun(schedule, ref)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 1, 19, 8, 0, 0, 0, time.UTC), next)
	})
}

func TestNextRunMonthly(t *testing.T) {
	t.Run("roll forward to next month", func(t *testing.T) {
		schedule := &model.Schedule{Type: model.TypeMonthly, DayOfMonth: intPtr(1), TimeOfDay: strPtr("09:00")}
		ref := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

		next, err := NextRun(schedule, ref)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC), next)
	})

	t.Run("day still ahead this month", func(t *testing.T) {
		schedule := &model.Schedule{Type: model.TypeMonthly, DayOfMonth: intPtr(20), TimeOfDay: strPtr("09:00")}
		ref := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

		next, err := NextRun(schedule, ref)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 1, 20, 9, 0, 0, 0, time.UTC), next)
	})

	t.Run("day 31 skips short months", func(t *testing.T) {
		schedule := &model.Schedule{Type: model.TypeMonthly, DayOfMonth: intPtr(31), TimeOfDay: strPtr("09:00")}
		ref := time.Date(2026, 1, 31, 10, 0, 0, 0, time.UTC)

		// February through April 2026 lack a 31st except March
		next, err := NextRun(schedule, ref)
		require.NoError(t, err)
		assert.Equal(t, time.Date(2026, 3, 31, 9, 0, 0, 0, time.UTC), next)
	})
}

func TestNextRunStrictlyFuture(t *testing.T) {
	refs := []time.Time{
		time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 6, 15, 23, 59, 0, 0, time.UTC),
		time.Date(2026, 12, 31, 12, 0, 0, 0, time.UTC),
	}
	schedules := []*model.Schedule{
		{Type: model.TypeDaily, TimeOfDay: strPtr("00:00")},
		{Type: model.TypeWeekly, DayOfWeek: intPtr(6), TimeOfDay: strPtr("12:00")},
		{Type: model.TypeMonthly, DayOfMonth: intPtr(15), TimeOfDay: strPtr("06:30")},
	}

	for _, ref := range refs {
		for _, schedule := range schedules {
			next, err := NextRun(schedule, ref)
			require.NoError(t, err)
			assert.True(t, next.After(ref), "%s schedule at %s produced %s", schedule.Type, ref, next)
		}
	}
}

func TestNextRunInvalid(t *testing.T) {
	ref := time.Date(2026, 1, 12, 6, 0, 0, 0, time.UTC)

	_, err := NextRun(&model.Schedule{Type: model.TypeInterval}, ref)
	assert.ErrorIs(t, err, model.ErrInvalidSchedule)

	_, err = NextRun(&model.Schedule{Type: model.TypeDaily}, ref)
	assert.ErrorIs(t, err, model.ErrInvalidSchedule)

	_, err = NextRun(&model.Schedule{Type: "hourly"}, ref)
	assert.ErrorIs(t, err, model.ErrInvalidSchedule)

	_, err = NextRun(&model.Schedule{Type: model.TypeDaily, TimeOfDay: strPtr("25:00")}, ref)
	assert.ErrorIs(t, err, model.ErrInvalidSchedule)
}
