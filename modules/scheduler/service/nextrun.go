package service

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/hweber/secondbrain/modules/scheduler/model"
)

// NextRun computes the next firing time strictly after the reference time.
// Monthly schedules whose day does not exist in a month roll forward to
// the next month that has it.
func NextRun(schedule *model.Schedule, reference time.Time) (time.Time, error) {
	switch schedule.Type {
	case model.TypeInterval:
		if schedule.IntervalMinutes == nil || *schedule.IntervalMinutes <= 0 {
			return time.Time{}, fmt.Errorf("%w: interval schedule without interval_minutes", model.ErrInvalidSchedule)
		}
		return reference.Add(time.Duration(*schedule.IntervalMinutes) * time.Minute), nil

	case model.TypeDaily:
		hour, minute, err := parseTimeOfDay(schedule.TimeOfDay)
		if err != nil {
			return time.Time{}, err
		}
		next := at(reference, hour, minute)
		if !next.After(reference) {
			next = next.AddDate(0, 0, 1)
		}
		return next, nil

	case model.TypeWeekly:
		hour, minute, err := parseTimeOfDay(schedule.TimeOfDay)
		if err != nil {
			return time.Time{}, err
		}
		target := 0
		if schedule.DayOfWeek != nil {
			target = *schedule.DayOfWeek
		}
		if target < 0 || target > 6 {
			return time.Time{}, fmt.Errorf("%w: day_of_week out of range", model.ErrInvalidSchedule)
		}

		// schedules count Monday as 0, Go counts Sunday as 0
		current := (int(reference.Weekday()) + 6) % 7
		ahead := target - current
		if ahead < 0 {
			ahead += 7
		}
		next := at(reference.AddDate(0, 0, ahead), hour, minute)
		if !next.After(reference) {
			next = next.AddDate(0, 0, 7)
		}
		return next, nil

	case model.TypeMonthly:
		hour, minute, err := parseTimeOfDay(schedule.TimeOfDay)
		if err != nil {
			return time.Time{}, err
		}
		day := 1
		if schedule.DayOfMonth != nil {
			day = *schedule.DayOfMonth
		}
		if day < 1 || day > 31 {
			return time.Time{}, fmt.Errorf("%w: day_of_month out of range", model.ErrInvalidSchedule)
		}

		year, month := reference.Year(), reference.Month()
		for i := 0; i < 13; i++ {
			if day <= daysInMonth(year, month) {
				next := time.Date(year, month, day, hour, minute, 0, 0, reference.Location())
				if next.After(reference) {
					return next, nil
				}
			}
			month++
			if month > time.December {
				month = time.January
				year++
			}
		}
		return time.Time{}, fmt.Errorf("%w: no representable day_of_month", model.ErrInvalidSchedule)

	default:
		return time.Time{}, fmt.Errorf("%w: unknown type %s", model.ErrInvalidSchedule, schedule.Type)
	}
}

func parseTimeOfDay(value *string) (int, int, error) {
	if value == nil || *value == "" {
		return 0, 0, fmt.Errorf("%w: time_of_day missing", model.ErrInvalidSchedule)
	}

	parts := strings.Split(*value, ":")
	if len(parts) < 2 {
		return 0, 0, fmt.Errorf("%w: time_of_day %q", model.ErrInvalidSchedule, *value)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("%w: time_of_day %q", model.ErrInvalidSchedule, *value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: time_of_day %q", model.ErrInvalidSchedule, *value)
	}
	return hour, minute, nil
}

func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, -1).Day()
}
