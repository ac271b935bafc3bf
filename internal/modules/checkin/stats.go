package checkin

import "time"

const dateLayout = "2006-01-02"

// DayKey buckets a timestamp into a calendar day in the given zone.
func DayKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(dateLayout)
}

// ComputeStats derives attendance stats from the full record set. Only
// counted records contribute. now anchors both the streak and the trailing
// 7-day window.
func ComputeStats(records []Record, now time.Time, loc *time.Location) Stats {
	var s Stats

	gyms := make(map[string]struct{})
	dates := make(map[string]struct{})
	weekCutoff := now.Add(-7 * 24 * time.Hour)

	for _, r := range records {
		if !r.Counted {
			continue
		}
		s.TotalCheckins++
		gyms[string(r.GymID)] = struct{}{}
		dates[r.LocalDate] = struct{}{}
		if r.CheckedInAt.After(weekCutoff) {
			s.ThisWeekCount++
		}
	}

	s.UniqueGymCount = len(gyms)

	distinct := make([]string, 0, len(dates))
	for d := range dates {
		distinct = append(distinct, d)
	}
	s.CurrentStreakDays = StreakDays(distinct, DayKey(now, loc))

	return s
}

// StreakDays computes the current streak from distinct check-in dates. The
// streak is alive only if the most recent date is today or yesterday; it
// extends backward while each preceding date is exactly one day earlier, and
// the first gap terminates it.
func StreakDays(distinctDates []string, today string) int {
	if len(distinctDates) == 0 {
		return 0
	}

	seen := make(map[string]struct{}, len(distinctDates))
	newest := ""
	for _, d := range distinctDates {
		seen[d] = struct{}{}
		if d > newest {
			newest = d
		}
	}

	todayT, err := time.Parse(dateLayout, today)
	if err != nil {
		return 0
	}
	yesterday := todayT.AddDate(0, 0, -1).Format(dateLayout)
	if newest != today && newest != yesterday {
		return 0
	}

	streak := 0
	cursor, _ := time.Parse(dateLayout, newest)
	for {
		if _, ok := seen[cursor.Format(dateLayout)]; !ok {
			break
		}
		streak++
		cursor = cursor.AddDate(0, 0, -1)
	}
	return streak
}
