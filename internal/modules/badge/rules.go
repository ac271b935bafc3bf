package badge

// Class fixes the evaluation order when one event satisfies several rules:
// milestones fire before streaks, streaks before exploration, exploration
// before weekly. Ties within a class break by badge code ascending.
type Class int

const (
	ClassMilestone Class = iota
	ClassStreak
	ClassExploration
	ClassWeekly
)

// Rule pairs a catalog badge with its predicate over a stats snapshot.
type Rule struct {
	Badge     Badge
	Class     Class
	Predicate func(Snapshot) bool
}

// Catalog is the static rule set, grouped by class in evaluation order and
// code-ascending within each class.
var Catalog = []Rule{
	{
		Badge:     Badge{Code: "checkins_010", Name: "Regular", Icon: "🏋️", Rarity: RarityRare},
		Class:     ClassMilestone,
		Predicate: func(s Snapshot) bool { return s.TotalCheckins >= 10 },
	},
	{
		Badge:     Badge{Code: "checkins_050", Name: "Dedicated", Icon: "💪", Rarity: RarityEpic},
		Class:     ClassMilestone,
		Predicate: func(s Snapshot) bool { return s.TotalCheckins >= 50 },
	},
	{
		Badge:     Badge{Code: "checkins_100", Name: "Centurion", Icon: "🏆", Rarity: RarityLegendary},
		Class:     ClassMilestone,
		Predicate: func(s Snapshot) bool { return s.TotalCheckins >= 100 },
	},
	{
		Badge:     Badge{Code: "first_checkin", Name: "First Steps", Icon: "👟", Rarity: RarityCommon},
		Class:     ClassMilestone,
		Predicate: func(s Snapshot) bool { return s.TotalCheckins >= 1 },
	},
	{
		Badge:     Badge{Code: "streak_03", Name: "Warming Up", Icon: "🔥", Rarity: RarityCommon},
		Class:     ClassStreak,
		Predicate: func(s Snapshot) bool { return s.CurrentStreakDays >= 3 },
	},
	{
		Badge:     Badge{Code: "streak_07", Name: "On Fire", Icon: "🔥", Rarity: RarityRare},
		Class:     ClassStreak,
		Predicate: func(s Snapshot) bool { return s.CurrentStreakDays >= 7 },
	},
	{
		Badge:     Badge{Code: "streak_30", Name: "Unstoppable", Icon: "🌋", Rarity: RarityEpic},
		Class:     ClassStreak,
		Predicate: func(s Snapshot) bool { return s.CurrentStreakDays >= 30 },
	},
	{
		Badge:     Badge{Code: "explorer_03", Name: "Explorer", Icon: "🗺️", Rarity: RarityRare},
		Class:     ClassExploration,
		Predicate: func(s Snapshot) bool { return s.UniqueGymCount >= 3 },
	},
	{
		Badge:     Badge{Code: "explorer_10", Name: "Globetrotter", Icon: "🌍", Rarity: RarityEpic},
		Class:     ClassExploration,
		Predicate: func(s Snapshot) bool { return s.UniqueGymCount >= 10 },
	},
	{
		Badge:     Badge{Code: "weekly_05", Name: "Strong Week", Icon: "📅", Rarity: RarityRare},
		Class:     ClassWeekly,
		Predicate: func(s Snapshot) bool { return s.ThisWeekCount >= 5 },
	},
}

// Evaluate returns the awards newly earned by one ledger-append event.
// A rule fires only when its predicate flipped from false to true with this
// event and the badge is not in the already-awarded set (edge-triggered, so
// re-evaluation never re-awards). Output order is deterministic: class
// order, then badge code ascending.
func Evaluate(before, after Snapshot, ev Event, awarded map[string]bool) []Award {
	var out []Award
	for class := ClassMilestone; class <= ClassWeekly; class++ {
		for _, r := range sortedClass(class) {
			if awarded[r.Badge.Code] {
				continue
			}
			if r.Predicate(after) && !r.Predicate(before) {
				out = append(out, Award{
					UserID:    ev.UserID,
					BadgeCode: r.Badge.Code,
					EarnedAt:  ev.At,
				})
			}
		}
	}
	return out
}

// Missing returns awards for every rule whose predicate holds now but has no
// recorded award. Level-triggered on purpose: this is the backfill path that
// repairs awards lost to a persistence failure after the fact.
func Missing(current Snapshot, ev Event, awarded map[string]bool) []Award {
	var out []Award
	for class := ClassMilestone; class <= ClassWeekly; class++ {
		for _, r := range sortedClass(class) {
			if awarded[r.Badge.Code] || !r.Predicate(current) {
				continue
			}
			out = append(out, Award{
				UserID:    ev.UserID,
				BadgeCode: r.Badge.Code,
				EarnedAt:  ev.At,
			})
		}
	}
	return out
}

func sortedClass(class Class) []Rule {
	var rules []Rule
	for _, r := range Catalog {
		if r.Class == class {
			rules = append(rules, r)
		}
	}
	for i := 1; i < len(rules); i++ {
		key := rules[i]
		j := i - 1
		for j >= 0 && rules[j].Badge.Code > key.Badge.Code {
			rules[j+1] = rules[j]
			j--
		}
		rules[j+1] = key
	}
	return rules
}

// ByCode resolves a catalog badge, for handlers enriching award responses.
func ByCode(code string) (Badge, bool) {
	for _, r := range Catalog {
		if r.Badge.Code == code {
			return r.Badge, true
		}
	}
	return Badge{}, false
}
