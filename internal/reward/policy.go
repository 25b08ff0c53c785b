// Package reward implements the tiered payout policy for ad views.
// All functions are pure; the ledger applies the same policy
// authoritatively inside its transaction, so client-side values are
// previews that must agree by construction.
package reward

// DefaultMaxDaily is the daily view cap assumed when no server snapshot
// is available. Permissive on purpose; the ledger enforces the real cap.
const DefaultMaxDaily = 10

// Tier maps a contiguous range of daily view counts to a fixed payout.
type Tier struct {
	MinViewed int    `json:"min_viewed"`
	Points    int    `json:"points"`
	Label     string `json:"label"`
}

// Tiers is the payout schedule, ordered by ascending MinViewed. The top
// tier is open-ended: every view past the seventh pays 100 points.
var Tiers = []Tier{
	{MinViewed: 0, Points: 50, Label: "First Ads"},
	{MinViewed: 2, Points: 60, Label: "Bronze"},
	{MinViewed: 4, Points: 75, Label: "Silver"},
	{MinViewed: 7, Points: 100, Label: "Gold"},
}

// TierForCount returns the point value of the next ad for a user who has
// already completed viewedCount ads today. Counts below zero are treated
// as zero; the function is monotonically non-decreasing and saturates at
// the top tier.
func TierForCount(viewedCount int) int {
	points := Tiers[0].Points
	for _, t := range Tiers {
		if viewedCount >= t.MinViewed {
			points = t.Points
		}
	}
	return points
}

// Limit is a snapshot of a user's daily quota. The ledger is its sole
// writer; clients replace it wholesale on refetch.
type Limit struct {
	ViewedCount int  `json:"viewed_count"`
	MaxDaily    int  `json:"max_daily"`
	Remaining   int  `json:"remaining"`
	CanViewMore bool `json:"can_view_more"`
}

// NewLimit derives the full snapshot from a view count and cap.
func NewLimit(viewedCount, maxDaily int) Limit {
	remaining := maxDaily - viewedCount
	if remaining < 0 {
		remaining = 0
	}
	return Limit{
		ViewedCount: viewedCount,
		MaxDaily:    maxDaily,
		Remaining:   remaining,
		CanViewMore: remaining > 0,
	}
}

// CanViewMore reports whether the user may start another ad view.
func CanViewMore(l Limit) bool {
	return l.Remaining > 0
}

// TotalPotentialToday estimates the points still reachable today plus
// what was already earned. It assumes every remaining view pays at the
// current tier, which overshoots slightly once the user crosses a tier
// boundary mid-day; the ledger value wins on refresh.
func TotalPotentialToday(l Limit, historySumEarned int) int {
	return l.Remaining*TierForCount(l.ViewedCount) + historySumEarned
}
