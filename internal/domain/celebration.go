package domain

import "time"

// Payment is a member's contribution to a celebration. AmountCents is only meaningful when Paid.
type Payment struct {
	Paid        bool  `json:"paid"`
	AmountCents int64 `json:"amountCents,omitempty"`
}

// Celebration is a festive/tribute event ("festa") with per-member payments.
type Celebration struct {
	ID       CelebrationID        `json:"id"`
	Name     string               `json:"name"`
	Date     *time.Time           `json:"date,omitempty"`
	Payments map[MemberID]Payment `json:"payments"`
}

// CelebrationSummary aggregates a celebration's payments.
type CelebrationSummary struct {
	Payers         int
	CollectedCents int64
}

// Summary counts paying members and sums their amounts.
func (c Celebration) Summary() CelebrationSummary {
	var s CelebrationSummary
	for _, p := range c.Payments {
		if !p.Paid {
			continue
		}
		s.Payers++
		s.CollectedCents += p.AmountCents
	}
	return s
}

func CloneCelebration(c Celebration) Celebration {
	out := c
	out.Date = cloneTimePtr(c.Date)
	out.Payments = make(map[MemberID]Payment, len(c.Payments))
	for k, v := range c.Payments {
		out.Payments[k] = v
	}
	return out
}
