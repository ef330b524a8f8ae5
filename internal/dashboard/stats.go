package dashboard

import "allinconnect/backoffice/internal/domain"

// UserCounts is the normalized monthly user count pair.
type UserCounts struct {
	Active int `json:"active"`
	Total  int `json:"total"`
}

// NormalizeUserCounts resolves the two count spellings the statistics
// service has emitted over time. The long form wins when both are present;
// a count absent in both forms is zero.
func NormalizeUserCounts(raw domain.MonthlyUserCounts) UserCounts {
	var out UserCounts
	switch {
	case raw.ActiveUsers != nil:
		out.Active = *raw.ActiveUsers
	case raw.Active != nil:
		out.Active = *raw.Active
	}
	switch {
	case raw.TotalUsers != nil:
		out.Total = *raw.TotalUsers
	case raw.Total != nil:
		out.Total = *raw.Total
	}
	return out
}

// MonthlyEntry is one normalized month in the overview history.
type MonthlyEntry struct {
	Year    int        `json:"year"`
	Month   int        `json:"month"`
	Revenue float64    `json:"revenue"`
	Users   UserCounts `json:"users"`
	Frozen  bool       `json:"frozen"`
}

func normalizeMonthly(m domain.MonthlyStatistic) MonthlyEntry {
	return MonthlyEntry{
		Year:    m.Year,
		Month:   m.Month,
		Revenue: m.Revenue,
		Users:   NormalizeUserCounts(m.Users),
		Frozen:  m.Frozen,
	}
}

// Overview is the merged statistics view. Parts missing upstream are simply
// omitted; the summary tier is the only one a caller can rely on.
type Overview struct {
	Summary  *domain.DashboardSummary   `json:"summary,omitempty"`
	Current  *MonthlyEntry              `json:"current,omitempty"`
	History  []MonthlyEntry             `json:"history,omitempty"`
	Detailed *domain.DetailedStatistics `json:"detailed,omitempty"`
}

// MergeOverview combines the three statistics tiers. Detailed sections
// augment the summary, never overwrite it; absent tiers leave their slots
// empty rather than erroring.
func MergeOverview(summary *domain.DashboardSummary, full *domain.DashboardStats, detailed *domain.DetailedStatistics) Overview {
	var out Overview
	if summary != nil {
		s := *summary
		out.Summary = &s
	}
	if full != nil {
		if full.Current != nil {
			current := normalizeMonthly(*full.Current)
			out.Current = &current
		}
		if len(full.History) > 0 {
			out.History = make([]MonthlyEntry, 0, len(full.History))
			for _, m := range full.History {
				out.History = append(out.History, normalizeMonthly(m))
			}
		}
	}
	if detailed != nil {
		d := *detailed
		out.Detailed = &d
	}
	return out
}
