package analysis

import (
	"sort"
	"strings"

	"skillgap/internal/matcher"
	"skillgap/internal/types"
)

// CoachGapLimit is the number of ranked gaps handed to the coach
const CoachGapLimit = 10

// MergeGaps pairs every job requirement with the candidate's level from the CV profile.
// Skills absent from the CV profile count as level 0.
func MergeGaps(profile types.RefinedProfile, demand matcher.DemandSource) []types.GapItem {
	levels := make(map[string]int, len(profile.CVProfile))
	for _, s := range profile.CVProfile {
		key := strings.ToLower(strings.TrimSpace(s.Skill))
		if _, seen := levels[key]; !seen {
			levels[key] = s.ProficiencyYou
		}
	}

	gaps := make([]types.GapItem, 0, len(profile.JobProfile))
	for _, req := range profile.JobProfile {
		you := levels[strings.ToLower(strings.TrimSpace(req.Skill))]
		gaps = append(gaps, types.GapItem{
			Skill:          req.Skill,
			ProficiencyReq: req.ProficiencyReq,
			ProficiencyYou: you,
			Gap:            req.ProficiencyReq - you,
			IsMustHave:     req.IsMustHave,
			MarketDemand:   demand.MarketDemand(req.Skill),
		})
	}

	RankGaps(gaps)
	return gaps
}

// RankGaps orders gaps must-have first, then by gap size, then by market demand.
// Equal items keep their input order.
func RankGaps(gaps []types.GapItem) {
	sort.SliceStable(gaps, func(i, j int) bool {
		a, b := gaps[i], gaps[j]
		if a.IsMustHave != b.IsMustHave {
			return a.IsMustHave
		}
		if a.Gap != b.Gap {
			return a.Gap > b.Gap
		}
		return a.MarketDemand.TotalDemand > b.MarketDemand.TotalDemand
	})
}

// CriticalGaps returns up to limit ranked gaps with a positive shortfall
func CriticalGaps(ranked []types.GapItem, limit int) []types.GapItem {
	out := make([]types.GapItem, 0, limit)
	for _, g := range ranked {
		if len(out) == limit {
			break
		}
		if g.Gap > 0 {
			out = append(out, g)
		}
	}
	return out
}
