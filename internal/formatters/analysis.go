package formatters

import (
	"fmt"
	"strconv"
	"strings"

	"skillgap/internal/types"
)

// AnalysisFormatter renders a full skills-gap report
type AnalysisFormatter struct {
	style style
}

func (f *AnalysisFormatter) SupportedType() string {
	return typeAnalysis
}

func (f *AnalysisFormatter) Format(data any) (string, error) {
	var result *types.FullAnalysisResponse
	switch v := data.(type) {
	case *types.FullAnalysisResponse:
		result = v
	case types.FullAnalysisResponse:
		result = &v
	default:
		return "", fmt.Errorf("expected FullAnalysisResponse, got %T", data)
	}
	if result == nil {
		return "", fmt.Errorf("expected FullAnalysisResponse, got nil")
	}

	s := f.style
	var b strings.Builder

	s.title(&b, "Skills Gap Analysis: "+result.JobTitle)
	s.field(&b, "Analysis ID", result.AnalysisID)
	breakdown := result.QuantitativeSummary.SkillsBreakdown
	s.field(&b, "Skill match", fmt.Sprintf("%.1f%% (%d of %d job skills)",
		result.QuantitativeSummary.OverallScore, breakdown.MatchedCount, breakdown.JobSkillsCount))
	s.field(&b, "AI scores", fmt.Sprintf("coverage %d, depth %d, recency %d",
		result.AIScores.Coverage, result.AIScores.Depth, result.AIScores.Recency))
	if result.SanitizeAttempts > 1 {
		s.field(&b, "Note", fmt.Sprintf("personal details were redacted after %d safety-filtered attempts",
			result.SanitizeAttempts-1))
	}
	s.end(&b)

	if result.AISummary != "" {
		s.section(&b, "Summary")
		b.WriteString(result.AISummary)
		b.WriteString("\n\n")
	}

	if len(result.JobSkillProfile) > 0 {
		s.section(&b, "Skill Gaps")
		rows := make([][]string, 0, len(result.JobSkillProfile))
		for _, g := range result.JobSkillProfile {
			mustHave := ""
			if g.IsMustHave {
				mustHave = "yes"
			}
			rows = append(rows, []string{
				g.Skill,
				strconv.Itoa(g.ProficiencyReq),
				strconv.Itoa(g.ProficiencyYou),
				strconv.Itoa(g.Gap),
				mustHave,
				fmt.Sprintf("%d (%s)", g.MarketDemand.TotalDemand, g.MarketDemand.Priority),
			})
		}
		s.table(&b, []string{"Skill", "Required", "You", "Gap", "Must-have", "Demand"}, rows)
	}

	if len(result.PriorityActions) > 0 {
		s.section(&b, "Priority Actions")
		for i, a := range result.PriorityActions {
			fmt.Fprintf(&b, "%d. %s", i+1, a.Action)
			if meta := joinNonEmpty(", ", a.Difficulty, a.TimeEstimate); meta != "" {
				fmt.Fprintf(&b, " (%s)", meta)
			}
			b.WriteString("\n")
			if a.Why != "" {
				fmt.Fprintf(&b, "   %s\n", a.Why)
			}
		}
		s.end(&b)
	}

	if len(result.LearningPaths) > 0 {
		s.section(&b, "Learning Paths")
		for _, p := range result.LearningPaths {
			s.bullet(&b, "%s: %s", p.Skill, joinNonEmpty(" on ", p.PathTitle, p.Platform))
		}
		s.end(&b)
	}

	if len(result.ResumeEdits) > 0 {
		s.section(&b, "Resume Edits")
		for _, e := range result.ResumeEdits {
			s.bullet(&b, "Before: %s", e.Before)
			fmt.Fprintf(&b, "  After:  %s\n", e.After)
		}
		s.end(&b)
	}

	if len(result.LowValueSkills) > 0 {
		s.section(&b, "Low-Value Skills")
		b.WriteString(strings.Join(result.LowValueSkills, ", "))
		b.WriteString("\n")
	}

	return b.String(), nil
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if strings.TrimSpace(p) != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
