package formatters

import (
	"fmt"
	"strconv"
	"strings"

	"skillgap/internal/types"
)

// QuantitativeFormatter renders the deterministic skill match
type QuantitativeFormatter struct {
	style style
}

func (f *QuantitativeFormatter) SupportedType() string {
	return typeQuantitative
}

func (f *QuantitativeFormatter) Format(data any) (string, error) {
	var report types.QuantitativeReport
	switch v := data.(type) {
	case types.QuantitativeReport:
		report = v
	case *types.QuantitativeReport:
		if v == nil {
			return "", fmt.Errorf("expected QuantitativeReport, got nil")
		}
		report = *v
	default:
		return "", fmt.Errorf("expected QuantitativeReport, got %T", data)
	}

	s := f.style
	var b strings.Builder

	s.title(&b, "Skill Match")
	bd := report.SkillsBreakdown
	s.field(&b, "Overall score", fmt.Sprintf("%.1f%%", report.OverallScore))
	s.field(&b, "CV skills", bd.CVSkillsCount)
	s.field(&b, "Job skills", bd.JobSkillsCount)
	s.field(&b, "Matched", bd.MatchedCount)
	s.field(&b, "Missing", bd.MissingCount)
	s.end(&b)

	if len(report.MatchedSkills) > 0 {
		s.section(&b, "Matched Skills")
		names := make([]string, 0, len(report.MatchedSkills))
		for _, m := range report.MatchedSkills {
			names = append(names, m.Normalized)
		}
		b.WriteString(strings.Join(names, ", "))
		b.WriteString("\n\n")
	}

	if len(report.MissingSkillsPrioritized) > 0 {
		s.section(&b, "Missing Skills by Market Demand")
		writeDemandTable(s, &b, report.MissingSkillsPrioritized)
	}

	return b.String(), nil
}

// ExtractFormatter renders the skills found in one text
type ExtractFormatter struct {
	style style
}

func (f *ExtractFormatter) SupportedType() string {
	return typeExtract
}

func (f *ExtractFormatter) Format(data any) (string, error) {
	var resp types.ExtractResponse
	switch v := data.(type) {
	case types.ExtractResponse:
		resp = v
	case *types.ExtractResponse:
		if v == nil {
			return "", fmt.Errorf("expected ExtractResponse, got nil")
		}
		resp = *v
	default:
		return "", fmt.Errorf("expected ExtractResponse, got %T", data)
	}

	s := f.style
	var b strings.Builder

	s.title(&b, fmt.Sprintf("Extracted Skills (%d)", len(resp.Skills)))
	if len(resp.Skills) == 0 {
		b.WriteString("No skills found.\n")
		return b.String(), nil
	}

	rows := make([][]string, 0, len(resp.Skills))
	for _, sk := range resp.Skills {
		uri := ""
		if sk.URI != nil {
			uri = *sk.URI
		}
		rows = append(rows, []string{sk.Normalized, sk.Original, string(sk.MatchType), string(sk.Source), uri})
	}
	s.table(&b, []string{"Skill", "Found as", "Match", "Source", "Taxonomy URI"}, rows)

	return b.String(), nil
}

// DemandFormatter renders market demand lookups
type DemandFormatter struct {
	style style
}

func (f *DemandFormatter) SupportedType() string {
	return typeDemand
}

func (f *DemandFormatter) Format(data any) (string, error) {
	records, ok := data.([]types.DemandRecord)
	if !ok {
		return "", fmt.Errorf("expected []DemandRecord, got %T", data)
	}

	s := f.style
	var b strings.Builder

	s.title(&b, "Market Demand")
	writeDemandTable(s, &b, records)

	for _, r := range records {
		if len(r.TopRoles) == 0 {
			continue
		}
		s.section(&b, "Top roles for "+r.Skill)
		for _, role := range r.TopRoles {
			s.bullet(&b, "%s: %d", role.Title, role.Count)
		}
		s.end(&b)
	}

	return b.String(), nil
}

func writeDemandTable(s style, b *strings.Builder, records []types.DemandRecord) {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		top := ""
		if len(r.TopRoles) > 0 {
			top = r.TopRoles[0].Title
		}
		rows = append(rows, []string{r.Skill, strconv.FormatInt(r.TotalDemand, 10), string(r.Priority), top})
	}
	s.table(b, []string{"Skill", "Postings", "Priority", "Top role"}, rows)
}
