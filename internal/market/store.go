package market

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"skillgap/internal/errors"
	"skillgap/internal/types"
)

// Column names expected in the source tables
const (
	ColSkillKeyword   = "Skill Keyword"
	ColJobTitle       = "Job Posting Title"
	ColCount          = "Count"
	ColPreferredLabel = "preferredLabel"
	ColConceptURI     = "conceptUri"
	ColSkillType      = "skillType"
)

// TopRolesLimit caps the roles kept per skill
const TopRolesLimit = 5

// Stats summarizes what the store was built from
type Stats struct {
	DemandSkills    int `json:"demand_skills"`
	TaxonomyEntries int `json:"taxonomy_entries"`
	PostingRows     int `json:"posting_rows"`
}

type demandEntry struct {
	total int64
	roles []types.RoleCount
}

// Store holds the skills taxonomy and pre-aggregated market demand.
// It is read-only after construction and safe for concurrent use.
type Store struct {
	demand   map[string]demandEntry
	taxonomy map[string]types.TaxonomyEntry
	stats    Stats
}

// Load reads both source files and builds a Store.
// Any failure is fatal for the caller: there is no partial store.
func Load(postingsPath, taxonomyPath string, logger *errors.Logger) (*Store, error) {
	postings, err := ReadTable(postingsPath)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeDataLoadFailed,
			fmt.Sprintf("Failed to load job postings from %s", postingsPath), err)
	}

	taxonomy, err := ReadTable(taxonomyPath)
	if err != nil {
		return nil, errors.NewIOError(errors.ErrCodeDataLoadFailed,
			fmt.Sprintf("Failed to load skills taxonomy from %s", taxonomyPath), err)
	}

	store, err := NewStore(postings, taxonomy)
	if err != nil {
		return nil, err
	}

	if logger != nil {
		logger.Info("Market data loaded",
			"postings_file", postingsPath,
			"taxonomy_file", taxonomyPath,
			"posting_rows", store.stats.PostingRows,
			"demand_skills", store.stats.DemandSkills,
			"taxonomy_entries", store.stats.TaxonomyEntries)
	}
	return store, nil
}

// NewStore builds a Store from already-read tables
func NewStore(postings, taxonomy Table) (*Store, error) {
	demand, rows, err := aggregateDemand(postings)
	if err != nil {
		return nil, err
	}

	entries, err := indexTaxonomy(taxonomy)
	if err != nil {
		return nil, err
	}

	return &Store{
		demand:   demand,
		taxonomy: entries,
		stats: Stats{
			DemandSkills:    len(demand),
			TaxonomyEntries: len(entries),
			PostingRows:     rows,
		},
	}, nil
}

func aggregateDemand(t Table) (map[string]demandEntry, int, error) {
	skillIdx, titleIdx, countIdx := t.column(ColSkillKeyword), t.column(ColJobTitle), t.column(ColCount)
	if err := requireColumns("postings", map[string]int{
		ColSkillKeyword: skillIdx,
		ColJobTitle:     titleIdx,
		ColCount:        countIdx,
	}); err != nil {
		return nil, 0, err
	}
	if len(t.Rows) == 0 {
		return nil, 0, errors.NewValidationError(errors.ErrCodeDataLoadFailed, "postings table has no rows", nil)
	}

	demand := make(map[string]demandEntry)
	for i, row := range t.Rows {
		key := strings.ToLower(cell(row, skillIdx))
		if key == "" {
			continue
		}

		count, err := parseCount(cell(row, countIdx))
		if err != nil {
			return nil, 0, errors.NewValidationError(errors.ErrCodeDataLoadFailed,
				fmt.Sprintf("postings row %d has an invalid count", i+2), err).
				WithContext("row", i+2)
		}

		entry := demand[key]
		entry.total += count
		entry.roles = append(entry.roles, types.RoleCount{Title: cell(row, titleIdx), Count: count})
		demand[key] = entry
	}

	for key, entry := range demand {
		sort.SliceStable(entry.roles, func(a, b int) bool {
			return entry.roles[a].Count > entry.roles[b].Count
		})
		if len(entry.roles) > TopRolesLimit {
			entry.roles = entry.roles[:TopRolesLimit:TopRolesLimit]
		}
		demand[key] = entry
	}

	return demand, len(t.Rows), nil
}

func indexTaxonomy(t Table) (map[string]types.TaxonomyEntry, error) {
	labelIdx, uriIdx, typeIdx := t.column(ColPreferredLabel), t.column(ColConceptURI), t.column(ColSkillType)
	if err := requireColumns("taxonomy", map[string]int{
		ColPreferredLabel: labelIdx,
		ColConceptURI:     uriIdx,
	}); err != nil {
		return nil, err
	}
	if len(t.Rows) == 0 {
		return nil, errors.NewValidationError(errors.ErrCodeDataLoadFailed, "taxonomy table has no rows", nil)
	}

	entries := make(map[string]types.TaxonomyEntry, len(t.Rows))
	for _, row := range t.Rows {
		label := cell(row, labelIdx)
		if label == "" {
			continue
		}
		key := strings.ToLower(label)
		if _, seen := entries[key]; seen {
			continue
		}

		skillType := cell(row, typeIdx)
		if skillType == "" {
			skillType = "unknown"
		}
		entries[key] = types.TaxonomyEntry{
			CanonicalLabel: label,
			ConceptURI:     cell(row, uriIdx),
			SkillType:      skillType,
		}
	}
	return entries, nil
}

func requireColumns(table string, columns map[string]int) error {
	var missing []string
	for name, idx := range columns {
		if idx < 0 {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return errors.NewValidationError(errors.ErrCodeDataLoadFailed,
		fmt.Sprintf("%s table is missing required columns: %s", table, strings.Join(missing, ", ")), nil)
}

// parseCount accepts integers and integral floats such as "12.0"
func parseCount(raw string) (int64, error) {
	if raw == "" {
		return 0, fmt.Errorf("empty count")
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("count %q is not a whole number", raw)
	}
	return int64(f), nil
}

// PriorityFor maps a total demand onto its priority bucket
func PriorityFor(totalDemand int64) types.Priority {
	switch {
	case totalDemand > 5000:
		return types.PriorityCritical
	case totalDemand > 2000:
		return types.PriorityHigh
	case totalDemand > 500:
		return types.PriorityMedium
	default:
		return types.PriorityLow
	}
}

// MarketDemand returns the demand record for skill. Unknown skills get zero demand.
func (s *Store) MarketDemand(skill string) types.DemandRecord {
	entry := s.demand[strings.ToLower(strings.TrimSpace(skill))]

	roles := make([]types.RoleCount, len(entry.roles))
	copy(roles, entry.roles)

	return types.DemandRecord{
		Skill:       skill,
		TotalDemand: entry.total,
		TopRoles:    roles,
		Priority:    PriorityFor(entry.total),
	}
}

// TaxonomyMatch looks skill up in the taxonomy by exact case-insensitive label
func (s *Store) TaxonomyMatch(skill string) (types.TaxonomyEntry, bool) {
	entry, ok := s.taxonomy[strings.ToLower(strings.TrimSpace(skill))]
	return entry, ok
}

// Stats returns the sizes the store was built with
func (s *Store) Stats() Stats {
	return s.stats
}
