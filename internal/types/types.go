package types

// Priority buckets total market demand for a skill
type Priority string

const (
	PriorityCritical Priority = "Critical"
	PriorityHigh     Priority = "High"
	PriorityMedium   Priority = "Medium"
	PriorityLow      Priority = "Low"
)

// MentionSource tells which extraction pass produced a mention
type MentionSource string

const (
	SourceModel   MentionSource = "model"
	SourcePattern MentionSource = "pattern"
)

// MatchType records whether a mention was mapped onto the taxonomy
type MatchType string

const (
	MatchExact MatchType = "exact"
	MatchNone  MatchType = "none"
)

// TaxonomyEntry is one concept of the skills taxonomy
type TaxonomyEntry struct {
	CanonicalLabel string `json:"canonical_label"`
	ConceptURI     string `json:"concept_uri"`
	SkillType      string `json:"skill_type"`
}

// RoleCount is a job title together with the postings count it contributes
type RoleCount struct {
	Title string `json:"title"`
	Count int64  `json:"count"`
}

// DemandRecord is the pre-aggregated market demand for one skill
type DemandRecord struct {
	Skill       string      `json:"skill"`
	TotalDemand int64       `json:"total_demand"`
	TopRoles    []RoleCount `json:"top_roles"`
	Priority    Priority    `json:"priority"`
}

// Mention is a raw skill occurrence found in free text
type Mention struct {
	Text     string        `json:"raw_text"`
	Source   MentionSource `json:"source"`
	Score    float64       `json:"score,omitempty"`
	Evidence string        `json:"evidence"`
}

// NormalizedSkill is a mention mapped (or not) onto the taxonomy
type NormalizedSkill struct {
	Original   string        `json:"original"`
	Normalized string        `json:"normalized"`
	URI        *string       `json:"uri"`
	SkillType  string        `json:"skill_type"`
	MatchType  MatchType     `json:"match_type"`
	Evidence   string        `json:"evidence"`
	Source     MentionSource `json:"source"`
}

// SkillsBreakdown counts distinct skill names on each side of the comparison
type SkillsBreakdown struct {
	CVSkillsCount  int `json:"cv_skills_count"`
	JobSkillsCount int `json:"job_skills_count"`
	MatchedCount   int `json:"matched_count"`
	MissingCount   int `json:"missing_count"`
}

// QuantitativeReport is the deterministic, LLM-free comparison of a CV and a job
type QuantitativeReport struct {
	OverallScore             float64           `json:"overall_score"`
	SkillsBreakdown          SkillsBreakdown   `json:"skills_breakdown"`
	MatchedSkills            []NormalizedSkill `json:"matched_skills"`
	MissingSkillsPrioritized []DemandRecord    `json:"missing_skills_prioritized"`
	CVSkills                 []NormalizedSkill `json:"cv_skills"`
	JobSkills                []NormalizedSkill `json:"job_skills"`
}

// SkillProfile is the LLM's proficiency estimate for one CV skill
type SkillProfile struct {
	Skill          string `json:"skill"`
	ProficiencyYou int    `json:"proficiency_you"`
	Evidence       string `json:"evidence"`
}

// JobRequirement is the LLM's required proficiency for one job skill
type JobRequirement struct {
	Skill          string `json:"skill"`
	ProficiencyReq int    `json:"proficiency_req"`
	IsMustHave     bool   `json:"is_must_have"`
}

// OverallScores is the rubric score triple, each in 0..100
type OverallScores struct {
	Coverage int `json:"coverage"`
	Depth    int `json:"depth"`
	Recency  int `json:"recency"`
}

// RefinedProfile is the validated output of the gap refiner call
type RefinedProfile struct {
	CVProfile      []SkillProfile   `json:"cv_profile"`
	JobProfile     []JobRequirement `json:"job_profile"`
	OverallScores  OverallScores    `json:"overall_scores"`
	LowValueSkills []string         `json:"low_value_skills"`
}

// RefineInput is what the gap refiner sees
type RefineInput struct {
	CVText    string
	JobText   string
	CVSkills  []NormalizedSkill
	JobSkills []NormalizedSkill
}

// GapItem pairs a required skill with the candidate's estimated level
type GapItem struct {
	Skill          string       `json:"skill"`
	ProficiencyReq int          `json:"proficiency_req"`
	ProficiencyYou int          `json:"proficiency_you"`
	Gap            int          `json:"gap"`
	IsMustHave     bool         `json:"is_must_have"`
	MarketDemand   DemandRecord `json:"market_demand"`
}

// PriorityAction is one recommended next step from the coach
type PriorityAction struct {
	Action       string `json:"action"`
	Difficulty   string `json:"difficulty"`
	TimeEstimate string `json:"time_estimate"`
	Why          string `json:"why"`
}

// LearningPath points at a course or resource for a skill
type LearningPath struct {
	Skill     string `json:"skill"`
	PathTitle string `json:"path_title"`
	Platform  string `json:"platform"`
}

// ResumeEdit rewrites a sentence quoted from the CV
type ResumeEdit struct {
	Before string `json:"before"`
	After  string `json:"after"`
}

// CoachingPlan is the validated output of the coach call
type CoachingPlan struct {
	Summary         string           `json:"summary"`
	PriorityActions []PriorityAction `json:"priority_actions"`
	LearningPaths   []LearningPath   `json:"learning_paths"`
	ResumeEdits     []ResumeEdit     `json:"resume_edits"`
}

// CoachInput is what the coach sees
type CoachInput struct {
	JobTitle       string
	CriticalGaps   []GapItem
	LowValueSkills []string
	CVText         string
}

// FullAnalysisResponse is the complete skills-gap report
type FullAnalysisResponse struct {
	AnalysisID          string             `json:"analysis_id"`
	JobTitle            string             `json:"job_title"`
	QuantitativeSummary QuantitativeReport `json:"quantitative_summary"`
	AIScores            OverallScores      `json:"ai_scores"`
	AISummary           string             `json:"ai_summary"`
	CVSkillProfile      []SkillProfile     `json:"cv_skill_profile"`
	JobSkillProfile     []GapItem          `json:"job_skill_profile"`
	PriorityActions     []PriorityAction   `json:"priority_actions"`
	LearningPaths       []LearningPath     `json:"learning_paths"`
	ResumeEdits         []ResumeEdit       `json:"resume_edits"`
	LowValueSkills      []string           `json:"low_value_skills"`
	SanitizeAttempts    int                `json:"sanitize_attempts"`
}

// AnalysisRequest is the input of a full or quantitative analysis
type AnalysisRequest struct {
	CVText         string `json:"cv_text"`
	JobDescription string `json:"job_description"`
	JobTitle       string `json:"job_title,omitempty"`
}

// ExtractRequest asks for the normalized skills of one text
type ExtractRequest struct {
	Text string `json:"text"`
}

// ExtractResponse lists normalized skills found in a text
type ExtractResponse struct {
	Skills []NormalizedSkill `json:"skills"`
}
