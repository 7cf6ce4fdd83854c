package ai

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"skillgap/internal/types"

	"github.com/tidwall/gjson"
)

var (
	fencePattern         = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.*?)\\s*```")
	trailingCommaPattern = regexp.MustCompile(`,\s*([\]}])`)
)

// extractJSON strips markdown fences and cuts the text down to its outermost object
func extractJSON(text string) string {
	t := strings.TrimSpace(text)
	if m := fencePattern.FindStringSubmatch(t); m != nil {
		t = m[1]
	}
	start, end := strings.Index(t, "{"), strings.LastIndex(t, "}")
	if start >= 0 && end > start {
		t = t[start : end+1]
	}
	return t
}

// cleanJSON returns a syntactically valid JSON object taken from a model reply.
// Trailing commas are removed on a second attempt.
func cleanJSON(text string) (string, error) {
	t := extractJSON(text)
	if isObject(t) {
		return t, nil
	}
	if fixed := trailingCommaPattern.ReplaceAllString(t, "$1"); isObject(fixed) {
		return fixed, nil
	}
	return "", fmt.Errorf("reply is not a JSON object")
}

func isObject(s string) bool {
	return gjson.Valid(s) && gjson.Parse(s).IsObject()
}

// shape walks a parsed reply and records the first violation it meets
type shape struct {
	err error
}

func (s *shape) fail(path, format string, args ...any) {
	if s.err == nil {
		s.err = fmt.Errorf("%s: %s", path, fmt.Sprintf(format, args...))
	}
}

func (s *shape) array(obj gjson.Result, key, path string) []gjson.Result {
	v := obj.Get(key)
	if !v.IsArray() {
		s.fail(path+"."+key, "expected array")
		return nil
	}
	return v.Array()
}

func (s *shape) object(obj gjson.Result, key, path string) gjson.Result {
	v := obj.Get(key)
	if !v.IsObject() {
		s.fail(path+"."+key, "expected object")
	}
	return v
}

func (s *shape) str(obj gjson.Result, key, path string, nonEmpty bool) string {
	v := obj.Get(key)
	if v.Type != gjson.String {
		s.fail(path+"."+key, "expected string")
		return ""
	}
	if nonEmpty && strings.TrimSpace(v.Str) == "" {
		s.fail(path+"."+key, "must not be empty")
	}
	return strings.TrimSpace(v.Str)
}

func (s *shape) integer(obj gjson.Result, key, path string, lo, hi int) int {
	v := obj.Get(key)
	if v.Type != gjson.Number || v.Num != math.Trunc(v.Num) {
		s.fail(path+"."+key, "expected integer")
		return 0
	}
	n := int(v.Num)
	if n < lo || n > hi {
		s.fail(path+"."+key, "%d outside %d..%d", n, lo, hi)
	}
	return n
}

func (s *shape) boolean(obj gjson.Result, key, path string) bool {
	v := obj.Get(key)
	if !v.IsBool() {
		s.fail(path+"."+key, "expected boolean")
	}
	return v.Bool()
}

func (s *shape) stringList(obj gjson.Result, key, path string) []string {
	items := s.array(obj, key, path)
	out := make([]string, 0, len(items))
	for i, item := range items {
		if item.Type != gjson.String {
			s.fail(fmt.Sprintf("%s.%s[%d]", path, key, i), "expected string")
			continue
		}
		if v := strings.TrimSpace(item.Str); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (s *shape) objects(obj gjson.Result, key, path string) []gjson.Result {
	items := s.array(obj, key, path)
	for i, item := range items {
		if !item.IsObject() {
			s.fail(fmt.Sprintf("%s.%s[%d]", path, key, i), "expected object")
		}
	}
	return items
}

// parseRefinedProfile validates a refiner reply. Any missing key, wrong kind or
// out-of-range value rejects the whole reply.
func parseRefinedProfile(text string) (types.RefinedProfile, error) {
	clean, err := cleanJSON(text)
	if err != nil {
		return types.RefinedProfile{}, err
	}
	root := gjson.Parse(clean)
	s := &shape{}

	var profile types.RefinedProfile

	cvItems := s.objects(root, "cv_profile", "$")
	profile.CVProfile = make([]types.SkillProfile, 0, len(cvItems))
	for i, item := range cvItems {
		path := fmt.Sprintf("$.cv_profile[%d]", i)
		profile.CVProfile = append(profile.CVProfile, types.SkillProfile{
			Skill:          s.str(item, "skill", path, true),
			ProficiencyYou: s.integer(item, "proficiency_you", path, 1, 5),
			Evidence:       s.str(item, "evidence", path, false),
		})
	}

	jobItems := s.objects(root, "job_profile", "$")
	profile.JobProfile = make([]types.JobRequirement, 0, len(jobItems))
	for i, item := range jobItems {
		path := fmt.Sprintf("$.job_profile[%d]", i)
		profile.JobProfile = append(profile.JobProfile, types.JobRequirement{
			Skill:          s.str(item, "skill", path, true),
			ProficiencyReq: s.integer(item, "proficiency_req", path, 1, 5),
			IsMustHave:     s.boolean(item, "is_must_have", path),
		})
	}

	scores := s.object(root, "overall_scores", "$")
	profile.OverallScores = types.OverallScores{
		Coverage: s.integer(scores, "coverage", "$.overall_scores", 0, 100),
		Depth:    s.integer(scores, "depth", "$.overall_scores", 0, 100),
		Recency:  s.integer(scores, "recency", "$.overall_scores", 0, 100),
	}

	profile.LowValueSkills = s.stringList(root, "low_value_skills", "$")

	if s.err != nil {
		return types.RefinedProfile{}, s.err
	}
	return profile, nil
}

// parseCoachingPlan validates a coach reply
func parseCoachingPlan(text string) (types.CoachingPlan, error) {
	clean, err := cleanJSON(text)
	if err != nil {
		return types.CoachingPlan{}, err
	}
	root := gjson.Parse(clean)
	s := &shape{}

	plan := types.CoachingPlan{Summary: s.str(root, "summary", "$", true)}

	actions := s.objects(root, "priority_actions", "$")
	plan.PriorityActions = make([]types.PriorityAction, 0, len(actions))
	for i, item := range actions {
		path := fmt.Sprintf("$.priority_actions[%d]", i)
		plan.PriorityActions = append(plan.PriorityActions, types.PriorityAction{
			Action:       s.str(item, "action", path, true),
			Difficulty:   s.str(item, "difficulty", path, false),
			TimeEstimate: s.str(item, "time_estimate", path, false),
			Why:          s.str(item, "why", path, false),
		})
	}

	paths := s.objects(root, "learning_paths", "$")
	plan.LearningPaths = make([]types.LearningPath, 0, len(paths))
	for i, item := range paths {
		path := fmt.Sprintf("$.learning_paths[%d]", i)
		plan.LearningPaths = append(plan.LearningPaths, types.LearningPath{
			Skill:     s.str(item, "skill", path, true),
			PathTitle: s.str(item, "path_title", path, true),
			Platform:  s.str(item, "platform", path, false),
		})
	}

	edits := s.objects(root, "resume_edits", "$")
	plan.ResumeEdits = make([]types.ResumeEdit, 0, len(edits))
	for i, item := range edits {
		path := fmt.Sprintf("$.resume_edits[%d]", i)
		plan.ResumeEdits = append(plan.ResumeEdits, types.ResumeEdit{
			Before: s.str(item, "before", path, true),
			After:  s.str(item, "after", path, true),
		})
	}

	if s.err != nil {
		return types.CoachingPlan{}, s.err
	}
	return plan, nil
}
