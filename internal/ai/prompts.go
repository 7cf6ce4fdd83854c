package ai

// SystemPrompts contains all system-level instructions for AI interactions
type SystemPrompts struct {
	RefineSkills string
	CoachCareer  string
}

// UserPrompts contains user-level prompts with placeholders for dynamic content
type UserPrompts struct {
	RefineSkills string
	CoachCareer  string
}

// DefaultSystemPrompts provides the default system instructions
var DefaultSystemPrompts = SystemPrompts{
	RefineSkills: `You are a skills-gap analyst. You compare a candidate's CV with a job description and rate proficiency on a 1 to 5 scale.

Rules:
- Base every rating on the supplied texts. Do not invent experience the CV does not show.
- Treat the pre-extracted skill lists as hints. You may add skills they missed and drop obvious noise.
- Reply with one JSON object and nothing else.`,

	CoachCareer: `You are a career coach helping a candidate close the gap to a target role.

Rules:
- Be encouraging, concrete and brief.
- Only recommend courses and resources that actually exist.
- Every "before" snippet in resume_edits must be quoted verbatim from the CV. Never paraphrase or invent it.
- Reply with one JSON object and nothing else.`,
}

// DefaultUserPrompts provides the default user prompt templates
var DefaultUserPrompts = UserPrompts{
	RefineSkills: `Estimate proficiency levels for the candidate and for the role.

**How to rate (1 = basic, 5 = expert):**
- CV wording: "expert" or "advanced" means 4-5, "proficient" means 3-4, "familiar" or "basic" means 1-2.
- Years of experience: 6 or more = 5, 3 to 5 = 4, 1 to 2 = 3.
- Job wording: "must-have" or "expert" means 4-5, "required" means 3-4, "plus" or "nice to have" means 2.
- Without any signal use 3.

**Return exactly these keys:**
- cv_profile: [{"skill", "proficiency_you" (1-5), "evidence" (short quote from the CV)}]
- job_profile: [{"skill", "proficiency_req" (1-5), "is_must_have" (boolean)}]
- overall_scores: {"coverage", "depth", "recency"}, each 0-100
- low_value_skills: CV skills that do not help for this role

**CV:**
-----
%s
-----

**Job Description:**
-----
%s
-----

**Skills already found in the CV (with evidence):**
%s

**Skills already found in the job description:**
%s`,

	CoachCareer: `Write a short coaching plan for the target role below.

**Return exactly these keys:**
- summary: two sentences on where the candidate stands
- priority_actions: 3 or 4 items [{"action", "difficulty" (low/medium/high), "time_estimate", "why"}], focused on the largest gaps
- learning_paths: one or two real resources per top gap [{"skill", "path_title", "platform"}]
- resume_edits: [{"before" (verbatim sentence from the CV), "after" (the same sentence reframed for the role)}]

**Target role:** %s

**Largest gaps (required vs. current level):**
%s

**Skills that add little for this role:**
%s

**CV:**
-----
%s
-----`,
}
