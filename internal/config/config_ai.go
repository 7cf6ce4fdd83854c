package config

// applyOperationDefaults applies global defaults to operation-specific configuration
func (c *Config) applyOperationDefaults(opCfg *OperationAIConfig) {
	if opCfg.Provider == "" {
		opCfg.Provider = c.AI.Provider
	}
	if opCfg.Model == "" {
		opCfg.Model = c.AI.Model
	}
	if opCfg.Timeout == nil {
		opCfg.Timeout = &c.AI.Timeout
	}
	if opCfg.APIKey == "" {
		opCfg.APIKey = c.AI.APIKey
	}
	if opCfg.MaxRetries == nil {
		opCfg.MaxRetries = &c.AI.MaxRetries
	}
	if opCfg.Temperature == nil {
		opCfg.Temperature = &c.AI.Temperature
	}
	// UseSystemPrompts: apply global default only if not explicitly set
	if opCfg.UseSystemPrompts == nil {
		opCfg.UseSystemPrompts = &c.AI.UseSystemPrompts
	}
}

// GetRefineConfig returns the AI configuration for skill refinement with fallback to global config
func (c *Config) GetRefineConfig() OperationAIConfig {
	config := c.AI.Refine
	c.applyOperationDefaults(&config)

	sys, usr := &config.CustomPrompts.SystemPrompts, &config.CustomPrompts.UserPrompts
	global := c.AI.CustomPrompts
	fallback(&sys.RefineSkills, global.SystemPrompts.RefineSkills)
	fallback(&usr.RefineSkills, global.UserPrompts.RefineSkills)
	fallback(&sys.RefineSkillsFile, global.SystemPrompts.RefineSkillsFile)
	fallback(&usr.RefineSkillsFile, global.UserPrompts.RefineSkillsFile)

	return config
}

// GetCoachConfig returns the AI configuration for career coaching with fallback to global config
func (c *Config) GetCoachConfig() OperationAIConfig {
	config := c.AI.Coach
	c.applyOperationDefaults(&config)

	sys, usr := &config.CustomPrompts.SystemPrompts, &config.CustomPrompts.UserPrompts
	global := c.AI.CustomPrompts
	fallback(&sys.CoachCareer, global.SystemPrompts.CoachCareer)
	fallback(&usr.CoachCareer, global.UserPrompts.CoachCareer)
	fallback(&sys.CoachCareerFile, global.SystemPrompts.CoachCareerFile)
	fallback(&usr.CoachCareerFile, global.UserPrompts.CoachCareerFile)

	return config
}

func fallback(dst *string, value string) {
	if *dst == "" {
		*dst = value
	}
}
