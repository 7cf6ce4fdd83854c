package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Prompt operations and kinds
const (
	OperationRefine = "refine"
	OperationCoach  = "coach"

	PromptSystem = "system"
	PromptUser   = "user"
)

// PromptFile names one prompt slot and the file that backs it
type PromptFile struct {
	Operation string
	Kind      string
	Path      string
}

type promptKey struct {
	operation string
	kind      string
}

// PromptStore holds prompt content loaded from files.
// It is safe for concurrent use; a reload replaces all prompts at once.
type PromptStore struct {
	mu      sync.RWMutex
	prompts map[promptKey]string
}

// NewPromptStore creates an empty store
func NewPromptStore() *PromptStore {
	return &PromptStore{prompts: make(map[promptKey]string)}
}

// Get returns the loaded prompt for an operation, or "" when none was loaded
func (s *PromptStore) Get(operation, kind string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prompts[promptKey{operation, kind}]
}

// Len returns the number of loaded prompts
func (s *PromptStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.prompts)
}

// LoadFiles reads every file and swaps the store contents.
// On any error the previous contents are kept.
func (s *PromptStore) LoadFiles(files []PromptFile) error {
	log.Println("[CONFIG] Starting custom prompt loading from files")

	loaded := make(map[promptKey]string, len(files))
	for _, f := range files {
		content, err := loadPromptFromFile(f.Path, f.Kind, f.Operation)
		if err != nil {
			return err
		}
		loaded[promptKey{f.Operation, f.Kind}] = content
	}

	s.mu.Lock()
	s.prompts = loaded
	s.mu.Unlock()

	if len(loaded) == 0 {
		log.Println("[CONFIG] No custom prompts loaded - using built-in defaults")
	} else {
		log.Printf("[CONFIG] Total custom prompts loaded: %d", len(loaded))
	}
	return nil
}

// Prompts returns the prompt store attached to this configuration
func (c *Config) Prompts() *PromptStore {
	if c.prompts == nil {
		c.prompts = NewPromptStore()
	}
	return c.prompts
}

// PromptFiles lists the prompt files configured for each operation,
// with operation-specific paths taking precedence over global ones
func (c *Config) PromptFiles() []PromptFile {
	refine := c.GetRefineConfig().CustomPrompts
	coach := c.GetCoachConfig().CustomPrompts

	candidates := []PromptFile{
		{OperationRefine, PromptSystem, refine.SystemPrompts.RefineSkillsFile},
		{OperationRefine, PromptUser, refine.UserPrompts.RefineSkillsFile},
		{OperationCoach, PromptSystem, coach.SystemPrompts.CoachCareerFile},
		{OperationCoach, PromptUser, coach.UserPrompts.CoachCareerFile},
	}

	files := make([]PromptFile, 0, len(candidates))
	for _, f := range candidates {
		if f.Path != "" {
			files = append(files, f)
		}
	}
	return files
}

// loadPromptFromFile loads a prompt from a file with proper error handling and logging
func loadPromptFromFile(filePath, promptType, operation string) (string, error) {
	absPath, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path for %s %s prompt file '%s': %w", promptType, operation, filePath, err)
	}

	if _, err := os.Stat(absPath); os.IsNotExist(err) {
		return "", fmt.Errorf("%s %s prompt file not found: %s", promptType, operation, absPath)
	}

	content, err := os.ReadFile(absPath)
	if err != nil {
		return "", fmt.Errorf("failed to read %s %s prompt file '%s': %w", promptType, operation, absPath, err)
	}

	trimmedContent := strings.TrimSpace(string(content))
	if trimmedContent == "" {
		return "", fmt.Errorf("%s %s prompt file '%s' is empty", promptType, operation, absPath)
	}

	log.Printf("[CONFIG] Successfully loaded %s %s prompt from file: %s (%d characters)",
		promptType, operation, absPath, len(trimmedContent))

	return trimmedContent, nil
}

// validatePromptFiles validates that prompt files exist before loading
func (c *Config) validatePromptFiles() error {
	var validationErrors []string

	for _, f := range c.PromptFiles() {
		absPath, err := filepath.Abs(f.Path)
		if err != nil {
			validationErrors = append(validationErrors, fmt.Sprintf("invalid path for %s %s prompt: %s", f.Kind, f.Operation, f.Path))
			continue
		}
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			validationErrors = append(validationErrors, fmt.Sprintf("%s %s prompt file not found: %s", f.Kind, f.Operation, absPath))
		}
	}

	if len(validationErrors) > 0 {
		return fmt.Errorf("prompt file validation failed:\n%s", strings.Join(validationErrors, "\n"))
	}

	return nil
}
