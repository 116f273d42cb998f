package file

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/previsit-labs/previsit-cli/internal/core/ports/driven"
)

// Ensure PromptStore implements the interface.
var _ driven.PromptStore = (*PromptStore)(nil)

// PromptStore loads LLM prompts from user-editable files on disk, with
// fallback to embedded defaults.
//
// Initialisation is lazy: files are only created on first access, not in
// the constructor, so tests never trigger unexpected I/O.
type PromptStore struct {
	mu        sync.RWMutex
	promptDir string
	cache     map[string]string
	initOnce  sync.Once
	initErr   error
}

// defaultPrompts contains embedded default prompts. They are used when
// user files don't exist and as the initial content for new files.
//
//nolint:lll // Prompt content is intentionally long and should not be wrapped.
var defaultPrompts = map[string]string{
	driven.PromptFollowup: `You are helping a patient prepare for a doctor's visit by asking ONE clarifying question.

Symptoms described so far: %s
Most recent exchange:
%s

Ask clarifying question %d of %d. The question must be answerable by choosing one of 2-3 short options. Never ask for a diagnosis or suggest one.

Respond in EXACTLY this format:
Question: <the question>
A) <option>
B) <option>
C) <option, optional>`,

	driven.PromptTriageSystem: `You are a pre-visit screening assistant. Using ONLY the reference material and conversation provided, write a triage summary for the patient to discuss with their doctor.

You must respond with EXACTLY these four markdown sections, each non-empty:

## Candidate Conditions
What the symptoms might indicate. Use cautious language ("may", "could be consistent with"). Never state a diagnosis.

## Urgency Level
How soon the patient should be seen (e.g. routine visit, within 48 hours, same day).

## Red Flags
Warning signs that should prompt immediate medical attention.

## Suggested Tests
Tests or topics the patient may want to raise at the visit.

Do not add other sections. Do not prescribe treatment or medication.`,

	driven.PromptTriageReformat: `Your previous response did not follow the required structure. Rewrite it using EXACTLY the four sections "## Candidate Conditions", "## Urgency Level", "## Red Flags", and "## Suggested Tests", each with content. Output nothing else. Previous response follows:`,

	driven.PromptScopeClassifier: `Is the following message about a health concern, symptom, or medical question? Answer with exactly one word: YES or NO.

Message: %s`,
}

// NewPromptStore creates a new file-based prompt store.
// If promptDir is empty, defaults to ~/.previsit/prompts/.
func NewPromptStore(promptDir string) (*PromptStore, error) {
	if promptDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		promptDir = filepath.Join(home, ".previsit", "prompts")
	}

	return &PromptStore{
		promptDir: promptDir,
		cache:     make(map[string]string),
	}, nil
}

// Load returns the prompt template for the given name. On first call it
// initialises the prompt directory and writes the default files. Falls
// back to the embedded default if the file is missing or unreadable.
func (s *PromptStore) Load(name string) (string, error) {
	s.initOnce.Do(s.initialise)
	if s.initErr != nil {
		if prompt, ok := defaultPrompts[name]; ok {
			return prompt, nil
		}
		return "", fmt.Errorf("prompt store init failed: %w", s.initErr)
	}

	s.mu.RLock()
	if prompt, ok := s.cache[name]; ok {
		s.mu.RUnlock()
		return prompt, nil
	}
	s.mu.RUnlock()

	// Load from file (no lock held during I/O)
	prompt, err := s.loadFromFile(name)
	if err != nil {
		if defaultPrompt, ok := defaultPrompts[name]; ok {
			return defaultPrompt, nil
		}
		return "", fmt.Errorf("load prompt %q: %w", name, err)
	}

	// Double-check so a concurrent load's value wins consistently.
	s.mu.Lock()
	if _, ok := s.cache[name]; !ok {
		s.cache[name] = prompt
	} else {
		prompt = s.cache[name]
	}
	s.mu.Unlock()

	return prompt, nil
}

// Reload clears the prompt cache, forcing fresh loads from disk.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	s.cache = make(map[string]string)
	s.mu.Unlock()
}

// Dir returns the prompt directory path.
func (s *PromptStore) Dir() string {
	return s.promptDir
}

// initialise creates the prompt directory and default files.
// Called once via sync.Once on first Load().
func (s *PromptStore) initialise() {
	if err := os.MkdirAll(s.promptDir, 0700); err != nil {
		s.initErr = fmt.Errorf("create prompt directory: %w", err)
		return
	}

	// Create default prompt files (only if they don't exist)
	for name, content := range defaultPrompts {
		path := filepath.Join(s.promptDir, name+".txt")
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := os.WriteFile(path, []byte(content), 0600); err != nil {
				s.initErr = fmt.Errorf("create default prompt %q: %w", name, err)
				return
			}
		}
	}

	if err := s.createReadme(); err != nil {
		s.initErr = err
	}
}

// loadFromFile reads a prompt from disk.
func (s *PromptStore) loadFromFile(name string) (string, error) {
	path := filepath.Join(s.promptDir, name+".txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// createReadme writes a README file explaining the prompts directory.
func (s *PromptStore) createReadme() error {
	path := filepath.Join(s.promptDir, "README.md")
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		return nil // Already exists or stat error (ignore)
	}

	content := `# Previsit Prompts

This directory contains customisable prompts used by previsit's LLM features.

## Files

- ` + "`followup_question.txt`" + ` - Generates one clarifying multiple-choice question
- ` + "`triage_system.txt`" + ` - Constrains the final note to the required sections
- ` + "`triage_reformat.txt`" + ` - Retry instruction after a malformed note
- ` + "`scope_classifier.txt`" + ` - Decides whether input is health-related

## Customisation

Edit any file to customise behaviour. Changes take effect on the next
command or a new chat session.

## Format Placeholders

Some prompts use Go fmt placeholders:
- ` + "`%s`" + ` - String (e.g., the symptoms or message)
- ` + "`%d`" + ` - Integer (e.g., question number)

Ensure customised prompts maintain placeholders in the correct positions.
`
	return os.WriteFile(path, []byte(content), 0600)
}
