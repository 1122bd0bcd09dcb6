// Package persona implements the persona catalog and the runtime-mutable
// current-persona record the Response Pipeline (C5) consults for its
// system prompt and the "change persona" command mutates.
//
// Grounded on team-hashing-lokutor-orchestrator's own runtime-mutable
// {SetSystemPrompt, sessions map} pattern in the deleted orchestrator.go
// (a single-threaded-owned record updated in place, no locking), adapted
// from session-scoped state into the agent-loop-scoped Current record
// spec.md §4.5/§9 describes.
package persona

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Persona is one named bundle loaded from the catalog file.
type Persona struct {
	ID           string `json:"id"`
	DisplayName  string `json:"display_name"`
	SystemPrompt string `json:"system_prompt"`
}

// Catalog is the set of personas loaded from disk, keyed by lowercased ID.
type Catalog struct {
	byID map[string]Persona
}

// LoadCatalog reads a JSON array of Persona from path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read persona catalog: %w", err)
	}

	var list []Persona
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parse persona catalog: %w", err)
	}

	c := &Catalog{byID: make(map[string]Persona, len(list))}
	for _, p := range list {
		c.byID[strings.ToLower(p.ID)] = p
	}
	return c, nil
}

// Lookup finds a persona by case-insensitive id.
func (c *Catalog) Lookup(id string) (Persona, bool) {
	p, ok := c.byID[strings.ToLower(strings.TrimSpace(id))]
	return p, ok
}

// TranslatorPersonaID is the reserved persona id that puts the pipeline
// into translation mode (spec.md §4.5).
const TranslatorPersonaID = "translator"

// translationDirective builds the strict translation system prompt for
// targetLanguage (a display name, e.g. "Spanish").
func translationDirective(targetLanguage string) string {
	return fmt.Sprintf(
		"Translate this English radio transmission to %s verbatim. "+
			"Output ONLY the %s translation. Do not add explanations, "+
			"preamble, or commentary. Preserve the exact meaning and radio "+
			"terminology. End with 'over'.",
		targetLanguage, targetLanguage,
	)
}

// LanguageDisplayName maps a response_language code to the display name
// translationDirective expects.
func LanguageDisplayName(code string) string {
	switch strings.ToLower(code) {
	case "es":
		return "Spanish"
	case "fr":
		return "French"
	case "de":
		return "German"
	default:
		return code
	}
}

// Current is the agent-loop-owned mutable runtime record: which persona
// is active, its resolved system prompt, and the response language. It
// is never touched off the agent loop thread, so it needs no locking
// (spec.md §9 "Runtime configuration mutation").
type Current struct {
	PersonaID      string
	PersonaName    string
	SystemPrompt   string
	ResponseLang   string
	defaultPrompt  string
}

// NewCurrent seeds the record with a default system prompt used when no
// persona has been selected yet.
func NewCurrent(defaultSystemPrompt, responseLang string) *Current {
	return &Current{
		SystemPrompt: defaultSystemPrompt,
		ResponseLang: responseLang,
		defaultPrompt: defaultSystemPrompt,
	}
}

// Apply switches to persona p, resolving the translation-mode override
// described in spec.md §4.5 if p.ID is the translator persona.
func (c *Current) Apply(p Persona) {
	c.PersonaID = p.ID
	c.PersonaName = p.DisplayName

	if strings.EqualFold(p.ID, TranslatorPersonaID) {
		c.SystemPrompt = translationDirective(LanguageDisplayName(c.ResponseLang))
		return
	}
	c.SystemPrompt = p.SystemPrompt
}

// EffectiveSystemPrompt returns the prompt to pass to the LLM for the
// currently active persona, falling back to the default when none was
// ever selected.
func (c *Current) EffectiveSystemPrompt() string {
	if c.SystemPrompt == "" {
		return c.defaultPrompt
	}
	return c.SystemPrompt
}

// ChangePersonaTrigger is the literal phrase that interrupts normal
// routing to switch personas (spec.md §4.5 step 3).
const ChangePersonaTrigger = "memo change persona"

// ParseChangePersonaCommand extracts the requested persona id from a
// normalized (lowercased) transcript, or returns ok=false if the trigger
// is absent.
func ParseChangePersonaCommand(lowerTranscript string) (id string, ok bool) {
	idx := strings.Index(lowerTranscript, ChangePersonaTrigger)
	if idx < 0 {
		return "", false
	}

	rest := strings.TrimSpace(lowerTranscript[idx+len(ChangePersonaTrigger):])
	rest = strings.TrimPrefix(rest, "to")
	rest = strings.TrimSpace(rest)
	rest = strings.TrimRight(rest, ".!? \t")
	return rest, true
}
