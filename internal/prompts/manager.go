package prompts

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"
)

// embeds all .yaml files in the templates folder into Go program at compile time
//
//go:embed templates/*.yaml
var templateFS embed.FS

// PromptProvider builds prompts by template name and level.
type PromptProvider interface {
	BuildPrompt(mode, level string, data interface{}) (string, error)
	GetTemplates() map[string]map[string]*template.Template
}

var _ PromptProvider = (*PromptManager)(nil)

type PromptManager struct {
	prompts map[string]map[string]*template.Template // mode -> level -> compiled prompt
}

// loaded prompt template
type PromptTemplate struct {
	BasePrompt   string            `yaml:"base_prompt"`
	DetailLevels map[string]string `yaml:"detail_levels"`
}

// creates a new prompt manager and loads templates
func NewPromptManager() (*PromptManager, error) {
	pm := &PromptManager{
		prompts: make(map[string]map[string]*template.Template),
	}

	if err := pm.loadPrompts(); err != nil {
		return nil, fmt.Errorf("failed to load prompt templates: %w", err)
	}

	return pm, nil
}

// builds a prompt for the given mode and level from data
func (pm *PromptManager) BuildPrompt(mode, level string, data interface{}) (string, error) {
	modePrompts, exists := pm.prompts[mode]
	if !exists {
		return "", fmt.Errorf("template not found for mode: %s", mode)
	}

	tmpl, exists := modePrompts[level]
	if !exists {
		return "", fmt.Errorf("level '%s' not found for mode '%s'", level, mode)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s/%s prompt: %w", mode, level, err)
	}
	return buf.String(), nil
}

func (pm *PromptManager) GetTemplates() map[string]map[string]*template.Template {
	return pm.prompts
}

// loadPrompts loads all YAML prompt files from the embedded filesystem
func (pm *PromptManager) loadPrompts() error {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return fmt.Errorf("failed to read templates directory: %w", err)
	}

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}

		data, err := templateFS.ReadFile("templates/" + entry.Name())
		if err != nil {
			return fmt.Errorf("failed to read template file %s: %w", entry.Name(), err)
		}

		var promptTemplate PromptTemplate
		if err := yaml.Unmarshal(data, &promptTemplate); err != nil {
			return fmt.Errorf("failed to parse template file %s: %w", entry.Name(), err)
		}

		name := strings.TrimSuffix(entry.Name(), ".yaml")
		pm.prompts[name] = make(map[string]*template.Template)

		for level, levelPrompt := range promptTemplate.DetailLevels {
			var fullPrompt strings.Builder
			if promptTemplate.BasePrompt != "" {
				fullPrompt.WriteString(promptTemplate.BasePrompt)
				fullPrompt.WriteString("\n\n")
			}
			fullPrompt.WriteString(levelPrompt)

			tmpl, err := template.New(name + "/" + level).
				Option("missingkey=error").
				Parse(fullPrompt.String())
			if err != nil {
				return fmt.Errorf("failed to compile %s/%s: %w", name, level, err)
			}
			pm.prompts[name][level] = tmpl
		}
	}

	return nil
}
