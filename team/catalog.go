package team

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/agentforge-io/agentcoord/core"
)

// Catalog is a read-only set of team templates keyed by id. The zero value
// is unusable; construct via BuiltinCatalog, LoadCatalog or ParseCatalog.
type Catalog struct {
	mu        sync.RWMutex
	templates map[string]*core.TeamTemplate
}

// NewCatalog builds a catalog from the given templates.
func NewCatalog(templates ...*core.TeamTemplate) *Catalog {
	c := &Catalog{templates: make(map[string]*core.TeamTemplate, len(templates))}
	for _, tpl := range templates {
		c.templates[tpl.ID] = tpl
	}
	return c
}

// Get returns the template with the given id.
func (c *Catalog) Get(templateID string) (*core.TeamTemplate, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	tpl, ok := c.templates[templateID]
	if !ok {
		return nil, fmt.Errorf("%w: team template %q", core.ErrNotFound, templateID)
	}
	return tpl, nil
}

// List returns all templates ordered by id.
func (c *Catalog) List() []*core.TeamTemplate {
	c.mu.RLock()
	defer c.mu.RUnlock()
	result := make([]*core.TeamTemplate, 0, len(c.templates))
	for _, tpl := range c.templates {
		result = append(result, tpl)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result
}

// Register adds or replaces a template.
func (c *Catalog) Register(tpl *core.TeamTemplate) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates[tpl.ID] = tpl
}

// catalogFile is the YAML document shape for template files.
type catalogFile struct {
	Templates []*core.TeamTemplate `yaml:"templates"`
}

// ParseCatalog reads a catalog from YAML bytes.
func ParseCatalog(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse template catalog: %w", err)
	}
	for _, tpl := range file.Templates {
		if tpl.ID == "" {
			return nil, fmt.Errorf("parse template catalog: template %q has no id", tpl.Name)
		}
	}
	return NewCatalog(file.Templates...), nil
}

// LoadCatalog reads a catalog from a YAML file.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load template catalog: %w", err)
	}
	return ParseCatalog(data)
}

// BuiltinCatalog returns the default templates shipped with the library.
func BuiltinCatalog() *Catalog {
	return NewCatalog(
		&core.TeamTemplate{
			ID:          "trading-desk",
			Name:        "Trading Desk",
			Description: "Market analysis and trade execution with risk oversight",
			Roles: []core.TemplateRole{
				{Role: "desk-lead", EmployeeType: "manager", Responsibilities: []string{"prioritize coverage", "approve trades"}},
				{Role: "market-analyst", EmployeeType: "analyst", Responsibilities: []string{"monitor markets", "produce signals"}},
				{Role: "risk-officer", EmployeeType: "analyst", Responsibilities: []string{"check exposure", "flag limit breaches"}},
				{Role: "execution-trader", EmployeeType: "operator", Responsibilities: []string{"execute approved trades"}},
			},
			Workflows: []string{"signal-review", "trade-approval", "daily-risk-report"},
		},
		&core.TeamTemplate{
			ID:          "hr-operations",
			Name:        "HR Operations",
			Description: "Employee onboarding, records and leave management",
			Roles: []core.TemplateRole{
				{Role: "hr-lead", EmployeeType: "manager", Responsibilities: []string{"assign cases", "escalations"}},
				{Role: "onboarding-specialist", EmployeeType: "specialist", Responsibilities: []string{"new hire setup", "orientation"}},
				{Role: "records-clerk", EmployeeType: "specialist", Responsibilities: []string{"maintain records", "answer queries"}},
			},
			Workflows: []string{"onboarding-checklist", "leave-approval"},
		},
		&core.TeamTemplate{
			ID:          "research",
			Name:        "Research",
			Description: "Topic research with synthesis and review",
			Roles: []core.TemplateRole{
				{Role: "research-lead", EmployeeType: "manager", Responsibilities: []string{"scope questions", "review findings"}},
				{Role: "researcher", EmployeeType: "analyst", Responsibilities: []string{"gather sources", "summarize"}},
				{Role: "reviewer", EmployeeType: "analyst", Responsibilities: []string{"fact-check", "critique"}},
			},
			Workflows: []string{"research-brief", "peer-review"},
		},
	)
}
