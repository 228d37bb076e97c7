package core

// TemplateRole describes one seat in a team template. Role names are free
// text; they are mapped to concrete agent ids at team creation and are not
// validated against any schema.
type TemplateRole struct {
	Role             string   `json:"role" yaml:"role"`
	EmployeeType     string   `json:"employee_type" yaml:"employee_type"`
	Responsibilities []string `json:"responsibilities,omitempty" yaml:"responsibilities,omitempty"`
}

// TeamTemplate is a static blueprint for a team: a named set of roles and
// suggested workflows. Templates are read-only catalog entries consumed by
// the team registry's FromTemplate constructor.
type TeamTemplate struct {
	ID          string         `json:"id" yaml:"id"`
	Name        string         `json:"name" yaml:"name"`
	Description string         `json:"description" yaml:"description"`
	Roles       []TemplateRole `json:"roles" yaml:"roles"`
	Workflows   []string       `json:"workflows,omitempty" yaml:"workflows,omitempty"`
}
