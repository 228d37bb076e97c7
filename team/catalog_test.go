package team

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentforge-io/agentcoord/core"
)

func TestBuiltinCatalog(t *testing.T) {
	c := BuiltinCatalog()

	tpl, err := c.Get("trading-desk")
	require.NoError(t, err)
	assert.Equal(t, "Trading Desk", tpl.Name)
	assert.NotEmpty(t, tpl.Roles)

	_, err = c.Get("missing")
	assert.ErrorIs(t, err, core.ErrNotFound)

	list := c.List()
	require.Len(t, list, 3)
	assert.Equal(t, "hr-operations", list[0].ID, "ordered by id")
}

const catalogYAML = `
templates:
  - id: support-desk
    name: Support Desk
    description: Customer support triage
    roles:
      - role: triage-lead
        employee_type: manager
        responsibilities:
          - route tickets
      - role: responder
        employee_type: specialist
    workflows:
      - ticket-triage
`

func TestParseCatalog(t *testing.T) {
	c, err := ParseCatalog([]byte(catalogYAML))
	require.NoError(t, err)

	tpl, err := c.Get("support-desk")
	require.NoError(t, err)
	assert.Equal(t, "Support Desk", tpl.Name)
	require.Len(t, tpl.Roles, 2)
	assert.Equal(t, "triage-lead", tpl.Roles[0].Role)
	assert.Equal(t, []string{"route tickets"}, tpl.Roles[0].Responsibilities)
	assert.Equal(t, []string{"ticket-triage"}, tpl.Workflows)
}

func TestParseCatalog_Invalid(t *testing.T) {
	_, err := ParseCatalog([]byte("templates: [nonsense"))
	assert.Error(t, err)

	_, err = ParseCatalog([]byte("templates:\n  - name: no-id\n"))
	assert.Error(t, err)
}

func TestLoadCatalog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(catalogYAML), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	_, err = c.Get("support-desk")
	assert.NoError(t, err)

	_, err = LoadCatalog(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestRegistryWithCustomCatalog(t *testing.T) {
	c, err := ParseCatalog([]byte(catalogYAML))
	require.NoError(t, err)

	r := New(func(o *Options) { o.Catalog = c })
	team, err := r.FromTemplate("support-desk", "night shift", "lead-1", map[string]string{
		"responder": "agent-7",
	})
	require.NoError(t, err)
	assert.Equal(t, "night shift", team.Name)
	assert.ElementsMatch(t, []string{"lead-1", "agent-7"}, team.Members)
}
