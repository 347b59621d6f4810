package config

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v3"
)

// LoadBackends reads the alias/backend table from a YAML file on disk. The
// table is held in memory by the proxy core for the lifetime of the process;
// there is no hot-reload endpoint, matching the "process-local, reset on
// restart" treatment of mutable state described in the spec.
func LoadBackends(path string) (BackendTable, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return BackendTable{}, fmt.Errorf("read backends file %q: %w", path, err)
	}
	var table BackendTable
	if err := yaml.Unmarshal(b, &table); err != nil {
		return BackendTable{}, fmt.Errorf("parse backends file %q: %w", path, err)
	}
	if table.Backends == nil {
		table.Backends = map[string]Backend{}
	}
	if table.Aliases == nil {
		table.Aliases = map[string]string{}
	}
	return table, nil
}

// Resolve implements the two-stage model lookup from spec §4.1: alias table
// first, then backend table; an unrecognized name containing "/" is treated
// as an OpenRouter passthrough (upstream_model_name is the slash-form name
// itself), otherwise the configured default is used.
func (t BackendTable) Resolve(model string) (canonical string, backend Backend, ok bool) {
	canonical = model
	if alias, found := t.Aliases[model]; found {
		canonical = alias
	}
	if b, found := t.Backends[canonical]; found {
		return canonical, b, true
	}
	if containsSlash(model) {
		b := t.OpenRouter
		b.UpstreamName = model
		return model, b, b.BaseURL != ""
	}
	if t.Default != "" {
		if b, found := t.Backends[t.Default]; found {
			return t.Default, b, true
		}
	}
	return canonical, Backend{}, false
}

func containsSlash(s string) bool {
	for _, r := range s {
		if r == '/' {
			return true
		}
	}
	return false
}
