package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v2"
)

// Config is the full set of declared jobs, keyed by job name.
type Config struct {
	Jobs map[string]*Job

	// dir is the directory containing the config file, used to resolve
	// relative hook paths.
	dir string
}

// Job is one named source→target transfer specification.
type Job struct {
	Source ConnSpec
	Target ConnSpec
	Tables []TableRule // config-file order; may contain the "*" wildcard
	Hooks  HooksSpec
}

// ConnSpec identifies one side of a job: a PostgreSQL connection URL and a
// schema name. The schema must be a bare identifier since it flows into DDL.
type ConnSpec struct {
	DSN    string
	Schema string
}

// TableRule binds a table name (or the "*" wildcard) to its filter and
// projection.
type TableRule struct {
	Table  string
	Where  *FilterSpec
	Select *ProjectionSpec
}

// loadConfig reads a job config file, picking the decoder by extension.
func loadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg *Config
	switch ext := filepath.Ext(path); ext {
	case ".toml":
		cfg, err = loadTOMLConfig(data)
	case ".yaml", ".yml":
		cfg, err = loadYAMLConfig(data)
	default:
		return nil, configErrorf("unsupported config extension %q (want .toml, .yaml, .yml)", ext)
	}
	if err != nil {
		return nil, err
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}
	cfg.dir = filepath.Dir(absPath)

	if len(cfg.Jobs) == 0 {
		return nil, configErrorf("no jobs defined")
	}
	for name, job := range cfg.Jobs {
		if err := validateJob(name, job); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

func validateJob(name string, job *Job) error {
	for _, side := range []struct {
		role string
		conn ConnSpec
	}{{"source", job.Source}, {"target", job.Target}} {
		if side.conn.DSN == "" {
			return configErrorf("job %s: %s.dsn is required", name, side.role)
		}
		if side.conn.Schema == "" {
			return configErrorf("job %s: %s.schema is required", name, side.role)
		}
		if pgNeedsQuoting(side.conn.Schema) {
			return configErrorf("job %s: %s.schema %q is not a bare identifier", name, side.role, side.conn.Schema)
		}
	}
	if len(job.Tables) == 0 {
		return configErrorf("job %s: no tables declared", name)
	}
	seen := make(map[string]bool, len(job.Tables))
	for _, tr := range job.Tables {
		if seen[tr.Table] {
			return configErrorf("job %s: table %q declared twice", name, tr.Table)
		}
		seen[tr.Table] = true
	}
	return nil
}

// --- TOML ---

type tomlFile struct {
	Jobs map[string]tomlJob `toml:"jobs"`
}

type tomlJob struct {
	Source tomlConn             `toml:"source"`
	Target tomlConn             `toml:"target"`
	Tables map[string]tomlTable `toml:"tables"`
	Hooks  tomlHooks            `toml:"hooks"`
}

type tomlHooks struct {
	BeforeData       []string `toml:"before_data"`
	AfterConstraints []string `toml:"after_constraints"`
}

type tomlConn struct {
	DSN    string `toml:"dsn"`
	Schema string `toml:"schema"`
}

type tomlTable struct {
	Where  any            `toml:"where"`
	Select map[string]any `toml:"select"`
}

func loadTOMLConfig(data []byte) (*Config, error) {
	var f tomlFile
	md, err := toml.Decode(string(data), &f)
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if unknown := md.Undecoded(); len(unknown) > 0 {
		keys := make([]string, len(unknown))
		for i, k := range unknown {
			keys[i] = k.String()
		}
		return nil, configErrorf("unknown config keys: %s", strings.Join(keys, ", "))
	}

	cfg := &Config{Jobs: make(map[string]*Job, len(f.Jobs))}
	for name, tj := range f.Jobs {
		job := &Job{
			Source: ConnSpec(tj.Source),
			Target: ConnSpec(tj.Target),
			Hooks: HooksSpec{
				BeforeData:       tj.Hooks.BeforeData,
				AfterConstraints: tj.Hooks.AfterConstraints,
			},
		}
		for _, table := range tomlKeyOrder(md, "jobs", name, "tables") {
			tt := tj.Tables[table]

			where, err := tomlFilter(md, name, table, tt.Where)
			if err != nil {
				return nil, err
			}
			sel, err := buildProjection(orderedEntries(tt.Select, tomlKeyOrder(md, "jobs", name, "tables", table, "select")), name, table)
			if err != nil {
				return nil, err
			}
			job.Tables = append(job.Tables, TableRule{Table: table, Where: where, Select: sel})
		}
		cfg.Jobs[name] = job
	}
	return cfg, nil
}

// tomlKeyOrder returns the immediate child key names under prefix, in the
// order they were defined in the file.
func tomlKeyOrder(md toml.MetaData, prefix ...string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, key := range md.Keys() {
		if len(key) != len(prefix)+1 {
			continue
		}
		match := true
		for i, p := range prefix {
			if key[i] != p {
				match = false
				break
			}
		}
		if !match {
			continue
		}
		name := key[len(prefix)]
		if !seen[name] {
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

func tomlFilter(md toml.MetaData, job, table string, where any) (*FilterSpec, error) {
	switch w := where.(type) {
	case nil:
		return nil, nil
	case string:
		return &FilterSpec{Raw: w, IsRaw: true}, nil
	case map[string]any:
		f := &FilterSpec{}
		for _, col := range mapKeyOrder(w, tomlKeyOrder(md, "jobs", job, "tables", table, "where")) {
			f.Fields = append(f.Fields, FilterField{Column: col, Value: w[col]})
		}
		return f, nil
	default:
		return nil, configErrorf("job %s: table %s: where must be a string or a mapping, got %T", job, table, where)
	}
}

// --- YAML ---

type yamlFile struct {
	Jobs map[string]yamlJob `yaml:"jobs"`
}

type yamlJob struct {
	Source yamlConn      `yaml:"source"`
	Target yamlConn      `yaml:"target"`
	Tables yaml.MapSlice `yaml:"tables"`
	Hooks  yamlHooks     `yaml:"hooks"`
}

type yamlHooks struct {
	BeforeData       []string `yaml:"before_data"`
	AfterConstraints []string `yaml:"after_constraints"`
}

type yamlConn struct {
	DSN    string `yaml:"dsn"`
	Schema string `yaml:"schema"`
}

func loadYAMLConfig(data []byte) (*Config, error) {
	var f yamlFile
	if err := yaml.UnmarshalStrict(data, &f); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg := &Config{Jobs: make(map[string]*Job, len(f.Jobs))}
	for name, yj := range f.Jobs {
		job := &Job{
			Source: ConnSpec(yj.Source),
			Target: ConnSpec(yj.Target),
			Hooks: HooksSpec{
				BeforeData:       yj.Hooks.BeforeData,
				AfterConstraints: yj.Hooks.AfterConstraints,
			},
		}
		for _, item := range yj.Tables {
			table, ok := item.Key.(string)
			if !ok {
				return nil, configErrorf("job %s: table name must be a string, got %v", name, item.Key)
			}
			rule, err := yamlTableRule(name, table, item.Value)
			if err != nil {
				return nil, err
			}
			job.Tables = append(job.Tables, rule)
		}
		cfg.Jobs[name] = job
	}
	return cfg, nil
}

func yamlTableRule(job, table string, spec any) (TableRule, error) {
	rule := TableRule{Table: table}
	if spec == nil {
		return rule, nil
	}
	body, ok := spec.(yaml.MapSlice)
	if !ok {
		return rule, configErrorf("job %s: table %s: spec must be a mapping, got %T", job, table, spec)
	}
	for _, item := range body {
		key, _ := item.Key.(string)
		switch key {
		case "where":
			where, err := yamlFilter(job, table, item.Value)
			if err != nil {
				return rule, err
			}
			rule.Where = where
		case "select":
			entries, err := yamlOrderedEntries(job, table, item.Value)
			if err != nil {
				return rule, err
			}
			sel, err := buildProjection(entries, job, table)
			if err != nil {
				return rule, err
			}
			rule.Select = sel
		default:
			return rule, configErrorf("job %s: table %s: unknown key %q (want where, select)", job, table, key)
		}
	}
	return rule, nil
}

func yamlFilter(job, table string, where any) (*FilterSpec, error) {
	switch w := where.(type) {
	case nil:
		return nil, nil
	case string:
		return &FilterSpec{Raw: w, IsRaw: true}, nil
	case yaml.MapSlice:
		f := &FilterSpec{}
		for _, item := range w {
			col, ok := item.Key.(string)
			if !ok {
				return nil, configErrorf("job %s: table %s: filter column must be a string, got %v", job, table, item.Key)
			}
			f.Fields = append(f.Fields, FilterField{Column: col, Value: yamlValue(item.Value)})
		}
		return f, nil
	default:
		return nil, configErrorf("job %s: table %s: where must be a string or a mapping, got %T", job, table, where)
	}
}

// yamlValue converts ordered yaml mappings into plain maps so filter values
// have one shape regardless of the config format.
func yamlValue(v any) any {
	switch x := v.(type) {
	case yaml.MapSlice:
		m := make(map[string]any, len(x))
		for _, item := range x {
			if k, ok := item.Key.(string); ok {
				m[k] = yamlValue(item.Value)
			}
		}
		return m
	case []any:
		out := make([]any, len(x))
		for i, item := range x {
			out[i] = yamlValue(item)
		}
		return out
	default:
		return v
	}
}

func yamlOrderedEntries(job, table string, sel any) ([]rawEntry, error) {
	if sel == nil {
		return nil, nil
	}
	body, ok := sel.(yaml.MapSlice)
	if !ok {
		return nil, configErrorf("job %s: table %s: select must be a mapping, got %T", job, table, sel)
	}
	entries := make([]rawEntry, 0, len(body))
	for _, item := range body {
		key, ok := item.Key.(string)
		if !ok {
			return nil, configErrorf("job %s: table %s: select column must be a string, got %v", job, table, item.Key)
		}
		entries = append(entries, rawEntry{key: key, value: item.Value})
	}
	return entries, nil
}

// --- shared projection assembly ---

// rawEntry is one select entry before interpretation, in config order.
type rawEntry struct {
	key   string
	value any
}

func orderedEntries(sel map[string]any, order []string) []rawEntry {
	if sel == nil {
		return nil
	}
	entries := make([]rawEntry, 0, len(sel))
	for _, key := range mapKeyOrder(sel, order) {
		entries = append(entries, rawEntry{key: key, value: sel[key]})
	}
	return entries
}

// mapKeyOrder returns m's keys following the recovered file order, with any
// keys the order list missed appended alphabetically.
func mapKeyOrder(m map[string]any, order []string) []string {
	out := make([]string, 0, len(m))
	taken := make(map[string]bool, len(m))
	for _, key := range order {
		if _, ok := m[key]; ok && !taken[key] {
			taken[key] = true
			out = append(out, key)
		}
	}
	var rest []string
	for key := range m {
		if !taken[key] {
			rest = append(rest, key)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// buildProjection interprets select entries. The "*" key toggles inclusive
// mode; a string value is a raw SQL expression; true keeps the column as-is;
// false (TOML has no null) or null marks an exclusion.
func buildProjection(entries []rawEntry, job, table string) (*ProjectionSpec, error) {
	if entries == nil {
		return nil, nil
	}
	p := &ProjectionSpec{}
	for _, e := range entries {
		if e.key == "*" {
			on, ok := e.value.(bool)
			if !ok {
				return nil, configErrorf("job %s: table %s: select \"*\" must be a boolean, got %T", job, table, e.value)
			}
			p.Inclusive = on
			continue
		}
		switch v := e.value.(type) {
		case nil:
			p.Entries = append(p.Entries, ProjectionEntry{Column: e.key, Exclude: true})
		case bool:
			if v {
				p.Entries = append(p.Entries, ProjectionEntry{Column: e.key})
			} else {
				p.Entries = append(p.Entries, ProjectionEntry{Column: e.key, Exclude: true})
			}
		case string:
			p.Entries = append(p.Entries, ProjectionEntry{Column: e.key, Expr: v})
		default:
			return nil, configErrorf("job %s: table %s: select %s: want an expression string, boolean, or null, got %T", job, table, e.key, e.value)
		}
	}
	return p, nil
}
