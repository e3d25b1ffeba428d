package validation

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/itchyny/timefmt-go"
	"gopkg.in/yaml.v2"
)

// Today is the date bound keyword that resolves to the current date
const Today = "today"

// RuleSpec is the declarative form of a rule as found in rule files and API requests
type RuleSpec struct {
	Kind          string     `yaml:"kind" json:"kind" validate:"required"`
	Columns       []string   `yaml:"columns,omitempty" json:"columns,omitempty" validate:"dive,required"`
	Min           *float64   `yaml:"min,omitempty" json:"min,omitempty"`
	Max           *float64   `yaml:"max,omitempty" json:"max,omitempty"`
	Format        string     `yaml:"format,omitempty" json:"format,omitempty"`
	Start         string     `yaml:"start,omitempty" json:"start,omitempty"`
	End           string     `yaml:"end,omitempty" json:"end,omitempty"`
	Allowed       []string   `yaml:"allowed,omitempty" json:"allowed,omitempty" validate:"required_if=Kind categorical"`
	CaseSensitive *bool      `yaml:"case_sensitive,omitempty" json:"case_sensitive,omitempty"`
	Rules         []RuleSpec `yaml:"rules,omitempty" json:"rules,omitempty" validate:"dive"`
}

// RuleSet is a named, ordered list of rule specs
type RuleSet struct {
	Name  string     `yaml:"name" json:"name"`
	Rules []RuleSpec `yaml:"rules" json:"rules" validate:"dive"`
}

// Constructor builds a rule from its spec. The registry is passed so that
// nested specs can be built.
type Constructor func(spec RuleSpec, reg *Registry) (Rule, error)

// Registry maps rule kinds to constructors
type Registry struct {
	mu           sync.RWMutex
	constructors map[string]Constructor
	validate     *validator.Validate
	now          func() time.Time
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		constructors: make(map[string]Constructor),
		validate:     validator.New(),
		now:          time.Now,
	}
}

// DefaultRegistry returns a registry that knows the built-in rule kinds
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.mustRegister(KindNumeric, buildNumeric)
	r.mustRegister(KindDate, buildDate)
	r.mustRegister(KindCategorical, buildCategorical)
	r.mustRegister(KindComposite, buildComposite)
	return r
}

// Register adds a constructor for kind
func (r *Registry) Register(kind string, c Constructor) error {
	if kind == "" {
		return fmt.Errorf("rule kind cannot be empty")
	}
	if c == nil {
		return fmt.Errorf("cannot register nil constructor for kind %s", kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.constructors[kind]; exists {
		return fmt.Errorf("rule kind %s already registered", kind)
	}
	r.constructors[kind] = c
	return nil
}

func (r *Registry) mustRegister(kind string, c Constructor) {
	if err := r.Register(kind, c); err != nil {
		panic(err)
	}
}

// Kinds returns the registered kinds in sorted order
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.constructors))
	for k := range r.constructors {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Build validates spec and constructs the rule it describes
func (r *Registry) Build(spec RuleSpec) (Rule, error) {
	if err := r.validate.Struct(spec); err != nil {
		return nil, configError(specKind(spec), "%s", describeValidation(err))
	}

	r.mu.RLock()
	c, ok := r.constructors[spec.Kind]
	r.mu.RUnlock()
	if !ok {
		return nil, configError(spec.Kind, "unknown rule kind")
	}
	return c(spec, r)
}

// Build turns the rule set into a composite using reg
func (s *RuleSet) Build(reg *Registry) (*Composite, error) {
	composite := NewComposite()
	for i, spec := range s.Rules {
		rule, err := reg.Build(spec)
		if err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
		composite.Add(rule)
	}
	return composite, nil
}

// ParseRuleSet decodes a YAML (or JSON) rule set. Unknown keys are rejected.
func ParseRuleSet(data []byte) (*RuleSet, error) {
	var set RuleSet
	if err := yaml.UnmarshalStrict(data, &set); err != nil {
		return nil, configError("rule set", "parse: %v", err)
	}
	return &set, nil
}

// LoadRuleSet reads and decodes a rule set file
func LoadRuleSet(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule set %s: %w", path, err)
	}
	set, err := ParseRuleSet(data)
	if err != nil {
		return nil, fmt.Errorf("rule set %s: %w", path, err)
	}
	if set.Name == "" {
		set.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return set, nil
}

func buildNumeric(spec RuleSpec, _ *Registry) (Rule, error) {
	if spec.Min != nil && spec.Max != nil && *spec.Min > *spec.Max {
		return nil, configError(KindNumeric, "min %s is greater than max %s", formatNumber(*spec.Min), formatNumber(*spec.Max))
	}
	var opts []NumericOption
	if spec.Min != nil {
		opts = append(opts, WithMin(*spec.Min))
	}
	if spec.Max != nil {
		opts = append(opts, WithMax(*spec.Max))
	}
	return NewNumeric(spec.Columns, opts...), nil
}

func buildDate(spec RuleSpec, reg *Registry) (Rule, error) {
	format := spec.Format
	if format == "" {
		format = DefaultDateFormat
	}
	resolve := func(bound string) string {
		if strings.EqualFold(bound, Today) {
			return timefmt.Format(reg.now(), format)
		}
		return bound
	}

	rule := NewDate(spec.Columns, WithFormat(format), WithStart(resolve(spec.Start)), WithEnd(resolve(spec.End)))
	if _, err := rule.compile(); err != nil {
		return nil, err
	}
	return rule, nil
}

func buildCategorical(spec RuleSpec, _ *Registry) (Rule, error) {
	var opts []CategoricalOption
	if spec.CaseSensitive != nil {
		opts = append(opts, WithCaseSensitive(*spec.CaseSensitive))
	}
	return NewCategorical(spec.Columns, spec.Allowed, opts...), nil
}

func buildComposite(spec RuleSpec, reg *Registry) (Rule, error) {
	composite := NewComposite()
	for i, child := range spec.Rules {
		rule, err := reg.Build(child)
		if err != nil {
			return nil, fmt.Errorf("composite child %d: %w", i, err)
		}
		composite.Add(rule)
	}
	return composite, nil
}

func specKind(spec RuleSpec) string {
	if spec.Kind == "" {
		return "unnamed"
	}
	return spec.Kind
}

func describeValidation(err error) string {
	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("field %s failed %s", fe.Namespace(), fe.Tag()))
	}
	return strings.Join(msgs, "; ")
}
