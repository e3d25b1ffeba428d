package validation

import (
	"fmt"

	"datacheck/pkg/contracts/domain"
)

// Composite runs its child rules in insertion order, each against the table
// produced by the previous one, and merges their findings.
type Composite struct {
	rules []Rule
}

// NewComposite creates a composite holding rules
func NewComposite(rules ...Rule) *Composite {
	c := &Composite{}
	for _, r := range rules {
		c.Add(r)
	}
	return c
}

// Add appends a rule and returns the composite for chaining.
// Nil rules are ignored.
func (c *Composite) Add(rule Rule) *Composite {
	if rule != nil {
		c.rules = append(c.rules, rule)
	}
	return c
}

// Rules returns the child rules in order
func (c *Composite) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}

// Len returns the number of child rules
func (c *Composite) Len() int {
	return len(c.rules)
}

func (c *Composite) Kind() string { return KindComposite }

// Validate fails as soon as a child reports a structural fault; the
// findings of children that already ran are discarded.
func (c *Composite) Validate(table *domain.Table) (*Result, error) {
	if table == nil {
		return nil, configError(KindComposite, "nil table")
	}

	current := table
	var errs []string
	invalid := make(map[int]struct{})

	for i, rule := range c.rules {
		res, err := rule.Validate(current)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, rule.Kind(), err)
		}
		errs = append(errs, res.errors...)
		for _, row := range res.invalidRows {
			invalid[row] = struct{}{}
		}
		current = res.data
	}

	return newResult(current, errs, invalid), nil
}
