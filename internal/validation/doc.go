// Package validation checks tabular data against typed column rules.
//
// A Rule scans one or more columns of a domain.Table and returns a Result
// holding the (possibly coerced) table and one message per bad cell:
//
//	rule := validation.NewComposite().
//	    Add(validation.NewNumeric([]string{"temperature"}, validation.WithMin(0), validation.WithMax(100))).
//	    Add(validation.NewDate([]string{"date"}, validation.WithFormat("%Y-%m-%d")))
//
//	res, err := rule.Validate(table)
//	if err != nil {
//	    // misconfigured rule, errors.Is(err, validation.ErrInvalidRuleConfig)
//	}
//	for _, msg := range res.Errors() { ... }
//
// Bad data never produces an error value. Only a rule that cannot be applied
// at all (an unknown strftime directive, a bound that does not match the
// format) fails the call.
//
// Rule files are YAML documents decoded into a RuleSet and turned into rules
// by a Registry keyed by rule kind. FileValidator checks paths before loaders
// and writers touch them.
//
// Rules do not log and hold no state between calls; one rule value may be
// used from several goroutines.
package validation
