package validation

import "datacheck/pkg/contracts/domain"

// resolveColumns returns the columns a rule should scan. An explicit list is
// returned as given, absent names included, so the caller can report them.
// Without one, every column accepted by looksLike is selected.
func resolveColumns(table *domain.Table, explicit []string, looksLike func(domain.Column) bool) []string {
	if len(explicit) > 0 {
		return append([]string(nil), explicit...)
	}

	var names []string
	for _, name := range table.Columns() {
		col, _ := table.Column(name)
		if looksLike(col) {
			names = append(names, name)
		}
	}
	return names
}

// mostlyParse reports whether more than half of the present cells satisfy parse.
// Columns without present cells never qualify.
func mostlyParse(values []any, parse func(any) bool) bool {
	present, ok := 0, 0
	for _, v := range values {
		if domain.IsMissing(v) {
			continue
		}
		present++
		if parse(v) {
			ok++
		}
	}
	return present > 0 && ok*2 > present
}
