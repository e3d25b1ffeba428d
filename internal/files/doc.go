// Package files discovers the datasets, rule sets and report runs kept in the
// datacheck working directories.
//
//	discovery := files.NewDiscovery(paths.BaseDir)
//	datasets, err := discovery.FindDatasets("data")
//	rules, err := discovery.FindRuleSets("rules")
//	runs, err := discovery.ListDirectories("reports")
//
// Relative directories resolve against the base path. Listings are ordered
// oldest first.
package files
