// Package visualization renders table columns as bar, line, scatter and
// heat map charts using gonum.org/v1/plot.
//
//	chart, err := visualization.NewChart(visualization.KindLine, "Temperature")
//	if err != nil {
//	    return err
//	}
//	if err := chart.Plot(tbl, visualization.Options{X: "date", Y: []string{"temperature"}}); err != nil {
//	    return err
//	}
//	err = chart.Save("reports/charts/temperature.png")
//
// Save before a successful Plot returns ErrNotPlotted.
package visualization
