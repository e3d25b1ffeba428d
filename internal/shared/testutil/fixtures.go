package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"datacheck/pkg/contracts/domain"
)

// WeatherCSV is a 13-row weather dataset. Row 3 carries a non-numeric
// temperature and row 7 a date that does not parse.
const WeatherCSV = `date,temperature,humidity,precipitation,location
2023-01-01,25.5,65,0,New York
2023-01-02,27.1,70,0.2,Los Angeles
2023-01-03,22.3,55,0,Chicago
2023-01-04,invalid,60,0,Houston
2023-01-05,24.8,75,1.5,Miami
2023-01-06,26.2,68,0,New York
2023-01-07,23.9,72,0.8,Los Angeles
not-a-date,21.4,58,0,Chicago
2023-01-09,28.7,80,2.1,Houston
2023-01-10,29.3,85,0,Miami
2023-01-11,24.1,62,0.4,New York
2023-01-12,22.8,66,0,Los Angeles
2023-01-13,25.0,71,0,Chicago
`

// WeatherRules is a rule set matching WeatherCSV's columns.
const WeatherRules = `name: weather
rules:
  - kind: numeric
    columns: [temperature, humidity]
    min: 0
    max: 100
  - kind: date
    columns: [date]
    format: "%Y-%m-%d"
    start: "2022-01-01"
    end: today
  - kind: categorical
    columns: [location]
    allowed: [New York, Los Angeles, Chicago, Houston, Miami]
`

// WeatherTable returns WeatherCSV as it looks after loading: the date and
// temperature columns stay raw strings because one cell in each fails to parse.
func WeatherTable(t *testing.T) *domain.Table {
	t.Helper()

	dates := []any{
		"2023-01-01", "2023-01-02", "2023-01-03", "2023-01-04", "2023-01-05",
		"2023-01-06", "2023-01-07", "not-a-date", "2023-01-09", "2023-01-10",
		"2023-01-11", "2023-01-12", "2023-01-13",
	}
	temps := []any{
		"25.5", "27.1", "22.3", "invalid", "24.8", "26.2", "23.9",
		"21.4", "28.7", "29.3", "24.1", "22.8", "25.0",
	}
	humidity := []any{65.0, 70.0, 55.0, 60.0, 75.0, 68.0, 72.0, 58.0, 80.0, 85.0, 62.0, 66.0, 71.0}
	precipitation := []any{0.0, 0.2, 0.0, 0.0, 1.5, 0.0, 0.8, 0.0, 2.1, 0.0, 0.4, 0.0, 0.0}
	locations := []any{
		"New York", "Los Angeles", "Chicago", "Houston", "Miami", "New York", "Los Angeles",
		"Chicago", "Houston", "Miami", "New York", "Los Angeles", "Chicago",
	}

	tbl, err := domain.NewTable(
		domain.Column{Name: "date", Values: dates},
		domain.Column{Name: "temperature", Values: temps},
		domain.Column{Name: "humidity", Values: humidity},
		domain.Column{Name: "precipitation", Values: precipitation},
		domain.Column{Name: "location", Values: locations},
	)
	if err != nil {
		t.Fatalf("build weather table: %v", err)
	}
	return tbl
}

// Day returns midnight UTC for the given date.
func Day(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// WriteFile writes content to name inside a fresh temp dir and returns its path.
func WriteFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write fixture %s: %v", name, err)
	}
	return path
}
