// Package dategrid builds the fixed month grid shown by the calendar view.
package dategrid

import "time"

// GridSize is fixed at six full weeks regardless of how many weeks the
// month actually spans, so short months always carry next-month overflow.
const GridSize = 42

const DateKeyLayout = "2006-01-02"

type Cell struct {
	Date           string `json:"date"`
	IsCurrentMonth bool   `json:"isCurrentMonth"`
}

// Month returns the 42 day-cells for the given month, ordered
// Monday through Sunday: leading days of the previous month, every day of
// the target month, then days of the next month up to the grid size.
func Month(year int, month time.Month) []Cell {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	// Go weekdays start on Sunday; shift so Monday is index 0.
	lead := (int(first.Weekday()) + 6) % 7
	start := first.AddDate(0, 0, -lead)

	cells := make([]Cell, 0, GridSize)
	for i := 0; i < GridSize; i++ {
		day := start.AddDate(0, 0, i)
		cells = append(cells, Cell{
			Date:           day.Format(DateKeyLayout),
			IsCurrentMonth: day.Month() == month && day.Year() == year,
		})
	}
	return cells
}
