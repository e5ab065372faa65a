package ratings

import "time"

// WeekIDLayout is the canonical week id format.
const WeekIDLayout = "2006-01-02"

// Calendar derives week boundaries for a fixed week-start day and location.
type Calendar struct {
	WeekStart time.Weekday
	Location  *time.Location
}

// StartOfWeek returns local midnight of the first day of the week containing t.
func (c Calendar) StartOfWeek(t time.Time) time.Time {
	loc := c.location()
	t = t.In(loc)
	midnight := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	diff := (int(midnight.Weekday()) - int(c.WeekStart) + 7) % 7
	return midnight.AddDate(0, 0, -diff)
}

// EndOfWeek returns the last instant of the week containing t.
func (c Calendar) EndOfWeek(t time.Time) time.Time {
	return c.StartOfWeek(t).AddDate(0, 0, 7).Add(-time.Millisecond)
}

// WeekID formats the start of the week containing t.
func (c Calendar) WeekID(t time.Time) string {
	return c.StartOfWeek(t).Format(WeekIDLayout)
}

// ParseWeekID parses a yyyy-MM-dd string in the calendar's location.
func (c Calendar) ParseWeekID(id string) (time.Time, error) {
	return time.ParseInLocation(WeekIDLayout, id, c.location())
}

// ISOWeek returns the ISO 8601 week number of t.
func ISOWeek(t time.Time) int {
	_, w := t.ISOWeek()
	return w
}

func (c Calendar) location() *time.Location {
	if c.Location == nil {
		return time.Local
	}
	return c.Location
}
