package services

import (
	"strings"
	"time"

	"appointment-monitor/models"
	"appointment-monitor/utils"
)

// Layouts of the availability strings shown by the booking site. Parsing
// accepts unpadded days and hours; canonical output is always padded.
const (
	dateTimeLayout = "Mon Jan _2, 2006, 3:04 PM"
	dateLayout     = "Mon Jan _2, 2006"

	canonicalDateTimeLayout = "Mon Jan 02, 2006, 03:04 PM"
	canonicalDateLayout     = "Mon Jan 02, 2006"

	displayDateTimeLayout = "Mon, Jan 02, 2006 at 03:04 PM"
	displayDateLayout     = "Mon, Jan 02, 2006"
)

// DateParser turns raw availability strings into comparable values.
type DateParser struct {
	loc    *time.Location
	logger *utils.Logger
}

// NewDateParser creates a parser interpreting dates in loc (time.Local when nil).
func NewDateParser(loc *time.Location, logger *utils.Logger) *DateParser {
	if loc == nil {
		loc = time.Local
	}
	return &DateParser{loc: loc, logger: logger}
}

// Parse normalizes raw. Sentinels and unparseable input yield a non-concrete
// value; parse failures are logged and never returned as errors.
func (p *DateParser) Parse(raw string) models.ParsedDate {
	switch {
	case strings.Contains(raw, models.LocationNotAvailable):
		return models.ParsedDate{Status: models.DateUnavailable}
	case strings.Contains(raw, models.NoAppointments), strings.Contains(raw, models.NoDateFound):
		return models.ParsedDate{Status: models.DateNone}
	}

	clean := strings.ToUpper(normaliseText(strings.TrimRight(strings.TrimSpace(raw), ",")))

	if t, err := time.ParseInLocation(dateTimeLayout, clean, p.loc); err == nil {
		return models.ParsedDate{Status: models.DateConcrete, Time: t, HasTimeOfDay: true}
	}
	t, err := time.ParseInLocation(dateLayout, clean, p.loc)
	if err != nil {
		p.logger.Error("[dates] Error parsing date string %q: %v", raw, err)
		return models.ParsedDate{Status: models.DateNone}
	}
	return models.ParsedDate{Status: models.DateConcrete, Time: t}
}

// Canonical renders the value the way it is persisted in state. It returns
// "" for non-concrete values.
func (p *DateParser) Canonical(d models.ParsedDate) string {
	if !d.IsConcrete() {
		return ""
	}
	if d.HasTimeOfDay {
		return d.Time.Format(canonicalDateTimeLayout)
	}
	return d.Time.Format(canonicalDateLayout)
}

// Display renders the value for notification messages.
func (p *DateParser) Display(d models.ParsedDate) string {
	if !d.IsConcrete() {
		return ""
	}
	if d.HasTimeOfDay {
		return d.Time.Format(displayDateTimeLayout)
	}
	return d.Time.Format(displayDateLayout)
}
