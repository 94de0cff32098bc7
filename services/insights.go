package services

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"appointment-monitor/models"
	"appointment-monitor/utils"
)

type InsightService struct {
	parser *DateParser
	logger *utils.Logger
}

func NewInsightService(parser *DateParser, logger *utils.Logger) *InsightService {
	return &InsightService{parser: parser, logger: logger}
}

// Generate builds a status row for every monitored id, in the given order.
func (s *InsightService) Generate(state models.State, ids []string, dir *LocationDirectory, now time.Time) *models.StatusReport {
	report := &models.StatusReport{GeneratedAt: now}

	for _, id := range ids {
		row := models.StatusRow{ID: id, Recorded: state[id]}
		if name, ok := dir.Lookup(id); ok {
			row.Name = name
		} else {
			row.Name = "ID-" + id
		}

		if row.Recorded != "" {
			report.Tracked++
			parsed := s.parser.Parse(row.Recorded)
			if parsed.IsConcrete() {
				hours := round2(parsed.Time.Sub(now).Hours())
				row.HoursUntil = &hours
				row.Lapsed = parsed.Time.Before(now)
				if row.Lapsed {
					report.Lapsed++
				}
			}
		}
		report.Rows = append(report.Rows, row)
	}

	// Earliest upcoming appointment across all locations
	for i := range report.Rows {
		r := &report.Rows[i]
		if r.HoursUntil == nil || r.Lapsed {
			continue
		}
		if report.Earliest == nil || *r.HoursUntil < *report.Earliest.HoursUntil {
			report.Earliest = r
		}
	}

	return report
}

func (s *InsightService) Print(w io.Writer, r *models.StatusReport) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("Appointment status (%s)", r.GeneratedAt.Format("Mon Jan 02, 2006 03:04 PM"))
	t.AppendHeader(table.Row{"ID", "Location", "Recorded", "In (hours)", "Lapsed"})

	for _, row := range r.Rows {
		recorded := row.Recorded
		if recorded == "" {
			recorded = "-"
		}
		in := "-"
		if row.HoursUntil != nil {
			in = strconv.FormatFloat(*row.HoursUntil, 'f', 1, 64)
		}
		lapsed := ""
		if row.Lapsed {
			lapsed = "yes"
		}
		t.AppendRow(table.Row{row.ID, truncate(row.Name, 40), recorded, in, lapsed})
	}

	caption := fmt.Sprintf("%d tracked, %d lapsed", r.Tracked, r.Lapsed)
	if r.Earliest != nil {
		caption += fmt.Sprintf(" | earliest: %s at %s", r.Earliest.Recorded, r.Earliest.Name)
	}
	t.SetCaption(caption)
	t.SetStyle(table.StyleRounded)
	t.Render()
}

// PrintLocations renders the location directory.
func (s *InsightService) PrintLocations(w io.Writer, locations []models.Location, monitored []string) {
	watched := utils.NewIDSet(monitored...)

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"ID", "Location", "Monitored"})
	for _, loc := range locations {
		mark := ""
		if watched.Contains(loc.ID) {
			mark = "✓"
		}
		t.AppendRow(table.Row{loc.ID, loc.DisplayName, mark})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

// PrintHistory renders tracked events, newest first.
func (s *InsightService) PrintHistory(w io.Writer, events []models.TrackedEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].ObservedAt.After(events[j].ObservedAt)
	})

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Observed", "Check", "Event", "Location", "Previous", "New", "Δ hours"})
	for _, ev := range events {
		delta := ""
		if ev.TimeDeltaHours != nil {
			delta = strconv.FormatFloat(round2(*ev.TimeDeltaHours), 'f', 2, 64)
		}
		t.AppendRow(table.Row{
			ev.ObservedAt.Format(time.RFC3339), ev.CheckNumber, string(ev.Kind),
			truncate(ev.LocationName, 28), ev.Previous, ev.Current, delta,
		})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

// truncate shortens s to at most max runes.
func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
