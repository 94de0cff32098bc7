package rmv

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"appointment-monitor/models"
)

// Selectors for the location list of the booking page.
const (
	cardSelector = "div.QflowObjectItem[data-id]"
	nameSelector = ".ServiceName, h3"
	dateSelector = ".NextAvailable, .AppointmentDate, [data-next-available]"
)

// dateText matches "Mon Jun 10, 2024" with an optional ", 10:30 AM".
var dateText = regexp.MustCompile(`[A-Z][a-z]{2} [A-Z][a-z]{2} \d{1,2}, \d{4}(?:, \d{1,2}:\d{2} [AP]M)?`)

// parseCatalog extracts every location card from the page.
func parseCatalog(html string) ([]models.Location, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("rmv: parse page: %w", err)
	}

	var out []models.Location
	doc.Find(cardSelector).Each(func(_ int, card *goquery.Selection) {
		id, _ := card.Attr("data-id")
		out = append(out, models.Location{ID: id, DisplayName: cardName(card)})
	})
	return out, nil
}

// parseAvailability returns one snapshot per requested id, in the order given.
// Missing or disabled cards are reported as not available; cards without a
// recognisable date as "No Date Found".
func parseAvailability(html string, ids []string) ([]models.LocationSnapshot, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("rmv: parse page: %w", err)
	}

	cards := make(map[string]*goquery.Selection)
	doc.Find(cardSelector).Each(func(_ int, card *goquery.Selection) {
		id, _ := card.Attr("data-id")
		id = strings.TrimSpace(id)
		if _, seen := cards[id]; !seen {
			cards[id] = card
		}
	})

	out := make([]models.LocationSnapshot, 0, len(ids))
	for _, id := range ids {
		card, ok := cards[id]
		if !ok || isDisabled(card) {
			snap := models.LocationSnapshot{ID: id, EarliestAvailable: models.LocationNotAvailable}
			if ok {
				snap.DisplayName = cardName(card)
			}
			out = append(out, snap)
			continue
		}
		out = append(out, models.LocationSnapshot{
			ID:                id,
			DisplayName:       cardName(card),
			EarliestAvailable: cardDate(card),
		})
	}
	return out, nil
}

func cardName(card *goquery.Selection) string {
	return strings.Join(strings.Fields(card.Find(nameSelector).First().Text()), " ")
}

func cardDate(card *goquery.Selection) string {
	if el := card.Find(dateSelector).First(); el.Length() > 0 {
		if v, ok := el.Attr("data-next-available"); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
		text := strings.Join(strings.Fields(el.Text()), " ")
		if m := dateText.FindString(text); m != "" {
			return m
		}
		if strings.Contains(text, models.NoAppointments) {
			return models.NoAppointments
		}
	}
	if m := dateText.FindString(strings.Join(strings.Fields(card.Text()), " ")); m != "" {
		return m
	}
	return models.NoDateFound
}

func isDisabled(card *goquery.Selection) bool {
	if card.HasClass("disabled") || card.HasClass("QflowObjectItem--disabled") {
		return true
	}
	_, disabled := card.Attr("data-disabled")
	return disabled
}
