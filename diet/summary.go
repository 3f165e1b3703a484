package diet

import (
	"fmt"
	"math"
	"strings"

	"rationsmart/backend"
)

// FollowToolName is mentioned in summaries so the agent knows the next step.
const FollowToolName = "rationsmart.diets.follow"

// SplitSchedule divides every line evenly between a morning and an evening
// feeding, rounded to 10 g.
func SplitSchedule(lines []backend.DietLine) backend.DietSchedule {
	s := backend.DietSchedule{
		Morning: make([]backend.ScheduledFeed, 0, len(lines)),
		Evening: make([]backend.ScheduledFeed, 0, len(lines)),
	}
	for _, l := range lines {
		half := roundTo(l.QuantityKg/2, 2)
		s.Morning = append(s.Morning, backend.ScheduledFeed{Name: l.Name, QuantityKg: half})
		s.Evening = append(s.Evening, backend.ScheduledFeed{Name: l.Name, QuantityKg: half})
	}
	return s
}

// FormatQuantity renders kilograms, switching to grams below 1 kg.
func FormatQuantity(kg float64) string {
	switch {
	case kg >= 1:
		return fmt.Sprintf("%.1f kg", kg)
	case kg > 0:
		return fmt.Sprintf("%.0f grams", kg*1000)
	default:
		return "0 kg"
	}
}

func FormatCost(currency string, amount float64) string {
	if currency == "" {
		return fmt.Sprintf("%.2f", amount)
	}
	return fmt.Sprintf("%s %.2f", currency, amount)
}

// FormatSchedule renders the feeding times of a diet.
func FormatSchedule(s *backend.DietSchedule) string {
	if s == nil {
		return "No schedule available"
	}
	var b strings.Builder
	for _, period := range []struct {
		title string
		feeds []backend.ScheduledFeed
	}{
		{"Morning", s.Morning},
		{"Evening", s.Evening},
	} {
		if len(period.feeds) == 0 {
			continue
		}
		fmt.Fprintf(&b, "%s Feeding:\n", period.title)
		for _, f := range period.feeds {
			if f.QuantityKg <= 0 {
				continue
			}
			fmt.Fprintf(&b, "  - %s: %s\n", f.Name, FormatQuantity(f.QuantityKg))
		}
		b.WriteString("\n")
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "No schedule available"
	}
	return out
}

// Summarize renders a generated diet for the farmer. The diet id leads the
// text, ahead of any user-supplied value such as the cow's name.
func Summarize(rec backend.DietRecord, cow backend.CowProfile) string {
	var b strings.Builder
	fmt.Fprintf(&b, "DIET_ID: %s\n", rec.ID)
	fmt.Fprintf(&b, "Diet for %s\n", orDefault(cow.Name, "the cow"))
	fmt.Fprintf(&b, "Breed: %s | Weight: %s kg\n", orDefault(cow.Breed, "Not specified"), trimFloat(cow.BodyWeight))
	fmt.Fprintf(&b, "Daily Cost: %s\n", FormatCost(rec.Currency, rec.TotalCost))

	if len(rec.Feeds) == 0 {
		b.WriteString("\nThe optimizer did not return any feeds for this cow.\n")
	} else {
		b.WriteString("\nFeeds:\n")
		for _, l := range rec.Feeds {
			fmt.Fprintf(&b, "  - %s: %s/day (%s)\n", l.Name, FormatQuantity(l.QuantityKg), FormatCost(rec.Currency, l.Cost))
		}
	}

	fmt.Fprintf(&b, "\nUse '%s' to start following this diet.", FollowToolName)
	return b.String()
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func trimFloat(f float64) string {
	return fmt.Sprintf("%g", roundTo(f, 1))
}

func roundTo(f float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(f*p) / p
}
