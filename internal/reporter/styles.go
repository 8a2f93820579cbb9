package reporter

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/actionsum/focuslens/internal/models"
	"github.com/actionsum/focuslens/internal/productivity"
)

var (
	colorCyan   = lipgloss.Color("#00FFFF")
	colorGreen  = lipgloss.Color("#00FF00")
	colorYellow = lipgloss.Color("#FFFF00")
	colorRed    = lipgloss.Color("#FF0000")
	colorGray   = lipgloss.Color("#666666")
)

var (
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	headerStyle      = lipgloss.NewStyle().Bold(true)
	dimStyle         = lipgloss.NewStyle().Foreground(colorGray)
	productiveStyle  = lipgloss.NewStyle().Foreground(colorGreen)
	neutralStyle     = lipgloss.NewStyle().Foreground(colorYellow)
	distractingStyle = lipgloss.NewStyle().Foreground(colorRed)
	highStyle        = lipgloss.NewStyle().Foreground(colorRed).Bold(true)
)

func ratingStyle(r models.Rating) lipgloss.Style {
	switch r {
	case models.RatingProductive:
		return productiveStyle
	case models.RatingDistracting:
		return distractingStyle
	case models.RatingNeutral:
		return neutralStyle
	default:
		return dimStyle
	}
}

// scoreStyle colours a [0,1] score on the same cut-offs the scorer uses for ratings.
func scoreStyle(score float64) lipgloss.Style {
	switch {
	case score >= productivity.ProductiveThreshold:
		return productiveStyle
	case score <= productivity.DistractingThreshold:
		return distractingStyle
	default:
		return neutralStyle
	}
}
