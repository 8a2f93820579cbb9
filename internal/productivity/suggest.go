package productivity

import (
	"strings"

	"github.com/actionsum/focuslens/internal/models"
)

// Suggestion is a proposed category for an app that has no stored category yet.
type Suggestion struct {
	Category string        `json:"category"`
	Rating   models.Rating `json:"productivity_rating"`
}

type keywordRule struct {
	keywords   []string
	suggestion Suggestion
}

// Rules are matched in order; the first rule with a matching keyword wins.
var keywordRules = []keywordRule{
	{
		keywords: []string{
			"code", "vscode", "sublime", "atom", "gedit", "vim", "emacs",
			"idea", "pycharm", "webstorm", "goland", "eclipse", "netbeans",
			"terminal", "konsole", "terminator", "alacritty", "kitty", "wezterm", "tilix",
		},
		suggestion: Suggestion{Category: "development", Rating: models.RatingProductive},
	},
	{
		keywords:   []string{"libreoffice", "soffice", "writer", "calc", "impress", "obsidian", "notion"},
		suggestion: Suggestion{Category: "office", Rating: models.RatingProductive},
	},
	{
		keywords:   []string{"slack", "teams", "zoom", "thunderbird", "evolution", "mail"},
		suggestion: Suggestion{Category: "communication", Rating: models.RatingNeutral},
	},
	{
		keywords:   []string{"discord", "telegram", "signal", "whatsapp", "twitter", "reddit"},
		suggestion: Suggestion{Category: "social", Rating: models.RatingDistracting},
	},
	{
		keywords:   []string{"vlc", "mpv", "spotify", "rhythmbox", "totem", "youtube", "netflix"},
		suggestion: Suggestion{Category: "media", Rating: models.RatingDistracting},
	},
	{
		keywords:   []string{"steam", "lutris", "minecraft", "game"},
		suggestion: Suggestion{Category: "games", Rating: models.RatingDistracting},
	},
	{
		keywords:   []string{"firefox", "chrome", "chromium", "brave", "opera", "vivaldi", "edge"},
		suggestion: Suggestion{Category: "browser", Rating: models.RatingNeutral},
	},
	{
		keywords:   []string{"nautilus", "dolphin", "thunar", "nemo", "caja"},
		suggestion: Suggestion{Category: "system", Rating: models.RatingNeutral},
	},
}

// SuggestCategory guesses a category for appName from well-known desktop app names.
// The second return value is false when nothing matched.
func SuggestCategory(appName string) (Suggestion, bool) {
	name := strings.ToLower(strings.TrimSpace(appName))
	if name == "" {
		return Suggestion{}, false
	}

	for _, rule := range keywordRules {
		for _, kw := range rule.keywords {
			if strings.Contains(name, kw) {
				return rule.suggestion, true
			}
		}
	}
	return Suggestion{}, false
}
