// Package template holds reusable session setups a facilitator can save,
// archive, and reuse across workshops.
package template

import (
	"time"
)

// Template is a saved session setup.
type Template struct {
	ID                 string `json:"id"`
	Title              string `json:"title"`
	Question           string `json:"question"`
	Description        string `json:"description"`
	DefaultFolderID    string `json:"defaultFolderId"`
	Icon               string `json:"icon,omitempty"`
	IsSystem           bool   `json:"isSystem,omitempty"`
	Archived           bool   `json:"archived,omitempty"`
	ArchiveDate        string `json:"archiveDate,omitempty"`
	ArchiveNotes       string `json:"archiveNotes,omitempty"`
	EnableEmotionInput bool   `json:"enableEmotionInput,omitempty"`
}

// Archive marks the template archived and stamps the date.
func (t *Template) Archive(now time.Time, notes string) {
	t.Archived = true
	t.ArchiveDate = now.UTC().Format(time.RFC3339)
	t.ArchiveNotes = notes
}

// Unarchive clears the archive marker.
func (t *Template) Unarchive() {
	t.Archived = false
	t.ArchiveDate = ""
	t.ArchiveNotes = ""
}

// SystemTemplates are the built-in setups, always listed alongside the
// custom ones and never persisted.
func SystemTemplates() []Template {
	return []Template{
		{
			ID:              "sys-team-weather",
			Title:           "Météo d'équipe",
			Question:        "Quelle image représente le mieux votre semaine ?",
			Description:     "Tour de table rapide pour prendre la température du groupe.",
			DefaultFolderID: "classic",
			Icon:            "cloud",
			IsSystem:        true,
		},
		{
			ID:                 "sys-change",
			Title:              "Vivre le changement",
			Question:           "Quelle image évoque pour vous le changement en cours ?",
			Description:        "Expression autour d'une transformation d'organisation.",
			DefaultFolderID:    "urbain",
			Icon:               "compass",
			IsSystem:           true,
			EnableEmotionInput: true,
		},
		{
			ID:              "sys-values",
			Title:           "Nos valeurs",
			Question:        "Quelle image incarne une valeur essentielle pour vous ?",
			Description:     "Atelier d'alignement sur les valeurs partagées.",
			DefaultFolderID: "classic",
			Icon:            "heart",
			IsSystem:        true,
		},
	}
}
