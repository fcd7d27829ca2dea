// Package catalog is the static photo-catalog provider: themed folders of
// photos a facilitator picks a pool from when creating a session.
package catalog

import (
	"github.com/photolangage/photolangage/internal/domain/session"
)

// Folder groups photos under a theme.
type Folder struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Cover       string          `json:"cover"`
	Photos      []session.Photo `json:"photos"`
}

// Folders returns the built-in catalog. The first folder is the default
// pool for new sessions.
func Folders() []Folder {
	return []Folder{
		{
			ID:          "classic",
			Name:        "Banque classique",
			Description: "Paysages, objets et scènes du quotidien",
			Cover:       "https://picsum.photos/id/10/400/400",
			Photos: []session.Photo{
				{ID: "1", URL: "https://picsum.photos/id/10/400/400", Keywords: []string{"nature", "forêt"}},
				{ID: "2", URL: "https://picsum.photos/id/15/400/400", Keywords: []string{"eau", "calme"}},
				{ID: "3", URL: "https://picsum.photos/id/20/400/400", Keywords: []string{"objets", "travail"}},
				{ID: "4", URL: "https://picsum.photos/id/48/400/400", Keywords: []string{"technologie"}},
				{ID: "5", URL: "https://picsum.photos/id/55/400/400", Keywords: []string{"abstrait"}},
				{ID: "6", URL: "https://picsum.photos/id/60/400/400", Keywords: []string{"bureau"}},
				{ID: "7", URL: "https://picsum.photos/id/75/400/400", Keywords: []string{"fleur"}},
				{ID: "8", URL: "https://picsum.photos/id/90/400/400", Keywords: []string{"ville"}},
				{ID: "9", URL: "https://picsum.photos/id/100/400/400", Keywords: []string{"plage"}},
				{ID: "10", URL: "https://picsum.photos/id/110/400/400", Keywords: []string{"champ"}},
				{ID: "11", URL: "https://picsum.photos/id/120/400/400", Keywords: []string{"fruits"}},
				{ID: "12", URL: "https://picsum.photos/id/130/400/400", Keywords: []string{"ciel"}},
			},
		},
		{
			ID:          "urbain",
			Name:        "Ville et mouvement",
			Description: "Rues, architecture et vie urbaine",
			Cover:       "https://picsum.photos/id/122/400/400",
			Photos: []session.Photo{
				{ID: "u1", URL: "https://picsum.photos/id/122/400/400", Keywords: []string{"rue", "nuit"}},
				{ID: "u2", URL: "https://picsum.photos/id/180/400/400", Keywords: []string{"travail", "clavier"}},
				{ID: "u3", URL: "https://picsum.photos/id/192/400/400", Keywords: []string{"architecture"}},
				{ID: "u4", URL: "https://picsum.photos/id/21/400/400", Keywords: []string{"mode", "détail"}},
				{ID: "u5", URL: "https://picsum.photos/id/26/400/400", Keywords: []string{"objets", "style"}},
				{ID: "u6", URL: "https://picsum.photos/id/39/400/400", Keywords: []string{"mouvement"}},
				{ID: "u7", URL: "https://picsum.photos/id/42/400/400", Keywords: []string{"café", "pause"}},
				{ID: "u8", URL: "https://picsum.photos/id/54/400/400", Keywords: []string{"pont", "lien"}},
			},
		},
	}
}

// Folder returns the folder with the given id, falling back to the default
// folder when the id is unknown.
func FolderByID(id string) Folder {
	folders := Folders()
	for _, f := range folders {
		if f.ID == id {
			return f
		}
	}
	return folders[0]
}

// DefaultPhotos returns the default session pool.
func DefaultPhotos() []session.Photo {
	return Folders()[0].Photos
}
