// Package avatar generates avatar image URLs from a seed string.
package avatar

import (
	"net/url"
)

const baseURL = "https://api.dicebear.com/7.x/avataaars/svg"

// URL returns the avatar image URL for a seed. The same seed always yields
// the same image.
func URL(seed string) string {
	return baseURL + "?seed=" + url.QueryEscape(seed)
}
