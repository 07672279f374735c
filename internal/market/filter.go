package market

import (
	"strings"

	"sjsage522/retroconsolas/config"
)

// Passes reports whether l is inside the profile's inclusive price bounds and
// its title contains none of the excluded terms, ignoring case.
func Passes(l Listing, profile config.ConsoleProfile) bool {
	if l.Price < profile.MinPrice || l.Price > profile.MaxPrice {
		return false
	}

	title := strings.ToLower(l.Title)
	for _, term := range profile.ExcludeTerms {
		if strings.Contains(title, strings.ToLower(term)) {
			return false
		}
	}
	return true
}

// Filter keeps the listings that pass the profile, preserving order
func Filter(listings []Listing, profile config.ConsoleProfile) []Listing {
	out := make([]Listing, 0, len(listings))
	for _, l := range listings {
		if Passes(l, profile) {
			out = append(out, l)
		}
	}
	return out
}
