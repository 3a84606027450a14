package domain

import (
	"regexp"
	"strconv"
	"strings"
)

var yearPattern = regexp.MustCompile(`\b\d{4}\b`)

// AuthorityCandidate is one entry returned by an authority-file search.
type AuthorityCandidate struct {
	// Label is the heading as the authority file prints it, e.g. "Jefferson, Thomas, 1743-1826"
	Label string `json:"label"`

	// ClusterID is the external cluster identifier (VIAF id)
	ClusterID string `json:"cluster_id"`

	// LocalCode is the local authority code (e.g. Library of Congress)
	LocalCode string `json:"local_code,omitempty"`
}

// AuthorityRecord is the selected authority match for a name.
type AuthorityRecord struct {
	ClusterID      string `json:"cluster_id"`
	LocalCode      string `json:"local_code,omitempty"`
	PreferredLabel string `json:"preferred_label"`
}

// SelectAuthorityCandidate picks one candidate for a year hint.
//
// Without a hint the first candidate wins. With a hint, the first candidate
// whose label contains the hint verbatim wins; otherwise the candidate whose
// printed years are closest to the hint. Candidates without years never beat
// one with years; if none print a year the first candidate wins.
func SelectAuthorityCandidate(candidates []AuthorityCandidate, yearHint string) *AuthorityCandidate {
	if len(candidates) == 0 {
		return nil
	}
	if yearHint == "" {
		return &candidates[0]
	}

	for i := range candidates {
		if strings.Contains(candidates[i].Label, yearHint) {
			return &candidates[i]
		}
	}

	hint, err := strconv.Atoi(yearHint)
	if err != nil {
		return &candidates[0]
	}

	best := -1
	bestDistance := 0
	for i := range candidates {
		for _, y := range yearPattern.FindAllString(candidates[i].Label, -1) {
			year, _ := strconv.Atoi(y)
			distance := year - hint
			if distance < 0 {
				distance = -distance
			}
			if best == -1 || distance < bestDistance {
				best = i
				bestDistance = distance
			}
		}
	}
	if best == -1 {
		return &candidates[0]
	}
	return &candidates[best]
}

// YearOf extracts the first four-digit year from an ISO-ish date string.
// Returns "" when the date is absent or carries no year.
func YearOf(date *string) string {
	if date == nil {
		return ""
	}
	return yearPattern.FindString(*date)
}
