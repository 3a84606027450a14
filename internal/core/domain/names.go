package domain

import "strings"

// titleKeywords are floated to the front of a converted name, in this order.
var titleKeywords = []string{
	"Baron", "Sir", "Dr.", "Lord", "Dame", "Count", "Countess", "King", "Queen",
	"Prince", "Princess", "Duke", "Duchess", "marquis", "marchioness", "von", "de",
}

var titleSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(titleKeywords))
	for _, kw := range titleKeywords {
		m[kw] = struct{}{}
	}
	return m
}()

// DisplayName converts an archival "Last, First [Title]" name into
// "Title First Last" display form. Names that do not split into exactly
// two parts on ", " are returned trimmed but otherwise unchanged.
func DisplayName(name string) string {
	name = strings.TrimSpace(name)
	parts := strings.Split(name, ", ")
	if len(parts) != 2 {
		return name
	}

	last := strings.TrimSpace(parts[0])
	if last == "" {
		return name
	}

	found := make(map[string]bool)
	var given []string
	for _, word := range strings.Fields(parts[1]) {
		if _, ok := titleSet[word]; ok {
			found[word] = true
			continue
		}
		given = append(given, word)
	}

	words := make([]string, 0, len(found)+len(given)+1)
	for _, kw := range titleKeywords {
		if found[kw] {
			words = append(words, kw)
		}
	}
	words = append(words, given...)
	words = append(words, last)
	return strings.Join(words, " ")
}
