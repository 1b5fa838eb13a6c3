// Package mention parses @handles out of buyer text and resolves them to
// seller IDs by normalized display name.
package mention

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/haggleworks/negotiator/pkg/types"
)

var (
	handleRe        = regexp.MustCompile(`@([A-Za-z0-9_]+)`)
	underscoreRunRe = regexp.MustCompile(`_+`)
)

// NormalizeHandle maps a display name to its handle form: lowercase, no
// whitespace, no punctuation except underscore, underscore runs collapsed
// and trimmed. "Bob Co." normalizes to "bobco".
func NormalizeHandle(name string) string {
	var b strings.Builder

	for _, r := range strings.ToLower(name) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '_':
			b.WriteRune('_')
		}
	}

	collapsed := underscoreRunRe.ReplaceAllString(b.String(), "_")

	return strings.Trim(collapsed, "_")
}

// lookupKey collapses a display name or captured handle to its comparison
// form. Underscores drop out so "@fresh_farms" and "@FreshFarms" both reach
// the seller named "Fresh Farms".
func lookupKey(name string) string {
	return strings.ReplaceAll(NormalizeHandle(name), "_", "")
}

// ParseMentions returns the ordered unique seller IDs whose normalized
// display names match @handles in the text. Unknown handles are ignored.
func ParseMentions(text string, sellers []types.SellerProfile) []string {
	byHandle := make(map[string]string, len(sellers))
	for _, s := range sellers {
		byHandle[lookupKey(s.DisplayName)] = s.SellerID
	}

	var (
		ordered []string
		seen    = make(map[string]struct{})
	)

	for _, match := range handleRe.FindAllStringSubmatch(text, -1) {
		handle := lookupKey(match[1])

		id, ok := byHandle[handle]
		if !ok {
			continue
		}

		if _, dup := seen[id]; dup {
			continue
		}

		seen[id] = struct{}{}
		ordered = append(ordered, id)
	}

	return ordered
}

// SelectTargets intersects mentions with active sellers, preserving mention
// order. When the intersection is empty and fallback is set, all active
// sellers are targeted.
func SelectTargets(mentions []string, active []string, fallback bool) []string {
	activeSet := make(map[string]struct{}, len(active))
	for _, id := range active {
		activeSet[id] = struct{}{}
	}

	var targets []string

	for _, id := range mentions {
		if _, ok := activeSet[id]; ok {
			targets = append(targets, id)
		}
	}

	if len(targets) == 0 && fallback {
		targets = append(targets, active...)
	}

	return targets
}
