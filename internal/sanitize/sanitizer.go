// Package sanitize cleans raw model output before it enters a conversation.
// All cleanup lives here; agents never roll their own.
package sanitize

import (
	"regexp"
	"strings"
)

// Role selects the meta-narration prefix set and the length ceiling.
type Role string

const (
	RoleBuyer  Role = "buyer"
	RoleSeller Role = "seller"
)

// Hard character ceilings per role. Longer output is truncated with an ellipsis.
const (
	BuyerMaxChars  = 500
	SellerMaxChars = 400
)

var (
	reasoningBlockRe = regexp.MustCompile(`(?is)<think(?:ing)?>.*?</think(?:ing)?>`)
	codeFenceRe      = regexp.MustCompile("(?s)```[a-zA-Z0-9_-]*\n?.*?```")
	whitespaceRe     = regexp.MustCompile(`\s+`)

	// Leading continuation markers the models sometimes emit when they treat
	// the prompt as a partial sentence. The "so " strip can eat a legitimate
	// opener; kept for compatibility with noisy prompts.
	continuationPrefixes = []string{"...", ", "}
	connectorPrefixes    = []string{"and ", "but ", "or ", "so "}
)

// metaPrefixes are self-referential openings stripped per role. The buyer set
// covers deliberation narration; sellers additionally narrate the buyer.
var metaPrefixes = map[Role][]string{
	RoleBuyer: {
		"okay, let's see",
		"okay, so",
		"alright, let's",
		"let me think",
		"i need to",
		"the user wants",
		"wait, the",
		"hmm,",
		"as the buyer,",
		"as a buyer,",
	},
	RoleSeller: {
		"okay, let's see",
		"okay, so",
		"alright, let's",
		"let me think",
		"i need to",
		"the user wants",
		"the buyer wants",
		"the customer wants",
		"wait, the",
		"hmm,",
		"as the seller,",
		"as a seller,",
	},
}

// inlineOfferRe matches a JSON object whose top-level key is "offer". Offers
// travel through the offer codec, never through prose.
var inlineOfferRe = regexp.MustCompile(`(?s)\{\s*"offer"\s*:\s*\{[^{}]*\}\s*\}`)

// Sanitize cleans raw agent output. It is idempotent:
// Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(raw string, role Role) string {
	text := strings.TrimSpace(raw)

	// Every removal can expose a fresh leading marker or meta prefix that an
	// earlier step already passed over, so the pipeline runs to a fixpoint.
	for {
		prev := text

		text = reasoningBlockRe.ReplaceAllString(text, "")
		text = strings.TrimSpace(text)
		text = stripLeadingMarkers(text)
		text = stripMetaPrefixes(text, role)
		text = codeFenceRe.ReplaceAllString(text, "")
		text = inlineOfferRe.ReplaceAllString(text, "")
		text = whitespaceRe.ReplaceAllString(text, " ")
		text = strings.TrimSpace(text)

		if text == prev {
			break
		}
	}

	return truncate(text, maxChars(role))
}

func maxChars(role Role) int {
	if role == RoleSeller {
		return SellerMaxChars
	}

	return BuyerMaxChars
}

func stripLeadingMarkers(text string) string {
	for changed := true; changed; {
		changed = false

		for _, prefix := range continuationPrefixes {
			if strings.HasPrefix(text, prefix) {
				text = strings.TrimSpace(strings.TrimPrefix(text, prefix))
				changed = true
			}
		}

		lower := strings.ToLower(text)
		for _, prefix := range connectorPrefixes {
			if strings.HasPrefix(lower, prefix) {
				text = strings.TrimSpace(text[len(prefix):])
				changed = true
				break
			}
		}
	}

	return text
}

// stripMetaPrefixes removes self-referential openings exhaustively, so a
// second Sanitize pass finds nothing left to strip.
func stripMetaPrefixes(text string, role Role) string {
	for {
		stripped, changed := stripOneMetaPrefix(text, role)
		if !changed {
			return stripped
		}

		text = stripped
	}
}

func stripOneMetaPrefix(text string, role Role) (string, bool) {
	lower := strings.ToLower(text)

	for _, prefix := range metaPrefixes[role] {
		if !strings.HasPrefix(lower, prefix) {
			continue
		}

		// Drop the narration up to the first sentence boundary; if there is
		// none, the whole output was narration.
		rest := text[len(prefix):]
		if idx := strings.IndexAny(rest, ".!?\n"); idx >= 0 {
			return strings.TrimSpace(rest[idx+1:]), true
		}

		return "", false
	}

	return text, false
}

func truncate(text string, max int) string {
	if len(text) <= max {
		return text
	}

	runes := []rune(text)
	if len(runes) <= max {
		return text
	}

	return strings.TrimSpace(string(runes[:max-1])) + "…"
}
