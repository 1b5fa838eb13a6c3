package provider

import (
	"regexp"
	"strings"
)

// reasoningBlockRe matches hidden chain-of-thought segments. Multi-line,
// case-insensitive, and tolerant of an unterminated trailing block.
var (
	reasoningBlockRe = regexp.MustCompile(`(?is)<think(?:ing)?>.*?</think(?:ing)?>`)
	reasoningOpenRe  = regexp.MustCompile(`(?is)<think(?:ing)?>.*$`)
)

// noReasoningDirective is appended to the system message when reasoning
// suppression is enabled. Model-agnostic: models that do not understand it
// simply ignore it.
const noReasoningDirective = "Respond directly without showing any reasoning or thinking steps. /no_think"

// StripReasoning removes bracketed reasoning segments from model output.
func StripReasoning(text string) string {
	text = reasoningBlockRe.ReplaceAllString(text, "")
	text = reasoningOpenRe.ReplaceAllString(text, "")
	return text
}

// InjectNoReasoning appends the suppression directive to the system message,
// adding one if the sequence has none.
func InjectNoReasoning(messages []ChatMessage) []ChatMessage {
	out := make([]ChatMessage, len(messages))
	copy(out, messages)

	for i := range out {
		if out[i].Role == RoleSystem {
			out[i].Content = strings.TrimRight(out[i].Content, " \n") + "\n\n" + noReasoningDirective
			return out
		}
	}

	return append([]ChatMessage{{Role: RoleSystem, Content: noReasoningDirective}}, out...)
}

// streamSuppressor filters reasoning blocks out of a token stream. Tokens are
// buffered while a potential tag prefix is open, emitted once the text is
// known to be outside a reasoning block, and dropped while inside one.
type streamSuppressor struct {
	inBlock  bool
	closeTag string
	pending  strings.Builder
}

var openTags = []string{"<think>", "<thinking>"}

// Feed consumes one raw token and returns the visible text to emit, which may
// be empty while suppression is active or a tag is still ambiguous.
func (s *streamSuppressor) Feed(token string) string {
	s.pending.WriteString(token)
	buf := s.pending.String()

	var out strings.Builder

	for {
		if s.inBlock {
			lower := strings.ToLower(buf)
			idx := strings.Index(lower, s.closeTag)
			if idx < 0 {
				// Keep only a potential close-tag prefix; drop the rest.
				keep := tagPrefixLen(lower, s.closeTag)
				buf = buf[len(buf)-keep:]
				break
			}

			buf = buf[idx+len(s.closeTag):]
			s.inBlock = false
			continue
		}

		lower := strings.ToLower(buf)
		open, idx := earliestOpenTag(lower)
		if idx < 0 {
			// Emit everything except a potential open-tag prefix.
			keep := maxOpenTagPrefix(lower)
			out.WriteString(buf[:len(buf)-keep])
			buf = buf[len(buf)-keep:]
			break
		}

		out.WriteString(buf[:idx])
		buf = buf[idx+len(open):]
		s.inBlock = true
		s.closeTag = "</" + open[1:]
	}

	s.pending.Reset()
	s.pending.WriteString(buf)

	return out.String()
}

// Flush returns any buffered text once the stream ends. Text still inside an
// unterminated reasoning block is discarded.
func (s *streamSuppressor) Flush() string {
	defer s.pending.Reset()

	if s.inBlock {
		return ""
	}

	return s.pending.String()
}

func earliestOpenTag(lower string) (string, int) {
	best, bestIdx := "", -1
	for _, tag := range openTags {
		idx := strings.Index(lower, tag)
		if idx >= 0 && (bestIdx < 0 || idx < bestIdx) {
			best, bestIdx = tag, idx
		}
	}

	return best, bestIdx
}

// tagPrefixLen returns the length of the longest suffix of s that is a proper
// prefix of tag.
func tagPrefixLen(s, tag string) int {
	max := len(tag) - 1
	if max > len(s) {
		max = len(s)
	}

	for n := max; n > 0; n-- {
		if strings.HasSuffix(s, tag[:n]) {
			return n
		}
	}

	return 0
}

func maxOpenTagPrefix(lower string) int {
	keep := 0
	for _, tag := range openTags {
		if n := tagPrefixLen(lower, tag); n > keep {
			keep = n
		}
	}

	return keep
}
