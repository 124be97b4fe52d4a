package keywords

import (
	"fmt"
	"regexp"
	"strings"
)

// emojiRanges lists the code point blocks treated as emoji.
var emojiRanges = [][2]rune{
	{0x1F600, 0x1F64F}, // emoticons
	{0x1F300, 0x1F5FF}, // symbols and pictographs
	{0x1F680, 0x1F6FF}, // transport and map
	{0x1F1E6, 0x1F1FF}, // regional indicators
	{0x1F900, 0x1F9FF}, // supplemental symbols
	{0x1FA70, 0x1FAFF}, // symbols and pictographs extended-A
	{0x2600, 0x26FF},   // misc symbols
	{0x2700, 0x27BF},   // dingbats
	{0x2B05, 0x2B07},
	{0x2B1B, 0x2B1C},
	{0x2B50, 0x2B50},
	{0x2B55, 0x2B55},
	{0x3030, 0x3030},
	{0x303D, 0x303D},
	{0x3297, 0x3297},
	{0x3299, 0x3299},
}

// EmojiMatcher detects emoji code points in text.
type EmojiMatcher struct {
	re *regexp.Regexp
}

// NewEmojiMatcher compiles the emoji character class.
func NewEmojiMatcher() *EmojiMatcher {
	var b strings.Builder

	b.WriteByte('[')

	for _, r := range emojiRanges {
		if r[0] == r[1] {
			fmt.Fprintf(&b, `\x{%X}`, r[0])
			continue
		}

		fmt.Fprintf(&b, `\x{%X}-\x{%X}`, r[0], r[1])
	}

	b.WriteByte(']')

	return &EmojiMatcher{re: regexp.MustCompile(b.String())}
}

// HasEmoji reports whether text contains at least one emoji.
func (e *EmojiMatcher) HasEmoji(text string) bool {
	return e.re.MatchString(text)
}

// FindAll returns every emoji in text.
func (e *EmojiMatcher) FindAll(text string) []string {
	return e.re.FindAllString(text, -1)
}
