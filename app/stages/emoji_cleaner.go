package stages

import (
	"strings"
	"unicode"

	"github.com/lysyi3m/jobs-comb/app/scraped"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var emojiTable = &unicode.RangeTable{
	R16: []unicode.Range16{
		{Lo: 0x200d, Hi: 0x200d, Stride: 1}, // zero width joiner
		{Lo: 0x20e3, Hi: 0x20e3, Stride: 1}, // combining keycap
		{Lo: 0x2300, Hi: 0x23ff, Stride: 1},
		{Lo: 0x2600, Hi: 0x27bf, Stride: 1},
		{Lo: 0x2b00, Hi: 0x2bff, Stride: 1},
		{Lo: 0xfe00, Hi: 0xfe0f, Stride: 1}, // variation selectors
	},
	R32: []unicode.Range32{
		{Lo: 0x1f000, Hi: 0x1faff, Stride: 1}, // includes skin tone modifiers
		{Lo: 0xe0020, Hi: 0xe007f, Stride: 1}, // tag sequences
	},
}

// EmojiCleaner strips emoji and the invisible characters around them from
// text fields and trims the leftover whitespace.
type EmojiCleaner struct {
	fields []string
}

func NewEmojiCleaner(fields []string) *EmojiCleaner {
	return &EmojiCleaner{fields: fields}
}

func (s *EmojiCleaner) Name() string {
	return EmojiCleanerStage
}

func (s *EmojiCleaner) Process(item scraped.Item) (scraped.Item, error) {
	for _, field := range s.fields {
		value, ok := item[field].(string)
		if !ok {
			continue
		}
		item[field] = RemoveEmoji(value)
	}
	return item, nil
}

func RemoveEmoji(s string) string {
	t := transform.Chain(norm.NFC, runes.Remove(runes.In(emojiTable)))
	cleaned, _, err := transform.String(t, s)
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.Join(strings.Fields(cleaned), " ")
}
