package charts

import (
	"hash/fnv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Palette is a fixed list of CSS hex colors
type Palette []string

// DefaultPalette holds the base shade of each named UI color
var DefaultPalette = Palette{
	"#fa5252", // red
	"#e64980", // pink
	"#be4bdb", // grape
	"#7950f2", // violet
	"#4c6ef5", // indigo
	"#228be6", // blue
	"#15aabf", // cyan
	"#12b886", // teal
	"#40c057", // green
	"#82c91e", // lime
	"#fab005", // yellow
	"#fd7e14", // orange
}

// Pick hashes key into the palette. The same key always gets the same color;
// different keys may collide.
func (p Palette) Pick(key string) string {
	if len(p) == 0 {
		return ""
	}
	h := fnv.New32a()
	h.Write([]byte(key))
	return p[h.Sum32()%uint32(len(p))]
}

// HumanName turns identifiers such as "lower_back" or "AUDIO_BOOK" into
// sentence case labels ("Lower back", "Audio book").
func HumanName(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-' || r == ' '
	})
	if len(words) == 0 {
		return ""
	}
	// Casers keep state, so each call gets its own.
	lower := cases.Lower(language.English)
	for i, w := range words {
		words[i] = lower.String(w)
	}
	words[0] = cases.Title(language.English).String(words[0])
	return strings.Join(words, " ")
}
