// Package readingtime estimates how long a post takes to read.
package readingtime

import (
	"strings"

	"github.com/eringen/pubfront/blog"
	"github.com/eringen/pubfront/richtext"
)

// WordsPerMinute is the assumed reading speed.
const WordsPerMinute = 200

// Words counts the words of a post. Each section contributes its body text
// followed directly by its heading, with newlines removed, split on single
// spaces.
func Words(content []blog.Section) int {
	total := 0
	for _, s := range content {
		text := richtext.AsText(s.Body) + s.Heading
		text = strings.ReplaceAll(text, "\n", "")
		total += len(strings.Split(text, " "))
	}
	return total
}

// Estimate returns the reading time in whole minutes, rounded up. ok is false
// when content is absent (nil), in which case no estimate should be shown.
func Estimate(content []blog.Section) (minutes int, ok bool) {
	if content == nil {
		return 0, false
	}
	words := Words(content)
	return (words + WordsPerMinute - 1) / WordsPerMinute, true
}
