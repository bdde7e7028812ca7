// Package moderation provides stateless pre-send classification of message
// text. Both classifiers are pure functions with no I/O; false positives
// and negatives within the stated rules are accepted product behavior.
package moderation

import (
	"regexp"
	"strings"
)

// defaultDenyList is the built-in profanity deny-list. Matching is
// case-insensitive substring containment.
var defaultDenyList = []string{
	"badword",
	"damn",
	"hell",
	"crap",
}

var urlRe = regexp.MustCompile(`https?://\S+`)

// Spam thresholds: a word immediately repeated this many times, this many
// URLs in one message, or a single character repeated this many times
// consecutively.
const (
	maxWordRepeats = 5
	maxURLs        = 5
	maxCharRepeats = 5
)

// Classifier applies the deny-list and spam rules. The zero value uses the
// built-in deny-list; use New to supply a custom one.
type Classifier struct {
	denyList []string
}

// New creates a Classifier with the given deny-list. An empty list falls
// back to the built-in one.
func New(denyList []string) *Classifier {
	if len(denyList) == 0 {
		denyList = defaultDenyList
	}
	lowered := make([]string, len(denyList))
	for i, w := range denyList {
		lowered[i] = strings.ToLower(w)
	}
	return &Classifier{denyList: lowered}
}

// IsProfanityFree reports whether text contains no deny-listed term.
// True means clean.
func (c *Classifier) IsProfanityFree(text string) bool {
	deny := c.denyList
	if len(deny) == 0 {
		deny = defaultDenyList
	}
	lowered := strings.ToLower(text)
	for _, w := range deny {
		if strings.Contains(lowered, w) {
			return false
		}
	}
	return true
}

// IsNotSpam reports whether text passes the spam rules: no word immediately
// repeated five or more times, fewer than five URLs, and no single
// character repeated five or more times consecutively.
func (c *Classifier) IsNotSpam(text string) bool {
	if hasRepeatedWord(text, maxWordRepeats) {
		return false
	}
	if len(urlRe.FindAllStringIndex(text, maxURLs)) >= maxURLs {
		return false
	}
	if hasRepeatedChar(text, maxCharRepeats) {
		return false
	}
	return true
}

// IsClean reports whether text passes both classifiers.
func (c *Classifier) IsClean(text string) bool {
	return c.IsProfanityFree(text) && c.IsNotSpam(text)
}

// hasRepeatedWord reports whether any word appears n or more times in
// immediate succession, case-insensitively.
func hasRepeatedWord(text string, n int) bool {
	words := strings.Fields(strings.ToLower(text))
	run := 1
	for i := 1; i < len(words); i++ {
		if words[i] == words[i-1] {
			run++
			if run >= n {
				return true
			}
		} else {
			run = 1
		}
	}
	return false
}

// hasRepeatedChar reports whether any rune repeats n or more times
// consecutively.
func hasRepeatedChar(text string, n int) bool {
	var prev rune
	run := 0
	for _, r := range text {
		if r == prev && run > 0 {
			run++
			if run >= n {
				return true
			}
		} else {
			prev = r
			run = 1
		}
	}
	return false
}
