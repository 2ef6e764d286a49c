package command

import (
	"strconv"
	"strings"
)

// fillerWords are conversational tokens dropped during normalisation. They
// carry no meaning for intent or entity extraction and recognizers insert
// them liberally.
var fillerWords = map[string]struct{}{
	"bro": {}, "please": {}, "can": {}, "you": {}, "could": {},
	"would": {}, "like": {}, "to": {}, "the": {}, "a": {}, "an": {},
}

// numberWords maps spoken cardinal numbers to their values. Compounds like
// "twenty-five" are handled in tokenToNumber.
var numberWords = map[string]int{
	"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4,
	"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9,
	"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13,
	"fourteen": 14, "fifteen": 15, "sixteen": 16, "seventeen": 17,
	"eighteen": 18, "nineteen": 19,
	"twenty": 20, "thirty": 30, "forty": 40, "fifty": 50,
	"sixty": 60, "seventy": 70, "eighty": 80, "ninety": 90,
	"hundred": 100, "thousand": 1000, "million": 1_000_000,
}

// tokenPunctuation is trimmed from token edges before further processing, so
// "apples." and "apples" normalise identically.
const tokenPunctuation = `.,!?;:"'`

// tokenToNumber converts a single spoken-number token to its value. Digit
// tokens are normalised too ("05" becomes 5). ok is false for anything that
// is not a number, leaving the token untouched by the caller.
func tokenToNumber(token string) (int, bool) {
	if n, err := strconv.Atoi(token); err == nil {
		return n, true
	}
	if n, ok := numberWords[token]; ok {
		return n, true
	}
	// Hyphenated compounds: tens-units, "twenty-five".
	if tens, units, found := strings.Cut(token, "-"); found {
		t, okT := numberWords[tens]
		u, okU := numberWords[units]
		if okT && okU && t >= 20 && t <= 90 && t%10 == 0 && u >= 1 && u <= 9 {
			return t + u, true
		}
	}
	return 0, false
}

// Normalize prepares raw utterance text for intent detection: lowercases,
// trims token-edge punctuation, drops filler words, converts number words to
// digits, and collapses whitespace. A token that fails number conversion
// passes through unchanged; one bad token never fails the utterance.
func Normalize(text string) string {
	text = strings.ToLower(strings.TrimSpace(text))

	var out []string
	for _, token := range strings.Fields(text) {
		token = strings.Trim(token, tokenPunctuation)
		if token == "" {
			continue
		}
		if _, filler := fillerWords[token]; filler {
			continue
		}
		if n, ok := tokenToNumber(token); ok {
			token = strconv.Itoa(n)
		}
		out = append(out, token)
	}
	return strings.Join(out, " ")
}
