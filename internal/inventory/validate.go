package inventory

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Input limits enforced before anything reaches the record store.
const (
	MaxNameLen     = 100
	MaxCategoryLen = 50
	MaxCommandLen  = 500
	MaxQuantity    = 1_000_000
	MaxPrice       = 1_000_000

	// DefaultCategory is assigned to items added without an explicit
	// category.
	DefaultCategory = "General"
)

// invalidNameChars are characters rejected in item names. The set mirrors
// what most filesystems forbid, which keeps names safe for exports.
var invalidNameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// ValidateItemName checks a user-supplied item name. Returns a
// *ValidationError with a speakable message on failure.
func ValidateItemName(name string) error {
	if strings.TrimSpace(name) == "" {
		return &ValidationError{Msg: "Item name cannot be empty"}
	}
	if utf8.RuneCountInString(name) > MaxNameLen {
		return &ValidationError{Msg: "Item name too long (max 100 characters)"}
	}
	if invalidNameChars.MatchString(name) {
		return &ValidationError{Msg: "Item name contains invalid characters"}
	}
	return nil
}

// ValidateQuantity checks a stock quantity or quantity delta magnitude.
func ValidateQuantity(quantity int) error {
	if quantity < 0 {
		return &ValidationError{Msg: "Quantity cannot be negative"}
	}
	if quantity > MaxQuantity {
		return &ValidationError{Msg: "Quantity too large (max 1,000,000)"}
	}
	return nil
}

// ValidatePrice checks a unit price.
func ValidatePrice(price float64) error {
	if price < 0 {
		return &ValidationError{Msg: "Price cannot be negative"}
	}
	if price > MaxPrice {
		return &ValidationError{Msg: "Price too large (max 1,000,000)"}
	}
	return nil
}

// ValidateCategory checks an item category name.
func ValidateCategory(category string) error {
	if strings.TrimSpace(category) == "" {
		return &ValidationError{Msg: "Category cannot be empty"}
	}
	if utf8.RuneCountInString(category) > MaxCategoryLen {
		return &ValidationError{Msg: "Category name too long (max 50 characters)"}
	}
	return nil
}

// ValidateCommand checks raw command text before parsing.
func ValidateCommand(command string) error {
	if strings.TrimSpace(command) == "" {
		return &ValidationError{Msg: "Command cannot be empty"}
	}
	if utf8.RuneCountInString(command) > MaxCommandLen {
		return &ValidationError{Msg: "Command too long (max 500 characters)"}
	}
	return nil
}

var (
	whitespaceRun = regexp.MustCompile(`\s+`)
	controlChars  = regexp.MustCompile(`[\x00-\x1f\x7f-\x9f]`)
)

// SanitizeText normalises raw recognizer output: trims surrounding
// whitespace, collapses internal whitespace runs to single spaces, and
// strips control characters.
func SanitizeText(text string) string {
	text = strings.TrimSpace(text)
	text = whitespaceRun.ReplaceAllString(text, " ")
	text = controlChars.ReplaceAllString(text, "")
	return text
}
