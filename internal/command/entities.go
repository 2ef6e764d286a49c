package command

import (
	"regexp"
	"strconv"
	"strings"
)

// Operation values for stock updates.
const (
	OpAdd      = "add"
	OpSubtract = "subtract"
)

// QueryType values.
const (
	QuerySingle = "single"
	QueryAll    = "all"
)

// ReportType values.
const (
	ReportSummary = "summary"
	ReportDaily   = "daily"
	ReportWeekly  = "weekly"
	ReportMonthly = "monthly"
)

// Entities holds everything extracted from a normalised utterance. Which
// fields are populated depends on the intent: an add_item command fills
// ItemName, Quantity and optionally Price, while a report command only
// fills ReportType.
type Entities struct {
	ItemName string

	// Quantity is the amount for add_item, defaulting to 1. For
	// remove_item it is the partial amount to take out; zero means
	// remove the item completely.
	Quantity int

	// Price is nil when the utterance carried no price clause.
	Price *float64

	Category string

	// Operation is OpAdd or OpSubtract for update_stock.
	Operation string

	// QuantityChange is the signed stock delta for update_stock.
	QuantityChange int

	QueryType  string
	ReportType string
}

var (
	// First number in the text, with or without a trailing unit word.
	quantityPattern = regexp.MustCompile(`\b(\d+)\s*(?:pcs|pieces|packets?|kg|liters?|units?)?\b`)
	pricePattern    = regexp.MustCompile(`\bprice\s+(\d+(?:\.\d+)?)\b`)
	firstInt        = regexp.MustCompile(`\b(\d+)\b`)

	// Name cleanup: command keywords, structured clauses, then leftover
	// numbers, so "store 2 kg sugar price 45.5" leaves just "sugar".
	addKeywords    = regexp.MustCompile(`\b(add|insert|store|put|create|new|item|product|stock)\b`)
	quantityClause = regexp.MustCompile(`\bquantity\s+\d+\b`)
	priceClause    = regexp.MustCompile(`\bprice\s+\d+(?:\.\d+)?\b`)
	unitQuantity   = regexp.MustCompile(`\b\d+\s*(?:pcs|pieces|packets?|kg|liters?|units?)\b`)
	bareDigits     = regexp.MustCompile(`\b\d+\b`)

	updateKeywords = regexp.MustCompile(`\b(update|change|modify|increase|decrease|reduce|add|remove|subtract|by|to|from|stock|inventory)\b`)
	removeKeywords = regexp.MustCompile(`\b(delete|remove|drop|eliminate|item|product)\b`)
	queryKeywords  = regexp.MustCompile(`\b(how|many|much|what|show|display|find|search|get|check|left|remaining|available|in|stock)\b`)

	increaseOp = regexp.MustCompile(`\b(increase|add)\b`)
	decreaseOp = regexp.MustCompile(`\b(decrease|reduce|remove|subtract)\b`)

	queryAllPattern = regexp.MustCompile(`\b(all|everything|total)\b`)
	dailyPattern    = regexp.MustCompile(`\b(daily|today)\b`)
	weeklyPattern   = regexp.MustCompile(`\b(weekly|week)\b`)
	monthlyPattern  = regexp.MustCompile(`\b(monthly|month)\b`)
)

// extractEntities dispatches to the per-intent extractor.
func extractEntities(text string, intent Intent) Entities {
	switch intent {
	case IntentAddItem:
		return extractAddItem(text)
	case IntentUpdateStock:
		return extractUpdateStock(text)
	case IntentRemoveItem:
		return extractRemoveItem(text)
	case IntentQuery:
		return extractQuery(text)
	case IntentReport:
		return extractReport(text)
	}
	return Entities{}
}

func extractAddItem(text string) Entities {
	e := Entities{Quantity: 1}

	if m := quantityPattern.FindStringSubmatch(text); m != nil {
		e.Quantity, _ = strconv.Atoi(m[1])
	}
	if m := pricePattern.FindStringSubmatch(text); m != nil {
		p, _ := strconv.ParseFloat(m[1], 64)
		e.Price = &p
	}

	cleaned := addKeywords.ReplaceAllString(text, "")
	cleaned = quantityClause.ReplaceAllString(cleaned, "")
	cleaned = priceClause.ReplaceAllString(cleaned, "")
	cleaned = unitQuantity.ReplaceAllString(cleaned, "")
	cleaned = bareDigits.ReplaceAllString(cleaned, "")
	e.ItemName = firstWords(cleaned, 3)
	return e
}

func extractUpdateStock(text string) Entities {
	e := Entities{Operation: OpAdd}

	// Increase wins when both directions appear in one utterance.
	if increaseOp.MatchString(text) {
		e.Operation = OpAdd
	} else if decreaseOp.MatchString(text) {
		e.Operation = OpSubtract
	}

	if m := firstInt.FindStringSubmatch(text); m != nil {
		qty, _ := strconv.Atoi(m[1])
		if e.Operation == OpSubtract {
			qty = -qty
		}
		e.QuantityChange = qty
	}

	cleaned := updateKeywords.ReplaceAllString(text, "")
	cleaned = bareDigits.ReplaceAllString(cleaned, "")
	e.ItemName = firstWords(cleaned, 3)
	return e
}

func extractRemoveItem(text string) Entities {
	var e Entities

	// Optional partial quantity; absent means remove the item entirely.
	if m := firstInt.FindStringSubmatch(text); m != nil {
		e.Quantity, _ = strconv.Atoi(m[1])
	}

	cleaned := removeKeywords.ReplaceAllString(text, "")
	cleaned = bareDigits.ReplaceAllString(cleaned, "")
	e.ItemName = firstWords(cleaned, 3)
	return e
}

func extractQuery(text string) Entities {
	e := Entities{QueryType: QuerySingle}

	if queryAllPattern.MatchString(text) {
		e.QueryType = QueryAll
		return e
	}

	cleaned := queryKeywords.ReplaceAllString(text, "")
	e.ItemName = firstWords(cleaned, 3)
	return e
}

func extractReport(text string) Entities {
	e := Entities{ReportType: ReportSummary}

	switch {
	case dailyPattern.MatchString(text):
		e.ReportType = ReportDaily
	case weeklyPattern.MatchString(text):
		e.ReportType = ReportWeekly
	case monthlyPattern.MatchString(text):
		e.ReportType = ReportMonthly
	}
	return e
}

// validateEntities checks that an intent carries the entities it needs.
// It returns a user-facing reason on failure, or "" when the command is
// complete.
func validateEntities(intent Intent, e Entities) string {
	switch intent {
	case IntentAddItem:
		if e.ItemName == "" {
			return "Item name is required"
		}
		if e.Quantity <= 0 {
			return "Quantity must be positive"
		}
	case IntentUpdateStock:
		if e.ItemName == "" {
			return "Item name is required"
		}
		if e.QuantityChange == 0 {
			return "Quantity change must be specified"
		}
	case IntentRemoveItem:
		if e.ItemName == "" {
			return "Item name is required"
		}
	case IntentQuery:
		if e.QueryType == QuerySingle && e.ItemName == "" {
			return "Item name is required for single item query"
		}
	}
	return ""
}

// firstWords truncates s to its first n whitespace-separated words. Item
// names longer than that are almost always leftover command words rather
// than real product names.
func firstWords(s string, n int) string {
	words := strings.Fields(s)
	if len(words) > n {
		words = words[:n]
	}
	return strings.Join(words, " ")
}
