package command

import "testing"

func TestParse_AddItemVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		input     string
		wantQty   int
		wantName  string
		wantPrice *float64
	}{
		{"spoken number", "add five apples", 5, "apples", nil},
		{"digits with free-form name", "Add 10 Kurkure packets", 10, "kurkure packets", nil},
		{"fillers stripped", "bro please add 3 pepsi bottles", 3, "pepsi bottles", nil},
		{"structured clauses", "add item apple quantity 5 price 100", 5, "apple", price(100)},
		{"unit and decimal price", "store 2 kg sugar price 45.5", 2, "sugar", price(45.5)},
		{"quantity defaults to one", "add salt", 1, "salt", nil},
		{"create synonym", "create new item soap", 1, "soap", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := NewParser().Parse(tt.input)
			if !res.OK {
				t.Fatalf("Parse(%q) failed: %s", tt.input, res.Reason)
			}
			if res.Intent != IntentAddItem {
				t.Fatalf("intent = %q, want %q", res.Intent, IntentAddItem)
			}
			if res.Entities.Quantity != tt.wantQty {
				t.Errorf("quantity = %d, want %d", res.Entities.Quantity, tt.wantQty)
			}
			if res.Entities.ItemName != tt.wantName {
				t.Errorf("item name = %q, want %q", res.Entities.ItemName, tt.wantName)
			}
			switch {
			case tt.wantPrice == nil && res.Entities.Price != nil:
				t.Errorf("price = %v, want none", *res.Entities.Price)
			case tt.wantPrice != nil && res.Entities.Price == nil:
				t.Errorf("price missing, want %v", *tt.wantPrice)
			case tt.wantPrice != nil && *res.Entities.Price != *tt.wantPrice:
				t.Errorf("price = %v, want %v", *res.Entities.Price, *tt.wantPrice)
			}
		})
	}
}

func TestParse_UpdateStockVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		input      string
		wantOp     string
		wantChange int
		wantName   string
	}{
		{"increase", "increase rice by 3", OpAdd, 3, "rice"},
		{"reduce", "reduce milk by 2", OpSubtract, -2, "milk"},
		{"decrease after update", "update sugar decrease 4", OpSubtract, -4, "sugar"},
		{"spoken quantity", "increase rice by twenty-five", OpAdd, 25, "rice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := NewParser().Parse(tt.input)
			if !res.OK {
				t.Fatalf("Parse(%q) failed: %s", tt.input, res.Reason)
			}
			if res.Intent != IntentUpdateStock {
				t.Fatalf("intent = %q, want %q", res.Intent, IntentUpdateStock)
			}
			if res.Entities.Operation != tt.wantOp {
				t.Errorf("operation = %q, want %q", res.Entities.Operation, tt.wantOp)
			}
			if res.Entities.QuantityChange != tt.wantChange {
				t.Errorf("quantity change = %d, want %d", res.Entities.QuantityChange, tt.wantChange)
			}
			if res.Entities.ItemName != tt.wantName {
				t.Errorf("item name = %q, want %q", res.Entities.ItemName, tt.wantName)
			}
		})
	}
}

func TestParse_RemoveItem(t *testing.T) {
	t.Parallel()

	t.Run("complete removal", func(t *testing.T) {
		t.Parallel()

		res := NewParser().Parse("delete pepsi")
		if !res.OK {
			t.Fatalf("Parse failed: %s", res.Reason)
		}
		if res.Intent != IntentRemoveItem {
			t.Fatalf("intent = %q, want %q", res.Intent, IntentRemoveItem)
		}
		if res.Entities.ItemName != "pepsi" {
			t.Errorf("item name = %q, want %q", res.Entities.ItemName, "pepsi")
		}
		if res.Entities.Quantity != 0 {
			t.Errorf("quantity = %d, want 0 for complete removal", res.Entities.Quantity)
		}
	})

	t.Run("partial removal", func(t *testing.T) {
		t.Parallel()

		res := NewParser().Parse("remove 2 apples")
		if !res.OK {
			t.Fatalf("Parse failed: %s", res.Reason)
		}
		if res.Intent != IntentRemoveItem {
			t.Fatalf("intent = %q, want %q", res.Intent, IntentRemoveItem)
		}
		if res.Entities.ItemName != "apples" {
			t.Errorf("item name = %q, want %q", res.Entities.ItemName, "apples")
		}
		if res.Entities.Quantity != 2 {
			t.Errorf("quantity = %d, want 2", res.Entities.Quantity)
		}
	})
}

func TestParse_Query(t *testing.T) {
	t.Parallel()

	t.Run("single item", func(t *testing.T) {
		t.Parallel()

		res := NewParser().Parse("how many apples left")
		if !res.OK {
			t.Fatalf("Parse failed: %s", res.Reason)
		}
		if res.Intent != IntentQuery {
			t.Fatalf("intent = %q, want %q", res.Intent, IntentQuery)
		}
		if res.Entities.QueryType != QuerySingle {
			t.Errorf("query type = %q, want %q", res.Entities.QueryType, QuerySingle)
		}
		if res.Entities.ItemName != "apples" {
			t.Errorf("item name = %q, want %q", res.Entities.ItemName, "apples")
		}
	})

	t.Run("whole catalog", func(t *testing.T) {
		t.Parallel()

		res := NewParser().Parse("what is available in stock total")
		if !res.OK {
			t.Fatalf("Parse failed: %s", res.Reason)
		}
		if res.Intent != IntentQuery {
			t.Fatalf("intent = %q, want %q", res.Intent, IntentQuery)
		}
		if res.Entities.QueryType != QueryAll {
			t.Errorf("query type = %q, want %q", res.Entities.QueryType, QueryAll)
		}
		if res.Entities.ItemName != "" {
			t.Errorf("item name = %q, want empty for catalog query", res.Entities.ItemName)
		}
	})
}

func TestParse_ReportVariants(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		wantType string
	}{
		{"daily", "give me daily report", ReportDaily},
		{"weekly", "show weekly summary", ReportWeekly},
		{"monthly", "monthly report please", ReportMonthly},
		{"summary default", "list everything", ReportSummary},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := NewParser().Parse(tt.input)
			if !res.OK {
				t.Fatalf("Parse(%q) failed: %s", tt.input, res.Reason)
			}
			if res.Intent != IntentReport {
				t.Fatalf("intent = %q, want %q", res.Intent, IntentReport)
			}
			if res.Entities.ReportType != tt.wantType {
				t.Errorf("report type = %q, want %q", res.Entities.ReportType, tt.wantType)
			}
		})
	}
}

func TestParse_NoIntent(t *testing.T) {
	t.Parallel()

	res := NewParser().Parse("xyz abc def")
	if res.OK {
		t.Fatal("Parse succeeded, want failure")
	}
	if res.Intent != IntentNone {
		t.Errorf("intent = %q, want none", res.Intent)
	}
	if res.Reason != "Could not understand the command intent" {
		t.Errorf("reason = %q", res.Reason)
	}
	if res.Confidence != 0 {
		t.Errorf("confidence = %v, want 0", res.Confidence)
	}
}

func TestParse_LowConfidenceRejected(t *testing.T) {
	t.Parallel()

	// "check milk" matches one of the two query patterns, scoring 0.5,
	// below the 0.6 default.
	res := NewParser().Parse("check milk")
	if res.OK {
		t.Fatal("Parse succeeded, want rejection below threshold")
	}
	if res.Intent != IntentNone {
		t.Errorf("intent = %q, want none", res.Intent)
	}
	if res.Reason != "Could not understand the command intent" {
		t.Errorf("reason = %q", res.Reason)
	}
}

func TestParse_ThresholdOption(t *testing.T) {
	t.Parallel()

	p := NewParser(WithConfidenceThreshold(0.4))
	if got := p.Threshold(); got != 0.4 {
		t.Fatalf("Threshold() = %v, want 0.4", got)
	}

	res := p.Parse("check milk")
	if !res.OK {
		t.Fatalf("Parse failed at lowered threshold: %s", res.Reason)
	}
	if res.Intent != IntentQuery {
		t.Errorf("intent = %q, want %q", res.Intent, IntentQuery)
	}
	if res.Entities.ItemName != "milk" {
		t.Errorf("item name = %q, want %q", res.Entities.ItemName, "milk")
	}
	if res.Confidence != 0.5 {
		t.Errorf("confidence = %v, want 0.5", res.Confidence)
	}
}

func TestParse_InvalidThresholdIgnored(t *testing.T) {
	t.Parallel()

	for _, bad := range []float64{0, -1, 1.5} {
		p := NewParser(WithConfidenceThreshold(bad))
		if got := p.Threshold(); got != DefaultConfidenceThreshold {
			t.Errorf("Threshold() after option %v = %v, want default %v",
				bad, got, DefaultConfidenceThreshold)
		}
	}
}

func TestParse_ValidationFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		input      string
		wantIntent Intent
		wantReason string
	}{
		{"add without name", "add", IntentAddItem, "Item name is required"},
		{"add zero quantity", "add zero apples", IntentAddItem, "Quantity must be positive"},
		{"update without quantity", "update rice", IntentUpdateStock, "Quantity change must be specified"},
		{"remove without name", "delete", IntentRemoveItem, "Item name is required"},
		{"query without name", "show remaining", IntentQuery, "Item name is required for single item query"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			res := NewParser().Parse(tt.input)
			if res.OK {
				t.Fatalf("Parse(%q) succeeded, want validation failure", tt.input)
			}
			if res.Intent != tt.wantIntent {
				t.Errorf("intent = %q, want %q", res.Intent, tt.wantIntent)
			}
			if res.Reason != tt.wantReason {
				t.Errorf("reason = %q, want %q", res.Reason, tt.wantReason)
			}
			if res.Confidence == 0 {
				t.Error("confidence reset on validation failure, want detected score retained")
			}
		})
	}
}

func TestParse_TieBreakPrefersEarlierIntent(t *testing.T) {
	t.Parallel()

	// Both add_item and update_stock score 1.0 here; the earlier rule wins.
	res := NewParser().Parse("update stock add 5 rice")
	if res.Intent != IntentAddItem {
		t.Errorf("intent = %q, want %q", res.Intent, IntentAddItem)
	}
	if res.Confidence != 1.0 {
		t.Errorf("confidence = %v, want 1.0", res.Confidence)
	}
}

func TestParse_RecordsRawAndNormalized(t *testing.T) {
	t.Parallel()

	res := NewParser().Parse("Bro please add FIVE apples.")
	if res.Raw != "Bro please add FIVE apples." {
		t.Errorf("raw = %q", res.Raw)
	}
	if res.Normalized != "add 5 apples" {
		t.Errorf("normalized = %q, want %q", res.Normalized, "add 5 apples")
	}
}

func TestParse_HistoryRecordsSuccessesOnly(t *testing.T) {
	t.Parallel()

	p := NewParser()

	p.Parse("add five apples")
	p.Parse("xyz abc def")
	p.Parse("delete")
	p.Parse("delete pepsi")

	got := p.History().Recent()
	if len(got) != 2 {
		t.Fatalf("history length = %d, want 2", len(got))
	}
	if got[0].Intent != IntentAddItem || got[1].Intent != IntentRemoveItem {
		t.Errorf("history intents = %q, %q", got[0].Intent, got[1].Intent)
	}
	for _, r := range got {
		if !r.OK {
			t.Errorf("history holds failed result %q", r.Raw)
		}
	}
}

func price(v float64) *float64 {
	return &v
}
