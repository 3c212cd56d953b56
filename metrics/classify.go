/*
classify.go - Ledger category classification rules

PURPOSE:
  The cost ledger arrives with free-text category labels. Two cost classes
  are derived from them and the matching rules are deliberately different:

  Attraction (talent/show spend):
    case-insensitive CONTAINS against a keyword set. "Artist Booking" and
    "Contratação de Artistas" both hit the "artist" keyword.

  Payroll (labor cost):
    EXACT match after trimming whitespace. Payroll categories are a closed
    accounting vocabulary; a contains-match would misclassify e.g.
    "FREELA BAR EQUIPMENT RENTAL".

  Both sets are injected configuration, not literals, so finance can evolve
  the vocabulary without a deploy. Ticket keywords classify which ticketing
  products count as admissions for headcount.

SEE ALSO:
  - config/config.go: where the sets are loaded from
  - derive.go: reducers applying these rules
*/
package metrics

import "strings"

// Classifier holds the injected category-matching sets.
type Classifier struct {
	// AttractionKeywords match ledger categories case-insensitively by
	// substring.
	AttractionKeywords []string

	// PayrollCategories match ledger categories exactly after trimming.
	PayrollCategories []string

	// TicketKeywords match ticketing product names case-insensitively by
	// substring; matching products count toward headcount.
	TicketKeywords []string
}

// DefaultClassifier mirrors the category vocabulary the venues report under.
func DefaultClassifier() Classifier {
	return Classifier{
		AttractionKeywords: []string{
			"attraction", "show", "artist", "programming", "event",
		},
		PayrollCategories: []string{
			"STAFF SALARY", "TRANSPORT ALLOWANCE", "MEAL ALLOWANCE",
			"OVERTIME", "FREELANCE SERVICE", "FREELANCE BAR",
			"FREELANCE KITCHEN", "FREELANCE CLEANING", "FREELANCE SECURITY",
			"OWNER DRAW", "LABOR PROVISION",
		},
		TicketKeywords: []string{"ticket", "entry", "admission"},
	}
}

// IsAttraction reports whether a ledger category belongs to the attraction
// cost class.
func (c Classifier) IsAttraction(category string) bool {
	lower := strings.ToLower(category)
	for _, kw := range c.AttractionKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

// IsPayroll reports whether a ledger category belongs to the payroll cost
// class.
func (c Classifier) IsPayroll(category string) bool {
	trimmed := strings.TrimSpace(category)
	for _, name := range c.PayrollCategories {
		if trimmed == name {
			return true
		}
	}
	return false
}

// IsAdmissionProduct reports whether a ticketing product name counts as an
// admission for headcount purposes.
func (c Classifier) IsAdmissionProduct(productName string) bool {
	lower := strings.ToLower(productName)
	for _, kw := range c.TicketKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}
