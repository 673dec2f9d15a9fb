package classify

import (
	"context"
	"regexp"
	"strings"

	"github.com/Veraticus/smsflow/internal/model"
)

// CategoryResult is the outcome of category classification.
type CategoryResult struct {
	Category string
	Reason   string
}

var (
	personWord = regexp.MustCompile(`^\p{Lu}\p{Ll}+$`)
	incomeList = newPhraseList(
		"salary", "payroll", "stipend", "refund", "cashback", "interest", "dividend", "bonus",
	)
)

// ClassifyCategory assigns a spending category to a classified message.
func ClassifyCategory(ctx context.Context, o Overrides, merchant, body string, isCredit bool) (CategoryResult, error) {
	if merchant != "" {
		v, ok, err := lookup(ctx, o, model.CategoryOverrideKey(merchant))
		if err != nil {
			return CategoryResult{}, err
		}
		if ok {
			return CategoryResult{Category: v, Reason: reason("override for merchant", merchant)}, nil
		}
	}

	if LooksLikePerson(merchant) {
		return CategoryResult{Category: model.CategoryPerson, Reason: reason("person name", merchant)}, nil
	}

	if isCredit {
		if w, ok := incomeList.find(body); ok {
			return CategoryResult{Category: model.CategoryIncome, Reason: reason("income wording", w)}, nil
		}
	}

	text := merchant + " " + body
	for _, row := range categoryTable {
		if w, ok := row.words.find(text); ok {
			return CategoryResult{Category: row.category, Reason: reason("category keyword", w)}, nil
		}
	}

	return CategoryResult{Category: model.CategoryOther, Reason: "no category keyword"}, nil
}

// LooksLikePerson reports whether a merchant name reads as a person: one to three
// capitalized words, none of which is a known merchant or category keyword.
func LooksLikePerson(merchant string) bool {
	words := strings.Fields(merchant)
	if len(words) == 0 || len(words) > 3 {
		return false
	}
	for _, w := range words {
		if !personWord.MatchString(w) || isKnownKeyword(w) {
			return false
		}
	}
	return true
}
