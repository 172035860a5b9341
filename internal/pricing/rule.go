package pricing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"
)

// Rule selects how a bundle discounts the sum of its members.
type Rule string

const (
	RuleDiscount10   Rule = "discount_10"
	RuleDiscount15   Rule = "discount_15"
	RuleFreeEvery5th Rule = "free_every_5th"

	DefaultRule = RuleDiscount10
)

// freeEvery is how many members it takes to get the cheapest one free.
const freeEvery = 5

var (
	factor10 = decimal.New(90, -2)
	factor15 = decimal.New(85, -2)
)

var ruleLabels = map[Rule]string{
	RuleDiscount10:   "10% discount",
	RuleDiscount15:   "15% discount",
	RuleFreeEvery5th: "every 5th item free",
}

func Rules() []Rule {
	return []Rule{RuleDiscount10, RuleDiscount15, RuleFreeEvery5th}
}

func (r Rule) Valid() bool {
	_, ok := ruleLabels[r]
	return ok
}

func (r Rule) Label() string {
	if label, ok := ruleLabels[r]; ok {
		return label
	}
	return string(r)
}

// ParseRule maps an empty string to DefaultRule and rejects unknown names.
func ParseRule(s string) (Rule, error) {
	if s == "" {
		return DefaultRule, nil
	}
	r := Rule(s)
	if !r.Valid() {
		return "", &ConfigurationError{Rule: r}
	}
	return r, nil
}

// Policy decides what happens to a bundle whose rule is not recognised.
type Policy int

const (
	// PolicyStrict fails with a ConfigurationError.
	PolicyStrict Policy = iota
	// PolicyLenient prices the bundle at the undiscounted total.
	PolicyLenient
)

func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "strict":
		return PolicyStrict, nil
	case "lenient":
		return PolicyLenient, nil
	default:
		return PolicyStrict, fmt.Errorf("unknown pricing policy %q", s)
	}
}

func (p Policy) String() string {
	if p == PolicyLenient {
		return "lenient"
	}
	return "strict"
}

// ConfigurationError is returned for a bundle rule or product kind that the
// engine does not know how to price.
type ConfigurationError struct {
	Rule Rule
	Kind string
}

func (e *ConfigurationError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("no pricing defined for product kind %q", e.Kind)
	}
	return fmt.Sprintf("unknown pricing rule %q", e.Rule)
}

// ApplyRule computes a bundle price from its member prices. Prices are kept
// at full precision; round with Display.
func ApplyRule(rule Rule, policy Policy, prices []decimal.Decimal) (decimal.Decimal, error) {
	if len(prices) == 0 {
		return decimal.Zero, nil
	}
	total := decimal.Sum(prices[0], prices[1:]...)

	switch rule {
	case RuleDiscount10:
		return total.Mul(factor10), nil
	case RuleDiscount15:
		return total.Mul(factor15), nil
	case RuleFreeEvery5th:
		sorted := append([]decimal.Decimal(nil), prices...)
		sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].LessThan(sorted[j]) })

		free := decimal.Zero
		for _, p := range sorted[:len(sorted)/freeEvery] {
			free = free.Add(p)
		}
		return total.Sub(free), nil
	}

	if policy == PolicyLenient {
		return total, nil
	}
	return decimal.Zero, &ConfigurationError{Rule: rule}
}

// Display rounds a computed price to cents.
func Display(d decimal.Decimal) string {
	return d.StringFixed(2)
}
