package provider

import (
	"errors"
	"fmt"
	"strings"
)

// Kind identifies one provider endpoint family.
type Kind string

const (
	KindOverview        Kind = "info"
	KindDailyPrices     Kind = "prices"
	KindBalanceSheet    Kind = "balance-sheet"
	KindIncomeStatement Kind = "income-statement"
)

// ErrUnknownKind is returned when a kind name is not recognised.
var ErrUnknownKind = errors.New("provider: unknown kind")

// AllKinds lists every kind in extraction order.
func AllKinds() []Kind {
	return []Kind{KindOverview, KindDailyPrices, KindBalanceSheet, KindIncomeStatement}
}

// ParseKind resolves a configured kind name. Aliases used by older exports
// (bs, inc, overview) are accepted.
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "info", "overview":
		return KindOverview, nil
	case "prices", "daily", "time-series":
		return KindDailyPrices, nil
	case "balance-sheet", "bs":
		return KindBalanceSheet, nil
	case "income-statement", "inc":
		return KindIncomeStatement, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownKind, name)
	}
}

// ParseKinds resolves a list of kind names, keeping order and dropping duplicates.
// An empty list yields AllKinds.
func ParseKinds(names []string) ([]Kind, error) {
	if len(names) == 0 {
		return AllKinds(), nil
	}
	seen := make(map[Kind]bool, len(names))
	out := make([]Kind, 0, len(names))
	for _, name := range names {
		k, err := ParseKind(name)
		if err != nil {
			return nil, err
		}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out, nil
}

// IsTimeSeries reports whether the kind yields one row per date.
func (k Kind) IsTimeSeries() bool {
	return k == KindDailyPrices
}

// IsStatement reports whether the kind is a financial statement report list.
func (k Kind) IsStatement() bool {
	return k == KindBalanceSheet || k == KindIncomeStatement
}

func (k Kind) String() string { return string(k) }
