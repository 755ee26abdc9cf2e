// Package detect finds betting-grid elements in the automation page and
// classifies probed element text.
package detect

import (
	"strconv"
	"strings"
	"unicode"

	"clicker/internal/coords"
)

// Outer-bet values
const (
	Red       = "RED"
	Black     = "BLACK"
	Even      = "EVEN"
	Odd       = "ODD"
	FirstDoz  = "1st 12"
	SecondDoz = "2nd 12"
	ThirdDoz  = "3rd 12"
	LowHalf   = "1-18"
	HighHalf  = "19-36"
)

// MaxNumber is the highest number on the wheel
const MaxNumber = 36

var keywords = []struct {
	words []string
	value string
}{
	{[]string{"1st", "primera", "first"}, FirstDoz},
	{[]string{"2nd", "segunda", "second"}, SecondDoz},
	{[]string{"3rd", "tercera", "third"}, ThirdDoz},
	{[]string{"red", "rojo"}, Red},
	{[]string{"black", "negro"}, Black},
	{[]string{"odd", "impar"}, Odd},
	{[]string{"even", "par"}, Even},
}

// ClassifyValue normalises probed element text into an entry value and kind.
// Bare integers 0 to 36 are numbers; outer-bet keywords in English or Spanish
// become their canonical names; anything else is UNKNOWN.
func ClassifyValue(text string) (string, coords.Kind) {
	t := strings.TrimSpace(text)
	if t == "" {
		return "", coords.KindUnknown
	}
	lower := strings.ToLower(t)

	compact := strings.ReplaceAll(lower, " ", "")
	switch {
	case strings.Contains(compact, "1-18") || strings.Contains(compact, "1to18"):
		return LowHalf, coords.KindOuterBet
	case strings.Contains(compact, "19-36") || strings.Contains(compact, "19to36"):
		return HighHalf, coords.KindOuterBet
	}

	tokens := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, kw := range keywords {
		for _, tok := range tokens {
			for _, w := range kw.words {
				if tok == w {
					return kw.value, coords.KindOuterBet
				}
			}
		}
	}

	// Bare integers only: "2 to 1" is a column bet
	if len(t) <= 2 && strings.Trim(t, "0123456789") == "" {
		if n, err := strconv.Atoi(t); err == nil && n >= 0 && n <= MaxNumber {
			return strconv.Itoa(n), coords.KindNumber
		}
	}
	return t, coords.KindUnknown
}
