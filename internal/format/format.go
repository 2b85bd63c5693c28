// Package format renders prices and release dates for display.
package format

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Price formats an amount held in hundredths with its currency symbol. Whole
// amounts drop the decimals, matching catalog copy: Price(18000, "USD", "en") => "$180".
func Price(minor int64, code, lang string) string {
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(code)))
	if err != nil {
		unit = currency.USD
	}
	p := message.NewPrinter(tag(lang))

	neg := minor < 0
	if neg {
		minor = -minor
	}

	scale, _ := currency.Standard.Rounding(unit)
	major := minor / 100
	frac := minor % 100

	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	b.WriteString(symbol(unit))
	b.WriteString(p.Sprintf("%d", major))
	if frac != 0 && scale > 0 {
		b.WriteString(fmt.Sprintf(".%02d", frac))
	}
	return b.String()
}

func symbol(unit currency.Unit) string {
	switch unit {
	case currency.USD:
		return "$"
	case currency.JPY:
		return "¥"
	case currency.EUR:
		return "€"
	case currency.GBP:
		return "£"
	default:
		return unit.String() + " "
	}
}

// Date formats a calendar date in the short form of the given language.
// The date is rendered as stored, without shifting into a local zone.
func Date(t time.Time, lang string) string {
	base, _ := tag(lang).Base()
	switch base.String() {
	case "ja":
		return t.Format("2006年1月2日")
	default:
		return t.Format("Jan 2, 2006")
	}
}

// ISODate renders the machine readable form used in <time datetime>.
func ISODate(t time.Time) string {
	return t.Format("2006-01-02")
}

func tag(lang string) language.Tag {
	t, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return language.AmericanEnglish
	}
	return t
}
