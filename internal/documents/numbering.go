package documents

import (
	"strings"
	"time"
)

var romanMonths = [...]string{
	"I", "II", "III", "IV", "V", "VI",
	"VII", "VIII", "IX", "X", "XI", "XII",
}

// RomanMonth renders a month the way Indonesian administrative letters do.
func RomanMonth(m time.Month) string {
	return romanMonths[int(m)-1]
}

// RenderNumber fills a letter number format. [ID] is the loan code, [BLN] the
// Roman month and [THN] the four digit year. Placeholders are literal find and
// replace; anything else in the format passes through untouched.
func RenderNumber(format, loanCode string, at time.Time) string {
	replacer := strings.NewReplacer(
		"[ID]", loanCode,
		"[BLN]", RomanMonth(at.Month()),
		"[THN]", at.Format("2006"),
	)
	return replacer.Replace(format)
}
