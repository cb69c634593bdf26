package blog

import (
	"strconv"
	"time"
)

// DateLayout selects how a publication date is printed.
type DateLayout int

const (
	// ListingDate prints "25 de mar 2021".
	ListingDate DateLayout = iota
	// PostDate prints "25 mar 2021".
	PostDate
)

var monthsPtBR = [...]string{"jan", "fev", "mar", "abr", "mai", "jun", "jul", "ago", "set", "out", "nov", "dez"}

// Location is the zone dates are rendered in.
var Location = time.UTC

// FormatDate renders t in Brazilian Portuguese. A nil date renders as "".
func FormatDate(t *time.Time, layout DateLayout) string {
	if t == nil || t.IsZero() {
		return ""
	}
	lt := t.In(Location)
	day := lt.Format("02")
	month := monthsPtBR[lt.Month()-1]
	year := strconv.Itoa(lt.Year())
	if layout == ListingDate {
		return day + " de " + month + " " + year
	}
	return day + " " + month + " " + year
}
