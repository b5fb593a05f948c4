package tagihan

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var rupiahPrinter = message.NewPrinter(language.Indonesian)

// FormatRupiah renders a gross amount with Indonesian digit grouping, as shown
// in notification texts.
func FormatRupiah(amount float64) string {
	return rupiahPrinter.Sprintf("Rp%.2f", amount)
}
