package tagihan

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Bulan romawi untuk nomor SPM, mengikuti tata naskah penomoran daerah.
var romanMonths = [...]string{"", "I", "II", "III", "IV", "V", "VI", "VII", "VIII", "IX", "X", "XI", "XII"}

// FormatRegistrationNumber builds "REG-yyyyMMdd-0001" for the given issue date
// and monthly sequence.
func FormatRegistrationNumber(issueDate time.Time, seq int) string {
	return fmt.Sprintf("REG-%s-%04d", issueDate.Format("20060102"), seq)
}

// FormatVerificationNumber builds "VER-yyyyMMdd-0001", same shape as the
// registration number.
func FormatVerificationNumber(issueDate time.Time, seq int) string {
	return fmt.Sprintf("VER-%s-%04d", issueDate.Format("20060102"), seq)
}

// FormatCorrectionNumber derives the correction number from the original
// registration number's trailing sequence plus the monthly correction counter.
func FormatCorrectionNumber(registrationNumber string, monthSeq int) (string, error) {
	parts := strings.Split(registrationNumber, "-")
	if len(parts) < 2 {
		return "", fmt.Errorf("malformed registration number %q", registrationNumber)
	}
	regSeq, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return "", fmt.Errorf("malformed registration number %q: %w", registrationNumber, err)
	}
	return fmt.Sprintf("%d-K-%04d", regSeq, monthSeq), nil
}

// FormatSPMNumber builds the slash-delimited composite SPM number. Field order
// and separators are fixed: downstream print and report consumers parse them.
func FormatSPMNumber(typeCode, scheduleCode, unitCode, regionCode string, seq int, docDate time.Time) string {
	return fmt.Sprintf("%s/%s/%s/%s/%05d/%s/%d",
		typeCode, scheduleCode, unitCode, regionCode, seq, romanMonths[docDate.Month()], docDate.Year())
}

// RegistrationMonthPrefix returns the LIKE prefix covering one calendar month
// of registration numbers, e.g. "REG-202501".
func RegistrationMonthPrefix(t time.Time) string {
	return "REG-" + t.Format("200601")
}

// VerificationMonthPrefix is the verification-number analogue of
// RegistrationMonthPrefix.
func VerificationMonthPrefix(t time.Time) string {
	return "VER-" + t.Format("200601")
}

// NumberSuffix parses the numeric suffix of a formatted document number. A
// missing previous number seeds the counter at zero; the next issuance then
// starts at one.
func NumberSuffix(number string) (int, error) {
	if number == "" {
		return 0, nil
	}
	parts := strings.Split(number, "-")
	suffix, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0, fmt.Errorf("malformed document number %q: %w", number, err)
	}
	return suffix, nil
}
