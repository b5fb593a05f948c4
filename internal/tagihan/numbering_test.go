package tagihan

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestFormatRegistrationNumber(t *testing.T) {
	issue := time.Date(2025, 1, 7, 10, 0, 0, 0, time.UTC)
	require.Equal(t, "REG-20250107-0001", FormatRegistrationNumber(issue, 1))
	require.Equal(t, "REG-20250107-0042", FormatRegistrationNumber(issue, 42))
}

func TestFormatVerificationNumber(t *testing.T) {
	issue := time.Date(2025, 12, 31, 23, 0, 0, 0, time.UTC)
	require.Equal(t, "VER-20251231-0007", FormatVerificationNumber(issue, 7))
}

func TestFormatCorrectionNumber(t *testing.T) {
	got, err := FormatCorrectionNumber("REG-20250107-0031", 4)
	require.NoError(t, err)
	require.Equal(t, "31-K-0004", got)

	_, err = FormatCorrectionNumber("garbage", 1)
	require.Error(t, err)
	_, err = FormatCorrectionNumber("REG-20250107-00xy", 1)
	require.Error(t, err)
}

func TestFormatSPMNumber(t *testing.T) {
	docDate := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	require.Equal(t, "TU/GU/1.01/03/00012/III/2025",
		FormatSPMNumber("TU", "GU", "1.01", "03", 12, docDate))

	december := time.Date(2024, 12, 1, 0, 0, 0, 0, time.UTC)
	require.Equal(t, "LS/UP/2.14/01/00001/XII/2024",
		FormatSPMNumber("LS", "UP", "2.14", "01", 1, december))
}

func TestMonthPrefixes(t *testing.T) {
	at := time.Date(2025, 1, 20, 0, 0, 0, 0, time.UTC)
	require.Equal(t, "REG-202501", RegistrationMonthPrefix(at))
	require.Equal(t, "VER-202501", VerificationMonthPrefix(at))
}

func TestNumberSuffix(t *testing.T) {
	seq, err := NumberSuffix("")
	require.NoError(t, err)
	require.Zero(t, seq)

	seq, err = NumberSuffix("REG-20250107-0031")
	require.NoError(t, err)
	require.Equal(t, 31, seq)

	_, err = NumberSuffix("REG-20250107-00ab")
	require.Error(t, err)
}
