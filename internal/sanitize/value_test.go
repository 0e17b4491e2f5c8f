package sanitize

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValueCollapsesNullSentinels(t *testing.T) {
	require := require.New(t)
	require.Nil(Value("notes", "None"))
	require.Nil(Value("notes", "NULL"))
	require.Nil(Value("notes", "  nan  "))
	require.Nil(Value("notes", "   "))
	require.Nil(Value("notes", nil))
}

func TestValueTrimsPlainStrings(t *testing.T) {
	require := require.New(t)
	require.Equal("hello", Value("notes", "  hello  "))
}

func TestValuePassesThroughNonStrings(t *testing.T) {
	require := require.New(t)
	require.Equal(42, Value("qty", 42))
	require.Equal(3.14, Value("amount", 3.14))
}

func TestValueParsesDateLikeFields(t *testing.T) {
	require := require.New(t)
	got := Value("created_date", "2024-01-15")
	parsed, ok := got.(time.Time)
	require.True(ok)
	require.Equal(2024, parsed.Year())
	require.Equal(time.Month(1), parsed.Month())
	require.Equal(15, parsed.Day())
}

func TestValueLeavesUnparsableDateFieldAsString(t *testing.T) {
	require := require.New(t)
	require.Equal("not-a-date", Value("created_date", "not-a-date"))
}

func TestValueDoesNotDateParseNonDateField(t *testing.T) {
	require := require.New(t)
	require.Equal("2024-01-15", Value("sku", "2024-01-15"))
}

func TestParseDateFormats(t *testing.T) {
	require := require.New(t)

	cases := []string{
		"2024-01-15",
		"2024-01-15 10:30:00",
		"15/01/2024",
		"01/15/2024",
		"2024/01/15",
		"15 Jan 2024",
		"Jan 15, 2024",
		"20240115",
	}
	for _, c := range cases {
		_, ok := ParseDate(c)
		require.Truef(ok, "expected %q to parse", c)
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	require := require.New(t)
	_, ok := ParseDate("definitely not a date")
	require.False(ok)
}
