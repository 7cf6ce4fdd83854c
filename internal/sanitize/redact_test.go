package sanitize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

const sampleCV = `Jane Doe
Email: jane.doe@example.com | Phone: (555) 123-4567 | +44 20 7946 0958
Portfolio: https://jane.dev/work and linkedin.com/in/janedoe
Address: 12 Baker St. London
Employee ID 12345678
Worked 2019-2021 with Python and SQL`

func TestRedactLevels(t *testing.T) {
	t.Run("level none is a no-op", func(t *testing.T) {
		assert.Equal(t, sampleCV, Redact(sampleCV, LevelNone, 10))
	})

	t.Run("contact details", func(t *testing.T) {
		out := Redact(sampleCV, LevelContact, 0)

		assert.NotContains(t, out, "jane.doe@example.com")
		assert.NotContains(t, out, "123-4567")
		assert.NotContains(t, out, "7946")
		assert.NotContains(t, out, "https://jane.dev")
		assert.NotContains(t, out, "linkedin.com/in/janedoe")
		assert.Contains(t, out, "[email]")
		assert.Contains(t, out, "[phone]")
		assert.Contains(t, out, "[url]")
		assert.Contains(t, out, "Baker St.", "addresses survive level 1")
		assert.Contains(t, out, "12345678", "digit runs survive level 1")
		assert.Contains(t, out, "2019-2021 with Python and SQL")
	})

	t.Run("address and digit runs", func(t *testing.T) {
		out := Redact(sampleCV, LevelAddress, 0)

		assert.NotContains(t, out, "Baker")
		assert.NotContains(t, out, "12345678")
		assert.NotContains(t, out, "jane.doe@example.com")
		assert.Contains(t, out, "[number]")
		assert.Contains(t, out, "2019-2021 with Python and SQL")
	})
}

func TestRedactPhoneKeepsSurroundingText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"sentence after number", "Call +1 555 123 4567. 2015 - 2020 (5) years Python", "Call [phone]. 2015 - 2020 (5) years Python"},
		{"years after number", "Jane, +44 20 7946 0958. 8 years of Go.", "Jane, [phone]. 8 years of Go."},
		{"parenthesised area code", "Mobile +1 (555) 123-4567, Go since 2016", "Mobile [phone], Go since 2016"},
		{"domestic format", "Phone 555.123.4567; Kubernetes 3 years", "Phone [phone]; Kubernetes 3 years"},
		{"date range only", "Worked 2015 - 2020 on Python", "Worked 2015 - 2020 on Python"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Redact(tt.input, LevelContact, 0))
		})
	}
}

func TestRedactIsCumulative(t *testing.T) {
	l1 := Redact(sampleCV, LevelContact, 0)
	l2 := Redact(sampleCV, LevelAddress, 0)
	assert.LessOrEqual(t, len(l2), len(l1))
	assert.Equal(t, l2, Redact(l1, LevelAddress, 0))
}

func TestRedactTruncation(t *testing.T) {
	long := strings.Repeat("ä", 5000)

	assert.Len(t, []rune(Redact(long, LevelContact, 0)), DefaultMaxChars)
	assert.Len(t, []rune(Redact(long, LevelAddress, 0)), DefaultMaxChars*3/4)
	assert.Len(t, []rune(Redact(long, LevelContact, 100)), 100)
	assert.Len(t, []rune(Redact(long, LevelAddress, 100)), 75)
	assert.Equal(t, "short", Redact("short", LevelAddress, 100))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "", Truncate("abc", 0))
	assert.Equal(t, "ab", Truncate("abc", 2))
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "éé", Truncate("ééé", 2))
}
