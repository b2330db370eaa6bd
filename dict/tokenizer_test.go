package dict_test

import (
	"testing"
	"testing/quick"

	"github.com/ArcaneChat/chatmail/dict"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Structs

var splitTests = []struct {
	in  string
	out []string
}{
	{``, []string{""}},
	{`abc`, []string{"abc"}},
	{`a"b`, []string{"a", "b"}},
	{`a"`, []string{"a", ""}},
	{`"a`, []string{"", "a"}},
	{`""`, []string{"", "", ""}},
	{`a\"b"c`, []string{`a"b`, "c"}},
	{`a\\"b`, []string{`a\`, "b"}},
	{`\'x\/y`, []string{`'x/y`}},
	{`laksjdlaksjdlak\\sjdlk\"12j\'3l1/k2j3123"some42123@chat.example.org`, []string{`laksjdlaksjdlak\sjdlk"12j'3l1/k2j3123`, "some42123@chat.example.org"}},
	{`pässwörd"ü@chat.example.org`, []string{"pässwörd", "ü@chat.example.org"}},
}

// Functions

// TestSplitAndUnescape executes a table test on
// the field tokenizer.
func TestSplitAndUnescape(t *testing.T) {

	for _, tt := range splitTests {

		fields, err := dict.SplitAndUnescape(tt.in)
		require.NoError(t, err, "input %q", tt.in)
		assert.Equal(t, tt.out, fields, "input %q", tt.in)
	}
}

// TestSplitAndUnescapeTrailingEscape makes sure a lone
// escape character at the end is refused, not dropped.
func TestSplitAndUnescapeTrailingEscape(t *testing.T) {

	for _, in := range []string{`\`, `abc\`, `a"b\`, `a\\\`} {

		_, err := dict.SplitAndUnescape(in)
		assert.ErrorIs(t, err, dict.ErrInvalidEscape, "input %q", in)
	}
}

// TestEscapeRoundTrip checks that splitting an escaped
// field list yields the original fields.
func TestEscapeRoundTrip(t *testing.T) {

	roundTrip := func(first string, rest []string) bool {

		fields := append([]string{first}, rest...)

		got, err := dict.SplitAndUnescape(dict.Escape(fields...))
		if err != nil {
			return false
		}

		return assert.ObjectsAreEqual(fields, got)
	}

	require.NoError(t, quick.Check(roundTrip, nil))

	// Hand-picked fields made only of special characters.
	fields := []string{`\`, `"`, `\"`, ``, `"\\"`}
	got, err := dict.SplitAndUnescape(dict.Escape(fields...))
	require.NoError(t, err)
	assert.Equal(t, fields, got)
}
