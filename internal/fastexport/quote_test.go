package fastexport

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEnquoteDequoteRoundTrip(t *testing.T) {
	cases := []string{
		"plain/path.txt",
		"has a space.txt",
		"\"leading-quote.txt",
		"line\nbreak.txt",
		"tab\tchar.txt",
	}
	for _, c := range cases {
		q := Enquote([]byte(c))
		got := Dequote(q)
		assert.Equal(t, c, string(got))
	}
}

func TestEnquoteLeavesPlainPathsAlone(t *testing.T) {
	assert.Equal(t, []byte("src/file1.txt"), Enquote([]byte("src/file1.txt")))
}

func TestEnquoteQuotesLeadingDoubleQuote(t *testing.T) {
	out := Enquote([]byte("\"weird.txt"))
	assert.Equal(t, `"\"weird.txt"`, string(out))
}
