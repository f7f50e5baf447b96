package utils

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSanitizeURI(t *testing.T) {
	require.Equal(t, "/wallet/abc?x=1", SanitizeURI("/wallet/abc?x=1", 0))
	require.Equal(t, "/a/b", SanitizeURI("/a/\r\n<b>", 0))
	require.Equal(t, "/abc", SanitizeURI("/abc\x00def\x7f", 4))

	long := "/" + strings.Repeat("a", 200)
	require.Len(t, SanitizeURI(long, 100), 100)
}

func TestSplitHostPort(t *testing.T) {
	cases := []struct {
		in   string
		host string
		port int
	}{
		{"127.0.0.1", "127.0.0.1", 8332},
		{"127.0.0.1:18332", "127.0.0.1", 18332},
		{"example.com:80", "example.com", 80},
		{"::1", "::1", 8332},
		{"[::1]", "::1", 8332},
		{"[::1]:18332", "::1", 18332},
		{"0.0.0.0:notaport", "0.0.0.0:notaport", 8332},
		{"", "", 8332},
	}
	for _, c := range cases {
		host, port := SplitHostPort(c.in, 8332)
		require.Equal(t, c.host, host, "input %q", c.in)
		require.Equal(t, c.port, port, "input %q", c.in)
	}
}
