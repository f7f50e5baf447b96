package utils

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	isAlphaNumFunc = regexp.MustCompile(`^[[:alnum:]]+$`).MatchString
)

func IsAlphaNum(s string) bool {
	return isAlphaNumFunc(s)
}

// Characters kept by SanitizeURI. Everything else is stripped before the
// string reaches a log line.
const safeCharsURI = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789" +
	"!*'();:@&=+$,/?#[]-_.~%"

// SanitizeURI strips unsafe characters from a request target so it can be
// logged. maxLen truncates the result; pass 0 for no truncation.
func SanitizeURI(s string, maxLen int) string {
	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		if strings.IndexByte(safeCharsURI, s[i]) >= 0 {
			b.WriteByte(s[i])
		}
	}
	out := b.String()
	if maxLen > 0 && len(out) > maxLen {
		out = out[:maxLen]
	}
	return out
}

// SplitHostPort splits "host", "host:port" or "[host]:port". A missing or
// unparsable port yields defaultPort. Bare IPv6 addresses with multiple
// colons are treated as hosts, not host:port pairs.
func SplitHostPort(in string, defaultPort int) (host string, port int) {
	host, port = in, defaultPort
	if colon := strings.LastIndexByte(in, ':'); colon >= 0 {
		// a colon before the last one means bare IPv6 unless bracketed
		bracketed := strings.HasPrefix(in, "[") && strings.HasSuffix(in[:colon], "]")
		multi := strings.IndexByte(in[:colon], ':') >= 0
		if !multi || bracketed {
			if p, err := strconv.Atoi(in[colon+1:]); err == nil && p >= 0 && p < 0x10000 {
				host = in[:colon]
				port = p
			}
		}
	}
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		host = host[1 : len(host)-1]
	}
	return
}
