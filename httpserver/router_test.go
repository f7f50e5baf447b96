package httpserver

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yd-915/DJI-COIN/app/config"
)

func nopHandler(*config.DJICoinConfig, *Request, string) {}

func resetHandlers() {
	pathHandlers = nil
}

func TestRouterFirstMatchWins(t *testing.T) {
	defer resetHandlers()

	var hit string
	mk := func(name string) HandlerFunc {
		return func(*config.DJICoinConfig, *Request, string) { hit = name }
	}

	RegisterHTTPHandler("/a", false, mk("broad"))
	RegisterHTTPHandler("/a/b", false, mk("narrow"))

	h, _, found := findPathHandler("/a/b/x")
	require.True(t, found)
	h(nil, nil, "")
	require.Equal(t, "broad", hit)

	resetHandlers()
	RegisterHTTPHandler("/a/b", false, mk("narrow"))
	RegisterHTTPHandler("/a", false, mk("broad"))

	h, _, found = findPathHandler("/a/b/x")
	require.True(t, found)
	h(nil, nil, "")
	require.Equal(t, "narrow", hit)
}

func TestRouterPathTail(t *testing.T) {
	defer resetHandlers()

	RegisterHTTPHandler("/wallet/", false, nopHandler)

	_, tail, found := findPathHandler("/wallet/abc/info")
	require.True(t, found)
	require.Equal(t, "abc/info", tail)
}

func TestRouterExactMatch(t *testing.T) {
	defer resetHandlers()

	RegisterHTTPHandler("/", true, nopHandler)

	_, tail, found := findPathHandler("/")
	require.True(t, found)
	require.Equal(t, "", tail)

	_, _, found = findPathHandler("/other")
	require.False(t, found)
}

func TestRouterNoMatch(t *testing.T) {
	defer resetHandlers()
	_, _, found := findPathHandler("/anything")
	require.False(t, found)
}

func TestUnregisterRemovesFirstMatching(t *testing.T) {
	defer resetHandlers()

	RegisterHTTPHandler("/x", false, nopHandler)
	RegisterHTTPHandler("/x", true, nopHandler)
	require.Len(t, pathHandlers, 2)

	UnregisterHTTPHandler("/x", false)
	require.Len(t, pathHandlers, 1)
	require.True(t, pathHandlers[0].exactMatch)

	// unregistering something never registered is a no-op
	UnregisterHTTPHandler("/y", false)
	require.Len(t, pathHandlers, 1)
}
