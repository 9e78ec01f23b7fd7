package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVersion(t *testing.T) {
	v, err := ParseVersion(" 16.04 ")
	require.NoError(t, err)
	assert.Equal(t, Version{Major: 16, Minor: 4}, v)
	assert.Equal(t, "16.4", v.String())

	for _, bad := range []string{"", "16", "16.x", "a.1", "-1.2"} {
		_, err := ParseVersion(bad)
		assert.Error(t, err, "input %q", bad)
	}
}

func TestParseVersionList(t *testing.T) {
	got := ParseVersionList("15.5, 16.4,bogus,16.3,16.4,,")
	assert.Equal(t, []Version{{16, 4}, {16, 3}, {15, 5}}, got)
	assert.Empty(t, ParseVersionList(""))
}

func TestVersionRange(t *testing.T) {
	got := VersionRange(14, 15, 2)
	assert.Equal(t, []Version{{15, 2}, {15, 1}, {14, 2}, {14, 1}}, got)
	assert.Empty(t, VersionRange(16, 15, 24))
}

func TestCandidates(t *testing.T) {
	got := Candidates("https://example.test/news", Version{Major: 16, Minor: 4})
	assert.Equal(t, []string{
		"https://example.test/news/teamfight-tactics-patch-16-4/",
		"https://example.test/news/teamfight-tactics-patch-16-4-notes/",
	}, got)
}

func TestSlugFromURL(t *testing.T) {
	assert.Equal(t, "teamfight-tactics-patch-16-4", SlugFromURL("https://x.test/news/teamfight-tactics-patch-16-4/"))
	assert.Equal(t, "plain", SlugFromURL("plain"))
}
