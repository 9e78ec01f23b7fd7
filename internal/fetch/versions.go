package fetch

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Version is a "<major>.<minor>" patch number.
type Version struct {
	Major int
	Minor int
}

func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Less orders versions oldest first.
func (v Version) Less(o Version) bool {
	if v.Major != o.Major {
		return v.Major < o.Major
	}
	return v.Minor < o.Minor
}

// ParseVersion accepts "16.4" and normalises leading zeros ("16.04" is 16.4).
func ParseVersion(s string) (Version, error) {
	maj, minor, ok := strings.Cut(strings.TrimSpace(s), ".")
	if !ok {
		return Version{}, fmt.Errorf("invalid version %q: want MAJOR.MINOR", s)
	}
	a, err := strconv.Atoi(maj)
	if err != nil || a < 0 {
		return Version{}, fmt.Errorf("invalid major in version %q", s)
	}
	b, err := strconv.Atoi(minor)
	if err != nil || b < 0 {
		return Version{}, fmt.Errorf("invalid minor in version %q", s)
	}
	return Version{Major: a, Minor: b}, nil
}

// ParseVersionList parses a comma-separated list, dropping invalid and
// duplicate entries, newest first.
func ParseVersionList(s string) []Version {
	seen := make(map[Version]bool)
	var out []Version
	for _, part := range strings.Split(s, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		v, err := ParseVersion(part)
		if err != nil || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	SortVersionsDesc(out)
	return out
}

// VersionRange enumerates every major in [majorMin, majorMax] and every
// minor in [1, minorMax], newest first.
func VersionRange(majorMin, majorMax, minorMax int) []Version {
	var out []Version
	for maj := majorMax; maj >= majorMin; maj-- {
		for minor := minorMax; minor >= 1; minor-- {
			out = append(out, Version{Major: maj, Minor: minor})
		}
	}
	return out
}

// SortVersionsDesc sorts newest first in place.
func SortVersionsDesc(vs []Version) {
	sort.Slice(vs, func(i, j int) bool { return vs[j].Less(vs[i]) })
}

// Candidates lists the page URLs tried for a version. Riot publishes under
// both ".../teamfight-tactics-patch-16-4/" and "...-15-5-notes/".
func Candidates(baseURL string, v Version) []string {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	slug := fmt.Sprintf("teamfight-tactics-patch-%d-%d", v.Major, v.Minor)
	return []string{
		baseURL + slug + "/",
		baseURL + slug + "-notes/",
	}
}

// SlugFromURL returns the last path segment of a page URL.
func SlugFromURL(u string) string {
	u = strings.TrimRight(u, "/")
	if i := strings.LastIndex(u, "/"); i >= 0 {
		return u[i+1:]
	}
	return u
}
