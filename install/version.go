package install

import (
	"cmp"
	"strings"

	"golang.org/x/mod/semver"
)

// CompareVersions returns -1, 0 or +1 as a is older than, equal to, or newer
// than b. Plain releases that are valid semantic versions (with or without
// the leading "v") use semver ordering, so "2.1" equals "2.1.0". Anything
// with a pre-release or build suffix uses segment ordering: numbers compare
// numerically and the words dev < alpha < beta < RC < (release) < pl.
func CompareVersions(a, b string) int {
	if a == b {
		return 0
	}
	if sa, sb := semverForm(a), semverForm(b); plainRelease(sa) && plainRelease(sb) {
		return semver.Compare(sa, sb)
	}
	return compareSegments(trimV(a), trimV(b))
}

func semverForm(v string) string {
	if strings.HasPrefix(v, "v") {
		return v
	}
	return "v" + v
}

// plainRelease reports a valid semver without pre-release or build parts.
// semver orders pre-releases byte-wise, which puts "RC1" before "beta2".
func plainRelease(v string) bool {
	return semver.IsValid(v) && semver.Prerelease(v) == "" && semver.Build(v) == ""
}

// trimV drops a "v" that leads a number, as in "v1.2".
func trimV(v string) string {
	if len(v) > 1 && v[0] == 'v' && v[1] >= '0' && v[1] <= '9' {
		return v[1:]
	}
	return v
}

// releaseOrder is the rank a numeric segment takes against a word.
const releaseOrder = 4

func compareSegments(a, b string) int {
	switch {
	case a == "" && b == "":
		return 0
	case a == "":
		return -1
	case b == "":
		return 1
	}

	as, bs := splitVersion(a), splitVersion(b)
	n := min(len(as), len(bs))
	for i := 0; i < n; i++ {
		if c := compareSegment(as[i], bs[i]); c != 0 {
			return c
		}
	}

	switch {
	case len(as) > n:
		return tailOrder(as[n])
	case len(bs) > n:
		return -tailOrder(bs[n])
	}
	return 0
}

// tailOrder ranks the first extra segment of the longer version against the
// shorter one: "1.0.1" > "1.0" but "1.0beta" < "1.0".
func tailOrder(seg string) int {
	if isNumeric(seg) {
		return 1
	}
	return cmp.Compare(wordOrder(seg), releaseOrder)
}

func compareSegment(a, b string) int {
	an, bn := isNumeric(a), isNumeric(b)
	switch {
	case an && bn:
		return compareNumeric(a, b)
	case an:
		return cmp.Compare(releaseOrder, wordOrder(b))
	case bn:
		return cmp.Compare(wordOrder(a), releaseOrder)
	}
	return cmp.Compare(wordOrder(a), wordOrder(b))
}

// compareNumeric orders digit strings of any length without overflow.
func compareNumeric(a, b string) int {
	a = strings.TrimLeft(a, "0")
	b = strings.TrimLeft(b, "0")
	if c := cmp.Compare(len(a), len(b)); c != 0 {
		return c
	}
	return strings.Compare(a, b)
}

var words = []struct {
	prefix string
	order  int
}{
	{"dev", 0},
	{"alpha", 1}, {"a", 1},
	{"beta", 2}, {"b", 2},
	{"RC", 3}, {"rc", 3},
	{"#", releaseOrder},
	{"pl", 5}, {"p", 5},
}

// wordOrder ranks a non-numeric segment by prefix; unknown words sort first.
func wordOrder(seg string) int {
	for _, w := range words {
		if strings.HasPrefix(seg, w.prefix) {
			return w.order
		}
	}
	return -1
}

// splitVersion breaks v at separators and at every digit/letter boundary,
// so "1.0rc1" becomes [1 0 rc 1].
func splitVersion(v string) []string {
	var (
		segs []string
		cur  strings.Builder
		prev int // 0 separator, 1 digit, 2 letter
	)
	flush := func() {
		if cur.Len() > 0 {
			segs = append(segs, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(v); i++ {
		c := v[i]
		kind := 0
		switch {
		case c >= '0' && c <= '9':
			kind = 1
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
			kind = 2
		}
		if kind != prev {
			flush()
		}
		if kind != 0 {
			cur.WriteByte(c)
		}
		prev = kind
	}
	flush()
	return segs
}

func isNumeric(seg string) bool {
	if seg == "" {
		return false
	}
	for i := 0; i < len(seg); i++ {
		if seg[i] < '0' || seg[i] > '9' {
			return false
		}
	}
	return true
}
