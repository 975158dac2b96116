package fst

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// RuneRange is an inclusive range of code points.
type RuneRange struct {
	Lo rune `msgpack:"l"`
	Hi rune `msgpack:"h"`
}

// RuneSet is an immutable set of code points stored as sorted, disjoint,
// non-adjacent ranges. The zero value is the empty set.
//
// Rune sets let a single arc stand for "any digit" or "any letter" without
// enumerating the Unicode alphabet.
type RuneSet struct {
	Ranges []RuneRange `msgpack:"r"`
}

// NewRuneSet returns the normalised union of the given ranges. Ranges with
// Lo > Hi are ignored.
func NewRuneSet(ranges ...RuneRange) RuneSet {
	rs := make([]RuneRange, 0, len(ranges))
	for _, r := range ranges {
		if r.Lo <= r.Hi {
			rs = append(rs, r)
		}
	}
	slices.SortFunc(rs, func(a, b RuneRange) int { return cmp.Compare(a.Lo, b.Lo) })

	out := rs[:0]
	for _, r := range rs {
		if n := len(out); n > 0 && r.Lo <= out[n-1].Hi+1 {
			if r.Hi > out[n-1].Hi {
				out[n-1].Hi = r.Hi
			}
			continue
		}
		out = append(out, r)
	}
	return RuneSet{Ranges: slices.Clip(out)}
}

// Range returns the set of code points in [lo, hi].
func Range(lo, hi rune) RuneSet {
	return NewRuneSet(RuneRange{Lo: lo, Hi: hi})
}

// Runes returns the set of code points occurring in s.
func Runes(s string) RuneSet {
	var rs []RuneRange
	for _, r := range s {
		rs = append(rs, RuneRange{Lo: r, Hi: r})
	}
	return NewRuneSet(rs...)
}

// AnyRune returns the set of all code points.
func AnyRune() RuneSet {
	return Range(0, unicode.MaxRune)
}

// FromTable converts a unicode range table into a RuneSet.
func FromTable(t *unicode.RangeTable) RuneSet {
	var rs []RuneRange
	for _, r := range t.R16 {
		if r.Stride == 1 {
			rs = append(rs, RuneRange{Lo: rune(r.Lo), Hi: rune(r.Hi)})
			continue
		}
		for c := rune(r.Lo); c <= rune(r.Hi); c += rune(r.Stride) {
			rs = append(rs, RuneRange{Lo: c, Hi: c})
		}
	}
	for _, r := range t.R32 {
		if r.Stride == 1 {
			rs = append(rs, RuneRange{Lo: rune(r.Lo), Hi: rune(r.Hi)})
			continue
		}
		for c := rune(r.Lo); c <= rune(r.Hi); c += rune(r.Stride) {
			rs = append(rs, RuneRange{Lo: c, Hi: c})
		}
	}
	return NewRuneSet(rs...)
}

// Contains reports whether r is in s.
func (s RuneSet) Contains(r rune) bool {
	_, found := slices.BinarySearchFunc(s.Ranges, r, func(rr RuneRange, t rune) int {
		switch {
		case rr.Hi < t:
			return -1
		case rr.Lo > t:
			return 1
		}
		return 0
	})
	return found
}

// IsEmpty reports whether s has no members.
func (s RuneSet) IsEmpty() bool { return len(s.Ranges) == 0 }

// Min returns the smallest member of s, or -1 when s is empty.
func (s RuneSet) Min() rune {
	if s.IsEmpty() {
		return -1
	}
	return s.Ranges[0].Lo
}

// Single returns the only member of s when s has exactly one.
func (s RuneSet) Single() (rune, bool) {
	if len(s.Ranges) == 1 && s.Ranges[0].Lo == s.Ranges[0].Hi {
		return s.Ranges[0].Lo, true
	}
	return 0, false
}

// Union returns s ∪ o.
func (s RuneSet) Union(o RuneSet) RuneSet {
	return NewRuneSet(append(slices.Clone(s.Ranges), o.Ranges...)...)
}

// Intersect returns s ∩ o.
func (s RuneSet) Intersect(o RuneSet) RuneSet {
	var out []RuneRange
	i, j := 0, 0
	for i < len(s.Ranges) && j < len(o.Ranges) {
		a, b := s.Ranges[i], o.Ranges[j]
		lo, hi := max(a.Lo, b.Lo), min(a.Hi, b.Hi)
		if lo <= hi {
			out = append(out, RuneRange{Lo: lo, Hi: hi})
		}
		if a.Hi < b.Hi {
			i++
		} else {
			j++
		}
	}
	return RuneSet{Ranges: out}
}

// Complement returns every code point not in s.
func (s RuneSet) Complement() RuneSet {
	var out []RuneRange
	next := rune(0)
	for _, r := range s.Ranges {
		if r.Lo > next {
			out = append(out, RuneRange{Lo: next, Hi: r.Lo - 1})
		}
		next = r.Hi + 1
	}
	if next <= unicode.MaxRune {
		out = append(out, RuneRange{Lo: next, Hi: unicode.MaxRune})
	}
	return RuneSet{Ranges: out}
}

// Minus returns s \ o.
func (s RuneSet) Minus(o RuneSet) RuneSet {
	return s.Intersect(o.Complement())
}

// Equal reports whether s and o have the same members.
func (s RuneSet) Equal(o RuneSet) bool {
	return slices.Equal(s.Ranges, o.Ranges)
}

// key is a compact identity used to deduplicate class tables.
func (s RuneSet) key() string {
	var b strings.Builder
	for _, r := range s.Ranges {
		b.WriteString(strconv.FormatInt(int64(r.Lo), 36))
		b.WriteByte('-')
		b.WriteString(strconv.FormatInt(int64(r.Hi), 36))
		b.WriteByte(',')
	}
	return b.String()
}
