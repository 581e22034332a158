package summary

import (
	"regexp"
	"strconv"
	"strings"
)

// tokenPattern matches "label (count)" tokens. Only alphabetic runs are
// recognised as labels, so "limited release (2)" yields "release". A token
// whose label does not end in a letter ("tv 2 (1)", an empty label) is not
// matched at all and its count is lost.
var tokenPattern = regexp.MustCompile(`([a-zA-Z]+)\s*\((\d+)\)`)

// Counts is the projection of an EncodedSummary used by the analytics pass.
type Counts struct {
	Blank    int
	Internet int
	Total    int
}

// Encode renders an aggregate as comma-separated "label (count)" tokens in
// discovery order. The empty aggregate encodes to "".
func Encode(a Aggregate) string {
	if a.IsEmpty() {
		return ""
	}
	parts := make([]string, 0, a.Len())
	for _, l := range a.labels {
		parts = append(parts, l+" ("+strconv.Itoa(a.counts[l])+")")
	}
	return strings.Join(parts, ", ")
}

// Decode extracts blank, internet and total counts from an EncodedSummary.
// Every recognised token contributes to Total; Blank and Internet take the
// value of the last matching token. Text that does not match is ignored.
func Decode(text string) Counts {
	var c Counts
	for _, m := range tokenPattern.FindAllStringSubmatch(text, -1) {
		n, err := strconv.Atoi(m[2])
		if err != nil {
			continue
		}
		c.Total += n

		switch strings.ToLower(m[1]) {
		case BlankLabel:
			c.Blank = n
		case InternetLabel:
			c.Internet = n
		}
	}
	return c
}

// DecodeField decodes a loosely typed cell. Anything other than a string
// or a non-nil *string decodes to zero counts.
func DecodeField(v any) Counts {
	switch s := v.(type) {
	case string:
		return Decode(s)
	case *string:
		if s != nil {
			return Decode(*s)
		}
	}
	return Counts{}
}

// CountsOf projects an aggregate directly, without the text round trip.
// It agrees with Decode(Encode(a)) whenever every label is purely alphabetic.
func CountsOf(a Aggregate) Counts {
	return Counts{
		Blank:    a.Count(BlankLabel),
		Internet: a.Count(InternetLabel),
		Total:    a.Total(),
	}
}
