package parser

import (
	"strconv"
	"time"

	"github.com/ha1tch/partiqlparser/perr"
	"github.com/ha1tch/partiqlparser/ptree"
	"github.com/ha1tch/partiqlparser/token"
	"github.com/ha1tch/partiqlparser/view"
)

// parseDateLiteral parses `DATE 'YYYY-MM-DD'` (§4.5), validating both the
// string shape and calendar correctness (no Feb 30, etc).
func parseDateLiteral(s *state, v view.View) (*ptree.Node, view.View, error) {
	dateTok := v.Head()
	rest := v.Advance()
	strTok, rest2, ok := requireStringLiteral(rest)
	if !ok {
		return nil, v, perr.Expected(perr.InvalidDateString, "a date string literal", rest.Head())
	}
	text := literalText(strTok)
	if _, err := time.Parse("2006-01-02", text); err != nil {
		return nil, v, perr.New(perr.InvalidDateString, "invalid date literal: "+text, &strTok, map[string]any{"text": text})
	}
	node := ptree.Leaf(ptree.DATE, &dateTok)
	node.WithMeta("text", text)
	return node, rest2, nil
}

// timeLayoutsPlain enumerates the TIME literal shapes with no UTC offset.
var timeLayoutsPlain = []string{
	"15:04:05",
	"15:04:05.999999999",
}

// timeLayoutsOffset enumerates the TIME literal shapes that carry an
// explicit numeric UTC offset or trailing `Z`.
var timeLayoutsOffset = []string{
	"15:04:05Z07:00",
	"15:04:05.999999999Z07:00",
}

// maxTimeZoneOffsetSeconds is the widest UTC offset TIME WITH TIME ZONE
// accepts (§4.5/§4.7): plus or minus 18 hours.
const maxTimeZoneOffsetSeconds = 18 * 60 * 60

// parseTimeLiteral parses `TIME [(p)] [WITH TIME ZONE] '...'` (§4.5/§4.7).
func parseTimeLiteral(s *state, v view.View) (*ptree.Node, view.View, error) {
	timeTok := v.Head()
	rest := v.Advance()

	precision := -1
	if rest.Head().Kind == token.LEFT_PAREN {
		rest = rest.Advance()
		pTok := rest.Head()
		if pTok.Kind != token.LITERAL || pTok.Value == nil || !pTok.Value.IsUnsignedInteger() {
			return nil, v, perr.New(perr.InvalidPrecisionForTime, "TIME precision must be an unsigned integer", &pTok, nil)
		}
		n, _ := pTok.Value.Long()
		if n < 0 || n > 9 {
			return nil, v, perr.New(perr.InvalidPrecisionForTime, "TIME precision must be between 0 and 9", &pTok, nil)
		}
		precision = int(n)
		rest = rest.Advance()
		rest2, ok := rest.RequireKind(token.RIGHT_PAREN)
		if !ok {
			return nil, v, perr.Expected(perr.ExpectedRightParen, ")", rest.Head())
		}
		rest = rest2
	}

	withTimeZone := false
	if rest.Head().HasKeyword("with") && rest.Peek(1).HasKeyword("time") && rest.Peek(2).HasKeyword("zone") {
		withTimeZone = true
		rest = rest.Advance().Advance().Advance()
	}

	strTok, rest2, ok := requireStringLiteral(rest)
	if !ok {
		return nil, v, perr.Expected(perr.InvalidTimeString, "a time string literal", rest.Head())
	}
	text := literalText(strTok)
	hasOffset, validShape := matchTimeText(text)
	if !validShape {
		return nil, v, perr.New(perr.InvalidTimeString, "invalid time literal: "+text, &strTok, map[string]any{"text": text})
	}

	if withTimeZone {
		if hasOffset {
			offsetSeconds, _ := parseTimeOffsetSeconds(text)
			if offsetSeconds > maxTimeZoneOffsetSeconds || offsetSeconds < -maxTimeZoneOffsetSeconds {
				return nil, v, perr.New(perr.InvalidTimeString, "time zone offset out of range [-18:00, +18:00]: "+text, &strTok, map[string]any{"text": text})
			}
		} else {
			// No offset in the literal: substitute the system's current
			// UTC offset, per §4.5/§4.7.
			_, systemOffsetSeconds := time.Now().Zone()
			text += formatOffsetSeconds(systemOffsetSeconds)
		}
	}

	tag := ptree.TIME
	if withTimeZone {
		tag = ptree.TIME_WITH_TIME_ZONE
	}
	node := ptree.Leaf(tag, &timeTok)
	node.WithMeta("text", text)
	node.WithMeta("precision", precision)
	return node, rest2, nil
}

// matchTimeText reports whether text matches one of the accepted TIME
// literal shapes and, if so, whether that shape carries an explicit
// UTC offset (as opposed to a bare local time-of-day).
func matchTimeText(text string) (hasOffset bool, ok bool) {
	for _, layout := range timeLayoutsPlain {
		if _, err := time.Parse(layout, text); err == nil {
			return false, true
		}
	}
	for _, layout := range timeLayoutsOffset {
		if _, err := time.Parse(layout, text); err == nil {
			return true, true
		}
	}
	return false, false
}

// parseTimeOffsetSeconds parses a TIME literal's explicit UTC offset (in
// seconds east of UTC). Only meaningful when matchTimeText reported
// hasOffset == true.
func parseTimeOffsetSeconds(text string) (int, bool) {
	for _, layout := range timeLayoutsOffset {
		if t, err := time.Parse(layout, text); err == nil {
			_, offset := t.Zone()
			return offset, true
		}
	}
	return 0, false
}

// formatOffsetSeconds renders a UTC offset (in seconds east of UTC) as
// the canonical `+HH:MM`/`-HH:MM` suffix appended to a TIME literal.
func formatOffsetSeconds(totalSeconds int) string {
	sign := "+"
	if totalSeconds < 0 {
		sign = "-"
		totalSeconds = -totalSeconds
	}
	hours := totalSeconds / 3600
	minutes := (totalSeconds % 3600) / 60
	return sign + pad2(hours) + ":" + pad2(minutes)
}

func pad2(n int) string {
	s := strconv.Itoa(n)
	if len(s) < 2 {
		return "0" + s
	}
	return s
}

func requireStringLiteral(v view.View) (token.Token, view.View, bool) {
	h := v.Head()
	if h.Kind == token.LITERAL && h.Value != nil && h.Value.IsText() {
		return h, v.Advance(), true
	}
	return h, v, false
}

func literalText(t token.Token) string {
	if t.Value != nil {
		return t.Value.String()
	}
	return t.Text
}
