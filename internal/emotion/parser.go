package emotion

import (
	"strings"
	"unicode"

	"github.com/rivo/uniseg"

	"github.com/hammamikhairi/moodspeak/internal/domain"
)

// emojiEntry binds one emoji to an emotion. Kept as a slice so listings
// come out in a fixed order; lookups go through emojiTable.
type emojiEntry struct {
	emoji string
	tag   domain.EmotionTag
}

var emojiEntries = []emojiEntry{
	{"🙂", domain.EmotionNeutral}, {"😐", domain.EmotionNeutral}, {"😑", domain.EmotionNeutral},
	{"🤩", domain.EmotionHappy}, {"🤣", domain.EmotionHappy}, {"🥳", domain.EmotionHappy},
	{"😀", domain.EmotionHappy}, {"😃", domain.EmotionHappy}, {"😄", domain.EmotionHappy},
	{"😁", domain.EmotionHappy}, {"😊", domain.EmotionHappy}, {"😂", domain.EmotionHappy},
	{"😢", domain.EmotionSad}, {"😭", domain.EmotionSad}, {"🙁", domain.EmotionSad},
	{"☹", domain.EmotionSad}, {"😞", domain.EmotionSad}, {"😔", domain.EmotionSad},
	{"😡", domain.EmotionAngry}, {"😠", domain.EmotionAngry}, {"🤬", domain.EmotionAngry},
	{"🤔", domain.EmotionDoubt}, {"🫤", domain.EmotionDoubt}, {"🫠", domain.EmotionDoubt},
	{"🫣", domain.EmotionDoubt}, {"🥺", domain.EmotionDoubt}, {"😕", domain.EmotionDoubt},
	{"🙌", domain.EmotionEnthusiasticFormal}, {"👏", domain.EmotionEnthusiasticFormal},
	{"😏", domain.EmotionFunnySarcastic}, {"🙃", domain.EmotionFunnySarcastic}, {"😜", domain.EmotionFunnySarcastic},
	{"😰", domain.EmotionAnxious}, {"😨", domain.EmotionAnxious}, {"😬", domain.EmotionAnxious}, {"😟", domain.EmotionAnxious},
	{"🤢", domain.EmotionDisgusted}, {"🤮", domain.EmotionDisgusted},
	{"😳", domain.EmotionShy}, {"🙈", domain.EmotionShy}, {"☺", domain.EmotionShy},
	{"😒", domain.EmotionDontCare}, {"🤷", domain.EmotionDontCare}, {"🙄", domain.EmotionDontCare},
	{"😍", domain.EmotionAdmire}, {"🥰", domain.EmotionAdmire}, {"🤗", domain.EmotionAdmire},
	{"😩", domain.EmotionDepressed}, {"😫", domain.EmotionDepressed}, {"😪", domain.EmotionDepressed},
}

var emojiTable = func() map[string]domain.EmotionTag {
	m := make(map[string]domain.EmotionTag, len(emojiEntries))
	for _, e := range emojiEntries {
		m[e.emoji] = e.tag
	}
	return m
}()

// EmojiFor returns the emoji that select tag, in table order.
func EmojiFor(tag domain.EmotionTag) []string {
	var out []string
	for _, e := range emojiEntries {
		if e.tag == tag {
			out = append(out, e.emoji)
		}
	}
	return out
}

// Parse splits text into emotion-tagged segments starting from neutral.
func Parse(text string) []domain.Segment {
	segs, _ := ParseFrom(text, domain.EmotionNeutral)
	return segs
}

// ParseFrom splits text starting with the given current emotion and
// returns the segments plus the emotion in effect at the end, so callers
// can carry it into the next line the user types.
//
// Markers are [tag] brackets and emoji. A bracket, or an emoji followed by
// more text, tags the text after it. An emoji that ends a line or clause
// tags the text before it when that text has no marker of its own. The
// emotion carries forward until the next marker. Consecutive markers with
// no text between collapse to the last one.
func ParseFrom(text string, start domain.EmotionTag) ([]domain.Segment, domain.EmotionTag) {
	if !Known(start) {
		start = domain.EmotionNeutral
	}
	p := &parser{cur: start, runTag: start}
	for _, tok := range collapse(tokenize(text)) {
		p.feed(tok)
	}
	p.flush()
	return p.segs, p.cur
}

type tokenKind int

const (
	tokText tokenKind = iota
	tokMarker
)

type token struct {
	kind     tokenKind
	text     string
	tag      domain.EmotionTag
	trailing bool // emoji closing the preceding run
}

type parser struct {
	segs   []domain.Segment
	cur    domain.EmotionTag
	run    strings.Builder
	runTag domain.EmotionTag
	runOwn bool // run was opened by its own marker
}

func (p *parser) feed(tok token) {
	if tok.kind == tokText {
		p.run.WriteString(tok.text)
		return
	}

	if tok.trailing && !p.runOwn && strings.TrimSpace(p.run.String()) != "" {
		p.runTag = tok.tag
		p.flush()
		p.cur = tok.tag
		p.runTag = tok.tag
		return
	}

	p.flush()
	p.cur = tok.tag
	p.runTag = tok.tag
	// A trailing marker with nothing before it only sets the emotion for
	// what follows; that text still counts as unmarked.
	p.runOwn = !tok.trailing
}

func (p *parser) flush() {
	text := strings.TrimSpace(p.run.String())
	p.run.Reset()
	if text != "" {
		p.segs = append(p.segs, domain.Segment{Emotion: p.runTag, Text: text})
	}
	p.runTag = p.cur
	p.runOwn = false
}

// collapse merges trailing emoji markers separated only by whitespace so
// the last one decides the emotion of the text they close. Prefix markers
// need no merging: each one replaces the emotion before any text follows.
func collapse(toks []token) []token {
	out := make([]token, 0, len(toks))
	for _, tok := range toks {
		if tok.kind != tokMarker || !tok.trailing {
			out = append(out, tok)
			continue
		}
		j := len(out) - 1
		for j >= 0 && out[j].kind == tokText && strings.TrimSpace(out[j].text) == "" {
			j--
		}
		if j >= 0 && out[j].kind == tokMarker && out[j].trailing {
			out = append(out[:j], tok)
			continue
		}
		out = append(out, tok)
	}
	return out
}

// tokenize walks grapheme clusters so that multi-codepoint emoji (skin
// tones, ZWJ sequences, variation selectors) are handled as one unit.
func tokenize(text string) []token {
	var clusters []string
	g := uniseg.NewGraphemes(text)
	for g.Next() {
		clusters = append(clusters, g.Str())
	}

	var toks []token
	var buf strings.Builder
	emitText := func() {
		if buf.Len() > 0 {
			toks = append(toks, token{kind: tokText, text: buf.String()})
			buf.Reset()
		}
	}

	for i := 0; i < len(clusters); {
		c := clusters[i]

		if c == "[" {
			if tag, end, ok := bracketAt(clusters, i); ok {
				emitText()
				toks = append(toks, token{kind: tokMarker, tag: tag})
				i = end
				continue
			}
		}

		if isEmoji(c) {
			groups, end := emojiRun(clusters, i)
			if len(groups) == 0 {
				// Unknown emoji: drop it without leaving stray spacing.
				switch {
				case end < len(clusters) && isClausePunct(clusters[end]):
					trimBlankSuffix(&buf)
				case strings.HasSuffix(buf.String(), " "):
					for end < len(clusters) && isBlank(clusters[end]) {
						end++
					}
				}
				i = end
				continue
			}

			punct, after, trailing := trailingAt(clusters, end)
			if trailing && punct != "" {
				trimBlankSuffix(&buf)
				buf.WriteString(punct)
			}
			emitText()
			for _, tag := range groups {
				toks = append(toks, token{kind: tokMarker, tag: tag, trailing: trailing})
			}
			i = after
			continue
		}

		if base, ok := keycapBase(c); ok {
			c = base
		}
		buf.WriteString(c)
		i++
	}
	emitText()
	return toks
}

// bracketAt matches "[tag]" starting at clusters[i]. Only known tags count;
// anything else stays in the text.
func bracketAt(clusters []string, i int) (domain.EmotionTag, int, bool) {
	const maxTagLen = 32
	var name strings.Builder
	for j := i + 1; j < len(clusters) && j-i <= maxTagLen; j++ {
		c := clusters[j]
		if c == "]" {
			tag, ok := Lookup(name.String())
			return tag, j + 1, ok
		}
		if len(c) != 1 || !(c[0] == '_' || isASCIIAlnum(c[0])) {
			return "", 0, false
		}
		name.WriteString(c)
	}
	return "", 0, false
}

func trimBlankSuffix(b *strings.Builder) {
	s := strings.TrimRight(b.String(), " \t")
	b.Reset()
	b.WriteString(s)
}

func isASCIIAlnum(b byte) bool {
	return ('a' <= b && b <= 'z') || ('A' <= b && b <= 'Z') || ('0' <= b && b <= '9')
}

// emojiRun consumes consecutive emoji starting at clusters[i]. Spaces
// between emoji are part of the run. Each group of adjacent emoji with the
// same emotion becomes one graded tag; unknown emoji contribute nothing.
func emojiRun(clusters []string, i int) ([]domain.EmotionTag, int) {
	var (
		groups []domain.EmotionTag
		base   domain.EmotionTag
		count  int
	)
	closeGroup := func() {
		if count > 0 {
			groups = append(groups, Intensify(base, count))
		}
		count = 0
	}

	j := i
	for j < len(clusters) {
		c := clusters[j]
		if isBlank(c) {
			k := j
			for k < len(clusters) && isBlank(clusters[k]) {
				k++
			}
			if k < len(clusters) && isEmoji(clusters[k]) {
				j = k
				continue
			}
			break
		}
		if !isEmoji(c) {
			break
		}
		if tag, ok := emojiTable[normalizeEmoji(c)]; ok {
			if count > 0 && tag != base {
				closeGroup()
			}
			base = tag
			count++
		}
		j++
	}
	closeGroup()
	return groups, j
}

// trailingAt decides whether an emoji run ending at clusters[end] closes
// the text before it: true when only blanks follow up to a line break or
// the end of input, or when clause punctuation follows and is itself
// followed by whitespace. Such punctuation is returned so it stays with
// the closed text; after is where scanning resumes.
func trailingAt(clusters []string, end int) (punct string, after int, ok bool) {
	k := end
	for k < len(clusters) && isBlank(clusters[k]) {
		k++
	}
	if k == len(clusters) || isLineBreak(clusters[k]) {
		return "", k, true
	}

	var b strings.Builder
	for k < len(clusters) && isClausePunct(clusters[k]) {
		b.WriteString(clusters[k])
		k++
	}
	if b.Len() == 0 {
		return "", end, false
	}
	if k == len(clusters) || isBlank(clusters[k]) || isLineBreak(clusters[k]) {
		return b.String(), k, true
	}
	return "", end, false
}

func isBlank(c string) bool { return c == " " || c == "\t" }

func isLineBreak(c string) bool { return c == "\n" || c == "\r\n" || c == "\r" }

func isClausePunct(c string) bool {
	switch c {
	case ".", ",", "!", "?", ";", ":", "…":
		return true
	}
	return false
}

// normalizeEmoji strips variation selectors, skin tone modifiers and ZWJ
// suffixes so "☹️" and "☹" or "🤷🏽‍♀️" and "🤷" share a table entry.
func normalizeEmoji(c string) string {
	if i := strings.IndexRune(c, 0x200D); i > 0 {
		c = c[:i]
	}
	return strings.Map(func(r rune) rune {
		if r == 0xFE0F || r == 0xFE0E || (r >= 0x1F3FB && r <= 0x1F3FF) {
			return -1
		}
		return r
	}, c)
}

// isEmoji reports whether a grapheme cluster is a pictograph. uniseg
// segments clusters but does not export the Extended_Pictographic
// property, so the check is by code point range.
func isEmoji(c string) bool {
	if _, ok := keycapBase(c); ok {
		return false
	}
	for i, r := range c {
		if r == 0xFE0F || r == 0x20E3 {
			return true
		}
		if i == 0 && isPictograph(r) {
			return true
		}
	}
	return false
}

// keycapBase returns the digit, '#' or '*' of a keycap cluster such as
// 1️⃣ so it is spoken as text.
func keycapBase(c string) (string, bool) {
	if c == "" || !strings.ContainsRune(c, 0x20E3) {
		return "", false
	}
	switch b := c[0]; {
	case b >= '0' && b <= '9', b == '#', b == '*':
		return c[:1], true
	}
	return "", false
}

func isPictograph(r rune) bool {
	switch {
	case r >= 0x1F000 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r >= 0x2B00 && r <= 0x2BFF:
		return true
	case r >= 0x2300 && r <= 0x23FF:
		return unicode.IsSymbol(r)
	}
	return false
}
