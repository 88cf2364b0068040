package receipt

import (
	"bytes"
	"fmt"
	"strings"
	"unicode/utf8"
)

// ESC/POS control bytes.
const (
	ESC = 0x1B
	GS  = 0x1D
	LF  = 0x0A
)

// Text alignment
const (
	AlignLeft   = 0
	AlignCenter = 1
	AlignRight  = 2
)

// Character sizes for SetFontSize.
const (
	FontNormal = 0x00
	FontDouble = 0x11
	FontWide   = 0x10
	FontTall   = 0x01
)

// Document builds an ESC/POS byte stream for thermal printers. A plain
// document drops every control sequence and only keeps the laid out text,
// which is what the terminal preview shows.
type Document struct {
	buf   bytes.Buffer
	width int
	plain bool
	align int
}

// NewDocument creates an ESC/POS document. Use 32 for 58mm paper and 48 for 80mm.
func NewDocument(charWidth int) *Document {
	if charWidth <= 0 {
		charWidth = 32
	}
	d := &Document{width: charWidth}
	d.Init()
	return d
}

// NewPlainDocument creates a document that renders text only.
func NewPlainDocument(charWidth int) *Document {
	if charWidth <= 0 {
		charWidth = 32
	}
	return &Document{width: charWidth, plain: true}
}

// Width is the print width in characters.
func (d *Document) Width() int { return d.width }

func (d *Document) control(b ...byte) {
	if !d.plain {
		d.buf.Write(b)
	}
}

// Init sends ESC @.
func (d *Document) Init() *Document {
	d.control(ESC, '@')
	return d
}

// LineFeed sends a line feed.
func (d *Document) LineFeed() *Document {
	d.buf.WriteByte(LF)
	return d
}

// FeedLines sends n line feeds.
func (d *Document) FeedLines(n int) *Document {
	for i := 0; i < n; i++ {
		d.buf.WriteByte(LF)
	}
	return d
}

// SetAlign sets text alignment.
func (d *Document) SetAlign(align int) *Document {
	d.align = align
	d.control(ESC, 'a', byte(align))
	return d
}

// SetBold toggles emphasis.
func (d *Document) SetBold(on bool) *Document {
	b := byte(0)
	if on {
		b = 1
	}
	d.control(ESC, 'E', b)
	return d
}

// SetFontSize sets the character size.
func (d *Document) SetFontSize(size byte) *Document {
	d.control(GS, '!', size)
	return d
}

// Text writes a line of text. Plain documents pad centred and right aligned
// text themselves since there is no printer to do it.
func (d *Document) Text(s string) *Document {
	if d.plain {
		s = d.pad(s)
	}
	d.buf.WriteString(s)
	d.buf.WriteByte(LF)
	return d
}

// TextF writes a formatted line of text.
func (d *Document) TextF(format string, args ...any) *Document {
	return d.Text(fmt.Sprintf(format, args...))
}

// Separator prints a full-width rule.
func (d *Document) Separator(char byte) *Document {
	d.buf.WriteString(strings.Repeat(string(char), d.width))
	d.buf.WriteByte(LF)
	return d
}

// KeyValue prints key on the left and value flush right.
func (d *Document) KeyValue(key, value string) *Document {
	d.buf.WriteString(spread(d.width, key, value))
	d.buf.WriteByte(LF)
	return d
}

// Columns lays out cells in fixed widths; the first column is left aligned
// and truncated, the rest are right aligned.
func (d *Document) Columns(widths []int, cells ...string) *Document {
	var b strings.Builder
	for i, cell := range cells {
		if i >= len(widths) {
			break
		}
		w := widths[i]
		if i == 0 {
			b.WriteString(fit(cell, w))
			b.WriteString(strings.Repeat(" ", w-utf8.RuneCountInString(fit(cell, w))))
			continue
		}
		cell = fit(cell, w)
		b.WriteString(strings.Repeat(" ", w-utf8.RuneCountInString(cell)))
		b.WriteString(cell)
	}
	d.buf.WriteString(strings.TrimRight(b.String(), " "))
	d.buf.WriteByte(LF)
	return d
}

// Cut sends a full paper cut.
func (d *Document) Cut() *Document {
	d.control(GS, 'V', 0x00)
	return d
}

// PartialCut sends a partial paper cut.
func (d *Document) PartialCut() *Document {
	d.control(GS, 'V', 0x01)
	return d
}

// Bytes returns the accumulated stream.
func (d *Document) Bytes() []byte {
	return d.buf.Bytes()
}

// String returns the accumulated stream as text.
func (d *Document) String() string {
	return d.buf.String()
}

// Reset clears the buffer.
func (d *Document) Reset() *Document {
	d.buf.Reset()
	d.align = AlignLeft
	d.Init()
	return d
}

func (d *Document) pad(s string) string {
	n := utf8.RuneCountInString(s)
	if n >= d.width {
		return s
	}
	switch d.align {
	case AlignCenter:
		return strings.Repeat(" ", (d.width-n)/2) + s
	case AlignRight:
		return strings.Repeat(" ", d.width-n) + s
	default:
		return s
	}
}

func spread(width int, left, right string) string {
	spaces := width - utf8.RuneCountInString(left) - utf8.RuneCountInString(right)
	if spaces < 1 {
		spaces = 1
	}
	return left + strings.Repeat(" ", spaces) + right
}

func fit(s string, w int) string {
	if w <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= w {
		return s
	}
	return string(r[:w])
}
