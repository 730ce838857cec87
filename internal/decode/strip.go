// File: internal/decode/strip.go
package decode

import "regexp"

var (
	// Bracketed image placeholders the front ends inject in place of
	// generated or referenced images.
	reImageCaption = regexp.MustCompile(`\[Image[^\[\]]*\]`)

	// LaTeX delimiters are unwrapped, inner content preserved.
	reDisplayMath = regexp.MustCompile(`\$\$([^$]+)\$\$`)
	reInlineMath  = regexp.MustCompile(`\$([^$\n]+)\$`)
	reLatexCmd    = regexp.MustCompile(`\\([a-zA-Z]+)`)

	// Markdown emphasis. Italic markers are only unwrapped when the marker
	// does not touch a word character on the outside, so snake_case and
	// in-word asterisks survive.
	reBold        = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	reBoldUnder   = regexp.MustCompile(`__([^_]+)__`)
	reItalic      = regexp.MustCompile(`(^|[^\w*])\*([^*\n]+)\*([^\w*]|$)`)
	reItalicUnder = regexp.MustCompile(`(^|[^\w_])_([^_\n]+)_([^\w_]|$)`)

	reManyNewlines = regexp.MustCompile(`\n{3,}`)
)

// StripFormatting reduces decoder output to plain text: image placeholder
// captions are removed, LaTeX display/inline delimiters and bare command
// backslashes are stripped, Markdown bold/italic markers are unwrapped, and
// runs of three or more newlines collapse to two. The function is
// idempotent: re-applying it to already-stripped text is a no-op.
func StripFormatting(s string) string {
	// Regexp replacement cannot unwrap overlapping emphasis spans in a
	// single scan (the closing context of one match is the opening context
	// of the next), so the passes run to a fixpoint.
	for i := 0; i < 8; i++ {
		next := stripOnce(s)
		if next == s {
			return s
		}
		s = next
	}
	return s
}

func stripOnce(s string) string {
	s = reImageCaption.ReplaceAllString(s, "")
	s = reDisplayMath.ReplaceAllString(s, "$1")
	s = reInlineMath.ReplaceAllString(s, "$1")
	s = reLatexCmd.ReplaceAllString(s, "$1")
	s = reBold.ReplaceAllString(s, "$1")
	s = reBoldUnder.ReplaceAllString(s, "$1")
	s = reItalic.ReplaceAllString(s, "$1$2$3")
	s = reItalicUnder.ReplaceAllString(s, "$1$2$3")
	s = reManyNewlines.ReplaceAllString(s, "\n\n")
	return s
}
