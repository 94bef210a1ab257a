package service

import (
	"fmt"
	"strings"

	"github.com/fiqhlab/shariah-qa/internal/model"
)

// Compact context formatting. Upstream model input limits are tight enough
// that formatting boilerplate costs answer quality, so each passage gets a
// one-line numbered prefix and passages are joined with a blank line.
const (
	contextSeparator = "\n\n"
	truncationMarker = " [truncated]"
)

// AssembledContext is the prompt context block plus the reference list it
// was built from. Text never exceeds the max length it was assembled with,
// and any truncation lands on a sentence or paragraph boundary.
type AssembledContext struct {
	Text       string
	References []model.Reference
	Truncated  bool
	Excluded   int
}

// AssembleContext formats references into a single bounded context block.
// References are consumed in order; the first passage that does not fit
// whole is included up to a sentence boundary if one fits, and everything
// after it is left out of the text. Left-out references stay in the
// returned list with InContext false, since the caller still shows them as
// sources.
func AssembleContext(refs []model.Reference, maxLength int) *AssembledContext {
	out := &AssembledContext{
		References: make([]model.Reference, len(refs)),
	}
	copy(out.References, refs)

	var sb strings.Builder
	for i := range out.References {
		entry := formatPassage(i, &out.References[i])

		sep := ""
		if sb.Len() > 0 {
			sep = contextSeparator
		}

		if sb.Len()+len(sep)+len(entry) <= maxLength {
			sb.WriteString(sep)
			sb.WriteString(entry)
			out.References[i].InContext = true
			continue
		}

		// The passage overflows. Try a partial inclusion cut at a sentence
		// or paragraph boundary strictly inside the remaining budget.
		available := maxLength - sb.Len() - len(sep)
		if partial, ok := truncatePassage(i, &out.References[i], available); ok {
			sb.WriteString(sep)
			sb.WriteString(partial)
			out.References[i].InContext = true
			out.Truncated = true
			out.Excluded = len(out.References) - i - 1
		} else {
			out.Excluded = len(out.References) - i
		}
		break
	}

	out.Text = sb.String()
	return out
}

// formatPassage renders one reference as "[n] [Title] text". The number
// matches the citation numbering the model is instructed to use.
func formatPassage(i int, ref *model.Reference) string {
	return fmt.Sprintf("[%d] [%s] %s", i+1, ref.Title, ref.Excerpt)
}

// truncatePassage returns the longest prefix of the formatted passage that
// ends at a sentence or paragraph boundary and fits in available bytes,
// marker included. Returns false when no boundary fits.
func truncatePassage(i int, ref *model.Reference, available int) (string, bool) {
	prefix := fmt.Sprintf("[%d] [%s] ", i+1, ref.Title)
	budget := available - len(prefix) - len(truncationMarker)
	if budget <= 0 || budget >= len(ref.Excerpt) {
		return "", false
	}

	cut := ref.Excerpt[:budget]
	boundary := strings.LastIndexByte(cut, '.')
	if nl := strings.LastIndexByte(cut, '\n'); nl > boundary {
		boundary = nl
	}
	if boundary <= 0 {
		return "", false
	}

	// Keep the period, drop the newline.
	if cut[boundary] == '.' {
		boundary++
	}
	return prefix + strings.TrimRight(cut[:boundary], " \n") + truncationMarker, true
}
