package editor

import (
	"strings"

	"github.com/SUSTechPOINTS/boxeditor/pkg/core"
)

// FormatInfo builds the editor caption "<frame>[,<annotator>][ *]".
// The asterisk marks unsaved changes.
func FormatInfo(frame string, box *core.Box) string {
	var b strings.Builder
	b.WriteString(frame)
	if box != nil && box.Annotator != "" {
		b.WriteByte(',')
		b.WriteString(box.Annotator)
	}
	if box != nil && box.Changed {
		b.WriteString(" *")
	}
	return b.String()
}
