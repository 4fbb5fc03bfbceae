package interfaces

import (
	"io"
)

// TemplateRenderer executes a named page template. When out is provided the
// result is also streamed to each writer.
type TemplateRenderer interface {
	Render(name string, data any, out ...io.Writer) (string, error)
}
