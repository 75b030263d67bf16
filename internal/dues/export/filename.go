package export

import (
	"strings"

	"github.com/gosimple/slug"
)

const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePDF  = "application/pdf"
)

// FileName builds a download name such as "morosidad-2025-03-bloque-a.xlsx".
// Empty parts are dropped.
func FileName(ext string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := slug.Make(strings.TrimSpace(p)); s != "" {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		kept = append(kept, "export")
	}
	return strings.Join(kept, "-") + "." + strings.TrimPrefix(ext, ".")
}
