package parser

import (
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

const genericType = "application/octet-stream"

// ObjectName builds the storage key for an upload: "<unix millis>-<submission id>-<safe name>".
// The id keeps same-named files uploaded in the same millisecond apart.
func ObjectName(now time.Time, submissionID, fileName string) string {
	return fmt.Sprintf("%d-%s-%s", now.UnixMilli(), submissionID, SafeFileName(fileName))
}

// SafeFileName strips directories and anything outside [A-Za-z0-9._-].
func SafeFileName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}

	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}
	return b.String()
}

// ContentType prefers the client's declared type and falls back to sniffing
// the first bytes of the file.
func ContentType(declared string, head []byte) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != genericType {
		return declared
	}
	if len(head) == 0 {
		return genericType
	}
	return mimetype.Detect(head).String()
}
