package model

import (
	"regexp"
	"strings"
)

// Platform mention tags look like "[@Some Name](mention/...00)".
var mentionTag = regexp.MustCompile(`\[@.*\d\d\)`)

// ClearTags strips platform mention tags from message text.
func ClearTags(s string) string {
	return strings.TrimSpace(mentionTag.ReplaceAllString(s, ""))
}
