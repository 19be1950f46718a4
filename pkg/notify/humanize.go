package notify

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// displayFields are probed in order when deriving a body from an entity.
var displayFields = []string{"full_name", "title", "subject", "name"}

// HumanizeEventType turns a dotted event type into a readable title:
// "admission.approved" becomes "Admission Approved".
func HumanizeEventType(eventType string) string {
	parts := strings.FieldsFunc(eventType, func(r rune) bool {
		return r == '.' || r == '_'
	})
	for i, part := range parts {
		parts[i] = titleCaser.String(part)
	}
	return strings.Join(parts, " ")
}

// deriveBody builds a fallback notification body from the title and the
// entity's display name when one can be probed.
func deriveBody(title string, entity Entity) string {
	for _, field := range displayFields {
		if name, ok := entityField(entity, field); ok && name != "" {
			return title + ": " + name
		}
	}
	return title
}
