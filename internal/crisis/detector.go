// Package crisis screens incoming chat text for self-harm phrases so the chat
// service can branch into the safety-response path before any model call.
package crisis

import "strings"

// Keywords is the fixed phrase list checked on every inbound message. Matching
// is a case-insensitive substring scan; phrases must stay lowercase.
var Keywords = []string{
	"kill myself",
	"suicide",
	"end my life",
	"hurt myself",
	"want to die",
	"die by suicide",
}

// Detect reports whether text contains any crisis phrase.
func Detect(text string) bool {
	low := strings.ToLower(text)
	for _, kw := range Keywords {
		if strings.Contains(low, kw) {
			return true
		}
	}
	return false
}
