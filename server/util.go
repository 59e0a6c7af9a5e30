package main

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"
)

const defaultPlayerName = "Acolyte"

// sanitizeName strips control characters and clamps a display name
func sanitizeName(name string) string {
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
	name = strings.TrimSpace(name)

	runes := []rune(name)
	if len(runes) > maxNameLen {
		name = strings.TrimSpace(string(runes[:maxNameLen]))
	}
	if name == "" {
		return defaultPlayerName
	}
	return name
}

// hashID returns a stable opaque id so the engine never sees raw account
// or party ids
func hashID(id string) string {
	if id == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:8])
}

// truncateText clamps a chat line
func truncateText(text string, limit int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) > limit {
		return string(runes[:limit])
	}
	return text
}
