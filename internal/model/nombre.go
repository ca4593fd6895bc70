package model

import "strings"

// NormalizarNombre is the single normalization used for every cross-branch name join:
// surrounding whitespace trimmed, inner runs of whitespace collapsed, case folded.
func NormalizarNombre(nombre string) string {
	return strings.ToLower(strings.Join(strings.Fields(nombre), " "))
}
