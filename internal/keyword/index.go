// Package keyword provides the catalog term dictionary and the spell checker that
// suggests corrections from it.
package keyword

// minTermLen is the shortest term kept in the dictionary.
const minTermLen = 3

// TermDictionary provides the terms and their frequencies used for spelling
// suggestions.
type TermDictionary interface {
	// Terms returns all unique terms, sorted.
	Terms() []string
	// Frequency returns how many products contain the term.
	Frequency(term string) int
	// Contains reports whether the term is known.
	Contains(term string) bool
}
