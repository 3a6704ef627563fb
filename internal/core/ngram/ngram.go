// Package ngram builds character n-gram frequency signatures of article content.
//
// A signature counts every overlapping substring of Size characters (Unicode
// code points) found by sliding a window one character at a time. Content is
// taken as is: no case folding, no whitespace handling, no tokenization.
//
// Content is decoded as UTF-8. Each invalid byte decodes to U+FFFD, so
// distinct invalid sequences of the same length yield the same grams.
package ngram

// Size is the n-gram length used for every signature.
const Size = 3

// Signature maps an n-gram to the number of times it occurs.
type Signature map[string]int

// Build returns the signature of content. Content shorter than Size
// characters yields an empty signature.
func Build(content string) Signature {
	runes := []rune(content)
	if len(runes) < Size {
		return Signature{}
	}

	sig := make(Signature, len(runes)-Size+1)
	for i := 0; i+Size <= len(runes); i++ {
		sig[string(runes[i:i+Size])]++
	}
	return sig
}

// Total is the sum of all counts, i.e. max(0, characters-Size+1).
func (s Signature) Total() int {
	total := 0
	for _, c := range s {
		total += c
	}
	return total
}

// Len is the number of distinct n-grams.
func (s Signature) Len() int {
	return len(s)
}

// Empty reports whether the signature holds no n-grams.
func (s Signature) Empty() bool {
	return len(s) == 0
}
