// Package lipsync turns text into a timed sequence of phonemes and mouth shapes.
package lipsync

import "github.com/normanking/cortexaffect/internal/face"

// Phoneme is an ARPAbet-style symbol produced by the letter rules.
type Phoneme string

const (
	PhonemeAH  Phoneme = "AH"
	PhonemeAA  Phoneme = "AA"
	PhonemeAE  Phoneme = "AE"
	PhonemeEH  Phoneme = "EH"
	PhonemeIH  Phoneme = "IH"
	PhonemeOH  Phoneme = "OH"
	PhonemeUH  Phoneme = "UH"
	PhonemeAY  Phoneme = "AY"
	PhonemeEY  Phoneme = "EY"
	PhonemeOW  Phoneme = "OW"
	PhonemeM   Phoneme = "M"
	PhonemeB   Phoneme = "B"
	PhonemeP   Phoneme = "P"
	PhonemeF   Phoneme = "F"
	PhonemeV   Phoneme = "V"
	PhonemeTH  Phoneme = "TH"
	PhonemeT   Phoneme = "T"
	PhonemeD   Phoneme = "D"
	PhonemeN   Phoneme = "N"
	PhonemeL   Phoneme = "L"
	PhonemeK   Phoneme = "K"
	PhonemeG   Phoneme = "G"
	PhonemeCH  Phoneme = "CH"
	PhonemeSH  Phoneme = "SH"
	PhonemeR   Phoneme = "R"
	PhonemeSIL Phoneme = "SIL"
)

// Neutral is used for any character the rules do not cover.
const Neutral = PhonemeAH

// digraphs are tried before single letters at every position.
var digraphs = map[string]Phoneme{
	"ai": PhonemeAY, "ay": PhonemeAY,
	"ei": PhonemeEY, "ey": PhonemeEY,
	"ow": PhonemeOW, "ou": PhonemeOW,
	"th": PhonemeTH,
	"ch": PhonemeCH,
	"sh": PhonemeSH,
}

var letters = map[rune]Phoneme{
	'a': PhonemeAH, 'e': PhonemeEH, 'i': PhonemeIH, 'o': PhonemeOH, 'u': PhonemeUH,
	'm': PhonemeM, 'b': PhonemeB, 'p': PhonemeP,
	'f': PhonemeF, 'v': PhonemeV,
	't': PhonemeT, 'd': PhonemeD, 'n': PhonemeN, 'l': PhonemeL,
	'k': PhonemeK, 'g': PhonemeG, 'c': PhonemeK,
	'r': PhonemeR,
	's': PhonemeSH, 'z': PhonemeSH, 'j': PhonemeCH,
	'y': PhonemeEH, 'w': PhonemeUH, 'h': PhonemeAH,
}

var shapes = map[Phoneme]face.MouthShape{
	PhonemeAH: face.MouthA, PhonemeAA: face.MouthA, PhonemeAE: face.MouthA,
	PhonemeEH: face.MouthE,
	PhonemeIH: face.MouthI,
	PhonemeOH: face.MouthO,
	PhonemeUH: face.MouthU,
	PhonemeAY: face.MouthAI,
	PhonemeEY: face.MouthEI,
	PhonemeOW: face.MouthOU,
	PhonemeM:  face.MouthMBP, PhonemeB: face.MouthMBP, PhonemeP: face.MouthMBP,
	PhonemeF: face.MouthFV, PhonemeV: face.MouthFV,
	PhonemeTH: face.MouthTH,
	PhonemeT:  face.MouthTDNL, PhonemeD: face.MouthTDNL, PhonemeN: face.MouthTDNL, PhonemeL: face.MouthTDNL,
	PhonemeK: face.MouthKG, PhonemeG: face.MouthKG,
	PhonemeCH: face.MouthCHSH, PhonemeSH: face.MouthCHSH,
	PhonemeR:   face.MouthR,
	PhonemeSIL: face.MouthClosed,
}

// Shape returns the mouth shape for p, or the rest shape for an unmapped symbol.
func (p Phoneme) Shape() face.MouthShape {
	if s, ok := shapes[p]; ok {
		return s
	}
	return face.MouthNeutral
}

// IsVowel reports whether p takes the long vowel duration.
func (p Phoneme) IsVowel() bool {
	switch p {
	case PhonemeAH, PhonemeAA, PhonemeAE, PhonemeEH, PhonemeIH,
		PhonemeOH, PhonemeUH, PhonemeAY, PhonemeEY, PhonemeOW:
		return true
	}
	return false
}

// Phonemize splits one normalized word into phonemes, greedily matching a
// two-letter rule before a single letter at each position.
func Phonemize(word string) []Phoneme {
	runes := []rune(word)
	out := make([]Phoneme, 0, len(runes))
	for i := 0; i < len(runes); {
		if i+1 < len(runes) {
			if p, ok := digraphs[string(runes[i:i+2])]; ok {
				out = append(out, p)
				i += 2
				continue
			}
		}
		if p, ok := letters[runes[i]]; ok {
			out = append(out, p)
		} else {
			out = append(out, Neutral)
		}
		i++
	}
	return out
}
