package face

import "fmt"

// MouthShape names a canonical visual mouth configuration. Neutral is the rest
// position; the other eighteen are articulated shapes driven by lip sync.
type MouthShape string

const (
	MouthNeutral MouthShape = "neutral"
	MouthA       MouthShape = "a"
	MouthE       MouthShape = "e"
	MouthI       MouthShape = "i"
	MouthO       MouthShape = "o"
	MouthU       MouthShape = "u"
	MouthAI      MouthShape = "ai"
	MouthEI      MouthShape = "ei"
	MouthOU      MouthShape = "ou"
	MouthMBP     MouthShape = "mbp"
	MouthFV      MouthShape = "fv"
	MouthTH      MouthShape = "th"
	MouthTDNL    MouthShape = "tdnl"
	MouthKG      MouthShape = "kg"
	MouthCHSH    MouthShape = "chsh"
	MouthR       MouthShape = "r"
	MouthClosed  MouthShape = "closed"
	MouthSmile   MouthShape = "smile"
	MouthWide    MouthShape = "wide"
)

// MouthShapes lists every shape, rest position first.
var MouthShapes = []MouthShape{
	MouthNeutral,
	MouthA, MouthE, MouthI, MouthO, MouthU,
	MouthAI, MouthEI, MouthOU,
	MouthMBP, MouthFV, MouthTH, MouthTDNL, MouthKG, MouthCHSH, MouthR,
	MouthClosed, MouthSmile, MouthWide,
}

func (s MouthShape) Valid() bool {
	for _, shape := range MouthShapes {
		if s == shape {
			return true
		}
	}
	return false
}

func (s MouthShape) String() string {
	return string(s)
}

func (s *MouthShape) UnmarshalText(text []byte) error {
	shape := MouthShape(text)
	if !shape.Valid() {
		return fmt.Errorf("unknown mouth shape %q", string(text))
	}
	*s = shape
	return nil
}

func (s MouthShape) MarshalText() ([]byte, error) {
	return []byte(s), nil
}
