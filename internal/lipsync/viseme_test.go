package lipsync

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/cortexaffect/internal/face"
)

func TestToVisemeTimeline_Empty(t *testing.T) {
	vt := ToVisemeTimeline(nil)
	require.Len(t, vt.Events, 1)
	assert.Equal(t, VisemeSil, vt.Events[0].VisemeID)
	assert.Equal(t, 0.0, vt.Duration)
}

func TestToVisemeTimeline_Mom(t *testing.T) {
	vt := ToVisemeTimeline(FromText("mom"))
	require.Len(t, vt.Events, 5)

	assert.Equal(t, VisemeEvent{VisemeID: VisemeSil, Time: 0, Weight: 1}, vt.Events[0])
	assert.Equal(t, VisemeEvent{VisemeID: VisemePP, Time: 0, Weight: 0.8}, vt.Events[1])
	assert.Equal(t, VisemeEvent{VisemeID: VisemeOH, Time: 80, Weight: 0.8}, vt.Events[2])
	assert.Equal(t, VisemeEvent{VisemeID: VisemePP, Time: 230, Weight: 0.8}, vt.Events[3])
	assert.Equal(t, VisemeEvent{VisemeID: VisemeSil, Time: 360, Weight: 1}, vt.Events[4])
	assert.Equal(t, 410.0, vt.Duration)
}

func TestOculusFor_CoversEveryShape(t *testing.T) {
	for _, shape := range face.MouthShapes {
		id := OculusFor(shape)
		assert.GreaterOrEqual(t, int(id), 0, "shape %s", shape)
		assert.LessOrEqual(t, int(id), 14, "shape %s", shape)
	}
	assert.Equal(t, VisemeSil, OculusFor(face.MouthShape("grin")))
}
