package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyFraming_Transitions(t *testing.T) {
	tests := []struct {
		name  string
		from  FramingStyle
		event FramingEvent
		want  FramingStyle
	}{
		{"second face splits", FramingSolo, FramingFaceCountIncrease, FramingDuoSplit},
		{"face leaves split", FramingDuoSplit, FramingFaceCountDecrease, FramingSolo},
		{"split to pip", FramingDuoSplit, FramingPiPRequested, FramingDuoPiP},
		{"pip back to split", FramingDuoPiP, FramingSplitRequested, FramingDuoSplit},
		{"face leaves pip", FramingDuoPiP, FramingFaceCountDecrease, FramingSolo},
		{"cinematic request", FramingSolo, FramingCinematicRequested, FramingCinematicSolo},
		{"cinematic gains face", FramingCinematicSolo, FramingFaceCountIncrease, FramingDuoSplit},
		{"screen share ends", FramingScreenShare, FramingScreenShareEnded, FramingSolo},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ApplyFraming(tt.from, tt.event)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestApplyFraming_ScreenSharePreemptsEveryStyle(t *testing.T) {
	for _, from := range []FramingStyle{
		FramingSolo, FramingDuoSplit, FramingDuoPiP, FramingCinematicSolo,
	} {
		got, err := ApplyFraming(from, FramingScreenShareDetected)
		require.NoError(t, err)
		assert.Equal(t, FramingScreenShare, got)
	}
}

func TestApplyFraming_UnknownPairErrors(t *testing.T) {
	_, err := ApplyFraming(FramingSolo, FramingFaceCountDecrease)
	var framingErr *FramingError
	require.ErrorAs(t, err, &framingErr)
	assert.Equal(t, FramingSolo, framingErr.Style)

	_, err = ApplyFraming(FramingScreenShare, FramingPiPRequested)
	assert.ErrorAs(t, err, &framingErr)
}
