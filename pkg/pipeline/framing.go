package pipeline

// FramingStyle is the camera framing selected while composing the
// vertical crop. It is in-stage machinery for the layout stage only and
// is never persisted on the run.
type FramingStyle string

const (
	FramingSolo          FramingStyle = "solo"
	FramingDuoSplit      FramingStyle = "duo_split"
	FramingDuoPiP        FramingStyle = "duo_pip"
	FramingScreenShare   FramingStyle = "screen_share"
	FramingCinematicSolo FramingStyle = "cinematic_solo"
)

// FramingEvent is a detected change in the source material.
type FramingEvent string

const (
	FramingFaceCountIncrease   FramingEvent = "face_count_increase"
	FramingFaceCountDecrease   FramingEvent = "face_count_decrease"
	FramingPiPRequested        FramingEvent = "pip_requested"
	FramingSplitRequested      FramingEvent = "split_requested"
	FramingScreenShareDetected FramingEvent = "screen_share_detected"
	FramingScreenShareEnded    FramingEvent = "screen_share_ended"
	FramingCinematicRequested  FramingEvent = "cinematic_requested"
)

type framingKey struct {
	style FramingStyle
	event FramingEvent
}

// framingTable is the fixed framing transition table. Screen-share
// detection preempts every other style; ending a screen share falls back
// to solo framing until faces are re-counted.
var framingTable = map[framingKey]FramingStyle{
	{FramingSolo, FramingFaceCountIncrease}:          FramingDuoSplit,
	{FramingSolo, FramingCinematicRequested}:         FramingCinematicSolo,
	{FramingSolo, FramingScreenShareDetected}:        FramingScreenShare,
	{FramingDuoSplit, FramingFaceCountDecrease}:      FramingSolo,
	{FramingDuoSplit, FramingPiPRequested}:           FramingDuoPiP,
	{FramingDuoSplit, FramingScreenShareDetected}:    FramingScreenShare,
	{FramingDuoPiP, FramingFaceCountDecrease}:        FramingSolo,
	{FramingDuoPiP, FramingSplitRequested}:           FramingDuoSplit,
	{FramingDuoPiP, FramingScreenShareDetected}:      FramingScreenShare,
	{FramingScreenShare, FramingScreenShareEnded}:    FramingSolo,
	{FramingCinematicSolo, FramingFaceCountIncrease}: FramingDuoSplit,
	{FramingCinematicSolo, FramingScreenShareDetected}: FramingScreenShare,
}

// ApplyFraming returns the framing style after observing event, or a
// *FramingError when the table has no rule for the pair.
func ApplyFraming(style FramingStyle, event FramingEvent) (FramingStyle, error) {
	next, ok := framingTable[framingKey{style, event}]
	if !ok {
		return style, &FramingError{Style: style, Event: event}
	}
	return next, nil
}

// FramingError indicates an event that has no rule for the current style.
type FramingError struct {
	Style FramingStyle
	Event FramingEvent
}

// Error returns the formatted error message.
func (e *FramingError) Error() string {
	return "no framing rule for style " + string(e.Style) + " on event " + string(e.Event)
}
