package entities

// SwipeDirection is the user's directional intent on the current card
type SwipeDirection int

const (
	SwipeNone SwipeDirection = iota
	// SwipeLeft skips the card
	SwipeLeft
	// SwipeRight moves on to the next card
	SwipeRight
	// SwipeUp opens the detail view without advancing
	SwipeUp
)

func (d SwipeDirection) String() string {
	switch d {
	case SwipeLeft:
		return "left"
	case SwipeRight:
		return "right"
	case SwipeUp:
		return "up"
	}
	return "none"
}

// SwipePhase is the animation phase of the swipe session
type SwipePhase int

const (
	SwipeIdle SwipePhase = iota
	SwipeAnimating
	SwipeSettled
)

func (p SwipePhase) String() string {
	switch p {
	case SwipeAnimating:
		return "animating"
	case SwipeSettled:
		return "settled"
	}
	return "idle"
}

// SwipeState is a snapshot of the swipe session
type SwipeState struct {
	Cursor    int
	Direction SwipeDirection
	Phase     SwipePhase
	Length    int
}

// Empty reports whether there is nothing to swipe through
func (s SwipeState) Empty() bool {
	return s.Length == 0
}

// Key is a physical arrow key pressed by the user
type Key int

const (
	KeyLeft Key = iota + 1
	KeyRight
	KeyUp
)

// TextDirection is the reading direction of the presentation
type TextDirection string

const (
	TextDirectionLTR TextDirection = "ltr"
	TextDirectionRTL TextDirection = "rtl"
)
