package cockpit

// Buttons is the raw pressed state of the directional controls.
type Buttons struct {
	Left     bool `json:"left"`
	Right    bool `json:"right"`
	Forward  bool `json:"forward"`
	Backward bool `json:"backward"`
}

// Intents is the movement requested after resolving opposite presses.
type Intents struct {
	Left     bool `json:"left"`
	Right    bool `json:"right"`
	Forward  bool `json:"forward"`
	Backward bool `json:"backward"`
}

// Derive resolves b into intents. Pressing both buttons of an axis holds
// position on that axis.
func Derive(b Buttons) Intents {
	return Intents{
		Left:     b.Left && !b.Right,
		Right:    !b.Left && b.Right,
		Forward:  b.Forward && !b.Backward,
		Backward: !b.Forward && b.Backward,
	}
}

// Label is the status text for the current movement.
func (i Intents) Label() string {
	switch {
	case i.Left:
		return "Moving Left"
	case i.Right:
		return "Moving Right"
	case i.Forward:
		return "Moving Forward"
	case i.Backward:
		return "Moving Backward"
	default:
		return "Holding Position"
	}
}

// Any reports whether a move is requested.
func (i Intents) Any() bool { return i.Left || i.Right || i.Forward || i.Backward }
