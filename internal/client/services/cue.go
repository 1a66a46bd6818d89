package services

// Cue abstracts the operator feedback channel (the scanner station's ok/error
// beeps). Injected so the controller stays headless in tests.
type Cue interface {
	Success()
	Error()
}

// NopCue discards all cues.
type NopCue struct{}

func (NopCue) Success() {}
func (NopCue) Error()   {}
