package tutorial

import (
	"errors"
	"fmt"

	"github.com/lacquerai/blocksmith/internal/workspace"
	"github.com/rs/zerolog/log"
)

var (
	ErrTutorialCompleted = errors.New("tutorial already completed")
	ErrNotStarted        = errors.New("tutorial not started")
	ErrStepIncomplete    = errors.New("current step is not complete")
)

// State is the position of a learner in a tutorial
type State int

const (
	NotStarted State = iota
	InProgress
	Completed
)

func (s State) String() string {
	switch s {
	case NotStarted:
		return "not_started"
	case InProgress:
		return "in_progress"
	case Completed:
		return "completed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Progress tracks one learner through one tutorial. Steps advance only on
// an explicit Next call and only when the current step validates.
type Progress struct {
	tutorial *Tutorial
	state    State
	step     int
}

// NewProgress starts tracking a tutorial in the NotStarted state
func NewProgress(t *Tutorial) *Progress {
	return &Progress{tutorial: t}
}

// State returns the current state
func (p *Progress) State() State {
	return p.state
}

// StepIndex returns the index of the current step while in progress
func (p *Progress) StepIndex() int {
	return p.step
}

// CurrentStep returns the step being worked on
func (p *Progress) CurrentStep() (*Step, bool) {
	if p.state != InProgress {
		return nil, false
	}
	return &p.tutorial.Steps[p.step], true
}

// Start enters the first step. Starting a running or finished tutorial is
// a no-op; use Restart to go back to the beginning.
func (p *Progress) Start() {
	if p.state != NotStarted {
		return
	}
	p.enter(0)
}

// Restart goes back to the first step from any state
func (p *Progress) Restart() {
	p.enter(0)
}

func (p *Progress) enter(step int) {
	if step >= len(p.tutorial.Steps) {
		p.state = Completed
		p.step = len(p.tutorial.Steps)
		log.Debug().Str("tutorial", p.tutorial.ID).Msg("Tutorial completed")
		return
	}
	p.state = InProgress
	p.step = step
	log.Debug().Str("tutorial", p.tutorial.ID).Int("step", step).Msg("Entered tutorial step")
}

// Check validates the current step without advancing
func (p *Progress) Check(snap *workspace.Snapshot, code string) bool {
	step, ok := p.CurrentStep()
	if !ok {
		return false
	}
	return Validate(step, snap, code)
}

// Feedback returns the sub-check breakdown of the current step
func (p *Progress) Feedback(snap *workspace.Snapshot, code string) []Check {
	step, ok := p.CurrentStep()
	if !ok {
		return nil
	}
	return Feedback(step, snap, code)
}

// Next advances to the following step when the current one validates.
// Passing the last step completes the tutorial.
func (p *Progress) Next(snap *workspace.Snapshot, code string) error {
	switch p.state {
	case NotStarted:
		return ErrNotStarted
	case Completed:
		return ErrTutorialCompleted
	}

	if !p.Check(snap, code) {
		return fmt.Errorf("step %d of %s: %w", p.step+1, p.tutorial.ID, ErrStepIncomplete)
	}

	p.enter(p.step + 1)
	return nil
}
