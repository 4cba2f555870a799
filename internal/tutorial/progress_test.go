package tutorial

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoStepTutorial() *Tutorial {
	return &Tutorial{
		ID:    "first-page",
		Title: "Your first page",
		Steps: []Step{
			{Title: "Add a paragraph", ExpectedBlocks: map[string]int{"html_paragraph": 1}},
			{Title: "Say hello", ExpectedCodePatterns: []Pattern{Literal("Hello")}},
		},
	}
}

func TestProgress_Lifecycle(t *testing.T) {
	p := NewProgress(twoStepTutorial())
	empty := mustSnapshot(t, `{}`)
	page := mustSnapshot(t, pageSnapshot)

	assert.Equal(t, NotStarted, p.State())
	assert.False(t, p.Check(page, "Hello"), "nothing to check before starting")
	assert.True(t, errors.Is(p.Next(page, "Hello"), ErrNotStarted))

	p.Start()
	assert.Equal(t, InProgress, p.State())
	assert.Equal(t, 0, p.StepIndex())

	assert.False(t, p.Check(empty, ""))
	err := p.Next(empty, "")
	assert.True(t, errors.Is(err, ErrStepIncomplete))
	assert.Equal(t, 0, p.StepIndex(), "failed next does not advance")

	assert.True(t, p.Check(page, ""))
	assert.Equal(t, 0, p.StepIndex(), "check never advances")

	require.NoError(t, p.Next(page, ""))
	assert.Equal(t, InProgress, p.State())
	assert.Equal(t, 1, p.StepIndex())

	step, ok := p.CurrentStep()
	require.True(t, ok)
	assert.Equal(t, "Say hello", step.Title)

	require.NoError(t, p.Next(page, "<p>Hello</p>"))
	assert.Equal(t, Completed, p.State())

	_, ok = p.CurrentStep()
	assert.False(t, ok)
	assert.True(t, errors.Is(p.Next(page, "<p>Hello</p>"), ErrTutorialCompleted))
	assert.False(t, p.Check(page, "Hello"))

	p.Start()
	assert.Equal(t, Completed, p.State(), "completed is terminal")

	p.Restart()
	assert.Equal(t, InProgress, p.State())
	assert.Equal(t, 0, p.StepIndex())
}

func TestProgress_Feedback(t *testing.T) {
	p := NewProgress(twoStepTutorial())
	assert.Nil(t, p.Feedback(nil, ""))

	p.Start()
	checks := p.Feedback(mustSnapshot(t, `{}`), "")
	require.Len(t, checks, 1)
	assert.Equal(t, "html_paragraph", checks[0].Target)
	assert.False(t, checks[0].Passed)
}

func TestProgress_NoSteps(t *testing.T) {
	p := NewProgress(&Tutorial{ID: "empty", Title: "Empty"})
	p.Start()
	assert.Equal(t, Completed, p.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "not_started", NotStarted.String())
	assert.Equal(t, "in_progress", InProgress.String())
	assert.Equal(t, "completed", Completed.String())
	assert.Equal(t, "State(9)", State(9).String())
}
