package style

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
)

// Spinner shows progress while a block library loads
type Spinner interface {
	SetSuffix(suffix string)
	SetFinalMSG(finalMSG string)
	Start()
	Stop()
}

// LineSpinner writes each spinner transition on its own line instead of
// redrawing in place. Used when output is captured.
type LineSpinner struct {
	mu       sync.Mutex
	w        io.Writer
	suffix   string
	finalMSG string
	active   bool
}

// NewLineSpinner creates a LineSpinner writing to w
func NewLineSpinner(w io.Writer) *LineSpinner {
	return &LineSpinner{w: w}
}

func (s *LineSpinner) SetSuffix(suffix string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.suffix = suffix
	if s.active {
		fmt.Fprintf(s.w, "[SPINNER]%s\n", suffix)
	}
}

func (s *LineSpinner) SetFinalMSG(finalMSG string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.finalMSG = finalMSG
}

func (s *LineSpinner) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return
	}
	s.active = true
	fmt.Fprintf(s.w, "[SPINNER START]%s\n", s.suffix)
}

func (s *LineSpinner) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.active {
		return
	}
	s.active = false
	fmt.Fprintf(s.w, "[SPINNER STOP]\n")
	if s.finalMSG != "" {
		fmt.Fprint(s.w, s.finalMSG)
	}
}

type TerminalSpinner struct {
	spinner *spinner.Spinner
}

func NewTerminalSpinner(cs []string, d time.Duration, options ...spinner.Option) *TerminalSpinner {
	return &TerminalSpinner{
		spinner: spinner.New(cs, d, options...),
	}
}

func (s *TerminalSpinner) SetSuffix(suffix string) {
	s.spinner.Suffix = suffix
}

func (s *TerminalSpinner) SetFinalMSG(finalMSG string) {
	s.spinner.FinalMSG = finalMSG
}

func (s *TerminalSpinner) Start() {
	s.spinner.Start()
}

func (s *TerminalSpinner) Stop() {
	s.spinner.Stop()
}

// NewSpinner returns a terminal spinner, or a LineSpinner when
// BLOCKSMITH_TEST is set
func NewSpinner(w io.Writer) Spinner {
	if os.Getenv("BLOCKSMITH_TEST") == "true" {
		return NewLineSpinner(w)
	}

	return NewTerminalSpinner(spinner.CharSets[9], 100*time.Millisecond, spinner.WithWriter(w), spinner.WithColor("magenta"))
}
