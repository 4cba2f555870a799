package style

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss/v2"
	"gopkg.in/yaml.v3"
)

var (
	// Color palette
	ErrorColor       = lipgloss.Color("#FF6B6B")
	ErrorBgColor     = lipgloss.Color("#3D2020")
	WarningColor     = lipgloss.Color("#FFA726")
	SuccessColor     = lipgloss.Color("#66BB6A")
	InfoColor        = lipgloss.Color("#42A5F5")
	MutedColor       = lipgloss.Color("#6C757D")
	AccentColor      = lipgloss.Color("#7C3AED")
	CodeColor        = lipgloss.Color("#D4D4D4")
	PrimaryTextColor = lipgloss.Color("#E4E4E7")

	// Base styles
	ErrorStyle   = lipgloss.NewStyle().Foreground(ErrorColor).Bold(true)
	WarningStyle = lipgloss.NewStyle().Foreground(WarningColor).Bold(true)
	SuccessStyle = lipgloss.NewStyle().Foreground(SuccessColor).Bold(true)
	InfoStyle    = lipgloss.NewStyle().Foreground(InfoColor).Bold(true)
	MutedStyle   = lipgloss.NewStyle().Foreground(MutedColor)
	AccentStyle  = lipgloss.NewStyle().Foreground(AccentColor)

	// Component styles
	FileStyle = lipgloss.NewStyle().
			Foreground(AccentColor).
			Bold(true).
			Underline(true)

	TitleStyle = lipgloss.NewStyle().
			Bold(true)

	MessageStyle = lipgloss.NewStyle().
			Foreground(PrimaryTextColor)

	HintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#B8BCC2")).
			Italic(true)

	DurationStyle = lipgloss.NewStyle().
			Foreground(MutedColor).
			Italic(true)
)

// GetSeverityIcon returns the appropriate icon for the severity level
func GetSeverityIcon(severity string) string {
	switch severity {
	case "error":
		return ErrorStyle.Render("✗")
	case "warning":
		return WarningStyle.Render("⚠")
	case "info":
		return InfoStyle.Render("ℹ")
	case "success":
		return SuccessStyle.Render("✓")
	default:
		return MutedStyle.Render("•")
	}
}

// Swatch renders a colour sample followed by its hex value
func Swatch(hex string) string {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(hex)).Render("■") + " " + MutedStyle.Render(hex)
}

// FormatFilePath formats a file path with proper styling
func FormatFilePath(path string) string {
	return FileStyle.Render(path)
}

// PrintJSON outputs data as formatted JSON
func PrintJSON(w io.Writer, data interface{}) {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		fmt.Fprintf(w, "Error encoding JSON: %v\n", err)
	}
}

// PrintYAML outputs data as YAML
func PrintYAML(w io.Writer, data interface{}) {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(data); err != nil {
		fmt.Fprintf(w, "Error encoding YAML: %v\n", err)
	}
	encoder.Close()
}

// Success prints a success message with styling
func Success(w io.Writer, message string) {
	fmt.Fprintf(w, "%s %s\n", SuccessIcon(), lipgloss.NewStyle().Foreground(SuccessColor).Render(message))
}

func SuccessIcon() string {
	return lipgloss.NewStyle().Foreground(SuccessColor).Bold(true).Render("✓")
}

func ErrorIcon() string {
	return lipgloss.NewStyle().Foreground(ErrorColor).Bold(true).Render("✗")
}

// Error prints an error message with styling
func Error(w io.Writer, message string) {
	fmt.Fprintf(w, "%s %s\n", ErrorIcon(), lipgloss.NewStyle().Foreground(ErrorColor).Render(message))
}

func WarningIcon() string {
	return lipgloss.NewStyle().Foreground(WarningColor).Bold(true).Render("⚠")
}

// Warning prints a warning message with styling
func Warning(w io.Writer, message string) {
	fmt.Fprintf(w, "%s %s\n", WarningIcon(), lipgloss.NewStyle().Foreground(WarningColor).Render(message))
}

func InfoIcon() string {
	return lipgloss.NewStyle().Foreground(InfoColor).Bold(true).Render("ℹ")
}

// Info prints an info message with styling
func Info(w io.Writer, message string) {
	fmt.Fprintf(w, "%s %s\n", InfoIcon(), lipgloss.NewStyle().Foreground(InfoColor).Render(message))
}
