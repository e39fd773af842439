package utils

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// MessageType defines the type of message box to render.
type MessageType int

const (
	// InfoMessage represents an informational message.
	InfoMessage MessageType = iota
	// SuccessMessage represents a success message.
	SuccessMessage
	// WarningMessage represents a warning message.
	WarningMessage
	// ErrorMessage represents an error message.
	ErrorMessage
)

const (
	infoPrefix    = "ℹ"
	successPrefix = "✓"
	warningPrefix = "⚠"
	errorPrefix   = "✗"
)

var (
	infoColor    = lipgloss.Color("86")
	successColor = lipgloss.Color("42")
	warningColor = lipgloss.Color("178")
	errorColor   = lipgloss.Color("196")

	keyStyle = lipgloss.NewStyle().Faint(true)
)

// Box is a builder for bordered summary boxes, such as the one printed after
// an article run.
type Box struct {
	messageType MessageType
	title       string
	content     []string
	width       int
}

// NewBox creates a new message box with a specific type.
func NewBox(messageType MessageType, title string) *Box {
	return &Box{
		messageType: messageType,
		title:       title,
		width:       getTerminalWidth() - 4,
	}
}

// WithWidth caps the box width, borders included.
func (b *Box) WithWidth(width int) *Box {
	b.width = width
	return b
}

// AddLine adds a line of text to the message box content.
func (b *Box) AddLine(text string) *Box {
	b.content = append(b.content, text)
	return b
}

// AddBullet adds a bulleted line to the message box content.
func (b *Box) AddBullet(text string) *Box {
	b.content = append(b.content, "• "+text)
	return b
}

// AddKeyValue adds a dimmed key followed by its value.
func (b *Box) AddKeyValue(key string, value interface{}) *Box {
	b.content = append(b.content, fmt.Sprintf("%s %v", keyStyle.Render(key+":"), value))
	return b
}

// Render builds and returns the formatted message box as a string.
func (b *Box) Render() string {
	color, prefix := b.colorAndPrefix()

	title := lipgloss.NewStyle().Bold(true).Foreground(color).Render(prefix + " " + b.title)
	body := title
	if len(b.content) > 0 {
		body += "\n\n" + strings.Join(b.content, "\n")
	}

	style := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(color).
		Padding(0, 1)

	// Width excludes the border; wrap only when the content would overflow.
	if inner := b.width - 2; inner > 10 && lipgloss.Width(body)+2 > inner {
		style = style.Width(inner)
	}
	return style.Render(body)
}

func (b *Box) colorAndPrefix() (lipgloss.Color, string) {
	switch b.messageType {
	case SuccessMessage:
		return successColor, successPrefix
	case WarningMessage:
		return warningColor, warningPrefix
	case ErrorMessage:
		return errorColor, errorPrefix
	default:
		return infoColor, infoPrefix
	}
}

// Warning renders a warning box in one call.
func Warning(title string, lines ...string) string {
	box := NewBox(WarningMessage, title)
	for _, line := range lines {
		box.AddLine(line)
	}
	return box.Render()
}

// getTerminalWidth returns the terminal width or defaults to 80 if unable to detect.
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80
	}
	return width
}
