package ui

import "github.com/charmbracelet/lipgloss"

// Color palette.
var (
	ColorSuccess   = lipgloss.Color("#00D26A") // green, confirmed transactions
	ColorWarning   = lipgloss.Color("#FFB800") // yellow, prompts and pending
	ColorError     = lipgloss.Color("#FF4444") // red, failures
	ColorAddress   = lipgloss.Color("#00B4D8") // cyan, addresses and hashes
	ColorValue     = lipgloss.Color("#FFFFFF") // white, token amounts
	ColorMeta      = lipgloss.Color("#555555") // dim gray, hints and metadata
	ColorBorder    = lipgloss.Color("#1E3A5F") // dark blue, cards
	ColorBrand     = lipgloss.Color("#9B5DE5") // purple, title and headings
	ColorHighlight = lipgloss.Color("#F15BB5") // pink, focused input
)

// Base styles.
var (
	StyleSuccess = lipgloss.NewStyle().Foreground(ColorSuccess).Bold(true)
	StyleWarning = lipgloss.NewStyle().Foreground(ColorWarning).Bold(true)
	StyleError   = lipgloss.NewStyle().Foreground(ColorError).Bold(true)
	StyleAddress = lipgloss.NewStyle().Foreground(ColorAddress)
	StyleValue   = lipgloss.NewStyle().Foreground(ColorValue).Bold(true)
	StyleMeta    = lipgloss.NewStyle().Foreground(ColorMeta)
	StyleBrand   = lipgloss.NewStyle().Foreground(ColorBrand).Bold(true)

	StyleBorder = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	StyleFocused = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorHighlight).
			Padding(0, 1)

	StyleSelected = lipgloss.NewStyle().
			Background(ColorHighlight).
			Foreground(lipgloss.Color("#000000")).
			Bold(true)

	StyleTitle = lipgloss.NewStyle().
			Foreground(ColorBrand).
			Bold(true).
			MarginBottom(1)

	StyleButton = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#000000")).
			Background(ColorBrand).
			Padding(0, 2)

	StyleButtonDisabled = lipgloss.NewStyle().
				Foreground(ColorMeta).
				Background(lipgloss.Color("#2A2A2A")).
				Padding(0, 2)
)

// Success formats a success message.
func Success(msg string) string { return StyleSuccess.Render("✓ " + msg) }

// Warn formats a warning message.
func Warn(msg string) string { return StyleWarning.Render("⚠ " + msg) }

// Err formats an error message.
func Err(msg string) string { return StyleError.Render("✗ " + msg) }

// Info formats an informational message.
func Info(msg string) string { return StyleAddress.Render("ℹ " + msg) }

// Hint formats a suggestion for what to run next.
func Hint(msg string) string { return StyleMeta.Render("› " + msg) }

// Addr formats an address.
func Addr(a string) string { return StyleAddress.Render(a) }

// Val formats a value.
func Val(v string) string { return StyleValue.Render(v) }

// Meta formats metadata text.
func Meta(m string) string { return StyleMeta.Render(m) }

// Token formats an amount with its symbol: "10.5 PRT".
func Token(amount, symbol string) string {
	return StyleValue.Render(amount) + " " + StyleBrand.Render(symbol)
}

// Button renders a submit control with its label.
func Button(label string, disabled bool) string {
	if disabled {
		return StyleButtonDisabled.Render(label)
	}
	return StyleButton.Render(label)
}
