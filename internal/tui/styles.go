package tui

import "github.com/charmbracelet/lipgloss"

// Semantic color palette - use these consistently across all commands.
const (
	ColorBrand     = "39"  // Blue - weft brand
	ColorPrimary   = "255" // White - main text, emphasis
	ColorSecondary = "245" // Light gray - supporting text
	ColorMuted     = "240" // Dark gray - hints, less important info
	ColorSuccess   = "42"  // Green - operations succeeded
	ColorError     = "203" // Red - errors, failures
	ColorWarning   = "214" // Orange - cautions, attention needed
	ColorAccent    = "45"  // Cyan - highlights (use sparingly)
)

// Common styles used across all commands.
var (
	BrandStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorBrand))

	// Text hierarchy
	PrimaryStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorPrimary))
	SecondaryStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSecondary))
	MutedStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorMuted))
	HintStyle      = MutedStyle.Italic(true)

	// Status indicators
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorSuccess))
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorError))
	WarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorWarning))

	// Accent for highlights
	AccentStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent))

	// Bold variants
	BoldStyle        = lipgloss.NewStyle().Bold(true)
	BoldPrimaryStyle = PrimaryStyle.Bold(true)
)

// StatusIcon returns the appropriate icon for a status.
func StatusIcon(success bool) string {
	if success {
		return SuccessStyle.Render("✓")
	}
	return ErrorStyle.Render("✗")
}

// Bullet returns a muted bullet point.
func Bullet() string {
	return MutedStyle.Render("·")
}

// Header renders the standard weft branding header.
// Format: "weft v0.3.0 commandname"
func Header(version, commandName string) string {
	return BrandStyle.Render("weft") + " " + BrandStyle.Render("v"+version) + " " + PrimaryStyle.Render(commandName)
}

// ExitSuccess returns a success exit message with green checkmark.
// Message should be capitalized (e.g., "Built data/out.clean").
func ExitSuccess(message string) string {
	return SuccessStyle.Render("✓") + " " + message
}

// ExitError returns an error exit message with red X.
// Message should be capitalized (e.g., "Build failed").
func ExitError(message string) string {
	return ErrorStyle.Render("✗") + " " + message
}
