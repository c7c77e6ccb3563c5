package runlog

import "github.com/charmbracelet/lipgloss"

// Theme defines the style of each log level.
type Theme struct {
	Name      string
	Message   lipgloss.Style
	Important lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	// Plain themes write lines without passing them through lipgloss.
	Plain bool
}

func base(r *lipgloss.Renderer) lipgloss.Style {
	return r.NewStyle().TabWidth(lipgloss.NoTabConversion)
}

// DefaultTheme returns a vibrant color theme.
func DefaultTheme(r *lipgloss.Renderer) Theme {
	return Theme{
		Name:      "default",
		Message:   base(r).Foreground(lipgloss.Color("242")), // gray
		Important: base(r),
		Warning:   base(r).Foreground(lipgloss.Color("214")), // orange
		Error:     base(r).Foreground(lipgloss.Color("196")), // red
	}
}

// OrcaTheme returns a muted, professional theme.
func OrcaTheme(r *lipgloss.Renderer) Theme {
	return Theme{
		Name:      "orca",
		Message:   base(r).Foreground(lipgloss.Color("245")), // lighter gray
		Important: base(r).Foreground(lipgloss.Color("75")),  // pale blue
		Warning:   base(r).Foreground(lipgloss.Color("179")), // muted gold
		Error:     base(r).Foreground(lipgloss.Color("167")), // muted red
	}
}

// MonoTheme returns a theme without styling.
func MonoTheme(r *lipgloss.Renderer) Theme {
	return Theme{
		Name:      "mono",
		Message:   base(r),
		Important: base(r),
		Warning:   base(r),
		Error:     base(r),
		Plain:     true,
	}
}

// ThemeNames lists the names ThemeByName understands.
var ThemeNames = []string{"default", "orca", "mono"}

// ThemeByName returns a theme by name, defaulting to DefaultTheme.
func ThemeByName(name string, r *lipgloss.Renderer) Theme {
	switch name {
	case "orca":
		return OrcaTheme(r)
	case "mono":
		return MonoTheme(r)
	default:
		return DefaultTheme(r)
	}
}
