package render

// Theme holds the colors used in DOT output.
type Theme struct {
	Background  string
	NodeFill    string
	NodeBorder  string
	CentralFill string
	Selected    string
	Font        string
	Edge        string
}

var (
	// Dark is the default editor theme.
	Dark = Theme{
		Background:  "#1a1a2e",
		NodeFill:    "#16213e",
		NodeBorder:  "#0f3460",
		CentralFill: "#e94560",
		Selected:    "#f9d923",
		Font:        "#ffffff",
		Edge:        "#7f8fa6",
	}

	// Light is the alternate editor theme.
	Light = Theme{
		Background:  "#f5f6fa",
		NodeFill:    "#ffffff",
		NodeBorder:  "#dcdde1",
		CentralFill: "#4b7bec",
		Selected:    "#fa8231",
		Font:        "#2f3640",
		Edge:        "#718093",
	}
)

// ThemeFor returns Dark or Light.
func ThemeFor(dark bool) Theme {
	if dark {
		return Dark
	}
	return Light
}
