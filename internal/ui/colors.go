package ui

// Color functions return the escape code of the active theme for a role.
// They return "" when colors are disabled.

// ColorRed marks errors.
func ColorRed() string { return GetCurrentTheme().Error }

// ColorGreen marks success.
func ColorGreen() string { return GetCurrentTheme().Success }

// ColorYellow marks warnings.
func ColorYellow() string { return GetCurrentTheme().Warning }

// ColorBlue marks informational values.
func ColorBlue() string { return GetCurrentTheme().Info }

// ColorMagenta marks highlights.
func ColorMagenta() string { return GetCurrentTheme().Accent }

// ColorCyan marks primary values.
func ColorCyan() string { return GetCurrentTheme().Primary }

// ColorDim marks secondary text.
func ColorDim() string { return GetCurrentTheme().Secondary }

// ColorBold starts bold text.
func ColorBold() string { return GetCurrentTheme().Bold }

// ColorUnderline starts underlined text.
func ColorUnderline() string { return GetCurrentTheme().Underline }

// ColorReset clears formatting.
func ColorReset() string { return GetCurrentTheme().Reset }
