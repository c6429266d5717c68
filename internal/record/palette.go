package record

// Palette is the set of marker colors. Consecutive markers never share one.
var Palette = []string{
	"#E4572E",
	"#29335C",
	"#F3A712",
	"#669BBC",
	"#A8C686",
	"#8E44AD",
	"#2E86AB",
}

// TimeLabelLayout formats the time-of-day label stamped on new markers.
const TimeLabelLayout = "3:04 PM"

// NextColor picks a palette color different from prev. intn returns a
// value in [0, n) and is normally rand.IntN.
func NextColor(prev string, intn func(n int) int) string {
	candidates := make([]string, 0, len(Palette))
	for _, c := range Palette {
		if c != prev {
			candidates = append(candidates, c)
		}
	}
	return candidates[intn(len(candidates))]
}

// IsPaletteColor reports whether c is one of the palette colors.
func IsPaletteColor(c string) bool {
	for _, p := range Palette {
		if p == c {
			return true
		}
	}
	return false
}
