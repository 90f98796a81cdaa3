package logo

import (
	"fmt"
)

// ANSI color codes
const (
	colorReset = "\033[0m"
	colorGreen = "\033[38;2;76;175;80m"  // #4CAF50 - ripe green
	colorAmber = "\033[38;2;255;193;7m"  // #FFC107 - ripening amber
)

// PrintRipeSenseLogo prints the RipeSense banner with colors
func PrintRipeSenseLogo() {
	// Banner design: RIPE in green, SENSE in amber
	logo := []string{
		"",
		colorGreen + `######   ###### ######   ########` + colorAmber + `    ######  ######## ##    ##  ######  ########` + colorReset,
		colorGreen + `##    ##   ##   ##    ## ##      ` + colorAmber + `   ##    ## ##       ###   ## ##    ## ##      ` + colorReset,
		colorGreen + `##    ##   ##   ##    ## ##      ` + colorAmber + `   ##       ##       ####  ## ##       ##      ` + colorReset,
		colorGreen + `######     ##   ######   ######  ` + colorAmber + `     ####   ######   ## ## ##   ####   ######  ` + colorReset,
		colorGreen + `##  ##     ##   ##       ##      ` + colorAmber + `         ## ##       ##  ####       ## ##      ` + colorReset,
		colorGreen + `##   ##    ##   ##       ##      ` + colorAmber + `   ##    ## ##       ##   ### ##    ## ##      ` + colorReset,
		colorGreen + `##    ## ###### ##       ########` + colorAmber + `    ######  ######## ##    ##  ######  ########` + colorReset,
		"",
	}

	for _, line := range logo {
		fmt.Println(line)
	}
}
