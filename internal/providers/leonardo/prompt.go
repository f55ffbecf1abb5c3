package leonardo

import (
	"fmt"
	"strings"
)

const promptTemplate = "Modern esport football logo using the layout of the reference image, %s color theme, " +
	"shield shape, central soccer ball, clean background, no text, no writing, no letters"

// BuildPrompt returns the generation prompt for a club color theme. Club names
// never enter the prompt; the name is drawn onto the image afterwards.
func BuildPrompt(colorTheme string) string {
	theme := strings.Join(strings.Fields(colorTheme), " ")
	return fmt.Sprintf(promptTemplate, theme)
}
