package importer

import (
	"fmt"

	"github.com/ladlehq/ladle/internal/ytdlp"
)

// promptTemplate is the fixed instruction wrapper applied to the video
// metadata. The model is asked for a Schema.org Recipe inside a fenced
// JSON block; everything beyond that is best-effort guidance, so nothing
// downstream relies on the rules being followed to the letter.
const promptTemplate = `
I've lost the formatting for the following text (after ----). Convert it into a structured Schema.org Recipe JSON.

- Rules:
1. If the ingredients are not in Dutch, output them twice: first the original (do not modify the text at all) & then translated into dutch & metric system. If the ingredients are already in dutch, only output the originals.
2. Convert any data points (so not in text fields), like CookingTime, to metric.
3. Put the full original text, excluding ingredients & steps, in the description.
4. Optionally modify the title to not include any clickbait / call to actions. It should describe the meal as best as possible. Emoji's are allowed.

- Additional data:
Original title: "%s"
Thumbnail: %s
Author: "%s"

----
%s
`

// buildPrompt deterministically renders the instruction template against
// the given metadata. A missing video description simply leaves the final
// section empty; the model still receives the title and author.
func buildPrompt(metadata *ytdlp.VideoMetadata) string {
	return fmt.Sprintf(promptTemplate, metadata.Title, metadata.Thumbnail, metadata.Channel, metadata.Description)
}
