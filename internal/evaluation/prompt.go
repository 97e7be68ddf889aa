package evaluation

import (
	_ "embed"
	"strings"

	"github.com/avoronov/jobsift/internal/jobsource"
)

//go:embed prompt.md
var promptTemplate string

// RenderPrompt fills the evaluation prompt with the listing and resume text.
// Substitution is a single literal pass, so braces or placeholder-looking
// text inside job descriptions never corrupt the result.
func RenderPrompt(listing *jobsource.Listing, resumeText string) string {
	return strings.NewReplacer(
		"{{TITLE}}", listing.Title,
		"{{DESCRIPTION}}", listing.Description,
		"{{RESUME}}", resumeText,
	).Replace(promptTemplate)
}
