package generator

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/onegreenvn/bizdoc-services-backend/internal/apperror"
	"github.com/onegreenvn/bizdoc-services-backend/internal/models"
)

// Prompt is everything sent to the model for one generation
type Prompt struct {
	Kind      models.DocumentKind
	System    string
	User      string
	MaxTokens int
}

var formattingRules = []string{
	`Begin every section with a line "## " followed by the section title.`,
	`Use "### " for sub-headings inside a section.`,
	`Start bullet points with "- " at the beginning of the line. Do not nest bullets or use numbered lists.`,
	`Separate paragraphs with one blank line.`,
	`Use **bold** only for key figures and terms.`,
	`Do not add a document title, preamble, closing remarks about these instructions, or code blocks.`,
}

// BuildPrompt validates input and renders the prompt for its kind
func (c *Catalog) BuildPrompt(input models.DocumentInput) (Prompt, error) {
	if err := input.Validate(); err != nil {
		return Prompt{}, validationError(err)
	}
	kind := input.Kind()
	tpl, ok := c.Template(kind)
	if !ok {
		return Prompt{}, apperror.Validation(fmt.Sprintf("unsupported document type %q", kind))
	}

	info := input.Business()
	var b strings.Builder

	fmt.Fprintf(&b, "Prepare a %s for %s, a business in the %s sector", kind.Label(), info.BusinessName, info.Sector)
	if info.Location != "" {
		fmt.Fprintf(&b, " based in %s", info.Location)
	}
	b.WriteString(".\n")
	b.WriteString(strings.TrimSpace(tpl.Framing))
	b.WriteString("\n\n")

	b.WriteString("Information provided by the business owner:\n")
	for _, f := range input.Fields() {
		value := strings.TrimSpace(f.Value)
		if value == "" {
			continue
		}
		fmt.Fprintf(&b, "- %s: %s\n", f.Label, oneLine(value))
	}
	if info.Currency != "" {
		fmt.Fprintf(&b, "- Currency: all amounts are in %s\n", info.Currency)
	}
	b.WriteString("\n")

	b.WriteString("Enhance, do not repeat, the owner's input: turn it into polished, specific and persuasive content, ")
	b.WriteString("fill reasonable gaps with clearly realistic assumptions, and never copy the notes above verbatim.\n\n")

	b.WriteString("Write the following sections in this order:\n")
	for i, section := range tpl.Sections {
		fmt.Fprintf(&b, "%d. %s\n", i+1, section)
	}
	b.WriteString("\n")

	b.WriteString("Formatting rules:\n")
	for _, rule := range formattingRules {
		b.WriteString("- " + rule + "\n")
	}
	for _, g := range tpl.Guidance {
		b.WriteString("- " + strings.TrimSpace(g) + "\n")
	}

	return Prompt{
		Kind:      kind,
		System:    c.System,
		User:      b.String(),
		MaxTokens: tpl.MaxTokens,
	}, nil
}

// oneLine keeps multi-line answers inside their bullet
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// validationError flattens ozzo errors into one client-safe message
func validationError(err error) error {
	var errs validation.Errors
	if errors.As(err, &errs) {
		return apperror.Wrap(apperror.CodeValidation, errs.Error(), err)
	}
	return apperror.Wrap(apperror.CodeValidation, err.Error(), err)
}
