package artifact

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"jobmate/ingest-service/internal/docx"
	"jobmate/ingest-service/internal/model"
	"jobmate/ingest-service/internal/workspace"
)

const documentFont = "Times New Roman"

var (
	footerStyle  = docx.Style{Font: documentFont, Bold: true, Size: 8}
	headingStyle = docx.Style{Heading: true, Align: docx.AlignLeft}
)

type paragraph struct {
	text  string
	style docx.Style
}

// ApplicationFileName is {applicant}_{title}.docx, both parts sanitized.
func ApplicationFileName(applicant, title string) string {
	return workspace.Sanitize(applicant) + "_" + workspace.Sanitize(title) + ".docx"
}

// writeApplication copies the template and appends the skill union, the
// optional profile sections and a disclosure footer.
func (g *Generator) writeApplication(l model.Listing, dir string, skills []string) (string, error) {
	template := g.resolve(g.opts.Template)
	if _, err := os.Stat(template); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("%s: %w", template, ErrTemplateMissing)
		}
		return "", fmt.Errorf("stat template: %w", err)
	}

	doc, err := docx.Open(template)
	if err != nil {
		return "", fmt.Errorf("open template: %w", err)
	}

	certs, err := readLines(g.resolve(g.opts.CertsFile))
	if err != nil {
		return "", fmt.Errorf("read certificates: %w", err)
	}
	links, err := readLines(g.resolve(g.opts.LinksFile))
	if err != nil {
		return "", fmt.Errorf("read links: %w", err)
	}

	union := SkillUnion(skills, l.RequiredSkills)
	paragraphs := []paragraph{
		{upper(strings.Join(union, ", ")), docx.Style{Font: documentFont, Align: docx.AlignJustify}},
	}
	section := func(heading, body string) {
		if body != "" {
			paragraphs = append(paragraphs,
				paragraph{heading, headingStyle},
				paragraph{body, docx.Style{Align: docx.AlignJustify}},
			)
		}
	}
	section("CERTIFICATES", strings.Join(certs, "\n"))
	section("LINKEDIN/GITHUB", strings.Join(links, "\n"))
	section("SOFT SKILLS", upper(strings.Join(g.opts.Profile.SoftSkills, ", ")))
	section("HOBBIES", upper(strings.Join(g.opts.Profile.Hobbies, ", ")))

	for _, p := range paragraphs {
		if err := doc.AppendParagraph(p.text, p.style); err != nil {
			return "", fmt.Errorf("append paragraph: %w", err)
		}
	}

	footer := fmt.Sprintf("This CV document was automatically generated and submitted for the %s position "+
		"based on skill matching. Apologies if you have received more than one.", l.Title)
	if err := doc.SetFooter(footer, footerStyle); err != nil {
		return "", fmt.Errorf("set footer: %w", err)
	}

	path := filepath.Join(dir, ApplicationFileName(g.opts.Profile.Name, l.Title))
	if err := doc.Save(path); err != nil {
		return "", fmt.Errorf("save: %w", err)
	}
	return path, nil
}
