package artifact

import (
	"fmt"
	"path/filepath"
	"strings"

	"jobmate/ingest-service/internal/docx"
	"jobmate/ingest-service/internal/model"
	"jobmate/ingest-service/internal/workspace"
)

// CoverLetterFileName is Cover_Letter_{title}.docx with the title sanitized.
func CoverLetterFileName(title string) string {
	return "Cover_Letter_" + workspace.Sanitize(title) + ".docx"
}

// CoverLetter returns the cover letter paragraphs for l, in document order.
func (g *Generator) CoverLetter(l model.Listing) []string {
	technical := "the technical skills mentioned in the job description"
	if len(l.RequiredSkills) > 0 {
		technical = "the required technical skills mentioned in the job description, including " +
			strings.Join(l.RequiredSkills, ", ")
	}
	soft := "strong soft skills"
	if len(g.opts.Profile.SoftSkills) > 0 {
		soft = "strong soft skills such as " + strings.Join(g.opts.Profile.SoftSkills, ", ")
	}

	return []string{
		"Cover Letter",
		"Date: " + g.opts.Now().Format("2006-01-02"),
		"Dear Hiring Manager,",
		fmt.Sprintf("I am writing to express my interest in the %s position at %s. "+
			"I found this job listing on %s and believe that my skills and experience "+
			"make me a strong candidate for this role.", l.Title, l.Company, l.URL),
		fmt.Sprintf("I have extensive experience in %s. I am confident that my background "+
			"and knowledge will enable me to contribute effectively to your team.", technical),
		fmt.Sprintf("In addition to my technical expertise, I possess %s. These skills have "+
			"enabled me to work collaboratively in team environments and to manage time "+
			"and projects efficiently.", soft),
		"I look forward to the opportunity to discuss how my skills and experiences align " +
			"with the needs of your team. Thank you for considering my application.",
		"Sincerely,",
		g.opts.Profile.Name,
	}
}

func (g *Generator) writeCoverLetter(l model.Listing, dir string) (string, error) {
	styles := []docx.Style{
		{Heading: true},
		{Align: docx.AlignRight},
		{},
		{},
		{Align: docx.AlignJustify},
		{Align: docx.AlignJustify},
		{Align: docx.AlignJustify},
		{},
		{},
	}

	doc := docx.New()
	for i, text := range g.CoverLetter(l) {
		if err := doc.AppendParagraph(text, styles[i]); err != nil {
			return "", fmt.Errorf("append paragraph: %w", err)
		}
	}
	footer := fmt.Sprintf("This motivation letter was generated and submitted for the %s position. "+
		"Please contact me directly if you wish to use it for any other position.", l.Title)
	if err := doc.SetFooter(footer, footerStyle); err != nil {
		return "", fmt.Errorf("set footer: %w", err)
	}

	path := filepath.Join(dir, CoverLetterFileName(l.Title))
	if err := doc.Save(path); err != nil {
		return "", fmt.Errorf("save: %w", err)
	}
	return path, nil
}
