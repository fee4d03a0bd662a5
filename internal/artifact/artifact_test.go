package artifact_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"jobmate/ingest-service/internal/artifact"
	"jobmate/ingest-service/internal/docx"
	"jobmate/ingest-service/internal/model"
)

// ── Fakes ──────────────────────────────────────────────────────────────────

type fakeDescriber struct {
	text string
	err  error
}

func (f fakeDescriber) Describe(_ context.Context, _ string) (string, error) {
	return f.text, f.err
}

func clock() time.Time { return time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC) }

func listing() model.Listing {
	return model.Listing{
		Title:          "Backend Engineer (Go)",
		RequiredSkills: []string{"Go", "AWS", "aws"},
		URL:            "https://justjoin.it/offers/acme-dev",
		Company:        "Acme",
	}
}

func writeTemplate(t *testing.T, base string) {
	t.Helper()
	tpl := docx.New()
	if err := tpl.AppendParagraph("Jane Doe, Software Engineer", docx.Style{}); err != nil {
		t.Fatal(err)
	}
	if err := tpl.Save(filepath.Join(base, artifact.DefaultTemplate)); err != nil {
		t.Fatal(err)
	}
}

func newGenerator(base string, d artifact.Describer) *artifact.Generator {
	return artifact.NewGenerator(d, artifact.Options{
		BaseDir:   base,
		CertsFile: "certs.txt",
		LinksFile: "github.txt",
		Profile: artifact.Profile{
			Name:       "Jane Doe",
			SoftSkills: []string{"communication", "adaptability"},
			Hobbies:    []string{"climbing"},
		},
		Now: clock,
	})
}

// ── SkillUnion ─────────────────────────────────────────────────────────────

func TestSkillUnion_DedupAndSort(t *testing.T) {
	got := artifact.SkillUnion([]string{"go", "Docker", " "}, []string{"Go", "AWS", "aws", "docker"})
	if strings.Join(got, ",") != "AWS,Docker,go" {
		t.Errorf("SkillUnion = %v, want [AWS Docker go]", got)
	}
}

func TestSkillUnion_Empty(t *testing.T) {
	if got := artifact.SkillUnion(nil, nil); len(got) != 0 {
		t.Errorf("SkillUnion = %v, want empty", got)
	}
}

func TestStaticSkills_ReturnsCopy(t *testing.T) {
	s := artifact.StaticSkills{"Go"}
	got, err := s.Skills(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	got[0] = "changed"
	if s[0] != "Go" {
		t.Error("provider state was mutated through the returned slice")
	}
}

// ── Generate ───────────────────────────────────────────────────────────────

func TestGenerate_AllArtifacts(t *testing.T) {
	base := t.TempDir()
	writeTemplate(t, base)
	os.WriteFile(filepath.Join(base, "certs.txt"), []byte("CKA 2025\n\nAWS SAA\n"), 0o644)
	dir := t.TempDir()

	g := newGenerator(base, fakeDescriber{text: "We build things."})
	res := g.Generate(context.Background(), listing(), dir, []string{"Docker", "go"})
	if err := res.Err(); err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Files) != 3 || len(res.Skipped) != 0 {
		t.Fatalf("files=%v skipped=%v", res.Files, res.Skipped)
	}

	desc, err := os.ReadFile(filepath.Join(dir, artifact.DescriptionFile))
	if err != nil {
		t.Fatal(err)
	}
	if string(desc) != "Job URL: https://justjoin.it/offers/acme-dev\n\nWe build things.\n" {
		t.Errorf("description = %q", desc)
	}

	app, err := docx.Open(filepath.Join(dir, "Jane_Doe_Backend_Engineer__Go_.docx"))
	if err != nil {
		t.Fatalf("open application document: %v", err)
	}
	want := strings.Join([]string{
		"Jane Doe, Software Engineer",
		"AWS, DOCKER, GO",
		"CERTIFICATES",
		"CKA 2025\nAWS SAA",
		"SOFT SKILLS",
		"COMMUNICATION, ADAPTABILITY",
		"HOBBIES",
		"CLIMBING",
	}, "\n")
	if got := app.Text(); got != want {
		t.Errorf("application text =\n%s\nwant\n%s", got, want)
	}
	footer, _ := app.Part("word/footer1.xml")
	if !strings.Contains(string(footer), "Backend Engineer (Go) position") {
		t.Errorf("footer does not name the listing: %s", footer)
	}
}

func TestGenerate_TemplateMissingSkipsApplication(t *testing.T) {
	base := t.TempDir()
	dir := t.TempDir()

	res := newGenerator(base, fakeDescriber{text: "x"}).Generate(context.Background(), listing(), dir, nil)
	if res.Err() != nil {
		t.Fatalf("missing template must not be an error: %v", res.Err())
	}
	if len(res.Skipped) != 1 || res.Skipped[0] != artifact.StepApplication {
		t.Errorf("Skipped = %v", res.Skipped)
	}
	if _, err := os.Stat(filepath.Join(dir, artifact.CoverLetterFileName("Backend Engineer (Go)"))); err != nil {
		t.Errorf("cover letter should still be written: %v", err)
	}
}

func TestGenerate_DescriptionFailureIsIsolated(t *testing.T) {
	base := t.TempDir()
	writeTemplate(t, base)
	dir := t.TempDir()
	boom := errors.New("boom")

	res := newGenerator(base, fakeDescriber{err: boom}).Generate(context.Background(), listing(), dir, nil)
	if len(res.Errors) != 1 {
		t.Fatalf("Errors = %v, want one", res.Errors)
	}
	var aErr *artifact.Error
	if !errors.As(res.Err(), &aErr) || aErr.Step != artifact.StepDescription {
		t.Errorf("expected description *artifact.Error, got %v", res.Err())
	}
	if !errors.Is(res.Err(), boom) {
		t.Error("cause should be wrapped")
	}
	if len(res.Files) != 2 {
		t.Errorf("Files = %v, want application and cover letter", res.Files)
	}
	if _, err := os.Stat(filepath.Join(dir, artifact.DescriptionFile)); !errors.Is(err, os.ErrNotExist) {
		t.Error("no description file expected")
	}
}

func TestGenerate_UnwritableWorkspace(t *testing.T) {
	base := t.TempDir()
	dir := filepath.Join(t.TempDir(), "gone")

	res := newGenerator(base, fakeDescriber{text: "x"}).Generate(context.Background(), listing(), dir, nil)
	steps := map[artifact.Step]bool{}
	for _, e := range res.Errors {
		steps[e.Step] = true
	}
	if !steps[artifact.StepDescription] || !steps[artifact.StepCoverLetter] {
		t.Errorf("expected description and cover letter failures, got %v", res.Errors)
	}
}

// ── Cover letter ───────────────────────────────────────────────────────────

func TestCoverLetter_ParagraphOrder(t *testing.T) {
	dir := t.TempDir()
	g := newGenerator(t.TempDir(), fakeDescriber{})
	g.Generate(context.Background(), listing(), dir, nil)

	doc, err := docx.Open(filepath.Join(dir, "Cover_Letter_Backend_Engineer__Go_.docx"))
	if err != nil {
		t.Fatalf("open cover letter: %v", err)
	}
	lines := strings.Split(doc.Text(), "\n")
	if len(lines) != 9 {
		t.Fatalf("got %d paragraphs, want 9:\n%s", len(lines), doc.Text())
	}
	if lines[0] != "Cover Letter" || lines[1] != "Date: 2026-10-15" || lines[2] != "Dear Hiring Manager," {
		t.Errorf("unexpected opening: %q", lines[:3])
	}
	if !strings.Contains(lines[3], "Backend Engineer (Go) position at Acme") ||
		!strings.Contains(lines[3], "https://justjoin.it/offers/acme-dev") {
		t.Errorf("interest paragraph = %q", lines[3])
	}
	if !strings.Contains(lines[4], "including Go, AWS, aws") {
		t.Errorf("technical paragraph = %q", lines[4])
	}
	if !strings.Contains(lines[5], "communication, adaptability") {
		t.Errorf("soft skills paragraph = %q", lines[5])
	}
	if lines[7] != "Sincerely," || lines[8] != "Jane Doe" {
		t.Errorf("unexpected closing: %q", lines[7:])
	}
}

func TestFileNames(t *testing.T) {
	if got := artifact.ApplicationFileName("Jane Doe", "Dev: Go/Rust"); got != "Jane_Doe_Dev__Go_Rust.docx" {
		t.Errorf("ApplicationFileName = %q", got)
	}
	if got := artifact.CoverLetterFileName("***"); got != "Cover_Letter_untitled.docx" {
		t.Errorf("CoverLetterFileName = %q", got)
	}
}
