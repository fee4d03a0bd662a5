package artifact

import (
	"bufio"
	"context"
	"errors"
	"io/fs"
	"os"
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"jobmate/ingest-service/internal/scraper"
)

// SkillProvider supplies the applicant's current skill set for a run.
type SkillProvider interface {
	Skills(ctx context.Context) ([]string, error)
}

// StaticSkills is a fixed skill set, typically read from configuration.
type StaticSkills []string

func (s StaticSkills) Skills(context.Context) ([]string, error) {
	out := make([]string, len(s))
	copy(out, s)
	return out, nil
}

// SkillUnion merges current and required, dropping case-insensitive
// duplicates (the first spelling wins) and sorting case-insensitively.
func SkillUnion(current, required []string) []string {
	seen := make(map[string]struct{}, len(current)+len(required))
	var union []string
	for _, list := range [][]string{current, required} {
		for _, s := range list {
			s = strings.TrimSpace(s)
			k := scraper.FoldSkill(s)
			if k == "" {
				continue
			}
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			union = append(union, s)
		}
	}
	sort.SliceStable(union, func(i, j int) bool {
		return scraper.FoldSkill(union[i]) < scraper.FoldSkill(union[j])
	})
	return union
}

func upper(s string) string {
	return cases.Upper(language.Und).String(s)
}

// readLines returns the non-blank lines of path. A missing file yields nil.
func readLines(path string) ([]string, error) {
	if path == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, sc.Err()
}
