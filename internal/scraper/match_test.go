package scraper_test

import (
	"strings"
	"testing"

	"jobmate/ingest-service/internal/scraper"
)

func TestMatchPercentage(t *testing.T) {
	cases := []struct {
		name     string
		required []string
		current  []string
		want     float64
	}{
		{"empty requirement", nil, []string{"Go"}, 0},
		{"full match", []string{"Go", "SQL"}, []string{"sql", "GO", "Docker"}, 100},
		{"half", []string{"Go", "Kafka"}, []string{"go"}, 50},
		{"duplicates count once", []string{"Go", "go", "Kafka", "Rust", "Java"}, []string{"GO", "rust"}, 50},
		{"none", []string{"Java"}, nil, 0},
		{"unicode fold", []string{"ÉCOLE"}, []string{"école"}, 100},
	}
	for _, c := range cases {
		if got := scraper.MatchPercentage(c.required, c.current); got != c.want {
			t.Errorf("%s: MatchPercentage = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestMissingSkills_FirstSeenOrder(t *testing.T) {
	got := scraper.MissingSkills(
		[]string{"Kafka", "Go", "kafka", "Rust", " ", "Docker"},
		[]string{"go", "docker"},
	)
	if strings.Join(got, ",") != "Kafka,Rust" {
		t.Errorf("MissingSkills = %v, want [Kafka Rust]", got)
	}
}

func TestMissingSkills_NoneMissing(t *testing.T) {
	if got := scraper.MissingSkills([]string{"Go"}, []string{"GO"}); len(got) != 0 {
		t.Errorf("MissingSkills = %v, want empty", got)
	}
}
