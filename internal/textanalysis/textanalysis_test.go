package textanalysis

import (
	"reflect"
	"strings"
	"testing"
)

func TestSummarize(t *testing.T) {
	tests := []struct {
		name  string
		text  string
		limit int
		want  string
	}{
		{name: "collapses whitespace", text: "  Go\n\n developer\t with SQL  ", limit: 100, want: "Go developer with SQL"},
		{name: "caps length", text: "abc def ghi", limit: 3, want: "abc"},
		{name: "empty", text: "   ", limit: 10, want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := Summarize(tc.text, tc.limit); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

const sampleResume = `Jane Doe
Summary
Backend engineer.

Projects
Built a payment ledger in Go.
Migrated MySQL to PostgreSQL.
Skills
Go, SQL
`

func TestExtractProjectDetails(t *testing.T) {
	got := ExtractProjectDetails(sampleResume, 800)
	want := "Built a payment ledger in Go.\nMigrated MySQL to PostgreSQL."
	if got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestExtractProjectDetailsTruncates(t *testing.T) {
	got := ExtractProjectDetails(sampleResume, 10)
	if got != "Built a pa"+TruncatedMarker {
		t.Fatalf("unexpected truncation %q", got)
	}
}

func TestExtractProjectDetailsWithoutSection(t *testing.T) {
	if got := ExtractProjectDetails("Jane Doe\nGo, SQL, Kubernetes", 800); got != "" {
		t.Fatalf("expected no details, got %q", got)
	}
}

func TestRoleTitle(t *testing.T) {
	tests := []struct {
		name string
		jd   string
		want string
	}{
		{name: "job title heading", jd: "Company: Acme\nJob Title: Database Administrator\nLocation: Remote", want: "Database Administrator"},
		{name: "title heading", jd: "title - Software Engineer II\nWe build things.", want: "Software Engineer II"},
		{name: "missing", jd: "We are hiring someone great.", want: DefaultRoleTitle},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := RoleTitle(tc.jd); got != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, got)
			}
		})
	}
}

func TestKeywordsOrderedByFrequency(t *testing.T) {
	got := Keywords("Go services. Go tooling and PostgreSQL, postgresql tuning in 2024", 3)
	want := []string{"postgresql", "services", "tooling"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestFocusTopics(t *testing.T) {
	resume := "kubernetes terraform python"
	jd := "python python kubernetes kubernetes kubernetes golang"

	if got, want := FocusTopics(resume, jd, 5), []string{"kubernetes", "python", "golang"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got, want := FocusTopics(resume, jd, 2), []string{"kubernetes", "python"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestFocusTopicsFallbacks(t *testing.T) {
	if got := FocusTopics("", "python", 5); !reflect.DeepEqual(got, []string{"Review Resume/JD"}) {
		t.Fatalf("unexpected topics for empty resume: %v", got)
	}
	if got := FocusTopics("python", "the and of", 5); !reflect.DeepEqual(got, []string{"General technical skills"}) {
		t.Fatalf("unexpected topics without keywords: %v", got)
	}
}

func TestSearchQueries(t *testing.T) {
	got := SearchQueries("DBA", "postgresql backups", "postgresql replication", 3)
	want := []string{
		"DBA technical concepts related to postgresql, replication, backups",
		"Explain postgresql for a DBA",
		"Common interview questions about postgresql for DBA",
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}

	if got := SearchQueries("DBA", "postgresql backups", "postgresql replication", 1); len(got) != 1 {
		t.Fatalf("expected a single query, got %v", got)
	}
}

func TestSearchQueriesFallback(t *testing.T) {
	got := SearchQueries("", "the", "a", 3)
	if len(got) != 1 || !strings.HasPrefix(got[0], "Position: a Candidate skills: the") {
		t.Fatalf("unexpected fallback queries %v", got)
	}
}

func TestContentTokens(t *testing.T) {
	got := ContentTokens("What's the B-tree index? Explain the INDEX.")
	want := map[string]struct{}{"tree": {}, "index": {}, "explain": {}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}
