package interview

import (
	"embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

var prompts = template.Must(template.New("prompts").
	Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).
	ParseFS(promptFS, "prompts/*.tmpl"))

type questionPromptData struct {
	RoleTitle              string
	ResumeSummary          string
	ProjectDetails         string
	JDSummary              string
	FocusTopics            string
	RetrievedContext       string
	NumQuestions           int
	TotalQuestions         int
	RoleGuidance           string
	CodingGuidance         string
	ProblemSolvingGuidance string
	ExtraHints             string
	Slots                  []string
}

type turnPromptData struct {
	InterviewerName    string
	CompanyName        string
	RoleTitle          string
	CandidateName      string
	ResumeSummary      string
	ProjectDetails     string
	JDSummary          string
	FocusTopics        string
	PreparedQuestions  string
	AskedQuestions     string
	RemainingQuestions string
	History            string
	TurnNumber         int
	TotalQuestions     int
}

type evaluationPromptData struct {
	RoleTitle     string
	JDSummary     string
	ResumeSummary string
	Question      string
	Response      string
}

func renderPrompt(name string, data any) (string, error) {
	var b strings.Builder
	if err := prompts.ExecuteTemplate(&b, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return strings.TrimSpace(b.String()), nil
}
