package agents

import (
	"embed"
	"strings"
)

//go:embed prompts/*.md
var promptFS embed.FS

func loadPrompt(name string) string {
	data, err := promptFS.ReadFile("prompts/" + name + ".md")
	if err != nil {
		panic("missing embedded prompt " + name + ": " + err.Error())
	}
	return string(data)
}

var (
	academicPrompt     = loadPrompt("academic")
	softSkillsPrompt   = loadPrompt("softskills")
	readinessPrompt    = loadPrompt("readiness")
	interventionPrompt = loadPrompt("intervention")
	queryPrompt        = loadPrompt("query")
	responsePrompt     = loadPrompt("response")
)

// render fills {{KEY}} placeholders. Unknown placeholders are left untouched.
func render(template string, values map[string]string) string {
	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	return strings.TrimSpace(strings.NewReplacer(pairs...).Replace(template))
}
