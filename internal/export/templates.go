package export

import (
	"bytes"
	"html/template"
	"strings"
	"time"
)

var letterTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"lower": strings.ToLower,
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
		"paragraphs": splitParagraphs,
	}
	letterTemplate = template.Must(template.New("letter").Funcs(funcMap).Parse(letterHTML))
}

// splitParagraphs breaks the generated letter body on blank lines so the
// template can wrap each block in its own element.
func splitParagraphs(body string) []string {
	blocks := strings.Split(strings.ReplaceAll(body, "\r\n", "\n"), "\n\n")
	paragraphs := make([]string, 0, len(blocks))
	for _, block := range blocks {
		if trimmed := strings.TrimSpace(block); trimmed != "" {
			paragraphs = append(paragraphs, trimmed)
		}
	}
	return paragraphs
}

// RenderLetterHTML renders the letter template with the provided data.
func RenderLetterHTML(letter Letter) (string, error) {
	var buf bytes.Buffer
	if err := letterTemplate.Execute(&buf, letter); err != nil {
		return "", err
	}
	return buf.String(), nil
}

const letterHTML = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>Appeal Letter</title>
  <style>
    body { font-family: Georgia, serif; line-height: 1.6; max-width: 700px; margin: 2rem auto; color: #222; }
    h1 { font-size: 1.3rem; border-bottom: 2px solid #333; padding-bottom: 0.5rem; }
    .meta { color: #666; font-size: 0.9em; margin-bottom: 2rem; }
    .meta span { margin-right: 1.5rem; }
    p { margin: 0 0 1rem; white-space: pre-wrap; }
  </style>
</head>
<body>
  <h1>Appeal: {{.TicketType}}</h1>
  <div class="meta">
    <span>{{.FullName}}</span>
    {{if .Location}}<span>{{.Location}}</span>{{end}}
    {{if .DateOfViolation}}<span>{{.DateOfViolation}}</span>{{end}}
    <span>{{formatDate .CreatedAt "Jan 2, 2006"}}</span>
  </div>
  {{range paragraphs .Body}}<p>{{.}}</p>
  {{end}}
</body>
</html>`
