// Package publisher writes the static HTML page that embeds the latest chart.
package publisher

import (
	"bytes"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

var page = template.Must(template.New("index").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<h1>{{.Heading}}</h1>
<img src="{{.Src}}" alt="Stock Chart" />
<p>Generated {{.Generated}}</p>
</body>
</html>
`))

// Publisher renders index pages. Now supplies the cache-busting token.
type Publisher struct {
	Title string
	Now   func() time.Time
}

// New returns a Publisher with the given page title.
func New(title string) *Publisher {
	return &Publisher{Title: title, Now: time.Now}
}

// Publish writes htmlPath embedding imagePath and returns the image URL used.
// The URL is relative to the page and carries a ?v= token that changes on every publish.
func (p *Publisher) Publish(imagePath, htmlPath string) (string, error) {
	rel, err := filepath.Rel(filepath.Dir(htmlPath), imagePath)
	if err != nil {
		return "", fmt.Errorf("relative image path: %w", err)
	}
	now := p.Now()
	src := filepath.ToSlash(rel) + "?v=" + strconv.FormatInt(now.UnixMilli(), 10)

	title := p.Title
	if title == "" {
		title = "Latest Stock Chart"
	}
	var buf bytes.Buffer
	err = page.Execute(&buf, struct {
		Title, Heading, Generated string
		Src                       template.URL
	}{
		Title:     "Latest Stock Chart",
		Heading:   "Latest " + title,
		Generated: now.Format(time.RFC1123),
		Src:       template.URL(src),
	})
	if err != nil {
		return "", fmt.Errorf("render html: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(htmlPath), 0o755); err != nil {
		return "", fmt.Errorf("create html dir: %w", err)
	}
	if err := os.WriteFile(htmlPath, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write html: %w", err)
	}
	return src, nil
}
