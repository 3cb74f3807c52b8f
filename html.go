package main

import (
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"sort"
	"time"
)

var categoryColors = map[string]string{
	"question":         "#4caf50",
	"feature_request":  "#9c27b0",
	"no_repro":         "#ff9800",
	"not_reproducible": "#2196f3",
	"confirmed_bug":    "#f44336",
	"error":            "#9e9e9e",
}

func categoryColor(cat string) template.CSS {
	if c, ok := categoryColors[cat]; ok {
		return template.CSS(c)
	}
	return template.CSS("#9e9e9e")
}

type dashboardTallyItem struct {
	Category string
	Count    int
	Color    template.CSS
}

type dashboardRow struct {
	Number    int
	Title     string
	Author    string
	Category  string
	Color     template.CSS
	Summary   string
	Closed    bool
	IssueURL  string
	AuthorURL string
}

type detailSection struct {
	Heading string
	Content string
}

type dashboardDetail struct {
	Number   int
	Title    string
	Closed   bool
	Sections []detailSection
}

type dashboardData struct {
	Repo      string
	Generated string
	Tally     []dashboardTallyItem
	Rows      []dashboardRow
	Details   []dashboardDetail
}

const dashboardTemplate = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Repo}} Triage Report</title>
<style>
  body { font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 2em; }
  table { border-collapse: collapse; width: 100%; }
  th, td { border: 1px solid #ddd; padding: 8px; text-align: left; }
  th { background: #333; color: #fff; }
  tr:nth-child(even) { background: #f9f9f9; }
  pre { background: #f4f4f4; padding: 1em; overflow-x: auto; white-space: pre-wrap; }
  a { color: #1976d2; }
  .summary { font-size: 1.2em; margin: 1em 0; }
  .closed { background: #666; color: #fff; padding: 2px 6px; border-radius: 3px; font-size: 0.8em; }
</style>
</head>
<body>
<h1>{{.Repo}} Triage Report</h1>
<p>Generated: {{.Generated}}</p>
<p class="summary">{{range $i, $t := .Tally}}{{if $i}} | {{end}}<span style="color:{{$t.Color}}">{{$t.Category}}: {{$t.Count}}</span>{{end}}</p>
<table>
<tr><th>Issue</th><th>Title</th><th>Author</th><th>Category</th><th>Summary</th><th>Details</th></tr>
{{range .Rows}}<tr>
<td><a href="{{.IssueURL}}">#{{.Number}}</a></td>
<td>{{.Title}}{{if .Closed}} <span class="closed">closed</span>{{end}}</td>
<td><a href="{{.AuthorURL}}">@{{.Author}}</a></td>
<td style="background:{{.Color}};color:#fff;text-align:center">{{.Category}}</td>
<td>{{.Summary}}</td>
<td><a href="#detail-{{.Number}}">details</a></td>
</tr>
{{end}}</table>
<h2>Details</h2>
{{range $i, $d := .Details}}{{if $i}}<hr>
{{end}}<h3 id="detail-{{$d.Number}}">#{{$d.Number}}: {{$d.Title}}{{if $d.Closed}} <span class="closed">closed</span>{{end}}</h3>
{{range $d.Sections}}<h4>{{.Heading}}</h4><pre>{{.Content}}</pre>
{{end}}{{end}}</body>
</html>
`

var dashboardTmpl = template.Must(template.New("dashboard").Parse(dashboardTemplate))

const (
	reproOutputLimit = 5000
	patchLimit       = 10000
)

// RenderDashboard writes overview.html for a triage run: a category tally, a
// category-colored row per issue linking to issue and author, and an
// expandable detail section per issue. Pure function of the collected
// entries (plus artifact files referenced by them).
func RenderDashboard(entries []TriageEntry, outputDir, repo string) (string, error) {
	data := dashboardData{
		Repo:      repo,
		Generated: time.Now().Format("2006-01-02 15:04:05"),
	}

	counts := make(map[string]int)
	for _, e := range entries {
		cat := e.Result.Category
		if cat == "" {
			cat = "error"
		}
		counts[cat]++

		data.Rows = append(data.Rows, dashboardRow{
			Number:    e.Number,
			Title:     e.Title,
			Author:    e.Author,
			Category:  cat,
			Color:     categoryColor(cat),
			Summary:   e.Result.Summary,
			Closed:    e.Result.Closed,
			IssueURL:  fmt.Sprintf("https://github.com/%s/issues/%d", repo, e.Number),
			AuthorURL: "https://github.com/" + e.Author,
		})

		detail := dashboardDetail{Number: e.Number, Title: e.Title, Closed: e.Result.Closed}
		if e.Result.Answer != "" {
			detail.Sections = append(detail.Sections, detailSection{"Answer", e.Result.Answer})
		}
		if e.Result.ReproCode != "" {
			detail.Sections = append(detail.Sections, detailSection{"Repro Code", e.Result.ReproCode})
		}
		if e.Result.ReproOutput != "" {
			detail.Sections = append(detail.Sections, detailSection{"Repro Output", truncate(e.Result.ReproOutput, reproOutputLimit)})
		}
		if e.Result.FixDescription != "" {
			detail.Sections = append(detail.Sections, detailSection{"Fix Description", e.Result.FixDescription})
		}
		if e.Result.CommitHash != "" {
			detail.Sections = append(detail.Sections, detailSection{"Commit", e.Result.CommitHash})
		}
		if e.Result.PatchFile != "" {
			patchPath := filepath.Join(outputDir, e.Dir, e.Result.PatchFile)
			if patch, err := os.ReadFile(patchPath); err == nil {
				detail.Sections = append(detail.Sections, detailSection{"Patch", truncate(string(patch), patchLimit)})
			}
		}
		data.Details = append(data.Details, detail)
	}

	cats := make([]string, 0, len(counts))
	for cat := range counts {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	for _, cat := range cats {
		data.Tally = append(data.Tally, dashboardTallyItem{Category: cat, Count: counts[cat], Color: categoryColor(cat)})
	}

	path := filepath.Join(outputDir, "overview.html")
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	if err := dashboardTmpl.Execute(f, data); err != nil {
		return "", fmt.Errorf("rendering dashboard: %w", err)
	}
	return path, nil
}
