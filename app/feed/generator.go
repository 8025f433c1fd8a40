package feed

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/lysyi3m/jobs-comb/app/database"
)

const FeedPath = "/jobs.xml"

type Generator struct {
	baseURL string
	version string
	now     func() time.Time
}

// NewGenerator creates an RSS generator. baseURL is the public address of
// the service and is used for the channel link and the self reference.
func NewGenerator(baseURL, version string) *Generator {
	return &Generator{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		version: version,
		now:     time.Now,
	}
}

func (g *Generator) Run(jobs []database.Job) (string, error) {
	var buf bytes.Buffer

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:content="http://purl.org/rss/1.0/modules/content/" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", "Jobs Comb", 4)
	g.writeElement(&buf, "link", g.baseURL, 4)
	g.writeElement(&buf, "description", "Job postings collected from job boards", 4)

	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(g.baseURL+FeedPath)))

	lastBuildDate := g.now().In(time.Local)
	if latest := latestSeen(jobs); !latest.IsZero() {
		lastBuildDate = latest
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Jobs-Comb/%s", g.version), 4)

	for _, job := range jobs {
		g.writeItem(&buf, job)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, job database.Job) {
	buf.WriteString("    <item>\n")

	buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", isURL(job.URL)))
	xml.EscapeText(buf, []byte(job.URL))
	buf.WriteString("</guid>\n")

	g.writeElement(buf, "title", itemTitle(job), 6)
	g.writeElement(buf, "link", job.URL, 6)
	g.writeElement(buf, "description", summary(job), 6)

	if job.DescriptionHTML != "" {
		buf.WriteString("      <content:encoded><![CDATA[")
		// "]]>" would end the section early
		buf.WriteString(strings.ReplaceAll(job.DescriptionHTML, "]]>", "]]]]><![CDATA[>"))
		buf.WriteString("]]></content:encoded>\n")
	}

	if !job.FirstSeenOn.IsZero() {
		g.writeElement(buf, "pubDate", job.FirstSeenOn.Format(time.RFC1123Z), 6)
	}

	if job.Source != "" {
		g.writeElement(buf, "category", job.Source, 6)
	}
	for _, employmentType := range job.EmploymentTypes {
		g.writeElement(buf, "category", employmentType, 6)
	}
	if job.IsRemote() {
		g.writeElement(buf, "category", "remote", 6)
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func itemTitle(job database.Job) string {
	title := job.Title
	if title == "" {
		title = job.URL
	}
	if job.CompanyName != "" {
		title = fmt.Sprintf("%s at %s", title, job.CompanyName)
	}
	return title
}

func summary(job database.Job) string {
	var parts []string
	if job.CompanyName != "" {
		parts = append(parts, job.CompanyName)
	}
	if len(job.LocationsRaw) > 0 {
		parts = append(parts, strings.Join(job.LocationsRaw, ", "))
	}
	if job.IsRemote() {
		parts = append(parts, "remote")
	}
	if len(parts) == 0 {
		return "No description available"
	}
	return strings.Join(parts, " · ")
}

func latestSeen(jobs []database.Job) time.Time {
	var latest time.Time
	for _, job := range jobs {
		if job.LastSeenOn.After(latest) {
			latest = job.LastSeenOn
		}
	}
	return latest
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
