package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/jobs-comb/app/database"
	"github.com/mmcdole/gofeed"
)

func sampleJobs() []database.Job {
	remote := true
	return []database.Job{
		{
			ID:              1,
			URL:             "https://www.startupjobs.cz/nabidka/42/junior-developer",
			Title:           "Junior Developer",
			CompanyName:     "Acme & Co",
			DescriptionHTML: "<p>Write <b>Go</b></p>",
			Source:          "startupjobs",
			Remote:          &remote,
			LocationsRaw:    []string{"Praha", "Brno"},
			EmploymentTypes: []string{"full-time"},
			FirstSeenOn:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
			LastSeenOn:      time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC),
		},
		{
			ID:          2,
			URL:         "https://example.com/jobs/7",
			FirstSeenOn: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC),
			LastSeenOn:  time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC),
		},
	}
}

func TestGenerateRSS(t *testing.T) {
	generator := NewGenerator("https://jobs.example.com/", "1.2.3")

	rss, err := generator.Run(sampleJobs())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(rss, `<?xml version="1.0" encoding="UTF-8"?>`) {
		t.Error("RSS should contain XML declaration")
	}

	if !strings.Contains(rss, `<atom:link href="https://jobs.example.com/jobs.xml" rel="self" type="application/rss+xml" />`) {
		t.Error("RSS should contain atom:link self reference")
	}

	if !strings.Contains(rss, "<lastBuildDate>Fri, 15 Mar 2024 00:00:00 +0000</lastBuildDate>") {
		t.Error("RSS should use the latest last_seen_on as lastBuildDate")
	}

	if !strings.Contains(rss, "<generator>Jobs-Comb/1.2.3</generator>") {
		t.Error("RSS should contain generator with version")
	}

	if !strings.Contains(rss, "<title>Junior Developer at Acme &amp; Co</title>") {
		t.Error("RSS should contain escaped item title")
	}

	feed, err := gofeed.NewParser().ParseString(rss)
	if err != nil {
		t.Fatalf("Generated RSS should be parseable, got: %v", err)
	}

	if feed.Title != "Jobs Comb" {
		t.Errorf("Expected feed title 'Jobs Comb', got '%s'", feed.Title)
	}
	if feed.Link != "https://jobs.example.com" {
		t.Errorf("Expected feed link 'https://jobs.example.com', got '%s'", feed.Link)
	}
	if len(feed.Items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(feed.Items))
	}

	first := feed.Items[0]
	if first.Title != "Junior Developer at Acme & Co" {
		t.Errorf("Expected title 'Junior Developer at Acme & Co', got '%s'", first.Title)
	}
	if first.Link != "https://www.startupjobs.cz/nabidka/42/junior-developer" {
		t.Errorf("Unexpected link '%s'", first.Link)
	}
	if first.GUID != first.Link {
		t.Errorf("Expected GUID to be the job URL, got '%s'", first.GUID)
	}
	if first.Description != "Acme & Co · Praha, Brno · remote" {
		t.Errorf("Unexpected description '%s'", first.Description)
	}
	if first.Content != "<p>Write <b>Go</b></p>" {
		t.Errorf("Unexpected content '%s'", first.Content)
	}
	if first.PublishedParsed == nil || !first.PublishedParsed.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected pubDate 2024-03-01, got %v", first.PublishedParsed)
	}

	expectedCategories := []string{"startupjobs", "full-time", "remote"}
	if len(first.Categories) != len(expectedCategories) {
		t.Fatalf("Expected categories %v, got %v", expectedCategories, first.Categories)
	}
	for i, category := range expectedCategories {
		if first.Categories[i] != category {
			t.Errorf("Expected category %d to be '%s', got '%s'", i, category, first.Categories[i])
		}
	}
}

func TestGenerateWithMinimalData(t *testing.T) {
	generator := NewGenerator("http://localhost:8080", "dev")

	rss, err := generator.Run(sampleJobs()[1:])
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(rss, "<title>https://example.com/jobs/7</title>") {
		t.Error("RSS should fall back to the URL as item title")
	}

	if !strings.Contains(rss, "<description>No description available</description>") {
		t.Error("RSS should contain default description")
	}

	if strings.Contains(rss, "<content:encoded>") {
		t.Error("RSS should not contain content when description HTML is empty")
	}

	if strings.Contains(rss, "<category>") {
		t.Error("RSS should not contain categories")
	}
}

func TestGenerateWithoutJobs(t *testing.T) {
	generator := NewGenerator("http://localhost:8080", "dev")
	fixed := time.Date(2024, 4, 1, 8, 30, 0, 0, time.UTC)
	generator.now = func() time.Time { return fixed }

	rss, err := generator.Run(nil)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if strings.Contains(rss, "<item>") {
		t.Error("RSS should not contain items")
	}

	if !strings.Contains(rss, "<lastBuildDate>"+fixed.In(time.Local).Format(time.RFC1123Z)+"</lastBuildDate>") {
		t.Error("RSS should use the current time as lastBuildDate")
	}
}

func TestGenerateEscapesCDATATerminator(t *testing.T) {
	jobs := sampleJobs()[:1]
	jobs[0].DescriptionHTML = "<p>a ]]> b</p>"

	rss, err := NewGenerator("http://localhost:8080", "dev").Run(jobs)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if !strings.Contains(rss, "<content:encoded><![CDATA[<p>a ]]]]><![CDATA[> b</p>]]></content:encoded>") {
		t.Error("RSS should split CDATA around the terminator")
	}

	if _, err := gofeed.NewParser().ParseString(rss); err != nil {
		t.Errorf("Generated RSS should be parseable, got: %v", err)
	}
}
