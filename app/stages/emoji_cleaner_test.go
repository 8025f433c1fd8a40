package stages

import (
	"testing"

	"github.com/lysyi3m/jobs-comb/app/scraped"
)

func TestRemoveEmoji(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"🦸🏻 Junior projekťák 🦸🏻", "Junior projekťák"},
		{"\u200dQA Engineer/Tester", "QA Engineer/Tester"},
		{"  \u200dQA Engineer/Tester", "QA Engineer/Tester"},
		{"\u200d  QA Engineer/Tester", "QA Engineer/Tester"},
		{"❗Kurz Programátor www aplikací❗", "Kurz Programátor www aplikací"},
		{"Junior Developer ⭐️", "Junior Developer"},
		{"C# / .NET vývojář", "C# / .NET vývojář"},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			if got := RemoveEmoji(tt.input); got != tt.want {
				t.Errorf("Expected '%s', got '%s'", tt.want, got)
			}
		})
	}
}

func TestEmojiCleaner_Process(t *testing.T) {
	stage := NewEmojiCleaner([]string{"title", "company_name"})

	item, err := stage.Process(scraped.Item{
		"title":            "🚀 Junior Python Developer",
		"company_name":     "Acme 🎉",
		"description_html": "<p>🚀</p>",
		"remote":           true,
	})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if item.String("title") != "Junior Python Developer" {
		t.Errorf("Expected cleaned title, got '%s'", item.String("title"))
	}
	if item.String("company_name") != "Acme" {
		t.Errorf("Expected cleaned company name, got '%s'", item.String("company_name"))
	}
	if item.String("description_html") != "<p>🚀</p>" {
		t.Errorf("Expected description to be untouched, got '%s'", item.String("description_html"))
	}
	if !item.Bool("remote") {
		t.Error("Expected non-string fields to be untouched")
	}
}
