package extract_test

import (
	"strings"
	"testing"

	"curator/internal/services/extract"
)

const samplePage = `<!DOCTYPE html>
<html>
<head><title>Studio Schedule</title></head>
<body>
<nav><a href="/">Home</a><a href="/about">About</a></nav>
<article>
<h1>Weekly Classes</h1>
<p>Vinyasa flow every Monday at 18:00 with Jane Doe.</p>
<p>Drop-in price 15 EUR, reduced 10 EUR.</p>
</article>
<footer>Contact us</footer>
</body>
</html>`

func TestCleanProducesMarkdown(t *testing.T) {
	cleaner := extract.NewCleaner(0)

	text, err := cleaner.Clean(samplePage, "https://studio.example/schedule")
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if !strings.Contains(text, "Vinyasa flow every Monday") {
		t.Errorf("cleaned text lost body content:\n%s", text)
	}
	if strings.Contains(text, "<article>") || strings.Contains(text, "<p>") {
		t.Errorf("cleaned text still contains html:\n%s", text)
	}
}

func TestCleanTruncates(t *testing.T) {
	cleaner := extract.NewCleaner(20)

	text, err := cleaner.Clean(samplePage, "https://studio.example/schedule")
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if len(text) > 20 {
		t.Errorf("len = %d, want <= 20", len(text))
	}
}

func TestCleanCollapsesBlankLines(t *testing.T) {
	page := "<html><body><p>one</p><br><br><br><br><p>two</p></body></html>"
	cleaner := extract.NewCleaner(0)

	text, err := cleaner.Clean(page, "https://x/1")
	if err != nil {
		t.Fatalf("Clean: %v", err)
	}
	if strings.Contains(text, "\n\n\n") {
		t.Errorf("blank lines not collapsed:\n%q", text)
	}
}
