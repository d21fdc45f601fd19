package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	readability "github.com/go-shiori/go-readability"
)

var excessiveBlankLines = regexp.MustCompile(`\n{3,}`)

// Cleaner reduces rendered HTML to readable markdown text.
type Cleaner struct {
	converter *md.Converter
	maxChars  int
}

// NewCleaner builds a cleaner. maxChars truncates the output to keep
// extraction prompts bounded; zero means unlimited.
func NewCleaner(maxChars int) *Cleaner {
	converter := md.NewConverter("", true, nil)
	converter.Use(plugin.GitHubFlavored())
	return &Cleaner{converter: converter, maxChars: maxChars}
}

// Clean extracts the main content of a page and converts it to markdown.
// When readability cannot identify an article, the full document is
// converted instead.
func (c *Cleaner) Clean(htmlContent, pageURL string) (string, error) {
	parsedURL, err := url.Parse(strings.TrimSpace(pageURL))
	if err != nil {
		return "", fmt.Errorf("clean: parse url: %w", err)
	}

	content := htmlContent
	if article, err := readability.FromReader(strings.NewReader(htmlContent), parsedURL); err == nil && strings.TrimSpace(article.Content) != "" {
		content = article.Content
	}

	markdown, err := c.converter.ConvertString(content)
	if err != nil {
		return "", fmt.Errorf("clean: convert html: %w", err)
	}

	markdown = excessiveBlankLines.ReplaceAllString(markdown, "\n\n")
	markdown = strings.TrimSpace(markdown)
	if c.maxChars > 0 && len(markdown) > c.maxChars {
		markdown = markdown[:c.maxChars]
	}
	return markdown, nil
}
