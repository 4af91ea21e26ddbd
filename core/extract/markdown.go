// ABOUTME: Markdown rendition of extracted page bodies
// ABOUTME: Converts the chosen container with html-to-markdown and tidies the output

package extract

import (
	"net/url"
	"regexp"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
)

var (
	excessNewlines = regexp.MustCompile(`\n{3,}`)
	trailingSpace  = regexp.MustCompile(`[ \t]+\n`)
	leadingSpace   = regexp.MustCompile(`\n[ \t]+`)
	headerBefore   = regexp.MustCompile(`\n(#{1,6} )`)
	headerAfter    = regexp.MustCompile(`(#{1,6} [^\n]+)\n([^\n])`)
)

func toMarkdown(bodyHTML string, base *url.URL) (string, error) {
	host := ""
	if base != nil {
		host = base.Host
	}
	converter := md.NewConverter(host, true, nil)
	markdown, err := converter.ConvertString(bodyHTML)
	if err != nil {
		return "", err
	}
	return cleanMarkdown(markdown), nil
}

// cleanMarkdown removes excessive newlines and cleans up markdown formatting
func cleanMarkdown(markdown string) string {
	markdown = strings.ReplaceAll(markdown, "\r\n", "\n")
	markdown = strings.ReplaceAll(markdown, "\r", "\n")

	markdown = excessNewlines.ReplaceAllString(markdown, "\n\n")
	markdown = trailingSpace.ReplaceAllString(markdown, "\n")
	markdown = leadingSpace.ReplaceAllString(markdown, "\n")

	// Headers get a blank line on both sides
	markdown = headerBefore.ReplaceAllString(markdown, "\n\n$1")
	markdown = headerAfter.ReplaceAllString(markdown, "$1\n\n$2")
	markdown = excessNewlines.ReplaceAllString(markdown, "\n\n")

	return strings.TrimSpace(markdown)
}
