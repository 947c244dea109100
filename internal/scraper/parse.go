package scraper

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/yamori/assessrec/internal/catalog"
)

// listingEntry is one product row from a catalog listing page.
type listingEntry struct {
	Name string
	URL  string
}

// durationPatterns match duration statements like "20 minutes", "20-30 min",
// and the catalog's "Completion Time in minutes = 30" form. Range forms
// resolve to the upper bound.
var durationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(\d+)\s*(?:to|-)\s*(\d+)\s*(?:min|minute)`),
	regexp.MustCompile(`(?i)(\d+)\s*(?:min|minute)`),
	regexp.MustCompile(`(?i)minutes?\s*=\s*(\d+)`),
	regexp.MustCompile(`(?i)approx(?:imately)?\s+(\d+)`),
}

// parseListing extracts product links from a rendered catalog listing page.
// Product anchors point under the catalog view path.
func parseListing(pageHTML string, base *url.URL) ([]listingEntry, error) {
	doc, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return nil, err
	}

	var entries []listingEntry
	seen := make(map[string]struct{})

	walk(doc, func(n *html.Node) {
		if n.Type != html.ElementNode || n.Data != "a" {
			return
		}
		href := attr(n, "href")
		if href == "" || !strings.Contains(href, "/product-catalog/view/") {
			return
		}

		resolved, err := base.Parse(href)
		if err != nil {
			return
		}
		link := resolved.String()
		if _, dup := seen[link]; dup {
			return
		}

		name := strings.TrimSpace(text(n))
		if name == "" {
			return
		}

		seen[link] = struct{}{}
		entries = append(entries, listingEntry{Name: name, URL: link})
	})

	return entries, nil
}

// productDetails is the data scraped from one product page.
type productDetails struct {
	Description string
	Duration    int
	Adaptive    bool
	Remote      bool
}

// parseProduct extracts the description and attribute flags from a rendered
// product detail page. Descriptions live in the page's paragraph content;
// flags and duration come from keyword scanning of the full text, matching
// how the catalog presents them.
func parseProduct(pageHTML string) (productDetails, error) {
	doc, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return productDetails{}, err
	}

	var paragraphs []string
	walk(doc, func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "p" {
			if t := cleanText(text(n)); len(t) > 40 {
				paragraphs = append(paragraphs, t)
			}
		}
	})

	full := cleanText(text(doc))
	lower := strings.ToLower(full)

	details := productDetails{
		Duration: extractDuration(full),
		Adaptive: strings.Contains(lower, "adaptive"),
		Remote:   strings.Contains(lower, "remote testing"),
	}
	if len(paragraphs) > 0 {
		// The first substantial paragraph is the product description.
		details.Description = paragraphs[0]
	}

	return details, nil
}

// extractTestTypes derives category codes from free text using keyword
// heuristics. Unclassifiable products default to knowledge, the catalog's
// most common type.
func extractTestTypes(text string) []string {
	lower := strings.ToLower(text)
	var types []string

	if containsAny(lower, "knowledge", "cognitive", "ability", "reasoning", "aptitude") {
		types = append(types, catalog.TypeKnowledge)
	}
	if containsAny(lower, "performance", "skill", "technical", "coding", "typing") {
		types = append(types, catalog.TypePerformance)
	}
	if containsAny(lower, "situational", "judgment", "sjt") {
		types = append(types, catalog.TypeSituational)
	}
	if containsAny(lower, "personality", "behavioral", "behaviour", "motivational", "opq") {
		types = append(types, catalog.TypeBehavioral)
	}

	if len(types) == 0 {
		types = []string{catalog.TypeKnowledge}
	}
	return types
}

// extractDuration pulls a duration in minutes out of free text, or 0 when
// none is stated.
func extractDuration(text string) int {
	for _, pattern := range durationPatterns {
		m := pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		// Range form: use the upper bound
		if len(m) == 3 && m[2] != "" {
			if d, err := strconv.Atoi(m[2]); err == nil {
				return d
			}
		}
		if d, err := strconv.Atoi(m[1]); err == nil {
			return d
		}
	}
	return 0
}

// slugFromURL derives a stable record id from the product URL's last path
// segment.
func slugFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return ""
	}
	segments := strings.Split(path, "/")
	return segments[len(segments)-1]
}

// cleanText collapses runs of whitespace.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// walk visits every node in the tree.
func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

// attr returns the value of the named attribute, or "".
func attr(n *html.Node, name string) string {
	for _, a := range n.Attr {
		if a.Key == name {
			return a.Val
		}
	}
	return ""
}

// text returns the concatenated text content of the subtree.
func text(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
			sb.WriteString(" ")
		}
	})
	return sb.String()
}
