package scraper

import (
	"net/url"
	"reflect"
	"testing"

	"github.com/yamori/assessrec/internal/catalog"
)

func TestParseListing(t *testing.T) {
	base, _ := url.Parse("https://www.shl.com/solutions/products/product-catalog/")

	page := `<html><body>
		<table>
			<tr><td><a href="/solutions/products/product-catalog/view/java-8-new/">Java 8 (New)</a></td></tr>
			<tr><td><a href="/solutions/products/product-catalog/view/python-new/">Python (New)</a></td></tr>
			<tr><td><a href="/solutions/products/product-catalog/view/java-8-new/">Java 8 (New)</a></td></tr>
			<tr><td><a href="/about-us/">About us</a></td></tr>
		</table>
	</body></html>`

	entries, err := parseListing(page, base)
	if err != nil {
		t.Fatalf("parseListing failed: %v", err)
	}

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Name != "Java 8 (New)" {
		t.Errorf("expected first entry Java 8 (New), got %q", entries[0].Name)
	}
	want := "https://www.shl.com/solutions/products/product-catalog/view/java-8-new/"
	if entries[0].URL != want {
		t.Errorf("expected resolved url %s, got %s", want, entries[0].URL)
	}
}

func TestParseListingEmpty(t *testing.T) {
	base, _ := url.Parse("https://www.shl.com/solutions/products/product-catalog/")

	entries, err := parseListing("<html><body><p>No results</p></body></html>", base)
	if err != nil {
		t.Fatalf("parseListing failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}

func TestParseProduct(t *testing.T) {
	page := `<html><body>
		<h1>Java 8 (New)</h1>
		<p>ok</p>
		<p>Multi-choice test that measures the knowledge of Java class design,
		exceptions, generics, collections and concurrency.</p>
		<p>Approximate Completion Time in minutes = 30</p>
		<div>Remote Testing: Yes</div>
		<div>Adaptive/IRT: No</div>
	</body></html>`

	details, err := parseProduct(page)
	if err != nil {
		t.Fatalf("parseProduct failed: %v", err)
	}

	if details.Description == "" || details.Description == "ok" {
		t.Errorf("expected substantial description, got %q", details.Description)
	}
	if details.Duration != 30 {
		t.Errorf("expected duration 30, got %d", details.Duration)
	}
	if !details.Remote {
		t.Error("expected remote support to be detected")
	}
	if !details.Adaptive {
		t.Error("expected adaptive keyword to be detected")
	}
}

func TestExtractTestTypes(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{"knowledge", "measures knowledge of Java collections", []string{catalog.TypeKnowledge}},
		{"behavioral", "personality questionnaire based on the OPQ model", []string{catalog.TypeBehavioral}},
		{"situational", "situational judgment test for managers", []string{catalog.TypeSituational}},
		{"mixed", "cognitive ability and personality assessment", []string{catalog.TypeKnowledge, catalog.TypeBehavioral}},
		{"default", "an assessment", []string{catalog.TypeKnowledge}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := extractTestTypes(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("extractTestTypes(%q) = %v, want %v", tt.text, got, tt.want)
			}
		})
	}
}

func TestExtractDuration(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"Completion Time: 20 minutes", 20},
		{"takes 20-30 minutes", 30},
		{"takes 20 to 30 min", 30},
		{"Approximate Completion Time in minutes = 45", 45},
		{"untimed assessment", 0},
	}

	for _, tt := range tests {
		got := extractDuration(tt.text)
		if got != tt.want {
			t.Errorf("extractDuration(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestSlugFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want string
	}{
		{"https://www.shl.com/solutions/products/product-catalog/view/java-8-new/", "java-8-new"},
		{"https://www.shl.com/view/python-new", "python-new"},
		{"https://www.shl.com/", ""},
	}

	for _, tt := range tests {
		if got := slugFromURL(tt.url); got != tt.want {
			t.Errorf("slugFromURL(%s) = %q, want %q", tt.url, got, tt.want)
		}
	}
}

func TestListingURL(t *testing.T) {
	s, err := New(Config{BaseURL: "https://www.shl.com/solutions/products/product-catalog/"})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	if got := s.listingURL(0); got != "https://www.shl.com/solutions/products/product-catalog/" {
		t.Errorf("unexpected first page url: %s", got)
	}
	if got := s.listingURL(2); got != "https://www.shl.com/solutions/products/product-catalog/?start=24" {
		t.Errorf("unexpected paginated url: %s", got)
	}
}
