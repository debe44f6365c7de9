// Package scrape turns rendered listing and detail documents into domain
// records. All selector knowledge lives here so markup changes stay a
// localized swap rather than an orchestrator change.
package scrape

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nexthing8-cmd/okky-jobs-backend/internal/jobs"
)

const (
	postLinkSelector   = `a[href^="/recruits/"]`
	totalCountSelector = `div[class*="sm:w-32"] span.font-semibold`
	companySelector    = `span.text-gray-900.text-sm`
	deadlineSelector   = `span[class*="bg-gray-500"]`
	infoSelector       = `div.my-1.flex.gap-x-1`
	badgeSelector      = `div.mt-2.flex span`
)

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	careerRe     = regexp.MustCompile(`\d+년차|팀원|PL`)
	salaryRe     = regexp.MustCompile(`\d+~\d+만원|\d+만원`)
)

// ListingPage is the result of parsing one listing document.
type ListingPage struct {
	Summaries []jobs.Summary
	// TotalCount is the site-reported number of open positions. It is read
	// only from the first page of a run; 0 otherwise.
	TotalCount int
}

// ListingExtractor parses listing pages into job summaries.
type ListingExtractor struct{}

// NewListingExtractor constructs a ListingExtractor.
func NewListingExtractor() *ListingExtractor { return &ListingExtractor{} }

// Extract parses one listing document. Missing optional fields resolve to
// empty strings, never errors, so persistence always has a value to write.
func (e *ListingExtractor) Extract(doc *goquery.Document, pageURL string, isFirstPage bool) (ListingPage, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ListingPage{}, fmt.Errorf("parse page url: %w", err)
	}

	page := ListingPage{}
	if isFirstPage {
		page.TotalCount = totalCount(doc)
	}

	doc.Find(postLinkSelector).Each(func(_ int, link *goquery.Selection) {
		title := link.Find("h2").First()
		if title.Length() == 0 {
			return
		}

		href, _ := link.Attr("href")
		summary := jobs.Summary{
			Link:     absoluteLink(base, href),
			Title:    collapseSpace(title.Text()),
			Company:  strings.TrimSpace(link.Find(companySelector).First().Text()),
			Deadline: deadline(link),
		}
		summary.Category, summary.Position, summary.Location = infoFields(link)
		summary.Career, summary.Salary = badgeFields(link)
		page.Summaries = append(page.Summaries, summary)
	})

	return page, nil
}

// TotalPages derives the pagination bound from the first page. A first page
// that legitimately returns zero items degenerates to a single page even
// when the site reports open positions; the run then completes with what it
// has rather than looping blindly.
func TotalPages(totalCount, firstPageItems int) int {
	if totalCount <= 0 || firstPageItems <= 0 {
		return 1
	}
	return (totalCount + firstPageItems - 1) / firstPageItems
}

func totalCount(doc *goquery.Document) int {
	text := strings.TrimSpace(doc.Find(totalCountSelector).First().Text())
	if text == "" {
		return 0
	}
	n, err := strconv.Atoi(text)
	if err != nil {
		return 0
	}
	return n
}

func deadline(link *goquery.Selection) string {
	text := link.Find(deadlineSelector).First().Text()
	return strings.TrimSpace(strings.ReplaceAll(text, "마감", ""))
}

// infoFields reads the category/position/location badges in order, skipping
// the clean-listing badge the site mixes in.
func infoFields(link *goquery.Selection) (category, position, location string) {
	var fields []string
	link.Find(infoSelector).First().Find("small").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if strings.Contains(text, "클린") {
			return
		}
		fields = append(fields, text)
	})
	if len(fields) >= 1 {
		category = fields[0]
	}
	if len(fields) >= 2 {
		position = fields[1]
	}
	if len(fields) >= 3 {
		location = fields[2]
	}
	return category, position, location
}

// badgeFields picks career and salary tokens out of the free-text badge row.
// First match wins for each.
func badgeFields(link *goquery.Selection) (career, salary string) {
	link.Find(badgeSelector).Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if career == "" && careerRe.MatchString(text) {
			career = text
		}
		if salary == "" && salaryRe.MatchString(text) {
			salary = text
		}
	})
	return career, salary
}

func absoluteLink(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return base.ResolveReference(ref).String()
}

func collapseSpace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}
