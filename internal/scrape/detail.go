package scrape

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/nexthing8-cmd/okky-jobs-backend/internal/jobs"
)

const (
	headerSelector      = `div.mb-8.flex.flex-wrap`
	viewCounterSelector = `div[class*="gap-x-0.5"]`
	descSelector        = `div.my-5`
	contactSelector     = `div.mb-9`
	contactItemSelector = `div.flex.items-center.gap-x-3`
)

var nonDigitRe = regexp.MustCompile(`[^0-9]`)

// Labels located on the detail page; each value is read from the label
// node's next sibling.
const (
	labelStartDate    = "근무시작일"
	labelWorkLocation = "근무지역"
	labelPayDate      = "급여지급일"
	labelSkill        = "보유스킬"
)

// DetailExtractor parses a single job's detail document.
type DetailExtractor struct{}

// NewDetailExtractor constructs a DetailExtractor.
func NewDetailExtractor() *DetailExtractor { return &DetailExtractor{} }

// Extract reads the detail record plus the raw contact triple from one
// document. Absent labels and containers yield empty fields, never errors.
func (e *DetailExtractor) Extract(doc *goquery.Document, link string) (jobs.Detail, jobs.Contact) {
	detail := jobs.Detail{Link: link}

	header := doc.Find(headerSelector).First()
	if header.Length() > 0 {
		detail.RegisteredAt = strings.TrimSpace(header.Find("span").First().Text())
		detail.ViewCount = viewCount(header)
	}

	detail.StartDate = labeledField(doc, labelStartDate)
	detail.WorkLocation = labeledField(doc, labelWorkLocation)
	detail.PayDate = labeledField(doc, labelPayDate)
	detail.Skill = labeledField(doc, labelSkill)
	detail.Description = description(doc)

	return detail, contact(doc)
}

// viewCount strips every non-digit from the view-counter label. Empty or
// unparsable counters resolve to 0.
func viewCount(header *goquery.Selection) int64 {
	text := nonDigitRe.ReplaceAllString(header.Find(viewCounterSelector).First().Text(), "")
	if text == "" {
		return 0
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// labeledField locates a div whose text matches the label exactly and reads
// the next sibling's text. A missing label yields "".
func labeledField(doc *goquery.Document, label string) string {
	var value string
	doc.Find("div").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if strings.TrimSpace(s.Text()) != label {
			return true
		}
		value = strings.TrimSpace(s.Next().Text())
		return false
	})
	return value
}

// description joins all non-empty paragraph texts within the designated
// container with newlines.
func description(doc *goquery.Document) string {
	var parts []string
	doc.Find(descSelector).First().Find("p").Each(func(_ int, p *goquery.Selection) {
		if text := strings.TrimSpace(p.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, "\n")
}

// contact maps the 1st/2nd/3rd contact element positionally onto
// name/phone/email. Trailing fields default to empty when fewer exist. The
// positional assumption is fragile to markup changes, which is why it lives
// here and nowhere else.
func contact(doc *goquery.Document) jobs.Contact {
	var fields []string
	doc.Find(contactSelector).First().Find(contactItemSelector).Each(func(_ int, s *goquery.Selection) {
		fields = append(fields, strings.TrimSpace(s.Text()))
	})

	var c jobs.Contact
	if len(fields) >= 1 {
		c.Name = fields[0]
	}
	if len(fields) >= 2 {
		c.Phone = fields[1]
	}
	if len(fields) >= 3 {
		c.Email = fields[2]
	}
	return c
}
