// Package extractor turns raw absolutebus.com page bodies into listing
// records. The crawl core consumes it through the crawl.Extractor
// interface and stays free of any site-specific selector knowledge.
package extractor

import (
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/buslistings/bus-scraper/internal/crawl"
	"github.com/buslistings/bus-scraper/internal/models"
)

var (
	priceRe       = regexp.MustCompile(`\$([\d,]+(?:\.\d+)?)`)
	grossWeightRe = regexp.MustCompile(`(?i)gross weight\s*([\d,]+)#?`)
	passengerRe   = regexp.MustCompile(`(?i)(\d+)\s*passenger`)
	engineMainRe  = regexp.MustCompile(`(?i)(DT\d{3} [^,]+\s*diesel)|(Duramax [^,]+\s*diesel)|(Ecoboost [^,]+\s*gas)`)
	engineFallRe  = regexp.MustCompile(`(?i)([\d.]+[a-zA-Z\d\s]+(?:diesel|gas|engine|V\d+)+)`)
	transMainRe   = regexp.MustCompile(`(?i)(Allison|10\s*speed|(?:\d+\s*(?:spd|speed))\s*(?:ovrdrv|overdrive)?\s*(?:auto|automatic)?)`)
	transFallRe   = regexp.MustCompile(`(?i)(\d+\s*spd|speed|automatic|trans|ovrdrv|overdrive)`)
	airCondRe     = regexp.MustCompile(`(?i)A/C|\bAC\b|Air conditioning|BTU`)
)

// AbsoluteBus extracts listings from absolutebus.com pages. The listings
// index holds one <table> per bus with the title and detail link; each
// detail page carries images, a free-text description, the price heading
// and a spec table.
type AbsoluteBus struct {
	base *url.URL
}

func New(baseURL string) (*AbsoluteBus, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	return &AbsoluteBus{base: base}, nil
}

func (e *AbsoluteBus) Extract(pageURL, pageBody string, kind crawl.PageKind) (*crawl.ExtractResult, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageBody))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	switch kind {
	case crawl.KindListing:
		return e.extractListing(doc)
	case crawl.KindDetail:
		return e.extractDetail(pageURL, doc)
	default:
		return nil, fmt.Errorf("unknown page kind %v", kind)
	}
}

// extractListing finds the detail page link of every listing table. The
// listings index yields no records itself; all fields live on the detail
// page.
func (e *AbsoluteBus) extractListing(doc *goquery.Document) (*crawl.ExtractResult, error) {
	result := &crawl.ExtractResult{}

	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		href, ok := table.Find("td:nth-child(1) a").First().Attr("href")
		if !ok {
			return
		}
		resolved := e.resolve(strings.TrimSpace(href))
		if resolved == "" {
			return
		}
		result.DetailURLs = append(result.DetailURLs, resolved)
	})

	if len(result.DetailURLs) == 0 {
		return nil, fmt.Errorf("listing page contains no detail links")
	}
	return result, nil
}

func (e *AbsoluteBus) extractDetail(pageURL string, doc *goquery.Document) (*crawl.ExtractResult, error) {
	record := models.ListingRecord{SourceURL: pageURL}

	record.Title = strings.TrimSpace(doc.Find("h2").First().Text())
	if record.Title == "" {
		record.Title = strings.TrimSpace(doc.Find("title").First().Text())
	}
	if record.Title == "" {
		return nil, fmt.Errorf("detail page has no title")
	}

	priceText := strings.TrimSpace(doc.Find("h3").First().Text())
	record.Price = extractPrice(priceText)
	record.Sold = strings.Contains(strings.ToLower(priceText), "sold") ||
		strings.Contains(strings.ToLower(doc.Find("#bodytext").Text()), "sold out")

	record.Images = e.extractImages(doc)
	record.Description = extractDescription(doc)

	e.extractSpecs(doc, &record)

	return &crawl.ExtractResult{Records: []models.ListingRecord{record}}, nil
}

// extractImages keeps the page order: main floor shots first, thumbnails
// after, duplicates removed.
func (e *AbsoluteBus) extractImages(doc *goquery.Document) []string {
	var images []string
	seen := make(map[string]struct{})

	collect := func(_ int, img *goquery.Selection) {
		src, ok := img.Attr("src")
		if !ok {
			return
		}
		resolved := e.resolve(strings.TrimSpace(src))
		if resolved == "" {
			return
		}
		if _, dup := seen[resolved]; dup {
			return
		}
		seen[resolved] = struct{}{}
		images = append(images, resolved)
	}

	doc.Find("#bodytext > img, p.style5 > img, p.style4 > img").Each(collect)
	doc.Find(".thumbnails a img").Each(collect)

	return images
}

func extractDescription(doc *goquery.Document) string {
	var parts []string
	doc.Find("#bodytext p:not([class])").Each(func(_ int, p *goquery.Selection) {
		text := strings.TrimSpace(p.Text())
		if text != "" {
			parts = append(parts, text)
		}
	})
	return strings.Join(parts, " ")
}

// extractSpecs walks the spec table rows and matches each against the known
// keyword patterns, first match wins per field.
func (e *AbsoluteBus) extractSpecs(doc *goquery.Document, record *models.ListingRecord) {
	doc.Find("table.posttable tr").Each(func(_ int, row *goquery.Selection) {
		text := strings.TrimSpace(row.Find("td").Text())
		if text == "" {
			return
		}
		lower := strings.ToLower(text)

		if airCondRe.MatchString(text) {
			record.AirConditioning = true
		}

		if m := passengerRe.FindStringSubmatch(text); m != nil && record.PassengerCapacity == 0 {
			if n, err := strconv.Atoi(m[1]); err == nil {
				record.PassengerCapacity = n
			}
		}

		if idx := strings.Index(lower, "miles"); idx >= 0 && record.Mileage == "" {
			record.Mileage = strings.TrimSpace(text[:idx])
		}

		if m := grossWeightRe.FindStringSubmatch(text); m != nil && record.GrossWeight == "" {
			record.GrossWeight = strings.ReplaceAll(m[1], ",", "")
		}

		if record.Engine == "" {
			record.Engine = extractEngine(text)
		}
		if record.Transmission == "" {
			record.Transmission = extractTransmission(text)
		}

		if strings.Contains(lower, "wheelchair") {
			record.WheelchairAccessible = true
		}

		if strings.Contains(lower, "luggage") && record.LuggageCapacity == "" {
			record.LuggageCapacity = text
		}
	})
}

// extractPrice returns the digits of the first dollar amount found,
// commas and cents stripped, or "" when the text has no price.
func extractPrice(text string) string {
	m := priceRe.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	digits := strings.ReplaceAll(m[1], ",", "")
	if dot := strings.Index(digits, "."); dot >= 0 {
		digits = digits[:dot]
	}
	return digits
}

// extractEngine prioritizes known school bus engines before the generic
// displacement/fuel fallback.
func extractEngine(text string) string {
	if m := engineMainRe.FindString(text); m != "" {
		return strings.TrimSpace(m)
	}
	if m := engineFallRe.FindString(text); m != "" {
		return strings.TrimSpace(m)
	}
	return ""
}

func extractTransmission(text string) string {
	if m := transMainRe.FindString(text); m != "" {
		return strings.TrimSpace(m)
	}
	if m := transFallRe.FindString(text); m != "" {
		return strings.TrimSpace(m)
	}
	return ""
}

func (e *AbsoluteBus) resolve(ref string) string {
	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	return e.base.ResolveReference(parsed).String()
}
