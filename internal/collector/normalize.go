package collector

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopdex/shop-collector/internal/store/model"
)

const maxTags = 20

var htmlTagPattern = regexp.MustCompile(`<.*?>`)

// NormalizeKeyword produces the canonical form used for dedup history
// lookups: trimmed, inner whitespace collapsed, lower-cased.
func NormalizeKeyword(keyword string) string {
	return strings.ToLower(strings.Join(strings.Fields(keyword), " "))
}

// stripHTMLTags removes the markup the search API injects into titles
// to highlight matched terms.
func stripHTMLTags(text string) string {
	if text == "" {
		return ""
	}
	return htmlTagPattern.ReplaceAllString(text, "")
}

// extractTags builds the searchable tag set from title words, brand and
// maker. Single-character words are skipped, the set is bounded.
func extractTags(title, brand, maker string) []string {
	seen := make(map[string]struct{})
	tags := make([]string, 0, maxTags)

	add := func(tag string) {
		tag = strings.TrimSpace(tag)
		if len([]rune(tag)) < 2 {
			return
		}
		if _, dup := seen[tag]; dup {
			return
		}
		if len(tags) == maxTags {
			return
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}

	for _, word := range strings.Fields(title) {
		add(word)
	}
	add(brand)
	add(maker)

	return tags
}

// classifyProductType maps the external productType code (1-12) onto a
// product group and a price-compare match class.
//
//	1-3   general      4-6   used
//	7-9   discontinued 10-12 presale
//
// Within each range: code%3==1 catalog entry, ==2 non-matched, ==0 matched.
func classifyProductType(code int) (group string, priceCompare string) {
	if code < 1 || code > 12 {
		return "", ""
	}

	switch {
	case code <= 3:
		group = model.ProductGroupGeneral
	case code <= 6:
		group = model.ProductGroupUsed
	case code <= 9:
		group = model.ProductGroupDiscontinued
	default:
		group = model.ProductGroupPresale
	}

	switch code % 3 {
	case 1:
		priceCompare = model.PriceCompareCatalog
	case 2:
		priceCompare = model.PriceCompareNonMatched
	default:
		priceCompare = model.PriceCompareMatched
	}

	return group, priceCompare
}

// toListing converts a raw search item into a listing row. rank is the
// absolute position of the item within the keyword's search results.
func toListing(item SearchItem, keyword string, rank int, now time.Time) model.Listing {
	lowPrice, _ := strconv.ParseInt(strings.TrimSpace(item.LPrice), 10, 64)

	var highPrice *int64
	if hp, err := strconv.ParseInt(strings.TrimSpace(item.HPrice), 10, 64); err == nil && hp > 0 {
		highPrice = &hp
	}

	var discountRate *float64
	var priceRange *int64
	if highPrice != nil && lowPrice > 0 {
		rate := float64(*highPrice-lowPrice) / float64(*highPrice) * 100
		rate = float64(int(rate*100)) / 100
		discountRate = &rate
		r := *highPrice - lowPrice
		priceRange = &r
	}

	productType, _ := strconv.Atoi(strings.TrimSpace(item.ProductType))
	group, priceCompare := classifyProductType(productType)

	title := stripHTMLTags(item.Title)
	tags, _ := json.Marshal(extractTags(title, item.Brand, item.Maker))

	return model.Listing{
		ProductID: item.ProductID,
		Title:     title,
		Link:      item.Link,
		Image:     item.Image,
		LowPrice:  lowPrice,
		HighPrice: highPrice,
		MallName:  item.MallName,
		Maker:     item.Maker,
		Brand:     item.Brand,

		Category1: strings.TrimSpace(item.Category1),
		Category2: strings.TrimSpace(item.Category2),
		Category3: strings.TrimSpace(item.Category3),
		Category4: strings.TrimSpace(item.Category4),

		ProductType:  productType,
		ProductGroup: group,
		PriceCompare: priceCompare,
		Used:         group == model.ProductGroupUsed,
		Discontinued: group == model.ProductGroupDiscontinued,
		Presale:      group == model.ProductGroupPresale,

		SearchKeyword: keyword,
		Rank:          rank,

		Tags:         tags,
		DiscountRate: discountRate,
		PriceRange:   priceRange,

		CreatedAt: now,
		UpdatedAt: now,
	}
}
