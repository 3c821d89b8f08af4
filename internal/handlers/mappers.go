package handlers

import (
	"encoding/json"

	v1 "github.com/shopdex/shop-collector/api/v1"
	"github.com/shopdex/shop-collector/internal/store/model"
)

func runToApi(run *model.Run) v1.Run {
	return v1.Run{
		Id:           run.ID.String(),
		Source:       run.Source,
		Status:       run.Status,
		DelaySeconds: run.DelaySeconds,
		Progress: v1.Progress{
			Total:        run.TotalKeywords,
			Completed:    run.CompletedKeywords,
			Failed:       run.FailedKeywords,
			Skipped:      run.SkippedKeywords,
			CurrentIndex: run.CurrentIndex,
			Percentage:   run.Percentage(),
		},
		CreatedAt:  run.CreatedAt,
		StartedAt:  run.StartedAt,
		FinishedAt: run.FinishedAt,
	}
}

func runListToApi(runs model.RunList) v1.RunList {
	out := make(v1.RunList, len(runs))
	for i := range runs {
		out[i] = runToApi(&runs[i])
	}
	return out
}

func keywordEntryToApi(entry *model.KeywordEntry) v1.KeywordEntry {
	return v1.KeywordEntry{
		Keyword:         entry.Keyword,
		Position:        entry.Position,
		Status:          entry.Status,
		ListingsSeen:    entry.ListingsSeen,
		ListingsNew:     entry.ListingsNew,
		ListingsUpdated: entry.ListingsUpdated,
		ErrorKind:       entry.ErrorKind,
		ErrorMessage:    entry.ErrorMessage,
		StartedAt:       entry.StartedAt,
		FinishedAt:      entry.FinishedAt,
	}
}

func keywordEntryListToApi(entries model.KeywordEntryList) v1.KeywordEntryList {
	out := make(v1.KeywordEntryList, len(entries))
	for i := range entries {
		out[i] = keywordEntryToApi(&entries[i])
	}
	return out
}

func listingToApi(listing *model.Listing) v1.Listing {
	var tags []string
	if len(listing.Tags) > 0 {
		_ = json.Unmarshal(listing.Tags, &tags)
	}
	return v1.Listing{
		ProductId:    listing.ProductID,
		Title:        listing.Title,
		Link:         listing.Link,
		Image:        listing.Image,
		LowPrice:     listing.LowPrice,
		HighPrice:    listing.HighPrice,
		MallName:     listing.MallName,
		Maker:        listing.Maker,
		Brand:        listing.Brand,
		Category1:    listing.Category1,
		Category2:    listing.Category2,
		Category3:    listing.Category3,
		Category4:    listing.Category4,
		ProductGroup: listing.ProductGroup,
		PriceCompare: listing.PriceCompare,
		Used:         listing.Used,
		Keyword:      listing.SearchKeyword,
		Rank:         listing.Rank,
		Tags:         tags,
		DiscountRate: listing.DiscountRate,
		PriceRange:   listing.PriceRange,
		CreatedAt:    listing.CreatedAt,
		UpdatedAt:    listing.UpdatedAt,
	}
}

func listingListToApi(listings model.ListingList) v1.ListingList {
	out := make(v1.ListingList, len(listings))
	for i := range listings {
		out[i] = listingToApi(&listings[i])
	}
	return out
}

func historyListToApi(entries model.CollectionHistoryList) v1.HistoryList {
	out := make(v1.HistoryList, len(entries))
	for i, h := range entries {
		out[i] = v1.HistoryEntry{
			Keyword:         h.Keyword,
			ListingsSeen:    h.ListingsSeen,
			ListingsNew:     h.ListingsNew,
			ListingsUpdated: h.ListingsUpdated,
			CollectedAt:     h.CollectedAt,
		}
	}
	return out
}
