package store

import (
	"fmt"

	"gorm.io/gorm"
)

type SortOrder int

const (
	Unsorted SortOrder = iota
	SortByPriceAsc
	SortByPriceDesc
	SortByNewest
)

type BaseQuerier struct {
	QueryFn []func(tx *gorm.DB) *gorm.DB
}

type ListingQueryFilter BaseQuerier

func NewListingQueryFilter() *ListingQueryFilter {
	return &ListingQueryFilter{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (qf *ListingQueryFilter) ByText(text string) *ListingQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		pattern := fmt.Sprintf("%%%s%%", text)
		return tx.Where("title LIKE ? OR brand LIKE ? OR maker LIKE ?", pattern, pattern, pattern)
	})
	return qf
}

func (qf *ListingQueryFilter) ByKeyword(keyword string) *ListingQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("search_keyword = ?", keyword)
	})
	return qf
}

func (qf *ListingQueryFilter) ByCategory(category string) *ListingQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("category1 = ?", category)
	})
	return qf
}

func (qf *ListingQueryFilter) ByMall(mall string) *ListingQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("mall_name = ?", mall)
	})
	return qf
}

func (qf *ListingQueryFilter) ByPriceRange(minPrice, maxPrice int64) *ListingQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		if minPrice > 0 {
			tx = tx.Where("low_price >= ?", minPrice)
		}
		if maxPrice > 0 {
			tx = tx.Where("low_price <= ?", maxPrice)
		}
		return tx
	})
	return qf
}

func (qf *ListingQueryFilter) ExcludeUsed() *ListingQueryFilter {
	qf.QueryFn = append(qf.QueryFn, func(tx *gorm.DB) *gorm.DB {
		return tx.Where("used = ?", false)
	})
	return qf
}

type ListingQueryOptions BaseQuerier

func NewListingQueryOptions() *ListingQueryOptions {
	return &ListingQueryOptions{QueryFn: make([]func(tx *gorm.DB) *gorm.DB, 0)}
}

func (o *ListingQueryOptions) WithSortOrder(sort SortOrder) *ListingQueryOptions {
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		switch sort {
		case SortByPriceAsc:
			return tx.Order("low_price")
		case SortByPriceDesc:
			return tx.Order("low_price DESC")
		case SortByNewest:
			return tx.Order("created_at DESC")
		default:
			return tx
		}
	})
	return o
}

func (o *ListingQueryOptions) WithPagination(page, perPage int) *ListingQueryOptions {
	o.QueryFn = append(o.QueryFn, func(tx *gorm.DB) *gorm.DB {
		if perPage <= 0 {
			return tx
		}
		if page < 1 {
			page = 1
		}
		return tx.Offset((page - 1) * perPage).Limit(perPage)
	})
	return o
}
