package dao

import (
	"context"

	"github.com/teranos/composr/driver"
)

// DefaultPageSize is used when a DAO is created with a non-positive page size.
const DefaultPageSize = 20

// PageFunc fetches one page of records.
type PageFunc func(ctx context.Context, page, pageSize int) ([]driver.Record, error)

// DrainPages requests page 0, 1, 2, ... until a page comes back shorter than
// pageSize, and returns all records in the order they were received.
func DrainPages(ctx context.Context, pageSize int, fetch PageFunc) ([]driver.Record, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	var all []driver.Record
	for page := 0; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		records, err := fetch(ctx, page, pageSize)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
		if len(records) < pageSize {
			return all, nil
		}
	}
}
