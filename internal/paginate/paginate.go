// Package paginate runs the sort, filter and limit arguments of a root field
// against storage and projects the fetched rows into a page.
package paginate

import (
	"context"
	"fmt"
	"time"

	"github.com/sirendb/sirendb/internal/eventbus"
	"github.com/sirendb/sirendb/internal/events"
	"github.com/sirendb/sirendb/internal/projection"
	"github.com/sirendb/sirendb/internal/schema"
	"github.com/sirendb/sirendb/internal/storage"
)

// ItemsField is the page field holding the projected rows.
const ItemsField = "items"

// PageInfo describes the position of a page.
type PageInfo struct {
	HasNext bool
	// LastCursor is the identifier of the last item, nil for an empty page.
	LastCursor *string
}

// Page is one window of a paginated root field.
type Page struct {
	Items      []*projection.Object
	Count      int
	TotalCount int
	PageInfo   PageInfo
}

// Validate checks the pagination bounds of req.
func (req Request) Validate() error {
	if req.First != nil && *req.First < 0 {
		return invalid("first may not be less than 0")
	}
	if req.Last != nil && *req.Last < 0 {
		return invalid("last may not be less than 0")
	}
	if req.First != nil && req.Last != nil {
		return invalid("first and last may not be specified at the same time.")
	}
	if req.Before != nil && req.After != nil {
		return invalid("before and after may not be specified at the same time.")
	}
	return nil
}

// Paginate filters, sorts, counts and limits q, then projects every fetched
// row of type td through res under the items field.
func Paginate(ctx context.Context, q storage.Query, req Request, td *schema.TypeDescriptor, res *projection.Resolution) (page *Page, err error) {
	start := time.Now()
	defer func() {
		fin := events.PageFinish{Type: td.Name, Table: q.Table(), Err: err, Duration: time.Since(start)}
		if page != nil {
			fin.Count, fin.TotalCount = page.Count, page.TotalCount
		}
		eventbus.Publish(ctx, fin)
	}()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	for _, c := range req.Filter {
		p, err := c.predicate()
		if err != nil {
			return nil, err
		}
		q = q.Where(p)
	}

	key := td.Sort.DefaultKey()
	if req.Sort != "" {
		var ok bool
		if key, ok = td.Sort.Lookup(req.Sort); !ok {
			return nil, invalid("unknown sort value")
		}
	}
	q = q.OrderBy(key.Column, key.Direction)
	if pk := td.Sort.DefaultKey(); pk.Column != key.Column {
		q = q.OrderBy(pk.Column, pk.Direction)
	}

	total, err := q.Count(ctx)
	if err != nil {
		return nil, err
	}

	// first and last both cap the page from the start of the ordering.
	limit := DefaultFirst
	switch {
	case req.First != nil:
		limit = *req.First
	case req.Last != nil:
		limit = *req.Last
	}

	rows, err := q.Fetch(ctx, limit, 0)
	if err != nil {
		return nil, err
	}

	branch := res.Branch(ItemsField)
	page = &Page{Items: make([]*projection.Object, 0, len(rows)), TotalCount: total}
	for _, row := range rows {
		obj, err := res.Project(ctx, branch, td.Name, row)
		if err != nil {
			return nil, err
		}
		page.Items = append(page.Items, obj)
	}
	page.Count = len(page.Items)
	page.PageInfo.HasNext = page.Count > 0 && total > page.Count
	if page.Count > 0 {
		cursor := fmt.Sprint(page.Items[page.Count-1].Key.ID)
		page.PageInfo.LastCursor = &cursor
	}
	return page, nil
}
