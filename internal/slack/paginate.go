package slack

import "context"

// pageFunc fetches the page at cursor ("" for the first page) and returns
// the cursor of the next page, or "" when the listing is exhausted.
type pageFunc func(ctx context.Context, cursor string) (next string, err error)

// walkPages follows continuation cursors until the server stops returning
// one or maxPages pages have been fetched. maxPages <= 0 means no limit.
// Returns the number of pages fetched.
func walkPages(ctx context.Context, maxPages int, fetch pageFunc) (int, error) {
	cursor := ""
	pages := 0
	for {
		next, err := fetch(ctx, cursor)
		if err != nil {
			return pages, err
		}
		pages++
		if next == "" || (maxPages > 0 && pages >= maxPages) {
			return pages, nil
		}
		cursor = next
	}
}
