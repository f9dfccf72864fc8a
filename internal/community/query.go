package community

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Tab selects the base collection of the feed.
type Tab string

const (
	TabAll   Tab = "all"
	TabSaved Tab = "saved"
)

// SortMode selects the feed ordering.
type SortMode string

const (
	// SortTop orders by votes, newest first among equal votes.
	SortTop SortMode = "top"
	// SortNew orders by creation time only.
	SortNew SortMode = "new"
)

// DefaultPageSize is the number of posts revealed per page.
const DefaultPageSize = 6

var (
	// ErrInvalidTab indicates a tab other than all or saved.
	ErrInvalidTab = errors.New("community: invalid tab")
	// ErrInvalidSort indicates a sort mode other than top or new.
	ErrInvalidSort = errors.New("community: invalid sort mode")
)

// ParseTab parses a tab name; blank means all.
func ParseTab(raw string) (Tab, error) {
	switch Tab(strings.ToLower(strings.TrimSpace(raw))) {
	case "", TabAll:
		return TabAll, nil
	case TabSaved:
		return TabSaved, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTab, raw)
	}
}

// ParseSortMode parses a sort mode; blank means top.
func ParseSortMode(raw string) (SortMode, error) {
	switch SortMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", SortTop:
		return SortTop, nil
	case SortNew:
		return SortNew, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSort, raw)
	}
}

// Filter is the feed configuration. Treat it as a value: every modifier
// returns a copy, and every modifier except NextPage resets Page to 1.
type Filter struct {
	Tab      Tab
	Flairs   []Flair
	Search   string
	MineOnly bool
	Sort     SortMode
	Page     int
}

// DefaultFilter shows every post, top first, on the first page.
func DefaultFilter() Filter {
	return Filter{Tab: TabAll, Sort: SortTop, Page: 1}
}

func (f Filter) WithTab(tab Tab) Filter {
	next := f.clone()
	next.Tab = tab
	next.Page = 1
	return next
}

func (f Filter) WithSearch(search string) Filter {
	next := f.clone()
	next.Search = search
	next.Page = 1
	return next
}

func (f Filter) WithMineOnly(mineOnly bool) Filter {
	next := f.clone()
	next.MineOnly = mineOnly
	next.Page = 1
	return next
}

func (f Filter) WithSort(mode SortMode) Filter {
	next := f.clone()
	next.Sort = mode
	next.Page = 1
	return next
}

// ToggleFlair adds the flair to the active set or removes it if present.
func (f Filter) ToggleFlair(flair Flair) Filter {
	next := f.clone()
	if index := slices.Index(next.Flairs, flair); index >= 0 {
		next.Flairs = slices.Delete(next.Flairs, index, index+1)
	} else {
		next.Flairs = append(next.Flairs, flair)
	}
	next.Page = 1
	return next
}

// ClearFlairs empties the active flair set.
func (f Filter) ClearFlairs() Filter {
	next := f.clone()
	next.Flairs = nil
	next.Page = 1
	return next
}

// NextPage reveals one more page.
func (f Filter) NextPage() Filter {
	next := f.clone()
	next.Page = max(1, next.Page) + 1
	return next
}

func (f Filter) clone() Filter {
	next := f
	next.Flairs = slices.Clone(f.Flairs)
	return next
}

// View is the visible slice of the filtered feed.
type View struct {
	Posts    []Post
	Total    int
	Page     int
	PageSize int
	HasMore  bool
}

// Apply derives the visible feed. Restrictions run in a fixed order (tab,
// author, flair, search), then the result is sorted and the first
// Page*pageSize posts are exposed. Inputs are never modified.
func Apply(posts []Post, saved []PostID, actorID string, filter Filter, pageSize int) View {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	page := max(1, filter.Page)

	out := slices.Clone(posts)

	if filter.Tab == TabSaved {
		savedSet := make(map[PostID]struct{}, len(saved))
		for _, id := range saved {
			savedSet[id] = struct{}{}
		}
		out = slices.DeleteFunc(out, func(post Post) bool {
			_, ok := savedSet[post.ID]
			return !ok
		})
	}

	if filter.MineOnly {
		out = slices.DeleteFunc(out, func(post Post) bool {
			return post.Author != actorID
		})
	}

	if len(filter.Flairs) > 0 {
		out = slices.DeleteFunc(out, func(post Post) bool {
			return !slices.Contains(filter.Flairs, post.Flair)
		})
	}

	if query := strings.ToLower(strings.TrimSpace(filter.Search)); query != "" {
		out = slices.DeleteFunc(out, func(post Post) bool {
			return !strings.Contains(strings.ToLower(post.Title), query) &&
				!strings.Contains(strings.ToLower(post.Body), query)
		})
	}

	switch filter.Sort {
	case SortNew:
		slices.SortStableFunc(out, func(a, b Post) int {
			return cmp.Compare(b.CreatedAtMillis, a.CreatedAtMillis)
		})
	default:
		slices.SortStableFunc(out, func(a, b Post) int {
			if byVotes := cmp.Compare(b.Votes, a.Votes); byVotes != 0 {
				return byVotes
			}
			return cmp.Compare(b.CreatedAtMillis, a.CreatedAtMillis)
		})
	}

	total := len(out)
	visible := total
	if page <= total/pageSize {
		visible = page * pageSize
	}
	return View{
		Posts:    out[:visible:visible],
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		HasMore:  total > visible,
	}
}
