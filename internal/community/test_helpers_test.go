package community

import (
	"time"

	"github.com/mannmitra/backend/internal/kvstore"
)

type fixedRandom struct {
	values []int
	index  int
}

func (r *fixedRandom) IntN(n int) int {
	if len(r.values) == 0 {
		return 0
	}
	value := r.values[r.index%len(r.values)]
	r.index++
	return value % n
}

type manualClock struct {
	now time.Time
}

func (c *manualClock) Now() time.Time {
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
}

func newManualClock() *manualClock {
	return &manualClock{now: time.UnixMilli(1700000000000).UTC()}
}

func newTestAdapter() *kvstore.Adapter {
	return kvstore.NewAdapter(kvstore.NewMemoryBackend(), nil)
}

func newAliasRepo(adapter *kvstore.Adapter) kvstore.Repository[map[string]string] {
	return kvstore.NewRepository(adapter, KeyAliases, func() map[string]string { return map[string]string{} })
}

func newPostRepo(adapter *kvstore.Adapter) kvstore.Repository[[]Post] {
	return kvstore.NewRepository[[]Post](adapter, KeyPosts, nil)
}

func kvstoreCommentRepo(adapter *kvstore.Adapter) kvstore.Repository[map[PostID][]Comment] {
	return kvstore.NewRepository(adapter, KeyComments, func() map[PostID][]Comment { return map[PostID][]Comment{} })
}

func newSavedRepo(adapter *kvstore.Adapter) kvstore.Repository[[]PostID] {
	return kvstore.NewRepository(adapter, KeySaved, func() []PostID { return []PostID{} })
}
