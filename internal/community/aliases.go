package community

import (
	"context"
	"math/rand/v2"
	"strings"

	"github.com/mannmitra/backend/internal/kvstore"
)

const (
	fallbackAliasPrefix   = "Anon-"
	fallbackTokenLength   = 4
	fallbackTokenAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	fallbackAttempts      = 16
)

// DefaultNicknamePool is the fixed set of aliases handed out before falling
// back to generated names.
var DefaultNicknamePool = []string{
	"Shinchan", "Doraemon", "Nobita", "Shizuka", "Pikachu", "Totoro", "Chhota Bheem",
	"Motu", "Patlu", "Goku", "Naruto", "Luffy", "Baymax", "Pooh", "Tweety", "Scooby",
	"Jerry", "Tom", "Donald", "Goofy",
}

// Random is the source of randomness for alias selection.
type Random interface {
	IntN(n int) int
}

type globalRandom struct{}

func (globalRandom) IntN(n int) int {
	return rand.IntN(n)
}

// AliasRegistry assigns every raw author identifier a stable pseudonym.
type AliasRegistry struct {
	repo   kvstore.Repository[map[string]string]
	pool   []string
	random Random
}

// NewAliasRegistry builds a registry over the alias mapping repository.
// A nil random uses math/rand/v2; an empty pool uses DefaultNicknamePool.
func NewAliasRegistry(repo kvstore.Repository[map[string]string], random Random, pool []string) *AliasRegistry {
	if random == nil {
		random = globalRandom{}
	}
	if len(pool) == 0 {
		pool = DefaultNicknamePool
	}
	return &AliasRegistry{
		repo:   repo,
		pool:   append([]string(nil), pool...),
		random: random,
	}
}

// AliasFor returns the alias of rawID, assigning and persisting one on first
// use. Pool names are drawn without replacement; once the pool is exhausted
// the alias is "Anon-" plus a random token that no other identifier holds.
func (r *AliasRegistry) AliasFor(ctx context.Context, rawID string) string {
	aliases := r.repo.Load(ctx)
	if alias, ok := aliases[rawID]; ok && alias != "" {
		return alias
	}

	used := make(map[string]struct{}, len(aliases))
	for _, alias := range aliases {
		used[alias] = struct{}{}
	}

	available := make([]string, 0, len(r.pool))
	for _, name := range r.pool {
		if _, taken := used[name]; !taken {
			available = append(available, name)
		}
	}

	var alias string
	if len(available) > 0 {
		alias = available[r.random.IntN(len(available))]
	} else {
		alias = r.fallbackAlias(used)
	}

	next := make(map[string]string, len(aliases)+1)
	for key, value := range aliases {
		next[key] = value
	}
	next[rawID] = alias
	r.repo.Save(ctx, next)
	return alias
}

func (r *AliasRegistry) fallbackAlias(used map[string]struct{}) string {
	length := fallbackTokenLength
	for {
		for attempt := 0; attempt < fallbackAttempts; attempt++ {
			candidate := fallbackAliasPrefix + r.token(length)
			if _, taken := used[candidate]; !taken {
				return candidate
			}
		}
		length++
	}
}

func (r *AliasRegistry) token(length int) string {
	var builder strings.Builder
	builder.Grow(length)
	for i := 0; i < length; i++ {
		builder.WriteByte(fallbackTokenAlphabet[r.random.IntN(len(fallbackTokenAlphabet))])
	}
	return builder.String()
}
