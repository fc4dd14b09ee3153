package llmadapter

import (
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/soochol/notegen/internal/schema"
)

// Validator checks value against a compiled schema, returning hard errors
// and soft (word/sentence-count) errors together.
type Validator func(value any) []schema.ValidationError

// ValidatorCache compiles a schema.Node into a Validator once per key and
// reuses it across calls. Concurrent first-callers for the same key block
// on a single compile via singleflight rather than racing each other — the
// compile itself is cheap here (the Node tree is already built), but the
// cache exists so a long-running process never recompiles the same AIS
// validator per note generation.
type ValidatorCache struct {
	group singleflight.Group

	mu       sync.RWMutex
	compiled map[string]Validator
}

// NewValidatorCache returns an empty cache ready to use.
func NewValidatorCache() *ValidatorCache {
	return &ValidatorCache{compiled: map[string]Validator{}}
}

// Get returns the Validator for key, compiling node under it if this is
// the first call (or the first concurrent call) for that key.
func (c *ValidatorCache) Get(key string, node *schema.Node) Validator {
	c.mu.RLock()
	v, ok := c.compiled[key]
	c.mu.RUnlock()
	if ok {
		return v
	}

	result, _, _ := c.group.Do(key, func() (any, error) {
		c.mu.RLock()
		v, ok := c.compiled[key]
		c.mu.RUnlock()
		if ok {
			return v, nil
		}

		validator := Validator(func(value any) []schema.ValidationError {
			return schema.Validate(node, value)
		})

		c.mu.Lock()
		c.compiled[key] = validator
		c.mu.Unlock()
		return validator, nil
	})

	return result.(Validator)
}
