package llm

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
)

// maxCachedClients bounds how many credentials keep a live SDK client
const maxCachedClients = 4

// CredentialCache is implemented by providers that keep per-credential clients
type CredentialCache interface {
	Forget(credential string)
}

// clientCache holds SDK clients for the most recently used credentials.
// The least recently used entry is evicted once the cache is full.
type clientCache[T any] struct {
	mu      sync.Mutex // serializes get-or-create
	clients *lru.Cache[string, T]
}

func newClientCache[T any](limit int) *clientCache[T] {
	clients, err := lru.New[string, T](limit)
	if err != nil {
		panic(err) // only for a non-positive limit
	}
	return &clientCache[T]{clients: clients}
}

// get returns the cached client for credential, building one with create on a miss
func (c *clientCache[T]) get(credential string, create func() (T, error)) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients.Get(credential); ok {
		return client, nil
	}
	client, err := create()
	if err != nil {
		return client, err
	}
	c.clients.Add(credential, client)
	return client, nil
}

func (c *clientCache[T]) forget(credential string) {
	c.clients.Remove(credential)
}

func (c *clientCache[T]) len() int {
	return c.clients.Len()
}
