// Package repository archives solved rating vectors.
package repository

// Option applies a configuration option to the memory store.
type Option func(*memoryStore)

// WithHistoryLimit sets how many archived vectors to keep per method.
func WithHistoryLimit(n int) Option {
	return func(s *memoryStore) {
		if n > 0 {
			s.historyLimit = n
		}
	}
}
