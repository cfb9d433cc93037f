// Package storage provides a small durable key-value store for client state,
// modelled on browser local storage: one value per named key, read whole and
// overwritten whole.
package storage

// Store persists opaque values under string keys.
//
// Remove must succeed when the key does not exist.
type Store interface {
	Get(key string) (value []byte, ok bool, err error)
	Set(key string, value []byte) error
	Remove(key string) error
	Close() error
}
