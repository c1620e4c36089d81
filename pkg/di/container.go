// Package di provides dependency injection container
package di

import (
	"github.com/ssargent/bencodec/pkg/api"     //nolint:depguard
	"github.com/ssargent/bencodec/pkg/storage" //nolint:depguard
)

// StoreFactory opens document stores
type StoreFactory interface {
	// OpenStore opens (creating if needed) the document store in dataDir
	OpenStore(dataDir string, opts ...storage.Option) (*storage.DocumentStore, error)
}

// DefaultStoreFactory opens pebble-backed document stores
type DefaultStoreFactory struct{}

// NewStoreFactory creates a new store factory
func NewStoreFactory() StoreFactory {
	return &DefaultStoreFactory{}
}

// OpenStore opens the document store in dataDir
func (f *DefaultStoreFactory) OpenStore(dataDir string, opts ...storage.Option) (*storage.DocumentStore, error) {
	return storage.NewDocumentStore(dataDir, opts...)
}

// Container holds all the dependencies for the application
type Container struct {
	storeFactory  StoreFactory
	serverFactory api.ServerFactory
}

// NewContainer creates a new dependency injection container
func NewContainer() *Container {
	return &Container{
		storeFactory:  NewStoreFactory(),
		serverFactory: api.NewServerFactory(),
	}
}

// GetStoreFactory returns the store factory
func (c *Container) GetStoreFactory() StoreFactory {
	return c.storeFactory
}

// GetServerFactory returns the server factory
func (c *Container) GetServerFactory() api.ServerFactory {
	return c.serverFactory
}

// SetStoreFactory allows overriding the store factory (for testing)
func (c *Container) SetStoreFactory(factory StoreFactory) {
	c.storeFactory = factory
}

// SetServerFactory allows overriding the server factory (for testing)
func (c *Container) SetServerFactory(factory api.ServerFactory) {
	c.serverFactory = factory
}
