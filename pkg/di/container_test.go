package di

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ssargent/bencodec/pkg/api"
	"github.com/ssargent/bencodec/pkg/bencode"
)

type recordingStarter struct {
	config api.ServerConfig
}

func (s *recordingStarter) StartServer(_ context.Context, _ api.IDocumentStore, config api.ServerConfig, _ zerolog.Logger) error {
	s.config = config
	return nil
}

type recordingFactory struct {
	starter *recordingStarter
}

func (f *recordingFactory) CreateServerStarter() api.ServerStarter {
	return f.starter
}

func TestNewContainer(t *testing.T) {
	c := NewContainer()
	assert.IsType(t, &DefaultStoreFactory{}, c.GetStoreFactory())
	assert.IsType(t, &api.DefaultServerFactory{}, c.GetServerFactory())
}

func TestDefaultStoreFactory(t *testing.T) {
	store, err := NewContainer().GetStoreFactory().OpenStore(t.TempDir())
	require.NoError(t, err)
	defer store.Close()

	id, err := store.Create(bencode.NewInteger(1))
	require.NoError(t, err)
	v, err := store.Read(id)
	require.NoError(t, err)
	assert.True(t, bencode.Equal(bencode.NewInteger(1), v))
}

func TestOverrideServerFactory(t *testing.T) {
	c := NewContainer()
	starter := &recordingStarter{}
	c.SetServerFactory(&recordingFactory{starter: starter})

	err := c.GetServerFactory().CreateServerStarter().StartServer(
		context.Background(), nil, api.ServerConfig{Port: 9300}, zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, 9300, starter.config.Port)
}
