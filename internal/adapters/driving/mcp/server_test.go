package mcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServer(t *testing.T) {
	t.Run("nil ports returns error", func(t *testing.T) {
		server, err := NewServer(nil)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingSearchService)
	})

	t.Run("nil search service returns error", func(t *testing.T) {
		ports := &Ports{OwnerID: testOwner}
		server, err := NewServer(ports)
		require.Error(t, err)
		assert.Nil(t, server)
		assert.ErrorIs(t, err, ErrMissingSearchService)
	})

	t.Run("valid ports creates server", func(t *testing.T) {
		ports := &Ports{
			Search:  &mockSearchService{},
			OwnerID: testOwner,
		}
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server)
	})

	t.Run("all ports creates server", func(t *testing.T) {
		ports := &Ports{
			Search:    &mockSearchService{},
			Document:  &mockDocumentService{},
			Ingestion: &mockIngestionService{},
			OwnerID:   testOwner,
		}
		server, err := NewServer(ports)
		require.NoError(t, err)
		assert.NotNil(t, server)
	})
}

func TestPorts_Validate(t *testing.T) {
	t.Run("nil search service returns error", func(t *testing.T) {
		ports := &Ports{OwnerID: testOwner}
		assert.ErrorIs(t, ports.Validate(), ErrMissingSearchService)
	})

	t.Run("missing owner returns error", func(t *testing.T) {
		ports := &Ports{Search: &mockSearchService{}}
		assert.ErrorIs(t, ports.Validate(), ErrMissingOwner)
	})

	t.Run("optional ports may be nil", func(t *testing.T) {
		ports := &Ports{Search: &mockSearchService{}, OwnerID: testOwner}
		assert.NoError(t, ports.Validate())
	})
}
