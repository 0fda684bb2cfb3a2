package unit_test

import (
	"testing"

	chord "github.com/zzsoszz/chord-grpc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetName(t *testing.T) {
	config := chord.Config{
		Name:     "foo",
		BindAddr: "localhost:0",
		AdvAddr:  "localhost:12340",
	}

	instance, err := chord.New(config)
	require.NoError(t, err)

	assert.Equal(t, "foo", instance.Self().Name)
}

func TestGetAddress(t *testing.T) {
	config := chord.Config{
		BindAddr: "localhost:0",
		AdvAddr:  "localhost:1234",
	}

	instance, err := chord.New(config)
	require.NoError(t, err)

	assert.Equal(t, "localhost:1234", instance.Self().Addr())
}

func TestNewRejectsMissingAddr(t *testing.T) {
	_, err := chord.New(chord.Config{})
	assert.Error(t, err)
}
