package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentLink(t *testing.T) {
	assert.Equal(t, "https://ipfs.io/ipfs/QmA", ContentLink("", "QmA"))
	assert.Equal(t, "https://gw.example/ipfs/QmA", ContentLink("https://gw.example/ipfs/", "QmA"))
}
