package pdfinfo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageCountRejectsEmpty(t *testing.T) {
	_, err := PageCount(nil)
	require.ErrorIs(t, err, ErrEmpty)
}

func TestPageCountRejectsGarbage(t *testing.T) {
	n, err := PageCount([]byte("definitely not a pdf"))
	require.Error(t, err)
	assert.Zero(t, n)
}
