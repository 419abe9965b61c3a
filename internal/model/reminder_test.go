package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusToggle(t *testing.T) {
	assert.Equal(t, StatusCompleted, StatusScheduled.Toggle())
	assert.Equal(t, StatusScheduled, StatusCompleted.Toggle())
	// Cancelled is terminal server-side; the list pane still offers the flip.
	assert.Equal(t, StatusCompleted, StatusCancelled.Toggle())
}
