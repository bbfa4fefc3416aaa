package notify

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderConnectBody(t *testing.T) {
	body, err := renderConnectBody("acme", "slack", "organization")
	require.NoError(t, err)
	assert.Equal(t, "acme connected slack in scope organization.", body)
}

func TestRenderErrorBody(t *testing.T) {
	body, err := renderErrorBody("acme", "slack", "organization", errors.New("token expired"))
	require.NoError(t, err)
	assert.Equal(t, "slack failed for acme (organization): token expired", body)
}

func TestNew_BuildsNotifierWithoutSending(t *testing.T) {
	n := New("mg.example.com", "key-123", "bot@example.com", []string{"ops@example.com"})
	assert.NotNil(t, n)
	assert.Equal(t, "bot@example.com", n.from)
	assert.Equal(t, []string{"ops@example.com"}, n.to)
}
