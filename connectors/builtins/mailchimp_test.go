package builtins

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignitergo/connectors/connectors"
)

func TestMailchimp_DefinitionShape(t *testing.T) {
	def := Mailchimp("client-id", "client-secret")
	assert.Equal(t, "mailchimp", def.Key)
	require.NotNil(t, def.OAuth)
	assert.NotNil(t, def.OAuth.ParseUserInfo)

	action, ok := def.Actions["addSubscriber"]
	require.True(t, ok)
	assert.NoError(t, action.InputSchema.Validate(map[string]any{"listId": "abc", "email": "a@b.com"}))
	assert.Error(t, action.InputSchema.Validate(map[string]any{"listId": "abc"}))
}

func TestParseMailchimpMetadata(t *testing.T) {
	info, err := parseMailchimpMetadata([]byte(`{"dc":"us19","login":{"login_id":"123456"}}`))
	require.NoError(t, err)
	assert.Equal(t, "us19", info.Name)
	assert.Equal(t, "123456", info.ID)
}

func TestAddSubscriber_RequiresConnectedAccount(t *testing.T) {
	_, err := addSubscriber(context.Background(), connectors.ActionCall{
		Input: map[string]any{"listId": "abc", "email": "a@b.com"},
	})
	assert.Error(t, err)
}
