package slack

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/watchops/incident-console/pkg/config"
	"github.com/watchops/incident-console/pkg/models"
	"github.com/watchops/incident-console/pkg/services"
	"github.com/watchops/incident-console/pkg/state"
)

type stubAPI struct {
	authInfo AuthInfo
	authErr  error
	postErr  error

	postedToken   string
	postedChannel string
	postedText    string
}

func (a *stubAPI) AuthTest(_ context.Context, token string) (AuthInfo, error) {
	if a.authErr != nil {
		return AuthInfo{}, a.authErr
	}
	return a.authInfo, nil
}

func (a *stubAPI) PostMessage(_ context.Context, token, channel, text string) error {
	a.postedToken = token
	a.postedChannel = channel
	a.postedText = text
	return a.postErr
}

func testScenario() models.AlertScenario {
	return config.BuiltinScenarios()[0]
}

func TestTestRequiresToken(t *testing.T) {
	svc := NewService(state.NewStore(nil), &stubAPI{})

	_, err := svc.Test(context.Background(), "  ")
	assert.True(t, services.IsValidationError(err))
}

func TestTestReturnsWorkspaceInfo(t *testing.T) {
	api := &stubAPI{authInfo: AuthInfo{Team: "acme", User: "incident-bot"}}
	svc := NewService(state.NewStore(nil), api)

	result, err := svc.Test(context.Background(), "xoxb-token")
	require.NoError(t, err)
	assert.Equal(t, TestResult{Workspace: "acme", BotUser: "incident-bot"}, result)
}

func TestTestWrapsUpstreamFailure(t *testing.T) {
	api := &stubAPI{authErr: errors.New("invalid_auth")}
	svc := NewService(state.NewStore(nil), api)

	_, err := svc.Test(context.Background(), "xoxb-token")
	assert.True(t, services.IsUpstreamError(err))
}

func TestSaveRequiresToken(t *testing.T) {
	svc := NewService(state.NewStore(nil), &stubAPI{})

	_, err := svc.Save(state.ChatSettings{Channel: "#ops-incident"})
	assert.True(t, services.IsValidationError(err))
}

func TestSavePersistsSettings(t *testing.T) {
	store := state.NewStore(nil)
	svc := NewService(store, &stubAPI{})

	message, err := svc.Save(state.ChatSettings{Token: "xoxb-token", Channel: "#ops-incident", Workspace: "acme"})
	require.NoError(t, err)
	assert.Equal(t, "Chat settings saved (acme)", message)
	assert.Equal(t, "xoxb-token", store.Chat().Token)

	message, err = svc.Save(state.ChatSettings{Token: "xoxb-token", Channel: "#ops-incident"})
	require.NoError(t, err)
	assert.Equal(t, "Chat settings saved (workspace)", message)
}

func TestDispatchRequiresEnabledPreference(t *testing.T) {
	store := state.NewStore(nil)
	store.SetChat(state.ChatSettings{Token: "xoxb-token"}, "saved")
	store.SetChatPreference(false)
	svc := NewService(store, &stubAPI{})

	_, err := svc.Dispatch(context.Background(), testScenario(), "", "")
	require.True(t, services.IsValidationError(err))
	assert.Contains(t, err.Error(), "disabled")
}

func TestDispatchRequiresToken(t *testing.T) {
	svc := NewService(state.NewStore(nil), &stubAPI{})

	_, err := svc.Dispatch(context.Background(), testScenario(), "", "")
	require.True(t, services.IsValidationError(err))
	assert.Contains(t, err.Error(), "token")
}

func TestDispatchUsesChannelPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		saved    string
		override string
		expected string
	}{
		{name: "override wins", saved: "#saved", override: "#override", expected: "#override"},
		{name: "saved channel", saved: "#saved", override: "", expected: "#saved"},
		{name: "default fallback", saved: "", override: "", expected: DefaultChannel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := state.NewStore(nil)
			store.SetChat(state.ChatSettings{Token: "xoxb-token", Channel: tt.saved}, "saved")
			api := &stubAPI{}
			svc := NewService(store, api)

			result, err := svc.Dispatch(context.Background(), testScenario(), tt.override, "")
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result.Channel)
			assert.Equal(t, tt.expected, api.postedChannel)
		})
	}
}

func TestDispatchBuildsScenarioDigest(t *testing.T) {
	store := state.NewStore(nil)
	store.SetChat(state.ChatSettings{Token: "xoxb-token", Workspace: "acme"}, "saved")
	api := &stubAPI{}
	svc := NewService(store, api)

	scenario := testScenario()
	result, err := svc.Dispatch(context.Background(), scenario, "", "")
	require.NoError(t, err)

	assert.Equal(t, "acme", result.Workspace)
	assert.Contains(t, api.postedText, ":rotating_light: "+scenario.Title)
	assert.Contains(t, api.postedText, "Source: "+scenario.Source)
	assert.Contains(t, api.postedText, "1. "+scenario.Hypotheses[0])
	assert.Contains(t, api.postedText, "Recommended next step:\n"+scenario.Actions[0])

	snap := store.Snapshot()
	assert.Contains(t, snap.Feed[len(snap.Feed)-1], "Chat incident dispatched to "+DefaultChannel)
}

func TestDispatchPrefersReportBody(t *testing.T) {
	store := state.NewStore(nil)
	store.SetChat(state.ChatSettings{Token: "xoxb-token"}, "saved")
	api := &stubAPI{}
	svc := NewService(store, api)

	_, err := svc.Dispatch(context.Background(), testScenario(), "", "full report text")
	require.NoError(t, err)
	assert.Equal(t, "full report text", api.postedText)
}

func TestDispatchWrapsDeliveryFailure(t *testing.T) {
	store := state.NewStore(nil)
	store.SetChat(state.ChatSettings{Token: "xoxb-token"}, "saved")
	svc := NewService(store, &stubAPI{postErr: errors.New("channel_not_found")})

	_, err := svc.Dispatch(context.Background(), testScenario(), "", "")
	require.True(t, services.IsUpstreamError(err))
	assert.Contains(t, err.Error(), "Chat delivery failed")
}
