package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"fieldsurvey/internal/questions"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL + "/api/v1/")
}

func TestSignInStoresToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/sign-in":
			var body map[string]string
			assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "ana@example.org", body["email"])
			_, _ = io.WriteString(w, `{"access_token":"acc","refresh_token":"ref","token_type":"Bearer","expires_in":900}`)
		case "/api/v1/users/me":
			assert.Equal(t, "Bearer acc", r.Header.Get("Authorization"))
			_, _ = io.WriteString(w, `{"id":"u1","email":"ana@example.org"}`)
		default:
			http.NotFound(w, r)
		}
	})

	tokens, err := c.SignIn(context.Background(), "ana@example.org", "password123")
	require.NoError(t, err)
	assert.Equal(t, "ref", tokens.RefreshToken)
	assert.Equal(t, "acc", c.Token())

	me, err := c.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "u1", me.ID)
}

func TestRequestBodiesAreSnakeCaseExceptAnswers(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = io.WriteString(w, `{"id":"d1","time_label":"3:04 PM","answers":{"group_size":"2"}}`)
	})

	dp, err := c.CreateDataPoint(context.Background(), "am", NewDataPoint{
		Latitude:  1,
		Longitude: 2,
		TimeLabel: "3:04 PM",
		Answers:   questions.Answers{"groupSize": questions.Single("2")},
	})
	require.NoError(t, err)
	assert.Equal(t, "3:04 PM", dp.TimeLabel)

	assert.Contains(t, got, "time_label")
	assert.NotContains(t, got, "timeLabel")
	answers := got["answers"].(map[string]any)
	assert.Contains(t, answers, "groupSize", "answer keys are left alone")
}

func TestResetPasswordSendsSnakeCase(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = io.WriteString(w, `{"message":"ok"}`)
	})

	require.NoError(t, c.ResetPassword(context.Background(), "tok", "new-password"))
	assert.Equal(t, "new-password", got["new_password"])
}

func TestErrorMapping(t *testing.T) {
	status := http.StatusUnauthorized
	body := ""
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	})
	ctx := context.Background()

	_, err := c.ListStudies(ctx)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "unauthorized", err.Error())

	status, body = http.StatusNotFound, `{"error":"survey not found"}`
	_, err = c.ListDataPoints(ctx, "nope")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "survey not found", apiErr.Message)
	assert.True(t, IsNotFound(err))

	status, body = http.StatusInternalServerError, `<html>oops</html>`
	err = c.DeleteDataPoint(ctx, "am", "d1")
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "could not delete data point", apiErr.Message)
	assert.False(t, IsNotFound(err))
}

func TestDeleteAcceptsNoContent(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, "/api/v1/surveys/am/data-points/d1", r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	})
	require.NoError(t, c.DeleteDataPoint(context.Background(), "am", "d1"))
}

func TestSignOutClearsToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"message":"signed out"}`)
	})
	c.SetToken("acc")
	require.NoError(t, c.SignOut(context.Background(), "ref"))
	assert.Empty(t, c.Token())
}
