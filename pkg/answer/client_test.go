package answer_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-go-golems/compliance-chat/pkg/answer"
	"github.com/go-go-golems/compliance-chat/pkg/answer/stub"
	"github.com/stretchr/testify/require"
)

func TestNormalizeBaseURL(t *testing.T) {
	require.Equal(t, "http://api.example.com", answer.NormalizeBaseURL("http://api.example.com///"))
	require.Equal(t, "http://api.example.com/v1", answer.NormalizeBaseURL("  http://api.example.com/v1/ "))
	require.Equal(t, "", answer.NormalizeBaseURL("///"))
}

func TestNewClient_RejectsEmptyBase(t *testing.T) {
	_, err := answer.NewClient("  ")
	require.ErrorIs(t, err, answer.ErrNoBaseURL)

	_, err = answer.NewClient("http://x", answer.WithTimeout(-time.Second))
	require.Error(t, err)
}

func TestClient_PostsQueryAsJSON(t *testing.T) {
	var gotMethod, gotPath, gotContentType string
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotContentType = r.Header.Get("Content-Type")
		data, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(data, &gotBody)
		_, _ = w.Write([]byte(`{"answer":"42"}`))
	}))
	defer srv.Close()

	c, err := answer.NewClient(srv.URL + "//")
	require.NoError(t, err)
	require.Equal(t, srv.URL+"/query", c.Endpoint())

	reply, err := c.Ask(context.Background(), "  what is the answer?  ")
	require.NoError(t, err)
	require.Equal(t, "42", reply.Answer)
	require.False(t, reply.Empty())

	require.Equal(t, http.MethodPost, gotMethod)
	require.Equal(t, "/query", gotPath)
	require.Equal(t, "application/json", gotContentType)
	require.Equal(t, map[string]any{"query": "  what is the answer?  "}, gotBody)
}

func TestClient_MissingAnswerIsEmptyReply(t *testing.T) {
	s := stub.New()
	s.SetMode(stub.ModeEmptyAnswer, 0)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	c, err := answer.NewClient(srv.URL)
	require.NoError(t, err)

	reply, err := c.Ask(context.Background(), "anything")
	require.NoError(t, err)
	require.True(t, reply.Empty())
}

func TestClient_NonSuccessStatus(t *testing.T) {
	s := stub.New()
	s.SetMode(stub.ModeStatus, http.StatusBadGateway)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	c, err := answer.NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.Ask(context.Background(), "anything")
	require.Error(t, err)
	se, ok := answer.IsStatusError(err)
	require.True(t, ok)
	require.Equal(t, http.StatusBadGateway, se.StatusCode)
	require.Contains(t, se.Body, "stub failure")
}

func TestClient_MalformedBody(t *testing.T) {
	s := stub.New()
	s.SetMode(stub.ModeMalformed, 0)
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	c, err := answer.NewClient(srv.URL)
	require.NoError(t, err)

	_, err = c.Ask(context.Background(), "anything")
	require.Error(t, err)
	require.True(t, answer.IsDecodeError(err))
	_, isStatus := answer.IsStatusError(err)
	require.False(t, isStatus)
}

func TestClient_PayloadShapes(t *testing.T) {
	cases := []struct {
		name      string
		body      string
		wantEmpty bool
		wantErr   bool
	}{
		{name: "answer", body: `{"answer":"MiCA is an EU regulation."}`},
		{name: "missing field", body: `{}`, wantEmpty: true},
		{name: "null answer", body: `{"answer":null}`, wantEmpty: true},
		{name: "blank answer", body: `{"answer":"   "}`, wantEmpty: true},
		{name: "null body", body: `null`, wantEmpty: true},
		{name: "numeric answer", body: `{"answer":42}`, wantErr: true},
		{name: "object answer", body: `{"answer":{"text":"x"}}`, wantErr: true},
		{name: "array body", body: `[]`, wantErr: true},
		{name: "empty body", body: ``, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c, err := answer.NewClient(srv.URL)
			require.NoError(t, err)

			reply, err := c.Ask(context.Background(), "q")
			if tc.wantErr {
				require.Error(t, err)
				require.True(t, answer.IsDecodeError(err))
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.wantEmpty, reply.Empty())
		})
	}
}

func TestClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := answer.NewClient(url)
	require.NoError(t, err)

	_, err = c.Ask(context.Background(), "anything")
	require.Error(t, err)
	require.False(t, answer.IsDecodeError(err))
}

func TestClient_Timeout(t *testing.T) {
	s := stub.New(stub.WithFallback("late"), stub.WithLatency(500*time.Millisecond))
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	c, err := answer.NewClient(srv.URL, answer.WithTimeout(50*time.Millisecond))
	require.NoError(t, err)

	_, err = c.Ask(context.Background(), "slow")
	require.Error(t, err)
}

func TestStub_CannedAnswers(t *testing.T) {
	s := stub.NewCompliance()
	srv := httptest.NewServer(s.Router())
	defer srv.Close()

	c, err := answer.NewClient(srv.URL)
	require.NoError(t, err)

	reply, err := c.Ask(context.Background(), "what is kyc in   crypto compliance?")
	require.NoError(t, err)
	require.Contains(t, reply.Answer, "Know Your Customer")

	reply, err = c.Ask(context.Background(), "unrelated")
	require.NoError(t, err)
	require.Contains(t, reply.Answer, "only answer questions")

	require.Equal(t, []string{"what is kyc in   crypto compliance?", "unrelated"}, s.Received())
}
