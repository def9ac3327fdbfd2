package forge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGitHubCreateDecodesTypedSuccess(t *testing.T) {
	var gotPayload map[string]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/repos/acme/api/pulls", r.URL.Path)
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotPayload))
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"html_url":"https://github.com/acme/api/pull/17","number":17}`)
	}))
	defer server.Close()

	client := NewGitHubWithBase(server.URL, "tok", server.Client(), zerolog.Nop())
	created, err := client.Create(context.Background(), "https://github.com/acme/api.git", CreateOptions{
		Title:        "Add X",
		Body:         "details",
		SourceBranch: "feature/ABC-123",
		TargetBranch: "main",
	})
	require.NoError(t, err)
	assert.Equal(t, "https://github.com/acme/api/pull/17", created.URL)
	assert.Equal(t, 17, created.Number)
	assert.Equal(t, "feature/ABC-123", gotPayload["head"])
	assert.Equal(t, "main", gotPayload["base"])
	assert.Equal(t, "Add X", gotPayload["title"])
	assert.Equal(t, "details", gotPayload["body"])
}

func TestGitHubCreateNon2xxIsError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		fmt.Fprint(w, `{"message":"Validation Failed"}`)
	}))
	defer server.Close()

	client := NewGitHubWithBase(server.URL, "tok", server.Client(), zerolog.Nop())
	_, err := client.Create(context.Background(), "https://github.com/acme/api.git", CreateOptions{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "422")
}

func TestGitHubUpdateDescriptionUsesPatch(t *testing.T) {
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		fmt.Fprint(w, `{"html_url":"https://github.com/acme/api/pull/17","number":17}`)
	}))
	defer server.Close()

	client := NewGitHubWithBase(server.URL, "tok", server.Client(), zerolog.Nop())
	err := client.UpdateDescription(context.Background(), "https://github.com/acme/api/pull/17", "linked")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPatch, gotMethod)
	assert.Equal(t, "/repos/acme/api/pulls/17", gotPath)
}

func TestGitHubApprovedMatchesCurrentUser(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `[
			{"state":"COMMENTED","user":{"login":"alice"}},
			{"state":"APPROVED","user":{"login":"bob"}}
		]`)
	}))
	defer server.Close()

	client := NewGitHubWithBase(server.URL, "tok", server.Client(), zerolog.Nop())
	approved, err := client.Approved(context.Background(), "https://github.com/acme/api/pull/17", "bob")
	require.NoError(t, err)
	assert.True(t, approved)

	approved, err = client.Approved(context.Background(), "https://github.com/acme/api/pull/17", "alice")
	require.NoError(t, err)
	assert.False(t, approved)
}

func TestGitLabCreateResolvesProjectAndCorrectsURL(t *testing.T) {
	var mu []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu = append(mu, r.Method+" "+r.URL.Path)
		require.Equal(t, "tok", r.Header.Get("PRIVATE-TOKEN"))
		switch {
		case strings.HasPrefix(r.URL.Path, "/api/v4/projects/group%2Fapp"),
			strings.HasPrefix(r.URL.Path, "/api/v4/projects/group/app"):
			fmt.Fprint(w, `{"id":55}`)
		case r.URL.Path == "/api/v4/projects/55/merge_requests":
			require.Equal(t, http.MethodPost, r.Method)
			host := r.Host
			w.WriteHeader(http.StatusCreated)
			fmt.Fprintf(w, `{"web_url":"http://%s/ghttp://%s/group/app/-/merge_requests/3","iid":3}`, host, host)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	host := strings.TrimPrefix(server.URL, "http://")
	client := NewGitLabWithScheme("http", "tok", server.Client(), zerolog.Nop())
	created, err := client.Create(context.Background(), "http://"+host+"/group/app.git", CreateOptions{
		Title:        "Add X",
		SourceBranch: "feature/ABC-123",
		TargetBranch: "main",
	})
	require.NoError(t, err)
	assert.Equal(t, "http://"+host+"/group/app/-/merge_requests/3", created.URL)
	assert.Equal(t, 3, created.Number)
	require.Len(t, mu, 2)
}

func TestGitLabApprovals(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "approvals"):
			fmt.Fprint(w, `{"approved_by":[{"user":{"username":"carol"}}]}`)
		case strings.Contains(r.URL.Path, "merge_requests"):
			w.WriteHeader(http.StatusNotFound)
		default:
			fmt.Fprint(w, `{"id":55}`)
		}
	}))
	defer server.Close()

	host := strings.TrimPrefix(server.URL, "http://")
	client := NewGitLabWithScheme("http", "tok", server.Client(), zerolog.Nop())
	webURL := "http://" + host + "/group/app/-/merge_requests/3"

	approved, err := client.Approved(context.Background(), webURL, "carol")
	require.NoError(t, err)
	assert.True(t, approved)

	approved, err = client.Approved(context.Background(), webURL, "dave")
	require.NoError(t, err)
	assert.False(t, approved)
}

func TestGitLabUpdateDescriptionUsesPut(t *testing.T) {
	var gotMethod, gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "/merge_requests/3") {
			gotMethod = r.Method
			gotPath = r.URL.Path
			fmt.Fprint(w, `{"web_url":"x","iid":3}`)
			return
		}
		fmt.Fprint(w, `{"id":55}`)
	}))
	defer server.Close()

	host := strings.TrimPrefix(server.URL, "http://")
	client := NewGitLabWithScheme("http", "tok", server.Client(), zerolog.Nop())
	err := client.UpdateDescription(context.Background(), "http://"+host+"/group/app/-/merge_requests/3", "linked")
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, "/api/v4/projects/55/merge_requests/3", gotPath)
}
