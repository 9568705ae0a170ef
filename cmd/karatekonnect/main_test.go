package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cuemby/karatekonnect/pkg/cache"
	"github.com/cuemby/karatekonnect/pkg/config"
	"github.com/cuemby/karatekonnect/pkg/metrics"
	"github.com/cuemby/karatekonnect/pkg/remote"
	"github.com/cuemby/karatekonnect/pkg/roster"
	"github.com/cuemby/karatekonnect/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

const testFilename = "karatekonnect-data.json"

// fakeGist serves one document the way the gist API does
type fakeGist struct {
	mu      sync.Mutex
	content string
	auth    []string
}

func (g *fakeGist) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if r.URL.Path == "/" {
		_, _ = w.Write([]byte(`{}`))
		return
	}
	if r.URL.Path != "/gists/doc1" {
		http.NotFound(w, r)
		return
	}

	if r.Method == http.MethodPatch {
		g.auth = append(g.auth, r.Header.Get("Authorization"))
		var body struct {
			Files map[string]struct {
				Content string `json:"content"`
			} `json:"files"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		g.content = body.Files[testFilename].Content
	}

	_ = json.NewEncoder(w).Encode(map[string]any{
		"files": map[string]any{testFilename: map[string]any{"content": g.content}},
	})
}

func (g *fakeGist) document(t *testing.T) types.Document {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	var doc types.Document
	require.NoError(t, json.Unmarshal([]byte(g.content), &doc))
	return doc
}

type cli struct {
	dataDir string
}

func newCLI(t *testing.T, gist *fakeGist) *cli {
	t.Helper()
	server := httptest.NewServer(gist)
	t.Cleanup(server.Close)

	t.Setenv("KARATEKONNECT_API_BASE", server.URL)
	t.Setenv("KARATEKONNECT_FETCH_RETRIES", "0")
	return &cli{dataDir: t.TempDir()}
}

func (c *cli) run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetIn(strings.NewReader(stdin))

	full := append([]string{"--backend", "bolt", "--data-dir", c.dataDir, "--document-id", "doc1"}, args...)
	err := execute(context.Background(), full)
	return out.String(), err
}

func TestCommandsEndToEnd(t *testing.T) {
	gist := &fakeGist{
		content: `{"athletes":[{"id":"a1","name":"Kenji","Strength":60},{"id":"a2","name":"Mai"}],"lastUpdated":"2024-01-01T00:00:00.000Z"}`,
	}
	c := newCLI(t, gist)

	out, err := c.run(t, "", "athletes", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "a1")
	assert.Contains(t, out, "Kenji")
	assert.Contains(t, out, "Mai")

	out, err = c.run(t, "", "athlete", "get", "a1", "--output", "text")
	require.NoError(t, err)
	assert.Contains(t, out, "Athlete: a1")
	assert.Contains(t, out, "name: Kenji")
	assert.Regexp(t, `Strength\s+60\n`, out)
	assert.Regexp(t, `Endurance\s+50 \(default\)`, out)

	_, err = c.run(t, "", "athlete", "get", "nobody")
	assert.ErrorIs(t, err, roster.ErrAthleteNotFound)

	_, err = c.run(t, "", "athlete", "update", "a1", "Strength=72")
	assert.ErrorIs(t, err, roster.ErrAuthRequired)
	assert.Empty(t, gist.auth, "no write without a token")

	out, err = c.run(t, "", "token", "status")
	require.NoError(t, err)
	assert.Equal(t, "No token configured\n", out)

	_, err = c.run(t, "ghp_secret\n", "token", "set", "-")
	require.NoError(t, err)

	out, err = c.run(t, "", "token", "status")
	require.NoError(t, err)
	assert.Equal(t, "Token configured\n", out)

	out, err = c.run(t, "", "athlete", "update", "a1", "Strength=72", "belt=brown")
	require.NoError(t, err)
	assert.Contains(t, out, "Athlete a1 updated")
	assert.Equal(t, []string{"token ghp_secret"}, gist.auth)

	doc := gist.document(t)
	require.Len(t, doc.Athletes, 2)
	assert.Equal(t, map[string]any{"name": "Kenji", "Strength": 72.0, "belt": "brown"}, doc.Athletes[0].Attributes)
	assert.Equal(t, map[string]any{"name": "Mai"}, doc.Athletes[1].Attributes)
	assert.NotEqual(t, "2024-01-01T00:00:00.000Z", doc.LastUpdated)

	out, err = c.run(t, "", "cache", "status")
	require.NoError(t, err)
	assert.Contains(t, out, "fresh")

	out, err = c.run(t, "", "cache", "clear")
	require.NoError(t, err)
	assert.Equal(t, "✓ Cache cleared\n", out)

	out, err = c.run(t, "", "cache", "status")
	require.NoError(t, err)
	assert.Equal(t, "No cached roster\n", out)

	out, err = c.run(t, "", "fetch")
	require.NoError(t, err)
	var fetched types.Document
	require.NoError(t, json.Unmarshal([]byte(out), &fetched))
	assert.Equal(t, doc, fetched)

	_, err = c.run(t, "", "token", "clear")
	require.NoError(t, err)
	out, err = c.run(t, "", "token", "status")
	require.NoError(t, err)
	assert.Equal(t, "No token configured\n", out)
}

func TestCommandsServeCacheWhenRemoteDown(t *testing.T) {
	gist := &fakeGist{content: `{"athletes":[{"id":"a1","name":"Kenji"}]}`}
	server := httptest.NewServer(gist)
	t.Setenv("KARATEKONNECT_API_BASE", server.URL)
	t.Setenv("KARATEKONNECT_FETCH_RETRIES", "0")
	t.Setenv("KARATEKONNECT_CACHE_TTL", "1ns")
	c := &cli{dataDir: t.TempDir()}

	_, err := c.run(t, "", "athletes", "list")
	require.NoError(t, err)

	server.Close()
	time.Sleep(time.Millisecond)

	out, err := c.run(t, "", "athletes", "list")
	require.NoError(t, err, "expired cache is served while the remote is down")
	assert.Contains(t, out, "Kenji")

	_, err = c.run(t, "", "cache", "clear")
	require.NoError(t, err)
	_, err = c.run(t, "", "athletes", "list")
	assert.ErrorIs(t, err, roster.ErrDataUnavailable)
}

func TestDoctorCommand(t *testing.T) {
	gist := &fakeGist{content: `{"athletes":[]}`}
	c := newCLI(t, gist)

	out, err := c.run(t, "", "doctor")
	require.NoError(t, err)
	assert.Contains(t, out, "✓ store: read/write ok")
	assert.Contains(t, out, "✓ api: HTTP 200 OK")
	assert.Contains(t, out, "✓ document: HTTP 200 OK")
	assert.Contains(t, out, "- token: not configured")

	comp, ok := metrics.Component(metrics.ComponentRemote)
	require.True(t, ok)
	assert.True(t, comp.Healthy)

	out, err = c.run(t, "", "--document-id", "missing", "doctor")
	assert.EqualError(t, err, "1 check(s) failed")
	assert.Contains(t, out, "✗ document: HTTP 404 Not Found")
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)

	require.NoError(t, execute(context.Background(), []string{"version"}))
	assert.Contains(t, out.String(), "KarateKonnect version dev")
	assert.Nil(t, app)
}

func TestCommandsWithoutStore(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "help", args: []string{"help"}, want: "karatekonnect"},
		{name: "help for a command", args: []string{"help", "fetch"}, want: "--watch"},
		{name: "completion", args: []string{"completion", "bash"}, want: "bash completion"},
		{name: "version", args: []string{"version"}, want: "KarateKonnect version"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			var out bytes.Buffer
			rootCmd.SetOut(&out)

			args := append([]string{"--backend", "bolt", "--data-dir", dir}, tt.args...)
			require.NoError(t, execute(context.Background(), args))

			assert.Contains(t, out.String(), tt.want)
			assert.NoFileExists(t, filepath.Join(dir, "karatekonnect.db"))
			assert.Nil(t, app)
		})
	}
}

func TestParseAssignments(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    map[string]any
		wantErr string
	}{
		{
			name: "numbers booleans and text",
			args: []string{"Strength=72", "ratio=0.5", "active=true", "belt=brown"},
			want: map[string]any{"Strength": 72.0, "ratio": 0.5, "active": true, "belt": "brown"},
		},
		{
			name: "value keeps later equals signs",
			args: []string{"note=a=b"},
			want: map[string]any{"note": "a=b"},
		},
		{
			name: "empty value is text",
			args: []string{"nickname="},
			want: map[string]any{"nickname": ""},
		},
		{
			name: "non finite numbers stay text",
			args: []string{"x=NaN", "y=Inf"},
			want: map[string]any{"x": "NaN", "y": "Inf"},
		},
		{
			name:    "missing equals",
			args:    []string{"Strength"},
			wantErr: `invalid assignment "Strength"`,
		},
		{
			name:    "empty key",
			args:    []string{"=5"},
			wantErr: "expected key=value",
		},
		{
			name:    "id is read only",
			args:    []string{"id=a9"},
			wantErr: "cannot be changed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseAssignments(tt.args)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteAthleteStatsFollowDefaultOrder(t *testing.T) {
	defaults := config.Default().DefaultStats
	athlete := types.Athlete{ID: "a1", Attributes: map[string]any{
		"Technique": 90.0,
		"Strength":  60.0,
		"name":      "Kenji",
	}}

	var out bytes.Buffer
	require.NoError(t, writeAthlete(&out, "text", athlete, defaults))
	text := out.String()

	last := -1
	for _, s := range defaults {
		i := strings.Index(text, s.Name)
		require.Greater(t, i, last, "%s out of order", s.Name)
		last = i
	}
	assert.Regexp(t, `Technique\s+90\n`, text)
	assert.Regexp(t, `Agility\s+50 \(default\)\n`, text)
	assert.Contains(t, text, "  name: Kenji\n")
}

func TestWriteAthleteYAML(t *testing.T) {
	defaults := []config.Stat{{Name: "Strength", Value: 50}, {Name: "Speed", Value: 40}}
	athlete := types.Athlete{ID: "a1", Attributes: map[string]any{"Strength": 70.0}}

	var out bytes.Buffer
	require.NoError(t, writeAthlete(&out, "yaml", athlete, defaults))

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &got))
	assert.Equal(t, map[string]any{
		"id": "a1",
		"stats": []any{
			map[string]any{"name": "Strength", "value": 70},
			map[string]any{"name": "Speed", "value": 40, "default": true},
		},
	}, got)
}

func TestWriteAthleteUnknownFormat(t *testing.T) {
	err := writeAthlete(&bytes.Buffer{}, "xml", types.Athlete{ID: "a1"}, nil)
	assert.ErrorContains(t, err, `unknown output format "xml"`)
}

func TestWriteCacheStatus(t *testing.T) {
	tests := []struct {
		name string
		age  time.Duration
		err  error
		want string
	}{
		{name: "fresh", age: 90 * time.Second, want: "Cached roster is 1m30s old (fresh, ttl 5m0s)\n"},
		{name: "boundary is fresh", age: 5 * time.Minute, want: "Cached roster is 5m0s old (fresh, ttl 5m0s)\n"},
		{name: "expired", age: 6 * time.Minute, want: "Cached roster is 6m0s old (expired, ttl 5m0s)\n"},
		{name: "miss", err: cache.ErrMiss, want: "No cached roster\n"},
		{name: "corrupt", err: fmt.Errorf("%w: bad json", cache.ErrCorrupt), want: "Cached roster is unreadable and will be replaced on the next read\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			writeCacheStatus(&out, tt.age, 5*time.Minute, tt.err)
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestDescribe(t *testing.T) {
	unauthorized := fmt.Errorf("%w: %w", roster.ErrUpdateFailed,
		fmt.Errorf("%w: %w", remote.ErrUnauthorized, &remote.HTTPError{StatusCode: 401, Message: "Bad credentials"}))

	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "auth required", err: roster.ErrAuthRequired, want: roster.ErrAuthRequired.Error()},
		{name: "rejected token", err: unauthorized, want: "the remote store rejected the token"},
		{name: "update failed", err: fmt.Errorf("%w: %w", roster.ErrUpdateFailed, remote.ErrRemoteUnavailable), want: "changes were not saved"},
		{name: "no data", err: fmt.Errorf("%w: %w", roster.ErrDataUnavailable, remote.ErrRemoteUnavailable), want: "roster unavailable and nothing cached"},
		{name: "other", err: errors.New("boom"), want: "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := describe(tt.err)
			assert.Contains(t, got.Error(), tt.want)
			assert.ErrorIs(t, got, tt.err)
		})
	}
}
