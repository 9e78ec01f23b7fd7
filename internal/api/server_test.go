package api

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/patchgest/internal/config"
	"github.com/dgallion1/patchgest/internal/fetch"
	"github.com/dgallion1/patchgest/internal/parser"
	"github.com/dgallion1/patchgest/internal/patchdoc"
	"github.com/dgallion1/patchgest/internal/pipeline"
	"github.com/dgallion1/patchgest/internal/store"
)

const testAPIKey = "test-key"

var upstreamPage = `<html><head><title>Patch</title></head><body>` +
	strings.Repeat(`<nav><a href="/">Home</a></nav>`, 20) +
	`<div id="patch-notes-container">
<blockquote class="blockquote context"><p>Patch 16.4 brings a round of balance changes across the board.</p></blockquote>
<h2>Large Changes</h2>
<h4>Traits</h4>
<ul><li>Bruiser bonus health increased from 150 to 200.</li><li>Sorcerer ability power increased from 20 to 25.</li></ul>
<h2>Small Changes</h2>
<h4>Units: Tier 3</h4>
<ul><li>Ahri mana reduced from 60 to 50.</li></ul>
<h4>Augments</h4>
<ul><li>Cybernetic Implants health adjusted from 200 to 250.</li></ul>
</div></body></html>`

type testEnv struct {
	srv   *httptest.Server
	store *store.Store
	orch  *pipeline.Orchestrator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := slog.New(slog.NewJSONHandler(io.Discard, nil))

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/news/teamfight-tactics-patch-16-4/" {
			w.Write([]byte(upstreamPage))
			return
		}
		http.NotFound(w, r)
	}))
	t.Cleanup(upstream.Close)

	st, err := store.Open(filepath.Join(t.TempDir(), "patches.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	client := fetch.NewClient(fetch.Config{BaseURL: upstream.URL + "/news/", MinPageBytes: 800})
	worker := pipeline.NewWorker(client, st, nil, log, 200)
	orch := pipeline.NewOrchestrator(worker, 1, 10, time.Hour, log)
	orch.Start(t.Context())
	t.Cleanup(orch.Stop)

	cfg := config.Config{
		APIKey:          testAPIKey,
		MaxParseBytes:   1 << 20,
		VersionMajorMin: 16,
		VersionMajorMax: 16,
		VersionMinorMax: 2,
	}
	srv := httptest.NewServer(NewServer(orch, st, client.Stats, log, cfg))
	t.Cleanup(srv.Close)
	return &testEnv{srv: srv, store: st, orch: orch}
}

func (e *testEnv) do(t *testing.T, method, path, body string) *http.Response {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, r)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestHealth_NoAuth(t *testing.T) {
	e := newTestEnv(t)
	resp, err := http.Get(e.srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuth(t *testing.T) {
	e := newTestEnv(t)

	resp, err := http.Get(e.srv.URL + "/api/patches")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, _ := http.NewRequest(http.MethodGet, e.srv.URL+"/api/patches", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestParse(t *testing.T) {
	e := newTestEnv(t)
	body, _ := json.Marshal(parseRequest{HTML: upstreamPage})

	resp := e.do(t, http.MethodPost, "/api/parse", string(body))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out parseResponse
	decode(t, resp, &out)
	require.Len(t, out.Blocks, 4)
	assert.Equal(t, patchdoc.CategoryOverview, out.Blocks[0].Category)
	assert.Equal(t, patchdoc.CategoryChampions, out.Blocks[2].Category)
	assert.Equal(t, 3, *out.Blocks[2].UnitTier)
	assert.Len(t, out.Buckets, len(patchdoc.Categories))
	assert.Equal(t, "UNITS: TIER 3", strings.ToUpper(strings.SplitN(out.Buckets[patchdoc.CategoryChampions].Small, "\n", 2)[0]))
}

func TestParse_FallbackAndEmpty(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(t, http.MethodPost, "/api/parse", `{"html":"<p>nothing here</p>","text":"  legacy text  "}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var out parseResponse
	decode(t, resp, &out)
	require.Len(t, out.Blocks, 1)
	assert.Equal(t, "  legacy text  ", out.Blocks[0].Text)
	assert.Equal(t, patchdoc.Buckets{patchdoc.CategoryOverview: {All: "  legacy text  "}}, out.Buckets)

	resp = e.do(t, http.MethodPost, "/api/parse", `{}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	raw, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"blocks":[],"buckets":{}}`, string(raw))
}

func TestParse_BadBody(t *testing.T) {
	e := newTestEnv(t)
	resp := e.do(t, http.MethodPost, "/api/parse", `{not json`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFetch_EndToEnd(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(t, http.MethodPost, "/api/fetch", `{"versions":["16.4","16.04","16.3"]}`)
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var queued struct {
		JobID    string   `json:"job_id"`
		Versions []string `json:"versions"`
		PollURL  string   `json:"poll_url"`
	}
	decode(t, resp, &queued)
	assert.Equal(t, []string{"16.4", "16.3"}, queued.Versions)

	var snap pipeline.JobSnapshot
	require.Eventually(t, func() bool {
		r := e.do(t, http.MethodGet, queued.PollURL, "")
		if r.StatusCode != http.StatusOK {
			return false
		}
		decode(t, r, &snap)
		return snap.Status == pipeline.StatusCompleted
	}, 10*time.Second, 20*time.Millisecond)
	assert.Equal(t, 1, snap.Progress.Added)
	assert.Equal(t, 1, snap.Progress.NotFound)
	assert.Equal(t, 4, snap.Progress.Sections)

	resp = e.do(t, http.MethodGet, "/api/patches", "")
	var list struct {
		Patches []store.Patch `json:"patches"`
	}
	decode(t, resp, &list)
	require.Len(t, list.Patches, 1)
	assert.Equal(t, "16.4", list.Patches[0].Version)
	assert.Equal(t, 4, list.Patches[0].Sections)

	resp = e.do(t, http.MethodGet, "/api/patches/16.4?raw=true", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got map[string]any
	decode(t, resp, &got)
	assert.Contains(t, got["raw_html"], `id="patch-notes-container"`)

	resp = e.do(t, http.MethodGet, "/api/patches/16.4/sections?category=augments&size=small", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var secs struct {
		Sections []patchdoc.Block `json:"sections"`
	}
	decode(t, resp, &secs)
	require.Len(t, secs.Sections, 1)
	assert.Equal(t, []string{"Cybernetic Implants health adjusted from 200 to 250."}, secs.Sections[0].Lines)

	resp = e.do(t, http.MethodGet, "/api/patches/16.4/buckets", "")
	var b struct {
		Buckets patchdoc.Buckets `json:"buckets"`
	}
	decode(t, resp, &b)
	assert.Contains(t, b.Buckets[patchdoc.CategoryTraits].Large, "Bruiser bonus health")
	assert.Empty(t, b.Buckets[patchdoc.CategoryItems].All)

	resp = e.do(t, http.MethodGet, "/api/patches/16.4/buckets?format=html", "")
	assert.Equal(t, "text/html; charset=utf-8", resp.Header.Get("Content-Type"))
	html, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(html), "<h2>Traits</h2>")

	resp = e.do(t, http.MethodGet, "/api/stats/fetch", "")
	var stats struct {
		Stats fetch.StatsSnapshot `json:"stats"`
	}
	decode(t, resp, &stats)
	assert.GreaterOrEqual(t, stats.Stats.Requests, 3)
	assert.Equal(t, 1, stats.Stats.OK)
}

func TestFetch_DefaultRange(t *testing.T) {
	e := newTestEnv(t)
	resp := e.do(t, http.MethodPost, "/api/fetch", "")
	require.Equal(t, http.StatusAccepted, resp.StatusCode)
	var queued struct {
		Versions []string `json:"versions"`
	}
	decode(t, resp, &queued)
	assert.Equal(t, []string{"16.2", "16.1"}, queued.Versions)
}

func TestFetch_BadVersion(t *testing.T) {
	e := newTestEnv(t)
	resp := e.do(t, http.MethodPost, "/api/fetch", `{"versions":["sixteen"]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestFetchStatus_UnknownJob(t *testing.T) {
	e := newTestEnv(t)
	resp := e.do(t, http.MethodGet, "/api/fetch/nope/status", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPatches_NotFoundAndBadFilter(t *testing.T) {
	e := newTestEnv(t)

	resp := e.do(t, http.MethodGet, "/api/patches/9.9", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/api/patches/9.9/sections?category=weapons", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp = e.do(t, http.MethodGet, "/api/patches", "")
	raw, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"patches":[]}`, string(bytes.TrimSpace(raw)))
}

func TestBuckets_FallbackPatchMatchesParse(t *testing.T) {
	e := newTestEnv(t)
	const notes = "Hotfix: emergency nerf to Item X"

	resp := e.do(t, http.MethodPost, "/api/parse", `{"html":"<p>nothing</p>","text":"`+notes+`"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var parsed struct {
		Buckets patchdoc.Buckets `json:"buckets"`
	}
	decode(t, resp, &parsed)

	_, err := e.store.SavePatch(t.Context(), store.Patch{Version: "16.5", RawText: notes, ContentHash: "h"},
		parser.Fallback(notes).Blocks)
	require.NoError(t, err)

	resp = e.do(t, http.MethodGet, "/api/patches/16.5/buckets", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var stored struct {
		Buckets patchdoc.Buckets `json:"buckets"`
	}
	decode(t, resp, &stored)

	want := patchdoc.Buckets{patchdoc.CategoryOverview: {All: notes}}
	assert.Equal(t, want, parsed.Buckets)
	assert.Equal(t, want, stored.Buckets)
}
