// Package pathstore mirrors parsed patch sections into a pathstore
// key/value service so other tools can read them by path.
package pathstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/patchgest/internal/patchdoc"
)

// Client talks to the pathstore HTTP API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// NodeRequest is the body for PUT /kv/{key}.
type NodeRequest struct {
	Value  any    `json:"value"`
	Source string `json:"source,omitempty"`
}

// Node is one entry returned by a prefix scan.
type Node struct {
	Key   string          `json:"key_path"`
	Value json.RawMessage `json:"value"`
}

// PatchMeta is stored at patches/<version>/meta.
type PatchMeta struct {
	Version   string `json:"version"`
	SourceURL string `json:"source_url"`
	Sections  int    `json:"sections"`
	SyncedAt  string `json:"synced_at"`
}

func patchKey(version string) string {
	return "patches/" + version
}

// PutBlocks replaces everything stored under patches/<version> with one node
// per block plus a meta node.
func (c *Client) PutBlocks(ctx context.Context, version, sourceURL string, blocks []patchdoc.Block) error {
	root := patchKey(version)
	if err := c.DeleteNode(ctx, root, true); err != nil {
		return err
	}
	for _, b := range blocks {
		key := root + "/sections/" + strconv.Itoa(b.Order)
		if err := c.PutNode(ctx, key, NodeRequest{Value: b, Source: sourceURL}); err != nil {
			return err
		}
	}
	meta := PatchMeta{
		Version:   version,
		SourceURL: sourceURL,
		Sections:  len(blocks),
		SyncedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	return c.PutNode(ctx, root+"/meta", NodeRequest{Value: meta, Source: sourceURL})
}

// Blocks reads back the mirrored sections of a version in order.
func (c *Client) Blocks(ctx context.Context, version string) ([]patchdoc.Block, error) {
	nodes, err := c.ListChildren(ctx, patchKey(version)+"/sections")
	if err != nil {
		return nil, err
	}
	blocks := make([]patchdoc.Block, 0, len(nodes))
	for _, n := range nodes {
		var b patchdoc.Block
		if err := json.Unmarshal(n.Value, &b); err != nil {
			return nil, fmt.Errorf("decode %s: %w", n.Key, err)
		}
		blocks = append(blocks, b)
	}
	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Order < blocks[j].Order })
	return blocks, nil
}

// PutNode stores or overwrites the node at key.
func (c *Client) PutNode(ctx context.Context, key string, req NodeRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal node: %w", err)
	}
	resp, err := c.do(ctx, http.MethodPut, "/kv/"+key, body)
	if err != nil {
		return fmt.Errorf("put node: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return statusError("put node "+key, resp)
	}
	return nil
}

// DeleteNode deletes a node and, when recursive, everything below it.
// Deleting a missing node is not an error.
func (c *Client) DeleteNode(ctx context.Context, key string, recursive bool) error {
	path := "/kv/" + key
	if recursive {
		path += "?children=true"
	}
	resp, err := c.do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return fmt.Errorf("delete node: %w", err)
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	}
	return statusError("delete node "+key, resp)
}

// ListChildren does a prefix scan under key.
func (c *Client) ListChildren(ctx context.Context, key string) ([]Node, error) {
	resp, err := c.do(ctx, http.MethodGet, "/kv/"+key+"/*", nil)
	if err != nil {
		return nil, fmt.Errorf("list children: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, statusError("list children "+key, resp)
	}

	var result struct {
		Nodes []Node `json:"nodes"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode children: %w", err)
	}
	return result.Nodes, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return c.httpClient.Do(req)
}

func statusError(op string, resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("%s: status %d: %s", op, resp.StatusCode, string(b))
}

// Close releases idle connections.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
