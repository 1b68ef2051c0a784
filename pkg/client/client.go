package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client is a Go client for the lstore HTTP API
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// Config holds configuration for the client
type Config struct {
	// Host is the server hostname or IP address (default: "localhost")
	Host string
	// Port is the server port (default: 8080)
	Port int
	// Timeout is the HTTP request timeout (default: 30s)
	Timeout time.Duration
}

// DefaultConfig returns the default client configuration
func DefaultConfig() *Config {
	return &Config{
		Host:    "localhost",
		Port:    8080,
		Timeout: 30 * time.Second,
	}
}

// New creates a client with the given configuration
func New(config *Config) *Client {
	if config == nil {
		config = DefaultConfig()
	}
	if config.Host == "" {
		config.Host = "localhost"
	}
	if config.Port == 0 {
		config.Port = 8080
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Client{
		baseURL:    fmt.Sprintf("http://%s:%d", config.Host, config.Port),
		httpClient: &http.Client{Timeout: config.Timeout},
	}
}

// NewWithBaseURL creates a client against an explicit base URL, mainly
// for tests against httptest servers
func NewWithBaseURL(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Record is a materialized row returned by reads
type Record struct {
	RID     int64   `json:"rid"`
	Key     int64   `json:"key"`
	Columns []int64 `json:"columns"`
}

// response is the server's standard envelope
type response struct {
	OK      bool            `json:"ok"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   string          `json:"error,omitempty"`
	Message string          `json:"message,omitempty"`
	Code    int             `json:"code,omitempty"`
}

// APIError is a failure reported by the server
type APIError struct {
	Kind    string
	Message string
	Code    int
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.Code, e.Message)
}

func (c *Client) doRequest(method, path string, body, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var envelope response
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	if !envelope.OK {
		return &APIError{Kind: envelope.Error, Message: envelope.Message, Code: envelope.Code}
	}
	if result != nil {
		if err := json.Unmarshal(envelope.Result, result); err != nil {
			return fmt.Errorf("failed to parse result: %w", err)
		}
	}
	return nil
}

// Login authenticates and stores the session token for later requests
func (c *Client) Login(username, password string) error {
	var result struct {
		Token string `json:"token"`
	}
	err := c.doRequest(http.MethodPost, "/_auth/login",
		map[string]string{"username": username, "password": password}, &result)
	if err != nil {
		return err
	}
	c.token = result.Token
	return nil
}

// Health checks server liveness
func (c *Client) Health() error {
	return c.doRequest(http.MethodGet, "/_health", nil, nil)
}

// Tables lists the catalog's table names
func (c *Client) Tables() ([]string, error) {
	var names []string
	if err := c.doRequest(http.MethodGet, "/_tables", nil, &names); err != nil {
		return nil, err
	}
	return names, nil
}

// CreateTable adds a table to the catalog
func (c *Client) CreateTable(name string, numColumns, keyIndex int) error {
	return c.doRequest(http.MethodPost, "/_tables", map[string]interface{}{
		"name":       name,
		"numColumns": numColumns,
		"keyIndex":   keyIndex,
	}, nil)
}

// DropTable removes a table and its files
func (c *Client) DropTable(name string) error {
	return c.doRequest(http.MethodDelete, "/"+name, nil, nil)
}

// Insert adds a record
func (c *Client) Insert(tableName string, values ...int64) error {
	return c.doRequest(http.MethodPost, "/"+tableName+"/records",
		map[string]interface{}{"values": values}, nil)
}

// Select reads the current record for a primary key
func (c *Client) Select(tableName string, key int64) (*Record, error) {
	return c.SelectVersion(tableName, key, 0)
}

// SelectVersion reads a record at a relative version (0 newest, -1 back)
func (c *Client) SelectVersion(tableName string, key int64, version int) (*Record, error) {
	var record Record
	path := fmt.Sprintf("/%s/records/%d?version=%d", tableName, key, version)
	if err := c.doRequest(http.MethodGet, path, nil, &record); err != nil {
		return nil, err
	}
	return &record, nil
}

// Update applies a cumulative update; nil entries keep the current value
func (c *Client) Update(tableName string, key int64, values ...*int64) error {
	path := fmt.Sprintf("/%s/records/%d", tableName, key)
	return c.doRequest(http.MethodPut, path, map[string]interface{}{"values": values}, nil)
}

// Delete tombstones a record by primary key
func (c *Client) Delete(tableName string, key int64) error {
	return c.doRequest(http.MethodDelete, fmt.Sprintf("/%s/records/%d", tableName, key), nil, nil)
}

// Sum aggregates a column over an inclusive primary-key range
func (c *Client) Sum(tableName string, startKey, endKey int64, column int) (int64, error) {
	return c.SumVersion(tableName, startKey, endKey, column, 0)
}

// SumVersion is Sum at an older version
func (c *Client) SumVersion(tableName string, startKey, endKey int64, column, version int) (int64, error) {
	var result struct {
		Sum int64 `json:"sum"`
	}
	path := fmt.Sprintf("/%s/_sum?start=%d&end=%d&column=%d&version=%d",
		tableName, startKey, endKey, column, version)
	if err := c.doRequest(http.MethodGet, path, nil, &result); err != nil {
		return 0, err
	}
	return result.Sum, nil
}

// CreateIndex builds a secondary index on a user column
func (c *Client) CreateIndex(tableName string, column int) error {
	return c.doRequest(http.MethodPost, "/"+tableName+"/_index",
		map[string]int{"column": column}, nil)
}

// Flush asks the server to write dirty pages to disk
func (c *Client) Flush() error {
	return c.doRequest(http.MethodPost, "/_admin/flush", nil, nil)
}

// Merge asks the server to compact every table
func (c *Client) Merge() error {
	return c.doRequest(http.MethodPost, "/_admin/merge", nil, nil)
}

// Int is a helper for Update values
func Int(v int64) *int64 {
	return &v
}
