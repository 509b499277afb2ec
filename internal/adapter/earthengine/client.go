package earthengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/couchcryptid/era5-temperature-etl/internal/observability"
)

// Client talks to the Earth Engine REST API (v1) on behalf of one Cloud project.
type Client struct {
	project    string
	httpClient *http.Client
	baseURL    string
	logger     *slog.Logger
	metrics    *observability.Metrics
}

// NewClient creates an Earth Engine client. httpClient must attach credentials;
// see NewHTTPClient.
func NewClient(project, baseURL string, httpClient *http.Client, logger *slog.Logger, metrics *observability.Metrics) *Client {
	return &Client{
		project:    project,
		httpClient: httpClient,
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
		metrics:    metrics,
	}
}

// APIError is a non-2xx response from the platform.
type APIError struct {
	HTTPStatus int
	Code       int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("earthengine API error: status %d (%s): %s", e.HTTPStatus, e.Status, e.Message)
	}
	return fmt.Sprintf("earthengine API error: status %d: %s", e.HTTPStatus, e.Message)
}

// TableExport configures a Drive CSV export.
type TableExport struct {
	Description    string
	DriveFolder    string
	FilenamePrefix string
	Selectors      []string
}

// Operation is a long-running platform task.
type Operation struct {
	Name     string            `json:"name"`
	Done     bool              `json:"done"`
	Metadata OperationMetadata `json:"metadata"`
	Error    *OperationError   `json:"error,omitempty"`
}

// OperationMetadata carries the task progress fields.
type OperationMetadata struct {
	State       string `json:"state"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// OperationError is the terminal error of a failed operation.
type OperationError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// MapID identifies a server-side visualised map.
type MapID struct {
	Name    string
	TileURL string // template with {z}, {x}, {y}
}

// Compute evaluates an expression and returns the raw JSON result.
func (c *Client) Compute(ctx context.Context, e Expr) (json.RawMessage, error) {
	expr, err := NewExpression(e)
	if err != nil {
		return nil, fmt.Errorf("encode expression: %w", err)
	}
	body := map[string]any{"expression": expr}
	raw, err := c.doRequest(ctx, http.MethodPost, c.projectURL("value:compute"), body, "compute")
	if err != nil {
		return nil, err
	}
	var resp struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode compute response: %w", err)
	}
	return resp.Result, nil
}

// ExportTable enqueues a CSV export of a feature collection to Drive. It
// returns as soon as the task is accepted.
func (c *Client) ExportTable(ctx context.Context, e Expr, opts TableExport) (Operation, error) {
	expr, err := NewExpression(e)
	if err != nil {
		return Operation{}, fmt.Errorf("encode expression: %w", err)
	}
	drive := map[string]string{"filenamePrefix": opts.FilenamePrefix}
	if opts.DriveFolder != "" {
		drive["folder"] = opts.DriveFolder
	}
	body := map[string]any{
		"expression":  expr,
		"description": opts.Description,
		"fileExportOptions": map[string]any{
			"fileFormat":       "CSV",
			"driveDestination": drive,
		},
		"selectors": opts.Selectors,
	}
	raw, err := c.doRequest(ctx, http.MethodPost, c.projectURL("table:export"), body, "export")
	if err != nil {
		return Operation{}, err
	}
	return decodeOperation(raw)
}

// GetOperation fetches the current state of an operation by full name.
func (c *Client) GetOperation(ctx context.Context, name string) (Operation, error) {
	if !strings.HasPrefix(name, "projects/") {
		name = fmt.Sprintf("projects/%s/operations/%s", c.project, name)
	}
	raw, err := c.doRequest(ctx, http.MethodGet, c.baseURL+"/v1/"+name, nil, "operation")
	if err != nil {
		return Operation{}, err
	}
	return decodeOperation(raw)
}

// CreateMap requests a PNG tile source for a visualised image.
func (c *Client) CreateMap(ctx context.Context, e Expr) (MapID, error) {
	expr, err := NewExpression(e)
	if err != nil {
		return MapID{}, fmt.Errorf("encode expression: %w", err)
	}
	body := map[string]any{
		"expression": expr,
		"fileFormat": "PNG",
	}
	raw, err := c.doRequest(ctx, http.MethodPost, c.projectURL("maps"), body, "map")
	if err != nil {
		return MapID{}, err
	}
	var resp struct {
		Name string `json:"name"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return MapID{}, fmt.Errorf("decode map response: %w", err)
	}
	if resp.Name == "" {
		return MapID{}, fmt.Errorf("map response has no name")
	}
	return MapID{Name: resp.Name, TileURL: c.TileURL(resp.Name)}, nil
}

// TileURL returns the tile template of a map.
func (c *Client) TileURL(mapName string) string {
	return fmt.Sprintf("%s/v1/%s/tiles/{z}/{x}/{y}", c.baseURL, mapName)
}

// FetchTile downloads one PNG tile of a map.
func (c *Client) FetchTile(ctx context.Context, mapName string, z, x, y int) ([]byte, error) {
	u := fmt.Sprintf("%s/v1/%s/tiles/%d/%d/%d", c.baseURL, mapName, z, x, y)
	return c.doRequest(ctx, http.MethodGet, u, nil, "tile")
}

func (c *Client) projectURL(method string) string {
	return fmt.Sprintf("%s/v1/projects/%s/%s", c.baseURL, c.project, method)
}

func (c *Client) doRequest(ctx context.Context, method, fullURL string, body any, label string) ([]byte, error) {
	start := time.Now()
	raw, err := c.send(ctx, method, fullURL, body)
	c.metrics.APIDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	if err != nil {
		c.metrics.APIRequests.WithLabelValues(label, "error").Inc()
		c.logger.Debug("earthengine request failed", "method", label, "error", err)
		return nil, err
	}
	c.metrics.APIRequests.WithLabelValues(label, "success").Inc()
	return raw, nil
}

func (c *Client) send(ctx context.Context, method, fullURL string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("earthengine request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, parseAPIError(resp.StatusCode, raw)
	}
	return raw, nil
}

func parseAPIError(status int, body []byte) error {
	apiErr := &APIError{HTTPStatus: status, Message: strings.TrimSpace(string(body))}
	var envelope struct {
		Error struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
			Status  string `json:"status"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
		apiErr.Code = envelope.Error.Code
		apiErr.Status = envelope.Error.Status
		apiErr.Message = envelope.Error.Message
	}
	return apiErr
}

func decodeOperation(raw []byte) (Operation, error) {
	var op Operation
	if err := json.Unmarshal(raw, &op); err != nil {
		return Operation{}, fmt.Errorf("decode operation: %w", err)
	}
	if op.Name == "" {
		return Operation{}, fmt.Errorf("operation response has no name")
	}
	return op, nil
}
