package introspect

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"vidspark/internal/infra"
)

// Connector is the logical contract against one introspectable service:
// describe its callable surface, then invoke one endpoint with a positional
// payload.
type Connector interface {
	Connect(ctx context.Context, space string) (API, error)
	Invoke(ctx context.Context, space string, ep Endpoint, payload []any) (any, error)
}

// SpaceOptions configures the hosted-space connector.
type SpaceOptions struct {
	HTTPClient *http.Client
	Logger     *infra.Logger
	// BaseURL overrides per-space host derivation, mainly for tests.
	BaseURL string
}

// SpaceClient talks to hosted inference spaces over their introspection and
// run APIs.
type SpaceClient struct {
	httpClient *http.Client
	logger     *infra.Logger
	baseURL    string
}

// NewSpaceClient constructs a connector with sane defaults.
func NewSpaceClient(opts SpaceOptions) *SpaceClient {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 120 * time.Second}
	}
	var logger *infra.Logger
	if opts.Logger != nil {
		logger = opts.Logger
	} else {
		discard := zerolog.New(io.Discard)
		l := infra.Logger(discard)
		logger = &l
	}
	return &SpaceClient{httpClient: httpClient, logger: logger, baseURL: strings.TrimRight(opts.BaseURL, "/")}
}

type endpointInfo struct {
	Parameters []struct {
		Label      string `json:"label"`
		Component  string `json:"component"`
		PythonType struct {
			Type string `json:"type"`
		} `json:"python_type"`
		HasDefault bool `json:"parameter_has_default"`
		Default    any  `json:"parameter_default"`
	} `json:"parameters"`
}

type runResponse struct {
	Data  []any  `json:"data"`
	Error string `json:"error"`
}

// Connect fetches the service's endpoint description. Named endpoints come
// back first, in declaration order, then unnamed ones by ascending index.
func (c *SpaceClient) Connect(ctx context.Context, space string) (API, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.spaceURL(space)+"/info", nil)
	if err != nil {
		return API{}, fmt.Errorf("space %s: build info request: %w", space, err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return API{}, fmt.Errorf("space %s: introspection: %w", space, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return API{}, fmt.Errorf("space %s: read info: %w", space, err)
	}
	if resp.StatusCode >= 300 {
		return API{}, fmt.Errorf("space %s: info status %d", space, resp.StatusCode)
	}

	var envelope struct {
		Named   json.RawMessage `json:"named_endpoints"`
		Unnamed json.RawMessage `json:"unnamed_endpoints"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return API{}, fmt.Errorf("space %s: decode info: %w", space, err)
	}

	api := API{}
	if err := appendEndpoints(&api, envelope.Named, true); err != nil {
		return API{}, fmt.Errorf("space %s: %w", space, err)
	}
	if err := appendEndpoints(&api, envelope.Unnamed, false); err != nil {
		return API{}, fmt.Errorf("space %s: %w", space, err)
	}
	c.logger.Debug().Str("space", space).Int("endpoints", len(api.Endpoints)).Msg("space: introspected")
	return api, nil
}

// Invoke calls one endpoint synchronously and returns the first output slot.
func (c *SpaceClient) Invoke(ctx context.Context, space string, ep Endpoint, payload []any) (any, error) {
	body := map[string]any{"data": payload}
	path := "/run" + ep.Name
	if !ep.Named {
		body["fn_index"] = ep.Index
		path = "/api/predict"
	}
	encoded, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("space %s: encode payload: %w", space, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.spaceURL(space)+path, bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("space %s: build run request: %w", space, err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("space %s: invoke: %w", space, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("space %s: read result: %w", space, err)
	}
	var decoded runResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		if resp.StatusCode >= 300 {
			return nil, fmt.Errorf("space %s: status %d: %s", space, resp.StatusCode, strings.TrimSpace(string(raw)))
		}
		return nil, fmt.Errorf("space %s: decode result: %w", space, err)
	}
	if decoded.Error != "" {
		return nil, fmt.Errorf("space %s: %s", space, decoded.Error)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("space %s: status %d", space, resp.StatusCode)
	}
	if len(decoded.Data) == 0 {
		return nil, nil
	}
	return decoded.Data[0], nil
}

// appendEndpoints walks an endpoint object token by token so declaration
// order survives; scoring tie-breaks depend on it.
func appendEndpoints(api *API, raw json.RawMessage, named bool) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("parse endpoints: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("parse endpoints: expected object, got %v", tok)
	}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("parse endpoints: %w", err)
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("parse endpoints: expected key, got %v", keyTok)
		}
		var info endpointInfo
		if err := dec.Decode(&info); err != nil {
			return fmt.Errorf("parse endpoint %s: %w", key, err)
		}
		ep := Endpoint{Named: named}
		if named {
			ep.Name = key
		} else {
			idx, err := strconv.Atoi(key)
			if err != nil {
				continue
			}
			ep.Index = idx
		}
		for _, p := range info.Parameters {
			ep.Parameters = append(ep.Parameters, Parameter{
				Label:      p.Label,
				Component:  p.Component,
				PythonType: p.PythonType.Type,
				HasDefault: p.HasDefault,
				Default:    p.Default,
			})
		}
		api.Endpoints = append(api.Endpoints, ep)
	}
	return nil
}

func (c *SpaceClient) spaceURL(space string) string {
	if c.baseURL != "" {
		return c.baseURL
	}
	host := strings.ToLower(strings.TrimSpace(space))
	host = strings.NewReplacer("/", "-", "_", "-", ".", "-").Replace(host)
	return "https://" + host + ".hf.space"
}

var _ Connector = (*SpaceClient)(nil)
