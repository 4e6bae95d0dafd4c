package cloudinary

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/skylarkhq/assetferry/pkg/catalog"
)

// Client implements catalog.Source against the Cloudinary Admin API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	cloudName  string
	apiKey     string
	apiSecret  string
}

// Ensure Client implements the source interface.
var _ catalog.Source = (*Client)(nil)

// New creates a Cloudinary catalog client.
func New(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		cloudName:  cfg.CloudName,
		apiKey:     cfg.APIKey,
		apiSecret:  cfg.APISecret,
	}, nil
}

// resourceList is the Admin API response envelope for resource listings.
type resourceList struct {
	Resources  []resource `json:"resources"`
	NextCursor string     `json:"next_cursor"`
}

// resource is one asset as reported by the Admin API.
type resource struct {
	PublicID     string   `json:"public_id"`
	Format       string   `json:"format"`
	Version      int64    `json:"version"`
	ResourceType string   `json:"resource_type"`
	Type         string   `json:"type"`
	CreatedAt    string   `json:"created_at"`
	Bytes        int64    `json:"bytes"`
	Width        int      `json:"width"`
	Height       int      `json:"height"`
	AssetFolder  string   `json:"asset_folder"`
	Folder       string   `json:"folder"`
	URL          string   `json:"url"`
	SecureURL    string   `json:"secure_url"`
	Tags         []string `json:"tags"`
	Context      struct {
		Custom map[string]string `json:"custom"`
	} `json:"context"`
}

// ListPage returns one page of resources via cursor pagination.
func (c *Client) ListPage(ctx context.Context, opts catalog.ListOptions) (*catalog.ListResult, error) {
	f := opts.Filters

	pageSize := opts.PageSize
	if pageSize <= 0 || pageSize > catalog.MaxPageSize {
		pageSize = catalog.MaxPageSize
	}

	q := url.Values{}
	q.Set("max_results", strconv.Itoa(pageSize))
	q.Set("tags", "true")
	q.Set("context", "true")
	if opts.Cursor != "" {
		q.Set("next_cursor", opts.Cursor)
	}
	if f.Prefix != "" {
		q.Set("prefix", f.Prefix)
	}
	if !f.StartAt.IsZero() {
		q.Set("start_at", f.StartAt.UTC().Format(time.RFC3339))
	}

	var list resourceList
	if err := c.get(ctx, c.resourcePath(f), q, &list); err != nil {
		return nil, &catalog.CatalogError{Op: "ListPage", Cloud: c.cloudName, Cursor: opts.Cursor, Err: err}
	}

	return &catalog.ListResult{
		Assets: c.toDescriptors(list.Resources),
		Cursor: list.NextCursor,
	}, nil
}

// GetByIDs returns resources for an explicit set of public IDs.
// The Admin API accepts at most catalog.MaxLookupIDs per call; the
// enumerator chunks accordingly.
func (c *Client) GetByIDs(ctx context.Context, ids []string, filters catalog.Filters) ([]catalog.AssetDescriptor, error) {
	q := url.Values{}
	q.Set("tags", "true")
	q.Set("context", "true")
	for _, id := range ids {
		q.Add("public_ids[]", id)
	}

	var list resourceList
	if err := c.get(ctx, c.resourcePath(filters), q, &list); err != nil {
		return nil, &catalog.CatalogError{Op: "GetByIDs", Cloud: c.cloudName, Err: err}
	}
	return c.toDescriptors(list.Resources), nil
}

// Close releases resources held by the client.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

// resourcePath builds the Admin API path for the filtered resource kind.
func (c *Client) resourcePath(f catalog.Filters) string {
	resourceType := f.ResourceType
	if resourceType == "" {
		resourceType = "image"
	}
	deliveryType := f.DeliveryType
	if deliveryType == "" {
		deliveryType = "upload"
	}
	return fmt.Sprintf("/%s/resources/%s/%s", c.cloudName, resourceType, deliveryType)
}

// get performs an authenticated Admin API request and decodes the body.
func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.apiKey, c.apiSecret)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", catalog.ErrCatalogUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return classifyStatus(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding response: %v", catalog.ErrCatalogUnavailable, err)
	}
	return nil
}

// classifyStatus maps Admin API error responses to catalog sentinels.
func classifyStatus(resp *http.Response) error {
	// The API reports errors as {"error": {"message": "..."}}.
	var body struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	_ = json.Unmarshal(raw, &body)

	detail := body.Error.Message
	if detail == "" {
		detail = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return fmt.Errorf("%w: %s", catalog.ErrInvalidCredentials, detail)
	case http.StatusTooManyRequests, 420:
		return fmt.Errorf("%w: %s", catalog.ErrThrottled, detail)
	default:
		return fmt.Errorf("%w: HTTP %d: %s", catalog.ErrCatalogUnavailable, resp.StatusCode, detail)
	}
}

// toDescriptors maps Admin API resources onto catalog descriptors.
func (c *Client) toDescriptors(resources []resource) []catalog.AssetDescriptor {
	assets := make([]catalog.AssetDescriptor, 0, len(resources))
	for _, r := range resources {
		createdAt, _ := time.Parse(time.RFC3339, r.CreatedAt)

		folder := r.AssetFolder
		if folder == "" {
			folder = r.Folder
		}

		deliveryURL := r.SecureURL
		if deliveryURL == "" {
			deliveryURL = r.URL
		}

		assets = append(assets, catalog.AssetDescriptor{
			PublicID:     r.PublicID,
			Format:       r.Format,
			Bytes:        r.Bytes,
			Width:        r.Width,
			Height:       r.Height,
			CreatedAt:    createdAt,
			Folder:       folder,
			Tags:         r.Tags,
			Context:      r.Context.Custom,
			DeliveryURL:  deliveryURL,
			ResourceType: r.ResourceType,
			DeliveryType: r.Type,
		})
	}
	return assets
}
