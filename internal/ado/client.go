package ado

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tuannvm/adosync/internal/logging"
)

const (
	defaultBaseURL = "https://dev.azure.com"
	apiVersion     = "7.0"

	// maxBatchSize is the Azure DevOps limit on ids per work item details call.
	maxBatchSize = 200
)

// Client is an Azure DevOps Work Item Tracking API client.
type Client struct {
	baseURL      string
	organization string
	pat          string
	httpClient   *http.Client
}

// NewClient creates a new Azure DevOps client for one organization,
// authenticating every call with the given personal access token.
func NewClient(organization, pat string) *Client {
	return &Client{
		baseURL:      defaultBaseURL,
		organization: organization,
		pat:          pat,
		httpClient: &http.Client{
			Timeout: time.Second * 30,
		},
	}
}

// FetchWorkItems returns every current work item in the project, fully
// hydrated. When queryID is set the saved query is executed; otherwise an
// inline WIQL query selects all items in the project, newest id first.
// A query matching nothing returns an empty slice, not an error.
func (c *Client) FetchWorkItems(ctx context.Context, project, queryID string) ([]WorkItem, error) {
	ids, err := c.queryWorkItemIDs(ctx, project, queryID)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		logging.Infof("no work items found in project %q", project)
		return nil, nil
	}
	logging.Infof("found %d work items in project %q", len(ids), project)

	items := make([]WorkItem, 0, len(ids))
	for start := 0; start < len(ids); start += maxBatchSize {
		end := start + maxBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch, err := c.fetchDetails(ctx, project, ids[start:end])
		if err != nil {
			return nil, err
		}
		items = append(items, batch...)
	}
	return items, nil
}

// queryWorkItemIDs runs the discovery step and returns the matching ids.
func (c *Client) queryWorkItemIDs(ctx context.Context, project, queryID string) ([]int, error) {
	var (
		req *http.Request
		err error
	)
	if queryID != "" {
		queryURL := fmt.Sprintf("%s/%s/%s/_apis/wit/wiql/%s?api-version=%s",
			c.baseURL, c.organization, url.PathEscape(project), url.PathEscape(queryID), apiVersion)
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, queryURL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create query request: %w", err)
		}
	} else {
		wiql := fmt.Sprintf("SELECT [System.Id] FROM WorkItems WHERE [System.TeamProject] = '%s' ORDER BY [System.Id] DESC", project)
		payload, merr := json.Marshal(map[string]string{"query": wiql})
		if merr != nil {
			return nil, fmt.Errorf("failed to marshal WIQL payload: %w", merr)
		}
		queryURL := fmt.Sprintf("%s/%s/%s/_apis/wit/wiql?api-version=%s",
			c.baseURL, c.organization, url.PathEscape(project), apiVersion)
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, queryURL, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("failed to create query request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
	}
	c.addAuthHeader(req)

	var result wiqlResponse
	if err := c.doJSON(req, &result); err != nil {
		return nil, fmt.Errorf("query in project %q failed: %w", project, err)
	}

	ids := make([]int, 0, len(result.WorkItems))
	for _, ref := range result.WorkItems {
		ids = append(ids, ref.ID)
	}
	return ids, nil
}

// fetchDetails hydrates one batch of at most maxBatchSize work item ids.
func (c *Client) fetchDetails(ctx context.Context, project string, ids []int) ([]WorkItem, error) {
	idStrs := make([]string, len(ids))
	for i, id := range ids {
		idStrs[i] = strconv.Itoa(id)
	}
	detailsURL := fmt.Sprintf("%s/%s/%s/_apis/wit/workitems?ids=%s&api-version=%s",
		c.baseURL, c.organization, url.PathEscape(project), strings.Join(idStrs, ","), apiVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, detailsURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create details request: %w", err)
	}
	c.addAuthHeader(req)

	var result workItemsResponse
	if err := c.doJSON(req, &result); err != nil {
		return nil, fmt.Errorf("details fetch in project %q failed: %w", project, err)
	}
	return result.Value, nil
}

// doJSON sends the request and decodes a 2xx JSON response into out.
func (c *Client) doJSON(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("status %d, body: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// addAuthHeader adds authentication headers to the request. Azure DevOps PATs
// use Basic auth with an empty username.
func (c *Client) addAuthHeader(req *http.Request) {
	auth := base64.StdEncoding.EncodeToString([]byte(":" + c.pat))
	req.Header.Set("Authorization", "Basic "+auth)
}
