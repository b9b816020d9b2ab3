// Package feed queries the IGP/CENSIS ArcGIS layer of reported seismic events.
package feed

import (
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/tidwall/gjson"
)

// DefaultURL is the public query endpoint for the SismosReportados layer.
const DefaultURL = "https://ide.igp.gob.pe/arcgis/rest/services/monitoreocensis/SismosReportados/MapServer/0/query"

// Timeout bounds the outbound request to the feed.
const Timeout = 10 * time.Second

// Client is a HTTP client for the ArcGIS query endpoint
type Client struct {
	BaseURL    *url.URL
	HTTPClient *http.Client
}

// NewClient returns a Client pointed at ARCGIS_URL, or the IGP default if unset.
func NewClient(hc *http.Client) (*Client, error) {

	base, ok := os.LookupEnv("ARCGIS_URL")
	if !ok {
		base = DefaultURL
	}

	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("could not parse feed URL: %v", err)
	}

	return &Client{BaseURL: u, HTTPClient: hc}, nil
}

// FetchRecent returns up to limit features, most recent event first.
func (c *Client) FetchRecent(limit int) ([]gjson.Result, error) {

	if limit <= 0 {
		return nil, fmt.Errorf("invalid record limit: %v", limit)
	}

	q := url.Values{}
	q.Set("f", "json")
	q.Set("where", "1=1")
	q.Set("outFields", "*")
	q.Set("orderByFields", "fechaevento DESC")
	q.Set("resultRecordCount", strconv.Itoa(limit))
	q.Set("returnGeometry", "false")

	u := *c.BaseURL
	u.RawQuery = q.Encode()

	resp, err := c.HTTPClient.Get(u.String())
	if err != nil {
		return nil, fmt.Errorf("could not fetch from feed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("feed returned status: %v", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read feed response: %v", err)
	}

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("feed response is not valid JSON")
	}

	return gjson.GetBytes(body, "features").Array(), nil
}
