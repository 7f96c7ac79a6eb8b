package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

const (
	remoteStorageURL        = "https://api.steampowered.com/ISteamRemoteStorage/GetPublishedFileDetails/v1/"
	publishedFileServiceURL = "https://api.steampowered.com/IPublishedFileService/GetDetails/v1/"

	requestTimeout = 20 * time.Second

	// Steam EResult for a successful per-item lookup.
	resultOK = 1
)

// ErrUnauthorized is returned when the API rejects the request outright
// (bad or missing key). It fails the whole fetch: no amount of retrying
// within this run can recover.
var ErrUnauthorized = errors.New("steam: request rejected by api")

// errThrottled marks responses that are worth retrying (429, 5xx).
var errThrottled = errors.New("steam: throttled")

// Backend answers one batch query against a concrete Steam endpoint.
// Implementations are chosen at construction time by configuration, never by
// runtime type inspection.
type Backend interface {
	Name() string
	FetchBatch(ctx context.Context, ids []string) (FetchResult, error)
}

type httpBackend struct {
	name   string
	url    string
	key    string
	client *http.Client
}

// NewPublishedFileServiceBackend uses IPublishedFileService/GetDetails, which
// requires a Steam Web API key.
func NewPublishedFileServiceBackend(key string) Backend {
	return &httpBackend{
		name:   "published_file_service",
		url:    publishedFileServiceURL,
		key:    key,
		client: &http.Client{Timeout: requestTimeout},
	}
}

// NewRemoteStorageBackend uses the keyless
// ISteamRemoteStorage/GetPublishedFileDetails fallback. The upstream endpoint
// accepts batches as well; single-id use is just the degenerate batch.
func NewRemoteStorageBackend() Backend {
	return &httpBackend{
		name:   "remote_storage",
		url:    remoteStorageURL,
		client: &http.Client{Timeout: requestTimeout},
	}
}

func (b *httpBackend) Name() string { return b.name }

type apiDetail struct {
	PublishedFileID string `json:"publishedfileid"`
	Result          int    `json:"result"`
	Title           string `json:"title"`
	TimeCreated     int64  `json:"time_created"`
	TimeUpdated     int64  `json:"time_updated"`
	Tags            []struct {
		Tag string `json:"tag"`
	} `json:"tags"`
	Children []struct {
		PublishedFileID string `json:"publishedfileid"`
	} `json:"children"`
}

type apiResponse struct {
	Response struct {
		PublishedFileDetails []apiDetail `json:"publishedfiledetails"`
	} `json:"response"`
}

func (b *httpBackend) FetchBatch(ctx context.Context, ids []string) (FetchResult, error) {
	params := url.Values{}
	params.Set("itemcount", strconv.Itoa(len(ids)))
	params.Set("includechildren", "true")
	for i, id := range ids {
		params.Set(fmt.Sprintf("publishedfileids[%d]", i), id)
	}
	if b.key != "" {
		params.Set("key", b.key)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.url+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("steam: build request: %w", err)
	}

	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("steam: %s: %w", b.name, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: http %d", ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: http %d", errThrottled, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("steam: %s: unexpected http %d", b.name, resp.StatusCode)
	}

	var body apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", errThrottled, err)
	}

	out := make(FetchResult, len(ids))
	for _, d := range body.Response.PublishedFileDetails {
		if d.Result != resultOK {
			out[d.PublishedFileID] = Result{Status: StatusNotFound}
			continue
		}
		detail := Detail{
			ID:          d.PublishedFileID,
			Title:       d.Title,
			TimeCreated: d.TimeCreated,
			TimeUpdated: d.TimeUpdated,
		}
		for _, t := range d.Tags {
			detail.Tags = append(detail.Tags, t.Tag)
		}
		for _, c := range d.Children {
			detail.Children = append(detail.Children, c.PublishedFileID)
		}
		out[d.PublishedFileID] = Result{Status: StatusOK, Detail: detail}
	}
	// Ids the API silently dropped from the response no longer exist.
	for _, id := range ids {
		if _, ok := out[id]; !ok {
			out[id] = Result{Status: StatusNotFound}
		}
	}
	return out, nil
}
