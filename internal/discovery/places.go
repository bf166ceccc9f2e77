package discovery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"prospector_backend/internal/settings"
	"prospector_backend/platform/logger"
)

const (
	placesSearchURL = "https://places.googleapis.com/v1/places:searchText"
	placesFieldMask = "places.id,places.displayName,places.formattedAddress,places.nationalPhoneNumber," +
		"places.internationalPhoneNumber,places.websiteUri,places.rating,places.userRatingCount,places.photos,nextPageToken"
	placesTimeout  = 15 * time.Second
	placesMaxPages = 3
	placesPageSize = 20
)

// PlacesClient queries the Google Places Text Search API.
type PlacesClient struct {
	apiKey  string
	baseURL string
	client  *http.Client
	limiter *rate.Limiter
	log     *logger.Logger
}

func NewPlacesClient(apiKey string, log *logger.Logger) *PlacesClient {
	return &PlacesClient{
		apiKey:  apiKey,
		baseURL: placesSearchURL,
		client:  &http.Client{Timeout: placesTimeout},
		limiter: rate.NewLimiter(rate.Every(200*time.Millisecond), 1),
		log:     log,
	}
}

// WithBaseURL points the client at another endpoint.
func (p *PlacesClient) WithBaseURL(baseURL string) *PlacesClient {
	p.baseURL = baseURL
	return p
}

type placesRequest struct {
	TextQuery string `json:"textQuery"`
	PageSize  int    `json:"pageSize,omitempty"`
	PageToken string `json:"pageToken,omitempty"`
}

type placesResponse struct {
	Places        []placeResult `json:"places"`
	NextPageToken string        `json:"nextPageToken"`
}

type placeResult struct {
	ID          string `json:"id"`
	DisplayName struct {
		Text string `json:"text"`
	} `json:"displayName"`
	FormattedAddress         string            `json:"formattedAddress"`
	NationalPhoneNumber      string            `json:"nationalPhoneNumber"`
	InternationalPhoneNumber string            `json:"internationalPhoneNumber"`
	WebsiteURI               string            `json:"websiteUri"`
	Rating                   *float64          `json:"rating"`
	UserRatingCount          int               `json:"userRatingCount"`
	Photos                   []json.RawMessage `json:"photos"`
}

// Search returns up to three pages of results for "<category> in <location>".
func (p *PlacesClient) Search(ctx context.Context, target settings.ScanTarget) ([]Business, error) {
	query := strings.TrimSpace(target.Category + " in " + target.Location)
	var out []Business
	token := ""
	for page := 0; page < placesMaxPages; page++ {
		resp, err := p.searchPage(ctx, placesRequest{TextQuery: query, PageSize: placesPageSize, PageToken: token})
		if err != nil {
			return out, err
		}
		for _, place := range resp.Places {
			out = append(out, toBusiness(place))
		}
		if resp.NextPageToken == "" {
			break
		}
		token = resp.NextPageToken
	}
	p.log.Debug("places search finished", "query", query, "results", len(out))
	return out, nil
}

func (p *PlacesClient) searchPage(ctx context.Context, body placesRequest) (placesResponse, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return placesResponse{}, err
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return placesResponse{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL, bytes.NewReader(payload))
	if err != nil {
		return placesResponse{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", p.apiKey)
	req.Header.Set("X-Goog-FieldMask", placesFieldMask)

	resp, err := p.client.Do(req)
	if err != nil {
		p.log.Error("places request failed", "error", err)
		return placesResponse{}, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		p.log.Error("places upstream error", "status", resp.StatusCode)
		return placesResponse{}, fmt.Errorf("places api error %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var decoded placesResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return placesResponse{}, fmt.Errorf("decode places response: %w", err)
	}
	return decoded, nil
}

func toBusiness(place placeResult) Business {
	phone := place.InternationalPhoneNumber
	if phone == "" {
		phone = place.NationalPhoneNumber
	}
	raw, _ := json.Marshal(place)
	return Business{
		ExternalID:  "places:" + place.ID,
		Name:        place.DisplayName.Text,
		Address:     place.FormattedAddress,
		Phone:       phone,
		Website:     place.WebsiteURI,
		Rating:      place.Rating,
		ReviewCount: place.UserRatingCount,
		HasPhotos:   len(place.Photos) > 0,
		Raw:         raw,
	}
}
