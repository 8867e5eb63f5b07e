package gateway

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/DukeRupert/walkthrough/internal/domain"
)

// MinSearchLength is the shortest search term sent to the API.
const MinSearchLength = 3

// SearchResult is one hit from the global search endpoint.
type SearchResult struct {
	Type           string            `json:"type"`
	ID             domain.ExternalID `json:"id"`
	Title          string            `json:"title,omitempty"`
	Subtitle       string            `json:"subtitle,omitempty"`
	DisplayAddress string            `json:"displayAddress,omitempty"`
	Reference      string            `json:"reference,omitempty"`
}

type searchResponse struct {
	Results []SearchResult `json:"results"`
}

// SearchListings returns listing hits for term. Terms shorter than
// MinSearchLength are rejected without a request.
func (c *Client) SearchListings(ctx context.Context, term string) ([]SearchResult, error) {
	term = strings.TrimSpace(term)
	if len([]rune(term)) < MinSearchLength {
		return nil, domain.Invalid("gateway.search_listings", fmt.Sprintf("Search term must be at least %d characters", MinSearchLength))
	}

	params := url.Values{}
	params.Set("term", term)
	params.Set("searchListings", "1")

	var resp searchResponse
	if _, err := c.getJSON(ctx, "search_listings", "/global-search", params, &resp); err != nil {
		return nil, err
	}

	listings := make([]SearchResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		if r.Type == "listing" {
			listings = append(listings, r)
		}
	}
	return listings, nil
}

// GetListing fetches a listing record.
func (c *Client) GetListing(ctx context.Context, id domain.ExternalID) (*domain.Listing, error) {
	var listing domain.Listing
	ok, err := c.getJSON(ctx, "get_listing", "/listings/"+url.PathEscape(id.String()), nil, &listing)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("get listing %s: unexpected response", id)
	}
	return &listing, nil
}

// GetListingRooms fetches the rooms recorded against a listing. A reply
// that is not a list yields no rooms.
func (c *Client) GetListingRooms(ctx context.Context, id domain.ExternalID) ([]domain.ListingRoom, error) {
	var rooms []domain.ListingRoom
	ok, err := c.getJSON(ctx, "get_listing_rooms", "/listings/"+url.PathEscape(id.String())+"/rooms", nil, &rooms)
	if err != nil {
		return nil, err
	}
	if !ok || rooms == nil {
		return []domain.ListingRoom{}, nil
	}
	return rooms, nil
}

// GetTenancy returns the first active tenancy on a listing, or nil.
func (c *Client) GetTenancy(ctx context.Context, listingID domain.ExternalID) (*domain.Tenancy, error) {
	params := url.Values{}
	params.Set("listingId", listingID.String())
	params.Set("activeOnly", "1")

	var tenancies []domain.Tenancy
	ok, err := c.getJSON(ctx, "get_tenancy", "/tenancies", params, &tenancies)
	if err != nil {
		return nil, err
	}
	if !ok || len(tenancies) == 0 {
		return nil, nil
	}
	return &tenancies[0], nil
}

// DateRange bounds an inspection query, inclusive.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// LastDays returns the range ending on now and starting days earlier.
func LastDays(now time.Time, days int) DateRange {
	return DateRange{Start: now.AddDate(0, 0, -days), End: now}
}

// GetInspections lists inspections dated within r. A reply that is not a
// list yields no records.
func (c *Client) GetInspections(ctx context.Context, r DateRange) ([]domain.InspectionRecord, error) {
	params := url.Values{}
	params.Set("startDate", r.Start.Format(domain.DateLayout))
	params.Set("endDate", r.End.Format(domain.DateLayout))

	var records []domain.InspectionRecord
	ok, err := c.getJSON(ctx, "get_inspections", "/inspections", params, &records)
	if err != nil {
		return nil, err
	}
	if !ok || records == nil {
		return []domain.InspectionRecord{}, nil
	}
	return records, nil
}

// Property is a listing with its rooms and active tenancy.
type Property struct {
	Listing *domain.Listing
	Tenancy *domain.Tenancy
}

// LoadProperty fetches the listing, its rooms and its active tenancy
// concurrently. The first failure cancels the others and is returned.
func (c *Client) LoadProperty(ctx context.Context, id domain.ExternalID) (*Property, error) {
	var (
		listing *domain.Listing
		rooms   []domain.ListingRoom
		tenancy *domain.Tenancy
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		listing, err = c.GetListing(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		rooms, err = c.GetListingRooms(gctx, id)
		return err
	})
	g.Go(func() error {
		var err error
		tenancy, err = c.GetTenancy(gctx, id)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	listing.Rooms = rooms
	if listing.ID.IsZero() {
		listing.ID = id
	}
	return &Property{Listing: listing, Tenancy: tenancy}, nil
}
