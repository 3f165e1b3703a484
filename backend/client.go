package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client exposes the backend endpoints used by the tools.
type Client struct {
	caller           Caller
	optimizerTimeout time.Duration
}

type ClientOpts struct {
	// OptimizerTimeout overrides the extended timeout of diet optimization calls.
	OptimizerTimeout time.Duration
}

func NewClient(caller Caller, opts ClientOpts) *Client {
	if opts.OptimizerTimeout <= 0 {
		opts.OptimizerTimeout = OptimizerTimeout
	}
	return &Client{caller: caller, optimizerTimeout: opts.OptimizerTimeout}
}

func (c *Client) Countries(ctx context.Context) ([]Country, error) {
	var out []Country
	err := c.call(ctx, http.MethodGet, "/auth/countries", nil, 0, &out, "countries")
	return out, err
}

func (c *Client) Breeds(ctx context.Context, countryID string) ([]Breed, error) {
	var out struct {
		Breeds []Breed `json:"breeds"`
	}
	err := c.call(ctx, http.MethodGet, "/auth/breeds/"+url.PathEscape(countryID), nil, 0, &out, "breeds")
	return out.Breeds, err
}

func (c *Client) CreateCow(ctx context.Context, cow CowProfile) (CowProfile, error) {
	var out CowProfile
	err := c.call(ctx, http.MethodPost, "/cow-profiles/", cow, 0, &out, "cow profile")
	return out, err
}

func (c *Client) ListCows(ctx context.Context, ownerID string) ([]CowProfile, error) {
	q := url.Values{"include_inactive": {"false"}}
	var out struct {
		Cows []CowProfile `json:"cow_profiles"`
	}
	err := c.call(ctx, http.MethodGet, "/cow-profiles/user/"+url.PathEscape(ownerID)+"?"+q.Encode(), nil, 0, &out, "cow profiles")
	return out.Cows, err
}

func (c *Client) GetCow(ctx context.Context, cowID, ownerID string) (CowProfile, error) {
	q := url.Values{"telegram_user_id": {ownerID}}
	var out CowProfile
	err := c.call(ctx, http.MethodGet, "/cow-profiles/detail/"+url.PathEscape(cowID)+"?"+q.Encode(), nil, 0, &out, "cow profile")
	return out, err
}

func (c *Client) UpdateCow(ctx context.Context, cowID, ownerID string, update CowUpdate) (CowProfile, error) {
	q := url.Values{"telegram_user_id": {ownerID}}
	var out CowProfile
	err := c.call(ctx, http.MethodPut, "/cow-profiles/"+url.PathEscape(cowID)+"?"+q.Encode(), update, 0, &out, "cow profile")
	return out, err
}

// DeleteCow deactivates the cow, or removes it for good when hard is set.
// The response body is not used.
func (c *Client) DeleteCow(ctx context.Context, cowID, ownerID string, hard bool) error {
	q := url.Values{"telegram_user_id": {ownerID}, "hard_delete": {strconv.FormatBool(hard)}}
	_, err := c.caller.Call(ctx, http.MethodDelete, "/cow-profiles/"+url.PathEscape(cowID)+"?"+q.Encode(), nil, 0)
	return err
}

func (c *Client) Feeds(ctx context.Context, countryID string) ([]FeedCatalogEntry, error) {
	var out []FeedCatalogEntry
	err := c.call(ctx, http.MethodGet, "/feeds/master-feeds/"+url.PathEscape(countryID), nil, 0, &out, "feed catalog")
	return out, err
}

// Optimize invokes the diet optimizer with the extended timeout. The response
// shape is not fixed, so it is returned undecoded.
func (c *Client) Optimize(ctx context.Context, req OptimizerRequest) (json.RawMessage, error) {
	return c.caller.Call(ctx, http.MethodPost, "/diet-recommendation-working/", req, c.optimizerTimeout)
}

func (c *Client) CreateDiet(ctx context.Context, rec DietRecord) (DietRecord, error) {
	var out DietRecord
	err := c.call(ctx, http.MethodPost, "/bot-diet-history/", rec, 0, &out, "diet record")
	return out, err
}

func (c *Client) GetDiet(ctx context.Context, dietID string) (DietRecord, error) {
	var out DietRecord
	err := c.call(ctx, http.MethodGet, "/bot-diet-history/"+url.PathEscape(dietID), nil, 0, &out, "diet record")
	return out, err
}

func (c *Client) ListDiets(ctx context.Context, ownerID, cowID string) ([]DietRecord, error) {
	path := "/bot-diet-history/user/" + url.PathEscape(ownerID)
	if cowID != "" {
		path += "?" + url.Values{"cow_profile_id": {cowID}}.Encode()
	}
	var out struct {
		Diets []DietRecord `json:"diets"`
	}
	err := c.call(ctx, http.MethodGet, path, nil, 0, &out, "diet history")
	return out.Diets, err
}

func (c *Client) ActiveDiet(ctx context.Context, cowID, ownerID string) (DietRecord, error) {
	q := url.Values{"telegram_user_id": {ownerID}}
	var out DietRecord
	err := c.call(ctx, http.MethodGet, "/bot-diet-history/active/"+url.PathEscape(cowID)+"?"+q.Encode(), nil, 0, &out, "active diet")
	return out, err
}

func (c *Client) UpdateDietStatus(ctx context.Context, dietID, ownerID string, update DietStatusUpdate) (DietRecord, error) {
	q := url.Values{"telegram_user_id": {ownerID}}
	var out DietRecord
	err := c.call(ctx, http.MethodPut, "/bot-diet-history/"+url.PathEscape(dietID)+"?"+q.Encode(), update, 0, &out, "diet record")
	return out, err
}

func (c *Client) CreateFollowUp(ctx context.Context, entry FollowUpEntry) (FollowUpEntry, error) {
	var out FollowUpEntry
	err := c.call(ctx, http.MethodPost, "/follow-up-logs/", entry, 0, &out, "follow-up entry")
	return out, err
}

func (c *Client) call(ctx context.Context, method, path string, in any, timeout time.Duration, out any, what string) error {
	raw, err := c.caller.Call(ctx, method, path, in, timeout)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", ErrUnavailable, what, err)
	}
	return nil
}
