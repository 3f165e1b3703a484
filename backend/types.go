package backend

import "encoding/json"

// DefaultFeedPrice is used for feeds whose catalog entry has no baseline price.
const DefaultFeedPrice = 1.0

type Country struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Code     string `json:"country_code"`
	Currency string `json:"currency,omitempty"`
	Active   bool   `json:"is_active"`
}

type Breed struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

// CowProfile is a user-owned animal. OwnerID is the device/user identity that
// created it and never changes afterwards.
type CowProfile struct {
	ID                 string   `json:"id,omitempty"`
	OwnerID            string   `json:"telegram_user_id"`
	Name               string   `json:"name"`
	Breed              string   `json:"breed,omitempty"`
	BodyWeight         float64  `json:"body_weight"`
	Lactating          bool     `json:"lactating"`
	MilkProduction     float64  `json:"milk_production"`
	TargetMilkYield    *float64 `json:"target_milk_yield,omitempty"`
	DaysInMilk         *int     `json:"days_in_milk,omitempty"`
	Parity             *int     `json:"parity,omitempty"`
	DaysOfPregnancy    *int     `json:"days_of_pregnancy,omitempty"`
	MilkFatPercent     *float64 `json:"milk_fat_percent,omitempty"`
	MilkProteinPercent *float64 `json:"milk_protein_percent,omitempty"`
}

// CowUpdate carries the fields of a partial cow profile update. Nil fields are
// left unchanged.
type CowUpdate struct {
	Name            *string  `json:"name,omitempty"`
	BodyWeight      *float64 `json:"body_weight,omitempty"`
	Lactating       *bool    `json:"lactating,omitempty"`
	MilkProduction  *float64 `json:"milk_production,omitempty"`
	TargetMilkYield *float64 `json:"target_milk_yield,omitempty"`
	DaysInMilk      *int     `json:"days_in_milk,omitempty"`
	Parity          *int     `json:"parity,omitempty"`
	DaysOfPregnancy *int     `json:"days_of_pregnancy,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u CowUpdate) Empty() bool {
	return u == CowUpdate{}
}

// FeedCatalogEntry is one purchasable feed in a country's catalog. Older
// catalog rows use "id"/"name" instead of "feed_id"/"fd_name"; both decode.
type FeedCatalogEntry struct {
	ID            string   `json:"feed_id"`
	Name          string   `json:"fd_name"`
	LocalName     string   `json:"local_name,omitempty"`
	Category      string   `json:"fd_category,omitempty"`
	Type          string   `json:"fd_type,omitempty"`
	DryMatter     float64  `json:"fd_dm,omitempty"`
	CrudeProtein  float64  `json:"fd_cp,omitempty"`
	NDF           float64  `json:"fd_ndf,omitempty"`
	Fat           float64  `json:"fd_ee,omitempty"`
	Ash           float64  `json:"fd_ash,omitempty"`
	BaselinePrice *float64 `json:"baseline_price,omitempty"`
}

func (f *FeedCatalogEntry) UnmarshalJSON(data []byte) error {
	type plain FeedCatalogEntry
	var aux struct {
		plain
		AltID   string `json:"id"`
		AltName string `json:"name"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*f = FeedCatalogEntry(aux.plain)
	if f.ID == "" {
		f.ID = aux.AltID
	}
	if f.Name == "" {
		f.Name = aux.AltName
	}
	return nil
}

// Price returns the baseline price per kg, or DefaultFeedPrice when absent.
func (f FeedCatalogEntry) Price() float64 {
	if f.BaselinePrice != nil && *f.BaselinePrice > 0 {
		return *f.BaselinePrice
	}
	return DefaultFeedPrice
}

// CattleInfo is the biometrics snapshot sent to the optimizer.
type CattleInfo struct {
	BodyWeight      float64 `json:"body_weight"`
	Breed           string  `json:"breed"`
	Lactating       bool    `json:"lactating"`
	MilkProduction  float64 `json:"milk_production"`
	DaysInMilk      int     `json:"days_in_milk"`
	Parity          int     `json:"parity"`
	DaysOfPregnancy int     `json:"days_of_pregnancy"`
	MilkProtein     float64 `json:"tp_milk"`
	MilkFat         float64 `json:"fat_milk"`
	Temperature     float64 `json:"temperature"`
	Topography      string  `json:"topography"`
	Distance        float64 `json:"distance"`
	CalvingInterval int     `json:"calving_interval"`
	BodyWeightGain  float64 `json:"bw_gain"`
	BodyCondition   float64 `json:"bc_score"`
}

type FeedPrice struct {
	FeedID     string  `json:"feed_id"`
	PricePerKg float64 `json:"price_per_kg"`
}

// OptimizerRequest is sent once per diet generation and never stored.
type OptimizerRequest struct {
	SimulationID  string      `json:"simulation_id"`
	UserID        string      `json:"user_id"`
	CattleInfo    CattleInfo  `json:"cattle_info"`
	FeedSelection []FeedPrice `json:"feed_selection"`
}

type DietStatus string

const (
	DietCreated   DietStatus = "created"
	DietFollowing DietStatus = "following"
	DietArchived  DietStatus = "archived"
)

// DietLine is one feed of a generated diet.
type DietLine struct {
	FeedID     string  `json:"feed_id"`
	Name       string  `json:"name"`
	QuantityKg float64 `json:"quantity_kg"`
	Cost       float64 `json:"cost"`
}

type ScheduledFeed struct {
	Name       string  `json:"name"`
	QuantityKg float64 `json:"quantity_kg"`
}

// DietSchedule splits a daily diet into feeding times.
type DietSchedule struct {
	Morning []ScheduledFeed `json:"morning"`
	Evening []ScheduledFeed `json:"evening"`
}

// DietRecord is a persisted diet recommendation. Records created before owner
// tracking was added have an empty OwnerID; ownership then follows the cow.
type DietRecord struct {
	ID           string        `json:"id,omitempty"`
	OwnerID      string        `json:"telegram_user_id,omitempty"`
	CowID        string        `json:"cow_profile_id"`
	SimulationID string        `json:"simulation_id,omitempty"`
	Name         string        `json:"name,omitempty"`
	Status       DietStatus    `json:"status"`
	Active       bool          `json:"is_active"`
	Feeds        []DietLine    `json:"feeds,omitempty"`
	Summary      *DietSchedule `json:"diet_summary,omitempty"`
	TotalCost    float64       `json:"total_cost_per_day"`
	Currency     string        `json:"currency,omitempty"`
	CreatedAt    string        `json:"created_at,omitempty"`
}

type DietStatusUpdate struct {
	Status DietStatus `json:"status"`
	Active bool       `json:"is_active"`
}

const FollowUpPending = "pending"

type FollowUpEntry struct {
	ID          string `json:"id,omitempty"`
	OwnerID     string `json:"telegram_user_id"`
	DietID      string `json:"diet_history_id"`
	ScheduledAt string `json:"scheduled_at"`
	Status      string `json:"status"`
}
