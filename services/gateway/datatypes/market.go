// Copyright (C) 2026 SkySage AI (dev@skysage.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package datatypes

// Market analysis request/response shapes proxied through the gateway.
// Like chat, failures surface in band through the Error field with an
// HTTP 200, so dashboard clients have a single rendering path.

// =============================================================================
// Aircraft Models
// =============================================================================

// AircraftModelsResponse is the body of GET /api/aircraft-models.
type AircraftModelsResponse struct {
	Models []string `json:"models"`
	Error  *string  `json:"error,omitempty"`
}

// =============================================================================
// Market Comparison
// =============================================================================

// MarketComparisonRequest is the body of POST /api/market-comparison.
type MarketComparisonRequest struct {
	Models   []string `json:"models" validate:"required,min=1"`
	Region   string   `json:"region,omitempty"`
	MaxHours *float64 `json:"max_hours,omitempty" validate:"omitempty,gte=0"`
	MinYear  *int     `json:"min_year,omitempty"`
	MaxYear  *int     `json:"max_year,omitempty"`
	Limit    int      `json:"limit,omitempty" validate:"omitempty,gte=1,lte=200"`
}

// Validate checks structural requirements on the request.
func (r *MarketComparisonRequest) Validate() error {
	return validate.Struct(r)
}

// MarketComparisonRow is one aircraft listing in a comparison result.
// Pointer fields distinguish absent values from zeros.
type MarketComparisonRow struct {
	Manufacturer     string   `json:"manufacturer,omitempty"`
	Model            string   `json:"model,omitempty"`
	ManufacturerYear *int     `json:"manufacturer_year,omitempty"`
	AskPrice         *float64 `json:"ask_price,omitempty"`
	SoldPrice        *float64 `json:"sold_price,omitempty"`
	AirframeHours    *float64 `json:"airframe_total_time,omitempty"`
	Location         string   `json:"location,omitempty"`
	BasedAt          string   `json:"based_at,omitempty"`
	ListingStatus    string   `json:"listing_status,omitempty"`
	DaysOnMarket     *int     `json:"days_on_market,omitempty"`
	SourcePlatform   string   `json:"source_platform,omitempty"`
}

// MarketComparisonResponse is the body of POST /api/market-comparison.
type MarketComparisonResponse struct {
	Rows    []MarketComparisonRow `json:"rows"`
	Summary string                `json:"summary"`
	Error   *string               `json:"error,omitempty"`
}

// =============================================================================
// Price Estimate
// =============================================================================

// PriceEstimateRequest is the body of POST /api/price-estimate.
type PriceEstimateRequest struct {
	Manufacturer string   `json:"manufacturer,omitempty"`
	Model        string   `json:"model" validate:"required"`
	Year         *int     `json:"year,omitempty"`
	FlightHours  *float64 `json:"flight_hours,omitempty" validate:"omitempty,gte=0"`
	FlightCycles *int     `json:"flight_cycles,omitempty" validate:"omitempty,gte=0"`
	Region       string   `json:"region,omitempty"`
}

// Validate checks structural requirements on the request.
func (r *PriceEstimateRequest) Validate() error {
	return validate.Struct(r)
}

// PriceBreakdownItem is one line of a price estimate breakdown.
type PriceBreakdownItem struct {
	Label         string   `json:"label"`
	ValueMillions *float64 `json:"value_millions,omitempty"`
}

// PriceEstimateResponse is the body of POST /api/price-estimate.
type PriceEstimateResponse struct {
	EstimatedValueMillions *float64             `json:"estimated_value_millions"`
	RangeLowMillions       *float64             `json:"range_low_millions"`
	RangeHighMillions      *float64             `json:"range_high_millions"`
	ConfidencePct          float64              `json:"confidence_pct"`
	MarketDemand           string               `json:"market_demand"`
	VsAveragePct           *float64             `json:"vs_average_pct"`
	TimeToSaleDays         *int                 `json:"time_to_sale_days"`
	Breakdown              []PriceBreakdownItem `json:"breakdown"`
	Error                  *string              `json:"error,omitempty"`
	Message                *string              `json:"message,omitempty"`
}

// =============================================================================
// Resale Advisory
// =============================================================================

// ResaleAdvisoryRequest is the body of POST /api/resale-advisory.
// Either a free-form query or a specific aircraft reference is accepted.
type ResaleAdvisoryRequest struct {
	Query        string `json:"query,omitempty"`
	ListingID    string `json:"listing_id,omitempty"`
	Manufacturer string `json:"manufacturer,omitempty"`
	Model        string `json:"model,omitempty"`
	Year         *int   `json:"year,omitempty"`
}

// ResaleAdvisoryResponse is the body of POST /api/resale-advisory.
type ResaleAdvisoryResponse struct {
	Insight string      `json:"insight"`
	Sources []SourceRef `json:"sources,omitempty"`
	Error   *string     `json:"error,omitempty"`
}
