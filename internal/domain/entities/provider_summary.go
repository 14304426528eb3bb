package entities

// ProviderSummary is the read-only projection of a catalog entity shown in every view
type ProviderSummary struct {
	ID               string             `json:"id"`
	DisplayName      string             `json:"display_name"`
	Title            string             `json:"title,omitempty"`
	Specializations  []string           `json:"specializations,omitempty"`
	Languages        []string           `json:"languages,omitempty"`
	AvailabilityTags []string           `json:"availability_tags,omitempty"`
	Rating           float64            `json:"rating"`
	ReviewCount      int                `json:"review_count"`
	Locations        []ProviderLocation `json:"locations,omitempty"`
	MediaURLs        []string           `json:"media_urls,omitempty"`
}

// ProviderLocation is a practice address, optionally geocoded
type ProviderLocation struct {
	Label       string    `json:"label"`
	City        string    `json:"city,omitempty"`
	Coordinates *Location `json:"coordinates,omitempty"`
}

// Location represents geographical coordinates
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ProviderDetail is the full profile loaded on demand for the detail view
type ProviderDetail struct {
	ProviderSummary
	Bio          string   `json:"bio,omitempty"`
	Approaches   []string `json:"approaches,omitempty"`
	PhoneNumber  string   `json:"phone_number,omitempty"`
	Email        string   `json:"email,omitempty"`
	Website      string   `json:"website,omitempty"`
	SessionTypes []string `json:"session_types,omitempty"`
}

// ResultPage is one successful catalog response
type ResultPage struct {
	Items      []ProviderSummary `json:"items"`
	TotalCount int               `json:"total_count"`
	Page       int               `json:"page"`
}

// Clone returns a copy whose item slice is not shared with p
func (p *ResultPage) Clone() *ResultPage {
	if p == nil {
		return nil
	}
	items := make([]ProviderSummary, len(p.Items))
	copy(items, p.Items)
	return &ResultPage{Items: items, TotalCount: p.TotalCount, Page: p.Page}
}
