package entities

type CarRequest struct {
	Brand       string   `json:"brand"`
	Model       string   `json:"model"`
	Year        int      `json:"year"`
	City        string   `json:"city"`
	PricePerDay int      `json:"price_per_day"`
	Type        string   `json:"type,omitempty"`
	Photos      []string `json:"photos,omitempty"`
}

type CarUpdateRequest struct {
	Brand        *string  `json:"brand,omitempty"`
	Model        *string  `json:"model,omitempty"`
	Year         *int     `json:"year,omitempty"`
	City         *string  `json:"city,omitempty"`
	PricePerDay  *int     `json:"price_per_day,omitempty"`
	Type         *string  `json:"type,omitempty"`
	Photos       []string `json:"photos,omitempty"`
	Availability *bool    `json:"availability,omitempty"`
}

// CarSearchFilters narrows the catalog listing. When StartDate and EndDate
// are both set, cars with an overlapping pending or confirmed reservation
// are excluded.
type CarSearchFilters struct {
	City      string
	Type      string
	MinPrice  int
	MaxPrice  int
	StartDate string
	EndDate   string
}
