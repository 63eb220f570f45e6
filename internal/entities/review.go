package entities

import "time"

type ReviewRequest struct {
	CarID   string `json:"car_id"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

type ReviewResponse struct {
	ID         string    `json:"id"`
	CarID      string    `json:"car_id"`
	CustomerID string    `json:"customer_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
