package domain

import "time"

// Vehicle is a car registered to a user's account
type Vehicle struct {
	ID           string    `json:"id"`
	LicensePlate string    `json:"license_plate"`
	State        string    `json:"state"`
	Make         string    `json:"make,omitempty"`
	Model        string    `json:"model,omitempty"`
	Color        string    `json:"color,omitempty"`
	Nickname     string    `json:"nickname,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// VehicleInput carries the mutable fields of a vehicle
type VehicleInput struct {
	LicensePlate string `json:"license_plate"`
	State        string `json:"state"`
	Make         string `json:"make,omitempty"`
	Model        string `json:"model,omitempty"`
	Color        string `json:"color,omitempty"`
	Nickname     string `json:"nickname,omitempty"`
}
