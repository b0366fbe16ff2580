package models

// SubmittedOnLayout is the wall-clock format stored in the submitted_on column.
const SubmittedOnLayout = "2006-01-02 15:04:05"

// Booking is one demo/visit booking record.
type Booking struct {
	ID             int64  `json:"id"`
	CustomerName   string `json:"customer_name"`
	Country        string `json:"country"`
	ProductName    string `json:"product_name"`
	RequestedBy    string `json:"requested_by"`
	Purpose        string `json:"purpose"`
	DateOfEvent    string `json:"date_of_event"`
	User           string `json:"user"`
	CompetitorName string `json:"competitor_name"`
	SubmittedBy    string `json:"submitted_by"`
	SubmittedOn    string `json:"submitted_on"`
}

// BookingFields carries the eight editable fields of a booking.
// SubmittedBy and SubmittedOn are stamped at creation and never touched
// by an update.
type BookingFields struct {
	CustomerName   string `json:"customer_name"`
	Country        string `json:"country"`
	ProductName    string `json:"product_name"`
	RequestedBy    string `json:"requested_by"`
	Purpose        string `json:"purpose"`
	DateOfEvent    string `json:"date_of_event"`
	User           string `json:"user"`
	CompetitorName string `json:"competitor_name"`
}

// DashboardCounts is the aggregate view shown after login.
type DashboardCounts struct {
	Total     int `json:"total"`
	Malaysia  int `json:"malaysia"`
	Singapore int `json:"singapore"`
}
