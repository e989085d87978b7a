package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Address struct {
	Street     string `json:"street"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country,omitempty"`
}

type Worker struct {
	ID                int64           `json:"id"`
	FirstName         string          `json:"first_name"`
	LastName          string          `json:"last_name"`
	Email             string          `json:"email"`
	Phone             string          `json:"phone"`
	HourlyRate        decimal.Decimal `json:"hourly_rate"`
	Rating            float64         `json:"rating"`
	YearsOfExperience int             `json:"years_of_experience"`
	Bio               string          `json:"bio,omitempty"`
	Address           *Address        `json:"address,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

func (w *Worker) DisplayName() string {
	switch {
	case w.FirstName == "":
		return w.LastName
	case w.LastName == "":
		return w.FirstName
	default:
		return w.FirstName + " " + w.LastName
	}
}

type Service struct {
	ID          int64           `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Fee         decimal.Decimal `json:"fee"`
	TotalJobs   int             `json:"total_jobs"`
	CreatedAt   time.Time       `json:"created_at"`
}

type Review struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customer_id"`
	WorkerID   int64     `json:"worker_id"`
	Rating     int       `json:"rating"`
	Comment    string    `json:"comment"`
	CreatedAt  time.Time `json:"created_at"`
}

// StatusTransition is one row of the append-only transition log.
type StatusTransition struct {
	ID       int64     `json:"id"`
	Entity   string    `json:"entity"`
	EntityID int64     `json:"entity_id"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	At       time.Time `json:"at"`
}
