package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// MaxCandidates caps every suggestion list.
const MaxCandidates = 5

// Candidate is one proposed match. Suggestions carry no score: ordering is the
// directory's natural name order and a missing match is not an error.
type Candidate struct {
	ID   snowflake.ID `json:"id"`
	Name string       `json:"name"`
}

type Suggestions struct {
	Customers  []Candidate `json:"customers"`
	Vendors    []Candidate `json:"vendors"`
	Categories []Candidate `json:"categories"`
}

// TopCustomer returns the first customer candidate, if any.
func (s Suggestions) TopCustomer() *Candidate {
	if len(s.Customers) == 0 {
		return nil
	}
	return &s.Customers[0]
}

func (s Suggestions) TopVendor() *Candidate {
	if len(s.Vendors) == 0 {
		return nil
	}
	return &s.Vendors[0]
}

func (s Suggestions) TopCategory() *Candidate {
	if len(s.Categories) == 0 {
		return nil
	}
	return &s.Categories[0]
}

// Empty reports whether no candidate of any kind was found.
func (s Suggestions) Empty() bool {
	return len(s.Customers) == 0 && len(s.Vendors) == 0 && len(s.Categories) == 0
}

type Service interface {
	// Suggest proposes customer, vendor and category candidates for a
	// free-text description. Read-only and advisory.
	Suggest(ctx context.Context, companyID snowflake.ID, description string, amountMinor int64) (Suggestions, error)
}

var ErrInvalidCompany = errors.New("invalid_company")
