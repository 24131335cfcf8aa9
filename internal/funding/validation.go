package funding

import (
	"fmt"
	"strings"
	"time"
)

// NormaliseAgency trims fields and uppercases the acronym.
func NormaliseAgency(a *Agency) {
	a.Acronym = strings.ToUpper(strings.TrimSpace(a.Acronym))
	a.Name = strings.TrimSpace(a.Name)
}

// ValidateAgency checks an agency before it is written.
func ValidateAgency(a *Agency) error {
	if a.Acronym == "" || a.Name == "" {
		return fmt.Errorf("%w: agency acronym and name are required", ErrInvalidGrant)
	}
	return nil
}

// NormaliseGrant trims text fields.
func NormaliseGrant(g *Grant) {
	g.ProcessCode = strings.TrimSpace(g.ProcessCode)
	g.AgencyAcronym = strings.ToUpper(strings.TrimSpace(g.AgencyAcronym))
	g.FundingType = strings.TrimSpace(g.FundingType)
	g.StartDate = strings.TrimSpace(g.StartDate)
	g.EndDate = strings.TrimSpace(g.EndDate)
}

// ValidateGrant checks amounts and the funding period.
func ValidateGrant(g *Grant) error {
	if g.ProcessCode == "" {
		return fmt.Errorf("%w: process code is required", ErrInvalidGrant)
	}
	if g.AgencyAcronym == "" {
		return fmt.Errorf("%w: agency is required", ErrInvalidGrant)
	}
	if g.FundingType == "" {
		return fmt.Errorf("%w: funding type is required", ErrInvalidGrant)
	}
	if g.TotalAmount < 0 {
		return fmt.Errorf("%w: total amount must not be negative", ErrInvalidGrant)
	}

	start, err := time.Parse(time.DateOnly, g.StartDate)
	if err != nil {
		return fmt.Errorf("%w: start date must be YYYY-MM-DD", ErrInvalidGrant)
	}
	end, err := time.Parse(time.DateOnly, g.EndDate)
	if err != nil {
		return fmt.Errorf("%w: end date must be YYYY-MM-DD", ErrInvalidGrant)
	}
	if end.Before(start) {
		return fmt.Errorf("%w: end date is before start date", ErrInvalidGrant)
	}
	return nil
}

func (u GrantUpdate) apply(g *Grant) {
	if u.AgencyAcronym != nil {
		g.AgencyAcronym = *u.AgencyAcronym
	}
	if u.FundingType != nil {
		g.FundingType = *u.FundingType
	}
	if u.TotalAmount != nil {
		g.TotalAmount = *u.TotalAmount
	}
	if u.StartDate != nil {
		g.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		g.EndDate = *u.EndDate
	}
}
