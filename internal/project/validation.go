package project

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// maxCodeLength is the longest project code accepted.
const maxCodeLength = 20

// Normalise trims text fields and defaults the status.
func Normalise(p *Project) {
	p.Code = strings.TrimSpace(p.Code)
	p.Title = strings.TrimSpace(p.Title)
	p.Description = strings.TrimSpace(p.Description)
	p.StartDate = strings.TrimSpace(p.StartDate)
	p.EndDate = strings.TrimSpace(p.EndDate)
	p.CoordinatorCPF = strings.TrimSpace(p.CoordinatorCPF)
	if p.Status == "" {
		p.Status = StatusInProgress
	}
}

// Validate checks the stored fields of p.
func Validate(p *Project) error {
	if p.Code == "" || utf8.RuneCountInString(p.Code) > maxCodeLength {
		return fmt.Errorf("%w: code is required and must be at most %d characters", ErrInvalidProject, maxCodeLength)
	}
	if p.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidProject)
	}
	if !p.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidProject, p.Status)
	}
	if p.CoordinatorCPF == "" {
		return ErrInvalidCoordinator
	}
	return ValidatePeriod(p.StartDate, p.EndDate)
}

// ValidatePeriod checks a required start date and an optional end date not
// before it.
func ValidatePeriod(start, end string) error {
	s, err := time.Parse(time.DateOnly, start)
	if err != nil {
		return fmt.Errorf("%w: start date must be YYYY-MM-DD", ErrInvalidProject)
	}
	if end == "" {
		return nil
	}
	e, err := time.Parse(time.DateOnly, end)
	if err != nil {
		return fmt.Errorf("%w: end date must be YYYY-MM-DD", ErrInvalidProject)
	}
	if e.Before(s) {
		return fmt.Errorf("%w: end date is before start date", ErrInvalidProject)
	}
	return nil
}

func validateMembership(m *Membership) error {
	m.Function = strings.TrimSpace(m.Function)
	if m.Function == "" {
		return fmt.Errorf("%w: function is required", ErrInvalidProject)
	}
	return ValidatePeriod(m.EntryDate, m.ExitDate)
}

func validateAllocation(a *Allocation) error {
	if strings.TrimSpace(a.GrantCode) == "" {
		return fmt.Errorf("%w: grant code is required", ErrInvalidProject)
	}
	if a.AllocatedAmount < 0 {
		return fmt.Errorf("%w: allocated amount must not be negative", ErrInvalidProject)
	}
	return nil
}

// apply merges u into p.
func (u Update) apply(p *Project) {
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.StartDate != nil {
		p.StartDate = *u.StartDate
	}
	if u.EndDate != nil {
		p.EndDate = *u.EndDate
	}
	if u.Status != nil {
		p.Status = *u.Status
	}
	if u.CoordinatorCPF != nil {
		p.CoordinatorCPF = *u.CoordinatorCPF
	}
}
