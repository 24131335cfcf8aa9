package production

import (
	"fmt"
	"strings"
	"time"
)

// minYear is the earliest accepted publication year.
const minYear = 1900

// Normalise trims text fields and numbers authors in list order.
func Normalise(p *Production) {
	p.RecordID = strings.TrimSpace(p.RecordID)
	p.ProjectCode = strings.TrimSpace(p.ProjectCode)
	p.Title = strings.TrimSpace(p.Title)
	p.Type = strings.TrimSpace(p.Type)
	p.Venue = strings.TrimSpace(p.Venue)
	for i := range p.Authors {
		p.Authors[i].CPF = strings.TrimSpace(p.Authors[i].CPF)
		p.Authors[i].Order = i + 1
	}
}

// Validate checks a production and its author list.
func Validate(p *Production, now time.Time) error {
	if p.RecordID == "" {
		return fmt.Errorf("%w: record id is required", ErrInvalidProduction)
	}
	if p.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidProduction)
	}
	if p.Type == "" {
		return fmt.Errorf("%w: type is required", ErrInvalidProduction)
	}
	if p.Year < minYear || p.Year > now.Year()+1 {
		return fmt.Errorf("%w: publication year must be between %d and %d", ErrInvalidProduction, minYear, now.Year()+1)
	}

	seen := make(map[string]bool, len(p.Authors))
	for _, a := range p.Authors {
		if a.CPF == "" {
			return fmt.Errorf("%w: author cpf is required", ErrInvalidProduction)
		}
		if seen[a.CPF] {
			return fmt.Errorf("%w: author %s listed twice", ErrInvalidProduction, a.CPF)
		}
		seen[a.CPF] = true
	}
	return nil
}

// AuthorsFromCPFs builds an ordered author list.
func AuthorsFromCPFs(cpfs []string) []Author {
	authors := make([]Author, len(cpfs))
	for i, cpf := range cpfs {
		authors[i] = Author{CPF: cpf, Order: i + 1}
	}
	return authors
}

func (u Update) apply(p *Production) {
	if u.ProjectCode != nil {
		p.ProjectCode = *u.ProjectCode
	}
	if u.Title != nil {
		p.Title = *u.Title
	}
	if u.Type != nil {
		p.Type = *u.Type
	}
	if u.Year != nil {
		p.Year = *u.Year
	}
	if u.Venue != nil {
		p.Venue = *u.Venue
	}
	if u.Authors != nil {
		p.Authors = AuthorsFromCPFs(u.Authors)
	}
}
