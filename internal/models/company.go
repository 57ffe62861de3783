package models

import "strings"

// Company is a customer billed through invoices.
type Company struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	State    string `json:"state"`
	IsActive bool   `json:"isActive"`
}

// CompanyInput creates or updates a company.
type CompanyInput struct {
	Name     string `json:"name" validate:"required,max=200"`
	State    string `json:"state" validate:"required,len=2,alpha"`
	IsActive bool   `json:"isActive"`
}

func (c *CompanyInput) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.State = upperTrim(c.State)
}

func (c *CompanyInput) Validate() error {
	return validateStruct(c).orNil()
}
