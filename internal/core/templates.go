package core

import "strings"

// Category suggestions offered by entry forms. Not enforced.
var SuggestedCategories = []string{
	"Project payment",
	"Salary",
	"Rent",
	"Outsourcing",
	"Hardware/Software",
	"Misc",
}

// QuickTemplate pre-fills the type, category and note of the next transaction.
type QuickTemplate struct {
	Name     string `json:"name"`
	Type     TxType `json:"type"`
	Category string `json:"category"`
	Note     string `json:"note"`
}

var DefaultTemplates = []QuickTemplate{
	{Name: "rent", Type: Expense, Category: "Rent", Note: "Monthly office rent"},
	{Name: "salary", Type: Expense, Category: "Salary", Note: "Monthly payroll"},
	{Name: "software", Type: Expense, Category: "Hardware/Software", Note: "Software subscription"},
	{Name: "outsourcing", Type: Expense, Category: "Outsourcing", Note: "Contractor invoice"},
	{Name: "project-payment", Type: Income, Category: "Project payment", Note: "Milestone payment received"},
}

// FindTemplate looks a template up by name, case-insensitively.
func FindTemplate(name string) (QuickTemplate, bool) {
	name = strings.TrimSpace(name)
	for _, t := range DefaultTemplates {
		if strings.EqualFold(t.Name, name) {
			return t, true
		}
	}
	return QuickTemplate{}, false
}

// Fill sets any blank field to the template's value. Fields the user already
// typed are left alone.
func (t QuickTemplate) Fill(typ, category, note *string) {
	if strings.TrimSpace(*typ) == "" {
		*typ = string(t.Type)
	}
	if strings.TrimSpace(*category) == "" {
		*category = t.Category
	}
	if strings.TrimSpace(*note) == "" {
		*note = t.Note
	}
}
