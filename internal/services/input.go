package services

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"bizledger/internal/core"
	"bizledger/internal/ledger"
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrDuplicateProject = errors.New("project name already exists")
)

// ValidationError lists the offending fields. It matches ErrValidation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+" "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// TransactionInput is a transaction as submitted by a form or API client.
type TransactionInput struct {
	Date        string `json:"date" validate:"omitempty,ledgerdate"`
	Type        string `json:"type" validate:"required,txtype"`
	Category    string `json:"category" validate:"max=100"`
	Amount      string `json:"amount" validate:"required,amount"`
	Note        string `json:"note" validate:"max=500"`
	ProjectName string `json:"project_name" validate:"max=200"`
}

// TransactionEditInput carries the in-place editable transaction fields.
// Type and project are kept as stored. An empty date keeps the stored date.
type TransactionEditInput struct {
	Date     string `json:"date" validate:"omitempty,ledgerdate"`
	Category string `json:"category" validate:"max=100"`
	Amount   string `json:"amount" validate:"required,amount"`
	Note     string `json:"note" validate:"max=500"`
}

// ProjectInput is a new project. An empty start date means today.
type ProjectInput struct {
	Name        string `json:"name" validate:"required,max=200"`
	TotalBudget string `json:"total_budget" validate:"required,amount"`
	StartDate   string `json:"start_date" validate:"omitempty,ledgerdate"`
	EndDate     string `json:"end_date" validate:"omitempty,ledgerdate"`
	Status      string `json:"status" validate:"omitempty,projstatus"`
	Progress    int    `json:"progress" validate:"gte=0,lte=100"`
}

// ProjectFieldsInput carries the in-place editable project fields.
type ProjectFieldsInput struct {
	Status   string `json:"status" validate:"required,projstatus"`
	Progress int    `json:"progress" validate:"gte=0,lte=100"`
	EndDate  string `json:"end_date" validate:"omitempty,ledgerdate"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	must := func(tag string, fn validator.Func) {
		if err := v.RegisterValidation(tag, fn); err != nil {
			panic(err)
		}
	}
	must("ledgerdate", func(fl validator.FieldLevel) bool {
		_, err := core.ParseDate(fl.Field().String())
		return err == nil
	})
	must("txtype", func(fl validator.FieldLevel) bool {
		_, err := core.ParseTxType(fl.Field().String())
		return err == nil
	})
	must("projstatus", func(fl validator.FieldLevel) bool {
		_, err := core.ParseProjectStatus(fl.Field().String())
		return err == nil
	})
	must("amount", func(fl validator.FieldLevel) bool {
		_, err := core.ParseAmount(fl.Field().String())
		return err == nil
	})
	return v
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	fields := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		fields[fe.Field()] = describe(fe)
	}
	return &ValidationError{Fields: fields}
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s characters long", fe.Param())
	case "gte":
		return fmt.Sprintf("must be greater than or equal to %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be less than or equal to %s", fe.Param())
	case "ledgerdate":
		return "must be a date like 2024-01-31"
	case "txtype":
		return "must be income or expense"
	case "projstatus":
		return "must be active, closed or paused"
	case "amount":
		return "must be a non-negative number"
	default:
		return "is invalid"
	}
}

// The conversions below run after validation, so parse errors cannot occur.

func (in TransactionInput) toTransaction() core.Transaction {
	typ, _ := core.ParseTxType(in.Type)
	amount, _ := core.ParseAmount(in.Amount)
	var date core.Date
	if strings.TrimSpace(in.Date) != "" {
		date, _ = core.ParseDate(in.Date)
	}
	project := strings.TrimSpace(in.ProjectName)
	if project == "" {
		project = core.OverheadBucket
	}
	return core.Transaction{
		Date:        date,
		Type:        typ,
		Category:    strings.TrimSpace(in.Category),
		Amount:      amount,
		Note:        strings.TrimSpace(in.Note),
		ProjectName: project,
	}
}

func (in TransactionEditInput) toEdit() ledger.TransactionEdit {
	amount, _ := core.ParseAmount(in.Amount)
	var date core.Date
	if strings.TrimSpace(in.Date) != "" {
		date, _ = core.ParseDate(in.Date)
	}
	return ledger.TransactionEdit{
		Date:     date,
		Category: strings.TrimSpace(in.Category),
		Amount:   amount,
		Note:     strings.TrimSpace(in.Note),
	}
}

func (in ProjectInput) toProject(now time.Time) core.Project {
	budget, _ := core.ParseAmount(in.TotalBudget)
	start := core.DateOf(now)
	if strings.TrimSpace(in.StartDate) != "" {
		start, _ = core.ParseDate(in.StartDate)
	}
	var end core.Date
	if strings.TrimSpace(in.EndDate) != "" {
		end, _ = core.ParseDate(in.EndDate)
	}
	status := core.Active
	if strings.TrimSpace(in.Status) != "" {
		status, _ = core.ParseProjectStatus(in.Status)
	}
	return core.Project{
		Name:        strings.TrimSpace(in.Name),
		TotalBudget: budget,
		StartDate:   start,
		EndDate:     end,
		Status:      status,
		Progress:    in.Progress,
	}
}

func (in ProjectFieldsInput) toUpdate() ledger.ProjectUpdate {
	status, _ := core.ParseProjectStatus(in.Status)
	var end core.Date
	if strings.TrimSpace(in.EndDate) != "" {
		end, _ = core.ParseDate(in.EndDate)
	}
	return ledger.ProjectUpdate{Status: status, Progress: in.Progress, EndDate: end}
}
