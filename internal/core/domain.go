package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TxType = "income"
	Expense TxType = "expense"

	Active ProjectStatus = "active"
	Closed ProjectStatus = "closed"
	Paused ProjectStatus = "paused"
)

// OverheadBucket is the project_name used for transactions not tied to a project.
const OverheadBucket = "Company overhead"

// DefaultProjectSpan is added to a project's start date when it has no end date.
const DefaultProjectSpan = 30 * 24 * time.Hour

// DateLayout is the wire form of every calendar date in the ledger.
const DateLayout = "2006-01-02"

// TimestampLayout is the wire form of created_at.
const TimestampLayout = "2006-01-02 15:04:05.000000"

type (
	TxType string

	ProjectStatus string

	// Date is a calendar date. The zero value means "undated".
	Date struct {
		time.Time
	}

	Transaction struct {
		ID          string          `json:"id"`
		Date        Date            `json:"date"`
		Type        TxType          `json:"type"`
		Category    string          `json:"category"`
		Amount      decimal.Decimal `json:"amount"`
		Note        string          `json:"note"`
		ProjectName string          `json:"project_name"`
		CreatedAt   time.Time       `json:"created_at"`
	}

	Project struct {
		ID          string          `json:"id"`
		Name        string          `json:"name"`
		TotalBudget decimal.Decimal `json:"total_budget"`
		StartDate   Date            `json:"start_date"`
		EndDate     Date            `json:"end_date"`
		Status      ProjectStatus   `json:"status"`
		Progress    int             `json:"progress"`
		CreatedAt   time.Time       `json:"created_at"`
	}
)

var (
	ErrInvalidType     = errors.New("invalid transaction type")
	ErrInvalidStatus   = errors.New("invalid project status")
	ErrNegativeAmount  = errors.New("amount must not be negative")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidProgress = errors.New("progress must be between 0 and 100")
	ErrEmptyName       = errors.New("empty project name")
)

// Localized labels accepted on read. The canonical value is always written back.
var (
	txTypeAliases = map[string]TxType{
		"income":  Income,
		"收入":      Income,
		"expense": Expense,
		"支出":      Expense,
	}
	statusAliases = map[string]ProjectStatus{
		"active": Active,
		"進行中":    Active,
		"closed": Closed,
		"結案":     Closed,
		"paused": Paused,
		"暫停":     Paused,
	}
)

// ParseTxType maps a raw label onto Income or Expense.
func ParseTxType(s string) (TxType, error) {
	if t, ok := txTypeAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return t, nil
	}
	return "", ErrInvalidType
}

// ParseProjectStatus maps a raw label onto one of the three statuses.
func ParseProjectStatus(s string) (ProjectStatus, error) {
	if st, ok := statusAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return st, nil
	}
	return "", ErrInvalidStatus
}

func (t TxType) Valid() bool {
	return t == Income || t == Expense
}

func (s ProjectStatus) Valid() bool {
	switch s {
	case Active, Closed, Paused:
		return true
	}
	return false
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// IsEmpty reports whether the date is null.
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

// MonthKey returns the zero-padded "YYYY-MM" bucket key, or "" for a null date.
func (d Date) MonthKey() string {
	if d.IsEmpty() {
		return ""
	}
	return d.Format("2006-01")
}

func (d Date) String() string {
	if d.IsEmpty() {
		return ""
	}
	return d.Format(DateLayout)
}

func (d Date) AddDays(n int) Date {
	if d.IsEmpty() {
		return d
	}
	return Date{Time: d.Time.AddDate(0, 0, n)}
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsEmpty() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s *string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == nil || strings.TrimSpace(*s) == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(*s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

func (t Transaction) Validate() error {
	if !t.Type.Valid() {
		return ErrInvalidType
	}
	if t.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	return nil
}

// Signed returns the amount with the sign implied by the transaction type.
func (t Transaction) Signed() decimal.Decimal {
	if t.Type == Expense {
		return t.Amount.Neg()
	}
	return t.Amount
}

func (p Project) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyName
	}
	if p.TotalBudget.IsNegative() {
		return ErrNegativeAmount
	}
	if !p.Status.Valid() {
		return ErrInvalidStatus
	}
	if p.Progress < 0 || p.Progress > 100 {
		return ErrInvalidProgress
	}
	return nil
}

// EffectiveEnd returns EndDate, or StartDate plus DefaultProjectSpan when EndDate is null.
func (p Project) EffectiveEnd() Date {
	if !p.EndDate.IsEmpty() || p.StartDate.IsEmpty() {
		return p.EndDate
	}
	return Date{Time: p.StartDate.Add(DefaultProjectSpan)}
}
