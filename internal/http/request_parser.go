package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"bizledger/internal/core"
	"bizledger/internal/services"
)

const maxBodyBytes = 1 << 20

var errBadRow = errors.New("row must be a positive integer")

// RequestBodyParser reads a JSON or form-encoded body once and exposes its
// fields as sanitized strings.
type RequestBodyParser struct {
	body     []byte
	jsonData map[string]any
	formData url.Values
	parsed   bool
	err      error
}

func NewRequestBodyParser(r *http.Request) *RequestBodyParser {
	p := &RequestBodyParser{}
	if r.Body == nil {
		return p
	}
	p.body, p.err = io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	return p
}

// Parse decodes the body. JSON is detected by its first byte, anything else
// is treated as a form.
func (p *RequestBodyParser) Parse() error {
	if p.parsed {
		return p.err
	}
	p.parsed = true
	if p.err != nil {
		return p.err
	}
	trimmed := strings.TrimSpace(string(p.body))
	if trimmed == "" {
		p.formData = url.Values{}
		return nil
	}
	if trimmed[0] == '{' {
		p.jsonData = make(map[string]any)
		if err := json.Unmarshal([]byte(trimmed), &p.jsonData); err != nil {
			p.err = fmt.Errorf("decode json body: %w", err)
		}
		return p.err
	}
	p.formData, p.err = url.ParseQuery(trimmed)
	return p.err
}

// Get returns a field from the parsed body, or "".
func (p *RequestBodyParser) Get(key string) string {
	if p.jsonData != nil {
		if v, ok := p.jsonData[key]; ok {
			return sanitizeInput(stringValue(v))
		}
		return ""
	}
	if p.formData != nil {
		return sanitizeInput(p.formData.Get(key))
	}
	return ""
}

func (p *RequestBodyParser) IsJSON() bool {
	return p.jsonData != nil
}

// Progress reads a percentage field. Out-of-range values are clamped and
// unreadable ones become -1 so validation rejects them.
func (p *RequestBodyParser) Progress(key string) int {
	raw := p.Get(key)
	if raw == "" {
		return 0
	}
	n, err := core.ParseProgress(raw)
	if err != nil {
		return -1
	}
	return n
}

func (p *RequestBodyParser) TransactionInput() services.TransactionInput {
	return services.TransactionInput{
		Date:        p.Get("date"),
		Type:        p.Get("type"),
		Category:    p.Get("category"),
		Amount:      p.Get("amount"),
		Note:        p.Get("note"),
		ProjectName: p.Get("project_name"),
	}
}

// TransactionEditInput reads the fields an in-place edit may change. A type
// or project_name in the body is ignored.
func (p *RequestBodyParser) TransactionEditInput() services.TransactionEditInput {
	return services.TransactionEditInput{
		Date:     p.Get("date"),
		Category: p.Get("category"),
		Amount:   p.Get("amount"),
		Note:     p.Get("note"),
	}
}

func (p *RequestBodyParser) ProjectInput() services.ProjectInput {
	return services.ProjectInput{
		Name:        p.Get("name"),
		TotalBudget: p.Get("total_budget"),
		StartDate:   p.Get("start_date"),
		EndDate:     p.Get("end_date"),
		Status:      p.Get("status"),
		Progress:    p.Progress("progress"),
	}
}

func (p *RequestBodyParser) ProjectFieldsInput() services.ProjectFieldsInput {
	return services.ProjectFieldsInput{
		Status:   p.Get("status"),
		Progress: p.Progress("progress"),
		EndDate:  p.Get("end_date"),
	}
}

func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case json.Number:
		return val.String()
	default:
		return ""
	}
}

// parseRow reads the {row} path segment as a physical row number. Range
// checks happen in the ledger, against the current table length.
func parseRow(r *http.Request) (int, error) {
	row, err := strconv.Atoi(strings.TrimSpace(r.PathValue("row")))
	if err != nil || row < 1 {
		return 0, errBadRow
	}
	return row, nil
}

// parseAt reads the optional ?at=YYYY-MM-DD reference date used for the
// current-month KPIs.
func parseAt(q url.Values, now time.Time) (time.Time, error) {
	raw := strings.TrimSpace(q.Get("at"))
	if raw == "" {
		return now, nil
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("at: %w", err)
	}
	return d.Time, nil
}
