package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"
)

func TestRequestBodyParser(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantJSON bool
		want     map[string]string
	}{
		{
			name:     "json body",
			body:     `{"amount": 12.5, "note": "  lunch\u0007 "}`,
			wantJSON: true,
			want:     map[string]string{"amount": "12.5", "note": "lunch", "type": ""},
		},
		{
			name: "form body",
			body: "amount=3&category=Rent&project_name=Alpha",
			want: map[string]string{"amount": "3", "category": "Rent", "project_name": "Alpha"},
		},
		{
			name: "empty body",
			body: "",
			want: map[string]string{"amount": ""},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			p := NewRequestBodyParser(req)
			if err := p.Parse(); err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			if p.IsJSON() != tt.wantJSON {
				t.Errorf("IsJSON() = %v, want %v", p.IsJSON(), tt.wantJSON)
			}
			for k, v := range tt.want {
				if got := p.Get(k); got != v {
					t.Errorf("Get(%q) = %q, want %q", k, got, v)
				}
			}
		})
	}
}

func TestRequestBodyParserRejectsBadJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"amount":`))
	if err := NewRequestBodyParser(req).Parse(); err == nil {
		t.Fatal("expected error for truncated json")
	}
}

func TestTransactionEditInput(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/", strings.NewReader(`{"type":"income","amount":"5","note":" n ","project_name":"Beta"}`))
	p := NewRequestBodyParser(req)
	if err := p.Parse(); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	in := p.TransactionEditInput()
	if in.Amount != "5" || in.Note != "n" {
		t.Errorf("TransactionEditInput() = %+v", in)
	}
}

func TestProgress(t *testing.T) {
	tests := []struct {
		raw  string
		want int
	}{
		{"", 0},
		{"40", 40},
		{"40%", 40},
		{"150", 100},
		{"lots", -1},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("progress="+url.QueryEscape(tt.raw)))
		p := NewRequestBodyParser(req)
		if err := p.Parse(); err != nil {
			t.Fatalf("Parse() error = %v", err)
		}
		if got := p.Progress("progress"); got != tt.want {
			t.Errorf("Progress(%q) = %d, want %d", tt.raw, got, tt.want)
		}
	}
}

func TestParseRow(t *testing.T) {
	tests := []struct {
		value   string
		want    int
		wantErr bool
	}{
		{"4", 4, false},
		{"0", 0, true},
		{"-2", 0, true},
		{"abc", 0, true},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodDelete, "/", nil)
		req.SetPathValue("row", tt.value)
		got, err := parseRow(req)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("parseRow(%q) = %d, %v", tt.value, got, err)
		}
	}
}

func TestParseAt(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	got, err := parseAt(url.Values{}, now)
	if err != nil || !got.Equal(now) {
		t.Fatalf("default: got %v, %v", got, err)
	}
	got, err = parseAt(url.Values{"at": {"2024-02-15"}}, now)
	if err != nil || got.Month() != time.February {
		t.Fatalf("explicit: got %v, %v", got, err)
	}
	if _, err := parseAt(url.Values{"at": {"someday"}}, now); err == nil {
		t.Fatal("expected error for bad date")
	}
}
