package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
)

func TestParsePageParams(t *testing.T) {
	tests := []struct {
		name     string
		query    url.Values
		wantPage int
		wantSize int
		wantErr  bool
	}{
		{"defaults", url.Values{}, 1, 10, false},
		{"both values provided", url.Values{"page": {"3"}, "size": {"25"}}, 3, 25, false},
		{"page zero is passed through", url.Values{"page": {"0"}}, 0, 10, false},
		{"whitespace trimmed", url.Values{"page": {" 2 "}}, 2, 10, false},
		{"non-numeric page", url.Values{"page": {"abc"}}, 0, 0, true},
		{"zero size", url.Values{"size": {"0"}}, 0, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePageParams(tt.query, 10)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePageParams() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if got.Page != tt.wantPage || got.Size != tt.wantSize {
				t.Errorf("ParsePageParams() = %+v, want page=%d size=%d", got, tt.wantPage, tt.wantSize)
			}
		})
	}
}

func newJSONRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestDecodeDraft(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantAmount string
		wantDesc   string
		wantErr    bool
	}{
		{"string amount", `{"date":"2024-01-05","amount":"12.5","description":"lunch"}`, "12.5", "lunch", false},
		{"number amount", `{"date":"2024-01-05","amount":12.50,"description":"lunch"}`, "12.50", "lunch", false},
		{"null amount", `{"date":"2024-01-05","amount":null,"description":"x"}`, "", "x", false},
		{"control characters stripped", `{"date":"2024-01-05","amount":"1","description":"a\u0000b"}`, "1", "ab", false},
		{"boolean amount", `{"date":"2024-01-05","amount":true,"description":"x"}`, "", "", true},
		{"trailing garbage", `{"date":"2024-01-05"`, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := DecodeDraft(newJSONRequest(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeDraft() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if d.Amount != tt.wantAmount || d.Description != tt.wantDesc {
				t.Errorf("DecodeDraft() = %+v", d)
			}
		})
	}
}

func TestDecodeDraftRejectsOversizedBody(t *testing.T) {
	body := `{"date":"2024-01-05","amount":"1","description":"` + strings.Repeat("x", maxBodyBytes) + `"}`
	if _, err := DecodeDraft(newJSONRequest(body)); err == nil {
		t.Error("expected error for oversized body")
	}
}

func TestDecodeDeleteRequest(t *testing.T) {
	tests := []struct {
		name         string
		body         string
		wantPosition bool
		wantErr      bool
	}{
		{"ids", `{"ids":[1,2]}`, false, false},
		{"date and indices", `{"date":"2024-01-01","indices":[0]}`, true, false},
		{"nothing selected", `{}`, false, true},
		{"date without indices", `{"date":"2024-01-01"}`, false, true},
		{"both forms", `{"ids":[1],"date":"2024-01-01","indices":[0]}`, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, err := DecodeDeleteRequest(newJSONRequest(tt.body))
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeDeleteRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && req.ByPosition() != tt.wantPosition {
				t.Errorf("ByPosition() = %v, want %v", req.ByPosition(), tt.wantPosition)
			}
		})
	}
}

func TestParseID(t *testing.T) {
	if id, err := ParseID("1704412800000"); err != nil || id != 1704412800000 {
		t.Errorf("ParseID() = %d, %v", id, err)
	}
	if _, err := ParseID("12x"); err == nil {
		t.Error("ParseID() should reject non-numeric ids")
	}
}
