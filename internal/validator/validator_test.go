package validator

import (
	"testing"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type sample struct {
	Currency string `binding:"omitempty,iso4217"`
	Date     string `binding:"omitempty,iso_date"`
	Month    string `binding:"omitempty,iso_month"`
	Type     string `binding:"omitempty,account_type"`
	Class    string `binding:"omitempty,account_class"`
	Role     string `binding:"omitempty,account_role"`
	Status   string `binding:"omitempty,transaction_status"`
}

func TestRegister(t *testing.T) {
	Register()

	tests := []struct {
		name  string
		in    sample
		valid bool
	}{
		{"empty", sample{}, true},
		{"all valid", sample{
			Currency: "EUR", Date: "2025-01-31", Month: "2025-01",
			Type: "liability", Class: "credit", Role: "on_budget", Status: "cleared",
		}, true},
		{"month given as date", sample{Month: "2025-01-15"}, true},
		{"unknown currency", sample{Currency: "XYZ"}, false},
		{"bad date", sample{Date: "2025-02-30"}, false},
		{"bad month", sample{Month: "2025-13"}, false},
		{"unknown type", sample{Type: "equity"}, false},
		{"unknown class", sample{Class: "crypto"}, false},
		{"unknown role", sample{Role: "hidden"}, false},
		{"unknown status", sample{Status: "void"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := binding.Validator.ValidateStruct(&tt.in)
			if tt.valid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.valid {
				if _, ok := err.(validator.ValidationErrors); !ok {
					t.Errorf("expected validation errors, got %v", err)
				}
			}
		})
	}
}
