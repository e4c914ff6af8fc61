package checkout

import (
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"
)

type CustomerInfo struct {
	CustomerName   string `json:"customerName"`
	PhoneNumber    string `json:"phoneNumber"`
	AlternatePhone string `json:"alternatePhone,omitempty"`
	InstagramID    string `json:"instagramId,omitempty"`
	Address        string `json:"address"`
	District       string `json:"district"`
	State          string `json:"state"`
	Pincode        string `json:"pincode"`
	Landmark       string `json:"landmark,omitempty"`
}

// FieldErrors maps a form field to its validation message.
type FieldErrors map[string]string

func (e FieldErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", f, e[f]))
	}
	return strings.Join(parts, "; ")
}

var customerRules = []struct {
	field   string
	min     int
	message string
	value   func(CustomerInfo) string
}{
	{"customerName", 2, "Name must be at least 2 characters", func(c CustomerInfo) string { return c.CustomerName }},
	{"phoneNumber", 10, "Phone must be at least 10 digits", func(c CustomerInfo) string { return c.PhoneNumber }},
	{"address", 10, "Address must be at least 10 characters", func(c CustomerInfo) string { return c.Address }},
	{"district", 2, "District is required", func(c CustomerInfo) string { return c.District }},
	{"state", 2, "State is required", func(c CustomerInfo) string { return c.State }},
	{"pincode", 6, "Pincode must be 6 digits", func(c CustomerInfo) string { return c.Pincode }},
}

// Validate applies the checkout form's minimum length rules. The returned
// error is a FieldErrors when any field fails.
func (c CustomerInfo) Validate() error {
	errs := FieldErrors{}
	for _, rule := range customerRules {
		if utf8.RuneCountInString(strings.TrimSpace(rule.value(c))) < rule.min {
			errs[rule.field] = rule.message
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}
