package location

import "strings"

// Suggestion is a deliverable city with its delivery estimate in days.
type Suggestion struct {
	City         string `json:"city"`
	State        string `json:"state"`
	Pincode      string `json:"pincode,omitempty"`
	DeliveryDays string `json:"deliveryDays"`
}

const maxSuggestions = 5

var majorCities = []Suggestion{
	{City: "Hyderabad", State: "Telangana", Pincode: "500001", DeliveryDays: "2-3"},
	{City: "Hyderabad", State: "Telangana", Pincode: "500081", DeliveryDays: "2-3"},
	{City: "Mumbai", State: "Maharashtra", Pincode: "400001", DeliveryDays: "3-5"},
	{City: "Delhi", State: "Delhi", Pincode: "110001", DeliveryDays: "3-4"},
	{City: "Bangalore", State: "Karnataka", Pincode: "560001", DeliveryDays: "3-4"},
	{City: "Chennai", State: "Tamil Nadu", Pincode: "600001", DeliveryDays: "4-6"},
	{City: "Kolkata", State: "West Bengal", Pincode: "700001", DeliveryDays: "5-7"},
	{City: "Pune", State: "Maharashtra", Pincode: "411001", DeliveryDays: "4-5"},
	{City: "Ahmedabad", State: "Gujarat", Pincode: "380001", DeliveryDays: "4-6"},
	{City: "Surat", State: "Gujarat", Pincode: "395001", DeliveryDays: "4-6"},
	{City: "Jaipur", State: "Rajasthan", Pincode: "302001", DeliveryDays: "5-7"},
	{City: "Lucknow", State: "Uttar Pradesh", Pincode: "226001", DeliveryDays: "5-8"},
}

// Suggestions matches q against city names (substring) and pincodes (prefix).
// Queries shorter than two characters return nothing.
func Suggestions(q string) []Suggestion {
	q = strings.ToLower(strings.TrimSpace(q))
	if len(q) < 2 {
		return nil
	}
	var out []Suggestion
	for _, s := range majorCities {
		if strings.Contains(strings.ToLower(s.City), q) || (s.Pincode != "" && strings.HasPrefix(s.Pincode, q)) {
			out = append(out, s)
			if len(out) == maxSuggestions {
				break
			}
		}
	}
	return out
}

// Detect finds the first entry whose pincode or city equals q exactly.
func Detect(q string) (Suggestion, bool) {
	q = strings.ToLower(strings.TrimSpace(q))
	for _, s := range majorCities {
		if s.Pincode == q || strings.ToLower(s.City) == q {
			return s, true
		}
	}
	return Suggestion{}, false
}

// Place is a city/state pair resolved from a pincode.
type Place struct {
	City  string `json:"city"`
	State string `json:"state"`
}

var pincodes = map[string]Place{
	"500081": {City: "Hyderabad", State: "Telangana"},
	"110001": {City: "New Delhi", State: "Delhi"},
	"400001": {City: "Mumbai", State: "Maharashtra"},
	"560001": {City: "Bengaluru", State: "Karnataka"},
	"600001": {City: "Chennai", State: "Tamil Nadu"},
}

// ResolvePincode fills city and state for a six digit pincode the address
// form knows about.
func ResolvePincode(pincode string) (Place, bool) {
	pincode = strings.TrimSpace(pincode)
	if len(pincode) != 6 {
		return Place{}, false
	}
	p, ok := pincodes[pincode]
	return p, ok
}
