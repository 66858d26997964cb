package domain

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

// DateLayout is the wire format for policy dates.
const DateLayout = "2006-01-02"

// DisplayDateLayout is the format dates are shown in.
const DisplayDateLayout = "02/01/2006"

// CarInsurancePolicy is a single vehicle policy owned by a user.
type CarInsurancePolicy struct {
	PolicyID     int    `json:"ci_policy_id,omitempty"`
	UserID       int    `json:"user_id"`
	VRN          string `json:"vrn"`
	Make         string `json:"make"`
	Model        string `json:"model"`
	PolicyNumber string `json:"policy_number"`
	StartDate    string `json:"start_date"`
	EndDate      string `json:"end_date"`
	Coverage     string `json:"coverage"`
}

// PolicyWithExtras is the shape the read endpoint returns for each policy.
type PolicyWithExtras struct {
	Policy         CarInsurancePolicy `json:"policy"`
	OptionalExtras []OptionalExtra    `json:"optional_extras"`
}

// ExtrasTotal sums the price of every attached extra.
func (p PolicyWithExtras) ExtrasTotal() float64 {
	var total float64
	for _, e := range p.OptionalExtras {
		total += e.Price
	}
	return total
}

// NewPolicyNumber returns a fresh "CI" policy number with five random digits.
func NewPolicyNumber() string {
	return fmt.Sprintf("CI%d", 10000+rand.IntN(90000))
}

// PolicyTerm returns the start and end dates of a policy beginning on start.
// A term runs for one year minus one day.
func PolicyTerm(start time.Time) (string, string) {
	end := start.AddDate(1, 0, -1)
	return start.Format(DateLayout), end.Format(DateLayout)
}

// NewPolicy builds a policy for userID starting today with a generated number.
func NewPolicy(userID int, vrn, vehicleMake, vehicleModel, coverage string, now time.Time) CarInsurancePolicy {
	start, end := PolicyTerm(now)
	return CarInsurancePolicy{
		UserID:       userID,
		VRN:          strings.ToUpper(vrn),
		Make:         vehicleMake,
		Model:        vehicleModel,
		PolicyNumber: NewPolicyNumber(),
		StartDate:    start,
		EndDate:      end,
		Coverage:     coverage,
	}
}

// FormatDate converts a wire date (yyyy-mm-dd) to display form (dd/mm/yyyy).
// Values that do not parse are returned unchanged.
func FormatDate(wire string) string {
	t, err := time.Parse(DateLayout, wire)
	if err != nil {
		return wire
	}
	return t.Format(DisplayDateLayout)
}

// ParseDisplayDate converts a display date (dd/mm/yyyy) to wire form.
func ParseDisplayDate(display string) (string, error) {
	t, err := time.Parse(DisplayDateLayout, display)
	if err != nil {
		return "", fmt.Errorf("domain.ParseDisplayDate: %w", err)
	}
	return t.Format(DateLayout), nil
}
