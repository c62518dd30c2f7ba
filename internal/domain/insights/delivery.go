package insights

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/truthsource/backend/internal/domain/shared"
)

// ServiceLevel is the shipping speed requested for an estimate
type ServiceLevel string

const (
	ServiceStandard  ServiceLevel = "standard"
	ServiceExpedited ServiceLevel = "expedited"
	ServiceOvernight ServiceLevel = "overnight"
)

// IsValid returns true for a known service level
func (s ServiceLevel) IsValid() bool {
	switch s {
	case ServiceStandard, ServiceExpedited, ServiceOvernight:
		return true
	}
	return false
}

// CarrierProfile holds observed carrier performance and base transit days
type CarrierProfile struct {
	Code        string
	OnTimeRate  float64
	AvgDays     float64
	ServiceDays map[ServiceLevel]int
}

// carrierProfiles is the lookup table the estimator works from. Unknown
// carriers fall back to the default profile.
var carrierProfiles = map[string]CarrierProfile{
	"fedex": {
		Code:       "fedex",
		OnTimeRate: 0.92,
		AvgDays:    3.2,
		ServiceDays: map[ServiceLevel]int{
			ServiceStandard:  4,
			ServiceExpedited: 2,
			ServiceOvernight: 1,
		},
	},
	"ups": {
		Code:       "ups",
		OnTimeRate: 0.89,
		AvgDays:    3.5,
		ServiceDays: map[ServiceLevel]int{
			ServiceStandard:  4,
			ServiceExpedited: 2,
			ServiceOvernight: 1,
		},
	},
	"usps": {
		Code:       "usps",
		OnTimeRate: 0.85,
		AvgDays:    4.1,
		ServiceDays: map[ServiceLevel]int{
			ServiceStandard:  5,
			ServiceExpedited: 3,
			ServiceOvernight: 1,
		},
	},
}

var defaultCarrierProfile = CarrierProfile{
	Code:       "default",
	OnTimeRate: 0.89,
	AvgDays:    3.6,
	ServiceDays: map[ServiceLevel]int{
		ServiceStandard:  4,
		ServiceExpedited: 2,
		ServiceOvernight: 1,
	},
}

// CarrierByCode returns the profile for a carrier code, falling back to the
// default profile for unknown carriers.
func CarrierByCode(code string) CarrierProfile {
	if p, ok := carrierProfiles[strings.ToLower(code)]; ok {
		return p
	}
	return defaultCarrierProfile
}

// KnownCarriers lists the carriers the estimator can recommend between
func KnownCarriers() []CarrierProfile {
	return []CarrierProfile{carrierProfiles["fedex"], carrierProfiles["ups"], carrierProfiles["usps"]}
}

// Distance estimation constants
const (
	milesPerZipPrefixStep = 50.0
	maxEstimatedMiles     = 3000.0
	defaultEstimatedMiles = 500.0
	milesPerTransitDay    = 1500.0
	defaultConfidence     = 0.8
)

// EstimateDistanceMiles approximates shipping distance from the first three
// digits of two US zip codes: |Δ prefix| × 50 miles, capped at 3000. Zips
// that don't parse get the 500-mile default.
func EstimateDistanceMiles(originZip, destZip string) float64 {
	origin, ok1 := zipPrefix(originZip)
	dest, ok2 := zipPrefix(destZip)
	if !ok1 || !ok2 {
		return defaultEstimatedMiles
	}

	miles := math.Abs(float64(origin-dest)) * milesPerZipPrefixStep
	if miles > maxEstimatedMiles {
		miles = maxEstimatedMiles
	}
	return miles
}

func zipPrefix(zip string) (int, bool) {
	zip = strings.TrimSpace(zip)
	if len(zip) < 3 {
		return 0, false
	}
	n, err := strconv.Atoi(zip[:3])
	if err != nil {
		return 0, false
	}
	return n, true
}

// DeliveryEstimate is the result of one prediction
type DeliveryEstimate struct {
	Carrier            string       `json:"carrier"`
	Service            ServiceLevel `json:"service"`
	PredictedDays      int          `json:"predicted_days"`
	EstimatedDelivery  time.Time    `json:"estimated_delivery"`
	DistanceMiles      float64      `json:"distance_miles"`
	CarrierReliability float64      `json:"carrier_reliability"`
	Confidence         float64      `json:"confidence"`
}

// PredictDelivery estimates transit days for one carrier and service level:
// service base days + distance/1500 rounded up, nudged by carrier
// reliability (slow carriers get a day added, reliable ones may save one).
func PredictDelivery(carrierCode string, service ServiceLevel, originZip, destZip string, shipDate time.Time) (*DeliveryEstimate, error) {
	if !service.IsValid() {
		return nil, shared.NewDomainError("INVALID_SERVICE", "Service must be standard, expedited, or overnight")
	}

	profile := CarrierByCode(carrierCode)
	distance := EstimateDistanceMiles(originZip, destZip)

	days := profile.ServiceDays[service]
	days += int(math.Ceil(distance / milesPerTransitDay))

	// reliability adjustment
	switch {
	case profile.OnTimeRate < 0.87:
		days++
	case profile.OnTimeRate >= 0.92 && days > 1:
		days--
	}

	return &DeliveryEstimate{
		Carrier:            profile.Code,
		Service:            service,
		PredictedDays:      days,
		EstimatedDelivery:  shipDate.AddDate(0, 0, days),
		DistanceMiles:      distance,
		CarrierReliability: profile.OnTimeRate,
		Confidence:         defaultConfidence,
	}, nil
}

// RecommendCarrier picks the carrier with the fewest predicted days for the
// route, breaking ties by on-time rate.
func RecommendCarrier(service ServiceLevel, originZip, destZip string, shipDate time.Time) (*DeliveryEstimate, error) {
	var best *DeliveryEstimate
	for _, p := range KnownCarriers() {
		est, err := PredictDelivery(p.Code, service, originZip, destZip, shipDate)
		if err != nil {
			return nil, err
		}
		if best == nil ||
			est.PredictedDays < best.PredictedDays ||
			(est.PredictedDays == best.PredictedDays && est.CarrierReliability > best.CarrierReliability) {
			best = est
		}
	}
	return best, nil
}
