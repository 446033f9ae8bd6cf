package booking

import "math"

// FareStrategy defines the interface for computing ride fares from a distance.
type FareStrategy interface {
	// Calculate returns the fare for a known distance. Non-positive distances cost 0.
	Calculate(distanceKm float64) float64

	// Breakdown decomposes Calculate into its base and extra components.
	Breakdown(distanceKm float64) FareBreakdown

	// Estimate returns the fare to show for a distance that may not be known yet.
	Estimate(distanceKm *float64) FareEstimate
}

// FarePolicy holds the per-deployment fare constants.
type FarePolicy struct {
	BaseFare       float64 `json:"base_fare"`
	BaseKm         float64 `json:"base_km"`
	ExtraRatePerKm float64 `json:"extra_rate_per_km"`
}

// DefaultFarePolicy returns the standard fare: 50 for the first 3 km, 15 per km after.
func DefaultFarePolicy() FarePolicy {
	return FarePolicy{BaseFare: 50, BaseKm: 3, ExtraRatePerKm: 15}
}

// FareBreakdown is a derived view of a fare computation. It is never stored.
type FareBreakdown struct {
	BaseFare        float64 `json:"base_fare"`
	ExtraDistanceKm float64 `json:"extra_distance_km"`
	ExtraFare       float64 `json:"extra_fare"`
	Total           float64 `json:"total"`
}

// FareEstimate is the fare shown for a quote. Known is false while the distance is
// still unresolved, in which case Amount is the base fare placeholder.
type FareEstimate struct {
	Amount float64 `json:"amount"`
	Known  bool    `json:"known"`
}

// StandardFareModel implements base-fare plus per-extra-km pricing.
type StandardFareModel struct {
	policy FarePolicy
}

// NewStandardFareModel creates a StandardFareModel with the given policy.
func NewStandardFareModel(policy FarePolicy) *StandardFareModel {
	return &StandardFareModel{policy: policy}
}

// Policy returns the configured fare constants.
func (m *StandardFareModel) Policy() FarePolicy { return m.policy }

// Calculate computes the fare.
//
// Fare formula:
//   - distance <= 0 (or NaN): 0
//   - distance <= BaseKm: BaseFare
//   - otherwise: BaseFare + (distance - BaseKm) * ExtraRatePerKm
func (m *StandardFareModel) Calculate(distanceKm float64) float64 {
	return m.Breakdown(distanceKm).Total
}

// Breakdown returns the fare decomposed into base and extra components.
func (m *StandardFareModel) Breakdown(distanceKm float64) FareBreakdown {
	if math.IsNaN(distanceKm) || distanceKm <= 0 {
		return FareBreakdown{}
	}

	extraKm := math.Max(0, distanceKm-m.policy.BaseKm)
	extraFare := extraKm * m.policy.ExtraRatePerKm

	return FareBreakdown{
		BaseFare:        m.policy.BaseFare,
		ExtraDistanceKm: extraKm,
		ExtraFare:       extraFare,
		Total:           m.policy.BaseFare + extraFare,
	}
}

// Estimate returns the base fare as an unknown-distance placeholder, and the charged fare
// once the distance is known. A known zero distance is charged the base fare.
func (m *StandardFareModel) Estimate(distanceKm *float64) FareEstimate {
	if distanceKm == nil || math.IsNaN(*distanceKm) {
		return FareEstimate{Amount: m.policy.BaseFare, Known: false}
	}
	amount := m.Calculate(*distanceKm)
	if amount < m.policy.BaseFare {
		amount = m.policy.BaseFare
	}
	return FareEstimate{Amount: amount, Known: true}
}
