package domain

// Venue identifies an exchange.
type Venue string

const (
	VenueKalshi       Venue = "kalshi"
	VenuePolymarketUS Venue = "polymarket_us"
)

// InverseSuffix marks the synthetic opposite-outcome book of an instrument
// quoted on one side only (Polymarket US moneyline markets quote the long
// side; the short side is derived).
const InverseSuffix = "-inverse"

// InverseID returns the id of the synthetic inverse instrument.
func InverseID(id string) string {
	return id + InverseSuffix
}

// Instrument is one tradeable binary contract on one venue.
type Instrument struct {
	ID        string
	Venue     Venue
	IsInverse bool
}

// BaseID returns the underlying instrument id for an inverse instrument,
// or the id itself for a base instrument.
func (i Instrument) BaseID() string {
	if !i.IsInverse {
		return i.ID
	}
	n := len(i.ID) - len(InverseSuffix)
	if n < 0 {
		return i.ID
	}
	return i.ID[:n]
}
