package models

import "time"

type Coord struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Role of an authenticated principal. Authorization decisions are pure
// functions of (role, ownership); see the access package.
type Role string

const (
	RoleUser   Role = "user"
	RoleDriver Role = "driver"
	RoleAdmin  Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleDriver, RoleAdmin:
		return true
	}
	return false
}

// User is both an account record and the authenticated principal carried
// through request contexts. Driver-specific fields stay zero for riders.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	Email        string    `json:"email,omitempty"`
	FirstName    string    `json:"first_name,omitempty"`
	LastName     string    `json:"last_name,omitempty"`
	PhoneNumber  string    `json:"phone_number,omitempty"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`

	// Driver fields
	CarType         string `json:"car_type,omitempty"`
	CarColor        string `json:"car_color,omitempty"`
	LicensePlate    string `json:"license_plate,omitempty"`
	IsAvailable     bool   `json:"is_available"`
	CurrentLocation *Coord `json:"current_location,omitempty"`
}

type RideStatus string

const (
	StatusRequested RideStatus = "requested"
	StatusAccepted  RideStatus = "accepted"
	StatusStarted   RideStatus = "started"
	StatusCompleted RideStatus = "completed"
	StatusCancelled RideStatus = "cancelled"
)

// Terminal reports whether no further transition may leave this status.
func (s RideStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// PaymentStatus tracks the ride-level payment state. It is driven by
// external payment flows, never by the ride's own status transitions.
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

type Ride struct {
	ID       string `json:"id"`
	RiderID  string `json:"rider_id"`
	DriverID string `json:"driver_id,omitempty"` // empty until accepted

	Pickup         Coord  `json:"pickup_location"`
	Dropoff        Coord  `json:"dropoff_location"`
	PickupAddress  string `json:"pickup_address"`
	DropoffAddress string `json:"dropoff_address"`

	Status        RideStatus    `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`

	RequestedAt time.Time  `json:"requested_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	EstimatedFare float64  `json:"estimated_fare"`
	FinalFare     *float64 `json:"final_fare,omitempty"`
	DistanceKm    float64  `json:"distance"` // kilometers
	DurationMin   int      `json:"duration"` // minutes

	PaymentMethod string `json:"payment_method"`
	PaymentID     string `json:"payment_id,omitempty"`

	CancellationReason string `json:"cancellation_reason,omitempty"`
	Rating             *int   `json:"rating,omitempty"`
	Review             string `json:"review,omitempty"`

	// Version is bumped on every write; ride updates are compare-and-swap
	// on it so two concurrent transitions cannot both succeed.
	Version int64 `json:"-"`
}

// LocationSample is one point of a ride's location trail. Samples are
// append-only and listed ascending by RecordedAt.
type LocationSample struct {
	ID         string    `json:"id"`
	RideID     string    `json:"ride_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	RecordedAt time.Time `json:"recorded_at"`
}

// PaymentRecord is one payment attempt against a ride. Its Status is a
// free-form string from the payment flow and is deliberately not
// reconciled with Ride.PaymentStatus.
type PaymentRecord struct {
	ID             string    `json:"id"`
	RideID         string    `json:"ride_id"`
	Amount         float64   `json:"amount"`
	Method         string    `json:"payment_method"`
	TransactionRef string    `json:"transaction_id"`
	Status         string    `json:"status"`
	RecordedAt     time.Time `json:"recorded_at"`
}
