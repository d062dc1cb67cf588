package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/example/ride-hailing/internal/models"
)

// PostgresStore implements Store on database/sql. Ride updates use an
// optimistic version check in the WHERE clause instead of row locks, so a
// lost race surfaces as models.ErrVersionConflict rather than blocking.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromDB wraps an existing handle; the caller keeps
// ownership of it.
func NewPostgresStoreFromDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `id, username, password_hash, email, first_name, last_name,
	phone_number, role, created_at, car_type, car_color, license_plate,
	is_available, current_lat, current_lon`

func (p *PostgresStore) CreateUser(ctx context.Context, u *models.User) error {
	var lat, lon sql.NullFloat64
	if u.CurrentLocation != nil {
		lat = sql.NullFloat64{Float64: u.CurrentLocation.Lat, Valid: true}
		lon = sql.NullFloat64{Float64: u.CurrentLocation.Lon, Valid: true}
	}
	_, err := p.db.ExecContext(ctx, `INSERT INTO users(`+userColumns+`)
		VALUES($1,$2,$3,$4,$5,$6,NULLIF($7,''),$8,$9,$10,$11,$12,$13,$14,$15)`,
		u.ID, u.Username, u.PasswordHash, u.Email, u.FirstName, u.LastName,
		u.PhoneNumber, u.Role, u.CreatedAt, u.CarType, u.CarColor,
		u.LicensePlate, u.IsAvailable, lat, lon)
	return mapUniqueViolation(err)
}

func (p *PostgresStore) UserByID(ctx context.Context, id string) (*models.User, error) {
	return p.scanUser(p.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id=$1`, id), id)
}

func (p *PostgresStore) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	return p.scanUser(p.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username=$1`, username), username)
}

func (p *PostgresStore) UserByPhone(ctx context.Context, phone string) (*models.User, error) {
	return p.scanUser(p.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE phone_number=$1`, phone), phone)
}

func (p *PostgresStore) UpdateUser(ctx context.Context, u *models.User) error {
	var lat, lon sql.NullFloat64
	if u.CurrentLocation != nil {
		lat = sql.NullFloat64{Float64: u.CurrentLocation.Lat, Valid: true}
		lon = sql.NullFloat64{Float64: u.CurrentLocation.Lon, Valid: true}
	}
	res, err := p.db.ExecContext(ctx, `UPDATE users SET email=$2, first_name=$3,
		last_name=$4, phone_number=NULLIF($5,''), role=$6, car_type=$7, car_color=$8,
		license_plate=$9, is_available=$10, current_lat=$11, current_lon=$12
		WHERE id=$1`,
		u.ID, u.Email, u.FirstName, u.LastName, u.PhoneNumber, u.Role,
		u.CarType, u.CarColor, u.LicensePlate, u.IsAvailable, lat, lon)
	if err != nil {
		return mapUniqueViolation(err)
	}
	return checkAffected(res, "user", u.ID)
}

func (p *PostgresStore) AvailableDrivers(ctx context.Context) ([]*models.User, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users
		WHERE role='driver' AND is_available ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.User
	for rows.Next() {
		u, err := p.scanUser(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (p *PostgresStore) scanUser(row rowScanner, key string) (*models.User, error) {
	var u models.User
	var phone sql.NullString
	var lat, lon sql.NullFloat64
	err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Email, &u.FirstName,
		&u.LastName, &phone, &u.Role, &u.CreatedAt, &u.CarType, &u.CarColor,
		&u.LicensePlate, &u.IsAvailable, &lat, &lon)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %s: %w", key, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	u.PhoneNumber = phone.String
	if lat.Valid && lon.Valid {
		u.CurrentLocation = &models.Coord{Lat: lat.Float64, Lon: lon.Float64}
	}
	return &u, nil
}

const rideColumns = `id, rider_id, driver_id, pickup_lat, pickup_lon, dropoff_lat,
	dropoff_lon, pickup_address, dropoff_address, status, payment_status,
	requested_at, started_at, completed_at, estimated_fare, final_fare,
	distance_km, duration_min, payment_method, payment_id,
	cancellation_reason, rating, review, version`

func (p *PostgresStore) CreateRide(ctx context.Context, r *models.Ride) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO rides(`+rideColumns+`)
		VALUES($1,$2,NULLIF($3,''),$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,$20,$21,$22,$23,$24)`,
		r.ID, r.RiderID, r.DriverID, r.Pickup.Lat, r.Pickup.Lon,
		r.Dropoff.Lat, r.Dropoff.Lon, r.PickupAddress, r.DropoffAddress,
		r.Status, r.PaymentStatus, r.RequestedAt, r.StartedAt, r.CompletedAt,
		r.EstimatedFare, r.FinalFare, r.DistanceKm, r.DurationMin,
		r.PaymentMethod, r.PaymentID, r.CancellationReason, r.Rating,
		r.Review, r.Version)
	return mapUniqueViolation(err)
}

func (p *PostgresStore) RideByID(ctx context.Context, id string) (*models.Ride, error) {
	return scanRide(p.db.QueryRowContext(ctx,
		`SELECT `+rideColumns+` FROM rides WHERE id=$1`, id), id)
}

func (p *PostgresStore) UpdateRide(ctx context.Context, r *models.Ride) error {
	res, err := p.db.ExecContext(ctx, `UPDATE rides SET driver_id=NULLIF($2,''),
		status=$3, payment_status=$4, started_at=$5, completed_at=$6,
		final_fare=$7, payment_id=$8, cancellation_reason=$9, rating=$10,
		review=$11, version=version+1
		WHERE id=$1 AND version=$12`,
		r.ID, r.DriverID, r.Status, r.PaymentStatus, r.StartedAt,
		r.CompletedAt, r.FinalFare, r.PaymentID, r.CancellationReason,
		r.Rating, r.Review, r.Version)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// Either the ride is gone or someone raced us past this version.
		if _, err := p.RideByID(ctx, r.ID); err != nil {
			return err
		}
		return fmt.Errorf("ride %s: %w", r.ID, models.ErrVersionConflict)
	}
	r.Version++
	return nil
}

func (p *PostgresStore) ListRides(ctx context.Context, f RideFilter) ([]*models.Ride, error) {
	q := `SELECT ` + rideColumns + ` FROM rides`
	var args []any
	switch {
	case f.RiderID != "":
		q += ` WHERE rider_id=$1`
		args = append(args, f.RiderID)
	case f.DriverID != "":
		q += ` WHERE driver_id=$1`
		args = append(args, f.DriverID)
	}
	q += ` ORDER BY requested_at DESC`
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.Ride
	for rows.Next() {
		r, err := scanRide(rows, "")
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (p *PostgresStore) DeleteRide(ctx context.Context, id string) error {
	// ride_locations and payments cascade via foreign keys
	res, err := p.db.ExecContext(ctx, `DELETE FROM rides WHERE id=$1`, id)
	if err != nil {
		return err
	}
	return checkAffected(res, "ride", id)
}

func scanRide(row rowScanner, key string) (*models.Ride, error) {
	var r models.Ride
	var driverID sql.NullString
	err := row.Scan(&r.ID, &r.RiderID, &driverID, &r.Pickup.Lat, &r.Pickup.Lon,
		&r.Dropoff.Lat, &r.Dropoff.Lon, &r.PickupAddress, &r.DropoffAddress,
		&r.Status, &r.PaymentStatus, &r.RequestedAt, &r.StartedAt,
		&r.CompletedAt, &r.EstimatedFare, &r.FinalFare, &r.DistanceKm,
		&r.DurationMin, &r.PaymentMethod, &r.PaymentID,
		&r.CancellationReason, &r.Rating, &r.Review, &r.Version)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ride %s: %w", key, models.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	r.DriverID = driverID.String
	return &r, nil
}

func (p *PostgresStore) AppendLocation(ctx context.Context, s *models.LocationSample) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO ride_locations(id, ride_id,
		latitude, longitude, recorded_at) VALUES($1,$2,$3,$4,$5)`,
		s.ID, s.RideID, s.Latitude, s.Longitude, s.RecordedAt)
	return mapForeignKey(err, s.RideID)
}

func (p *PostgresStore) LocationsByRide(ctx context.Context, rideID string) ([]*models.LocationSample, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, ride_id, latitude, longitude,
		recorded_at FROM ride_locations WHERE ride_id=$1 ORDER BY recorded_at ASC`, rideID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.LocationSample
	for rows.Next() {
		var s models.LocationSample
		if err := rows.Scan(&s.ID, &s.RideID, &s.Latitude, &s.Longitude, &s.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

func (p *PostgresStore) AppendPayment(ctx context.Context, rec *models.PaymentRecord) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO payments(id, ride_id, amount,
		payment_method, transaction_id, status, recorded_at)
		VALUES($1,$2,$3,$4,$5,$6,$7)`,
		rec.ID, rec.RideID, rec.Amount, rec.Method, rec.TransactionRef,
		rec.Status, rec.RecordedAt)
	return mapForeignKey(err, rec.RideID)
}

func (p *PostgresStore) ListPayments(ctx context.Context, f RideFilter) ([]*models.PaymentRecord, error) {
	q := `SELECT p.id, p.ride_id, p.amount, p.payment_method, p.transaction_id,
		p.status, p.recorded_at FROM payments p JOIN rides r ON r.id = p.ride_id`
	var args []any
	switch {
	case f.RiderID != "":
		q += ` WHERE r.rider_id=$1`
		args = append(args, f.RiderID)
	case f.DriverID != "":
		q += ` WHERE r.driver_id=$1`
		args = append(args, f.DriverID)
	}
	q += ` ORDER BY p.recorded_at DESC`
	rows, err := p.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []*models.PaymentRecord
	for rows.Next() {
		var rec models.PaymentRecord
		if err := rows.Scan(&rec.ID, &rec.RideID, &rec.Amount, &rec.Method,
			&rec.TransactionRef, &rec.Status, &rec.RecordedAt); err != nil {
			return nil, err
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

func checkAffected(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, models.ErrNotFound)
	}
	return nil
}

func mapUniqueViolation(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%s: %w", pqErr.Constraint, models.ErrDuplicate)
	}
	return err
}

func mapForeignKey(err error, rideID string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23503" {
		return fmt.Errorf("ride %s: %w", rideID, models.ErrNotFound)
	}
	return err
}
