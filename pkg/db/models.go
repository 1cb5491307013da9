package db

import (
	"context"
	"database/sql"
	"strings"
	"time"
)

// User represents an application user.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Calculation is one persisted calculator run: the raw trade inputs plus the
// derived figures and warning codes, keyed by a generated identifier.
// Zero-valued numeric figures mean the calculator left them undefined.
type Calculation struct {
	ID     string `json:"id"`
	UserID string `json:"-"`

	// Inputs
	EntryPrice    float64 `json:"entry_price"`
	StopPrice     float64 `json:"stop_price"`
	TakeProfit    float64 `json:"take_profit,omitempty"`
	ExposureMode  string  `json:"exposure_mode"`
	MarginCapital float64 `json:"margin_capital,omitempty"`
	PositionSize  float64 `json:"position_size,omitempty"`
	RiskMode      string  `json:"risk_mode"`
	RiskValue     float64 `json:"risk_value,omitempty"`

	// Outputs
	Ready             bool     `json:"ready"`
	Direction         string   `json:"direction,omitempty"`
	MaxLeverage       float64  `json:"max_leverage,omitempty"`
	MaxPositionSize   float64  `json:"max_position_size,omitempty"`
	RequiredMargin    float64  `json:"required_margin,omitempty"`
	AllowedLoss       float64  `json:"allowed_loss,omitempty"`
	RiskPercent       float64  `json:"risk_percent_of_capital,omitempty"`
	LossAtStop        float64  `json:"loss_at_stop,omitempty"`
	RiskReward        float64  `json:"risk_reward_ratio,omitempty"`
	ExpectedProfit    float64  `json:"expected_profit,omitempty"`
	ExpectedReturnPct float64  `json:"expected_return_pct,omitempty"`
	Warnings          []string `json:"warnings"`

	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// OwnerID returns the user the record belongs to, for user-scoped event delivery.
func (c Calculation) OwnerID() string { return c.UserID }

// CreateUser inserts a new user row.
func (d *Database) CreateUser(ctx context.Context, u User) error {
	_, err := d.DB.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, created_at, updated_at)
		VALUES (?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP), COALESCE(?, CURRENT_TIMESTAMP))
	`, u.ID, strings.ToLower(u.Email), u.PasswordHash, u.CreatedAt, u.UpdatedAt)
	return err
}

// GetUserByEmail returns a user by email or nil if not found.
func (d *Database) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	row := d.DB.QueryRowContext(ctx, `
		SELECT id, email, password_hash, created_at, updated_at
		FROM users WHERE email = ?
	`, strings.ToLower(email))
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &u, nil
}
