// Package db provides user-isolated storage for calculation history.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrUserIDRequired = errors.New("user_id is required for data isolation")
	ErrNotFound       = errors.New("record not found")
)

// UserQueries provides user-isolated database queries.
type UserQueries struct {
	db *sql.DB
}

// NewUserQueries creates a new UserQueries instance.
func NewUserQueries(db *sql.DB) *UserQueries {
	return &UserQueries{db: db}
}

const calculationColumns = `
	id, user_id, entry_price, stop_price, take_profit, exposure_mode,
	margin_capital, position_size, risk_mode, risk_value,
	ready, COALESCE(direction, ''), max_leverage, max_position_size,
	required_margin, allowed_loss, risk_percent, loss_at_stop, risk_reward,
	expected_profit, expected_return_pct, COALESCE(warnings, '[]'),
	COALESCE(note, ''), created_at`

// SaveCalculation inserts a calculation row for a user.
func (q *UserQueries) SaveCalculation(ctx context.Context, c Calculation) error {
	if c.UserID == "" {
		return ErrUserIDRequired
	}

	warnings, err := json.Marshal(c.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}

	_, err = q.db.ExecContext(ctx, `
		INSERT INTO calculations (
			id, user_id, entry_price, stop_price, take_profit, exposure_mode,
			margin_capital, position_size, risk_mode, risk_value,
			ready, direction, max_leverage, max_position_size,
			required_margin, allowed_loss, risk_percent, loss_at_stop, risk_reward,
			expected_profit, expected_return_pct, warnings, note, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, COALESCE(?, CURRENT_TIMESTAMP))
	`,
		c.ID, c.UserID, c.EntryPrice, c.StopPrice, c.TakeProfit, c.ExposureMode,
		c.MarginCapital, c.PositionSize, c.RiskMode, c.RiskValue,
		c.Ready, c.Direction, c.MaxLeverage, c.MaxPositionSize,
		c.RequiredMargin, c.AllowedLoss, c.RiskPercent, c.LossAtStop, c.RiskReward,
		c.ExpectedProfit, c.ExpectedReturnPct, string(warnings), c.Note, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert calculation: %w", err)
	}
	return nil
}

// ListCalculationsByUser returns recent calculations for a user, newest first.
func (q *UserQueries) ListCalculationsByUser(ctx context.Context, userID string, limit, offset int) ([]Calculation, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	rows, err := q.db.QueryContext(ctx, `
		SELECT `+calculationColumns+`
		FROM calculations
		WHERE user_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("query calculations: %w", err)
	}
	defer rows.Close()

	var res []Calculation
	for rows.Next() {
		c, err := scanCalculation(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// GetCalculationByID returns a single calculation owned by the user.
func (q *UserQueries) GetCalculationByID(ctx context.Context, userID, id string) (*Calculation, error) {
	if userID == "" {
		return nil, ErrUserIDRequired
	}

	row := q.db.QueryRowContext(ctx, `
		SELECT `+calculationColumns+`
		FROM calculations
		WHERE id = ? AND user_id = ?
	`, id, userID)

	c, err := scanCalculation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// DeleteCalculation removes a calculation owned by the user.
func (q *UserQueries) DeleteCalculation(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrUserIDRequired
	}

	res, err := q.db.ExecContext(ctx, `
		DELETE FROM calculations WHERE id = ? AND user_id = ?
	`, id, userID)
	if err != nil {
		return fmt.Errorf("delete calculation: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// ClearCalculationsByUser deletes the whole history for a user and reports
// how many rows were removed.
func (q *UserQueries) ClearCalculationsByUser(ctx context.Context, userID string) (int64, error) {
	if userID == "" {
		return 0, ErrUserIDRequired
	}

	res, err := q.db.ExecContext(ctx, `DELETE FROM calculations WHERE user_id = ?`, userID)
	if err != nil {
		return 0, fmt.Errorf("clear calculations: %w", err)
	}
	return res.RowsAffected()
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCalculation(row scanner) (Calculation, error) {
	var (
		c        Calculation
		warnings string
	)
	err := row.Scan(
		&c.ID, &c.UserID, &c.EntryPrice, &c.StopPrice, &c.TakeProfit, &c.ExposureMode,
		&c.MarginCapital, &c.PositionSize, &c.RiskMode, &c.RiskValue,
		&c.Ready, &c.Direction, &c.MaxLeverage, &c.MaxPositionSize,
		&c.RequiredMargin, &c.AllowedLoss, &c.RiskPercent, &c.LossAtStop, &c.RiskReward,
		&c.ExpectedProfit, &c.ExpectedReturnPct, &warnings,
		&c.Note, &c.CreatedAt,
	)
	if err != nil {
		return Calculation{}, err
	}

	c.Warnings = []string{}
	if warnings != "" {
		if err := json.Unmarshal([]byte(warnings), &c.Warnings); err != nil {
			return Calculation{}, fmt.Errorf("unmarshal warnings: %w", err)
		}
	}
	if c.Warnings == nil {
		c.Warnings = []string{}
	}
	return c, nil
}
