// Package tokens issues and validates the per-table secrets embedded in
// printed QR codes. It is the trust root for "which physical table is this
// session at": every order-affecting request goes through Validate.
package tokens

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"

	"gorm.io/gorm"

	"tableside-go/models"
)

const secretBytes = 32

type Authority struct {
	db *gorm.DB
}

func NewAuthority(db *gorm.DB) *Authority {
	return &Authority{db: db}
}

// Issue creates a fresh token for a table and deactivates any previously
// active token for the same venue+label in the same transaction, so a
// revoked printed code can never validate again.
func (a *Authority) Issue(ctx context.Context, venueID uint, tableLabel string) (*models.TableToken, error) {
	if tableLabel == "" {
		return nil, fmt.Errorf("table label must not be empty")
	}

	secret, err := newSecret()
	if err != nil {
		return nil, fmt.Errorf("generate table secret: %w", err)
	}

	token := &models.TableToken{
		VenueID:    venueID,
		TableLabel: tableLabel,
		Secret:     secret,
		IsActive:   true,
		IssuedAt:   time.Now(),
	}

	err = a.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.TableToken{}).
			Where("venue_id = ? AND table_label = ? AND is_active = ?", venueID, tableLabel, true).
			Update("is_active", false).Error; err != nil {
			return err
		}
		return tx.Create(token).Error
	})
	if err != nil {
		return nil, err
	}

	return token, nil
}

// Validate reports whether an active token exists for exactly that
// venue+table+secret triple. A missing or half-present credential is a
// plain "no", not an error; only store failures return an error, and the
// caller must treat those as a rejection too (never fail open).
func (a *Authority) Validate(ctx context.Context, venueID uint, tableLabel, secret string) (*models.TableToken, bool, error) {
	if tableLabel == "" || secret == "" {
		return nil, false, nil
	}

	var token models.TableToken
	err := a.db.WithContext(ctx).
		Where("venue_id = ? AND table_label = ? AND is_active = ?", venueID, tableLabel, true).
		First(&token).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, false, nil
		}
		return nil, false, err
	}

	// The secret arrives attacker-supplied on every order attempt.
	if subtle.ConstantTimeCompare([]byte(token.Secret), []byte(secret)) != 1 {
		return nil, false, nil
	}

	return &token, true, nil
}

// Touch records when the token was last used. Operational visibility only,
// never part of the validation outcome.
func (a *Authority) Touch(ctx context.Context, token *models.TableToken) error {
	now := time.Now()
	return a.db.WithContext(ctx).Model(token).Update("last_used_at", &now).Error
}

// Deactivate retires a token without issuing a replacement. Scoped to the
// venue so one merchant cannot revoke another's tables.
func (a *Authority) Deactivate(ctx context.Context, venueID, tokenID uint) error {
	res := a.db.WithContext(ctx).Model(&models.TableToken{}).
		Where("id = ? AND venue_id = ? AND is_active = ?", tokenID, venueID, true).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListForVenue returns all tokens of a venue, newest first, active and
// retired alike. Retired tokens stay visible for audit.
func (a *Authority) ListForVenue(ctx context.Context, venueID uint) ([]models.TableToken, error) {
	var tokens []models.TableToken
	err := a.db.WithContext(ctx).
		Where("venue_id = ?", venueID).
		Order("created_at DESC").
		Find(&tokens).Error
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func newSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
