package store

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/qrapi/internal/model"
)

const (
	DefaultListLimit = 20
	MaxListLimit     = 100
)

// ClampLimit bounds a requested page size to [1, MaxListLimit], using
// DefaultListLimit for non-positive values.
func ClampLimit(limit int) int {
	if limit < 1 {
		return DefaultListLimit
	}
	return min(limit, MaxListLimit)
}

// QRCodeStore persists generated codes and their scan events. Codes are
// immutable once created; scans are append-only.
type QRCodeStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewQRCodeStore(db *sql.DB) *QRCodeStore {
	return &QRCodeStore{db: db, now: time.Now}
}

func scanQRCode(scanner interface{ Scan(...any) error }) (*model.QRCode, error) {
	var c model.QRCode
	var ownerID sql.NullInt64
	var kind, ec string

	err := scanner.Scan(
		&c.ID, &ownerID, &kind, &c.Content, &c.PixelSize,
		&ec, &c.FileRef, &c.CreatedAt, &c.ExpiresAt,
	)
	if err != nil {
		return nil, err
	}

	c.Kind = model.Kind(kind)
	c.ErrorCorrection = model.ECLevel(ec)
	if ownerID.Valid {
		c.OwnerID = &ownerID.Int64
	}
	return &c, nil
}

const qrCodeCols = `id, user_id, type, content, size, error_correction, file_path, created_at, expires_at`

// Create inserts a code with CreatedAt = now and ExpiresAt = now + model.Lifetime.
func (s *QRCodeStore) Create(kind model.Kind, content string, pixelSize int, ec model.ECLevel, fileRef string, ownerID *int64) (*model.QRCode, error) {
	var oID sql.NullInt64
	if ownerID != nil {
		oID = sql.NullInt64{Int64: *ownerID, Valid: true}
	}
	now := s.now().UTC()
	expiresAt := now.Add(model.Lifetime)

	result, err := s.db.Exec(
		`INSERT INTO qr_codes (user_id, type, content, size, error_correction, file_path, created_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		oID, string(kind), content, pixelSize, string(ec), fileRef, now, expiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert qr code: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return &model.QRCode{
		ID:              id,
		OwnerID:         ownerID,
		Kind:            kind,
		Content:         content,
		PixelSize:       pixelSize,
		ErrorCorrection: ec,
		FileRef:         fileRef,
		CreatedAt:       now,
		ExpiresAt:       expiresAt,
	}, nil
}

// GetByID returns the code or nil when no row matches.
func (s *QRCodeStore) GetByID(id int64) (*model.QRCode, error) {
	row := s.db.QueryRow(`SELECT `+qrCodeCols+` FROM qr_codes WHERE id = ?`, id)
	c, err := scanQRCode(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get qr code: %w", err)
	}
	return c, nil
}

// List returns codes newest first, optionally restricted to one kind. An
// empty kind lists every kind. The limit is passed through ClampLimit.
func (s *QRCodeStore) List(kind model.Kind, limit int) ([]model.QRCode, error) {
	limit = ClampLimit(limit)

	var rows *sql.Rows
	var err error
	if kind != "" {
		rows, err = s.db.Query(
			`SELECT `+qrCodeCols+` FROM qr_codes WHERE type = ?
			 ORDER BY created_at DESC, id DESC LIMIT ?`,
			string(kind), limit,
		)
	} else {
		rows, err = s.db.Query(
			`SELECT `+qrCodeCols+` FROM qr_codes
			 ORDER BY created_at DESC, id DESC LIMIT ?`,
			limit,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("list qr codes: %w", err)
	}
	defer rows.Close()

	var codes []model.QRCode
	for rows.Next() {
		c, err := scanQRCode(rows)
		if err != nil {
			return nil, fmt.Errorf("scan qr code: %w", err)
		}
		codes = append(codes, *c)
	}
	return codes, rows.Err()
}

// RecordScan appends a scan event. The caller must have confirmed the code exists.
func (s *QRCodeStore) RecordScan(codeID int64, ip, userAgent string) error {
	_, err := s.db.Exec(
		`INSERT INTO qr_scans (qr_id, ip_address, user_agent) VALUES (?, ?, ?)`,
		codeID, ip, userAgent,
	)
	if err != nil {
		return fmt.Errorf("insert scan: %w", err)
	}
	return nil
}

func (s *QRCodeStore) CountScans(codeID int64) (int, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM qr_scans WHERE qr_id = ?`, codeID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count scans: %w", err)
	}
	return n, nil
}
