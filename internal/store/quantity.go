package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopfloor-io/floorline/internal/core"
)

// WriteQuantityRecord appends a quantity record and its scrap attributions in
// a single transaction. The record and attributions commit together or not at
// all. There is no update path: corrections are compensating records.
//
// Quantity invariants are validated by the reconciler before this call; the
// CHECK constraints in the schema are a second line of defense against
// out-of-band writers.
func (s *Store) WriteQuantityRecord(ctx context.Context, rec core.QuantityRecord, attrs []core.ScrapAttribution) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write quantity record: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	_, err = tx.ExecContext(ctx, `
		INSERT INTO quantity_records
		(id, tenant_id, operation_id, quantity_produced, quantity_good, quantity_scrap, quantity_rework,
		 material_lot, material_supplier, material_certificate, recorded_by, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID,
		rec.TenantID,
		rec.OperationID,
		rec.Produced,
		rec.Good,
		rec.Scrap,
		rec.Rework,
		rec.Material.LotNumber,
		rec.Material.Supplier,
		rec.Material.Certificate,
		rec.RecordedBy,
		marshalTime(rec.RecordedAt),
	)
	if err != nil {
		return fmt.Errorf("write quantity record: %w", err)
	}

	for _, a := range attrs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO scrap_attributions (id, record_id, reason_id, quantity)
			VALUES (?, ?, ?, ?)
		`, a.ID, rec.ID, a.ReasonID, a.Quantity)
		if err != nil {
			return fmt.Errorf("write scrap attribution: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write quantity record: commit: %w", err)
	}
	return nil
}

// GetQuantityRecord retrieves a single record with its attributions.
func (s *Store) GetQuantityRecord(ctx context.Context, tenantID, id string) (core.QuantityRecord, []core.ScrapAttribution, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, operation_id, quantity_produced, quantity_good, quantity_scrap, quantity_rework,
		       material_lot, material_supplier, material_certificate, recorded_by, recorded_at
		FROM quantity_records
		WHERE tenant_id = ? AND id = ?
	`, tenantID, id)

	rec, err := scanQuantityRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.QuantityRecord{}, nil, core.NewNotFoundError("quantity_record", id)
	}
	if err != nil {
		return core.QuantityRecord{}, nil, err
	}

	attrs, err := s.listAttributions(ctx, rec.ID)
	if err != nil {
		return core.QuantityRecord{}, nil, err
	}
	return rec, attrs, nil
}

// ListQuantityRecords returns an operation's records in recording order,
// ties broken by id.
func (s *Store) ListQuantityRecords(ctx context.Context, tenantID, operationID string) ([]core.QuantityRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, operation_id, quantity_produced, quantity_good, quantity_scrap, quantity_rework,
		       material_lot, material_supplier, material_certificate, recorded_by, recorded_at
		FROM quantity_records
		WHERE tenant_id = ? AND operation_id = ?
		ORDER BY recorded_at ASC, id ASC
	`, tenantID, operationID)
	if err != nil {
		return nil, fmt.Errorf("list quantity records: %w", err)
	}
	defer rows.Close()

	records := []core.QuantityRecord{}
	for rows.Next() {
		rec, err := scanQuantityRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate quantity records: %w", err)
	}
	return records, nil
}

func (s *Store) listAttributions(ctx context.Context, recordID string) ([]core.ScrapAttribution, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, record_id, reason_id, quantity
		FROM scrap_attributions
		WHERE record_id = ?
		ORDER BY id ASC
	`, recordID)
	if err != nil {
		return nil, fmt.Errorf("list attributions: %w", err)
	}
	defer rows.Close()

	attrs := []core.ScrapAttribution{}
	for rows.Next() {
		var a core.ScrapAttribution
		if err := rows.Scan(&a.ID, &a.RecordID, &a.ReasonID, &a.Quantity); err != nil {
			return nil, fmt.Errorf("scan attribution: %w", err)
		}
		attrs = append(attrs, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attributions: %w", err)
	}
	return attrs, nil
}

func scanQuantityRecord(sc scanner) (core.QuantityRecord, error) {
	var (
		rec        core.QuantityRecord
		recordedAt string
	)
	err := sc.Scan(&rec.ID, &rec.TenantID, &rec.OperationID,
		&rec.Produced, &rec.Good, &rec.Scrap, &rec.Rework,
		&rec.Material.LotNumber, &rec.Material.Supplier, &rec.Material.Certificate,
		&rec.RecordedBy, &recordedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.QuantityRecord{}, err
		}
		return core.QuantityRecord{}, fmt.Errorf("scan quantity record: %w", err)
	}
	if rec.RecordedAt, err = unmarshalTime(recordedAt); err != nil {
		return core.QuantityRecord{}, err
	}
	return rec, nil
}
