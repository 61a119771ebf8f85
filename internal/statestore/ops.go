package statestore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by GetState when no row exists for a MAC.
var ErrNotFound = errors.New("statestore: no state for mac")

// GetState returns the persisted state for mac, or ErrNotFound if no
// row has ever been written for it.
func (s *Store) GetState(ctx context.Context, mac string) (*MACState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `
		SELECT mac, switch, port, vlan, seen_at, stability_count,
		       last_status, last_action_at, cable_created, cable_id
		FROM mac_observations WHERE mac = ?`, mac)

	st, err := scanState(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("statestore: get_state(%q): %w", mac, err)
	}
	return st, nil
}

func scanState(row *sql.Row) (*MACState, error) {
	var (
		st           MACState
		vlan         sql.NullInt64
		seenAt       sql.NullTime
		lastActionAt sql.NullTime
		cableCreated int
	)
	if err := row.Scan(&st.MAC, &st.Switch, &st.Port, &vlan, &seenAt,
		&st.StabilityCount, &st.LastStatus, &lastActionAt, &cableCreated, &st.CableID); err != nil {
		return nil, err
	}
	if vlan.Valid {
		v := int(vlan.Int64)
		st.VLAN = &v
	}
	if seenAt.Valid {
		st.SeenAt = seenAt.Time
	}
	if lastActionAt.Valid {
		st.LastActionAt = lastActionAt.Time
	}
	st.CableCreated = cableCreated != 0
	return &st, nil
}

// UpdateObservation implements the stability invariant: if no prior row
// exists for mac, it is inserted with count=1. If the prior row's
// (switch, port) is identical to the new observation, the count
// increments; any deviation resets it to 1. seen_at is updated
// unconditionally. The returned is_stable is count >= threshold.
func (s *Store) UpdateObservation(ctx context.Context, mac, switchName, port string, vlan *int, threshold int, now time.Time) (count int, isStable bool, err error) {
	err = s.tx(ctx, func(tx *sql.Tx) error {
		var (
			prevSwitch, prevPort string
			prevCount            int
			hasRow               bool
		)
		row := tx.QueryRowContext(ctx, `SELECT switch, port, stability_count FROM mac_observations WHERE mac = ?`, mac)
		scanErr := row.Scan(&prevSwitch, &prevPort, &prevCount)
		switch {
		case errors.Is(scanErr, sql.ErrNoRows):
			hasRow = false
		case scanErr != nil:
			return scanErr
		default:
			hasRow = true
		}

		switch {
		case !hasRow:
			count = 1
		case prevSwitch == switchName && prevPort == port:
			count = prevCount + 1
		default:
			count = 1
		}

		var vlanArg interface{}
		if vlan != nil {
			vlanArg = *vlan
		}

		_, execErr := tx.ExecContext(ctx, `
			INSERT INTO mac_observations (mac, switch, port, vlan, seen_at, stability_count, last_status, last_action_at, cable_created, cable_id)
			VALUES (?, ?, ?, ?, ?, ?, '', NULL, 0, '')
			ON CONFLICT(mac) DO UPDATE SET
				switch = excluded.switch,
				port = excluded.port,
				vlan = excluded.vlan,
				seen_at = excluded.seen_at,
				stability_count = excluded.stability_count
		`, mac, switchName, port, vlanArg, now, count)
		return execErr
	})
	if err != nil {
		return 0, false, fmt.Errorf("statestore: update_observation(%q): %w", mac, err)
	}
	return count, count >= threshold, nil
}

// MarkNotFound resets stability_count to 0 and records NOT_FOUND,
// creating a row if absent. A MAC that disappears from every FDB must
// re-qualify its stability count from scratch on its next sighting.
func (s *Store) MarkNotFound(ctx context.Context, mac string, now time.Time) error {
	err := s.tx(ctx, func(tx *sql.Tx) error {
		_, execErr := tx.ExecContext(ctx, `
			INSERT INTO mac_observations (mac, switch, port, vlan, seen_at, stability_count, last_status, last_action_at, cable_created, cable_id)
			VALUES (?, '', '', NULL, ?, 0, ?, ?, 0, '')
			ON CONFLICT(mac) DO UPDATE SET
				stability_count = 0,
				last_status = excluded.last_status,
				last_action_at = excluded.last_action_at
		`, mac, now, StatusNotFound, now)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("statestore: mark_not_found(%q): %w", mac, err)
	}
	return nil
}

// UpdateStatus records the last decision status for mac. When status
// is StatusCreated, cable_created and cable_id are also set; cableID
// is ignored for any other status.
func (s *Store) UpdateStatus(ctx context.Context, mac string, status MACStatus, cableID string, now time.Time) error {
	err := s.tx(ctx, func(tx *sql.Tx) error {
		if status == StatusCreated {
			_, execErr := tx.ExecContext(ctx, `
				INSERT INTO mac_observations (mac, switch, port, vlan, seen_at, stability_count, last_status, last_action_at, cable_created, cable_id)
				VALUES (?, '', '', NULL, ?, 0, ?, ?, 1, ?)
				ON CONFLICT(mac) DO UPDATE SET
					last_status = excluded.last_status,
					last_action_at = excluded.last_action_at,
					cable_created = 1,
					cable_id = excluded.cable_id
			`, mac, now, status, now, cableID)
			return execErr
		}
		_, execErr := tx.ExecContext(ctx, `
			INSERT INTO mac_observations (mac, switch, port, vlan, seen_at, stability_count, last_status, last_action_at, cable_created, cable_id)
			VALUES (?, '', '', NULL, ?, 0, ?, ?, 0, '')
			ON CONFLICT(mac) DO UPDATE SET
				last_status = excluded.last_status,
				last_action_at = excluded.last_action_at
		`, mac, now, status, now)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("statestore: update_status(%q, %s): %w", mac, status, err)
	}
	return nil
}

// RecordRun appends a run_history row.
func (s *Store) RecordRun(ctx context.Context, summary RunSummary) error {
	err := s.tx(ctx, func(tx *sql.Tx) error {
		_, execErr := tx.ExecContext(ctx, `
			INSERT INTO run_history (id, run_at, total_macs, cnt_created, cnt_exists, cnt_skipped, cnt_ambiguous, cnt_not_found, cnt_errors)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, summary.RunID, summary.RunAt, summary.TotalMACs, summary.CntCreated, summary.CntExists,
			summary.CntSkipped, summary.CntAmbiguous, summary.CntNotFound, summary.CntErrors)
		return execErr
	})
	if err != nil {
		return fmt.Errorf("statestore: record_run(%q): %w", summary.RunID, err)
	}
	return nil
}

// ListCreatedCables returns every MAC whose observation row has
// cable_created=true, restoring the original implementation's
// get_all_with_cables audit query. Read-only: nothing in this repo
// reconciles or deletes these rows.
func (s *Store) ListCreatedCables(ctx context.Context) ([]MACState, error) {
	s.mu.Lock()
	rows, err := s.db.QueryContext(ctx, `
		SELECT mac, switch, port, vlan, seen_at, stability_count,
		       last_status, last_action_at, cable_created, cable_id
		FROM mac_observations WHERE cable_created = 1`)
	s.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("statestore: list_created_cables: %w", err)
	}
	defer rows.Close()

	var out []MACState
	for rows.Next() {
		var (
			st           MACState
			vlan         sql.NullInt64
			seenAt       sql.NullTime
			lastActionAt sql.NullTime
			cableCreated int
		)
		if err := rows.Scan(&st.MAC, &st.Switch, &st.Port, &vlan, &seenAt,
			&st.StabilityCount, &st.LastStatus, &lastActionAt, &cableCreated, &st.CableID); err != nil {
			return nil, fmt.Errorf("statestore: list_created_cables: scanning row: %w", err)
		}
		if vlan.Valid {
			v := int(vlan.Int64)
			st.VLAN = &v
		}
		if seenAt.Valid {
			st.SeenAt = seenAt.Time
		}
		if lastActionAt.Valid {
			st.LastActionAt = lastActionAt.Time
		}
		st.CableCreated = cableCreated != 0
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("statestore: list_created_cables: iterating rows: %w", err)
	}
	return out, nil
}
