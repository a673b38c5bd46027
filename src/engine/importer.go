package engine

import (
	"fmt"

	"tabledit/src/models"
)

// ImportRows reconciles already-parsed partial rows against the table under
// the given merge policy, matching on the key column's value. Parsing the
// external file format is someone else's job; this is the reconciliation
// side of the import boundary.
//
// Per-row problems are collected into the result and never abort the run:
// an import always completes with a summary of what was added, skipped,
// updated, marked and rejected.
func (rs *RowSet) ImportRows(parsed []*models.Row, policy models.MergePolicy, keyColumn string) models.ImportResult {
	var result models.ImportResult

	if keyColumn == "" {
		result.Errors = append(result.Errors, models.ImportRowError{
			RowIndex: -1,
			Message:  "no key column configured for import matching",
		})
		return result
	}

	for i, incoming := range parsed {
		if incoming == nil {
			result.Errors = append(result.Errors, models.ImportRowError{
				RowIndex: i,
				Message:  "empty input row",
			})
			continue
		}

		key := incoming.Field(keyColumn)
		if key == nil || key == "" {
			result.Errors = append(result.Errors, models.ImportRowError{
				RowIndex: i,
				Message:  fmt.Sprintf("input row has no value in key column '%s'", keyColumn),
			})
			continue
		}

		existing, found := rs.FindByField(keyColumn, key)

		switch policy {
		case models.MergeSkipExisting:
			if found {
				result.Skipped++
				continue
			}
			rs.adoptIncoming(incoming)
			result.Added++

		case models.MergeOverwrite:
			if found {
				for column, value := range incoming.Fields {
					existing.SetField(column, value)
				}
				result.Updated++
				continue
			}
			rs.adoptIncoming(incoming)
			result.Added++

		case models.MergeMarkForDeletion:
			// Matching rows are flagged for the host to delete on save;
			// unmatched input still comes in as new rows.
			if found {
				existing.MarkedForDeletion = true
				result.MarkedForDeletion++
				continue
			}
			rs.adoptIncoming(incoming)
			result.Added++

		default:
			result.Errors = append(result.Errors, models.ImportRowError{
				RowIndex: i,
				Message:  fmt.Sprintf("unknown merge policy %q", policy),
			})
		}
	}

	if rs.logger != nil {
		rs.logger.Infof("Import finished: %d added, %d skipped, %d updated, %d marked, %d errors",
			result.Added, result.Skipped, result.Updated, result.MarkedForDeletion, len(result.Errors))
	}
	return result
}

// adoptIncoming hands an incoming row a local identity and appends it.
func (rs *RowSet) adoptIncoming(incoming *models.Row) {
	incoming.RowID = ""
	// Imported rows come in flat; hierarchy is the user's to arrange.
	incoming.ParentID = ""
	_ = rs.AdoptRow(incoming)
}
