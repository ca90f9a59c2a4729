// Package errors provides structured error handling for Examine.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: store availability errors
//   - 2XX: apply/conversion errors
//   - 3XX: maintenance errors
//   - 4XX: configuration errors
package errors

// Category defines error categories for classification.
type Category string

const (
	// CategoryStore indicates store availability errors.
	CategoryStore Category = "STORE"
	// CategoryApply indicates per-operation apply errors.
	CategoryApply Category = "APPLY"
	// CategoryMaintenance indicates compaction/merge errors.
	CategoryMaintenance Category = "MAINTENANCE"
	// CategoryConfig indicates configuration errors.
	CategoryConfig Category = "CONFIG"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
)

// Error codes organized by category.
const (
	// Store availability (100-199)
	ErrCodeStoreUnavailable = "ERR_101_STORE_UNAVAILABLE"
	ErrCodeStoreLocked      = "ERR_102_STORE_LOCKED"
	ErrCodeStoreCorrupt     = "ERR_103_STORE_CORRUPT"

	// Apply failures (200-299)
	ErrCodeApplyFailure    = "ERR_201_APPLY_FAILURE"
	ErrCodeFieldConversion = "ERR_202_FIELD_CONVERSION"
	ErrCodeEmptyID         = "ERR_203_EMPTY_ITEM_ID"

	// Maintenance (300-399)
	ErrCodeCompactionFailure = "ERR_301_COMPACTION_FAILURE"
	ErrCodeMergeFailure      = "ERR_302_MERGE_FAILURE"

	// Configuration (400-499)
	ErrCodeConfigInvalid = "ERR_401_CONFIG_INVALID"
)

// categoryFromCode derives the category from the code's number block.
func categoryFromCode(code string) Category {
	if len(code) < 5 {
		return CategoryInternal
	}
	switch code[4] {
	case '1':
		return CategoryStore
	case '2':
		return CategoryApply
	case '3':
		return CategoryMaintenance
	case '4':
		return CategoryConfig
	default:
		return CategoryInternal
	}
}
