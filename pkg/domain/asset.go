package domain

import (
	"strconv"

	dErrors "rwaledger/pkg/domain-errors"
)

// AssetID identifies an asset. IDs are assigned sequentially from 0 and are
// never reused or reassigned.
type AssetID uint64

// String returns the decimal form.
func (id AssetID) String() string {
	return strconv.FormatUint(uint64(id), 10)
}

// ParseAssetID parses a decimal asset identifier.
func ParseAssetID(s string) (AssetID, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid asset id")
	}
	return AssetID(v), nil
}

// AssetType is the closed set of asset categories.
//
// Usage: construct via ParseAssetType at trust boundaries to enforce the
// allowlist; direct casting bypasses validation.
type AssetType string

const (
	AssetTypeProperty    AssetType = "property"
	AssetTypeShare       AssetType = "share"
	AssetTypeCollectible AssetType = "collectible"
	AssetTypeDocument    AssetType = "document"
	AssetTypeOther       AssetType = "other"
)

var validAssetTypes = map[AssetType]bool{
	AssetTypeProperty:    true,
	AssetTypeShare:       true,
	AssetTypeCollectible: true,
	AssetTypeDocument:    true,
	AssetTypeOther:       true,
}

// ParseAssetType constructs an AssetType from external input.
//
// Errors: returns CodeInvalidInput when the value is empty or unsupported.
func ParseAssetType(s string) (AssetType, error) {
	if s == "" {
		return "", dErrors.New(dErrors.CodeInvalidInput, "asset type cannot be empty")
	}
	t := AssetType(s)
	if !t.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid asset type")
	}
	return t, nil
}

// IsValid checks if the type is one of the supported values.
func (t AssetType) IsValid() bool {
	return validAssetTypes[t]
}

func (t AssetType) String() string {
	return string(t)
}

// AssetStatus is the lifecycle status of an asset.
type AssetStatus string

const (
	AssetStatusPending  AssetStatus = "pending"
	AssetStatusActive   AssetStatus = "active"
	AssetStatusFrozen   AssetStatus = "frozen"
	AssetStatusDelisted AssetStatus = "delisted"
)

var validAssetStatuses = map[AssetStatus]bool{
	AssetStatusPending:  true,
	AssetStatusActive:   true,
	AssetStatusFrozen:   true,
	AssetStatusDelisted: true,
}

// ParseAssetStatus constructs an AssetStatus from external input.
func ParseAssetStatus(s string) (AssetStatus, error) {
	st := AssetStatus(s)
	if !st.IsValid() {
		return "", dErrors.New(dErrors.CodeInvalidInput, "invalid asset status")
	}
	return st, nil
}

// IsValid checks if the status is one of the supported values.
func (s AssetStatus) IsValid() bool {
	return validAssetStatuses[s]
}

func (s AssetStatus) String() string {
	return string(s)
}
