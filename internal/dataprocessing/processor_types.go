package dataprocessing

import (
	"fmt"
)

// OutlierMethod selects how RemoveOutliers scores values
type OutlierMethod string

const (
	// OutlierZScore drops rows whose absolute z-score exceeds the threshold
	OutlierZScore OutlierMethod = "zscore"
	// OutlierIQR drops rows outside [Q1 - t*IQR, Q3 + t*IQR]
	OutlierIQR OutlierMethod = "iqr"
)

// ImputeMethod selects the replacement for missing cells
type ImputeMethod string

const (
	ImputeMean     ImputeMethod = "mean"
	ImputeMedian   ImputeMethod = "median"
	ImputeMode     ImputeMethod = "mode"
	ImputeConstant ImputeMethod = "constant"
)

// NormalizeMethod selects the scaling applied by NormalizeColumn
type NormalizeMethod string

const (
	NormalizeMinMax NormalizeMethod = "minmax"
	NormalizeZScore NormalizeMethod = "zscore"
)

// CleaningOptions configures the outlier removal and normalization applied
// to valid rows before they are exported
type CleaningOptions struct {
	// Columns to clean. Empty means every numeric column.
	Columns []string `yaml:"columns" json:"columns"`

	OutlierMethod OutlierMethod `yaml:"outlier_method" json:"outlier_method" validate:"omitempty,oneof=zscore iqr"`

	// Threshold is the z-score limit or the IQR multiplier
	Threshold float64 `yaml:"threshold" json:"threshold" validate:"gte=0"`

	// Normalize is empty when values keep their scale
	Normalize NormalizeMethod `yaml:"normalize" json:"normalize" validate:"omitempty,oneof=minmax zscore"`

	// Impute fills missing cells before outliers are scored. Empty keeps them,
	// and the outlier pass then drops their rows.
	Impute ImputeMethod `yaml:"impute" json:"impute" validate:"omitempty,oneof=mean median mode constant"`
	// FillValue is written by the constant method
	FillValue string `yaml:"fill_value" json:"fill_value" validate:"required_if=Impute constant"`
}

// DefaultCleaningOptions returns z-score outlier removal at 3 without normalization
func DefaultCleaningOptions() CleaningOptions {
	return CleaningOptions{
		OutlierMethod: OutlierZScore,
		Threshold:     3,
	}
}

func unknownMethod(op string, method any) error {
	return fmt.Errorf("unsupported %s method: %v", op, method)
}
