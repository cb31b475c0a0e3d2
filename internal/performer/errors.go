package performer

import (
	"errors"
	"fmt"

	"github.com/nao1215/fedsearch/internal/model"
)

var (
	// ErrInvalidSource is returned by Source.Validate.
	ErrInvalidSource = errors.New("performer: invalid source")

	// ErrNoDetailStage is returned when a preliminary result is crawled on a
	// source without a detail pattern.
	ErrNoDetailStage = errors.New("performer: source has no detail stage")

	// ErrFiltered marks an item that decoded fine but was rejected by the
	// source's filter. It wraps model.ErrExtractFailure so the pipeline
	// counts it as a skipped row.
	ErrFiltered = fmt.Errorf("performer: item filtered out: %w", model.ErrExtractFailure)
)

// extractError makes sure err is recognized as a row-level failure.
func extractError(err error) error {
	if errors.Is(err, model.ErrExtractFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", model.ErrExtractFailure, err)
}

// decodeError makes sure err is recognized as a page-level decode failure.
func decodeError(err error) error {
	if errors.Is(err, model.ErrDecodeFailure) {
		return err
	}
	return fmt.Errorf("%w: %w", model.ErrDecodeFailure, err)
}
