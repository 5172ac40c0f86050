package pipeline

import "errors"

var (
	// ErrNoImage means the request carried no image bytes.
	ErrNoImage = errors.New("no image provided")

	// ErrImageTooLarge means the upload exceeded the configured size limit.
	ErrImageTooLarge = errors.New("image too large")

	// ErrUnsupportedImage means the upload is not a recognizable image.
	ErrUnsupportedImage = errors.New("unsupported image type")

	// ErrAnalysisFailed wraps transport or provider failures of the vision call.
	ErrAnalysisFailed = errors.New("analysis failed")

	// ErrEmptyResponse means the provider answered without any text.
	ErrEmptyResponse = errors.New("no content returned from model")

	// ErrMalformedResponse means no parseable JSON object was found in the reply.
	ErrMalformedResponse = errors.New("malformed model response")

	// ErrNothingMaterialized means every insert of a non-empty batch failed.
	ErrNothingMaterialized = errors.New("no transactions were saved")
)
