package convert

import "chunkrelay/internal/llm"

// Options is the fixed enrichment configuration applied to every conversion.
type Options struct {
	DoTableStructure         bool
	DoFormulaEnrichment      bool
	DoCodeEnrichment         bool
	DoPictureClassification  bool
	DoPictureDescription     bool
	EnableRemoteServices     bool
	ImagesScale              float64
	ImageExportMode          string
	PictureDescriptionRemote llm.APIOptions
}

// DefaultOptions enables every enrichment and delegates picture description to describer.
func DefaultOptions(describer *llm.Client) Options {
	return Options{
		DoTableStructure:         true,
		DoFormulaEnrichment:      true,
		DoCodeEnrichment:         true,
		DoPictureClassification:  true,
		DoPictureDescription:     true,
		EnableRemoteServices:     true,
		ImagesScale:              2,
		ImageExportMode:          "placeholder",
		PictureDescriptionRemote: describer.APIOptions(),
	}
}
