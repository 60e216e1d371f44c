package convert

import "strings"

// Format is the input-format identifier understood by the conversion engines.
type Format string

const (
	FormatPDF  Format = "pdf"
	FormatDOCX Format = "docx"
	FormatPPTX Format = "pptx"
	FormatXLSX Format = "xlsx"
	FormatCSV  Format = "csv"
	FormatHTML Format = "html"
	FormatTXT  Format = "txt"
)

// formatsByExtension is read-only after package init.
var formatsByExtension = map[string]Format{
	".pdf":  FormatPDF,
	".docx": FormatDOCX,
	".pptx": FormatPPTX,
	".ppt":  FormatPPTX,
	".xlsx": FormatXLSX,
	".csv":  FormatCSV,
	".html": FormatHTML,
	".htm":  FormatHTML,
	".txt":  FormatTXT,
}

// FormatForExtension resolves a file extension (with leading dot, any case).
func FormatForExtension(ext string) (Format, bool) {
	f, ok := formatsByExtension[strings.ToLower(ext)]
	return f, ok
}

// SupportedExtensions lists every accepted extension.
func SupportedExtensions() []string {
	exts := make([]string, 0, len(formatsByExtension))
	for ext := range formatsByExtension {
		exts = append(exts, ext)
	}
	return exts
}
