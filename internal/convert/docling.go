package convert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// DoclingClient converts files through a docling-serve compatible HTTP API.
type DoclingClient struct {
	BaseURL string
	Options Options
	client  *http.Client
}

// NewDoclingClient creates a client for the conversion service at baseURL.
// The HTTP client has no timeout; enriched conversions can run for minutes.
func NewDoclingClient(baseURL string, opts Options) *DoclingClient {
	return &DoclingClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Options: opts,
		client:  &http.Client{},
	}
}

// doclingFormats maps formats to the service's input format names.
// Plain text has no dedicated input format and is submitted as markdown.
var doclingFormats = map[Format]string{
	FormatPDF:  "pdf",
	FormatDOCX: "docx",
	FormatPPTX: "pptx",
	FormatXLSX: "xlsx",
	FormatCSV:  "csv",
	FormatHTML: "html",
	FormatTXT:  "md",
}

// DoclingError is one error entry reported by the conversion service.
type DoclingError struct {
	ComponentType string `json:"component_type"`
	ModuleName    string `json:"module_name"`
	ErrorMessage  string `json:"error_message"`
}

// DoclingDocument is the exported document in a conversion response.
type DoclingDocument struct {
	Filename  string `json:"filename"`
	MDContent string `json:"md_content"`
}

// DoclingResponse is the conversion service response body.
type DoclingResponse struct {
	Document       DoclingDocument `json:"document"`
	Status         string          `json:"status"`
	Errors         []DoclingError  `json:"errors"`
	ProcessingTime float64         `json:"processing_time"`
}

// Convert uploads the file and parses the returned markdown into a Document.
// Anything short of a full success, including partial success, is an error.
func (c *DoclingClient) Convert(ctx context.Context, path string, format Format) (*Document, error) {
	fromFormat, ok := doclingFormats[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupported, format)
	}

	body, contentType, err := c.buildForm(path, format, fromFormat)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1/convert/file", c.BaseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("bad status %d: %s", resp.StatusCode, string(raw))
	}

	var convResp DoclingResponse
	if err := json.NewDecoder(resp.Body).Decode(&convResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if convResp.Status != "success" {
		msgs := make([]string, 0, len(convResp.Errors))
		for _, e := range convResp.Errors {
			msgs = append(msgs, fmt.Sprintf("%s/%s: %s", e.ComponentType, e.ModuleName, e.ErrorMessage))
		}
		return nil, fmt.Errorf("conversion status %q: %s", convResp.Status, strings.Join(msgs, "; "))
	}

	return ParseMarkdown(filepath.Base(path), []byte(convResp.Document.MDContent)), nil
}

// buildForm writes the file and conversion options as a multipart body.
func (c *DoclingClient) buildForm(path string, format Format, fromFormat string) (io.Reader, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to open input: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	filename := filepath.Base(path)
	if format == FormatTXT {
		filename = strings.TrimSuffix(filename, filepath.Ext(filename)) + ".md"
	}
	part, err := w.CreateFormFile("files", filename)
	if err != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("failed to read input: %w", err)
	}

	pictureAPI, err := json.Marshal(c.Options.PictureDescriptionRemote)
	if err != nil {
		return nil, "", fmt.Errorf("failed to marshal picture description options: %w", err)
	}

	fields := [][2]string{
		{"from_formats", fromFormat},
		{"to_formats", "md"},
		{"image_export_mode", c.Options.ImageExportMode},
		{"images_scale", strconv.FormatFloat(c.Options.ImagesScale, 'f', -1, 64)},
		{"do_table_structure", strconv.FormatBool(c.Options.DoTableStructure)},
		{"do_formula_enrichment", strconv.FormatBool(c.Options.DoFormulaEnrichment)},
		{"do_code_enrichment", strconv.FormatBool(c.Options.DoCodeEnrichment)},
		{"do_picture_classification", strconv.FormatBool(c.Options.DoPictureClassification)},
		{"do_picture_description", strconv.FormatBool(c.Options.DoPictureDescription)},
		{"enable_remote_services", strconv.FormatBool(c.Options.EnableRemoteServices)},
		{"picture_description_api", string(pictureAPI)},
	}
	for _, field := range fields {
		if err := w.WriteField(field[0], field[1]); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %s: %w", field[0], err)
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to close form: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}

// Ping checks that the conversion service answers its health endpoint.
func (c *DoclingClient) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("bad status %d", resp.StatusCode)
	}
	return nil
}
