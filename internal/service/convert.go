package service

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_uploader.go -package=mocks chunkrelay/internal/service Uploader
//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_convert_service.go -package=mocks -mock_names=ConvertService=MockConvertService chunkrelay/internal/service ConvertService

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"strings"
	"time"

	"chunkrelay/internal/contextutil"
	"chunkrelay/internal/convert"
	"chunkrelay/internal/delivery"
	"chunkrelay/internal/metrics"
)

// Report statuses.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Uploader delivers a local artifact to a remote path.
// This interface is defined from the service layer's perspective (consumer-first).
type Uploader interface {
	Upload(ctx context.Context, localPath, remotePath string) error
}

// ArtifactWriter chunks a document into a serialized artifact file.
type ArtifactWriter interface {
	WriteTempFile(dir string, doc *convert.Document) (path string, chunks int, err error)
}

// Upload is an inbound document. A nil Content means no file was sent.
type Upload struct {
	Filename string
	Content  io.Reader
}

// DocumentInfo identifies the uploaded document and where its artifact went.
type DocumentInfo struct {
	Filename      string  `json:"filename"`
	SavedRemotely *string `json:"saved_remotely"`
}

// Report is the outcome of one conversion request.
type Report struct {
	Document       DocumentInfo `json:"document"`
	Status         string       `json:"status"`
	Errors         []string     `json:"errors"`
	ProcessingTime float64      `json:"processing_time"`
}

// ConvertService converts uploads into chunked artifacts and delivers them.
type ConvertService interface {
	// Convert processes one upload. It never fails: errors are reported in the Report.
	Convert(ctx context.Context, upload Upload) Report
}

// ConvertConfig holds the per-process settings of the conversion service.
type ConvertConfig struct {
	TempDir    string // Local directory for temp inputs and artifacts
	TargetBase string // Remote directory receiving artifacts
}

// convertService implements ConvertService.
type convertService struct {
	converter convert.Converter
	writer    ArtifactWriter
	uploader  Uploader
	cfg       ConvertConfig
	metrics   *metrics.Metrics
}

// NewConvertService creates a new ConvertService. A nil metrics records nothing.
func NewConvertService(converter convert.Converter, writer ArtifactWriter, uploader Uploader, cfg ConvertConfig, m *metrics.Metrics) ConvertService {
	if cfg.TempDir == "" {
		cfg.TempDir = os.TempDir()
	}
	return &convertService{
		converter: converter,
		writer:    writer,
		uploader:  uploader,
		cfg:       cfg,
		metrics:   m,
	}
}

// Convert processes an upload end to end and reports the outcome.
func (s *convertService) Convert(ctx context.Context, upload Upload) Report {
	start := time.Now()
	logger := contextutil.LoggerFromContext(ctx).With("filename", upload.Filename)

	s.metrics.IncInFlight()
	defer s.metrics.DecInFlight()

	report := Report{
		Document: DocumentInfo{Filename: upload.Filename},
		Errors:   []string{},
	}

	remotePath, chunks, err := s.process(ctx, upload)
	if err != nil {
		report.Status = StatusFailed
		report.Errors = append(report.Errors, err.Error())
	} else {
		report.Status = StatusSuccess
		report.Document.SavedRemotely = &remotePath
	}

	elapsed := time.Since(start)
	report.ProcessingTime = elapsed.Seconds()
	s.metrics.ObserveConversion(report.Status, elapsed)

	if err != nil {
		logger.ErrorContext(ctx, "conversion failed", "error", err, "duration", elapsed)
	} else {
		logger.InfoContext(ctx, "conversion delivered", "remote_path", remotePath, "chunks", chunks, "duration", elapsed)
	}
	return report
}

// process runs the pipeline. Temp files are removed on every exit path and
// removal errors are ignored.
func (s *convertService) process(ctx context.Context, upload Upload) (remotePath string, chunks int, err error) {
	var inputPath, artifactPath string
	defer func() {
		if r := recover(); r != nil {
			remotePath, chunks = "", 0
			err = fmt.Errorf("%w: %v", ErrInternal, r)
		}
		removeQuietly(inputPath)
		removeQuietly(artifactPath)
	}()

	if upload.Content == nil {
		return "", 0, &ValidationError{Field: "file", Message: "no file uploaded"}
	}

	suffix, stem := splitFilename(upload.Filename)
	format, ok := convert.FormatForExtension(suffix)
	if !ok {
		return "", 0, &ValidationError{
			Field:   "filename",
			Message: "Unsupported file extension: " + suffix,
			Err:     ErrUnsupportedFormat,
		}
	}

	inputPath, err = s.persist(upload.Content, suffix)
	if err != nil {
		return "", 0, wrapKind(ErrInternal, err)
	}

	doc, err := s.converter.Convert(ctx, inputPath, format)
	if err != nil {
		return "", 0, wrapKind(ErrConversion, err)
	}

	artifactPath, chunks, err = s.writer.WriteTempFile(s.cfg.TempDir, doc)
	if err != nil {
		return "", 0, wrapKind(ErrInternal, err)
	}
	s.metrics.ObserveChunks(chunks)

	target := delivery.TargetPath(s.cfg.TargetBase, stem)
	if err := s.uploader.Upload(ctx, artifactPath, target); err != nil {
		return "", 0, wrapKind(ErrTransfer, err)
	}

	return target, chunks, nil
}

// persist copies content into a new temp file that keeps the upload's suffix.
func (s *convertService) persist(content io.Reader, suffix string) (string, error) {
	f, err := os.CreateTemp(s.cfg.TempDir, "upload-*"+suffix)
	if err != nil {
		return "", WrapError(err, "failed to create temp input")
	}
	name := f.Name()

	_, err = io.Copy(f, content)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(name)
		return "", WrapError(err, "failed to store upload")
	}
	return name, nil
}

// splitFilename returns the lowercase extension and the stem of name.
// Directory components are dropped; a leading dot does not start an extension.
func splitFilename(name string) (suffix, stem string) {
	base := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if base == "." || base == "/" {
		return "", ""
	}
	ext := path.Ext(base)
	if ext == base {
		ext = ""
	}
	return strings.ToLower(ext), strings.TrimSuffix(base, ext)
}

func removeQuietly(name string) {
	if name != "" {
		_ = os.Remove(name)
	}
}
