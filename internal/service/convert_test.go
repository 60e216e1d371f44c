package service_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"go.uber.org/mock/gomock"

	"chunkrelay/internal/chunker"
	"chunkrelay/internal/contextutil"
	"chunkrelay/internal/convert"
	convertmocks "chunkrelay/internal/convert/mocks"
	"chunkrelay/internal/delivery"
	"chunkrelay/internal/metrics"
	"chunkrelay/internal/service"
	"chunkrelay/internal/service/mocks"
)

func init() {
	// Keep test output free of service logs.
	slog.SetDefault(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const targetBase = "/srv/chunks/"

type fixture struct {
	tempDir   string
	converter *convertmocks.MockConverter
	uploader  *mocks.MockUploader
	svc       service.ConvertService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &fixture{
		tempDir:   t.TempDir(),
		converter: convertmocks.NewMockConverter(ctrl),
		uploader:  mocks.NewMockUploader(ctrl),
	}
	f.svc = service.NewConvertService(
		f.converter,
		newSerializer(),
		f.uploader,
		service.ConvertConfig{TempDir: f.tempDir, TargetBase: targetBase},
		nil,
	)
	return f
}

func newSerializer() *chunker.Serializer {
	return chunker.NewSerializer(chunker.NewHybridChunker(100, chunker.EstimateTokenizer{}))
}

func upload(name, content string) service.Upload {
	return service.Upload{Filename: name, Content: strings.NewReader(content)}
}

func assertTempDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("failed to read temp dir: %v", err)
	}
	if len(entries) != 0 {
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		t.Errorf("temp dir not cleaned up: %v", names)
	}
}

func assertFailed(t *testing.T, report service.Report, wantSubstr string) {
	t.Helper()
	if report.Status != service.StatusFailed {
		t.Errorf("Status = %q, want %q", report.Status, service.StatusFailed)
	}
	if report.Document.SavedRemotely != nil {
		t.Errorf("SavedRemotely = %q, want nil", *report.Document.SavedRemotely)
	}
	if len(report.Errors) != 1 {
		t.Fatalf("Errors = %v, want exactly one", report.Errors)
	}
	if !strings.Contains(report.Errors[0], wantSubstr) {
		t.Errorf("Errors[0] = %q, want it to mention %q", report.Errors[0], wantSubstr)
	}
}

func TestConvertService_Convert_Success(t *testing.T) {
	f := newFixture(t)

	doc := &convert.Document{
		Name: "report.pdf",
		Items: []convert.Item{
			{Kind: convert.KindHeading, Level: 1, Text: "Quarterly Report"},
			{Kind: convert.KindParagraph, Text: "Revenue grew."},
		},
	}

	f.converter.EXPECT().
		Convert(gomock.Any(), gomock.Any(), convert.FormatPDF).
		DoAndReturn(func(ctx context.Context, path string, format convert.Format) (*convert.Document, error) {
			if !strings.HasSuffix(path, ".pdf") || filepath.Dir(path) != f.tempDir {
				t.Errorf("converter got path %s", path)
			}
			data, err := os.ReadFile(path)
			if err != nil || string(data) != "%PDF-1.7 body" {
				t.Errorf("temp input = %q, err = %v", data, err)
			}
			return doc, nil
		})
	f.uploader.EXPECT().
		Upload(gomock.Any(), gomock.Any(), "/srv/chunks/report_chunked.md").
		DoAndReturn(func(ctx context.Context, localPath, remotePath string) error {
			data, err := os.ReadFile(localPath)
			if err != nil {
				t.Errorf("failed to read artifact: %v", err)
				return nil
			}
			want := chunker.ChunkSplitter + "\n\nQuarterly Report\nRevenue grew.\n\n"
			if string(data) != want {
				t.Errorf("artifact = %q, want %q", data, want)
			}
			return nil
		})

	report := f.svc.Convert(context.Background(), upload("report.pdf", "%PDF-1.7 body"))

	if report.Status != service.StatusSuccess {
		t.Fatalf("Status = %q, errors = %v", report.Status, report.Errors)
	}
	if report.Document.Filename != "report.pdf" {
		t.Errorf("Filename = %q", report.Document.Filename)
	}
	if report.Document.SavedRemotely == nil || *report.Document.SavedRemotely != "/srv/chunks/report_chunked.md" {
		t.Errorf("SavedRemotely = %v", report.Document.SavedRemotely)
	}
	if report.Errors == nil || len(report.Errors) != 0 {
		t.Errorf("Errors = %#v, want empty non-nil slice", report.Errors)
	}
	if report.ProcessingTime <= 0 {
		t.Errorf("ProcessingTime = %v, want > 0", report.ProcessingTime)
	}
	assertTempDirEmpty(t, f.tempDir)
}

func TestConvertService_Convert_SupportedExtensions(t *testing.T) {
	tests := []struct {
		filename string
		format   convert.Format
		target   string
	}{
		{filename: "a.pdf", format: convert.FormatPDF, target: "/srv/chunks/a_chunked.md"},
		{filename: "b.docx", format: convert.FormatDOCX, target: "/srv/chunks/b_chunked.md"},
		{filename: "c.pptx", format: convert.FormatPPTX, target: "/srv/chunks/c_chunked.md"},
		{filename: "legacy.ppt", format: convert.FormatPPTX, target: "/srv/chunks/legacy_chunked.md"},
		{filename: "d.xlsx", format: convert.FormatXLSX, target: "/srv/chunks/d_chunked.md"},
		{filename: "e.csv", format: convert.FormatCSV, target: "/srv/chunks/e_chunked.md"},
		{filename: "f.html", format: convert.FormatHTML, target: "/srv/chunks/f_chunked.md"},
		{filename: "g.htm", format: convert.FormatHTML, target: "/srv/chunks/g_chunked.md"},
		{filename: "h.txt", format: convert.FormatTXT, target: "/srv/chunks/h_chunked.md"},
		{filename: "SHOUT.PDF", format: convert.FormatPDF, target: "/srv/chunks/SHOUT_chunked.md"},
		{filename: "archive.v2.Docx", format: convert.FormatDOCX, target: "/srv/chunks/archive.v2_chunked.md"},
		{filename: `C:\Users\me\memo.txt`, format: convert.FormatTXT, target: "/srv/chunks/memo_chunked.md"},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			f := newFixture(t)
			f.converter.EXPECT().
				Convert(gomock.Any(), gomock.Any(), tt.format).
				Return(&convert.Document{}, nil)
			f.uploader.EXPECT().
				Upload(gomock.Any(), gomock.Any(), tt.target).
				Return(nil)

			report := f.svc.Convert(context.Background(), upload(tt.filename, "content"))
			if report.Status != service.StatusSuccess {
				t.Errorf("Status = %q, errors = %v", report.Status, report.Errors)
			}
			assertTempDirEmpty(t, f.tempDir)
		})
	}
}

func TestConvertService_Convert_UnsupportedExtension(t *testing.T) {
	for _, name := range []string{"archive.zip", "image.PNG", "README", ".bashrc"} {
		t.Run(name, func(t *testing.T) {
			f := newFixture(t)
			// No converter or uploader calls are expected.

			report := f.svc.Convert(context.Background(), upload(name, "bytes"))

			assertFailed(t, report, "Unsupported file extension")
			if ext := strings.ToLower(filepath.Ext(name)); ext != "" && ext != name && !strings.Contains(report.Errors[0], ext) {
				t.Errorf("Errors[0] = %q, want it to mention %q", report.Errors[0], ext)
			}
			assertTempDirEmpty(t, f.tempDir)
		})
	}
}

func TestConvertService_Convert_MissingFile(t *testing.T) {
	f := newFixture(t)

	report := f.svc.Convert(context.Background(), service.Upload{})

	assertFailed(t, report, "no file uploaded")
	assertTempDirEmpty(t, f.tempDir)
}

func TestConvertService_Convert_ConversionError(t *testing.T) {
	f := newFixture(t)
	f.converter.EXPECT().
		Convert(gomock.Any(), gomock.Any(), convert.FormatDOCX).
		Return(nil, errors.New("picture description timed out"))

	report := f.svc.Convert(context.Background(), upload("letter.docx", "PK"))

	assertFailed(t, report, "conversion failed: picture description timed out")
	assertTempDirEmpty(t, f.tempDir)
}

func TestConvertService_Convert_Panic(t *testing.T) {
	f := newFixture(t)
	f.converter.EXPECT().
		Convert(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, path string, format convert.Format) (*convert.Document, error) {
			panic("engine blew up")
		})

	report := f.svc.Convert(context.Background(), upload("sheet.xlsx", "PK"))

	assertFailed(t, report, "internal error: engine blew up")
	assertTempDirEmpty(t, f.tempDir)
}

func TestConvertService_Convert_TempDirMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	svc := service.NewConvertService(convertmocks.NewMockConverter(ctrl), newSerializer(), mocks.NewMockUploader(ctrl),
		service.ConvertConfig{TempDir: filepath.Join(t.TempDir(), "gone"), TargetBase: targetBase}, nil)

	report := svc.Convert(context.Background(), upload("notes.txt", "hi"))

	assertFailed(t, report, "internal error: failed to create temp input")
}

type panickingTokenizer struct{}

func (panickingTokenizer) CountTokens(string) int {
	panic("tokenizer exploded")
}

func TestConvertService_Convert_PanicWhileSerializing(t *testing.T) {
	ctrl := gomock.NewController(t)
	converter := convertmocks.NewMockConverter(ctrl)
	converter.EXPECT().
		Convert(gomock.Any(), gomock.Any(), convert.FormatTXT).
		Return(&convert.Document{Items: []convert.Item{{Kind: convert.KindParagraph, Text: "hi"}}}, nil)

	tempDir := t.TempDir()
	svc := service.NewConvertService(converter,
		chunker.NewSerializer(chunker.NewHybridChunker(100, panickingTokenizer{})),
		mocks.NewMockUploader(ctrl),
		service.ConvertConfig{TempDir: tempDir, TargetBase: targetBase}, nil)

	report := svc.Convert(context.Background(), upload("notes.txt", "hi"))

	assertFailed(t, report, "internal error: tokenizer exploded")
	assertTempDirEmpty(t, tempDir)
}

func TestConvertService_Convert_UploadError(t *testing.T) {
	f := newFixture(t)
	f.converter.EXPECT().
		Convert(gomock.Any(), gomock.Any(), convert.FormatHTML).
		Return(&convert.Document{Items: []convert.Item{{Kind: convert.KindParagraph, Text: "hi"}}}, nil)
	f.uploader.EXPECT().
		Upload(gomock.Any(), gomock.Any(), "/srv/chunks/page_chunked.md").
		Return(errors.New("permission denied"))

	report := f.svc.Convert(context.Background(), upload("page.html", "<p>hi</p>"))

	assertFailed(t, report, "transfer failed: permission denied")
	assertTempDirEmpty(t, f.tempDir)
}

func TestConvertService_Convert_HostUnreachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to listen: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	_ = ln.Close()

	sftpClient, err := delivery.NewSFTPClient(delivery.Config{Host: "127.0.0.1", Port: port, User: "u", Password: "p"})
	if err != nil {
		t.Fatalf("NewSFTPClient() unexpected error: %v", err)
	}

	ctrl := gomock.NewController(t)
	converter := convertmocks.NewMockConverter(ctrl)
	converter.EXPECT().
		Convert(gomock.Any(), gomock.Any(), convert.FormatTXT).
		Return(&convert.Document{Items: []convert.Item{{Kind: convert.KindParagraph, Text: "remember the milk"}}}, nil)

	tempDir := t.TempDir()
	svc := service.NewConvertService(converter, newSerializer(), sftpClient,
		service.ConvertConfig{TempDir: tempDir, TargetBase: targetBase}, nil)

	report := svc.Convert(context.Background(), upload("notes.txt", "remember the milk"))

	assertFailed(t, report, "transfer failed")
	if report.ProcessingTime <= 0 {
		t.Errorf("ProcessingTime = %v, want > 0", report.ProcessingTime)
	}
	assertTempDirEmpty(t, tempDir)
}

func TestConvertService_Convert_ZeroChunks(t *testing.T) {
	f := newFixture(t)
	f.converter.EXPECT().
		Convert(gomock.Any(), gomock.Any(), convert.FormatCSV).
		Return(&convert.Document{Name: "data.csv"}, nil)
	f.uploader.EXPECT().
		Upload(gomock.Any(), gomock.Any(), "/srv/chunks/data_chunked.md").
		DoAndReturn(func(ctx context.Context, localPath, remotePath string) error {
			info, err := os.Stat(localPath)
			if err != nil {
				t.Errorf("artifact missing: %v", err)
				return nil
			}
			if info.Size() != 0 {
				t.Errorf("artifact size = %d, want 0", info.Size())
			}
			return nil
		})

	report := f.svc.Convert(context.Background(), upload("data.csv", ""))

	if report.Status != service.StatusSuccess {
		t.Errorf("Status = %q, errors = %v", report.Status, report.Errors)
	}
	assertTempDirEmpty(t, f.tempDir)
}

func TestConvertService_Convert_SameStemSameTarget(t *testing.T) {
	f := newFixture(t)
	f.converter.EXPECT().
		Convert(gomock.Any(), gomock.Any(), gomock.Any()).
		Return(&convert.Document{}, nil).
		Times(2)

	var targets []string
	f.uploader.EXPECT().
		Upload(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, localPath, remotePath string) error {
			targets = append(targets, remotePath)
			return nil
		}).
		Times(2)

	f.svc.Convert(context.Background(), upload("deck.pptx", "one"))
	f.svc.Convert(context.Background(), upload("deck.pdf", "two"))

	if len(targets) != 2 || targets[0] != targets[1] || targets[0] != "/srv/chunks/deck_chunked.md" {
		t.Errorf("targets = %v, want the same path twice", targets)
	}
}

func TestConvertService_Convert_LogsAndMetrics(t *testing.T) {
	ctrl := gomock.NewController(t)
	converter := convertmocks.NewMockConverter(ctrl)
	uploader := mocks.NewMockUploader(ctrl)
	converter.EXPECT().Convert(gomock.Any(), gomock.Any(), gomock.Any()).Return(&convert.Document{}, nil)
	uploader.EXPECT().Upload(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	reg := prometheus.NewRegistry()
	svc := service.NewConvertService(converter, newSerializer(), uploader,
		service.ConvertConfig{TempDir: t.TempDir(), TargetBase: targetBase}, metrics.MustNewMetrics(reg))

	var logs bytes.Buffer
	ctx := contextutil.WithLogger(context.Background(), slog.New(slog.NewTextHandler(&logs, nil)))

	svc.Convert(ctx, upload("ok.txt", "fine"))
	svc.Convert(ctx, upload("bad.zip", "nope"))

	if got, err := testutil.GatherAndCount(reg, "chunkrelay_conversions_total"); err != nil || got != 2 {
		t.Errorf("conversions_total series = %d (err %v), want 2", got, err)
	}
	if got, err := testutil.GatherAndCount(reg, "chunkrelay_chunks_produced"); err != nil || got != 1 {
		t.Errorf("chunks_produced series = %d (err %v), want 1", got, err)
	}

	out := logs.String()
	for _, want := range []string{"conversion delivered", "conversion failed", "filename=bad.zip"} {
		if !strings.Contains(out, want) {
			t.Errorf("logs missing %q:\n%s", want, out)
		}
	}
}
