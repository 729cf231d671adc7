package integrations

import (
	"archive/zip"
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kerbaras/mangaread/pkg/data"
)

func createTestImage(t *testing.T) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, 4, 6))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("Failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

func testManga() data.Manga {
	return data.Manga{
		Slug:             "test-manga",
		Title:            "test-manga",
		DisplayTitle:     "Test Manga",
		LastChapter:      data.NumberLabel("3"),
		LatestChapterHid: "abc",
	}
}

func readEPub(t *testing.T, path string) map[string]string {
	t.Helper()

	r, err := zip.OpenReader(path)
	if err != nil {
		t.Fatalf("Failed to open EPub: %v", err)
	}
	defer r.Close()

	files := make(map[string]string)
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("Failed to open %s: %v", f.Name, err)
		}
		b, _ := io.ReadAll(rc)
		rc.Close()
		files[f.Name] = string(b)
	}
	return files
}

func TestNewEPubBuilder(t *testing.T) {
	builder := NewEPubBuilder("/tmp/test")
	if builder == nil {
		t.Fatal("Expected builder to be created")
	}

	if builder.outputDir != "/tmp/test" {
		t.Errorf("Expected outputDir '/tmp/test', got '%s'", builder.outputDir)
	}
}

func TestEPubBuilderRequiresInit(t *testing.T) {
	builder := NewEPubBuilder(t.TempDir())

	if err := builder.Next(ImageData{Content: []byte{1}, ContentType: "image/png"}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized from Next, got %v", err)
	}
	if _, err := builder.Done(); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized from Done, got %v", err)
	}
	if err := builder.SetMangaCover(CoverData{Content: []byte{1}}); !errors.Is(err, ErrNotInitialized) {
		t.Errorf("Expected ErrNotInitialized from SetMangaCover, got %v", err)
	}
}

func TestCreateEPub(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "exports")
	page := createTestImage(t)

	builder := NewEPubBuilder(outputDir)
	if err := builder.Init(testManga(), "3"); err != nil {
		t.Fatalf("Failed to init builder: %v", err)
	}
	for i := 0; i < 2; i++ {
		if err := builder.Next(ImageData{Content: page, ContentType: "image/png", Index: i}); err != nil {
			t.Fatalf("Failed to add page %d: %v", i, err)
		}
	}

	epubPath, err := builder.Done()
	if err != nil {
		t.Fatalf("Failed to create EPub: %v", err)
	}

	// Verify EPub file exists
	if _, err := os.Stat(epubPath); os.IsNotExist(err) {
		t.Errorf("EPub file was not created at %s", epubPath)
	}

	// Verify it's in the correct directory
	if filepath.Dir(epubPath) != outputDir {
		t.Errorf("Expected EPub in %s, got %s", outputDir, filepath.Dir(epubPath))
	}

	expectedName := "Test Manga - Ch. 3.epub"
	if filepath.Base(epubPath) != expectedName {
		t.Errorf("Expected filename '%s', got '%s'", expectedName, filepath.Base(epubPath))
	}

	var pages, sections int
	for name, content := range readEPub(t, epubPath) {
		switch {
		case strings.Contains(name, "page-"):
			pages++
			if !bytes.Equal([]byte(content), page) {
				t.Errorf("Page %s was not embedded as received", name)
			}
		case strings.HasSuffix(name, ".xhtml") && strings.Contains(content, "<h1>Chapter 3</h1>"):
			sections++
			if !strings.Contains(content, `alt="Page 2"`) {
				t.Errorf("Expected section to reference both pages")
			}
		}
	}
	if pages != 2 {
		t.Errorf("Expected 2 embedded pages, got %d", pages)
	}
	if sections != 1 {
		t.Errorf("Expected 1 chapter section, got %d", sections)
	}
}

func TestCreateEPubWithCover(t *testing.T) {
	outputDir := t.TempDir()
	page := createTestImage(t)

	builder := NewEPubBuilder(outputDir)
	if err := builder.Init(testManga(), "1"); err != nil {
		t.Fatalf("Failed to init builder: %v", err)
	}
	if err := builder.SetMangaCover(CoverData{Content: page, ContentType: "image/png"}); err != nil {
		t.Fatalf("Failed to set cover: %v", err)
	}
	if err := builder.Next(ImageData{Content: page, ContentType: "image/png"}); err != nil {
		t.Fatalf("Failed to add page: %v", err)
	}

	epubPath, err := builder.Done()
	if err != nil {
		t.Fatalf("Failed to create EPub: %v", err)
	}

	var hasCover bool
	for name := range readEPub(t, epubPath) {
		if strings.Contains(name, "cover.png") {
			hasCover = true
		}
	}
	if !hasCover {
		t.Error("Expected the cover image to be embedded")
	}
}

func TestSetMangaCoverRejectsEmpty(t *testing.T) {
	builder := NewEPubBuilder(t.TempDir())
	if err := builder.Init(testManga(), "1"); err != nil {
		t.Fatalf("Failed to init builder: %v", err)
	}
	if err := builder.SetMangaCover(CoverData{}); err == nil {
		t.Error("Expected an error for an empty cover")
	}
}

func TestDoneWithoutPages(t *testing.T) {
	builder := NewEPubBuilder(t.TempDir())
	if err := builder.Init(testManga(), "1"); err != nil {
		t.Fatalf("Failed to init builder: %v", err)
	}
	if _, err := builder.Done(); err == nil {
		t.Error("Expected an error when no pages were added")
	}
}

func TestNextRejectsEmptyPage(t *testing.T) {
	builder := NewEPubBuilder(t.TempDir())
	if err := builder.Init(testManga(), "1"); err != nil {
		t.Fatalf("Failed to init builder: %v", err)
	}
	if err := builder.Next(ImageData{Index: 4}); err == nil || !strings.Contains(err.Error(), "page 5") {
		t.Errorf("Expected an empty-page error naming page 5, got %v", err)
	}
}

func TestDisplayTitleFallsBackToSlug(t *testing.T) {
	m := testManga()
	m.DisplayTitle = ""
	if got := displayTitle(m); got != "test-manga" {
		t.Errorf("Expected slug fallback, got %q", got)
	}
}

func TestExtensionFor(t *testing.T) {
	cases := map[string]string{
		"image/png":  ".png",
		"image/gif":  ".gif",
		"image/webp": ".webp",
		"image/jpeg": ".jpg",
		"":           ".jpg",
	}
	for contentType, want := range cases {
		if got := extensionFor(contentType); got != want {
			t.Errorf("extensionFor(%q) = %q, want %q", contentType, got, want)
		}
	}
}
