package extractor

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/kirillkom/document-qa-bot/internal/core/domain"
)

func writeFile(t *testing.T, name string, body []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func loadOne(t *testing.T, path string) domain.RawDocument {
	t.Helper()
	docs, err := NewLoader().Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load %s: %v", filepath.Base(path), err)
	}
	if len(docs) != 1 {
		t.Fatalf("expected 1 document, got %d", len(docs))
	}
	return docs[0]
}

func TestLoadPlainTextUsesBaseNameAsSource(t *testing.T) {
	path := writeFile(t, "notes.txt", []byte("The warranty lasts two years."))

	doc := loadOne(t, path)
	if doc.Source != "notes.txt" {
		t.Fatalf("expected source notes.txt, got %q", doc.Source)
	}
	if doc.Text != "The warranty lasts two years." {
		t.Fatalf("unexpected text %q", doc.Text)
	}
}

func TestLoadRejectsInvalidUTF8(t *testing.T) {
	path := writeFile(t, "broken.txt", []byte{0xff, 0xfe, 0xfd})

	_, err := NewLoader().Load(context.Background(), path)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
}

func TestLoadRejectsUnsupportedExtension(t *testing.T) {
	path := writeFile(t, "image.png", []byte("png"))

	_, err := NewLoader().Load(context.Background(), path)
	if !domain.IsKind(err, domain.ErrInvalidInput) {
		t.Fatalf("expected invalid input, got %v", err)
	}
	if !strings.Contains(err.Error(), "unsupported file type") {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestLoadSkipsEmptyDocuments(t *testing.T) {
	path := writeFile(t, "empty.txt", []byte("  \n\t "))

	docs, err := NewLoader().Load(context.Background(), path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(docs) != 0 {
		t.Fatalf("expected no documents, got %d", len(docs))
	}
}

func TestLoadMarkdownStripsSyntax(t *testing.T) {
	src := "# Returns\n\nItems can be returned within **30 days**.\n\n- keep the receipt\n- use the original box\n"
	doc := loadOne(t, writeFile(t, "policy.md", []byte(src)))

	for _, want := range []string{"Returns", "Items can be returned within 30 days.", "keep the receipt", "use the original box"} {
		if !strings.Contains(doc.Text, want) {
			t.Fatalf("expected %q in %q", want, doc.Text)
		}
	}
	if strings.Contains(doc.Text, "**") || strings.Contains(doc.Text, "#") {
		t.Fatalf("markdown syntax left in %q", doc.Text)
	}
}

func TestLoadHTMLSkipsScripts(t *testing.T) {
	src := `<html><head><title>x</title><style>p{}</style></head>
<body><h1>Shipping</h1><script>alert(1)</script><p>Orders ship in <b>2 days</b></p></body></html>`
	doc := loadOne(t, writeFile(t, "page.html", []byte(src)))

	if doc.Text != "Shipping\nOrders ship in 2 days" {
		t.Fatalf("unexpected text %q", doc.Text)
	}
	if strings.Contains(doc.Text, "alert") {
		t.Fatalf("script content leaked: %q", doc.Text)
	}
}

func TestLoadEMLPrefersPlainPart(t *testing.T) {
	src := strings.Join([]string{
		"From: Alice <alice@example.com>",
		"To: support@example.com",
		"Subject: Refund request",
		"MIME-Version: 1.0",
		`Content-Type: multipart/alternative; boundary="b1"`,
		"",
		"--b1",
		"Content-Type: text/html; charset=utf-8",
		"",
		"<p>html body</p>",
		"--b1",
		"Content-Type: text/plain; charset=utf-8",
		"Content-Transfer-Encoding: quoted-printable",
		"",
		"Please refund order =3D42.",
		"--b1--",
		"",
	}, "\r\n")
	doc := loadOne(t, writeFile(t, "mail.eml", []byte(src)))

	if !strings.HasPrefix(doc.Text, "Subject: Refund request\nFrom: Alice <alice@example.com>\nTo: support@example.com\n") {
		t.Fatalf("unexpected header block %q", doc.Text)
	}
	if !strings.HasSuffix(doc.Text, "Please refund order =42.") {
		t.Fatalf("unexpected body %q", doc.Text)
	}
	if strings.Contains(doc.Text, "html body") {
		t.Fatalf("html part used over plain part: %q", doc.Text)
	}
}

func TestLoadEMLFallsBackToHTML(t *testing.T) {
	src := strings.Join([]string{
		"Subject: Notice",
		"Content-Type: text/html; charset=utf-8",
		"Content-Transfer-Encoding: base64",
		"",
		"PHA+U3RvcmUgY2xvc2VkIG9u",
		"IE1vbmRheS48L3A+",
		"",
	}, "\r\n")
	doc := loadOne(t, writeFile(t, "notice.eml", []byte(src)))

	if doc.Text != "Subject: Notice\n\nStore closed on Monday." {
		t.Fatalf("unexpected text %q", doc.Text)
	}
}

func TestLoadDOCXReadsParagraphs(t *testing.T) {
	path := filepath.Join(t.TempDir(), "manual.docx")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create docx: %v", err)
	}
	zw := zip.NewWriter(f)
	parts := map[string]string{
		"[Content_Types].xml": `<?xml version="1.0" encoding="UTF-8"?><Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types"></Types>`,
		"word/_rels/document.xml.rels": `<?xml version="1.0" encoding="UTF-8"?>` +
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships"></Relationships>`,
		"word/document.xml": `<?xml version="1.0" encoding="UTF-8"?>` +
			`<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
			`<w:p><w:r><w:t>Install the</w:t></w:r><w:r><w:t xml:space="preserve"> battery first.</w:t></w:r></w:p>` +
			`<w:p><w:r><w:t>Then</w:t><w:tab/><w:t>power on.</w:t></w:r></w:p>` +
			`</w:body></w:document>`,
	}
	for name, body := range parts {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := w.Write([]byte(body)); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("file close: %v", err)
	}

	doc := loadOne(t, path)
	if doc.Text != "Install the battery first.\nThen\tpower on." {
		t.Fatalf("unexpected text %q", doc.Text)
	}
}

func TestLoadXLSXOneDocumentPerSheet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prices.xlsx")
	book := excelize.NewFile()
	if err := book.SetCellValue("Sheet1", "A1", "item"); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	if err := book.SetCellValue("Sheet1", "B1", "price"); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	if err := book.SetCellValue("Sheet1", "A2", "lamp"); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	if err := book.SetCellValue("Sheet1", "B2", 25); err != nil {
		t.Fatalf("set cell: %v", err)
	}
	if _, err := book.NewSheet("Empty"); err != nil {
		t.Fatalf("new sheet: %v", err)
	}
	if err := book.SaveAs(path); err != nil {
		t.Fatalf("save xlsx: %v", err)
	}
	_ = book.Close()

	doc := loadOne(t, path)
	if doc.Page != 1 {
		t.Fatalf("expected page 1, got %d", doc.Page)
	}
	if doc.Text != "Sheet1\nitem\tprice\nlamp\t25\n" {
		t.Fatalf("unexpected text %q", doc.Text)
	}
}

func TestDecodeMSGString(t *testing.T) {
	utf16 := []byte{'H', 0, 'i', 0, 0, 0}
	got, ok := decodeMSGString("001F", utf16)
	if !ok || got != "Hi" {
		t.Fatalf("expected Hi, got %q ok=%v", got, ok)
	}

	got, ok = decodeMSGString("001e", []byte("plain\x00"))
	if !ok || got != "plain" {
		t.Fatalf("expected plain, got %q ok=%v", got, ok)
	}

	if _, ok := decodeMSGString("0102", []byte{1, 2}); ok {
		t.Fatal("binary property must not decode as text")
	}
}

func TestSupportsAndExtensions(t *testing.T) {
	l := NewLoader()
	if !l.Supports("/tmp/Report.PDF") {
		t.Fatal("expected upper-case extension to be supported")
	}
	if l.Supports("archive.zip") {
		t.Fatal("zip must not be supported")
	}
	exts := l.Extensions()
	if len(exts) == 0 || exts[0] != ".docx" {
		t.Fatalf("expected sorted extensions, got %v", exts)
	}
}
