package extractor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/richardlehane/mscfb"
	"golang.org/x/text/encoding/unicode"

	"github.com/kirillkom/document-qa-bot/internal/core/domain"
)

// Outlook property tags, without the type suffix.
const (
	msgTagSubject = "0037"
	msgTagSender  = "0C1A"
	msgTagTo      = "0E04"
	msgTagBody    = "1000"
)

const msgStreamPrefix = "__substg1.0_"

// loadMSG reads subject, sender, recipients and plain body from the
// top-level property streams of an Outlook compound file.
func loadMSG(_ context.Context, path string) ([]domain.RawDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open msg: %w", err)
	}
	defer f.Close()

	doc, err := mscfb.New(f)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse msg", err)
	}

	props := make(map[string]string)
	for {
		entry, err := doc.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, domain.WrapError(domain.ErrInvalidInput, "read msg", err)
		}
		// Attachments and recipients live in nested storages.
		if len(entry.Path) > 0 || !strings.HasPrefix(entry.Name, msgStreamPrefix) || entry.Size <= 0 {
			continue
		}

		tag := strings.TrimPrefix(entry.Name, msgStreamPrefix)
		if len(tag) != 8 {
			continue
		}
		prop, kind := tag[:4], tag[4:]
		if _, seen := props[prop]; seen {
			continue
		}

		buf := make([]byte, entry.Size)
		n, err := io.ReadFull(entry, buf)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
			return nil, fmt.Errorf("read msg stream %s: %w", entry.Name, err)
		}
		value, ok := decodeMSGString(kind, buf[:n])
		if !ok {
			continue
		}
		props[prop] = value
	}

	header := emailHeader{
		Subject: props[msgTagSubject],
		From:    props[msgTagSender],
		To:      props[msgTagTo],
	}
	return []domain.RawDocument{{Text: header.render(props[msgTagBody])}}, nil
}

// decodeMSGString decodes a string property: 001F is UTF-16LE, 001E is
// 8-bit. Other property types are not text.
func decodeMSGString(kind string, raw []byte) (string, bool) {
	switch strings.ToUpper(kind) {
	case "001F":
		decoded, err := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder().Bytes(raw)
		if err != nil {
			return "", false
		}
		return strings.TrimRight(string(decoded), "\x00"), true
	case "001E":
		return strings.TrimRight(string(raw), "\x00"), true
	default:
		return "", false
	}
}
