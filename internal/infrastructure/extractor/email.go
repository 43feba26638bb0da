package extractor

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"os"
	"strings"

	"github.com/kirillkom/document-qa-bot/internal/core/domain"
)

func loadEML(_ context.Context, path string) ([]domain.RawDocument, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open eml: %w", err)
	}
	defer f.Close()

	msg, err := mail.ReadMessage(f)
	if err != nil {
		return nil, domain.WrapError(domain.ErrInvalidInput, "parse eml", err)
	}

	body, err := messageBody(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	if err != nil {
		return nil, err
	}

	dec := new(mime.WordDecoder)
	header := emailHeader{
		Subject: decodeHeader(dec, msg.Header.Get("Subject")),
		From:    decodeHeader(dec, msg.Header.Get("From")),
		To:      decodeHeader(dec, msg.Header.Get("To")),
		Date:    msg.Header.Get("Date"),
	}
	return []domain.RawDocument{{Text: header.render(body)}}, nil
}

type emailHeader struct {
	Subject string
	From    string
	To      string
	Date    string
}

func (h emailHeader) render(body string) string {
	var b strings.Builder
	for _, field := range [][2]string{{"Subject", h.Subject}, {"From", h.From}, {"To", h.To}, {"Date", h.Date}} {
		if field[1] == "" {
			continue
		}
		b.WriteString(field[0])
		b.WriteString(": ")
		b.WriteString(field[1])
		b.WriteString("\n")
	}
	if b.Len() > 0 {
		b.WriteString("\n")
	}
	b.WriteString(strings.TrimSpace(body))
	return b.String()
}

func decodeHeader(dec *mime.WordDecoder, value string) string {
	decoded, err := dec.DecodeHeader(value)
	if err != nil {
		return value
	}
	return decoded
}

// messageBody returns the best text rendition of a MIME body: text/plain when
// present, otherwise text/html reduced to its visible text.
func messageBody(contentType, transferEncoding string, body io.Reader) (string, error) {
	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return multipartBody(multipart.NewReader(body, params["boundary"]))
	}

	raw, err := io.ReadAll(decodeTransfer(transferEncoding, body))
	if err != nil {
		return "", fmt.Errorf("read message body: %w", err)
	}
	if mediaType == "text/html" {
		return htmlText(bytes.NewReader(raw))
	}
	if strings.HasPrefix(mediaType, "text/") {
		return string(raw), nil
	}
	return "", nil
}

func multipartBody(mr *multipart.Reader) (string, error) {
	var plain, htmlBody string
	for {
		part, err := mr.NextRawPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return "", fmt.Errorf("read multipart: %w", err)
		}
		if strings.HasPrefix(part.Header.Get("Content-Disposition"), "attachment") {
			continue
		}

		ct := part.Header.Get("Content-Type")
		text, err := messageBody(ct, part.Header.Get("Content-Transfer-Encoding"), part)
		if err != nil {
			return "", err
		}
		mediaType, _, _ := mime.ParseMediaType(ct)
		switch {
		case mediaType == "text/html" && htmlBody == "":
			htmlBody = text
		case plain == "" && text != "":
			plain = text
		}
	}
	if strings.TrimSpace(plain) != "" {
		return plain, nil
	}
	return htmlBody, nil
}

func decodeTransfer(encoding string, r io.Reader) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, newlineStripper{r})
	default:
		return r
	}
}

// newlineStripper drops CR and LF so wrapped base64 bodies decode.
type newlineStripper struct {
	r io.Reader
}

func (s newlineStripper) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	out := 0
	for _, c := range p[:n] {
		if c != '\r' && c != '\n' {
			p[out] = c
			out++
		}
	}
	return out, err
}
