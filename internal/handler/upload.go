package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/rental-booking/internal/service"
)

// openUpload opens a multipart file and sniffs its content type from the
// first bytes instead of trusting the client's header.  The caller closes
// the returned closer.
func openUpload(fh *multipart.FileHeader) (service.Upload, io.Closer, error) {
	f, err := fh.Open()
	if err != nil {
		return service.Upload{}, nil, err
	}
	head := make([]byte, 512)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		f.Close()
		return service.Upload{}, nil, err
	}
	head = head[:n]
	ct := http.DetectContentType(head)
	if i := strings.IndexByte(ct, ';'); i >= 0 {
		ct = ct[:i]
	}
	return service.Upload{
		Filename:    fh.Filename,
		ContentType: ct,
		Size:        fh.Size,
		Body:        io.MultiReader(bytes.NewReader(head), f),
	}, f, nil
}

type closers []io.Closer

func (cs closers) Close() {
	for _, c := range cs {
		_ = c.Close()
	}
}

func isMultipart(c echo.Context) bool {
	return strings.HasPrefix(c.Request().Header.Get(echo.HeaderContentType), echo.MIMEMultipartForm)
}

// bindListingForm reads a listing form either as a JSON body or as a
// multipart form whose listing, setup, pricing and legal fields hold
// JSON documents next to any number of image files.
func bindListingForm(c echo.Context) (service.CreateListingInput, []service.Upload, closers, error) {
	var in service.CreateListingInput
	if !isMultipart(c) {
		if err := c.Bind(&in); err != nil {
			return in, nil, nil, &service.ValidationError{Fields: map[string]string{"body": "invalid JSON body"}}
		}
		return in, nil, nil, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return in, nil, nil, &service.ValidationError{Fields: map[string]string{"body": "invalid multipart form"}}
	}
	groups := []struct {
		name string
		dst  any
	}{
		{"listing", &in.Listing},
		{"setup", &in.Setup},
		{"pricing", &in.Pricing},
		{"legal", &in.Legal},
	}
	for _, g := range groups {
		raw := strings.TrimSpace(firstValue(form.Value[g.name]))
		if raw == "" {
			continue
		}
		if err := json.Unmarshal([]byte(raw), g.dst); err != nil {
			return in, nil, nil, &service.ValidationError{Fields: map[string]string{g.name: "invalid JSON"}}
		}
	}

	var uploads []service.Upload
	var open closers
	for _, fh := range form.File["image"] {
		u, cl, err := openUpload(fh)
		if err != nil {
			open.Close()
			return in, nil, nil, err
		}
		uploads = append(uploads, u)
		open = append(open, cl)
	}
	return in, uploads, open, nil
}

func firstValue(vs []string) string {
	if len(vs) == 0 {
		return ""
	}
	return vs[0]
}
