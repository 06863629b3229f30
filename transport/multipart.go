package transport

import (
	"bytes"
	"mime/multipart"
)

// FormFile is a single file part of a multipart request. Content is held in
// memory so the request body can be replayed after a refresh-triggered retry.
type FormFile struct {
	Field   string
	Name    string
	Content []byte
}

// Form defines a public type used by goSession APIs.
//
// Form instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Form struct {
	Fields map[string]string
	Files  []FormFile
}

func encodeForm(form Form) ([]byte, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for field, value := range form.Fields {
		if err := writer.WriteField(field, value); err != nil {
			return nil, "", err
		}
	}

	for _, file := range form.Files {
		part, err := writer.CreateFormFile(file.Field, file.Name)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(file.Content); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return buf.Bytes(), writer.FormDataContentType(), nil
}
