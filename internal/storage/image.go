package storage

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

var (
	// ErrInvalidImage — данные не являются изображением допустимого типа.
	ErrInvalidImage = errors.New("недопустимое изображение: поддерживаются JPEG, PNG, WebP")
	// ErrImageTooLarge — изображение превышает допустимый размер.
	ErrImageTooLarge = errors.New("изображение превышает допустимый размер")
)

// allowedTypes — допустимые MIME-типы и расширения файлов.
var allowedTypes = map[string]string{
	"image/jpeg": "jpg",
	"image/png":  "png",
	"image/webp": "webp",
}

// Image — декодированное изображение.
type Image struct {
	Data        []byte
	ContentType string
	Ext         string
}

// Reader возвращает reader содержимого.
func (img *Image) Reader() io.Reader {
	return bytes.NewReader(img.Data)
}

// DecodeDataURL декодирует снимок камеры: data URL
// (data:image/jpeg;base64,...) или голый base64.
// Тип определяется по содержимому, заявленный в data URL тип не учитывается.
func DecodeDataURL(s string, maxBytes int) (*Image, error) {
	payload := strings.TrimSpace(s)
	if strings.HasPrefix(payload, "data:") {
		comma := strings.IndexByte(payload, ',')
		if comma < 0 || !strings.HasSuffix(payload[:comma], ";base64") {
			return nil, ErrInvalidImage
		}
		payload = payload[comma+1:]
	}

	// Грубая оценка размера до декодирования
	if maxBytes > 0 && base64.StdEncoding.DecodedLen(len(payload)) > maxBytes+2 {
		return nil, ErrImageTooLarge
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: некорректный base64", ErrInvalidImage)
	}
	return sniff(data, maxBytes)
}

// ReadImage читает изображение из multipart-файла с ограничением размера.
func ReadImage(r io.Reader, maxBytes int) (*Image, error) {
	data, err := io.ReadAll(io.LimitReader(r, int64(maxBytes)+1))
	if err != nil {
		return nil, fmt.Errorf("чтение изображения: %w", err)
	}
	return sniff(data, maxBytes)
}

// sniff проверяет размер и тип содержимого.
func sniff(data []byte, maxBytes int) (*Image, error) {
	if len(data) == 0 {
		return nil, ErrInvalidImage
	}
	if maxBytes > 0 && len(data) > maxBytes {
		return nil, ErrImageTooLarge
	}

	contentType := http.DetectContentType(data)
	ext, ok := allowedTypes[contentType]
	if !ok {
		return nil, ErrInvalidImage
	}

	return &Image{Data: data, ContentType: contentType, Ext: ext}, nil
}
