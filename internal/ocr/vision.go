package ocr

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"google.golang.org/api/option"
	"google.golang.org/api/vision/v1"
)

// ErrNoText — сервис распознавания не вернул текста.
var ErrNoText = errors.New("текст на изображении не обнаружен")

// Recognizer — движок распознавания текста.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte) (string, error)
}

// VisionRecognizer — распознавание через Google Cloud Vision (TEXT_DETECTION).
type VisionRecognizer struct {
	svc     *vision.Service
	timeout time.Duration
}

// NewVisionRecognizer создаёт клиент Cloud Vision.
// Если apiKey не пуст, запросы авторизуются ключом API.
// Дополнительные опции позволяют переопределить endpoint и HTTP-клиент.
func NewVisionRecognizer(ctx context.Context, apiKey string, timeout time.Duration, opts ...option.ClientOption) (*VisionRecognizer, error) {
	if apiKey != "" {
		opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	}
	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("создание клиента Cloud Vision: %w", err)
	}
	return &VisionRecognizer{svc: svc, timeout: timeout}, nil
}

// Recognize отправляет изображение на распознавание. Один запрос, без повторов.
func (r *VisionRecognizer) Recognize(ctx context.Context, image []byte) (string, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:        &vision.Image{Content: base64.StdEncoding.EncodeToString(image)},
			Features:     []*vision.Feature{{Type: "TEXT_DETECTION"}},
			ImageContext: &vision.ImageContext{LanguageHints: []string{"es"}},
		}},
	}

	resp, err := r.svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("запрос Cloud Vision: %w", err)
	}
	if len(resp.Responses) == 0 {
		return "", ErrNoText
	}

	res := resp.Responses[0]
	if res.Error != nil {
		return "", fmt.Errorf("Cloud Vision: %s", res.Error.Message)
	}
	if res.FullTextAnnotation != nil && res.FullTextAnnotation.Text != "" {
		return res.FullTextAnnotation.Text, nil
	}
	if len(res.TextAnnotations) > 0 {
		return res.TextAnnotations[0].Description, nil
	}
	return "", ErrNoText
}
