// ocr.go — распознавание избирательной credencial для формы регистрации.
package service

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/sigid/internal/domain/model"
	"github.com/bigkaa/sigid/internal/ocr"
)

var ocrScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "sg_ocr_scans_total",
	Help: "Количество распознаваний credencial по результату",
}, []string{"result"})

// Результаты распознавания для метрики.
const (
	ocrResultOK     = "ok"
	ocrResultEmpty  = "empty"
	ocrResultFailed = "failed"
)

// ScanResult — результат распознавания credencial.
type ScanResult struct {
	// Fields — найденные поля (пустые, если ничего не найдено)
	Fields ocr.Fields
	// Form — форма после подстановки найденных значений
	Form model.AffiliateInput
	// Found — количество найденных полей
	Found int
	// Message — уведомление для оператора
	Message string
}

// OCRService — распознавание credencial через внешний движок.
// Один проход без повторов: при любой неудаче оператор вводит данные вручную.
type OCRService struct {
	recognizer ocr.Recognizer
	logger     *slog.Logger
}

// NewOCRService создаёт сервис распознавания.
// recognizer == nil означает, что распознавание отключено.
func NewOCRService(recognizer ocr.Recognizer, logger *slog.Logger) *OCRService {
	return &OCRService{
		recognizer: recognizer,
		logger:     logger.With(slog.String("component", "ocr_service")),
	}
}

// Enabled сообщает, настроен ли движок распознавания.
func (s *OCRService) Enabled() bool {
	return s.recognizer != nil
}

// Scan распознаёт снимок и подставляет найденные поля в форму.
// Ошибка движка и пустой результат не считаются ошибкой запроса:
// возвращается форма без изменений и уведомление.
func (s *OCRService) Scan(ctx context.Context, image []byte, form model.AffiliateInput) (*ScanResult, error) {
	if !s.Enabled() {
		return nil, ErrOCRDisabled
	}
	if len(image) == 0 {
		return nil, newError(ErrValidation, msgInvalidPhoto)
	}

	text, err := s.recognizer.Recognize(ctx, image)
	if err != nil {
		ocrScansTotal.WithLabelValues(ocrResultFailed).Inc()
		s.logger.Warn("Ошибка распознавания credencial", slog.String("error", err.Error()))
		return &ScanResult{Form: form, Message: msgOCRNoData}, nil
	}

	fields := ocr.Extract(text)
	found := fields.Count()
	if found == 0 {
		ocrScansTotal.WithLabelValues(ocrResultEmpty).Inc()
		s.logger.Info("Поля credencial не найдены", slog.Int("text_len", len(text)))
		return &ScanResult{Form: form, Message: msgOCRNoData}, nil
	}

	fields.MergeInto(&form)
	ocrScansTotal.WithLabelValues(ocrResultOK).Inc()
	s.logger.Info("Credencial распознана", slog.Int("fields", found))

	return &ScanResult{
		Fields:  fields,
		Form:    form,
		Found:   found,
		Message: msgOCRSuccess,
	}, nil
}
