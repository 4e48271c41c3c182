// credentials.go — печатная credencial и QR-код афилиата.
package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/bigkaa/sigid/internal/credential"
	"github.com/bigkaa/sigid/internal/domain/model"
	"github.com/bigkaa/sigid/internal/i18n"
)

// CredentialService формирует credencial афилиата.
// Видимость афилиата определяется AffiliateService.
type CredentialService struct {
	affiliates *AffiliateService
	bundle     *i18n.Bundle
	logger     *slog.Logger
}

// NewCredentialService создаёт сервис credencial.
func NewCredentialService(affiliates *AffiliateService, bundle *i18n.Bundle, logger *slog.Logger) *CredentialService {
	return &CredentialService{
		affiliates: affiliates,
		bundle:     bundle,
		logger:     logger.With(slog.String("component", "credential_service")),
	}
}

// Render выводит HTML-карточку афилиата на языке lang.
func (s *CredentialService) Render(ctx context.Context, w io.Writer, caller *model.User, affiliateID int64, lang string) error {
	a, err := s.affiliates.Get(ctx, caller, affiliateID)
	if err != nil {
		return err
	}

	png, err := credential.QRPNG(credential.NewPayload(a), credential.QRSize)
	if err != nil {
		return fmt.Errorf("QR-код афилиата %d: %w", affiliateID, err)
	}

	data := credential.CardData{
		Affiliate: a,
		QRDataURI: credential.DataURI(png),
		Lang:      lang,
		Bundle:    s.bundle,
	}
	if err := credential.Card(data).Render(ctx, w); err != nil {
		return fmt.Errorf("вывод credencial: %w", err)
	}

	s.logger.Debug("Credencial сформирована",
		slog.Int64("affiliate_id", affiliateID),
		slog.String("lang", lang),
	)
	return nil
}

// QR возвращает PNG QR-кода афилиата заданного размера.
func (s *CredentialService) QR(ctx context.Context, caller *model.User, affiliateID int64, size int) ([]byte, error) {
	a, err := s.affiliates.Get(ctx, caller, affiliateID)
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = credential.QRSize
	}
	png, err := credential.QRPNG(credential.NewPayload(a), size)
	if err != nil {
		return nil, fmt.Errorf("QR-код афилиата %d: %w", affiliateID, err)
	}
	return png, nil
}
