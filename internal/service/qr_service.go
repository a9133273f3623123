package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/qs3c/ecogrid_server/config"
	"github.com/qs3c/ecogrid_server/internal/model/dto"
	"github.com/qs3c/ecogrid_server/internal/pkg/logger"
	"github.com/qs3c/ecogrid_server/internal/pkg/qrcode"
)

var (
	ErrQRContentRequired = errors.New("data or plan_id is required")
	ErrQRContentTooLong  = errors.New("qr data too long to encode")
)

// QRArchiver 保存生成的二维码
type QRArchiver interface {
	UploadQRCode(name string, data []byte) (string, error)
}

type QRService struct {
	plans    *PlanService
	archiver QRArchiver
	cfg      config.QRConfig
}

// NewQRService archiver 为 nil 时不归档
func NewQRService(plans *PlanService, archiver QRArchiver, cfg config.QRConfig) *QRService {
	return &QRService{
		plans:    plans,
		archiver: archiver,
		cfg:      cfg,
	}
}

// Generate 生成二维码 PNG。指定 plan_id 时内容为该套餐的支付链接
func (s *QRService) Generate(ctx context.Context, req *dto.GenerateQRRequest) ([]byte, error) {
	content, name, err := s.content(req)
	if err != nil {
		return nil, err
	}

	size := req.Size
	if size == 0 {
		size = s.cfg.Size
	}

	png, err := qrcode.EncodePNG(content, size)
	if err != nil {
		switch {
		case errors.Is(err, qrcode.ErrEmptyContent):
			return nil, ErrQRContentRequired
		case errors.Is(err, qrcode.ErrContentTooLong):
			return nil, ErrQRContentTooLong
		}
		return nil, err
	}

	if s.cfg.Archive && s.archiver != nil {
		// 归档失败不影响返回
		if url, err := s.archiver.UploadQRCode(name, png); err != nil {
			logger.Get().Warn("archive qr code failed", zap.Error(err))
		} else {
			logger.Get().Debug("qr code archived", zap.String("url", url))
		}
	}

	return png, nil
}

func (s *QRService) content(req *dto.GenerateQRRequest) (string, string, error) {
	if req.PlanID == "" {
		if req.Data == "" {
			return "", "", ErrQRContentRequired
		}
		return req.Data, "", nil
	}

	plan, err := s.plans.Get(req.PlanID)
	if err != nil {
		return "", "", err
	}
	if s.cfg.PaymentURL == "" {
		return fmt.Sprintf("ecogrid:plan=%s;amount=%.2f", plan.ID, plan.Price), plan.ID, nil
	}
	return fmt.Sprintf(s.cfg.PaymentURL, plan.ID, plan.Price), plan.ID, nil
}
