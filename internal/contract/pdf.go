// Package contract renders service contracts as PDF documents and keeps them
// on disk so customers can download them later.
package contract

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"

	"github.com/hongminglow/flous-cash-be/internal/models"
)

// Saver persists a rendered document and returns its path.
type Saver interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// PDFRenderer lays out an A4 contract for a service request.
type PDFRenderer struct {
	store        Saver
	walletNumber string
	now          func() time.Time
	log          *zap.Logger
}

func NewPDFRenderer(store Saver, walletNumber string, log *zap.Logger) *PDFRenderer {
	if log == nil {
		log = zap.NewNop()
	}
	return &PDFRenderer{
		store:        store,
		walletNumber: walletNumber,
		now:          time.Now,
		log:          log.Named("contract"),
	}
}

// Number is the customer-facing contract reference, e.g. FC-12-1718000000000.
func Number(serviceID int64, at time.Time) string {
	return fmt.Sprintf("FC-%d-%d", serviceID, at.UnixMilli())
}

// FileName is unique per generation so regenerated contracts never collide.
func FileName(serviceID int64, at time.Time) string {
	return fmt.Sprintf("contract-%d-%d.pdf", serviceID, at.UnixMilli())
}

// Render builds the contract for svc and user and stores it.
func (r *PDFRenderer) Render(ctx context.Context, svc models.Service, user models.User) (string, error) {
	at := r.now()
	data, err := r.build(svc, user, at)
	if err != nil {
		return "", fmt.Errorf("build pdf: %w", err)
	}
	path, err := r.store.Save(ctx, FileName(svc.ID, at), data)
	if err != nil {
		return "", err
	}
	r.log.Debug("contract stored", zap.Int64("service_id", svc.ID), zap.Int("bytes", len(data)))
	return path, nil
}

type line struct {
	text string
	bold bool
}

func (r *PDFRenderer) build(svc models.Service, user models.User, at time.Time) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Flous Cash Financial Service Contract", true)
	pdf.SetAuthor("Flous Cash", true)
	pdf.SetCreationDate(at)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFont("Helvetica", "B", 18)
	pdf.SetTextColor(0, 102, 204)
	pdf.CellFormat(0, 12, "Flous Cash", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 10, "Financial Service Contract", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	purpose := "Not specified"
	if svc.Purpose != nil {
		purpose = *svc.Purpose
	}
	lines := []line{
		{text: "Date: " + at.Format("2006-01-02")},
		{text: "Contract No: " + Number(svc.ID, at), bold: true},
		{},
		{text: "Customer details", bold: true},
		{text: "Full name: " + user.FullName},
		{text: "National ID: " + user.NationalID},
		{text: "Phone: " + user.Phone},
		{text: "Job: " + user.Job},
		{text: "Address: " + user.Address},
		{},
		{text: "Service details", bold: true},
		{text: fmt.Sprintf("Service type: %s", serviceTypeName(svc.Type))},
		{text: fmt.Sprintf("Amount: %s EGP", svc.Amount)},
		{text: "Purpose: " + purpose},
		{text: "Start date: " + svc.CreatedAt.Format("2006-01-02")},
	}
	if svc.TargetDate != nil {
		lines = append(lines, line{text: "Target date: " + svc.TargetDate.Format("2006-01-02")})
	}
	lines = append(lines,
		line{},
		line{text: "Terms and conditions", bold: true},
		line{text: "1. This contract is binding on both parties."},
		line{text: "2. All amounts are transferred to Vodafone Cash number " + r.walletNumber + "."},
		line{text: "3. The customer is entitled to a copy of this contract."},
		line{text: "4. In case of dispute, the original contract prevails."},
		line{},
		line{text: "Digitally signed and recorded electronically."},
		line{text: "Flous Cash platform - " + at.Format("2006-01-02")},
	)

	pdf.SetTextColor(0, 0, 0)
	for _, l := range lines {
		if l.bold {
			pdf.SetFont("Helvetica", "B", 12)
		} else {
			pdf.SetFont("Helvetica", "", 12)
		}
		pdf.CellFormat(0, 8, tr(l.text), "", 1, "L", false, 0, "")
	}

	pdf.SetY(-30)
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(0, 153, 0)
	pdf.CellFormat(0, 10, "Verified", "", 1, "R", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// serviceTypeName is the Latin rendering of the service type; the core PDF
// fonts cannot shape Arabic.
func serviceTypeName(t models.ServiceType) string {
	switch t {
	case models.ServiceFunding:
		return "Quick funding"
	case models.ServiceSaving:
		return "Smart saving"
	case models.ServiceInvestment:
		return "Profitable investment"
	}
	return string(t)
}
