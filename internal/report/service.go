package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/signintech/gopdf"

	"hercure/internal/health"
	"hercure/internal/risk"
	"hercure/internal/user"
)

var ErrNoCareTeam = errors.New("care team channel is not configured")

type HealthSource interface {
	Recent(ctx context.Context, userID uuid.UUID, limit int) ([]health.Record, []health.SymptomEntry, error)
}

type UserLookup interface {
	Get(ctx context.Context, id uuid.UUID) (*user.User, error)
}

type DocumentSender interface {
	SendDocument(name string, data []byte, caption string) error
}

// Common DejaVu locations on Alpine and Debian images.
var defaultFontPaths = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

const (
	fontFamily  = "DejaVu"
	pageMargin  = 40.0
	pageBottom  = 800.0
	textWidth   = 515.0
	reportLimit = 20
)

type Service struct {
	health    HealthSource
	users     UserLookup
	careTeam  DocumentSender
	fontPaths []string
	now       func() time.Time
}

// NewService builds the report service. fontPath is tried before the system
// locations; careTeam may be nil.
func NewService(hs HealthSource, users UserLookup, careTeam DocumentSender, fontPath string) *Service {
	paths := defaultFontPaths
	if fontPath != "" {
		paths = append([]string{fontPath}, defaultFontPaths...)
	}
	return &Service{
		health:    hs,
		users:     users,
		careTeam:  careTeam,
		fontPaths: paths,
		now:       time.Now,
	}
}

func (s *Service) Summary(ctx context.Context, userID uuid.UUID) (Summary, error) {
	u, err := s.users.Get(ctx, userID)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load user: %w", err)
	}
	records, entries, err := s.health.Recent(ctx, userID, reportLimit)
	if err != nil {
		return Summary{}, fmt.Errorf("failed to load health history: %w", err)
	}
	a := risk.Assess(health.Snapshot(records), health.Flatten(entries))
	return BuildSummary(u, records, entries, a, s.now()), nil
}

// Generate renders the user's summary and returns the PDF with its file name.
func (s *Service) Generate(ctx context.Context, userID uuid.UUID) ([]byte, string, error) {
	summary, err := s.Summary(ctx, userID)
	if err != nil {
		return nil, "", err
	}
	data, err := render(summary, s.fontPaths)
	if err != nil {
		return nil, "", err
	}
	return data, fmt.Sprintf("health_summary_%s.pdf", summary.GeneratedAt.Format("20060102")), nil
}

// Share sends the report to the care-team chat.
func (s *Service) Share(ctx context.Context, userID uuid.UUID) error {
	if s.careTeam == nil {
		return ErrNoCareTeam
	}
	data, name, err := s.Generate(ctx, userID)
	if err != nil {
		return err
	}
	log.Printf("sending health summary of user %s to the care team", userID)
	caption := fmt.Sprintf("Health summary for user %s", userID)
	return s.careTeam.SendDocument(name, data, caption)
}

func render(s Summary, fontPaths []string) ([]byte, error) {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	var fontErr error
	fontLoaded := false
	for _, path := range fontPaths {
		if fontErr = pdf.AddTTFFont(fontFamily, path); fontErr == nil {
			fontLoaded = true
			break
		}
	}
	if !fontLoaded {
		return nil, fmt.Errorf("failed to load font for PDF, set REPORT_FONT_PATH or install ttf-dejavu: %w", fontErr)
	}

	w := &pageWriter{pdf: pdf}
	pdf.SetXY(pageMargin, pageMargin)

	w.text(20, s.Title, 30)
	w.text(11, "Date: "+s.GeneratedAt.Format("02.01.2006 15:04"), 20)
	for _, sec := range s.Sections {
		if sec.Title != "" {
			w.text(14, sec.Title, 18)
		}
		for _, line := range sec.Lines {
			w.wrapped(11, line, 14)
		}
		w.br(10)
	}
	if w.err != nil {
		return nil, w.err
	}

	var buf bytes.Buffer
	if _, err := pdf.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("failed to write PDF: %w", err)
	}
	return buf.Bytes(), nil
}

// pageWriter keeps the first error and breaks pages when the cursor passes
// the bottom margin.
type pageWriter struct {
	pdf *gopdf.GoPdf
	err error
}

func (w *pageWriter) text(size float64, text string, lineHeight float64) {
	if w.err != nil {
		return
	}
	if w.err = w.pdf.SetFont(fontFamily, "", size); w.err != nil {
		return
	}
	w.line(text, lineHeight)
}

func (w *pageWriter) wrapped(size float64, text string, lineHeight float64) {
	if w.err != nil {
		return
	}
	if w.err = w.pdf.SetFont(fontFamily, "", size); w.err != nil {
		return
	}
	lines, err := w.pdf.SplitText(text, textWidth)
	if err != nil {
		lines = []string{text}
	}
	for _, l := range lines {
		w.line(l, lineHeight)
	}
}

func (w *pageWriter) line(text string, lineHeight float64) {
	if w.err != nil {
		return
	}
	if w.pdf.GetY()+lineHeight > pageBottom {
		w.pdf.AddPage()
		w.pdf.SetXY(pageMargin, pageMargin)
	}
	w.pdf.SetX(pageMargin)
	if w.err = w.pdf.Cell(nil, text); w.err != nil {
		return
	}
	w.br(lineHeight)
}

func (w *pageWriter) br(h float64) {
	w.pdf.Br(h)
}
