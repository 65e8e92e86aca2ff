package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
)

// ErrPDFUnavailable is returned when no PDF renderer is configured
var ErrPDFUnavailable = errors.New("pdf rendering is not configured")

// PDFOptions contains options for PDF generation
type PDFOptions struct {
	PageOrientation string // portrait, landscape
	PageSize        string // letter, legal, A4
	MarginTop       int    // points (72 = 1 inch)
	MarginBottom    int
	MarginLeft      int
	MarginRight     int
}

// TimelinePDFOptions lays a case timeline out on landscape A4
func TimelinePDFOptions() PDFOptions {
	return PDFOptions{
		PageOrientation: "landscape",
		PageSize:        "A4",
		MarginTop:       36,
		MarginBottom:    36,
		MarginLeft:      36,
		MarginRight:     36,
	}
}

// paperSize returns the page width and height in inches
func (o PDFOptions) paperSize() (float64, float64) {
	var width, height float64
	switch o.PageSize {
	case "legal":
		width, height = 8.5, 14.0
	case "A4":
		width, height = 8.27, 11.69
	default: // letter
		width, height = 8.5, 11.0
	}
	if o.PageOrientation == "landscape" {
		width, height = height, width
	}
	return width, height
}

// PDFRenderer turns a full HTML document into PDF bytes
type PDFRenderer interface {
	RenderPDF(ctx context.Context, htmlContent string, options PDFOptions) ([]byte, error)
}

// ChromePDFRenderer prints HTML through headless Chrome
type ChromePDFRenderer struct {
	// ExecPath overrides the browser binary, e.g. headless-shell in Docker
	ExecPath string
	// Timeout bounds one render; zero means 30s
	Timeout time.Duration
}

// RenderPDF renders HTML content to PDF using headless Chrome
func (r *ChromePDFRenderer) RenderPDF(ctx context.Context, htmlContent string, options PDFOptions) ([]byte, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.DisableGPU,
	)
	if r.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(r.ExecPath))
	}

	timeout := r.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancelTimeout := context.WithTimeout(ctx, timeout)
	defer cancelTimeout()

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, cancel := chromedp.NewContext(allocCtx)
	defer cancel()

	paperWidth, paperHeight := options.paperSize()

	var pdfBuf []byte
	err := chromedp.Run(browserCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, htmlContent).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPaperWidth(paperWidth).
				WithPaperHeight(paperHeight).
				WithMarginTop(float64(options.MarginTop) / 72.0).
				WithMarginBottom(float64(options.MarginBottom) / 72.0).
				WithMarginLeft(float64(options.MarginLeft) / 72.0).
				WithMarginRight(float64(options.MarginRight) / 72.0).
				WithPrintBackground(true).
				WithDisplayHeaderFooter(false).
				Do(ctx)
			if err != nil {
				return err
			}
			pdfBuf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	return pdfBuf, nil
}
