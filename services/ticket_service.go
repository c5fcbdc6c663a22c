package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"log"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	config "github.com/kamaundungu/soko_events/configs"
	"github.com/kamaundungu/soko_events/database"
	"github.com/kamaundungu/soko_events/models"
	"github.com/kamaundungu/soko_events/notifications"
)

// IssueTicket renders the PDF ticket for a paid order, uploads it and
// moves the order from DELIVERY_PENDING to COMPLETED. It is only ever
// invoked by the settlement path right after the terminal transition,
// so a redelivered webhook cannot issue a second ticket.
func IssueTicket(order models.Order, payment models.Payment) {
	var full models.Order
	if err := database.DB.Preload("Buyer").Preload("TicketType").Preload("TicketType.Event").
		First(&full, "id = ?", order.ID).Error; err != nil {
		log.Printf("🔥 Failed to load order %s for ticket issuance: %v", order.ID, err)
		return
	}

	htmlData, err := generateTicketHTML(full, payment)
	if err != nil {
		log.Printf("🔥 Failed to generate ticket HTML for order %s: %v", order.ID, err)
		return
	}

	pdfBytes, err := generatePDFFromHTML(htmlData)
	if err != nil {
		log.Printf("🔥 Failed to generate ticket PDF for order %s: %v", order.ID, err)
		return
	}

	uploadURL, err := uploadToCloudinary(pdfBytes, order.ID.String())
	if err != nil {
		log.Printf("🔥 Failed to upload ticket to Cloudinary for order %s: %v", order.ID, err)
		return
	}

	now := time.Now()
	from := full.Status
	full.TicketURL = &uploadURL
	full.Status = models.OrderCompleted
	full.CompletedAt = &now
	if err := database.DB.Save(&full).Error; err != nil {
		log.Printf("🔥 Failed to mark order %s completed after ticket issuance: %v", order.ID, err)
		return
	}
	database.DB.Create(&models.OrderAudit{
		OrderID:       full.ID,
		FromStatus:    from,
		ToStatus:      full.Status,
		PaymentStatus: full.PaymentStatus,
		Reason:        "ticket issued",
	})

	log.Printf("✅ Issued ticket for order %s: %s", order.ID, uploadURL)

	go notifications.SendEmail(
		full.Buyer.FullName,
		full.Buyer.Email,
		"Your Tickets Are Ready!",
		fmt.Sprintf("<h1>Payment Received</h1><p>Your payment of %s %.2f was successful. Your tickets for <b>%s</b> are attached to your account.</p><p><a href='%s'>Download your ticket</a></p>",
			full.Currency, full.Amount, full.TicketType.Event.Title, uploadURL),
	)
}

func generateTicketHTML(order models.Order, payment models.Payment) (string, error) {
	tmpl, err := template.ParseFiles("templates/ticket.html")
	if err != nil {
		return "", err
	}

	data := struct {
		BuyerName  string
		EventTitle string
		Venue      string
		StartsAt   string
		TicketType string
		Quantity   int
		Amount     string
		InvoiceRef string
	}{
		BuyerName:  order.Buyer.FullName,
		EventTitle: order.TicketType.Event.Title,
		Venue:      order.TicketType.Event.Venue,
		StartsAt:   order.TicketType.Event.StartsAt.Format("January 2, 2006 at 3:04 PM"),
		TicketType: order.TicketType.Name,
		Quantity:   order.Quantity,
		Amount:     fmt.Sprintf("%s %.2f", order.Currency, order.Amount),
		InvoiceRef: payment.InvoiceRef,
	}

	var renderedHTML bytes.Buffer
	if err := tmpl.Execute(&renderedHTML, data); err != nil {
		return "", err
	}
	return renderedHTML.String(), nil
}

func generatePDFFromHTML(htmlContent string) ([]byte, error) {
	ctx, cancel := chromedp.NewContext(context.Background())
	defer cancel()

	var pdfBuffer []byte
	err := chromedp.Run(ctx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, htmlContent).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			pdf, _, err := page.PrintToPDF().WithPrintBackground(true).Do(ctx)
			if err != nil {
				return err
			}
			pdfBuffer = pdf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}
	return pdfBuffer, nil
}

func uploadToCloudinary(pdfBytes []byte, orderID string) (string, error) {
	cld, err := cloudinary.NewFromURL(config.Config("CLOUDINARY_URL"))
	if err != nil {
		return "", err
	}

	uploadCtx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	publicID := fmt.Sprintf("tickets/ticket-%s", orderID)
	resp, err := cld.Upload.Upload(uploadCtx, bytes.NewReader(pdfBytes), uploader.UploadParams{
		PublicID:     publicID,
		ResourceType: "raw",
	})
	if err != nil {
		return "", err
	}
	return resp.SecureURL, nil
}
